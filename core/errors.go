package core

import "github.com/pkg/errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidScope = errors.New("invalid tenant scope")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

// NewFieldError is a shorthand for a ValidationError on a single field.
func NewFieldError(field string, err error) error {
	return &ValidationError{Err: err, Fields: []FieldError{{Field: field, Error: err.Error()}}}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// ConflictError reports a request that clashes with the current state of a resource.
type ConflictError struct {
	Err error
}

func NewConflictError(err error) error {
	return &ConflictError{Err: err}
}

func (err ConflictError) Error() string { return err.Err.Error() }

func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

// ErrBranchRequired is returned when a tenant-wide scope is used where a single branch is expected.
var ErrBranchRequired = NewFieldError("branch_id", errors.New("a branch is required"))

// RequireBranch returns ErrBranchRequired unless scope targets a single branch.
func RequireBranch(scope Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if scope.BranchID == "" {
		return ErrBranchRequired
	}
	return nil
}
