// Package forms validates input client side, with the server's rules, before any request is sent.
package forms

import (
	"sort"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/validation"
)

// Error lists the invalid fields of a form.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, name+": "+e.Fields[name])
	}
	return "invalid form: " + strings.Join(msgs, "; ")
}

func IsInvalid(err error) bool {
	var fErr *Error
	return errors.As(err, &fErr)
}

type (
	validatable interface {
		Validate(validate *validator.Validate) error
	}

	cleanable interface {
		Clean()
	}
)

type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func New() *Validator {
	validate, translator := validation.New()
	registerFormValidators(validate)
	return &Validator{validate: validate, translator: translator}
}

// Validate cleans & checks form (a pointer), returning an *Error listing every invalid field.
func (v *Validator) Validate(form interface{}) error {
	var err error
	if f, ok := form.(validatable); ok {
		err = f.Validate(v.validate)
	} else {
		if c, ok := form.(cleanable); ok {
			c.Clean()
		}
		err = v.validate.Struct(form)
	}
	if err == nil {
		return nil
	}

	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		return &Error{Fields: core.TranslateErrors(vErrs, v.translator)}
	}
	var cErr *core.ValidationError
	if errors.As(err, &cErr) {
		fields := make(map[string]string, len(cErr.Fields))
		for _, f := range cErr.Fields {
			fields[f.Field] = f.Error
		}
		return &Error{Fields: fields}
	}
	return err
}
