package staff

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var ErrEmailExists = errors.New("a staff member with this email already exists")

type Staff struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	BranchID    string    `json:"branch_id"`
	UserID      string    `json:"user_id,omitempty"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Designation string    `json:"designation"`
	Department  string    `json:"department,omitempty"`
	JoinedOn    core.Date `json:"joined_on"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s Staff) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

type NewStaff struct {
	UserID      string    `json:"user_id" validate:"omitempty,uuid"`
	FirstName   string    `json:"first_name" validate:"required,max=100"`
	LastName    string    `json:"last_name" validate:"required,max=100"`
	Email       string    `json:"email" validate:"required,email"`
	Phone       string    `json:"phone" validate:"omitempty,max=30"`
	Designation string    `json:"designation" validate:"required,max=100"`
	Department  string    `json:"department" validate:"omitempty,max=100"`
	JoinedOn    core.Date `json:"joined_on"`
}

func (ns *NewStaff) Validate(validate *validator.Validate) error {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)
	ns.Designation = core.CleanString(ns.Designation)
	ns.Department = core.CleanString(ns.Department)
	if ns.JoinedOn.IsZero() {
		ns.JoinedOn = core.Today()
	}
	return validate.Struct(ns)
}

type UpdateStaff struct {
	FirstName   *string `json:"first_name" validate:"omitempty,required,max=100"`
	LastName    *string `json:"last_name" validate:"omitempty,required,max=100"`
	Email       *string `json:"email" validate:"omitempty,required,email"`
	Phone       *string `json:"phone" validate:"omitempty,max=30"`
	Designation *string `json:"designation" validate:"omitempty,required,max=100"`
	Department  *string `json:"department" validate:"omitempty,max=100"`
	IsActive    *bool   `json:"is_active"`
}

func (us *UpdateStaff) Validate(validate *validator.Validate) error {
	for _, fld := range []*string{us.FirstName, us.LastName, us.Phone, us.Designation, us.Department} {
		if fld != nil {
			*fld = core.CleanString(*fld)
		}
	}
	if us.Email != nil {
		*us.Email = core.CleanString(*us.Email, true /* lower */)
	}
	return validate.Struct(us)
}

type QueryFilter struct {
	Search      string `query:"search"`
	Designation string `query:"designation"`
	Department  string `query:"department"`
	IsActive    *bool  `query:"is_active"`
}

func (f *QueryFilter) Clean() {
	f.Search = core.CleanString(f.Search, true /* lower */)
	f.Designation = core.CleanString(f.Designation, true /* lower */)
	f.Department = core.CleanString(f.Department, true /* lower */)
}

func (f *QueryFilter) Match(s Staff) bool {
	if f.Search != "" {
		hay := strings.ToLower(s.FirstName + " " + s.LastName + " " + s.Email + " " + s.Phone)
		if !strings.Contains(hay, f.Search) {
			return false
		}
	}
	if f.Designation != "" && strings.ToLower(s.Designation) != f.Designation {
		return false
	}
	if f.Department != "" && strings.ToLower(s.Department) != f.Department {
		return false
	}
	if f.IsActive != nil && s.IsActive != *f.IsActive {
		return false
	}
	return true
}

type Repository interface {
	// EmailExists checks emails within the tenant of scope.
	EmailExists(ctx context.Context, scope core.Scope, email string, excludedID string) (bool, error)
	CreateStaff(ctx context.Context, s Staff) (Staff, error)
	GetStaff(ctx context.Context, scope core.Scope, id string) (Staff, error)
	FilterStaff(ctx context.Context, scope core.Scope, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) (core.Paged[Staff], error)
	UpdateStaff(ctx context.Context, s Staff) (Staff, error)
	DeleteStaff(ctx context.Context, scope core.Scope, ids ...string) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkEmail(ctx context.Context, scope core.Scope, email, excludedID string) error {
	exists, err := svc.repo.EmailExists(ctx, core.Scope{TenantID: scope.TenantID}, email, excludedID)
	if err != nil {
		return errors.Wrap(err, "checking staff email")
	}
	if exists {
		return core.NewFieldError("email", ErrEmailExists)
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, scope core.Scope, ns NewStaff) (Staff, error) {
	if err := core.RequireBranch(scope); err != nil {
		return Staff{}, err
	}
	if err := svc.checkEmail(ctx, scope, ns.Email, ""); err != nil {
		return Staff{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateStaff(ctx, Staff{
		ID:          core.NewID(),
		TenantID:    scope.TenantID,
		BranchID:    scope.BranchID,
		UserID:      ns.UserID,
		FirstName:   ns.FirstName,
		LastName:    ns.LastName,
		Email:       ns.Email,
		Phone:       ns.Phone,
		Designation: ns.Designation,
		Department:  ns.Department,
		JoinedOn:    ns.JoinedOn,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) Query(ctx context.Context, scope core.Scope, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) (core.Paged[Staff], error) {
	filter.Clean()
	page.Clean()
	return svc.repo.FilterStaff(ctx, scope, filter, ordering, page)
}

func (svc *Service) Get(ctx context.Context, scope core.Scope, id string) (Staff, error) {
	return svc.repo.GetStaff(ctx, scope, id)
}

func (svc *Service) Update(ctx context.Context, s Staff, us UpdateStaff) (Staff, error) {
	if us.Email != nil && *us.Email != s.Email {
		if err := svc.checkEmail(ctx, s.Scope(), *us.Email, s.ID); err != nil {
			return Staff{}, err
		}
		s.Email = *us.Email
	}
	if us.FirstName != nil {
		s.FirstName = *us.FirstName
	}
	if us.LastName != nil {
		s.LastName = *us.LastName
	}
	if us.Phone != nil {
		s.Phone = *us.Phone
	}
	if us.Designation != nil {
		s.Designation = *us.Designation
	}
	if us.Department != nil {
		s.Department = *us.Department
	}
	if us.IsActive != nil {
		s.IsActive = *us.IsActive
	}
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStaff(ctx, s)
}

func (svc *Service) Delete(ctx context.Context, scope core.Scope, ids ...string) error {
	return svc.repo.DeleteStaff(ctx, scope, ids...)
}

func (s Staff) Scope() core.Scope {
	return core.Scope{TenantID: s.TenantID, BranchID: s.BranchID}
}
