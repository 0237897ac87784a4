package student

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

type Student struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	BranchID       string    `json:"branch_id"`
	AdmissionNo    string    `json:"admission_no"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email,omitempty"`
	DateOfBirth    core.Date `json:"date_of_birth"`
	Gender         string    `json:"gender"`
	ClassSectionID string    `json:"class_section_id,omitempty"`
	AdmittedOn     core.Date `json:"admitted_on"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

type NewStudent struct {
	AdmissionNo    string    `json:"admission_no" validate:"required,max=30"`
	FirstName      string    `json:"first_name" validate:"required,max=100"`
	LastName       string    `json:"last_name" validate:"required,max=100"`
	Email          string    `json:"email" validate:"omitempty,email"`
	DateOfBirth    core.Date `json:"date_of_birth" validate:"required"`
	Gender         string    `json:"gender" validate:"required,oneof=male female other"`
	ClassSectionID string    `json:"class_section_id" validate:"omitempty,uuid"`
	AdmittedOn     core.Date `json:"admitted_on"`
}

func (ns *NewStudent) Clean() {
	ns.AdmissionNo = core.CleanString(ns.AdmissionNo)
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Gender = core.CleanString(ns.Gender, true /* lower */)
	if ns.AdmittedOn.IsZero() {
		ns.AdmittedOn = core.Today()
	}
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Clean()
	return validate.Struct(ns)
}

// UpdateStudent only changes the provided fields.
type UpdateStudent struct {
	FirstName      *string    `json:"first_name" validate:"omitempty,required,max=100"`
	LastName       *string    `json:"last_name" validate:"omitempty,required,max=100"`
	Email          *string    `json:"email" validate:"omitempty,email"`
	DateOfBirth    *core.Date `json:"date_of_birth"`
	Gender         *string    `json:"gender" validate:"omitempty,oneof=male female other"`
	ClassSectionID *string    `json:"class_section_id" validate:"omitempty,uuid"`
	IsActive       *bool      `json:"is_active"`
}

// Apply validates the changes against orig then returns the updated student.
func (us *UpdateStudent) Apply(orig Student, validate *validator.Validate) (Student, error) {
	s := orig
	if us.FirstName != nil {
		s.FirstName = core.CleanString(*us.FirstName)
	}
	if us.LastName != nil {
		s.LastName = core.CleanString(*us.LastName)
	}
	if us.Email != nil {
		s.Email = core.CleanString(*us.Email, true /* lower */)
	}
	if us.DateOfBirth != nil {
		s.DateOfBirth = *us.DateOfBirth
	}
	if us.Gender != nil {
		s.Gender = core.CleanString(*us.Gender, true /* lower */)
	}
	if us.ClassSectionID != nil {
		s.ClassSectionID = *us.ClassSectionID
	}
	if us.IsActive != nil {
		s.IsActive = *us.IsActive
	}

	ns := NewStudent{
		AdmissionNo:    s.AdmissionNo,
		FirstName:      s.FirstName,
		LastName:       s.LastName,
		Email:          s.Email,
		DateOfBirth:    s.DateOfBirth,
		Gender:         s.Gender,
		ClassSectionID: s.ClassSectionID,
		AdmittedOn:     s.AdmittedOn,
	}
	if err := validate.Struct(ns); err != nil {
		return Student{}, err
	}
	s.UpdatedAt = time.Now().UTC()
	return s, nil
}

type QueryFilter struct {
	Search         string    `query:"search"`
	ClassSectionID string    `query:"class_section_id"`
	Gender         string    `query:"gender"`
	IsActive       *bool     `query:"is_active"`
	AdmittedFrom   core.Date `query:"admitted_from"`
	AdmittedTo     core.Date `query:"admitted_to"`
}

func (f *QueryFilter) Clean() {
	f.Search = core.CleanString(f.Search, true /* lower */)
	f.Gender = core.CleanString(f.Gender, true /* lower */)
}

// Match applies the filter in memory; AdmittedTo is inclusive.
func (f *QueryFilter) Match(s Student) bool {
	if f.Search != "" {
		hay := strings.ToLower(s.FirstName + " " + s.LastName + " " + s.AdmissionNo + " " + s.Email)
		if !strings.Contains(hay, f.Search) {
			return false
		}
	}
	if f.ClassSectionID != "" && s.ClassSectionID != f.ClassSectionID {
		return false
	}
	if f.Gender != "" && s.Gender != f.Gender {
		return false
	}
	if f.IsActive != nil && s.IsActive != *f.IsActive {
		return false
	}
	if !f.AdmittedFrom.IsZero() && s.AdmittedOn.Before(f.AdmittedFrom) {
		return false
	}
	if !f.AdmittedTo.IsZero() && s.AdmittedOn.After(f.AdmittedTo) {
		return false
	}
	return true
}

const (
	RelationFather   = "father"
	RelationMother   = "mother"
	RelationGuardian = "guardian"
)

// ParentAssociation links a student to a parent user account.
type ParentAssociation struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	BranchID     string    `json:"branch_id"`
	StudentID    string    `json:"student_id"`
	ParentUserID string    `json:"parent_user_id"`
	Relation     string    `json:"relation"`
	IsPrimary    bool      `json:"is_primary"`
	CreatedAt    time.Time `json:"created_at"`
}

type NewParentAssociation struct {
	ParentUserID string `json:"parent_user_id" validate:"required,uuid"`
	Relation     string `json:"relation" validate:"required,oneof=father mother guardian"`
	IsPrimary    bool   `json:"is_primary"`
}

func (np *NewParentAssociation) Validate(validate *validator.Validate) error {
	np.Relation = core.CleanString(np.Relation, true /* lower */)
	return validate.Struct(np)
}
