package academic

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

type AcademicYear struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	BranchID  string    `json:"branch_id"`
	Name      string    `json:"name"`
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"`
	IsActive  bool      `json:"is_active"`
	IsLocked  bool      `json:"is_locked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Contains reports whether d falls within the year.
func (y AcademicYear) Contains(d core.Date) bool {
	return d.Between(y.StartDate, y.EndDate)
}

type NewAcademicYear struct {
	Name      string    `json:"name" validate:"required,max=50"`
	StartDate core.Date `json:"start_date" validate:"required"`
	EndDate   core.Date `json:"end_date" validate:"required"`
}

func (ny *NewAcademicYear) Validate(validate *validator.Validate) error {
	ny.Name = core.CleanString(ny.Name)
	return validate.Struct(ny)
}

type UpdateAcademicYear struct {
	Name      string    `json:"name" validate:"omitempty,max=50"`
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"`
}

func (uy *UpdateAcademicYear) Validate(orig AcademicYear, validate *validator.Validate) error {
	if name := core.CleanString(uy.Name); name != "" {
		uy.Name = name
	} else {
		uy.Name = orig.Name
	}
	if uy.StartDate.IsZero() {
		uy.StartDate = orig.StartDate
	}
	if uy.EndDate.IsZero() {
		uy.EndDate = orig.EndDate
	}
	return validate.Struct(uy)
}

type ClassSection struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	BranchID       string    `json:"branch_id"`
	ClassName      string    `json:"class_name"`
	SectionName    string    `json:"section_name"`
	Capacity       int       `json:"capacity"`
	ClassTeacherID string    `json:"class_teacher_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Label renders the class-section as "Grade 10 - A".
func (cs ClassSection) Label() string {
	return cs.ClassName + " - " + cs.SectionName
}

type NewClassSection struct {
	ClassName      string `json:"class_name" validate:"required,max=50"`
	SectionName    string `json:"section_name" validate:"required,max=20"`
	Capacity       int    `json:"capacity" validate:"gte=0,lte=500"`
	ClassTeacherID string `json:"class_teacher_id" validate:"omitempty,uuid"`
}

func (nc *NewClassSection) Validate(validate *validator.Validate) error {
	nc.ClassName = core.CleanString(nc.ClassName)
	nc.SectionName = core.CleanString(nc.SectionName)
	return validate.Struct(nc)
}

type UpdateClassSection struct {
	Capacity       *int    `json:"capacity" validate:"omitempty,gte=0,lte=500"`
	ClassTeacherID *string `json:"class_teacher_id" validate:"omitempty,uuid"`
}

func (uc *UpdateClassSection) Validate(validate *validator.Validate) error {
	return validate.Struct(uc)
}

// BulkClassSections asks for every classes x sections combination.
type BulkClassSections struct {
	Classes  []string `json:"classes" validate:"required,min=1,dive,required,max=50"`
	Sections []string `json:"sections" validate:"required,min=1,dive,required,max=20"`
	Capacity int      `json:"capacity" validate:"gte=0,lte=500"`
}

func (bc *BulkClassSections) Validate(validate *validator.Validate) error {
	for i := range bc.Classes {
		bc.Classes[i] = core.CleanString(bc.Classes[i])
	}
	for i := range bc.Sections {
		bc.Sections[i] = core.CleanString(bc.Sections[i])
	}
	return validate.Struct(bc)
}

type ClassSectionFilter struct {
	Search    string `query:"search"`
	ClassName string `query:"class_name"`
}

func (f *ClassSectionFilter) Clean() {
	f.Search = core.CleanString(f.Search)
	f.ClassName = core.CleanString(f.ClassName)
}
