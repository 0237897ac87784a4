package schedule

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

// Period is a slot of the school day, times formatted as HH:MM.
type Period struct {
	Name  string `json:"name" validate:"required,max=50"`
	Start string `json:"start" validate:"required,clock"`
	End   string `json:"end" validate:"required,clock"`
}

type TimingTemplate struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	BranchID  string    `json:"branch_id"`
	Name      string    `json:"name"`
	Periods   []Period  `json:"periods"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NewTimingTemplate struct {
	Name    string   `json:"name" validate:"required,max=100"`
	Periods []Period `json:"periods" validate:"required,min=1,dive"`
}

func (nt *NewTimingTemplate) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	for i := range nt.Periods {
		nt.Periods[i].Name = core.CleanString(nt.Periods[i].Name)
		nt.Periods[i].Start = core.CleanString(nt.Periods[i].Start)
		nt.Periods[i].End = core.CleanString(nt.Periods[i].End)
	}
	return validate.Struct(nt)
}

type PublicHoliday struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	BranchID       string    `json:"branch_id"`
	AcademicYearID string    `json:"academic_year_id"`
	Name           string    `json:"name"`
	Date           core.Date `json:"date"`
	CreatedAt      time.Time `json:"created_at"`
}

type NewPublicHoliday struct {
	AcademicYearID string    `json:"academic_year_id" validate:"required,uuid"`
	Name           string    `json:"name" validate:"required,max=100"`
	Date           core.Date `json:"date" validate:"required"`
}

func (nh *NewPublicHoliday) Validate(validate *validator.Validate) error {
	nh.Name = core.CleanString(nh.Name)
	return validate.Struct(nh)
}

type Vacation struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	BranchID       string    `json:"branch_id"`
	AcademicYearID string    `json:"academic_year_id"`
	Name           string    `json:"name"`
	StartDate      core.Date `json:"start_date"`
	EndDate        core.Date `json:"end_date"`
	CreatedAt      time.Time `json:"created_at"`
}

func (v Vacation) Contains(d core.Date) bool {
	return d.Between(v.StartDate, v.EndDate)
}

type NewVacation struct {
	AcademicYearID string    `json:"academic_year_id" validate:"required,uuid"`
	Name           string    `json:"name" validate:"required,max=100"`
	StartDate      core.Date `json:"start_date" validate:"required"`
	EndDate        core.Date `json:"end_date" validate:"required"`
}

func (nv *NewVacation) Validate(validate *validator.Validate) error {
	nv.Name = core.CleanString(nv.Name)
	return validate.Struct(nv)
}

// ClosedDay explains why the school is closed on a date.
type ClosedDay struct {
	Date   core.Date `json:"date"`
	Reason string    `json:"reason"`
}
