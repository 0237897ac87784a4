package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
	StatusExcused = "excused"
)

var Statuses = []string{StatusPresent, StatusAbsent, StatusLate, StatusExcused}

// Record is the attendance of one student on one date.
type Record struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenant_id"`
	BranchID       string     `json:"branch_id"`
	StudentID      string     `json:"student_id"`
	ClassSectionID string     `json:"class_section_id"`
	Date           core.Date  `json:"date"`
	Status         string     `json:"status"`
	Remarks        string     `json:"remarks,omitempty"`
	MarkedBy       string     `json:"marked_by,omitempty"`
	NotifiedAt     *time.Time `json:"notified_at,omitempty"` // parents were told of an absence
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type Mark struct {
	StudentID string `json:"student_id" validate:"required,uuid"`
	Status    string `json:"status" validate:"required,oneof=present absent late excused"`
	Remarks   string `json:"remarks" validate:"max=255"`
}

// BulkMark records a whole class for a date.
type BulkMark struct {
	ClassSectionID string    `json:"class_section_id" validate:"required,uuid"`
	Date           core.Date `json:"date" validate:"required"`
	Marks          []Mark    `json:"marks" validate:"required,min=1,dive"`
}

func (bm *BulkMark) Validate(validate *validator.Validate) error {
	for i := range bm.Marks {
		bm.Marks[i].Status = core.CleanString(bm.Marks[i].Status, true /* lower */)
		bm.Marks[i].Remarks = core.CleanString(bm.Marks[i].Remarks)
	}
	return validate.Struct(bm)
}

type QueryFilter struct {
	ClassSectionID string    `query:"class_section_id"`
	StudentID      string    `query:"student_id"`
	Status         string    `query:"status"`
	From           core.Date `query:"from"`
	To             core.Date `query:"to"`
}

func (f *QueryFilter) Clean() {
	f.Status = core.CleanString(f.Status, true /* lower */)
}

// Match applies the filter in memory; both bounds are inclusive.
func (f *QueryFilter) Match(r Record) bool {
	if f.ClassSectionID != "" && r.ClassSectionID != f.ClassSectionID {
		return false
	}
	if f.StudentID != "" && r.StudentID != f.StudentID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && r.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && r.Date.After(f.To) {
		return false
	}
	return true
}

// Summary counts records per status.
type Summary map[string]int

func Summarize(records []Record) Summary {
	s := make(Summary, len(Statuses))
	for _, st := range Statuses {
		s[st] = 0
	}
	for _, r := range records {
		s[r.Status]++
	}
	return s
}
