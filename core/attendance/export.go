package attendance

import (
	"context"
	"io"
	"sort"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
)

const exportSheet = "Attendance"

var exportHeader = []interface{}{"Date", "Admission No", "Student", "Status", "Remarks"}

// Export writes the records matching filter as an xlsx workbook, one row per record
// ordered by date then student name, followed by a per status summary.
func (svc *Service) Export(ctx context.Context, scope core.Scope, filter QueryFilter, w io.Writer) error {
	records, err := svc.Query(ctx, scope, filter)
	if err != nil {
		return err
	}
	students, err := svc.classStudents(ctx, scope, filter.ClassSectionID)
	if err != nil {
		return err
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		return students[records[i].StudentID].FullName() < students[records[j].StudentID].FullName()
	})
	return WriteXLSX(w, records, students)
}

// WriteXLSX renders records; students resolves names, missing ones are left blank.
func WriteXLSX(w io.Writer, records []Record, students map[string]student.Student) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}

	row := 2
	for _, r := range records {
		s := students[r.StudentID]
		cell, _ := excelize.CoordinatesToCellName(1, row)
		vals := []interface{}{r.Date.String(), s.AdmissionNo, s.FullName(), r.Status, r.Remarks}
		if err := f.SetSheetRow(exportSheet, cell, &vals); err != nil {
			return errors.Wrapf(err, "writing row %d", row)
		}
		row++
	}

	row++
	summary := Summarize(records)
	for _, st := range Statuses {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		vals := []interface{}{st, summary[st]}
		if err := f.SetSheetRow(exportSheet, cell, &vals); err != nil {
			return errors.Wrap(err, "writing summary")
		}
		row++
	}

	_, err := f.WriteTo(w)
	return errors.Wrap(err, "writing workbook")
}
