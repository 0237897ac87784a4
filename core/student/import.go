package student

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
)

var (
	ErrEmptySheet    = errors.New("the spreadsheet has no data rows")
	ErrMissingColumn = errors.New("missing required column")

	importColumns = []string{
		"admission_no", "first_name", "last_name", "email",
		"date_of_birth", "gender", "class", "section", "admitted_on",
	}
	requiredImportColumns = []string{"admission_no", "first_name", "last_name", "date_of_birth", "gender"}
)

// ImportRow is a spreadsheet row; Row is 1-based as displayed by spreadsheet apps.
type ImportRow struct {
	Row         int
	ClassName   string
	SectionName string
	Student     NewStudent
}

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportReport struct {
	Created []Student  `json:"created"`
	Errors  []RowError `json:"errors"`
}

// ParseXLSX reads students from the first sheet of an xlsx workbook.
// The first row holds the column names (see ImportColumns); unparsable rows are reported, not fatal.
func ParseXLSX(r io.Reader) ([]ImportRow, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, ErrEmptySheet
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading rows")
	}
	if len(rows) < 2 {
		return nil, nil, ErrEmptySheet
	}

	cols := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		cols[strings.ToLower(core.CleanString(name))] = i
	}
	for _, name := range requiredImportColumns {
		if _, ok := cols[name]; !ok {
			return nil, nil, errors.Wrap(ErrMissingColumn, name)
		}
	}
	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	parsed := make([]ImportRow, 0, len(rows)-1)
	var rowErrs []RowError
	for i, row := range rows[1:] {
		rowNum := i + 2
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}

		dob, err := parseCellDate(cell(row, "date_of_birth"))
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: rowNum, Message: "date_of_birth: " + err.Error()})
			continue
		}
		var admitted core.Date
		if v := cell(row, "admitted_on"); v != "" {
			if admitted, err = parseCellDate(v); err != nil {
				rowErrs = append(rowErrs, RowError{Row: rowNum, Message: "admitted_on: " + err.Error()})
				continue
			}
		}

		parsed = append(parsed, ImportRow{
			Row:         rowNum,
			ClassName:   cell(row, "class"),
			SectionName: cell(row, "section"),
			Student: NewStudent{
				AdmissionNo: cell(row, "admission_no"),
				FirstName:   cell(row, "first_name"),
				LastName:    cell(row, "last_name"),
				Email:       cell(row, "email"),
				DateOfBirth: dob,
				Gender:      cell(row, "gender"),
				AdmittedOn:  admitted,
			},
		})
	}
	return parsed, rowErrs, nil
}

// ImportColumns lists the recognised header names, in template order.
func ImportColumns() []string {
	return append([]string(nil), importColumns...)
}

// parseCellDate accepts ISO dates and raw spreadsheet date serials.
func parseCellDate(v string) (core.Date, error) {
	if v == "" {
		return core.Date{}, errors.New("this field is required")
	}
	if d, err := core.ParseDate(v); err == nil {
		return d, nil
	}
	serial, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid date %q", v)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid date %q", v)
	}
	return core.DateOf(t), nil
}

// ClassSectionQuerier resolves the class & section names of imported rows.
type ClassSectionQuerier interface {
	QueryClassSections(ctx context.Context, scope core.Scope, filter academic.ClassSectionFilter) ([]academic.ClassSection, error)
}

// Import creates the students of rows, best effort: a failing row is reported and skipped.
func (svc *Service) Import(ctx context.Context, scope core.Scope, rows []ImportRow, validate *validator.Validate, translator ut.Translator, classes ClassSectionQuerier) (ImportReport, error) {
	if err := core.RequireBranch(scope); err != nil {
		return ImportReport{}, err
	}
	css, err := classes.QueryClassSections(ctx, scope, academic.ClassSectionFilter{})
	if err != nil {
		return ImportReport{}, errors.Wrap(err, "querying class sections")
	}
	sectionIDs := make(map[string]string, len(css))
	for _, cs := range css {
		sectionIDs[classKey(cs.ClassName, cs.SectionName)] = cs.ID
	}

	report := ImportReport{Created: make([]Student, 0, len(rows)), Errors: make([]RowError, 0)}
	seen := make(map[string]int, len(rows))
	now := time.Now().UTC()

	for _, row := range rows {
		ns := row.Student
		fail := func(msg string) {
			report.Errors = append(report.Errors, RowError{Row: row.Row, Message: msg})
		}

		if row.ClassName != "" || row.SectionName != "" {
			id, ok := sectionIDs[classKey(row.ClassName, row.SectionName)]
			if !ok {
				fail(fmt.Sprintf("unknown class section %q - %q", row.ClassName, row.SectionName))
				continue
			}
			ns.ClassSectionID = id
		}

		if err := ns.Validate(validate); err != nil {
			fail(describeValidation(err, translator))
			continue
		}
		if prev, dup := seen[strings.ToLower(ns.AdmissionNo)]; dup {
			fail(fmt.Sprintf("admission_no: duplicate of row %d", prev))
			continue
		}
		if err := svc.checkAdmissionNo(ctx, scope, ns.AdmissionNo, ""); err != nil {
			fail(describeValidation(err, translator))
			continue
		}
		seen[strings.ToLower(ns.AdmissionNo)] = row.Row

		created, err := svc.repo.CreateStudents(ctx, newStudent(scope, ns, now))
		if err != nil {
			fail(errors.Cause(err).Error())
			continue
		}
		report.Created = append(report.Created, created...)
	}
	return report, nil
}

func classKey(class, section string) string {
	return strings.ToLower(core.CleanString(class)) + "\x00" + strings.ToLower(core.CleanString(section))
}

// describeValidation flattens validation errors to "field: message; ...".
func describeValidation(err error, translator ut.Translator) string {
	var parts []string
	switch e := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		for _, fe := range e {
			parts = append(parts, fe.Field()+": "+fe.Translate(translator))
		}
	case *core.ValidationError:
		for _, fe := range e.Fields {
			parts = append(parts, fe.Field+": "+fe.Error)
		}
	}
	if len(parts) == 0 {
		return err.Error()
	}
	return strings.Join(parts, "; ")
}
