package student_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/core/validation"
	"github.com/trezcool/shule/storage/database/inmem"
	"github.com/trezcool/shule/tests"
)

type testEnv struct {
	svc      *student.Service
	academic *academic.Service
	users    user.Repository
	scope    core.Scope
}

func setup(t *testing.T) testEnv {
	db := inmemdb.Open()
	users := inmemdb.NewUserRepository(db)
	tnt, branch := testutil.CreateTenant(t, tenant.NewService(inmemdb.NewTenantRepository(db)), "Lycee Wima", "wima")
	return testEnv{
		svc:      student.NewService(inmemdb.NewStudentRepository(db), user.NewService(users, nil, core.NewTestConfig())),
		academic: academic.NewService(inmemdb.NewAcademicRepository(db)),
		users:    users,
		scope:    core.Scope{TenantID: tnt.ID, BranchID: branch.ID},
	}
}

func fieldOf(t *testing.T, err error) string {
	verr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "%v", err)
	require.NotEmpty(t, verr.Fields)
	return verr.Fields[0].Field
}

func TestService_Create(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	ns := student.NewStudent{
		AdmissionNo: "A-001", FirstName: "Amani", LastName: "Kabila", Gender: student.GenderMale,
		DateOfBirth: core.NewDate(2015, 1, 1), AdmittedOn: core.NewDate(2024, 9, 2),
	}

	_, err := env.svc.Create(ctx, core.Scope{TenantID: env.scope.TenantID}, ns)
	assert.Equal(t, core.ErrBranchRequired, err)

	s, err := env.svc.Create(ctx, env.scope, ns)
	require.NoError(t, err)
	assert.True(t, s.IsActive)
	assert.Equal(t, env.scope.BranchID, s.BranchID)
	assert.Equal(t, "Amani Kabila", s.FullName())

	ns.AdmissionNo = "a-001"
	_, err = env.svc.Create(ctx, env.scope, ns)
	assert.Equal(t, "admission_no", fieldOf(t, err))

	// admission numbers are unique per branch
	other := core.Scope{TenantID: env.scope.TenantID, BranchID: core.NewID()}
	_, err = env.svc.Create(ctx, other, ns)
	assert.NoError(t, err)
}

func TestUpdateStudent_Apply(t *testing.T) {
	validate, _ := validation.New()
	orig := student.Student{
		ID: core.NewID(), AdmissionNo: "A-001", FirstName: "Amani", LastName: "Kabila", Gender: student.GenderMale,
		DateOfBirth: core.NewDate(2015, 1, 1), AdmittedOn: core.NewDate(2024, 9, 2), IsActive: true,
	}
	str := func(s string) *string { return &s }
	inactive := false

	got, err := (&student.UpdateStudent{FirstName: str("  Neema "), Gender: str("FEMALE"), IsActive: &inactive}).Apply(orig, validate)
	require.NoError(t, err)
	assert.Equal(t, "Neema", got.FirstName)
	assert.Equal(t, "Kabila", got.LastName)
	assert.Equal(t, student.GenderFemale, got.Gender)
	assert.False(t, got.IsActive)
	assert.Equal(t, "Amani", orig.FirstName)

	_, err = (&student.UpdateStudent{Gender: str("lol")}).Apply(orig, validate)
	assert.Error(t, err)

	late := core.NewDate(2025, 1, 1)
	_, err = (&student.UpdateStudent{DateOfBirth: &late}).Apply(orig, validate)
	assert.Error(t, err, "born after admission")
}

func TestService_AddParent(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	tenantWide := core.Scope{TenantID: env.scope.TenantID}

	s, err := env.svc.Create(ctx, env.scope, student.NewStudent{
		AdmissionNo: "A-001", FirstName: "Amani", LastName: "Kabila", Gender: student.GenderMale,
		DateOfBirth: core.NewDate(2015, 1, 1), AdmittedOn: core.NewDate(2024, 9, 2),
	})
	require.NoError(t, err)
	father := testutil.CreateUser(t, env.users, tenantWide, "Papa", "papa", "papa@test.cd", "", []string{user.RoleParent}, true)
	mother := testutil.CreateUser(t, env.users, tenantWide, "Mama", "mama", "mama@test.cd", "", []string{user.RoleParent}, true)
	teacher := testutil.CreateUser(t, env.users, env.scope, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	stranger := testutil.CreateUser(t, env.users, core.Scope{TenantID: core.NewID()}, "Stranger", "stranger", "stranger@test.cd", "", []string{user.RoleParent}, true)

	t.Run("errors", func(t *testing.T) {
		_, err := env.svc.AddParent(ctx, env.scope, core.NewID(), student.NewParentAssociation{ParentUserID: father.ID, Relation: student.RelationFather})
		assert.True(t, core.IsNotFound(err))

		_, err = env.svc.AddParent(ctx, env.scope, s.ID, student.NewParentAssociation{ParentUserID: teacher.ID, Relation: student.RelationFather})
		assert.Equal(t, "parent_user_id", fieldOf(t, err))

		_, err = env.svc.AddParent(ctx, env.scope, s.ID, student.NewParentAssociation{ParentUserID: stranger.ID, Relation: student.RelationFather})
		assert.Equal(t, "parent_user_id", fieldOf(t, err))
	})

	pa, err := env.svc.AddParent(ctx, env.scope, s.ID, student.NewParentAssociation{ParentUserID: father.ID, Relation: student.RelationFather})
	require.NoError(t, err)
	assert.True(t, pa.IsPrimary, "the first parent is primary")

	_, err = env.svc.AddParent(ctx, env.scope, s.ID, student.NewParentAssociation{ParentUserID: father.ID, Relation: student.RelationGuardian})
	assert.Equal(t, "parent_user_id", fieldOf(t, err))

	ma, err := env.svc.AddParent(ctx, env.scope, s.ID, student.NewParentAssociation{ParentUserID: mother.ID, Relation: student.RelationMother, IsPrimary: true})
	require.NoError(t, err)
	assert.True(t, ma.IsPrimary)

	parents, err := env.svc.Parents(ctx, env.scope, s.ID)
	require.NoError(t, err)
	require.Len(t, parents, 2)
	for _, p := range parents {
		assert.Equal(t, p.ParentUserID == mother.ID, p.IsPrimary, p.Relation)
	}

	require.NoError(t, env.svc.RemoveParent(ctx, env.scope, s.ID, pa.ID))
	parents, err = env.svc.Parents(ctx, env.scope, s.ID)
	require.NoError(t, err)
	assert.Len(t, parents, 1)
}

func newWorkbook(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseXLSX(t *testing.T) {
	t.Run("missing column", func(t *testing.T) {
		buf := newWorkbook(t,
			[]interface{}{"admission_no", "first_name", "last_name", "gender"},
			[]interface{}{"A-001", "Amani", "Kabila", "male"},
		)
		_, _, err := student.ParseXLSX(buf)
		assert.Equal(t, student.ErrMissingColumn, errors.Cause(err))
	})

	t.Run("no data rows", func(t *testing.T) {
		buf := newWorkbook(t, []interface{}{"admission_no", "first_name", "last_name", "date_of_birth", "gender"})
		_, _, err := student.ParseXLSX(buf)
		assert.Equal(t, student.ErrEmptySheet, err)
	})

	t.Run("rows", func(t *testing.T) {
		buf := newWorkbook(t,
			[]interface{}{"Admission_No", "First_Name", "Last_Name", "Date_Of_Birth", "Gender", "Class", "Section"},
			[]interface{}{"A-001", "Amani", "Kabila", "2015-01-01", "male", "Grade 3", "A"},
			[]interface{}{"A-002", "Neema", "Kabila", 42005, "female"},
			[]interface{}{},
			[]interface{}{"A-003", "Baraka", "Kabila", "lol", "male"},
		)
		rows, rowErrs, err := student.ParseXLSX(buf)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, 2, rows[0].Row)
		assert.Equal(t, "Grade 3", rows[0].ClassName)
		assert.Equal(t, "A", rows[0].SectionName)
		assert.Equal(t, core.NewDate(2015, 1, 1), rows[0].Student.DateOfBirth)
		assert.Equal(t, core.NewDate(2015, 1, 1), rows[1].Student.DateOfBirth, "date serial")
		assert.Equal(t, []student.RowError{{Row: 5, Message: `date_of_birth: invalid date "lol"`}}, rowErrs)
	})
}

func TestService_Import(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	validate, translator := validation.New()

	cs, err := env.academic.CreateClassSection(ctx, env.scope, academic.NewClassSection{ClassName: "Grade 3", SectionName: "A"})
	require.NoError(t, err)
	_, err = env.svc.Create(ctx, env.scope, student.NewStudent{
		AdmissionNo: "A-000", FirstName: "Old", LastName: "Timer", Gender: student.GenderMale,
		DateOfBirth: core.NewDate(2014, 1, 1), AdmittedOn: core.NewDate(2023, 9, 4),
	})
	require.NoError(t, err)

	row := func(n int, no, class string) student.ImportRow {
		section := "a"
		if class == "" {
			section = ""
		}
		return student.ImportRow{Row: n, ClassName: class, SectionName: section, Student: student.NewStudent{
			AdmissionNo: no, FirstName: "Amani", LastName: "Kabila", Gender: student.GenderMale,
			DateOfBirth: core.NewDate(2015, 1, 1), AdmittedOn: core.NewDate(2024, 9, 2),
		}}
	}
	badGender := row(6, "A-006", "grade 3")
	badGender.Student.Gender = "lol"

	report, err := env.svc.Import(ctx, env.scope, []student.ImportRow{
		row(2, "A-001", "grade 3"),
		row(3, "A-002", "Grade 9"),
		row(4, "a-001", "Grade 3"),
		row(5, "A-000", "Grade 3"),
		badGender,
		row(7, "A-007", ""),
	}, validate, translator, env.academic)
	require.NoError(t, err)

	require.Len(t, report.Created, 2)
	assert.Equal(t, cs.ID, report.Created[0].ClassSectionID, "class & section match case-insensitively")
	assert.Empty(t, report.Created[1].ClassSectionID)

	require.Len(t, report.Errors, 4)
	assert.Equal(t, student.RowError{Row: 3, Message: `unknown class section "Grade 9" - "a"`}, report.Errors[0])
	assert.Equal(t, student.RowError{Row: 4, Message: "admission_no: duplicate of row 2"}, report.Errors[1])
	assert.Equal(t, 5, report.Errors[2].Row)
	assert.Contains(t, report.Errors[2].Message, "admission_no: ")
	assert.Equal(t, 6, report.Errors[3].Row)
	assert.Contains(t, report.Errors[3].Message, "gender: ")

	_, err = env.svc.Import(ctx, core.Scope{TenantID: env.scope.TenantID}, nil, validate, translator, env.academic)
	assert.Equal(t, core.ErrBranchRequired, err)
}
