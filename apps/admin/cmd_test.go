package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/shule/apps/api/di"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/core/validation"
	"github.com/trezcool/shule/services/email"
	"github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/cache"
	"github.com/trezcool/shule/storage/database/inmem"
	"github.com/trezcool/shule/tests"
)

var (
	repos di.Repos
	svcs  di.Services
)

func setup(t *testing.T) *commandLine {
	conf := core.NewTestConfig()
	repos = di.MemoryRepos(inmemdb.Open())
	svcs = di.NewServices(conf, repos, cache.NewMemory(), emailsvc.NewConsoleServiceMock(conf), logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf))
	validate, translator := validation.New()

	// start CLI
	return &commandLine{
		db:          new(sql.DB),
		tenantSvc:   svcs.Tenants,
		usrSvc:      svcs.Users,
		studentSvc:  svcs.Students,
		academicSvc: svcs.Academic,
		validate:    validate,
		translator:  translator,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

type pwdExtra struct {
	pwd string
}

func mockPassword(tt cliTest) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		if extra, ok := tt.extra.(pwdExtra); ok {
			return []byte(extra.pwd), nil
		}
		return nil, nil
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	migrateFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	t.Run("in-memory database", func(t *testing.T) {
		cli.db = nil
		assert.Equal(t, errNoDatabase, cli.run([]string{"admin", "migrate", "up"}))
	})
}

func Test_commandLine_createSchool(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no args", args: []string{"createschool"}, wantErr: errHelp},
		{name: "slug required", args: []string{"createschool", "-name", "Lycee Wima"}, wantErr: errHelp},
		{name: "invalid color", args: []string{"createschool", "-name", "Lycee Wima", "-slug", "wima", "-color", "red"}, wantErrStr: "primary_color: primary_color must be a valid HEX color"},
		{name: "created", args: []string{"createschool", "-name", "Lycee Wima", "-slug", "WIMA", "-branch", "Kinshasa"}},
		{name: "slug taken", args: []string{"createschool", "-name", "Wima 2", "-slug", "wima"}, wantErrStr: "a school with this slug already exists"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	tnt, err := svcs.Tenants.GetBySlug(context.Background(), "wima")
	require.NoError(t, err)
	assert.Equal(t, "Lycee Wima", tnt.Name)
	branches, err := svcs.Tenants.Branches(context.Background(), tnt.ID)
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.Equal(t, "Kinshasa", branches[0].Name)
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	tnt, _ := testutil.CreateTenant(t, svcs.Tenants, "Lycee Wima", "wima")
	other, _ := testutil.CreateTenant(t, svcs.Tenants, "Lycee Bosembo", "bosembo")
	testutil.CreateUser(t, repos.Users, core.Scope{TenantID: other.ID}, "Zoe", "zoe", "zoe@test.cd", "", nil, true)

	pwd := pwdExtra{pwd: "Xk7#pLm2qz"}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "email required", args: []string{"adduser", "-school", "wima", "-username", "awe"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-school", "wima", "-username", "awe", "-email", "awe@test.cd"}, wantErr: errHelp},
		{name: "unknown school", args: []string{"adduser", "-school", "lol", "-username", "awe", "-email", "awe@test.cd"}, extra: pwd, wantErr: core.ErrNotFound},
		{name: "weak password", args: []string{"adduser", "-school", "wima", "-username", "awe", "-email", "awe@test.cd"}, extra: pwdExtra{pwd: "12345678"}, wantErrStr: "password: password cannot be entirely numeric"},
		{name: "another school's user", args: []string{"adduser", "-school", "wima", "-username", "zoe", "-email", "zoe@test.cd"}, extra: pwd, wantErrStr: "user \"zoe\" belongs to another school"},
		{name: "created", args: []string{"adduser", "-school", "wima", "-username", "Awe", "-email", "Awe@test.cd", "-name", "Awe Mwana"}, extra: pwd},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		mockPassword(tt)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	usr, err := svcs.Users.GetByUsernameOrEmail(context.Background(), "awe@test.cd")
	require.NoError(t, err)
	assert.Equal(t, tnt.ID, usr.TenantID)
	assert.Empty(t, usr.BranchID)
	assert.Equal(t, "Awe Mwana", usr.Name)
	assert.Equal(t, "awe", usr.Username)
	assert.NoError(t, usr.CheckPassword("Xk7#pLm2qz"))
	assert.False(t, usr.IsAdmin())

	t.Run("existing user becomes admin", func(t *testing.T) {
		mockPassword(cliTest{extra: pwdExtra{pwd: "Qw9!rTz5vb"}})
		require.NoError(t, cli.run([]string{"admin", "adduser", "-school", "wima", "-username", "awe", "-email", "awe@test.cd", "-admin"}))

		updated, err := svcs.Users.GetByID(context.Background(), usr.ID)
		require.NoError(t, err)
		assert.True(t, updated.IsAdmin())
		assert.True(t, updated.IsActive)
		assert.Equal(t, "awe", updated.Name)
		assert.NoError(t, updated.CheckPassword("Qw9!rTz5vb"))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	tnt, _ := testutil.CreateTenant(t, svcs.Tenants, "Lycee Wima", "wima")
	usr := testutil.CreateUser(t, repos.Users, core.Scope{TenantID: tnt.ID}, "User", "awe", "awe@test.cd", "mdr", nil, true)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: pwdExtra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: pwdExtra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: pwdExtra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		mockPassword(tt)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			tt.check(t, err)
			if err == nil {
				refreshedUsr, err := svcs.Users.GetByID(context.Background(), usr.ID)
				require.NoError(t, err)
				assert.False(t, bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash), "failed to update new password")
			}
		})
	}
}

func writeWorkbook(t *testing.T, rows ...[]interface{}) string {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(t.TempDir(), "students.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func Test_commandLine_importStudents(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()
	tnt, mainBranch := testutil.CreateTenant(t, svcs.Tenants, "Lycee Wima", "wima")
	annex, err := svcs.Tenants.AddBranch(ctx, tnt.ID, "Annex")
	require.NoError(t, err)
	_, err = svcs.Academic.CreateClassSection(ctx, core.Scope{TenantID: tnt.ID, BranchID: annex.ID}, academic.NewClassSection{ClassName: "Grade 3", SectionName: "A"})
	require.NoError(t, err)

	file := writeWorkbook(t,
		[]interface{}{"admission_no", "first_name", "last_name", "date_of_birth", "gender", "class", "section"},
		[]interface{}{"A-001", "Amani", "Kabila", "2015-01-01", "male", "Grade 3", "A"},
		[]interface{}{"A-002", "Neema", "Kabila", "2015-02-01", "female"},
		[]interface{}{"A-003", "Baraka", "Kabila", "lol", "male"},
	)

	tests := []cliTest{
		{name: "no args", args: []string{"importstudents"}, wantErr: errHelp},
		{name: "file required", args: []string{"importstudents", "-school", "wima"}, wantErr: errHelp},
		{name: "unknown school", args: []string{"importstudents", "-school", "lol", "-file", file}, wantErr: core.ErrNotFound},
		{name: "unknown branch", args: []string{"importstudents", "-school", "wima", "-branch", "lol", "-file", file}, wantErr: errUnknownBranch},
		{name: "imported", args: []string{"importstudents", "-school", "wima", "-branch", "annex", "-file", file}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	paged, err := svcs.Students.Query(ctx, core.Scope{TenantID: tnt.ID, BranchID: annex.ID}, student.QueryFilter{}, nil, core.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 2, paged.Total, "the row with an invalid date is skipped")

	paged, err = svcs.Students.Query(ctx, core.Scope{TenantID: tnt.ID, BranchID: mainBranch.ID}, student.QueryFilter{}, nil, core.Pagination{})
	require.NoError(t, err)
	assert.Zero(t, paged.Total)
}
