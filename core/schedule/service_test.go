package schedule_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/schedule"
	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/core/validation"
	"github.com/trezcool/shule/storage/database/inmem"
	"github.com/trezcool/shule/tests"
)

func setup(t *testing.T) (*schedule.Service, *academic.Service, core.Scope) {
	db := inmemdb.Open()
	years := academic.NewService(inmemdb.NewAcademicRepository(db))
	tnt, branch := testutil.CreateTenant(t, tenant.NewService(inmemdb.NewTenantRepository(db)), "Lycee Wima", "wima")
	return schedule.NewService(inmemdb.NewScheduleRepository(db), years), years, core.Scope{TenantID: tnt.ID, BranchID: branch.ID}
}

func TestPeriodsOrdered(t *testing.T) {
	tests := []struct {
		name    string
		periods []schedule.Period
		want    bool
	}{
		{name: "empty", want: true},
		{name: "single", periods: []schedule.Period{{Start: "08:00", End: "08:45"}}, want: true},
		{name: "end before start", periods: []schedule.Period{{Start: "08:45", End: "08:00"}}},
		{name: "zero length", periods: []schedule.Period{{Start: "08:00", End: "08:00"}}},
		{
			name:    "back to back",
			periods: []schedule.Period{{Start: "08:00", End: "08:45"}, {Start: "08:45", End: "09:30"}},
			want:    true,
		},
		{
			name:    "overlapping",
			periods: []schedule.Period{{Start: "08:00", End: "08:45"}, {Start: "08:30", End: "09:15"}},
		},
		{
			name:    "unordered",
			periods: []schedule.Period{{Start: "10:00", End: "10:45"}, {Start: "08:00", End: "08:45"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, schedule.PeriodsOrdered(tt.periods))
		})
	}
}

func TestNewTimingTemplate_Validate(t *testing.T) {
	validate, translator := validation.New()

	nt := schedule.NewTimingTemplate{
		Name: "  Morning ",
		Periods: []schedule.Period{
			{Name: "First", Start: "08:00", End: "08:45"},
			{Name: "Second", Start: "08:30", End: "09:15"},
		},
	}
	err := nt.Validate(validate)
	require.Error(t, err)
	verrs, ok := err.(validator.ValidationErrors)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"periods": "periods must be ordered and must not overlap"}, core.TranslateErrors(verrs, translator))
	assert.Equal(t, "Morning", nt.Name)

	nt.Periods[1] = schedule.Period{Name: "Second", Start: "08:50", End: "25:00"}
	err = nt.Validate(validate)
	require.Error(t, err)
	verrs, ok = err.(validator.ValidationErrors)
	require.True(t, ok)
	assert.Contains(t, core.TranslateErrors(verrs, translator), "end")

	nt.Periods[1].End = "09:35"
	assert.NoError(t, nt.Validate(validate))
}

func TestService_holidays(t *testing.T) {
	svc, years, scope := setup(t)
	ctx := context.Background()

	y, err := years.CreateYear(ctx, scope, academic.NewAcademicYear{
		Name: "2024-2025", StartDate: core.NewDate(2024, 9, 2), EndDate: core.NewDate(2025, 7, 4),
	})
	require.NoError(t, err)

	t.Run("unknown year", func(t *testing.T) {
		_, err := svc.CreateHoliday(ctx, scope, schedule.NewPublicHoliday{AcademicYearID: core.NewID(), Name: "Lol", Date: core.NewDate(2024, 12, 25)})
		verr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok, "%v", err)
		assert.Equal(t, "academic_year_id", verr.Fields[0].Field)
	})

	t.Run("outside the year", func(t *testing.T) {
		_, err := svc.CreateHoliday(ctx, scope, schedule.NewPublicHoliday{AcademicYearID: y.ID, Name: "Lol", Date: core.NewDate(2025, 8, 1)})
		verr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok, "%v", err)
		assert.Equal(t, schedule.ErrOutsideYear, verr.Err)
		assert.Equal(t, "date", verr.Fields[0].Field)
	})

	t.Run("vacation ending after the year", func(t *testing.T) {
		_, err := svc.CreateVacation(ctx, scope, schedule.NewVacation{
			AcademicYearID: y.ID, Name: "Summer", StartDate: core.NewDate(2025, 7, 1), EndDate: core.NewDate(2025, 8, 31),
		})
		verr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok, "%v", err)
		assert.Equal(t, "end_date", verr.Fields[0].Field)
	})

	xmas, err := svc.CreateHoliday(ctx, scope, schedule.NewPublicHoliday{AcademicYearID: y.ID, Name: "Christmas", Date: core.NewDate(2024, 12, 25)})
	require.NoError(t, err)
	assert.Equal(t, scope.BranchID, xmas.BranchID)
	_, err = svc.CreateHoliday(ctx, scope, schedule.NewPublicHoliday{AcademicYearID: y.ID, Name: "Heroes", Date: core.NewDate(2025, 1, 17)})
	require.NoError(t, err)
	winter, err := svc.CreateVacation(ctx, scope, schedule.NewVacation{
		AcademicYearID: y.ID, Name: "Winter break", StartDate: core.NewDate(2024, 12, 23), EndDate: core.NewDate(2024, 12, 27),
	})
	require.NoError(t, err)

	t.Run("closed on", func(t *testing.T) {
		tests := []struct {
			date       core.Date
			wantClosed bool
			wantReason string
		}{
			{date: core.NewDate(2024, 12, 25), wantClosed: true, wantReason: "Christmas"},
			{date: core.NewDate(2024, 12, 23), wantClosed: true, wantReason: "Winter break"},
			{date: core.NewDate(2024, 12, 27), wantClosed: true, wantReason: "Winter break"},
			{date: core.NewDate(2024, 12, 28)},
			{date: core.NewDate(2025, 1, 17), wantClosed: true, wantReason: "Heroes"},
		}
		for _, tt := range tests {
			day, closed, err := svc.ClosedOn(ctx, scope, tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.wantClosed, closed, tt.date.String())
			assert.Equal(t, tt.wantReason, day.Reason, tt.date.String())
		}
	})

	t.Run("closed days", func(t *testing.T) {
		days, err := svc.ClosedDays(ctx, scope, y.ID)
		require.NoError(t, err)
		got := make([]string, 0, len(days))
		for _, d := range days {
			got = append(got, d.Date.String()+" "+d.Reason)
		}
		assert.Equal(t, []string{
			"2024-12-23 Winter break",
			"2024-12-24 Winter break",
			"2024-12-25 Christmas",
			"2024-12-26 Winter break",
			"2024-12-27 Winter break",
			"2025-01-17 Heroes",
		}, got)
	})

	t.Run("delete", func(t *testing.T) {
		h, err := svc.CreateHoliday(ctx, scope, schedule.NewPublicHoliday{AcademicYearID: y.ID, Name: "Lol", Date: core.NewDate(2025, 2, 1)})
		require.NoError(t, err)
		require.NoError(t, svc.DeleteHoliday(ctx, scope, h.ID))
		assert.True(t, core.IsNotFound(svc.DeleteHoliday(ctx, scope, h.ID)))
		assert.True(t, core.IsNotFound(svc.DeleteVacation(ctx, scope, core.NewID())))
	})

	t.Run("locked year", func(t *testing.T) {
		_, err := years.LockYear(ctx, scope, y.ID)
		require.NoError(t, err)

		isLocked := func(err error) {
			t.Helper()
			cerr, ok := errors.Cause(err).(*core.ConflictError)
			require.True(t, ok, "%v", err)
			assert.Equal(t, academic.ErrYearLocked, cerr.Err)
		}
		_, err = svc.CreateHoliday(ctx, scope, schedule.NewPublicHoliday{AcademicYearID: y.ID, Name: "Lol", Date: core.NewDate(2025, 2, 1)})
		isLocked(err)
		isLocked(svc.DeleteHoliday(ctx, scope, xmas.ID))
		isLocked(svc.DeleteVacation(ctx, scope, winter.ID))

		days, err := svc.ClosedDays(ctx, scope, y.ID)
		require.NoError(t, err)
		assert.Len(t, days, 6, "nothing was deleted")
	})
}

func TestService_timingTemplates(t *testing.T) {
	svc, _, scope := setup(t)
	ctx := context.Background()

	_, err := svc.CreateTimingTemplate(ctx, core.Scope{TenantID: scope.TenantID}, schedule.NewTimingTemplate{Name: "Lol"})
	assert.Error(t, err, "a branch is required")

	tmpl, err := svc.CreateTimingTemplate(ctx, scope, schedule.NewTimingTemplate{
		Name:    "Morning",
		Periods: []schedule.Period{{Name: "First", Start: "08:00", End: "08:45"}},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateTimingTemplate(ctx, tmpl, schedule.NewTimingTemplate{
		Name:    "Morning shift",
		Periods: []schedule.Period{{Name: "First", Start: "07:30", End: "08:15"}, {Name: "Second", Start: "08:15", End: "09:00"}},
	})
	require.NoError(t, err)
	assert.Len(t, updated.Periods, 2)

	all, err := svc.QueryTimingTemplates(ctx, scope)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Morning shift", all[0].Name)

	require.NoError(t, svc.DeleteTimingTemplate(ctx, scope, tmpl.ID))
	_, err = svc.GetTimingTemplate(ctx, scope, tmpl.ID)
	assert.True(t, core.IsNotFound(err))
}
