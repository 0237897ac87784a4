package inmemdb

import (
	"context"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/schedule"
)

type scheduleRepository struct {
	templates *table[schedule.TimingTemplate]
	holidays  *table[schedule.PublicHoliday]
	vacations *table[schedule.Vacation]
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *DB) *scheduleRepository {
	return &scheduleRepository{templates: db.timingTemplate, holidays: db.holiday, vacations: db.vacation}
}

func (repo *scheduleRepository) CreateTimingTemplate(_ context.Context, t schedule.TimingTemplate) (schedule.TimingTemplate, error) {
	repo.templates.put(t.ID, t)
	return t, nil
}

func templateInScope(scope core.Scope) func(schedule.TimingTemplate) bool {
	return func(t schedule.TimingTemplate) bool { return scope.Contains(t.TenantID, t.BranchID) }
}

func (repo *scheduleRepository) QueryTimingTemplates(_ context.Context, scope core.Scope) ([]schedule.TimingTemplate, error) {
	return repo.templates.query(templateInScope(scope), func(a, b schedule.TimingTemplate) bool { return a.Name < b.Name }), nil
}

func (repo *scheduleRepository) GetTimingTemplate(_ context.Context, scope core.Scope, id string) (schedule.TimingTemplate, error) {
	return repo.templates.get(id, templateInScope(scope))
}

func (repo *scheduleRepository) UpdateTimingTemplate(_ context.Context, t schedule.TimingTemplate) (schedule.TimingTemplate, error) {
	return repo.templates.update(t.ID, t)
}

func (repo *scheduleRepository) DeleteTimingTemplate(_ context.Context, scope core.Scope, id string) error {
	return repo.templates.deleteOne(id, templateInScope(scope))
}

func (repo *scheduleRepository) CreateHoliday(_ context.Context, h schedule.PublicHoliday) (schedule.PublicHoliday, error) {
	repo.holidays.put(h.ID, h)
	return h, nil
}

func holidayInScope(scope core.Scope) func(schedule.PublicHoliday) bool {
	return func(h schedule.PublicHoliday) bool { return scope.Contains(h.TenantID, h.BranchID) }
}

func (repo *scheduleRepository) QueryHolidays(_ context.Context, scope core.Scope, yearID string) ([]schedule.PublicHoliday, error) {
	inScope := holidayInScope(scope)
	return repo.holidays.query(
		func(h schedule.PublicHoliday) bool { return inScope(h) && (yearID == "" || h.AcademicYearID == yearID) },
		func(a, b schedule.PublicHoliday) bool { return a.Date.Before(b.Date) },
	), nil
}

func (repo *scheduleRepository) GetHoliday(_ context.Context, scope core.Scope, id string) (schedule.PublicHoliday, error) {
	return repo.holidays.get(id, holidayInScope(scope))
}

func (repo *scheduleRepository) DeleteHoliday(_ context.Context, scope core.Scope, id string) error {
	return repo.holidays.deleteOne(id, holidayInScope(scope))
}

func (repo *scheduleRepository) CreateVacation(_ context.Context, v schedule.Vacation) (schedule.Vacation, error) {
	repo.vacations.put(v.ID, v)
	return v, nil
}

func vacationInScope(scope core.Scope) func(schedule.Vacation) bool {
	return func(v schedule.Vacation) bool { return scope.Contains(v.TenantID, v.BranchID) }
}

func (repo *scheduleRepository) QueryVacations(_ context.Context, scope core.Scope, yearID string) ([]schedule.Vacation, error) {
	inScope := vacationInScope(scope)
	return repo.vacations.query(
		func(v schedule.Vacation) bool { return inScope(v) && (yearID == "" || v.AcademicYearID == yearID) },
		func(a, b schedule.Vacation) bool { return a.StartDate.Before(b.StartDate) },
	), nil
}

func (repo *scheduleRepository) GetVacation(_ context.Context, scope core.Scope, id string) (schedule.Vacation, error) {
	return repo.vacations.get(id, vacationInScope(scope))
}

func (repo *scheduleRepository) DeleteVacation(_ context.Context, scope core.Scope, id string) error {
	return repo.vacations.deleteOne(id, vacationInScope(scope))
}
