package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/schedule"
)

type scheduleRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *sqlx.DB) *scheduleRepository {
	return &scheduleRepository{db: db}
}

type timingTemplateRow struct {
	ID        string                        `db:"id"`
	TenantID  string                        `db:"tenant_id"`
	BranchID  string                        `db:"branch_id"`
	Name      string                        `db:"name"`
	Periods   jsonColumn[[]schedule.Period] `db:"periods"`
	CreatedAt time.Time                     `db:"created_at"`
	UpdatedAt time.Time                     `db:"updated_at"`
}

func newTimingTemplateRow(t schedule.TimingTemplate) timingTemplateRow {
	return timingTemplateRow{
		ID:        t.ID,
		TenantID:  t.TenantID,
		BranchID:  t.BranchID,
		Name:      t.Name,
		Periods:   jsonColumn[[]schedule.Period]{V: t.Periods},
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (r timingTemplateRow) template() schedule.TimingTemplate {
	return schedule.TimingTemplate{
		ID:        r.ID,
		TenantID:  r.TenantID,
		BranchID:  r.BranchID,
		Name:      r.Name,
		Periods:   r.Periods.V,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (repo *scheduleRepository) CreateTimingTemplate(ctx context.Context, t schedule.TimingTemplate) (schedule.TimingTemplate, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO timing_template (id, tenant_id, branch_id, name, periods, created_at, updated_at)
		VALUES (:id, :tenant_id, :branch_id, :name, :periods, :created_at, :updated_at)`,
		newTimingTemplateRow(t),
	)
	if err != nil {
		return schedule.TimingTemplate{}, errors.Wrap(err, "inserting timing template")
	}
	return t, nil
}

func (repo *scheduleRepository) QueryTimingTemplates(ctx context.Context, scope core.Scope) ([]schedule.TimingTemplate, error) {
	w := new(where)
	w.scope(scope)
	var rows []timingTemplateRow
	if err := repo.db.SelectContext(ctx, &rows, w.sql(repo.db, `SELECT * FROM timing_template`, ` ORDER BY name`), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting timing templates")
	}
	ts := make([]schedule.TimingTemplate, 0, len(rows))
	for _, r := range rows {
		ts = append(ts, r.template())
	}
	return ts, nil
}

func (repo *scheduleRepository) GetTimingTemplate(ctx context.Context, scope core.Scope, id string) (schedule.TimingTemplate, error) {
	w := new(where)
	w.scope(scope)
	w.add("id = ?", id)
	var row timingTemplateRow
	if err := repo.db.GetContext(ctx, &row, w.sql(repo.db, `SELECT * FROM timing_template`), w.args...); err != nil {
		return schedule.TimingTemplate{}, trapNoRowsErr(err, "selecting timing template")
	}
	return row.template(), nil
}

func (repo *scheduleRepository) UpdateTimingTemplate(ctx context.Context, t schedule.TimingTemplate) (schedule.TimingTemplate, error) {
	res, err := repo.db.NamedExecContext(ctx,
		`UPDATE timing_template SET name = :name, periods = :periods, updated_at = :updated_at WHERE id = :id`,
		newTimingTemplateRow(t),
	)
	if err := checkAffected(res, err, "updating timing template"); err != nil {
		return schedule.TimingTemplate{}, err
	}
	return t, nil
}

func (repo *scheduleRepository) DeleteTimingTemplate(ctx context.Context, scope core.Scope, id string) error {
	return deleteScoped(ctx, repo.db, "timing_template", scope, id)
}

type holidayRow struct {
	ID             string    `db:"id"`
	TenantID       string    `db:"tenant_id"`
	BranchID       string    `db:"branch_id"`
	AcademicYearID string    `db:"academic_year_id"`
	Name           string    `db:"name"`
	Date           core.Date `db:"date"`
	CreatedAt      time.Time `db:"created_at"`
}

func (repo *scheduleRepository) CreateHoliday(ctx context.Context, h schedule.PublicHoliday) (schedule.PublicHoliday, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO public_holiday (id, tenant_id, branch_id, academic_year_id, name, date, created_at)
		VALUES (:id, :tenant_id, :branch_id, :academic_year_id, :name, :date, :created_at)`,
		holidayRow(h),
	)
	if err != nil {
		return schedule.PublicHoliday{}, errors.Wrap(err, "inserting public holiday")
	}
	return h, nil
}

func (repo *scheduleRepository) QueryHolidays(ctx context.Context, scope core.Scope, yearID string) ([]schedule.PublicHoliday, error) {
	w := new(where)
	w.scope(scope)
	if yearID != "" {
		w.add("academic_year_id = ?", yearID)
	}
	var rows []holidayRow
	if err := repo.db.SelectContext(ctx, &rows, w.sql(repo.db, `SELECT * FROM public_holiday`, ` ORDER BY date`), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting public holidays")
	}
	hs := make([]schedule.PublicHoliday, 0, len(rows))
	for _, r := range rows {
		hs = append(hs, schedule.PublicHoliday(r))
	}
	return hs, nil
}

func (repo *scheduleRepository) GetHoliday(ctx context.Context, scope core.Scope, id string) (schedule.PublicHoliday, error) {
	w := new(where)
	w.scope(scope)
	w.add("id = ?", id)
	var row holidayRow
	if err := repo.db.GetContext(ctx, &row, w.sql(repo.db, `SELECT * FROM public_holiday`), w.args...); err != nil {
		return schedule.PublicHoliday{}, trapNoRowsErr(err, "selecting public holiday")
	}
	return schedule.PublicHoliday(row), nil
}

func (repo *scheduleRepository) DeleteHoliday(ctx context.Context, scope core.Scope, id string) error {
	return deleteScoped(ctx, repo.db, "public_holiday", scope, id)
}

type vacationRow struct {
	ID             string    `db:"id"`
	TenantID       string    `db:"tenant_id"`
	BranchID       string    `db:"branch_id"`
	AcademicYearID string    `db:"academic_year_id"`
	Name           string    `db:"name"`
	StartDate      core.Date `db:"start_date"`
	EndDate        core.Date `db:"end_date"`
	CreatedAt      time.Time `db:"created_at"`
}

func (repo *scheduleRepository) CreateVacation(ctx context.Context, v schedule.Vacation) (schedule.Vacation, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO vacation (id, tenant_id, branch_id, academic_year_id, name, start_date, end_date, created_at)
		VALUES (:id, :tenant_id, :branch_id, :academic_year_id, :name, :start_date, :end_date, :created_at)`,
		vacationRow(v),
	)
	if err != nil {
		return schedule.Vacation{}, errors.Wrap(err, "inserting vacation")
	}
	return v, nil
}

func (repo *scheduleRepository) QueryVacations(ctx context.Context, scope core.Scope, yearID string) ([]schedule.Vacation, error) {
	w := new(where)
	w.scope(scope)
	if yearID != "" {
		w.add("academic_year_id = ?", yearID)
	}
	var rows []vacationRow
	if err := repo.db.SelectContext(ctx, &rows, w.sql(repo.db, `SELECT * FROM vacation`, ` ORDER BY start_date`), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting vacations")
	}
	vs := make([]schedule.Vacation, 0, len(rows))
	for _, r := range rows {
		vs = append(vs, schedule.Vacation(r))
	}
	return vs, nil
}

func (repo *scheduleRepository) GetVacation(ctx context.Context, scope core.Scope, id string) (schedule.Vacation, error) {
	w := new(where)
	w.scope(scope)
	w.add("id = ?", id)
	var row vacationRow
	if err := repo.db.GetContext(ctx, &row, w.sql(repo.db, `SELECT * FROM vacation`), w.args...); err != nil {
		return schedule.Vacation{}, trapNoRowsErr(err, "selecting vacation")
	}
	return schedule.Vacation(row), nil
}

func (repo *scheduleRepository) DeleteVacation(ctx context.Context, scope core.Scope, id string) error {
	return deleteScoped(ctx, repo.db, "vacation", scope, id)
}
