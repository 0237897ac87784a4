package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
)

type academicRepository struct {
	db *sqlx.DB
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *sqlx.DB) *academicRepository {
	return &academicRepository{db: db}
}

type yearRow struct {
	ID        string    `db:"id"`
	TenantID  string    `db:"tenant_id"`
	BranchID  string    `db:"branch_id"`
	Name      string    `db:"name"`
	StartDate core.Date `db:"start_date"`
	EndDate   core.Date `db:"end_date"`
	IsActive  bool      `db:"is_active"`
	IsLocked  bool      `db:"is_locked"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r yearRow) year() academic.AcademicYear {
	return academic.AcademicYear(r)
}

func (repo *academicRepository) CreateYear(ctx context.Context, y academic.AcademicYear) (academic.AcademicYear, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO academic_year (id, tenant_id, branch_id, name, start_date, end_date, is_active, is_locked, created_at, updated_at)
		VALUES (:id, :tenant_id, :branch_id, :name, :start_date, :end_date, :is_active, :is_locked, :created_at, :updated_at)`,
		yearRow(y),
	)
	if err != nil {
		return academic.AcademicYear{}, errors.Wrap(err, "inserting academic year")
	}
	return y, nil
}

func (repo *academicRepository) selectYears(ctx context.Context, w *where) ([]academic.AcademicYear, error) {
	var rows []yearRow
	if err := repo.db.SelectContext(ctx, &rows, w.sql(repo.db, `SELECT * FROM academic_year`, ` ORDER BY start_date DESC`), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting academic years")
	}
	years := make([]academic.AcademicYear, 0, len(rows))
	for _, r := range rows {
		years = append(years, r.year())
	}
	return years, nil
}

func (repo *academicRepository) QueryYears(ctx context.Context, scope core.Scope) ([]academic.AcademicYear, error) {
	w := new(where)
	w.scope(scope)
	return repo.selectYears(ctx, w)
}

func (repo *academicRepository) GetYear(ctx context.Context, scope core.Scope, id string) (academic.AcademicYear, error) {
	w := new(where)
	w.scope(scope)
	w.add("id = ?", id)
	var row yearRow
	if err := repo.db.GetContext(ctx, &row, w.sql(repo.db, `SELECT * FROM academic_year`), w.args...); err != nil {
		return academic.AcademicYear{}, trapNoRowsErr(err, "selecting academic year")
	}
	return row.year(), nil
}

func (repo *academicRepository) GetActiveYear(ctx context.Context, scope core.Scope) (academic.AcademicYear, error) {
	w := new(where)
	w.scope(scope)
	w.add("is_active")
	var row yearRow
	if err := repo.db.GetContext(ctx, &row, w.sql(repo.db, `SELECT * FROM academic_year`, ` LIMIT 1`), w.args...); err != nil {
		return academic.AcademicYear{}, trapNoRowsErr(err, "selecting active academic year")
	}
	return row.year(), nil
}

func (repo *academicRepository) UpdateYear(ctx context.Context, y academic.AcademicYear) (academic.AcademicYear, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE academic_year SET name = :name, start_date = :start_date, end_date = :end_date,
			is_active = :is_active, is_locked = :is_locked, updated_at = :updated_at
		WHERE id = :id`,
		yearRow(y),
	)
	if err := checkAffected(res, err, "updating academic year"); err != nil {
		return academic.AcademicYear{}, err
	}
	return y, nil
}

func (repo *academicRepository) ActivateYear(ctx context.Context, scope core.Scope, id string) (academic.AcademicYear, error) {
	var row yearRow
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		// deactivate first: the partial unique index allows one active year per branch
		if _, err := tx.ExecContext(ctx,
			`UPDATE academic_year SET is_active = false, updated_at = $3 WHERE tenant_id = $1 AND branch_id = $2 AND is_active`,
			scope.TenantID, scope.BranchID, now,
		); err != nil {
			return errors.Wrap(err, "deactivating academic years")
		}
		err := tx.GetContext(ctx, &row,
			`UPDATE academic_year SET is_active = true, updated_at = $4 WHERE tenant_id = $1 AND branch_id = $2 AND id = $3 RETURNING *`,
			scope.TenantID, scope.BranchID, id, now,
		)
		return trapNoRowsErr(err, "activating academic year")
	})
	if err != nil {
		return academic.AcademicYear{}, err
	}
	return row.year(), nil
}

func (repo *academicRepository) DeleteYear(ctx context.Context, scope core.Scope, id string) error {
	w := new(where)
	w.scope(scope)
	w.add("id = ?", id)
	res, err := repo.db.ExecContext(ctx, w.sql(repo.db, `DELETE FROM academic_year`), w.args...)
	return checkAffected(res, err, "deleting academic year")
}

func (repo *academicRepository) LockYearsEndedBefore(ctx context.Context, d core.Date) (int, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE academic_year SET is_locked = true, updated_at = $2 WHERE NOT is_locked AND end_date < $1`,
		d, time.Now().UTC(),
	)
	if err != nil {
		return 0, errors.Wrap(err, "locking academic years")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "locking academic years")
}

type classSectionRow struct {
	ID             string      `db:"id"`
	TenantID       string      `db:"tenant_id"`
	BranchID       string      `db:"branch_id"`
	ClassName      string      `db:"class_name"`
	SectionName    string      `db:"section_name"`
	Capacity       int         `db:"capacity"`
	ClassTeacherID null.String `db:"class_teacher_id"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

func newClassSectionRow(cs academic.ClassSection) classSectionRow {
	return classSectionRow{
		ID:             cs.ID,
		TenantID:       cs.TenantID,
		BranchID:       cs.BranchID,
		ClassName:      cs.ClassName,
		SectionName:    cs.SectionName,
		Capacity:       cs.Capacity,
		ClassTeacherID: nullString(cs.ClassTeacherID),
		CreatedAt:      cs.CreatedAt,
		UpdatedAt:      cs.UpdatedAt,
	}
}

func (r classSectionRow) classSection() academic.ClassSection {
	return academic.ClassSection{
		ID:             r.ID,
		TenantID:       r.TenantID,
		BranchID:       r.BranchID,
		ClassName:      r.ClassName,
		SectionName:    r.SectionName,
		Capacity:       r.Capacity,
		ClassTeacherID: r.ClassTeacherID.String,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func (repo *academicRepository) CreateClassSections(ctx context.Context, css ...academic.ClassSection) ([]academic.ClassSection, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		for _, cs := range css {
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO class_section (id, tenant_id, branch_id, class_name, section_name, capacity, class_teacher_id, created_at, updated_at)
				VALUES (:id, :tenant_id, :branch_id, :class_name, :section_name, :capacity, :class_teacher_id, :created_at, :updated_at)`,
				newClassSectionRow(cs),
			); err != nil {
				return errors.Wrapf(err, "inserting class section %s", cs.Label())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return css, nil
}

func (repo *academicRepository) QueryClassSections(ctx context.Context, scope core.Scope, filter academic.ClassSectionFilter) ([]academic.ClassSection, error) {
	w := new(where)
	w.scope(scope)
	if filter.ClassName != "" {
		w.add("lower(class_name) = lower(?)", filter.ClassName)
	}
	if filter.Search != "" {
		w.add("(class_name || ' - ' || section_name) ILIKE ?", likePattern(filter.Search))
	}

	var rows []classSectionRow
	if err := repo.db.SelectContext(ctx, &rows, w.sql(repo.db, `SELECT * FROM class_section`, ` ORDER BY class_name, section_name`), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting class sections")
	}
	css := make([]academic.ClassSection, 0, len(rows))
	for _, r := range rows {
		css = append(css, r.classSection())
	}
	return css, nil
}

func (repo *academicRepository) GetClassSection(ctx context.Context, scope core.Scope, id string) (academic.ClassSection, error) {
	w := new(where)
	w.scope(scope)
	w.add("id = ?", id)
	var row classSectionRow
	if err := repo.db.GetContext(ctx, &row, w.sql(repo.db, `SELECT * FROM class_section`), w.args...); err != nil {
		return academic.ClassSection{}, trapNoRowsErr(err, "selecting class section")
	}
	return row.classSection(), nil
}

func (repo *academicRepository) UpdateClassSection(ctx context.Context, cs academic.ClassSection) (academic.ClassSection, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE class_section SET capacity = :capacity, class_teacher_id = :class_teacher_id, updated_at = :updated_at
		WHERE id = :id`,
		newClassSectionRow(cs),
	)
	if err := checkAffected(res, err, "updating class section"); err != nil {
		return academic.ClassSection{}, err
	}
	return cs, nil
}

func (repo *academicRepository) DeleteClassSection(ctx context.Context, scope core.Scope, id string) error {
	w := new(where)
	w.scope(scope)
	w.add("id = ?", id)
	res, err := repo.db.ExecContext(ctx, w.sql(repo.db, `DELETE FROM class_section`), w.args...)
	return checkAffected(res, err, "deleting class section")
}
