package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/grading"
)

type gradingRepository struct {
	db *sqlx.DB
}

var _ grading.Repository = (*gradingRepository)(nil) // interface compliance check

func NewGradingRepository(db *sqlx.DB) *gradingRepository {
	return &gradingRepository{db: db}
}

type assessmentTypeRow struct {
	ID             string    `db:"id"`
	TenantID       string    `db:"tenant_id"`
	BranchID       string    `db:"branch_id"`
	AcademicYearID string    `db:"academic_year_id"`
	Name           string    `db:"name"`
	Weight         float64   `db:"weight"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (repo *gradingRepository) CreateAssessmentType(ctx context.Context, at grading.AssessmentType) (grading.AssessmentType, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO assessment_type (id, tenant_id, branch_id, academic_year_id, name, weight, created_at, updated_at)
		VALUES (:id, :tenant_id, :branch_id, :academic_year_id, :name, :weight, :created_at, :updated_at)`,
		assessmentTypeRow(at),
	)
	if err != nil {
		return grading.AssessmentType{}, errors.Wrap(err, "inserting assessment type")
	}
	return at, nil
}

func (repo *gradingRepository) QueryAssessmentTypes(ctx context.Context, scope core.Scope, yearID string) ([]grading.AssessmentType, error) {
	w := new(where)
	w.scope(scope)
	if yearID != "" {
		w.add("academic_year_id = ?", yearID)
	}
	var rows []assessmentTypeRow
	if err := repo.db.SelectContext(ctx, &rows, w.sql(repo.db, `SELECT * FROM assessment_type`, ` ORDER BY name`), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting assessment types")
	}
	ats := make([]grading.AssessmentType, 0, len(rows))
	for _, r := range rows {
		ats = append(ats, grading.AssessmentType(r))
	}
	return ats, nil
}

func (repo *gradingRepository) GetAssessmentType(ctx context.Context, scope core.Scope, id string) (grading.AssessmentType, error) {
	w := new(where)
	w.scope(scope)
	w.add("id = ?", id)
	var row assessmentTypeRow
	if err := repo.db.GetContext(ctx, &row, w.sql(repo.db, `SELECT * FROM assessment_type`), w.args...); err != nil {
		return grading.AssessmentType{}, trapNoRowsErr(err, "selecting assessment type")
	}
	return grading.AssessmentType(row), nil
}

func (repo *gradingRepository) UpdateAssessmentType(ctx context.Context, at grading.AssessmentType) (grading.AssessmentType, error) {
	res, err := repo.db.NamedExecContext(ctx,
		`UPDATE assessment_type SET name = :name, weight = :weight, updated_at = :updated_at WHERE id = :id`,
		assessmentTypeRow(at),
	)
	if err := checkAffected(res, err, "updating assessment type"); err != nil {
		return grading.AssessmentType{}, err
	}
	return at, nil
}

func (repo *gradingRepository) DeleteAssessmentType(ctx context.Context, scope core.Scope, id string) error {
	return deleteScoped(ctx, repo.db, "assessment_type", scope, id)
}

type gradeTemplateRow struct {
	ID        string                           `db:"id"`
	TenantID  string                           `db:"tenant_id"`
	BranchID  string                           `db:"branch_id"`
	Name      string                           `db:"name"`
	Ranges    jsonColumn[[]grading.GradeRange] `db:"ranges"`
	CreatedAt time.Time                        `db:"created_at"`
	UpdatedAt time.Time                        `db:"updated_at"`
}

func newGradeTemplateRow(gt grading.GradeTemplate) gradeTemplateRow {
	return gradeTemplateRow{
		ID:        gt.ID,
		TenantID:  gt.TenantID,
		BranchID:  gt.BranchID,
		Name:      gt.Name,
		Ranges:    jsonColumn[[]grading.GradeRange]{V: gt.Ranges},
		CreatedAt: gt.CreatedAt,
		UpdatedAt: gt.UpdatedAt,
	}
}

func (r gradeTemplateRow) template() grading.GradeTemplate {
	return grading.GradeTemplate{
		ID:        r.ID,
		TenantID:  r.TenantID,
		BranchID:  r.BranchID,
		Name:      r.Name,
		Ranges:    r.Ranges.V,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (repo *gradingRepository) CreateGradeTemplate(ctx context.Context, gt grading.GradeTemplate) (grading.GradeTemplate, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO grade_template (id, tenant_id, branch_id, name, ranges, created_at, updated_at)
		VALUES (:id, :tenant_id, :branch_id, :name, :ranges, :created_at, :updated_at)`,
		newGradeTemplateRow(gt),
	)
	if err != nil {
		return grading.GradeTemplate{}, errors.Wrap(err, "inserting grade template")
	}
	return gt, nil
}

func (repo *gradingRepository) QueryGradeTemplates(ctx context.Context, scope core.Scope) ([]grading.GradeTemplate, error) {
	w := new(where)
	w.scope(scope)
	var rows []gradeTemplateRow
	if err := repo.db.SelectContext(ctx, &rows, w.sql(repo.db, `SELECT * FROM grade_template`, ` ORDER BY name`), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting grade templates")
	}
	gts := make([]grading.GradeTemplate, 0, len(rows))
	for _, r := range rows {
		gts = append(gts, r.template())
	}
	return gts, nil
}

func (repo *gradingRepository) GetGradeTemplate(ctx context.Context, scope core.Scope, id string) (grading.GradeTemplate, error) {
	w := new(where)
	w.scope(scope)
	w.add("id = ?", id)
	var row gradeTemplateRow
	if err := repo.db.GetContext(ctx, &row, w.sql(repo.db, `SELECT * FROM grade_template`), w.args...); err != nil {
		return grading.GradeTemplate{}, trapNoRowsErr(err, "selecting grade template")
	}
	return row.template(), nil
}

func (repo *gradingRepository) UpdateGradeTemplate(ctx context.Context, gt grading.GradeTemplate) (grading.GradeTemplate, error) {
	res, err := repo.db.NamedExecContext(ctx,
		`UPDATE grade_template SET name = :name, ranges = :ranges, updated_at = :updated_at WHERE id = :id`,
		newGradeTemplateRow(gt),
	)
	if err := checkAffected(res, err, "updating grade template"); err != nil {
		return grading.GradeTemplate{}, err
	}
	return gt, nil
}

func (repo *gradingRepository) DeleteGradeTemplate(ctx context.Context, scope core.Scope, id string) error {
	return deleteScoped(ctx, repo.db, "grade_template", scope, id)
}
