package inmemdb

import (
	"context"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/grading"
)

type gradingRepository struct {
	assessments *table[grading.AssessmentType]
	templates   *table[grading.GradeTemplate]
}

var _ grading.Repository = (*gradingRepository)(nil) // interface compliance check

func NewGradingRepository(db *DB) *gradingRepository {
	return &gradingRepository{assessments: db.assessmentType, templates: db.gradeTemplate}
}

func assessmentInScope(scope core.Scope) func(grading.AssessmentType) bool {
	return func(at grading.AssessmentType) bool { return scope.Contains(at.TenantID, at.BranchID) }
}

func (repo *gradingRepository) CreateAssessmentType(_ context.Context, at grading.AssessmentType) (grading.AssessmentType, error) {
	repo.assessments.put(at.ID, at)
	return at, nil
}

func (repo *gradingRepository) QueryAssessmentTypes(_ context.Context, scope core.Scope, yearID string) ([]grading.AssessmentType, error) {
	inScope := assessmentInScope(scope)
	return repo.assessments.query(
		func(at grading.AssessmentType) bool { return inScope(at) && (yearID == "" || at.AcademicYearID == yearID) },
		func(a, b grading.AssessmentType) bool { return a.Name < b.Name },
	), nil
}

func (repo *gradingRepository) GetAssessmentType(_ context.Context, scope core.Scope, id string) (grading.AssessmentType, error) {
	return repo.assessments.get(id, assessmentInScope(scope))
}

func (repo *gradingRepository) UpdateAssessmentType(_ context.Context, at grading.AssessmentType) (grading.AssessmentType, error) {
	return repo.assessments.update(at.ID, at)
}

func (repo *gradingRepository) DeleteAssessmentType(_ context.Context, scope core.Scope, id string) error {
	return repo.assessments.deleteOne(id, assessmentInScope(scope))
}

func gradeTemplateInScope(scope core.Scope) func(grading.GradeTemplate) bool {
	return func(gt grading.GradeTemplate) bool { return scope.Contains(gt.TenantID, gt.BranchID) }
}

func (repo *gradingRepository) CreateGradeTemplate(_ context.Context, gt grading.GradeTemplate) (grading.GradeTemplate, error) {
	repo.templates.put(gt.ID, gt)
	return gt, nil
}

func (repo *gradingRepository) QueryGradeTemplates(_ context.Context, scope core.Scope) ([]grading.GradeTemplate, error) {
	return repo.templates.query(gradeTemplateInScope(scope), func(a, b grading.GradeTemplate) bool { return a.Name < b.Name }), nil
}

func (repo *gradingRepository) GetGradeTemplate(_ context.Context, scope core.Scope, id string) (grading.GradeTemplate, error) {
	return repo.templates.get(id, gradeTemplateInScope(scope))
}

func (repo *gradingRepository) UpdateGradeTemplate(_ context.Context, gt grading.GradeTemplate) (grading.GradeTemplate, error) {
	return repo.templates.update(gt.ID, gt)
}

func (repo *gradingRepository) DeleteGradeTemplate(_ context.Context, scope core.Scope, id string) error {
	return repo.templates.deleteOne(id, gradeTemplateInScope(scope))
}
