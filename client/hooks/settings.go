package hooks

import (
	"context"
	"net/http"

	"github.com/trezcool/shule/client/apiclient"
	"github.com/trezcool/shule/client/query"
	"github.com/trezcool/shule/core/grading"
	"github.com/trezcool/shule/core/schedule"
)

func yearParams(yearID string) apiclient.Params {
	return apiclient.Params{"academic_year_id": yearID}
}

// Schedule

func (h *Hooks) TimingTemplates(ctx context.Context) query.State[[]schedule.TimingTemplate] {
	return get[[]schedule.TimingTemplate](ctx, h, ResTimingTemplates, nil)
}

func (h *Hooks) CreateTimingTemplate(ctx context.Context, form schedule.NewTimingTemplate) (schedule.TimingTemplate, error) {
	return mutate[schedule.TimingTemplate](ctx, h, http.MethodPost, ResTimingTemplates, &form, ResTimingTemplates)
}

func (h *Hooks) UpdateTimingTemplate(ctx context.Context, id string, form schedule.NewTimingTemplate) (schedule.TimingTemplate, error) {
	return mutate[schedule.TimingTemplate](ctx, h, http.MethodPut, ResTimingTemplates+"/"+id, &form, ResTimingTemplates)
}

func (h *Hooks) DeleteTimingTemplate(ctx context.Context, id string) error {
	return remove(ctx, h, ResTimingTemplates+"/"+id, ResTimingTemplates)
}

func (h *Hooks) Holidays(ctx context.Context, yearID string) query.State[[]schedule.PublicHoliday] {
	return get[[]schedule.PublicHoliday](ctx, h, ResHolidays, yearParams(yearID))
}

func (h *Hooks) CreateHoliday(ctx context.Context, form schedule.NewPublicHoliday) (schedule.PublicHoliday, error) {
	return mutate[schedule.PublicHoliday](ctx, h, http.MethodPost, ResHolidays, &form, ResHolidays)
}

func (h *Hooks) DeleteHoliday(ctx context.Context, id string) error {
	return remove(ctx, h, ResHolidays+"/"+id, ResHolidays)
}

func (h *Hooks) Vacations(ctx context.Context, yearID string) query.State[[]schedule.Vacation] {
	return get[[]schedule.Vacation](ctx, h, ResVacations, yearParams(yearID))
}

func (h *Hooks) CreateVacation(ctx context.Context, form schedule.NewVacation) (schedule.Vacation, error) {
	return mutate[schedule.Vacation](ctx, h, http.MethodPost, ResVacations, &form, ResVacations)
}

func (h *Hooks) DeleteVacation(ctx context.Context, id string) error {
	return remove(ctx, h, ResVacations+"/"+id, ResVacations)
}

// Grading

func (h *Hooks) AssessmentTypes(ctx context.Context, yearID string) query.State[[]grading.AssessmentType] {
	return get[[]grading.AssessmentType](ctx, h, ResAssessmentTypes, yearParams(yearID))
}

func (h *Hooks) CreateAssessmentType(ctx context.Context, form grading.NewAssessmentType) (grading.AssessmentType, error) {
	return mutate[grading.AssessmentType](ctx, h, http.MethodPost, ResAssessmentTypes, &form, ResAssessmentTypes)
}

func (h *Hooks) UpdateAssessmentType(ctx context.Context, id string, form grading.UpdateAssessmentType) (grading.AssessmentType, error) {
	return mutate[grading.AssessmentType](ctx, h, http.MethodPut, ResAssessmentTypes+"/"+id, &form, ResAssessmentTypes)
}

func (h *Hooks) DeleteAssessmentType(ctx context.Context, id string) error {
	return remove(ctx, h, ResAssessmentTypes+"/"+id, ResAssessmentTypes)
}

func (h *Hooks) GradeTemplates(ctx context.Context) query.State[[]grading.GradeTemplate] {
	return get[[]grading.GradeTemplate](ctx, h, ResGradeTemplates, nil)
}

func (h *Hooks) CreateGradeTemplate(ctx context.Context, form grading.NewGradeTemplate) (grading.GradeTemplate, error) {
	return mutate[grading.GradeTemplate](ctx, h, http.MethodPost, ResGradeTemplates, &form, ResGradeTemplates)
}

func (h *Hooks) UpdateGradeTemplate(ctx context.Context, id string, form grading.NewGradeTemplate) (grading.GradeTemplate, error) {
	return mutate[grading.GradeTemplate](ctx, h, http.MethodPut, ResGradeTemplates+"/"+id, &form, ResGradeTemplates)
}

func (h *Hooks) DeleteGradeTemplate(ctx context.Context, id string) error {
	return remove(ctx, h, ResGradeTemplates+"/"+id, ResGradeTemplates)
}
