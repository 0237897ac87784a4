package hooks

import (
	"context"
	"net/http"

	"github.com/trezcool/shule/client/apiclient"
	"github.com/trezcool/shule/client/query"
	"github.com/trezcool/shule/core/academic"
)

func yearResource(id string) string { return ResAcademicYears + "/" + id }

func (h *Hooks) AcademicYears(ctx context.Context) query.State[[]academic.AcademicYear] {
	return get[[]academic.AcademicYear](ctx, h, ResAcademicYears, nil)
}

// ActiveYear is the active academic year of the current branch.
func (h *Hooks) ActiveYear(ctx context.Context) query.State[academic.AcademicYear] {
	return get[academic.AcademicYear](ctx, h, ResActiveYear, nil)
}

func (h *Hooks) CreateAcademicYear(ctx context.Context, form academic.NewAcademicYear) (academic.AcademicYear, error) {
	return mutate[academic.AcademicYear](ctx, h, http.MethodPost, ResAcademicYears, &form, ResAcademicYears)
}

// ActivateYear makes the year active; the active year query is updated with the response
// and every year (whose is_active flags changed) is refetched on next read.
func (h *Hooks) ActivateYear(ctx context.Context, id string) (academic.AcademicYear, error) {
	y, err := mutate[academic.AcademicYear](ctx, h, http.MethodPost, yearResource(id)+"/activate", nil, ResAcademicYears)
	if err != nil {
		return academic.AcademicYear{}, err
	}
	query.SetData(ctx, h.cache, query.NewKey(ResActiveYear, nil), y)
	return y, nil
}

// CreateAndActivateYear creates a year then makes it the active one.
func (h *Hooks) CreateAndActivateYear(ctx context.Context, form academic.NewAcademicYear) (academic.AcademicYear, error) {
	y, err := h.CreateAcademicYear(ctx, form)
	if err != nil {
		return academic.AcademicYear{}, err
	}
	return h.ActivateYear(ctx, y.ID)
}

func (h *Hooks) LockYear(ctx context.Context, id string) (academic.AcademicYear, error) {
	return mutate[academic.AcademicYear](ctx, h, http.MethodPost, yearResource(id)+"/lock", nil, ResAcademicYears)
}

func (h *Hooks) UpdateAcademicYear(ctx context.Context, id string, form academic.UpdateAcademicYear) (academic.AcademicYear, error) {
	return mutate[academic.AcademicYear](ctx, h, http.MethodPut, yearResource(id), &form, ResAcademicYears)
}

func (h *Hooks) DeleteAcademicYear(ctx context.Context, id string) error {
	return remove(ctx, h, yearResource(id), ResAcademicYears, ResHolidays, ResVacations, ResAssessmentTypes)
}

// Class sections

func (h *Hooks) ClassSections(ctx context.Context, filter academic.ClassSectionFilter) query.State[[]academic.ClassSection] {
	return get[[]academic.ClassSection](ctx, h, ResClassSections, apiclient.FilterParams(filter))
}

func (h *Hooks) CreateClassSection(ctx context.Context, form academic.NewClassSection) (academic.ClassSection, error) {
	return mutate[academic.ClassSection](ctx, h, http.MethodPost, ResClassSections, &form, ResClassSections)
}

func (h *Hooks) UpdateClassSection(ctx context.Context, id string, form academic.UpdateClassSection) (academic.ClassSection, error) {
	return mutate[academic.ClassSection](ctx, h, http.MethodPut, ResClassSections+"/"+id, &form, ResClassSections)
}

func (h *Hooks) DeleteClassSection(ctx context.Context, id string) error {
	return remove(ctx, h, ResClassSections+"/"+id, ResClassSections, ResStudents)
}

// PreviewBulkClassSections lists the combinations a bulk create would add; nothing is cached or invalidated.
func (h *Hooks) PreviewBulkClassSections(ctx context.Context, form academic.BulkClassSections) ([]academic.Combination, error) {
	return mutate[[]academic.Combination](ctx, h, http.MethodPost, ResClassSections+"/bulk/preview", &form)
}

// BulkCreateClassSections creates the missing combinations only.
func (h *Hooks) BulkCreateClassSections(ctx context.Context, form academic.BulkClassSections) ([]academic.ClassSection, error) {
	return mutate[[]academic.ClassSection](ctx, h, http.MethodPost, ResClassSections+"/bulk", &form, ResClassSections)
}
