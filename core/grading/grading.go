package grading

import (
	"context"
	"sort"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
)

const MaxTotalWeight = 100

var (
	ErrWeightExceeded = errors.New("the total weight of the academic year cannot exceed 100")
	ErrNoGrade        = errors.New("no grade covers this score")

	rangesTag  = "graderanges"
	rangesText = "grade ranges must lie within 0-100 and must not overlap"
)

type AssessmentType struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	BranchID       string    `json:"branch_id"`
	AcademicYearID string    `json:"academic_year_id"`
	Name           string    `json:"name"`
	Weight         float64   `json:"weight"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type NewAssessmentType struct {
	AcademicYearID string  `json:"academic_year_id" validate:"required,uuid"`
	Name           string  `json:"name" validate:"required,max=100"`
	Weight         float64 `json:"weight" validate:"gte=0,lte=100"`
}

func (na *NewAssessmentType) Validate(validate *validator.Validate) error {
	na.Name = core.CleanString(na.Name)
	return validate.Struct(na)
}

type UpdateAssessmentType struct {
	Name   *string  `json:"name" validate:"omitempty,required,max=100"`
	Weight *float64 `json:"weight" validate:"omitempty,gte=0,lte=100"`
}

func (ua *UpdateAssessmentType) Validate(validate *validator.Validate) error {
	if ua.Name != nil {
		*ua.Name = core.CleanString(*ua.Name)
	}
	return validate.Struct(ua)
}

// GradeRange maps scores in [Min, Max] to a grade.
type GradeRange struct {
	Grade      string  `json:"grade" validate:"required,max=5"`
	Min        float64 `json:"min" validate:"gte=0,lte=100"`
	Max        float64 `json:"max" validate:"gte=0,lte=100"`
	GradePoint float64 `json:"grade_point" validate:"gte=0"`
}

type GradeTemplate struct {
	ID        string       `json:"id"`
	TenantID  string       `json:"tenant_id"`
	BranchID  string       `json:"branch_id"`
	Name      string       `json:"name"`
	Ranges    []GradeRange `json:"ranges"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// GradeFor returns the range covering score.
func (gt GradeTemplate) GradeFor(score float64) (GradeRange, error) {
	for _, r := range gt.Ranges {
		if score >= r.Min && score <= r.Max {
			return r, nil
		}
	}
	return GradeRange{}, ErrNoGrade
}

type NewGradeTemplate struct {
	Name   string       `json:"name" validate:"required,max=100"`
	Ranges []GradeRange `json:"ranges" validate:"required,min=1,dive"`
}

func (ng *NewGradeTemplate) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	for i := range ng.Ranges {
		ng.Ranges[i].Grade = core.CleanString(ng.Ranges[i].Grade)
	}
	return validate.Struct(ng)
}

// RangesValid reports whether every range lies within 0..100, has min <= max and overlaps no other.
func RangesValid(ranges []GradeRange) bool {
	sorted := append([]GradeRange(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })
	for i, r := range sorted {
		if r.Min < 0 || r.Max > 100 || r.Min > r.Max {
			return false
		}
		if i > 0 && r.Min <= sorted[i-1].Max {
			return false
		}
	}
	return true
}

// InitValidators registers the grading validations & translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		ng := sl.Current().Interface().(NewGradeTemplate)
		if !RangesValid(ng.Ranges) {
			sl.ReportError(ng.Ranges, "ranges", "Ranges", rangesTag, "")
		}
	}, NewGradeTemplate{})
	core.RegisterCustomTranslation(validate, translator, rangesTag, rangesText)
}

type Repository interface {
	CreateAssessmentType(ctx context.Context, at AssessmentType) (AssessmentType, error)
	QueryAssessmentTypes(ctx context.Context, scope core.Scope, yearID string) ([]AssessmentType, error)
	GetAssessmentType(ctx context.Context, scope core.Scope, id string) (AssessmentType, error)
	UpdateAssessmentType(ctx context.Context, at AssessmentType) (AssessmentType, error)
	DeleteAssessmentType(ctx context.Context, scope core.Scope, id string) error

	CreateGradeTemplate(ctx context.Context, gt GradeTemplate) (GradeTemplate, error)
	QueryGradeTemplates(ctx context.Context, scope core.Scope) ([]GradeTemplate, error)
	GetGradeTemplate(ctx context.Context, scope core.Scope, id string) (GradeTemplate, error)
	UpdateGradeTemplate(ctx context.Context, gt GradeTemplate) (GradeTemplate, error)
	DeleteGradeTemplate(ctx context.Context, scope core.Scope, id string) error
}

type YearGetter interface {
	WritableYear(ctx context.Context, scope core.Scope, id string) (academic.AcademicYear, error)
}

type Service struct {
	repo  Repository
	years YearGetter
}

func NewService(repo Repository, years YearGetter) *Service {
	return &Service{repo: repo, years: years}
}

// checkWeight fails when adding weight to the year (excluding excludedID) would exceed MaxTotalWeight.
func (svc *Service) checkWeight(ctx context.Context, scope core.Scope, yearID string, weight float64, excludedID string) error {
	ats, err := svc.repo.QueryAssessmentTypes(ctx, scope, yearID)
	if err != nil {
		return errors.Wrap(err, "querying assessment types")
	}
	total := weight
	for _, at := range ats {
		if at.ID != excludedID {
			total += at.Weight
		}
	}
	if total > MaxTotalWeight {
		return core.NewFieldError("weight", ErrWeightExceeded)
	}
	return nil
}

func (svc *Service) CreateAssessmentType(ctx context.Context, scope core.Scope, na NewAssessmentType) (AssessmentType, error) {
	y, err := svc.years.WritableYear(ctx, scope, na.AcademicYearID)
	if err != nil {
		return AssessmentType{}, err
	}
	yScope := core.Scope{TenantID: y.TenantID, BranchID: y.BranchID}
	if err := svc.checkWeight(ctx, yScope, y.ID, na.Weight, ""); err != nil {
		return AssessmentType{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateAssessmentType(ctx, AssessmentType{
		ID:             core.NewID(),
		TenantID:       y.TenantID,
		BranchID:       y.BranchID,
		AcademicYearID: y.ID,
		Name:           na.Name,
		Weight:         na.Weight,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (svc *Service) QueryAssessmentTypes(ctx context.Context, scope core.Scope, yearID string) ([]AssessmentType, error) {
	return svc.repo.QueryAssessmentTypes(ctx, scope, yearID)
}

func (svc *Service) GetAssessmentType(ctx context.Context, scope core.Scope, id string) (AssessmentType, error) {
	return svc.repo.GetAssessmentType(ctx, scope, id)
}

func (svc *Service) UpdateAssessmentType(ctx context.Context, at AssessmentType, ua UpdateAssessmentType) (AssessmentType, error) {
	scope := core.Scope{TenantID: at.TenantID, BranchID: at.BranchID}
	if _, err := svc.years.WritableYear(ctx, scope, at.AcademicYearID); err != nil {
		return AssessmentType{}, err
	}
	if ua.Weight != nil && *ua.Weight != at.Weight {
		if err := svc.checkWeight(ctx, scope, at.AcademicYearID, *ua.Weight, at.ID); err != nil {
			return AssessmentType{}, err
		}
		at.Weight = *ua.Weight
	}
	if ua.Name != nil {
		at.Name = *ua.Name
	}
	at.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAssessmentType(ctx, at)
}

func (svc *Service) DeleteAssessmentType(ctx context.Context, scope core.Scope, id string) error {
	at, err := svc.repo.GetAssessmentType(ctx, scope, id)
	if err != nil {
		return err
	}
	if _, err := svc.years.WritableYear(ctx, scope, at.AcademicYearID); err != nil {
		return err
	}
	return svc.repo.DeleteAssessmentType(ctx, scope, id)
}

func (svc *Service) CreateGradeTemplate(ctx context.Context, scope core.Scope, ng NewGradeTemplate) (GradeTemplate, error) {
	if err := core.RequireBranch(scope); err != nil {
		return GradeTemplate{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateGradeTemplate(ctx, GradeTemplate{
		ID:        core.NewID(),
		TenantID:  scope.TenantID,
		BranchID:  scope.BranchID,
		Name:      ng.Name,
		Ranges:    sortedRanges(ng.Ranges),
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// sortedRanges orders ranges from the highest grade down.
func sortedRanges(ranges []GradeRange) []GradeRange {
	sorted := append([]GradeRange(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min > sorted[j].Min })
	return sorted
}

func (svc *Service) QueryGradeTemplates(ctx context.Context, scope core.Scope) ([]GradeTemplate, error) {
	return svc.repo.QueryGradeTemplates(ctx, scope)
}

func (svc *Service) GetGradeTemplate(ctx context.Context, scope core.Scope, id string) (GradeTemplate, error) {
	return svc.repo.GetGradeTemplate(ctx, scope, id)
}

func (svc *Service) UpdateGradeTemplate(ctx context.Context, gt GradeTemplate, ng NewGradeTemplate) (GradeTemplate, error) {
	gt.Name = ng.Name
	gt.Ranges = sortedRanges(ng.Ranges)
	gt.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateGradeTemplate(ctx, gt)
}

func (svc *Service) DeleteGradeTemplate(ctx context.Context, scope core.Scope, id string) error {
	return svc.repo.DeleteGradeTemplate(ctx, scope, id)
}
