package academic

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	ErrYearLocked         = errors.New("academic year is locked")
	ErrYearActive         = errors.New("the active academic year cannot be deleted")
	ErrUnknownYear        = errors.New("unknown academic year")
	ErrNoActiveYear       = errors.Wrap(core.ErrNotFound, "no active academic year")
	ErrYearNameExists     = errors.New("an academic year with this name already exists")
	ErrClassSectionExists = errors.New("this class & section already exists")
)

type Repository interface {
	CreateYear(ctx context.Context, y AcademicYear) (AcademicYear, error)
	QueryYears(ctx context.Context, scope core.Scope) ([]AcademicYear, error)
	GetYear(ctx context.Context, scope core.Scope, id string) (AcademicYear, error)
	GetActiveYear(ctx context.Context, scope core.Scope) (AcademicYear, error)
	UpdateYear(ctx context.Context, y AcademicYear) (AcademicYear, error)
	// ActivateYear marks the year active and every other year of its branch inactive, atomically.
	ActivateYear(ctx context.Context, scope core.Scope, id string) (AcademicYear, error)
	DeleteYear(ctx context.Context, scope core.Scope, id string) error
	// LockYearsEndedBefore locks every unlocked year (any tenant) whose end date is before d.
	LockYearsEndedBefore(ctx context.Context, d core.Date) (int, error)

	CreateClassSections(ctx context.Context, css ...ClassSection) ([]ClassSection, error)
	QueryClassSections(ctx context.Context, scope core.Scope, filter ClassSectionFilter) ([]ClassSection, error)
	GetClassSection(ctx context.Context, scope core.Scope, id string) (ClassSection, error)
	UpdateClassSection(ctx context.Context, cs ClassSection) (ClassSection, error)
	DeleteClassSection(ctx context.Context, scope core.Scope, id string) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// InitValidators registers the academic validations.
func InitValidators(validate *validator.Validate, _ ut.Translator) {
	validate.RegisterStructValidation(yearStructValidation, NewAcademicYear{}, UpdateAcademicYear{})
}

func yearStructValidation(sl validator.StructLevel) {
	var start, end core.Date
	switch y := sl.Current().Interface().(type) {
	case NewAcademicYear:
		start, end = y.StartDate, y.EndDate
	case UpdateAcademicYear:
		start, end = y.StartDate, y.EndDate
	}
	if !start.IsZero() && !end.IsZero() && !end.After(start) {
		sl.ReportError(end, "end_date", "EndDate", core.DateRangeTag, "")
	}
}

// Academic years

func (svc *Service) checkYearName(ctx context.Context, scope core.Scope, name string, excludedID string) error {
	years, err := svc.repo.QueryYears(ctx, scope)
	if err != nil {
		return errors.Wrap(err, "querying academic years")
	}
	for _, y := range years {
		if y.ID != excludedID && y.Name == name {
			return core.NewFieldError("name", ErrYearNameExists)
		}
	}
	return nil
}

func (svc *Service) CreateYear(ctx context.Context, scope core.Scope, ny NewAcademicYear) (AcademicYear, error) {
	if err := core.RequireBranch(scope); err != nil {
		return AcademicYear{}, err
	}
	if err := svc.checkYearName(ctx, scope, ny.Name, ""); err != nil {
		return AcademicYear{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateYear(ctx, AcademicYear{
		ID:        core.NewID(),
		TenantID:  scope.TenantID,
		BranchID:  scope.BranchID,
		Name:      ny.Name,
		StartDate: ny.StartDate,
		EndDate:   ny.EndDate,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) QueryYears(ctx context.Context, scope core.Scope) ([]AcademicYear, error) {
	return svc.repo.QueryYears(ctx, scope)
}

func (svc *Service) GetYear(ctx context.Context, scope core.Scope, id string) (AcademicYear, error) {
	return svc.repo.GetYear(ctx, scope, id)
}

func (svc *Service) ActiveYear(ctx context.Context, scope core.Scope) (AcademicYear, error) {
	if err := core.RequireBranch(scope); err != nil {
		return AcademicYear{}, err
	}
	y, err := svc.repo.GetActiveYear(ctx, scope)
	if core.IsNotFound(err) {
		return AcademicYear{}, ErrNoActiveYear
	}
	return y, err
}

func (svc *Service) UpdateYear(ctx context.Context, scope core.Scope, y AcademicYear, uy UpdateAcademicYear) (AcademicYear, error) {
	if y.IsLocked {
		return AcademicYear{}, core.NewConflictError(ErrYearLocked)
	}
	if uy.Name != y.Name {
		if err := svc.checkYearName(ctx, scope, uy.Name, y.ID); err != nil {
			return AcademicYear{}, err
		}
	}
	y.Name = uy.Name
	y.StartDate = uy.StartDate
	y.EndDate = uy.EndDate
	y.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateYear(ctx, y)
}

// ActivateYear makes id the only active year of its branch.
func (svc *Service) ActivateYear(ctx context.Context, scope core.Scope, id string) (AcademicYear, error) {
	y, err := svc.repo.GetYear(ctx, scope, id)
	if err != nil {
		return AcademicYear{}, err
	}
	if y.IsLocked {
		return AcademicYear{}, core.NewConflictError(ErrYearLocked)
	}
	if y.IsActive {
		return y, nil
	}
	return svc.repo.ActivateYear(ctx, core.Scope{TenantID: y.TenantID, BranchID: y.BranchID}, y.ID)
}

// LockYear freezes the year: it can no longer be updated, activated or deleted.
func (svc *Service) LockYear(ctx context.Context, scope core.Scope, id string) (AcademicYear, error) {
	y, err := svc.repo.GetYear(ctx, scope, id)
	if err != nil {
		return AcademicYear{}, err
	}
	if y.IsLocked {
		return y, nil
	}
	y.IsLocked = true
	y.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateYear(ctx, y)
}

func (svc *Service) DeleteYear(ctx context.Context, scope core.Scope, id string) error {
	y, err := svc.repo.GetYear(ctx, scope, id)
	if err != nil {
		return err
	}
	if y.IsLocked {
		return core.NewConflictError(ErrYearLocked)
	}
	if y.IsActive {
		return core.NewConflictError(ErrYearActive)
	}
	return svc.repo.DeleteYear(ctx, scope, id)
}

// WritableYear returns the year with the given id, failing with a conflict when it is locked.
// An unknown year is reported as an academic_year_id field error.
func (svc *Service) WritableYear(ctx context.Context, scope core.Scope, id string) (AcademicYear, error) {
	y, err := svc.repo.GetYear(ctx, scope, id)
	if err != nil {
		if core.IsNotFound(err) {
			return AcademicYear{}, core.NewFieldError("academic_year_id", ErrUnknownYear)
		}
		return AcademicYear{}, errors.Wrap(err, "getting academic year")
	}
	if y.IsLocked {
		return AcademicYear{}, core.NewConflictError(ErrYearLocked)
	}
	return y, nil
}

// LockEndedYears locks every year that ended before today.
func (svc *Service) LockEndedYears(ctx context.Context, today core.Date) (int, error) {
	return svc.repo.LockYearsEndedBefore(ctx, today)
}

// CheckWritable returns ErrYearLocked when d falls in a locked year of the scope, and
// core.ErrNotFound (wrapped) when no year of the scope contains d.
func (svc *Service) CheckWritable(ctx context.Context, scope core.Scope, d core.Date) (AcademicYear, error) {
	years, err := svc.repo.QueryYears(ctx, scope)
	if err != nil {
		return AcademicYear{}, errors.Wrap(err, "querying academic years")
	}
	for _, y := range years {
		if y.Contains(d) {
			if y.IsLocked {
				return y, core.NewConflictError(ErrYearLocked)
			}
			return y, nil
		}
	}
	return AcademicYear{}, errors.Wrap(core.ErrNotFound, "no academic year for "+d.String())
}

// Class sections

func (svc *Service) CreateClassSection(ctx context.Context, scope core.Scope, nc NewClassSection) (ClassSection, error) {
	if err := core.RequireBranch(scope); err != nil {
		return ClassSection{}, err
	}
	existing, err := svc.repo.QueryClassSections(ctx, scope, ClassSectionFilter{})
	if err != nil {
		return ClassSection{}, errors.Wrap(err, "querying class sections")
	}
	if len(ProposeMissing(existing, []string{nc.ClassName}, []string{nc.SectionName})) == 0 {
		return ClassSection{}, core.NewFieldError("section_name", ErrClassSectionExists)
	}

	now := time.Now().UTC()
	created, err := svc.repo.CreateClassSections(ctx, ClassSection{
		ID:             core.NewID(),
		TenantID:       scope.TenantID,
		BranchID:       scope.BranchID,
		ClassName:      nc.ClassName,
		SectionName:    nc.SectionName,
		Capacity:       nc.Capacity,
		ClassTeacherID: nc.ClassTeacherID,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return ClassSection{}, err
	}
	return created[0], nil
}

// PreviewBulkClassSections lists the combinations BulkCreateClassSections would create.
func (svc *Service) PreviewBulkClassSections(ctx context.Context, scope core.Scope, bc BulkClassSections) ([]Combination, error) {
	if err := core.RequireBranch(scope); err != nil {
		return nil, err
	}
	existing, err := svc.repo.QueryClassSections(ctx, scope, ClassSectionFilter{})
	if err != nil {
		return nil, errors.Wrap(err, "querying class sections")
	}
	return ProposeMissing(existing, bc.Classes, bc.Sections), nil
}

// BulkCreateClassSections creates only the combinations that do not exist yet.
func (svc *Service) BulkCreateClassSections(ctx context.Context, scope core.Scope, bc BulkClassSections) ([]ClassSection, error) {
	combos, err := svc.PreviewBulkClassSections(ctx, scope, bc)
	if err != nil {
		return nil, err
	}
	if len(combos) == 0 {
		return []ClassSection{}, nil
	}

	now := time.Now().UTC()
	css := make([]ClassSection, 0, len(combos))
	for _, c := range combos {
		css = append(css, ClassSection{
			ID:          core.NewID(),
			TenantID:    scope.TenantID,
			BranchID:    scope.BranchID,
			ClassName:   c.ClassName,
			SectionName: c.SectionName,
			Capacity:    bc.Capacity,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return svc.repo.CreateClassSections(ctx, css...)
}

func (svc *Service) QueryClassSections(ctx context.Context, scope core.Scope, filter ClassSectionFilter) ([]ClassSection, error) {
	filter.Clean()
	return svc.repo.QueryClassSections(ctx, scope, filter)
}

func (svc *Service) GetClassSection(ctx context.Context, scope core.Scope, id string) (ClassSection, error) {
	return svc.repo.GetClassSection(ctx, scope, id)
}

func (svc *Service) UpdateClassSection(ctx context.Context, cs ClassSection, uc UpdateClassSection) (ClassSection, error) {
	if uc.Capacity != nil {
		cs.Capacity = *uc.Capacity
	}
	if uc.ClassTeacherID != nil {
		cs.ClassTeacherID = *uc.ClassTeacherID
	}
	cs.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClassSection(ctx, cs)
}

func (svc *Service) DeleteClassSection(ctx context.Context, scope core.Scope, id string) error {
	return svc.repo.DeleteClassSection(ctx, scope, id)
}
