package schedule

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

var (
	ErrOutsideYear = errors.New("date is outside of the academic year")

	periodsOrderTag  = "periodsorder"
	periodsOrderText = "periods must be ordered and must not overlap"
)

type Repository interface {
	CreateTimingTemplate(ctx context.Context, t TimingTemplate) (TimingTemplate, error)
	QueryTimingTemplates(ctx context.Context, scope core.Scope) ([]TimingTemplate, error)
	GetTimingTemplate(ctx context.Context, scope core.Scope, id string) (TimingTemplate, error)
	UpdateTimingTemplate(ctx context.Context, t TimingTemplate) (TimingTemplate, error)
	DeleteTimingTemplate(ctx context.Context, scope core.Scope, id string) error

	CreateHoliday(ctx context.Context, h PublicHoliday) (PublicHoliday, error)
	QueryHolidays(ctx context.Context, scope core.Scope, yearID string) ([]PublicHoliday, error)
	GetHoliday(ctx context.Context, scope core.Scope, id string) (PublicHoliday, error)
	DeleteHoliday(ctx context.Context, scope core.Scope, id string) error

	CreateVacation(ctx context.Context, v Vacation) (Vacation, error)
	QueryVacations(ctx context.Context, scope core.Scope, yearID string) ([]Vacation, error)
	GetVacation(ctx context.Context, scope core.Scope, id string) (Vacation, error)
	DeleteVacation(ctx context.Context, scope core.Scope, id string) error
}

// YearGetter is the part of the academic service the schedule depends on.
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

// InitValidators registers the schedule validations & translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(scheduleStructValidation, NewTimingTemplate{}, NewVacation{})
	core.RegisterCustomTranslation(validate, translator, periodsOrderTag, periodsOrderText)
}

func scheduleStructValidation(sl validator.StructLevel) {
	switch v := sl.Current().Interface().(type) {
	case NewTimingTemplate:
		if !PeriodsOrdered(v.Periods) {
			sl.ReportError(v.Periods, "periods", "Periods", periodsOrderTag, "")
		}
	case NewVacation:
		if !v.StartDate.IsZero() && !v.EndDate.IsZero() && v.EndDate.Before(v.StartDate) {
			sl.ReportError(v.EndDate, "end_date", "EndDate", core.DateRangeTag, "")
		}
	}
}

// PeriodsOrdered reports whether every period ends after it starts and before the next one starts.
// HH:MM strings compare chronologically.
func PeriodsOrdered(periods []Period) bool {
	for i, p := range periods {
		if p.End <= p.Start {
			return false
		}
		if i > 0 && p.Start < periods[i-1].End {
			return false
		}
	}
	return true
}

// Timing templates

func (svc *Service) CreateTimingTemplate(ctx context.Context, scope core.Scope, nt NewTimingTemplate) (TimingTemplate, error) {
	if err := core.RequireBranch(scope); err != nil {
		return TimingTemplate{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateTimingTemplate(ctx, TimingTemplate{
		ID:        core.NewID(),
		TenantID:  scope.TenantID,
		BranchID:  scope.BranchID,
		Name:      nt.Name,
		Periods:   nt.Periods,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) QueryTimingTemplates(ctx context.Context, scope core.Scope) ([]TimingTemplate, error) {
	return svc.repo.QueryTimingTemplates(ctx, scope)
}

func (svc *Service) GetTimingTemplate(ctx context.Context, scope core.Scope, id string) (TimingTemplate, error) {
	return svc.repo.GetTimingTemplate(ctx, scope, id)
}

func (svc *Service) UpdateTimingTemplate(ctx context.Context, t TimingTemplate, nt NewTimingTemplate) (TimingTemplate, error) {
	t.Name = nt.Name
	t.Periods = nt.Periods
	t.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTimingTemplate(ctx, t)
}

func (svc *Service) DeleteTimingTemplate(ctx context.Context, scope core.Scope, id string) error {
	return svc.repo.DeleteTimingTemplate(ctx, scope, id)
}

// Public holidays

func (svc *Service) CreateHoliday(ctx context.Context, scope core.Scope, nh NewPublicHoliday) (PublicHoliday, error) {
	y, err := svc.years.WritableYear(ctx, scope, nh.AcademicYearID)
	if err != nil {
		return PublicHoliday{}, err
	}
	if !y.Contains(nh.Date) {
		return PublicHoliday{}, core.NewFieldError("date", ErrOutsideYear)
	}
	return svc.repo.CreateHoliday(ctx, PublicHoliday{
		ID:             core.NewID(),
		TenantID:       y.TenantID,
		BranchID:       y.BranchID,
		AcademicYearID: y.ID,
		Name:           nh.Name,
		Date:           nh.Date,
		CreatedAt:      time.Now().UTC(),
	})
}

func (svc *Service) QueryHolidays(ctx context.Context, scope core.Scope, yearID string) ([]PublicHoliday, error) {
	return svc.repo.QueryHolidays(ctx, scope, yearID)
}

func (svc *Service) DeleteHoliday(ctx context.Context, scope core.Scope, id string) error {
	h, err := svc.repo.GetHoliday(ctx, scope, id)
	if err != nil {
		return err
	}
	if _, err := svc.years.WritableYear(ctx, scope, h.AcademicYearID); err != nil {
		return err
	}
	return svc.repo.DeleteHoliday(ctx, scope, id)
}

// Vacations

func (svc *Service) CreateVacation(ctx context.Context, scope core.Scope, nv NewVacation) (Vacation, error) {
	y, err := svc.years.WritableYear(ctx, scope, nv.AcademicYearID)
	if err != nil {
		return Vacation{}, err
	}
	if !y.Contains(nv.StartDate) {
		return Vacation{}, core.NewFieldError("start_date", ErrOutsideYear)
	}
	if !y.Contains(nv.EndDate) {
		return Vacation{}, core.NewFieldError("end_date", ErrOutsideYear)
	}
	return svc.repo.CreateVacation(ctx, Vacation{
		ID:             core.NewID(),
		TenantID:       y.TenantID,
		BranchID:       y.BranchID,
		AcademicYearID: y.ID,
		Name:           nv.Name,
		StartDate:      nv.StartDate,
		EndDate:        nv.EndDate,
		CreatedAt:      time.Now().UTC(),
	})
}

func (svc *Service) QueryVacations(ctx context.Context, scope core.Scope, yearID string) ([]Vacation, error) {
	return svc.repo.QueryVacations(ctx, scope, yearID)
}

func (svc *Service) DeleteVacation(ctx context.Context, scope core.Scope, id string) error {
	v, err := svc.repo.GetVacation(ctx, scope, id)
	if err != nil {
		return err
	}
	if _, err := svc.years.WritableYear(ctx, scope, v.AcademicYearID); err != nil {
		return err
	}
	return svc.repo.DeleteVacation(ctx, scope, id)
}

// ClosedOn reports why the school is closed on d (public holiday or vacation), if it is.
func (svc *Service) ClosedOn(ctx context.Context, scope core.Scope, d core.Date) (ClosedDay, bool, error) {
	holidays, err := svc.repo.QueryHolidays(ctx, scope, "")
	if err != nil {
		return ClosedDay{}, false, errors.Wrap(err, "querying holidays")
	}
	for _, h := range holidays {
		if h.Date.Equal(d) {
			return ClosedDay{Date: d, Reason: h.Name}, true, nil
		}
	}

	vacations, err := svc.repo.QueryVacations(ctx, scope, "")
	if err != nil {
		return ClosedDay{}, false, errors.Wrap(err, "querying vacations")
	}
	for _, v := range vacations {
		if v.Contains(d) {
			return ClosedDay{Date: d, Reason: v.Name}, true, nil
		}
	}
	return ClosedDay{}, false, nil
}

// ClosedDays lists every closed day of the year, sorted by date.
func (svc *Service) ClosedDays(ctx context.Context, scope core.Scope, yearID string) ([]ClosedDay, error) {
	holidays, err := svc.repo.QueryHolidays(ctx, scope, yearID)
	if err != nil {
		return nil, errors.Wrap(err, "querying holidays")
	}
	vacations, err := svc.repo.QueryVacations(ctx, scope, yearID)
	if err != nil {
		return nil, errors.Wrap(err, "querying vacations")
	}

	seen := make(map[string]struct{})
	days := make([]ClosedDay, 0, len(holidays))
	add := func(d core.Date, reason string) {
		if _, ok := seen[d.String()]; ok {
			return
		}
		seen[d.String()] = struct{}{}
		days = append(days, ClosedDay{Date: d, Reason: reason})
	}
	for _, h := range holidays {
		add(h.Date, h.Name)
	}
	for _, v := range vacations {
		for d := v.StartDate; !d.After(v.EndDate); d = d.AddDays(1) {
			add(d, v.Name)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days, nil
}
