package attendance

import (
	"context"
	"fmt"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/schedule"
	"github.com/trezcool/shule/core/student"
)

var (
	ErrFutureDate    = errors.New("attendance cannot be marked for a future date")
	ErrNoYear        = errors.New("no academic year covers this date")
	ErrClosed        = errors.New("the school is closed on this date")
	ErrNotInClass    = errors.New("student is not in this class section")
	ErrDuplicateMark = errors.New("student marked more than once")

	NowFunc = core.Today // mockable

	uniqueMarksTag  = "uniquemarks"
	uniqueMarksText = "each student can only be marked once"
)

type Repository interface {
	// UpsertRecords stores records, replacing any existing record of the same student & date.
	// The replaced record's id, creation time and NotifiedAt are kept.
	UpsertRecords(ctx context.Context, records ...Record) ([]Record, error)
	QueryRecords(ctx context.Context, scope core.Scope, filter QueryFilter) ([]Record, error)
}

type (
	YearChecker interface {
		CheckWritable(ctx context.Context, scope core.Scope, d core.Date) (academic.AcademicYear, error)
		GetClassSection(ctx context.Context, scope core.Scope, id string) (academic.ClassSection, error)
	}

	Calendar interface {
		ClosedOn(ctx context.Context, scope core.Scope, d core.Date) (schedule.ClosedDay, bool, error)
	}

	Students interface {
		Query(ctx context.Context, scope core.Scope, filter student.QueryFilter, ordering []core.DBOrdering, page core.Pagination) (core.Paged[student.Student], error)
		Parents(ctx context.Context, scope core.Scope, studentIDs ...string) ([]student.ParentAssociation, error)
	}

	Notifier interface {
		Notify(ctx context.Context, scope core.Scope, nn notification.NewNotification) ([]notification.Notification, error)
	}
)

type Service struct {
	repo     Repository
	years    YearChecker
	calendar Calendar
	students Students
	notifier Notifier
	logger   core.Logger
}

func NewService(repo Repository, years YearChecker, calendar Calendar, students Students, notifier Notifier, logger core.Logger) *Service {
	return &Service{
		repo:     repo,
		years:    years,
		calendar: calendar,
		students: students,
		notifier: notifier,
		logger:   logger,
	}
}

// InitValidators registers the attendance validations & translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		bm := sl.Current().Interface().(BulkMark)
		seen := make(map[string]struct{}, len(bm.Marks))
		for _, m := range bm.Marks {
			if _, dup := seen[m.StudentID]; dup {
				sl.ReportError(bm.Marks, "marks", "Marks", uniqueMarksTag, "")
				return
			}
			seen[m.StudentID] = struct{}{}
		}
	}, BulkMark{})
	core.RegisterCustomTranslation(validate, translator, uniqueMarksTag, uniqueMarksText)
}

// classStudents returns the students of the class section (every student when empty), by ID.
func (svc *Service) classStudents(ctx context.Context, scope core.Scope, classSectionID string) (map[string]student.Student, error) {
	res := make(map[string]student.Student)
	page := core.Pagination{Page: 1, PerPage: core.MaxPerPage}
	for {
		paged, err := svc.students.Query(ctx, scope, student.QueryFilter{ClassSectionID: classSectionID}, nil, page)
		if err != nil {
			return nil, errors.Wrap(err, "querying class students")
		}
		for _, s := range paged.Items {
			res[s.ID] = s
		}
		if page.Page*page.PerPage >= paged.Total || len(paged.Items) == 0 {
			return res, nil
		}
		page.Page++
	}
}

// MarkClass records the attendance of a class section for a date.
// The date must not be in the future, must fall in an unlocked academic year and must not be a holiday.
// Parents are notified the first time a student is marked absent on that date.
func (svc *Service) MarkClass(ctx context.Context, scope core.Scope, markedBy string, bm BulkMark) ([]Record, error) {
	cs, err := svc.years.GetClassSection(ctx, scope, bm.ClassSectionID)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, core.NewFieldError("class_section_id", errors.New("unknown class section"))
		}
		return nil, errors.Wrap(err, "getting class section")
	}
	csScope := core.Scope{TenantID: cs.TenantID, BranchID: cs.BranchID}

	if bm.Date.After(NowFunc()) {
		return nil, core.NewFieldError("date", ErrFutureDate)
	}
	if _, err := svc.years.CheckWritable(ctx, csScope, bm.Date); err != nil {
		if core.IsNotFound(err) {
			return nil, core.NewFieldError("date", ErrNoYear)
		}
		return nil, err
	}
	closed, isClosed, err := svc.calendar.ClosedOn(ctx, csScope, bm.Date)
	if err != nil {
		return nil, errors.Wrap(err, "checking calendar")
	}
	if isClosed {
		return nil, core.NewFieldError("date", errors.Wrap(ErrClosed, closed.Reason))
	}

	students, err := svc.classStudents(ctx, csScope, cs.ID)
	if err != nil {
		return nil, err
	}
	previous, err := svc.repo.QueryRecords(ctx, csScope, QueryFilter{ClassSectionID: cs.ID, From: bm.Date, To: bm.Date})
	if err != nil {
		return nil, errors.Wrap(err, "querying previous records")
	}
	notified := make(map[string]*time.Time, len(previous))
	for _, r := range previous {
		notified[r.StudentID] = r.NotifiedAt
	}

	now := time.Now().UTC()
	records := make([]Record, 0, len(bm.Marks))
	var absent []student.Student
	for _, m := range bm.Marks {
		if _, ok := students[m.StudentID]; !ok {
			return nil, core.NewFieldError("marks", errors.Wrap(ErrNotInClass, m.StudentID))
		}
		rec := Record{
			ID:             core.NewID(),
			TenantID:       cs.TenantID,
			BranchID:       cs.BranchID,
			StudentID:      m.StudentID,
			ClassSectionID: cs.ID,
			Date:           bm.Date,
			Status:         m.Status,
			Remarks:        m.Remarks,
			MarkedBy:       markedBy,
			NotifiedAt:     notified[m.StudentID],
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if rec.Status == StatusAbsent && rec.NotifiedAt == nil {
			rec.NotifiedAt = &now
			absent = append(absent, students[m.StudentID])
		}
		records = append(records, rec)
	}

	saved, err := svc.repo.UpsertRecords(ctx, records...)
	if err != nil {
		return nil, errors.Wrap(err, "saving attendance")
	}

	svc.notifyAbsences(ctx, csScope, bm.Date, absent)
	return saved, nil
}

// notifyAbsences is best effort: failures are logged.
func (svc *Service) notifyAbsences(ctx context.Context, scope core.Scope, d core.Date, absent []student.Student) {
	if len(absent) == 0 {
		return
	}
	ids := make([]string, 0, len(absent))
	for _, s := range absent {
		ids = append(ids, s.ID)
	}
	parents, err := svc.students.Parents(ctx, scope, ids...)
	if err != nil {
		svc.logger.Error("querying parents of absent students", "error", err)
		return
	}

	byStudent := make(map[string][]string)
	for _, pa := range parents {
		byStudent[pa.StudentID] = append(byStudent[pa.StudentID], pa.ParentUserID)
	}
	for _, s := range absent {
		parentIDs := byStudent[s.ID]
		if len(parentIDs) == 0 {
			continue
		}
		_, err := svc.notifier.Notify(ctx, core.Scope{TenantID: scope.TenantID}, notification.NewNotification{
			UserIDs:   parentIDs,
			Title:     fmt.Sprintf("%s was absent", s.FullName()),
			Body:      fmt.Sprintf("%s was marked absent on %s.", s.FullName(), d),
			SendEmail: true,
		})
		if err != nil {
			svc.logger.Error("notifying parents", "student", s.ID, "error", err)
		}
	}
}

func (svc *Service) Query(ctx context.Context, scope core.Scope, filter QueryFilter) ([]Record, error) {
	filter.Clean()
	return svc.repo.QueryRecords(ctx, scope, filter)
}
