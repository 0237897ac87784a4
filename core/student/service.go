package student

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

var (
	ErrAdmissionNoExists = errors.New("a student with this admission number already exists")
	ErrNotParent         = errors.New("user is not a parent")
	ErrParentLinked      = errors.New("this parent is already linked to the student")

	dobTag  = "dob"
	dobText = "{0} must be before the admission date"
)

type Repository interface {
	// AdmissionNoExists checks admission numbers within the branch of scope.
	AdmissionNoExists(ctx context.Context, scope core.Scope, admissionNo string, excludedID string) (bool, error)
	CreateStudents(ctx context.Context, ss ...Student) ([]Student, error)
	GetStudent(ctx context.Context, scope core.Scope, id string) (Student, error)
	FilterStudents(ctx context.Context, scope core.Scope, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) (core.Paged[Student], error)
	UpdateStudent(ctx context.Context, s Student) (Student, error)
	DeleteStudents(ctx context.Context, scope core.Scope, ids ...string) error

	// AddParent stores pa; when pa is primary, every other parent of the student stops being primary.
	AddParent(ctx context.Context, pa ParentAssociation) (ParentAssociation, error)
	// QueryParents lists the parents of the given students.
	QueryParents(ctx context.Context, scope core.Scope, studentIDs ...string) ([]ParentAssociation, error)
	RemoveParent(ctx context.Context, scope core.Scope, studentID, id string) error
}

// UserGetter resolves parent accounts.
type UserGetter interface {
	GetInScope(ctx context.Context, scope core.Scope, id string) (user.User, error)
}

type Service struct {
	repo  Repository
	users UserGetter
}

func NewService(repo Repository, users UserGetter) *Service {
	return &Service{repo: repo, users: users}
}

// InitValidators registers the student validations & translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		ns := sl.Current().Interface().(NewStudent)
		if !ns.DateOfBirth.IsZero() && !ns.AdmittedOn.IsZero() && !ns.DateOfBirth.Before(ns.AdmittedOn) {
			sl.ReportError(ns.DateOfBirth, "date_of_birth", "DateOfBirth", dobTag, "")
		}
	}, NewStudent{})
	core.RegisterCustomTranslation(validate, translator, dobTag, dobText)
}

func (svc *Service) checkAdmissionNo(ctx context.Context, scope core.Scope, admissionNo, excludedID string) error {
	exists, err := svc.repo.AdmissionNoExists(ctx, scope, admissionNo, excludedID)
	if err != nil {
		return errors.Wrap(err, "checking admission number")
	}
	if exists {
		return core.NewFieldError("admission_no", ErrAdmissionNoExists)
	}
	return nil
}

func newStudent(scope core.Scope, ns NewStudent, now time.Time) Student {
	return Student{
		ID:             core.NewID(),
		TenantID:       scope.TenantID,
		BranchID:       scope.BranchID,
		AdmissionNo:    ns.AdmissionNo,
		FirstName:      ns.FirstName,
		LastName:       ns.LastName,
		Email:          ns.Email,
		DateOfBirth:    ns.DateOfBirth,
		Gender:         ns.Gender,
		ClassSectionID: ns.ClassSectionID,
		AdmittedOn:     ns.AdmittedOn,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (svc *Service) Create(ctx context.Context, scope core.Scope, ns NewStudent) (Student, error) {
	if err := core.RequireBranch(scope); err != nil {
		return Student{}, err
	}
	if err := svc.checkAdmissionNo(ctx, scope, ns.AdmissionNo, ""); err != nil {
		return Student{}, err
	}
	created, err := svc.repo.CreateStudents(ctx, newStudent(scope, ns, time.Now().UTC()))
	if err != nil {
		return Student{}, err
	}
	return created[0], nil
}

func (svc *Service) Query(ctx context.Context, scope core.Scope, filter QueryFilter, ordering []core.DBOrdering, page core.Pagination) (core.Paged[Student], error) {
	filter.Clean()
	page.Clean()
	return svc.repo.FilterStudents(ctx, scope, filter, ordering, page)
}

func (svc *Service) Get(ctx context.Context, scope core.Scope, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, scope, id)
}

func (svc *Service) Update(ctx context.Context, s Student) (Student, error) {
	return svc.repo.UpdateStudent(ctx, s)
}

func (svc *Service) Delete(ctx context.Context, scope core.Scope, ids ...string) error {
	return svc.repo.DeleteStudents(ctx, scope, ids...)
}

// Parents

func (svc *Service) AddParent(ctx context.Context, scope core.Scope, studentID string, np NewParentAssociation) (ParentAssociation, error) {
	s, err := svc.repo.GetStudent(ctx, scope, studentID)
	if err != nil {
		return ParentAssociation{}, err
	}

	parent, err := svc.users.GetInScope(ctx, core.Scope{TenantID: s.TenantID}, np.ParentUserID)
	if err != nil {
		if core.IsNotFound(err) {
			return ParentAssociation{}, core.NewFieldError("parent_user_id", user.ErrNotFound)
		}
		return ParentAssociation{}, errors.Wrap(err, "getting parent user")
	}
	if !parent.IsParent() {
		return ParentAssociation{}, core.NewFieldError("parent_user_id", ErrNotParent)
	}

	existing, err := svc.repo.QueryParents(ctx, scope, s.ID)
	if err != nil {
		return ParentAssociation{}, errors.Wrap(err, "querying parents")
	}
	for _, pa := range existing {
		if pa.ParentUserID == parent.ID {
			return ParentAssociation{}, core.NewFieldError("parent_user_id", ErrParentLinked)
		}
	}

	return svc.repo.AddParent(ctx, ParentAssociation{
		ID:           core.NewID(),
		TenantID:     s.TenantID,
		BranchID:     s.BranchID,
		StudentID:    s.ID,
		ParentUserID: parent.ID,
		Relation:     np.Relation,
		// the first parent is primary
		IsPrimary: np.IsPrimary || len(existing) == 0,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) Parents(ctx context.Context, scope core.Scope, studentIDs ...string) ([]ParentAssociation, error) {
	return svc.repo.QueryParents(ctx, scope, studentIDs...)
}

func (svc *Service) RemoveParent(ctx context.Context, scope core.Scope, studentID, id string) error {
	return svc.repo.RemoveParent(ctx, scope, studentID, id)
}
