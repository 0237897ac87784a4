package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
)

type studentRepository struct {
	students *table[student.Student]
	parents  *table[student.ParentAssociation]
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{students: db.student, parents: db.parent}
}

var studentOrderings = map[string]func(a, b student.Student) bool{
	"admission_no": func(a, b student.Student) bool { return a.AdmissionNo < b.AdmissionNo },
	"first_name":   func(a, b student.Student) bool { return strings.ToLower(a.FirstName) < strings.ToLower(b.FirstName) },
	"last_name":    func(a, b student.Student) bool { return strings.ToLower(a.LastName) < strings.ToLower(b.LastName) },
	"admitted_on":  func(a, b student.Student) bool { return a.AdmittedOn.Before(b.AdmittedOn) },
	"created_at":   func(a, b student.Student) bool { return a.CreatedAt.Before(b.CreatedAt) },
}

func studentInScope(scope core.Scope) func(student.Student) bool {
	return func(s student.Student) bool { return scope.Contains(s.TenantID, s.BranchID) }
}

func (repo *studentRepository) AdmissionNoExists(_ context.Context, scope core.Scope, admissionNo string, excludedID string) (bool, error) {
	found := repo.students.query(func(s student.Student) bool {
		return s.TenantID == scope.TenantID && s.BranchID == scope.BranchID &&
			s.ID != excludedID && strings.EqualFold(s.AdmissionNo, admissionNo)
	}, nil)
	return len(found) > 0, nil
}

func (repo *studentRepository) CreateStudents(_ context.Context, ss ...student.Student) ([]student.Student, error) {
	repo.students.Lock()
	defer repo.students.Unlock()
	for _, s := range ss {
		repo.students.rows[s.ID] = s
	}
	return ss, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, scope core.Scope, id string) (student.Student, error) {
	return repo.students.get(id, studentInScope(scope))
}

func (repo *studentRepository) FilterStudents(_ context.Context, scope core.Scope, filter student.QueryFilter, ordering []core.DBOrdering, page core.Pagination) (core.Paged[student.Student], error) {
	inScope := studentInScope(scope)
	ss := repo.students.query(func(s student.Student) bool { return inScope(s) && filter.Match(s) }, nil)
	orderBy(ss, ordering, studentOrderings, studentOrderings["admission_no"])
	return paginate(ss, page), nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, s student.Student) (student.Student, error) {
	return repo.students.update(s.ID, s)
}

func (repo *studentRepository) DeleteStudents(_ context.Context, scope core.Scope, ids ...string) error {
	repo.students.deleteWhere(studentInScope(scope), ids...)

	deleted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		deleted[id] = struct{}{}
	}
	repo.parents.Lock()
	defer repo.parents.Unlock()
	for id, pa := range repo.parents.rows {
		if _, ok := deleted[pa.StudentID]; ok && scope.Contains(pa.TenantID, pa.BranchID) {
			delete(repo.parents.rows, id)
		}
	}
	return nil
}

func (repo *studentRepository) AddParent(_ context.Context, pa student.ParentAssociation) (student.ParentAssociation, error) {
	repo.parents.Lock()
	defer repo.parents.Unlock()
	if pa.IsPrimary {
		for id, other := range repo.parents.rows {
			if other.StudentID == pa.StudentID && other.IsPrimary {
				other.IsPrimary = false
				repo.parents.rows[id] = other
			}
		}
	}
	repo.parents.rows[pa.ID] = pa
	return pa, nil
}

func (repo *studentRepository) QueryParents(_ context.Context, scope core.Scope, studentIDs ...string) ([]student.ParentAssociation, error) {
	wanted := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = struct{}{}
	}
	return repo.parents.query(
		func(pa student.ParentAssociation) bool {
			_, ok := wanted[pa.StudentID]
			return ok && scope.Contains(pa.TenantID, pa.BranchID)
		},
		func(a, b student.ParentAssociation) bool {
			if a.IsPrimary != b.IsPrimary {
				return a.IsPrimary
			}
			return a.CreatedAt.Before(b.CreatedAt)
		},
	), nil
}

func (repo *studentRepository) RemoveParent(_ context.Context, scope core.Scope, studentID, id string) error {
	return repo.parents.deleteOne(id, func(pa student.ParentAssociation) bool {
		return pa.StudentID == studentID && scope.Contains(pa.TenantID, pa.BranchID)
	})
}
