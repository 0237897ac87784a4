package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/staff"
)

type staffRepository struct {
	db *table[staff.Staff]
}

var _ staff.Repository = (*staffRepository)(nil) // interface compliance check

func NewStaffRepository(db *DB) *staffRepository {
	return &staffRepository{db: db.staff}
}

var staffOrderings = map[string]func(a, b staff.Staff) bool{
	"first_name":  func(a, b staff.Staff) bool { return strings.ToLower(a.FirstName) < strings.ToLower(b.FirstName) },
	"last_name":   func(a, b staff.Staff) bool { return strings.ToLower(a.LastName) < strings.ToLower(b.LastName) },
	"designation": func(a, b staff.Staff) bool { return a.Designation < b.Designation },
	"joined_on":   func(a, b staff.Staff) bool { return a.JoinedOn.Before(b.JoinedOn) },
	"created_at":  func(a, b staff.Staff) bool { return a.CreatedAt.Before(b.CreatedAt) },
}

func staffInScope(scope core.Scope) func(staff.Staff) bool {
	return func(s staff.Staff) bool { return scope.Contains(s.TenantID, s.BranchID) }
}

func (repo *staffRepository) EmailExists(_ context.Context, scope core.Scope, email string, excludedID string) (bool, error) {
	inScope := staffInScope(scope)
	found := repo.db.query(func(s staff.Staff) bool {
		return inScope(s) && s.ID != excludedID && s.Email == email
	}, nil)
	return len(found) > 0, nil
}

func (repo *staffRepository) CreateStaff(_ context.Context, s staff.Staff) (staff.Staff, error) {
	repo.db.put(s.ID, s)
	return s, nil
}

func (repo *staffRepository) GetStaff(_ context.Context, scope core.Scope, id string) (staff.Staff, error) {
	return repo.db.get(id, staffInScope(scope))
}

func (repo *staffRepository) FilterStaff(_ context.Context, scope core.Scope, filter staff.QueryFilter, ordering []core.DBOrdering, page core.Pagination) (core.Paged[staff.Staff], error) {
	inScope := staffInScope(scope)
	ss := repo.db.query(func(s staff.Staff) bool { return inScope(s) && filter.Match(s) }, nil)
	orderBy(ss, ordering, staffOrderings, staffOrderings["last_name"])
	return paginate(ss, page), nil
}

func (repo *staffRepository) UpdateStaff(_ context.Context, s staff.Staff) (staff.Staff, error) {
	return repo.db.update(s.ID, s)
}

func (repo *staffRepository) DeleteStaff(_ context.Context, scope core.Scope, ids ...string) error {
	repo.db.deleteWhere(staffInScope(scope), ids...)
	return nil
}
