package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

type userRepository struct {
	db *table[user.User]
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db.user}
}

var userOrderings = map[string]func(a, b user.User) bool{
	"name":       func(a, b user.User) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) },
	"username":   func(a, b user.User) bool { return a.Username < b.Username },
	"email":      func(a, b user.User) bool { return a.Email < b.Email },
	"created_at": func(a, b user.User) bool { return a.CreatedAt.Before(b.CreatedAt) },
	"last_login": func(a, b user.User) bool { return a.LastLogin.Before(b.LastLogin) },
}

func isExcluded(id string, excludedIDs []string) bool {
	for _, excl := range excludedIDs {
		if excl == id {
			return true
		}
	}
	return false
}

func (repo *userRepository) CheckUniqueness(_ context.Context, username, email string, excludedIDs ...string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.rows {
		if isExcluded(usr.ID, excludedIDs) {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.put(usr.ID, usr)
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	if filter.ID != "" {
		return repo.db.get(filter.ID, nil)
	}

	found := repo.db.query(func(usr user.User) bool {
		switch {
		case filter.Email != "":
			return usr.Email == filter.Email
		case filter.UsernameOrEmail != "":
			return usr.Username == filter.UsernameOrEmail || usr.Email == filter.UsernameOrEmail
		}
		return false
	}, nil)
	if len(found) == 0 {
		return user.User{}, user.ErrNotFound
	}
	return found[0], nil
}

func (repo *userRepository) FilterUsers(_ context.Context, scope core.Scope, filter user.QueryFilter, ordering []core.DBOrdering, page core.Pagination) (core.Paged[user.User], error) {
	users := repo.db.query(func(usr user.User) bool {
		return scope.Contains(usr.TenantID, usr.BranchID) && filter.Match(usr)
	}, nil)
	orderBy(users, ordering, userOrderings, userOrderings["name"])
	return paginate(users, page), nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	return repo.db.update(usr.ID, usr)
}

func (repo *userRepository) DeleteUsers(_ context.Context, scope core.Scope, ids ...string) error {
	repo.db.deleteWhere(func(usr user.User) bool { return scope.Contains(usr.TenantID, usr.BranchID) }, ids...)
	return nil
}
