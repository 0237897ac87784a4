package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

var userOrderings = map[string]string{
	"name":       "name",
	"username":   "username",
	"email":      "email",
	"created_at": "created_at",
	"last_login": "last_login",
}

type userRow struct {
	ID           string         `db:"id"`
	TenantID     string         `db:"tenant_id"`
	BranchID     null.String    `db:"branch_id"`
	Name         string         `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func newUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		TenantID:     usr.TenantID,
		BranchID:     nullString(usr.BranchID),
		Name:         usr.Name,
		Username:     nullString(usr.Username),
		Email:        nullString(usr.Email),
		IsActive:     usr.IsActive,
		Roles:        pq.StringArray(usr.Roles),
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) user() user.User {
	roles := []string(r.Roles)
	if roles == nil {
		roles = []string{}
	}
	return user.User{
		ID:           r.ID,
		TenantID:     r.TenantID,
		BranchID:     r.BranchID.String,
		Name:         r.Name,
		Username:     r.Username.String,
		Email:        r.Email.String,
		IsActive:     r.IsActive,
		Roles:        roles,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin.Time,
	}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedIDs ...string) error {
	var rows []userRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM "user" WHERE ((username = $1 AND $1 <> '') OR (email = $2 AND $2 <> '')) AND NOT (id::text = ANY($3))`,
		username, email, pq.Array(excludedIDs),
	)
	if err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, r := range rows {
		if username != "" && r.Username.String == username {
			return user.ErrUsernameExists
		}
	}
	if len(rows) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO "user" (id, tenant_id, branch_id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :tenant_id, :branch_id, :name, :username, :email, :is_active, :roles, :password_hash, :created_at, :updated_at, :last_login)`,
		newUserRow(usr),
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var (
		q   string
		arg string
	)
	switch {
	case filter.ID != "":
		q, arg = `SELECT * FROM "user" WHERE id = $1`, filter.ID
	case filter.Email != "":
		q, arg = `SELECT * FROM "user" WHERE email = $1`, filter.Email
	case filter.UsernameOrEmail != "":
		q, arg = `SELECT * FROM "user" WHERE username = $1 OR email = $1 LIMIT 1`, filter.UsernameOrEmail
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := repo.db.GetContext(ctx, &row, q, arg); err != nil {
		return user.User{}, trapNoRowsErr(err, "selecting user")
	}
	return row.user(), nil
}

func (repo *userRepository) FilterUsers(ctx context.Context, scope core.Scope, filter user.QueryFilter, ordering []core.DBOrdering, page core.Pagination) (core.Paged[user.User], error) {
	w := new(where)
	w.scope(scope)
	// users with Name, Username or Email matching the search keyword
	if filter.Search != "" {
		val := likePattern(filter.Search)
		w.add("(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)", val, val, val)
	}
	// users with any role that starts with any of the provided roles
	if len(filter.Roles) > 0 {
		patterns := make([]string, 0, len(filter.Roles))
		for _, role := range filter.Roles {
			patterns = append(patterns, role+"%")
		}
		w.add("EXISTS (SELECT 1 FROM UNNEST(roles) user_role WHERE user_role LIKE ANY(?))", pq.Array(patterns))
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}
	if !filter.CreatedFrom.IsZero() {
		w.add("created_at >= ?", filter.CreatedFrom.Time)
	}
	if !filter.CreatedTo.IsZero() {
		w.add("created_at < ?", filter.CreatedTo.AddDays(1).Time)
	}

	res := core.Paged[user.User]{Pagination: page}
	if err := repo.db.GetContext(ctx, &res.Total, w.sql(repo.db, `SELECT COUNT(*) FROM "user"`), w.args...); err != nil {
		return res, errors.Wrap(err, "counting users")
	}

	limit, args := pageClause(w, page)
	var rows []userRow
	q := w.sql(repo.db, `SELECT * FROM "user"`, " ORDER BY "+core.OrderByClause(ordering, userOrderings, "name ASC"), limit)
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return res, errors.Wrap(err, "selecting users")
	}
	res.Items = make([]user.User, 0, len(rows))
	for _, r := range rows {
		res.Items = append(res.Items, r.user())
	}
	return res, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE "user" SET branch_id = :branch_id, name = :name, username = :username, email = :email,
			is_active = :is_active, roles = :roles, password_hash = :password_hash,
			updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`,
		newUserRow(usr),
	)
	if err := checkAffected(res, err, "updating user"); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsers(ctx context.Context, scope core.Scope, ids ...string) error {
	w := new(where)
	w.scope(scope)
	w.add("id::text = ANY(?)", pq.Array(ids))
	_, err := repo.db.ExecContext(ctx, w.sql(repo.db, `DELETE FROM "user"`), w.args...)
	return errors.Wrap(err, "deleting users")
}
