package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/staff"
)

type staffRepository struct {
	db *sqlx.DB
}

var _ staff.Repository = (*staffRepository)(nil) // interface compliance check

func NewStaffRepository(db *sqlx.DB) *staffRepository {
	return &staffRepository{db: db}
}

var staffOrderings = map[string]string{
	"first_name":  "first_name",
	"last_name":   "last_name",
	"designation": "designation",
	"joined_on":   "joined_on",
	"created_at":  "created_at",
}

type staffRow struct {
	ID          string      `db:"id"`
	TenantID    string      `db:"tenant_id"`
	BranchID    string      `db:"branch_id"`
	UserID      null.String `db:"user_id"`
	FirstName   string      `db:"first_name"`
	LastName    string      `db:"last_name"`
	Email       string      `db:"email"`
	Phone       null.String `db:"phone"`
	Designation string      `db:"designation"`
	Department  null.String `db:"department"`
	JoinedOn    core.Date   `db:"joined_on"`
	IsActive    bool        `db:"is_active"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func newStaffRow(s staff.Staff) staffRow {
	return staffRow{
		ID:          s.ID,
		TenantID:    s.TenantID,
		BranchID:    s.BranchID,
		UserID:      nullString(s.UserID),
		FirstName:   s.FirstName,
		LastName:    s.LastName,
		Email:       s.Email,
		Phone:       nullString(s.Phone),
		Designation: s.Designation,
		Department:  nullString(s.Department),
		JoinedOn:    s.JoinedOn,
		IsActive:    s.IsActive,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (r staffRow) staff() staff.Staff {
	return staff.Staff{
		ID:          r.ID,
		TenantID:    r.TenantID,
		BranchID:    r.BranchID,
		UserID:      r.UserID.String,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		Phone:       r.Phone.String,
		Designation: r.Designation,
		Department:  r.Department.String,
		JoinedOn:    r.JoinedOn,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (repo *staffRepository) EmailExists(ctx context.Context, scope core.Scope, email string, excludedID string) (bool, error) {
	w := new(where)
	w.add("tenant_id = ?", scope.TenantID)
	w.add("email = ?", email)
	w.add("id::text <> ?", excludedID)
	var exists bool
	err := repo.db.GetContext(ctx, &exists, w.sql(repo.db, `SELECT EXISTS (SELECT 1 FROM staff`, `)`), w.args...)
	return exists, errors.Wrap(err, "checking staff email")
}

func (repo *staffRepository) CreateStaff(ctx context.Context, s staff.Staff) (staff.Staff, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO staff (id, tenant_id, branch_id, user_id, first_name, last_name, email, phone, designation,
			department, joined_on, is_active, created_at, updated_at)
		VALUES (:id, :tenant_id, :branch_id, :user_id, :first_name, :last_name, :email, :phone, :designation,
			:department, :joined_on, :is_active, :created_at, :updated_at)`,
		newStaffRow(s),
	)
	if err != nil {
		return staff.Staff{}, errors.Wrap(err, "inserting staff")
	}
	return s, nil
}

func (repo *staffRepository) GetStaff(ctx context.Context, scope core.Scope, id string) (staff.Staff, error) {
	w := new(where)
	w.scope(scope)
	w.add("id = ?", id)
	var row staffRow
	if err := repo.db.GetContext(ctx, &row, w.sql(repo.db, `SELECT * FROM staff`), w.args...); err != nil {
		return staff.Staff{}, trapNoRowsErr(err, "selecting staff")
	}
	return row.staff(), nil
}

func (repo *staffRepository) FilterStaff(ctx context.Context, scope core.Scope, filter staff.QueryFilter, ordering []core.DBOrdering, page core.Pagination) (core.Paged[staff.Staff], error) {
	w := new(where)
	w.scope(scope)
	if filter.Search != "" {
		val := likePattern(filter.Search)
		w.add("(first_name || ' ' || last_name ILIKE ? OR email ILIKE ? OR phone ILIKE ?)", val, val, val)
	}
	if filter.Designation != "" {
		w.add("lower(designation) = ?", filter.Designation)
	}
	if filter.Department != "" {
		w.add("lower(department) = ?", filter.Department)
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}

	res := core.Paged[staff.Staff]{Pagination: page}
	if err := repo.db.GetContext(ctx, &res.Total, w.sql(repo.db, `SELECT COUNT(*) FROM staff`), w.args...); err != nil {
		return res, errors.Wrap(err, "counting staff")
	}

	limit, args := pageClause(w, page)
	var rows []staffRow
	q := w.sql(repo.db, `SELECT * FROM staff`, " ORDER BY "+core.OrderByClause(ordering, staffOrderings, "last_name ASC"), limit)
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return res, errors.Wrap(err, "selecting staff")
	}
	res.Items = make([]staff.Staff, 0, len(rows))
	for _, r := range rows {
		res.Items = append(res.Items, r.staff())
	}
	return res, nil
}

func (repo *staffRepository) UpdateStaff(ctx context.Context, s staff.Staff) (staff.Staff, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE staff SET first_name = :first_name, last_name = :last_name, email = :email, phone = :phone,
			designation = :designation, department = :department, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`,
		newStaffRow(s),
	)
	if err := checkAffected(res, err, "updating staff"); err != nil {
		return staff.Staff{}, err
	}
	return s, nil
}

func (repo *staffRepository) DeleteStaff(ctx context.Context, scope core.Scope, ids ...string) error {
	w := new(where)
	w.scope(scope)
	w.add("id::text = ANY(?)", pq.Array(ids))
	_, err := repo.db.ExecContext(ctx, w.sql(repo.db, `DELETE FROM staff`), w.args...)
	return errors.Wrap(err, "deleting staff")
}
