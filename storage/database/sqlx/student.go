package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
)

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

var studentOrderings = map[string]string{
	"admission_no": "admission_no",
	"first_name":   "first_name",
	"last_name":    "last_name",
	"admitted_on":  "admitted_on",
	"created_at":   "created_at",
}

type studentRow struct {
	ID             string      `db:"id"`
	TenantID       string      `db:"tenant_id"`
	BranchID       string      `db:"branch_id"`
	AdmissionNo    string      `db:"admission_no"`
	FirstName      string      `db:"first_name"`
	LastName       string      `db:"last_name"`
	Email          null.String `db:"email"`
	DateOfBirth    core.Date   `db:"date_of_birth"`
	Gender         string      `db:"gender"`
	ClassSectionID null.String `db:"class_section_id"`
	AdmittedOn     core.Date   `db:"admitted_on"`
	IsActive       bool        `db:"is_active"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

func newStudentRow(s student.Student) studentRow {
	return studentRow{
		ID:             s.ID,
		TenantID:       s.TenantID,
		BranchID:       s.BranchID,
		AdmissionNo:    s.AdmissionNo,
		FirstName:      s.FirstName,
		LastName:       s.LastName,
		Email:          nullString(s.Email),
		DateOfBirth:    s.DateOfBirth,
		Gender:         s.Gender,
		ClassSectionID: nullString(s.ClassSectionID),
		AdmittedOn:     s.AdmittedOn,
		IsActive:       s.IsActive,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func (r studentRow) student() student.Student {
	return student.Student{
		ID:             r.ID,
		TenantID:       r.TenantID,
		BranchID:       r.BranchID,
		AdmissionNo:    r.AdmissionNo,
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Email:          r.Email.String,
		DateOfBirth:    r.DateOfBirth,
		Gender:         r.Gender,
		ClassSectionID: r.ClassSectionID.String,
		AdmittedOn:     r.AdmittedOn,
		IsActive:       r.IsActive,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func (repo *studentRepository) AdmissionNoExists(ctx context.Context, scope core.Scope, admissionNo string, excludedID string) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM student
			WHERE tenant_id = $1 AND branch_id = $2 AND lower(admission_no) = lower($3) AND id::text <> $4
		)`,
		scope.TenantID, scope.BranchID, admissionNo, excludedID,
	)
	return exists, errors.Wrap(err, "checking admission number")
}

func (repo *studentRepository) CreateStudents(ctx context.Context, ss ...student.Student) ([]student.Student, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		for _, s := range ss {
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO student (id, tenant_id, branch_id, admission_no, first_name, last_name, email, date_of_birth,
					gender, class_section_id, admitted_on, is_active, created_at, updated_at)
				VALUES (:id, :tenant_id, :branch_id, :admission_no, :first_name, :last_name, :email, :date_of_birth,
					:gender, :class_section_id, :admitted_on, :is_active, :created_at, :updated_at)`,
				newStudentRow(s),
			); err != nil {
				return errors.Wrapf(err, "inserting student %s", s.AdmissionNo)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ss, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, scope core.Scope, id string) (student.Student, error) {
	w := new(where)
	w.scope(scope)
	w.add("id = ?", id)
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, w.sql(repo.db, `SELECT * FROM student`), w.args...); err != nil {
		return student.Student{}, trapNoRowsErr(err, "selecting student")
	}
	return row.student(), nil
}

func (repo *studentRepository) FilterStudents(ctx context.Context, scope core.Scope, filter student.QueryFilter, ordering []core.DBOrdering, page core.Pagination) (core.Paged[student.Student], error) {
	w := new(where)
	w.scope(scope)
	if filter.Search != "" {
		val := likePattern(filter.Search)
		w.add("(first_name || ' ' || last_name ILIKE ? OR admission_no ILIKE ? OR email ILIKE ?)", val, val, val)
	}
	if filter.ClassSectionID != "" {
		w.add("class_section_id = ?", filter.ClassSectionID)
	}
	if filter.Gender != "" {
		w.add("gender = ?", filter.Gender)
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}
	if !filter.AdmittedFrom.IsZero() {
		w.add("admitted_on >= ?", filter.AdmittedFrom)
	}
	if !filter.AdmittedTo.IsZero() {
		w.add("admitted_on <= ?", filter.AdmittedTo)
	}

	res := core.Paged[student.Student]{Pagination: page}
	if err := repo.db.GetContext(ctx, &res.Total, w.sql(repo.db, `SELECT COUNT(*) FROM student`), w.args...); err != nil {
		return res, errors.Wrap(err, "counting students")
	}

	limit, args := pageClause(w, page)
	var rows []studentRow
	q := w.sql(repo.db, `SELECT * FROM student`, " ORDER BY "+core.OrderByClause(ordering, studentOrderings, "admission_no ASC"), limit)
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return res, errors.Wrap(err, "selecting students")
	}
	res.Items = make([]student.Student, 0, len(rows))
	for _, r := range rows {
		res.Items = append(res.Items, r.student())
	}
	return res, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE student SET first_name = :first_name, last_name = :last_name, email = :email,
			date_of_birth = :date_of_birth, gender = :gender, class_section_id = :class_section_id,
			is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`,
		newStudentRow(s),
	)
	if err := checkAffected(res, err, "updating student"); err != nil {
		return student.Student{}, err
	}
	return s, nil
}

func (repo *studentRepository) DeleteStudents(ctx context.Context, scope core.Scope, ids ...string) error {
	w := new(where)
	w.scope(scope)
	w.add("id::text = ANY(?)", pq.Array(ids))
	_, err := repo.db.ExecContext(ctx, w.sql(repo.db, `DELETE FROM student`), w.args...)
	return errors.Wrap(err, "deleting students")
}

type parentRow struct {
	ID           string    `db:"id"`
	TenantID     string    `db:"tenant_id"`
	BranchID     string    `db:"branch_id"`
	StudentID    string    `db:"student_id"`
	ParentUserID string    `db:"parent_user_id"`
	Relation     string    `db:"relation"`
	IsPrimary    bool      `db:"is_primary"`
	CreatedAt    time.Time `db:"created_at"`
}

func (repo *studentRepository) AddParent(ctx context.Context, pa student.ParentAssociation) (student.ParentAssociation, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if pa.IsPrimary {
			if _, err := tx.ExecContext(ctx,
				`UPDATE parent_association SET is_primary = false WHERE student_id = $1 AND is_primary`, pa.StudentID,
			); err != nil {
				return errors.Wrap(err, "demoting primary parent")
			}
		}
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO parent_association (id, tenant_id, branch_id, student_id, parent_user_id, relation, is_primary, created_at)
			VALUES (:id, :tenant_id, :branch_id, :student_id, :parent_user_id, :relation, :is_primary, :created_at)`,
			parentRow(pa),
		)
		return errors.Wrap(err, "inserting parent association")
	})
	if err != nil {
		return student.ParentAssociation{}, err
	}
	return pa, nil
}

func (repo *studentRepository) QueryParents(ctx context.Context, scope core.Scope, studentIDs ...string) ([]student.ParentAssociation, error) {
	w := new(where)
	w.scope(scope)
	w.add("student_id::text = ANY(?)", pq.Array(studentIDs))
	var rows []parentRow
	if err := repo.db.SelectContext(ctx, &rows, w.sql(repo.db, `SELECT * FROM parent_association`, ` ORDER BY is_primary DESC, created_at`), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting parents")
	}
	pas := make([]student.ParentAssociation, 0, len(rows))
	for _, r := range rows {
		pas = append(pas, student.ParentAssociation(r))
	}
	return pas, nil
}

func (repo *studentRepository) RemoveParent(ctx context.Context, scope core.Scope, studentID, id string) error {
	w := new(where)
	w.scope(scope)
	w.add("student_id = ?", studentID)
	w.add("id = ?", id)
	res, err := repo.db.ExecContext(ctx, w.sql(repo.db, `DELETE FROM parent_association`), w.args...)
	return checkAffected(res, err, "deleting parent association")
}
