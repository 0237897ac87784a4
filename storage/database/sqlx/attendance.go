package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
)

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

type attendanceRow struct {
	ID             string      `db:"id"`
	TenantID       string      `db:"tenant_id"`
	BranchID       string      `db:"branch_id"`
	StudentID      string      `db:"student_id"`
	ClassSectionID string      `db:"class_section_id"`
	Date           core.Date   `db:"date"`
	Status         string      `db:"status"`
	Remarks        null.String `db:"remarks"`
	MarkedBy       null.String `db:"marked_by"`
	NotifiedAt     null.Time   `db:"notified_at"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

func newAttendanceRow(r attendance.Record) attendanceRow {
	return attendanceRow{
		ID:             r.ID,
		TenantID:       r.TenantID,
		BranchID:       r.BranchID,
		StudentID:      r.StudentID,
		ClassSectionID: r.ClassSectionID,
		Date:           r.Date,
		Status:         r.Status,
		Remarks:        nullString(r.Remarks),
		MarkedBy:       nullString(r.MarkedBy),
		NotifiedAt:     null.TimeFromPtr(r.NotifiedAt),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func (r attendanceRow) record() attendance.Record {
	return attendance.Record{
		ID:             r.ID,
		TenantID:       r.TenantID,
		BranchID:       r.BranchID,
		StudentID:      r.StudentID,
		ClassSectionID: r.ClassSectionID,
		Date:           r.Date,
		Status:         r.Status,
		Remarks:        r.Remarks.String,
		MarkedBy:       r.MarkedBy.String,
		NotifiedAt:     r.NotifiedAt.Ptr(),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// UpsertRecords keeps the id, creation time & notification time of replaced records.
func (repo *attendanceRepository) UpsertRecords(ctx context.Context, records ...attendance.Record) ([]attendance.Record, error) {
	saved := make([]attendance.Record, 0, len(records))
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, `
			INSERT INTO attendance (id, tenant_id, branch_id, student_id, class_section_id, date, status, remarks,
				marked_by, notified_at, created_at, updated_at)
			VALUES (:id, :tenant_id, :branch_id, :student_id, :class_section_id, :date, :status, :remarks,
				:marked_by, :notified_at, :created_at, :updated_at)
			ON CONFLICT (student_id, date) DO UPDATE SET
				class_section_id = EXCLUDED.class_section_id,
				status = EXCLUDED.status,
				remarks = EXCLUDED.remarks,
				marked_by = EXCLUDED.marked_by,
				notified_at = COALESCE(attendance.notified_at, EXCLUDED.notified_at),
				updated_at = EXCLUDED.updated_at
			RETURNING *`)
		if err != nil {
			return errors.Wrap(err, "preparing attendance upsert")
		}
		defer stmt.Close()

		for _, r := range records {
			var row attendanceRow
			if err := stmt.GetContext(ctx, &row, newAttendanceRow(r)); err != nil {
				return errors.Wrap(err, "upserting attendance")
			}
			saved = append(saved, row.record())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (repo *attendanceRepository) QueryRecords(ctx context.Context, scope core.Scope, filter attendance.QueryFilter) ([]attendance.Record, error) {
	w := new(where)
	w.scope(scope)
	if filter.ClassSectionID != "" {
		w.add("class_section_id = ?", filter.ClassSectionID)
	}
	if filter.StudentID != "" {
		w.add("student_id = ?", filter.StudentID)
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	if !filter.From.IsZero() {
		w.add("date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		w.add("date <= ?", filter.To)
	}
	var rows []attendanceRow
	if err := repo.db.SelectContext(ctx, &rows, w.sql(repo.db, `SELECT * FROM attendance`, ` ORDER BY date, student_id`), w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting attendance")
	}
	records := make([]attendance.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.record())
	}
	return records, nil
}
