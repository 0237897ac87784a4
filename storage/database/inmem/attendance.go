package inmemdb

import (
	"context"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
)

type attendanceRepository struct {
	db *table[attendance.Record]
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db.attendance}
}

func (repo *attendanceRepository) UpsertRecords(_ context.Context, records ...attendance.Record) ([]attendance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	existing := make(map[string]attendance.Record)
	for _, r := range repo.db.rows {
		existing[r.StudentID+"|"+r.Date.String()] = r
	}

	saved := make([]attendance.Record, 0, len(records))
	for _, r := range records {
		if prev, ok := existing[r.StudentID+"|"+r.Date.String()]; ok {
			r.ID = prev.ID
			r.CreatedAt = prev.CreatedAt
			if r.NotifiedAt == nil {
				r.NotifiedAt = prev.NotifiedAt
			}
		}
		repo.db.rows[r.ID] = r
		saved = append(saved, r)
	}
	return saved, nil
}

func (repo *attendanceRepository) QueryRecords(_ context.Context, scope core.Scope, filter attendance.QueryFilter) ([]attendance.Record, error) {
	return repo.db.query(
		func(r attendance.Record) bool { return scope.Contains(r.TenantID, r.BranchID) && filter.Match(r) },
		func(a, b attendance.Record) bool {
			if !a.Date.Equal(b.Date) {
				return a.Date.Before(b.Date)
			}
			return a.StudentID < b.StudentID
		},
	), nil
}
