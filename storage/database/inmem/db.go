package inmemdb

import (
	"sort"
	"sync"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/grading"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/permission"
	"github.com/trezcool/shule/core/schedule"
	"github.com/trezcool/shule/core/staff"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/core/user"
)

type (
	// DB keeps every table in memory; it backs the tests and the "memory" database engine.
	DB struct {
		tenant         *table[tenant.Tenant]
		branch         *table[tenant.Branch]
		user           *table[user.User]
		academicYear   *table[academic.AcademicYear]
		classSection   *table[academic.ClassSection]
		timingTemplate *table[schedule.TimingTemplate]
		holiday        *table[schedule.PublicHoliday]
		vacation       *table[schedule.Vacation]
		student        *table[student.Student]
		parent         *table[student.ParentAssociation]
		staff          *table[staff.Staff]
		assessmentType *table[grading.AssessmentType]
		gradeTemplate  *table[grading.GradeTemplate]
		role           *table[permission.Role]
		permission     *permissionTable
		notification   *table[notification.Notification]
		attendance     *table[attendance.Record]
	}

	table[T any] struct {
		sync.RWMutex
		rows map[string]T
	}

	permissionTable struct {
		sync.RWMutex
		rows map[string][]permission.Entry // by tenant ID
	}
)

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func Open() *DB {
	return &DB{
		tenant:         newTable[tenant.Tenant](),
		branch:         newTable[tenant.Branch](),
		user:           newTable[user.User](),
		academicYear:   newTable[academic.AcademicYear](),
		classSection:   newTable[academic.ClassSection](),
		timingTemplate: newTable[schedule.TimingTemplate](),
		holiday:        newTable[schedule.PublicHoliday](),
		vacation:       newTable[schedule.Vacation](),
		student:        newTable[student.Student](),
		parent:         newTable[student.ParentAssociation](),
		staff:          newTable[staff.Staff](),
		assessmentType: newTable[grading.AssessmentType](),
		gradeTemplate:  newTable[grading.GradeTemplate](),
		role:           newTable[permission.Role](),
		permission:     &permissionTable{rows: make(map[string][]permission.Entry)},
		notification:   newTable[notification.Notification](),
		attendance:     newTable[attendance.Record](),
	}
}

// all returns the rows matching keep. Callers hold the lock.
func (t *table[T]) all(keep func(T) bool) []T {
	res := make([]T, 0, len(t.rows))
	for _, row := range t.rows {
		if keep == nil || keep(row) {
			res = append(res, row)
		}
	}
	return res
}

func (t *table[T]) get(id string, keep func(T) bool) (T, error) {
	t.RLock()
	defer t.RUnlock()
	row, ok := t.rows[id]
	if !ok || (keep != nil && !keep(row)) {
		var zero T
		return zero, core.ErrNotFound
	}
	return row, nil
}

func (t *table[T]) put(id string, row T) {
	t.Lock()
	defer t.Unlock()
	t.rows[id] = row
}

// update replaces an existing row only.
func (t *table[T]) update(id string, row T) (T, error) {
	t.Lock()
	defer t.Unlock()
	if _, ok := t.rows[id]; !ok {
		var zero T
		return zero, core.ErrNotFound
	}
	t.rows[id] = row
	return row, nil
}

func (t *table[T]) query(keep func(T) bool, less func(a, b T) bool) []T {
	t.RLock()
	defer t.RUnlock()
	res := t.all(keep)
	if less != nil {
		sort.SliceStable(res, func(i, j int) bool { return less(res[i], res[j]) })
	}
	return res
}

func (t *table[T]) deleteWhere(keep func(T) bool, ids ...string) {
	t.Lock()
	defer t.Unlock()
	for _, id := range ids {
		if row, ok := t.rows[id]; ok && keep(row) {
			delete(t.rows, id)
		}
	}
}

// deleteOne fails with core.ErrNotFound when id is not visible.
func (t *table[T]) deleteOne(id string, keep func(T) bool) error {
	t.Lock()
	defer t.Unlock()
	row, ok := t.rows[id]
	if !ok || !keep(row) {
		return core.ErrNotFound
	}
	delete(t.rows, id)
	return nil
}

func paginate[T any](items []T, page core.Pagination) core.Paged[T] {
	page.Clean()
	start, end := page.Window(len(items))
	return core.Paged[T]{Items: items[start:end], Total: len(items), Pagination: page}
}

// orderBy sorts items by the first known ordering field; fields maps names to ascending "less" funcs.
func orderBy[T any](items []T, orderings []core.DBOrdering, fields map[string]func(a, b T) bool, fallback func(a, b T) bool) {
	less := fallback
	for _, ord := range orderings {
		if fn, ok := fields[ord.Field]; ok {
			if ord.Ascending {
				less = fn
			} else {
				less = func(a, b T) bool { return fn(b, a) }
			}
			break
		}
	}
	if less != nil {
		sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
	}
}
