package inmemdb

import (
	"context"
	"strings"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
)

type academicRepository struct {
	years    *table[academic.AcademicYear]
	sections *table[academic.ClassSection]
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *DB) *academicRepository {
	return &academicRepository{years: db.academicYear, sections: db.classSection}
}

func yearInScope(scope core.Scope) func(academic.AcademicYear) bool {
	return func(y academic.AcademicYear) bool { return scope.Contains(y.TenantID, y.BranchID) }
}

func (repo *academicRepository) CreateYear(_ context.Context, y academic.AcademicYear) (academic.AcademicYear, error) {
	repo.years.put(y.ID, y)
	return y, nil
}

func (repo *academicRepository) QueryYears(_ context.Context, scope core.Scope) ([]academic.AcademicYear, error) {
	return repo.years.query(yearInScope(scope), func(a, b academic.AcademicYear) bool {
		return a.StartDate.After(b.StartDate)
	}), nil
}

func (repo *academicRepository) GetYear(_ context.Context, scope core.Scope, id string) (academic.AcademicYear, error) {
	return repo.years.get(id, yearInScope(scope))
}

func (repo *academicRepository) GetActiveYear(_ context.Context, scope core.Scope) (academic.AcademicYear, error) {
	inScope := yearInScope(scope)
	found := repo.years.query(func(y academic.AcademicYear) bool { return y.IsActive && inScope(y) }, nil)
	if len(found) == 0 {
		return academic.AcademicYear{}, core.ErrNotFound
	}
	return found[0], nil
}

func (repo *academicRepository) UpdateYear(_ context.Context, y academic.AcademicYear) (academic.AcademicYear, error) {
	return repo.years.update(y.ID, y)
}

func (repo *academicRepository) ActivateYear(_ context.Context, scope core.Scope, id string) (academic.AcademicYear, error) {
	repo.years.Lock()
	defer repo.years.Unlock()

	target, ok := repo.years.rows[id]
	if !ok || !scope.Contains(target.TenantID, target.BranchID) {
		return academic.AcademicYear{}, core.ErrNotFound
	}
	now := time.Now().UTC()
	for yid, y := range repo.years.rows {
		if y.TenantID != target.TenantID || y.BranchID != target.BranchID {
			continue
		}
		active := yid == id
		if y.IsActive != active {
			y.IsActive = active
			y.UpdatedAt = now
			repo.years.rows[yid] = y
		}
	}
	return repo.years.rows[id], nil
}

func (repo *academicRepository) DeleteYear(_ context.Context, scope core.Scope, id string) error {
	return repo.years.deleteOne(id, yearInScope(scope))
}

func (repo *academicRepository) LockYearsEndedBefore(_ context.Context, d core.Date) (int, error) {
	repo.years.Lock()
	defer repo.years.Unlock()

	var n int
	now := time.Now().UTC()
	for id, y := range repo.years.rows {
		if !y.IsLocked && y.EndDate.Before(d) {
			y.IsLocked = true
			y.UpdatedAt = now
			repo.years.rows[id] = y
			n++
		}
	}
	return n, nil
}

func sectionInScope(scope core.Scope) func(academic.ClassSection) bool {
	return func(cs academic.ClassSection) bool { return scope.Contains(cs.TenantID, cs.BranchID) }
}

func (repo *academicRepository) CreateClassSections(_ context.Context, css ...academic.ClassSection) ([]academic.ClassSection, error) {
	repo.sections.Lock()
	defer repo.sections.Unlock()
	for _, cs := range css {
		repo.sections.rows[cs.ID] = cs
	}
	return css, nil
}

func (repo *academicRepository) QueryClassSections(_ context.Context, scope core.Scope, filter academic.ClassSectionFilter) ([]academic.ClassSection, error) {
	inScope := sectionInScope(scope)
	search := strings.ToLower(filter.Search)
	return repo.sections.query(
		func(cs academic.ClassSection) bool {
			if !inScope(cs) {
				return false
			}
			if filter.ClassName != "" && !strings.EqualFold(cs.ClassName, filter.ClassName) {
				return false
			}
			return search == "" || strings.Contains(strings.ToLower(cs.Label()), search)
		},
		func(a, b academic.ClassSection) bool {
			if a.ClassName != b.ClassName {
				return a.ClassName < b.ClassName
			}
			return a.SectionName < b.SectionName
		},
	), nil
}

func (repo *academicRepository) GetClassSection(_ context.Context, scope core.Scope, id string) (academic.ClassSection, error) {
	return repo.sections.get(id, sectionInScope(scope))
}

func (repo *academicRepository) UpdateClassSection(_ context.Context, cs academic.ClassSection) (academic.ClassSection, error) {
	return repo.sections.update(cs.ID, cs)
}

func (repo *academicRepository) DeleteClassSection(_ context.Context, scope core.Scope, id string) error {
	return repo.sections.deleteOne(id, sectionInScope(scope))
}
