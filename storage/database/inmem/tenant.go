package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/tenant"
)

type tenantRepository struct {
	db *DB
}

var _ tenant.Repository = (*tenantRepository)(nil) // interface compliance check

func NewTenantRepository(db *DB) *tenantRepository {
	return &tenantRepository{db: db}
}

func (repo *tenantRepository) CreateTenant(_ context.Context, t tenant.Tenant, main tenant.Branch) (tenant.Tenant, error) {
	repo.db.tenant.Lock()
	defer repo.db.tenant.Unlock()
	for _, existing := range repo.db.tenant.rows {
		if strings.EqualFold(existing.Slug, t.Slug) {
			return tenant.Tenant{}, tenant.ErrSlugExists
		}
	}
	repo.db.tenant.rows[t.ID] = t
	repo.db.branch.put(main.ID, main)
	return t, nil
}

func (repo *tenantRepository) GetTenant(_ context.Context, id string) (tenant.Tenant, error) {
	return repo.db.tenant.get(id, nil)
}

func (repo *tenantRepository) GetTenantBySlug(_ context.Context, slug string) (tenant.Tenant, error) {
	found := repo.db.tenant.query(func(t tenant.Tenant) bool { return t.Slug == slug }, nil)
	if len(found) == 0 {
		return tenant.Tenant{}, core.ErrNotFound
	}
	return found[0], nil
}

func (repo *tenantRepository) UpdateTenant(_ context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	return repo.db.tenant.update(t.ID, t)
}

func (repo *tenantRepository) CreateBranch(_ context.Context, b tenant.Branch) (tenant.Branch, error) {
	repo.db.branch.put(b.ID, b)
	return b, nil
}

func (repo *tenantRepository) QueryBranches(_ context.Context, tenantID string) ([]tenant.Branch, error) {
	return repo.db.branch.query(
		func(b tenant.Branch) bool { return b.TenantID == tenantID },
		func(a, b tenant.Branch) bool { return a.CreatedAt.Before(b.CreatedAt) },
	), nil
}
