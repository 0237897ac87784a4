package inmemdb

import (
	"context"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/permission"
)

type permissionRepository struct {
	roles   *table[permission.Role]
	entries *permissionTable
}

var _ permission.Repository = (*permissionRepository)(nil) // interface compliance check

func NewPermissionRepository(db *DB) *permissionRepository {
	return &permissionRepository{roles: db.role, entries: db.permission}
}

func (repo *permissionRepository) CreateRole(_ context.Context, r permission.Role) (permission.Role, error) {
	repo.roles.put(r.ID, r)
	return r, nil
}

func (repo *permissionRepository) QueryRoles(_ context.Context, tenantID string) ([]permission.Role, error) {
	return repo.roles.query(
		func(r permission.Role) bool { return r.TenantID == tenantID },
		func(a, b permission.Role) bool { return a.Name < b.Name },
	), nil
}

func (repo *permissionRepository) DeleteRole(_ context.Context, tenantID, id string) error {
	if err := repo.roles.deleteOne(id, func(r permission.Role) bool { return r.TenantID == tenantID }); err != nil {
		return err
	}

	repo.entries.Lock()
	defer repo.entries.Unlock()
	kept := repo.entries.rows[tenantID][:0:0]
	for _, e := range repo.entries.rows[tenantID] {
		if e.RoleID != id {
			kept = append(kept, e)
		}
	}
	repo.entries.rows[tenantID] = kept
	return nil
}

func (repo *permissionRepository) QueryEntries(_ context.Context, tenantID string) ([]permission.Entry, error) {
	repo.entries.RLock()
	defer repo.entries.RUnlock()
	return append([]permission.Entry{}, repo.entries.rows[tenantID]...), nil
}

func (repo *permissionRepository) ReplaceEntries(_ context.Context, tenantID string, entries []permission.Entry) error {
	if tenantID == "" {
		return core.ErrInvalidScope
	}
	repo.entries.Lock()
	defer repo.entries.Unlock()
	repo.entries.rows[tenantID] = append([]permission.Entry{}, entries...)
	return nil
}
