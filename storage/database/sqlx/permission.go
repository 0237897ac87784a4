package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/permission"
)

type permissionRepository struct {
	db *sqlx.DB
}

var _ permission.Repository = (*permissionRepository)(nil) // interface compliance check

func NewPermissionRepository(db *sqlx.DB) *permissionRepository {
	return &permissionRepository{db: db}
}

type roleRow struct {
	ID          string      `db:"id"`
	TenantID    string      `db:"tenant_id"`
	Name        string      `db:"name"`
	Key         string      `db:"key"`
	Description null.String `db:"description"`
	CreatedAt   time.Time   `db:"created_at"`
}

func (repo *permissionRepository) CreateRole(ctx context.Context, r permission.Role) (permission.Role, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO role (id, tenant_id, name, key, description, created_at)
		VALUES (:id, :tenant_id, :name, :key, :description, :created_at)`,
		roleRow{
			ID:          r.ID,
			TenantID:    r.TenantID,
			Name:        r.Name,
			Key:         r.Key,
			Description: nullString(r.Description),
			CreatedAt:   r.CreatedAt,
		},
	)
	if err != nil {
		return permission.Role{}, errors.Wrap(err, "inserting role")
	}
	return r, nil
}

func (repo *permissionRepository) QueryRoles(ctx context.Context, tenantID string) ([]permission.Role, error) {
	var rows []roleRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM role WHERE tenant_id = $1 ORDER BY name`, tenantID); err != nil {
		return nil, errors.Wrap(err, "selecting roles")
	}
	roles := make([]permission.Role, 0, len(rows))
	for _, r := range rows {
		roles = append(roles, permission.Role{
			ID:          r.ID,
			TenantID:    r.TenantID,
			Name:        r.Name,
			Key:         r.Key,
			Description: r.Description.String,
			CreatedAt:   r.CreatedAt,
		})
	}
	return roles, nil
}

// DeleteRole also drops the role's entries (ON DELETE CASCADE).
func (repo *permissionRepository) DeleteRole(ctx context.Context, tenantID, id string) error {
	return deleteScoped(ctx, repo.db, "role", core.Scope{TenantID: tenantID}, id)
}

type entryRow struct {
	TenantID   string `db:"tenant_id"`
	RoleID     string `db:"role_id"`
	FeatureKey string `db:"feature_key"`
	Level      string `db:"level"`
}

func (repo *permissionRepository) QueryEntries(ctx context.Context, tenantID string) ([]permission.Entry, error) {
	var rows []entryRow
	if err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM permission_entry WHERE tenant_id = $1 ORDER BY role_id, feature_key`, tenantID,
	); err != nil {
		return nil, errors.Wrap(err, "selecting permission entries")
	}
	entries := make([]permission.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, permission.Entry{RoleID: r.RoleID, FeatureKey: r.FeatureKey, Level: permission.Level(r.Level)})
	}
	return entries, nil
}

func (repo *permissionRepository) ReplaceEntries(ctx context.Context, tenantID string, entries []permission.Entry) error {
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM permission_entry WHERE tenant_id = $1`, tenantID); err != nil {
			return errors.Wrap(err, "clearing permission entries")
		}
		for _, e := range entries {
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO permission_entry (tenant_id, role_id, feature_key, level)
				VALUES (:tenant_id, :role_id, :feature_key, :level)`,
				entryRow{TenantID: tenantID, RoleID: e.RoleID, FeatureKey: e.FeatureKey, Level: string(e.Level)},
			); err != nil {
				return errors.Wrap(err, "inserting permission entry")
			}
		}
		return nil
	})
}
