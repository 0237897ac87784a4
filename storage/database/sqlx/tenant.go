package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core/tenant"
)

type tenantRepository struct {
	db *sqlx.DB
}

var _ tenant.Repository = (*tenantRepository)(nil) // interface compliance check

func NewTenantRepository(db *sqlx.DB) *tenantRepository {
	return &tenantRepository{db: db}
}

type tenantRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Slug         string      `db:"slug"`
	PrimaryColor null.String `db:"primary_color"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func (r tenantRow) tenant() tenant.Tenant {
	return tenant.Tenant{
		ID:           r.ID,
		Name:         r.Name,
		Slug:         r.Slug,
		PrimaryColor: r.PrimaryColor.String,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (repo *tenantRepository) CreateTenant(ctx context.Context, t tenant.Tenant, main tenant.Branch) (tenant.Tenant, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tenant (id, name, slug, primary_color, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			t.ID, t.Name, t.Slug, nullString(t.PrimaryColor), t.CreatedAt, t.UpdatedAt,
		); err != nil {
			return errors.Wrap(err, "inserting tenant")
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO branch (id, tenant_id, name, created_at) VALUES ($1, $2, $3, $4)`,
			main.ID, main.TenantID, main.Name, main.CreatedAt,
		)
		return errors.Wrap(err, "inserting main branch")
	})
	if err != nil {
		return tenant.Tenant{}, err
	}
	return t, nil
}

func (repo *tenantRepository) getBy(ctx context.Context, col, val string) (tenant.Tenant, error) {
	var row tenantRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM tenant WHERE `+col+` = $1`, val); err != nil {
		return tenant.Tenant{}, trapNoRowsErr(err, "selecting tenant")
	}
	return row.tenant(), nil
}

func (repo *tenantRepository) GetTenant(ctx context.Context, id string) (tenant.Tenant, error) {
	return repo.getBy(ctx, "id", id)
}

func (repo *tenantRepository) GetTenantBySlug(ctx context.Context, slug string) (tenant.Tenant, error) {
	return repo.getBy(ctx, "slug", slug)
}

func (repo *tenantRepository) UpdateTenant(ctx context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE tenant SET name = $2, primary_color = $3, updated_at = $4 WHERE id = $1`,
		t.ID, t.Name, nullString(t.PrimaryColor), t.UpdatedAt,
	)
	if err := checkAffected(res, err, "updating tenant"); err != nil {
		return tenant.Tenant{}, err
	}
	return t, nil
}

func (repo *tenantRepository) CreateBranch(ctx context.Context, b tenant.Branch) (tenant.Branch, error) {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO branch (id, tenant_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		b.ID, b.TenantID, b.Name, b.CreatedAt,
	)
	if err != nil {
		return tenant.Branch{}, errors.Wrap(err, "inserting branch")
	}
	return b, nil
}

func (repo *tenantRepository) QueryBranches(ctx context.Context, tenantID string) ([]tenant.Branch, error) {
	var rows []struct {
		ID        string    `db:"id"`
		TenantID  string    `db:"tenant_id"`
		Name      string    `db:"name"`
		CreatedAt time.Time `db:"created_at"`
	}
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM branch WHERE tenant_id = $1 ORDER BY created_at`, tenantID); err != nil {
		return nil, errors.Wrap(err, "selecting branches")
	}
	branches := make([]tenant.Branch, 0, len(rows))
	for _, r := range rows {
		branches = append(branches, tenant.Branch{ID: r.ID, TenantID: r.TenantID, Name: r.Name, CreatedAt: r.CreatedAt})
	}
	return branches, nil
}
