package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/core/user"
)

// CreateTenant creates a school along with its main branch.
func CreateTenant(t *testing.T, svc *tenant.Service, name, slug string) (tenant.Tenant, tenant.Branch) {
	tnt, branch, err := svc.Create(context.Background(), tenant.NewTenant{Name: name, Slug: slug})
	if err != nil {
		t.Fatalf("CreateTenant() failed: %v", err)
	}
	return tnt, branch
}

// CreateUser stores a user straight into repo; an empty scope.BranchID makes it tenant-wide.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	scope core.Scope,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        core.NewID(),
		TenantID:  scope.TenantID,
		BranchID:  scope.BranchID,
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
