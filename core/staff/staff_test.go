package staff_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/staff"
	"github.com/trezcool/shule/core/validation"
	"github.com/trezcool/shule/storage/database/inmem"
)

func TestNewStaff_Validate(t *testing.T) {
	validate, _ := validation.New()

	ns := staff.NewStaff{FirstName: " Jean ", LastName: "Mbala", Email: " JEAN@Test.cd ", Designation: "Teacher"}
	require.NoError(t, ns.Validate(validate))
	assert.Equal(t, "Jean", ns.FirstName)
	assert.Equal(t, "jean@test.cd", ns.Email)
	assert.Equal(t, core.Today(), ns.JoinedOn)

	ns.Email = "lol"
	assert.Error(t, ns.Validate(validate))

	empty := ""
	assert.Error(t, (&staff.UpdateStaff{FirstName: &empty}).Validate(validate), "names cannot be blanked")
}

func TestService(t *testing.T) {
	svc := staff.NewService(inmemdb.NewStaffRepository(inmemdb.Open()))
	ctx := context.Background()
	tenantID := core.NewID()
	gombe := core.Scope{TenantID: tenantID, BranchID: core.NewID()}
	limete := core.Scope{TenantID: tenantID, BranchID: core.NewID()}

	create := func(scope core.Scope, first, email, designation, dept string) staff.Staff {
		s, err := svc.Create(ctx, scope, staff.NewStaff{
			FirstName: first, LastName: "Mbala", Email: email, Designation: designation, Department: dept,
			JoinedOn: core.NewDate(2020, 9, 1),
		})
		require.NoError(t, err)
		return s
	}
	jean := create(gombe, "Jean", "jean@test.cd", "Teacher", "Sciences")
	create(gombe, "Marie", "marie@test.cd", "Accountant", "")
	create(limete, "Paul", "paul@test.cd", "Teacher", "Languages")

	t.Run("email is unique per school", func(t *testing.T) {
		_, err := svc.Create(ctx, limete, staff.NewStaff{FirstName: "Lol", LastName: "Lol", Email: "jean@test.cd", Designation: "Driver"})
		verr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok, "%v", err)
		assert.Equal(t, staff.ErrEmailExists, verr.Err)

		_, err = svc.Create(ctx, core.Scope{TenantID: core.NewID(), BranchID: core.NewID()}, staff.NewStaff{
			FirstName: "Jean", LastName: "Other", Email: "jean@test.cd", Designation: "Teacher",
		})
		assert.NoError(t, err)
	})

	t.Run("branch required", func(t *testing.T) {
		_, err := svc.Create(ctx, core.Scope{TenantID: tenantID}, staff.NewStaff{FirstName: "Lol", Email: "lol@test.cd"})
		assert.Equal(t, core.ErrBranchRequired, err)
	})

	t.Run("query", func(t *testing.T) {
		tests := []struct {
			name   string
			scope  core.Scope
			filter staff.QueryFilter
			want   int
		}{
			{name: "whole school", scope: core.Scope{TenantID: tenantID}, want: 3},
			{name: "one branch", scope: gombe, want: 2},
			{name: "designation", scope: core.Scope{TenantID: tenantID}, filter: staff.QueryFilter{Designation: "TEACHER"}, want: 2},
			{name: "department", scope: gombe, filter: staff.QueryFilter{Department: "sciences"}, want: 1},
			{name: "search", scope: core.Scope{TenantID: tenantID}, filter: staff.QueryFilter{Search: "MARIE@"}, want: 1},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				paged, err := svc.Query(ctx, tt.scope, tt.filter, nil, core.Pagination{})
				require.NoError(t, err)
				assert.Equal(t, tt.want, paged.Total)
			})
		}
	})

	t.Run("update", func(t *testing.T) {
		taken := "marie@test.cd"
		_, err := svc.Update(ctx, jean, staff.UpdateStaff{Email: &taken})
		assert.Error(t, err)

		same := "jean@test.cd"
		inactive := false
		designation := "Head teacher"
		updated, err := svc.Update(ctx, jean, staff.UpdateStaff{Email: &same, IsActive: &inactive, Designation: &designation})
		require.NoError(t, err)
		assert.False(t, updated.IsActive)
		assert.Equal(t, "Head teacher", updated.Designation)

		got, err := svc.Get(ctx, gombe, jean.ID)
		require.NoError(t, err)
		assert.Equal(t, updated.Designation, got.Designation)

		_, err = svc.Get(ctx, limete, jean.ID)
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, gombe, jean.ID))
		_, err := svc.Get(ctx, gombe, jean.ID)
		assert.True(t, core.IsNotFound(err))
	})
}
