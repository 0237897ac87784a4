package hooks

import (
	"context"
	"net/http"

	"github.com/trezcool/shule/client/permmatrix"
	"github.com/trezcool/shule/client/query"
	"github.com/trezcool/shule/core/permission"
)

func (h *Hooks) Roles(ctx context.Context) query.State[[]permission.Role] {
	return get[[]permission.Role](ctx, h, ResRoles, nil)
}

func (h *Hooks) CreateRole(ctx context.Context, form permission.NewRole) (permission.Role, error) {
	return mutate[permission.Role](ctx, h, http.MethodPost, ResRoles, &form, ResRoles)
}

func (h *Hooks) DeleteRole(ctx context.Context, id string) error {
	return remove(ctx, h, ResRoles+"/"+id, ResRoles, ResPermissions)
}

func (h *Hooks) Features(ctx context.Context) query.State[[]permission.Feature] {
	return get[[]permission.Feature](ctx, h, ResFeatures, nil)
}

// Permissions lists the saved entries of the tenant.
func (h *Hooks) Permissions(ctx context.Context) query.State[[]permission.Entry] {
	return get[[]permission.Entry](ctx, h, ResPermissions, nil)
}

// MyPermissions is the level of the signed in user on each feature.
func (h *Hooks) MyPermissions(ctx context.Context) query.State[map[string]permission.Level] {
	return get[map[string]permission.Level](ctx, h, ResMyPermissions, nil)
}

// SavePermissions sends every role x feature pair of the matrix and, on success, returns the
// state with its edits folded into the server state.
func (h *Hooks) SavePermissions(ctx context.Context, st permmatrix.State, roles []permission.Role, features []permission.Feature) (permmatrix.State, error) {
	payload := st.BulkPayload(roles, features)
	if _, err := mutate[[]permission.Entry](ctx, h, http.MethodPut, ResPermissions+"/bulk", &payload, ResPermissions); err != nil {
		return st, err
	}
	return permmatrix.Reduce(st, permmatrix.Submitted{}), nil
}

// SyncPermissions feeds the current server entries to the matrix.
func (h *Hooks) SyncPermissions(ctx context.Context, st permmatrix.State) (permmatrix.State, error) {
	res := h.Permissions(ctx)
	if res.IsError() {
		return st, res.Err
	}
	return permmatrix.Reduce(st, permmatrix.ServerLoaded{Entries: res.Data}), nil
}
