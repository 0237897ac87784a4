package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/permission"
)

type permissionApi struct {
	svc      *permission.Service
	validate *validator.Validate
}

func registerPermissionAPI(g *echo.Group, perms *permission.Service, validate *validator.Validate) {
	api := permissionApi{svc: perms, validate: validate}
	feature := featureMiddleware(perms, permission.FeaturePermissions)

	g.GET("/features", api.features)
	g.GET("/permissions/me", api.mine)

	g.GET("/roles", api.roles, feature)
	g.POST("/roles", api.createRole, feature)
	g.DELETE("/roles/:id", api.destroyRole, feature)
	g.GET("/permissions", api.entries, feature)
	g.PUT("/permissions/bulk", api.bulkUpdate, feature)
}

func (api *permissionApi) features(ctx echo.Context) error {
	return okList(ctx, permission.Features)
}

// mine returns the level of the authenticated user on every feature.
func (api *permissionApi) mine(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var levels map[string]permission.Level
	if claims.IsAdmin {
		levels = make(map[string]permission.Level, len(permission.Features))
		for _, f := range permission.Features {
			levels[f.Key] = permission.LevelEdit
		}
	} else if levels, err = api.svc.LevelsFor(ctx.Request().Context(), claims.TenantID, claims.Roles); err != nil {
		return errors.Wrap(err, "getting permission levels")
	}
	return ok(ctx, http.StatusOK, levels)
}

func (api *permissionApi) roles(ctx echo.Context) error {
	roles, err := api.svc.Roles(ctx.Request().Context(), contextScope(ctx).TenantID)
	if err != nil {
		return errors.Wrap(err, "querying roles")
	}
	return okList(ctx, roles)
}

func (api *permissionApi) createRole(ctx echo.Context) error {
	var data permission.NewRole
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRole")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	r, err := api.svc.CreateRole(ctx.Request().Context(), contextScope(ctx).TenantID, data)
	if err != nil {
		return errors.Wrap(err, "creating role")
	}
	return ok(ctx, http.StatusCreated, r)
}

func (api *permissionApi) destroyRole(ctx echo.Context) error {
	if err := api.svc.DeleteRole(ctx.Request().Context(), contextScope(ctx).TenantID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting role")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *permissionApi) entries(ctx echo.Context) error {
	entries, err := api.svc.Entries(ctx.Request().Context(), contextScope(ctx).TenantID)
	if err != nil {
		return errors.Wrap(err, "querying permission entries")
	}
	return okList(ctx, entries)
}

func (api *permissionApi) bulkUpdate(ctx echo.Context) error {
	var data permission.BulkUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkUpdate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	entries, err := api.svc.BulkUpdate(ctx.Request().Context(), contextScope(ctx).TenantID, data)
	if err != nil {
		return errors.Wrap(err, "updating permissions")
	}
	return okList(ctx, entries)
}
