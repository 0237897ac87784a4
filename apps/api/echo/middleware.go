package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/permission"
)

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// featureMiddleware requires the view level on feature for safe methods and the edit level otherwise.
// Admins hold every feature.
func featureMiddleware(perms *permission.Service, feature string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin {
				return next(ctx)
			}

			want := permission.LevelEdit
			switch ctx.Request().Method {
			case http.MethodGet, http.MethodHead:
				want = permission.LevelView
			}
			lvl, err := perms.LevelFor(ctx.Request().Context(), claims.TenantID, claims.Roles, feature)
			if err != nil {
				return errors.Wrap(err, "getting permission level")
			}
			if !lvl.Allows(want) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}
