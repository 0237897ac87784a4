package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/theme"
)

type themeApi struct {
	themes   *theme.Context
	tenants  *tenant.Service
	validate *validator.Validate
}

func registerThemeAPI(g *echo.Group, jwt, optionalJWT echo.MiddlewareFunc, themes *theme.Context, tenants *tenant.Service, validate *validator.Validate) {
	api := themeApi{themes: themes, tenants: tenants, validate: validate}

	g.GET("/theme", api.palette, optionalJWT)
	g.GET("/theme.css", api.stylesheet, optionalJWT)
	g.PUT("/theme", api.update, jwt, adminMiddleware())
}

// resolve picks the palette of the ?tenant=<slug> school, else the one of the authenticated user's school.
func (api *themeApi) resolve(ctx echo.Context) (theme.Palette, error) {
	c := ctx.Request().Context()
	var (
		t   tenant.Tenant
		err error
	)
	if slug := ctx.QueryParam("tenant"); slug != "" {
		t, err = api.tenants.GetBySlug(c, slug)
	} else if claims, cErr := getContextClaims(ctx); cErr == nil {
		t, err = api.tenants.Get(c, claims.TenantID)
	} else {
		return api.themes.Default(), nil
	}
	if err != nil {
		if core.IsNotFound(err) {
			return theme.Palette{}, errHttpNotFound
		}
		return theme.Palette{}, errors.Wrap(err, "getting tenant")
	}
	return api.themes.For(t.PrimaryColor), nil
}

func (api *themeApi) palette(ctx echo.Context) error {
	pal, err := api.resolve(ctx)
	if err != nil {
		return err
	}
	return ok(ctx, http.StatusOK, pal)
}

func (api *themeApi) stylesheet(ctx echo.Context) error {
	pal, err := api.resolve(ctx)
	if err != nil {
		return err
	}
	return ctx.Blob(http.StatusOK, "text/css; charset=utf-8", []byte(pal.Stylesheet()))
}

func (api *themeApi) update(ctx echo.Context) error {
	var data tenant.UpdateTheme
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTheme")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	t, err := api.tenants.SetPrimaryColor(ctx.Request().Context(), claims.TenantID, data)
	if err != nil {
		return errors.Wrap(err, "setting primary color")
	}
	return ok(ctx, http.StatusOK, api.themes.For(t.PrimaryColor))
}
