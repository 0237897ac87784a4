package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/permission"
)

type academicApi struct {
	svc      *academic.Service
	validate *validator.Validate
}

func registerAcademicAPI(g *echo.Group, perms *permission.Service, svc *academic.Service, validate *validator.Validate) {
	api := academicApi{svc: svc, validate: validate}
	feature := featureMiddleware(perms, permission.FeatureAcademic)

	yg := g.Group("/academic-years", feature)
	yg.GET("", api.queryYears)
	yg.POST("", api.createYear)
	yg.GET("/active", api.activeYear)
	yg.GET("/:id", api.retrieveYear)
	yg.PUT("/:id", api.updateYear)
	yg.DELETE("/:id", api.destroyYear)
	yg.POST("/:id/activate", api.activateYear)
	yg.POST("/:id/lock", api.lockYear)

	cg := g.Group("/class-sections", feature)
	cg.GET("", api.queryClassSections)
	cg.POST("", api.createClassSection)
	cg.POST("/bulk/preview", api.previewBulk)
	cg.POST("/bulk", api.bulkCreate)
	cg.GET("/:id", api.retrieveClassSection)
	cg.PUT("/:id", api.updateClassSection)
	cg.DELETE("/:id", api.destroyClassSection)
}

// Academic years

func (api *academicApi) queryYears(ctx echo.Context) error {
	years, err := api.svc.QueryYears(ctx.Request().Context(), contextScope(ctx))
	if err != nil {
		return errors.Wrap(err, "querying academic years")
	}
	return okList(ctx, years)
}

func (api *academicApi) createYear(ctx echo.Context) error {
	var data academic.NewAcademicYear
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAcademicYear")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	y, err := api.svc.CreateYear(ctx.Request().Context(), contextScope(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating academic year")
	}
	return ok(ctx, http.StatusCreated, y)
}

func (api *academicApi) activeYear(ctx echo.Context) error {
	y, err := api.svc.ActiveYear(ctx.Request().Context(), contextScope(ctx))
	if err != nil {
		return errors.Wrap(err, "getting active year")
	}
	return ok(ctx, http.StatusOK, y)
}

func (api *academicApi) retrieveYear(ctx echo.Context) error {
	y, err := api.svc.GetYear(ctx.Request().Context(), contextScope(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting academic year")
	}
	return ok(ctx, http.StatusOK, y)
}

func (api *academicApi) updateYear(ctx echo.Context) error {
	scope := contextScope(ctx)
	orig, err := api.svc.GetYear(ctx.Request().Context(), scope, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting academic year")
	}
	var data academic.UpdateAcademicYear
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAcademicYear")
	}
	if err := data.Validate(orig, api.validate); err != nil {
		return err
	}
	y, err := api.svc.UpdateYear(ctx.Request().Context(), scope, orig, data)
	if err != nil {
		return errors.Wrap(err, "updating academic year")
	}
	return ok(ctx, http.StatusOK, y)
}

func (api *academicApi) destroyYear(ctx echo.Context) error {
	if err := api.svc.DeleteYear(ctx.Request().Context(), contextScope(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting academic year")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *academicApi) activateYear(ctx echo.Context) error {
	y, err := api.svc.ActivateYear(ctx.Request().Context(), contextScope(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "activating academic year")
	}
	return ok(ctx, http.StatusOK, y)
}

func (api *academicApi) lockYear(ctx echo.Context) error {
	y, err := api.svc.LockYear(ctx.Request().Context(), contextScope(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "locking academic year")
	}
	return ok(ctx, http.StatusOK, y)
}

// Class sections

func (api *academicApi) queryClassSections(ctx echo.Context) error {
	var filter academic.ClassSectionFilter
	if err := bindQuery(ctx, &filter); err != nil {
		return err
	}
	css, err := api.svc.QueryClassSections(ctx.Request().Context(), contextScope(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying class sections")
	}
	return okList(ctx, css)
}

func (api *academicApi) createClassSection(ctx echo.Context) error {
	var data academic.NewClassSection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassSection")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	cs, err := api.svc.CreateClassSection(ctx.Request().Context(), contextScope(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating class section")
	}
	return ok(ctx, http.StatusCreated, cs)
}

func (api *academicApi) bindBulk(ctx echo.Context) (academic.BulkClassSections, error) {
	var data academic.BulkClassSections
	if err := ctx.Bind(&data); err != nil {
		return data, errors.Wrap(err, "binding to BulkClassSections")
	}
	return data, data.Validate(api.validate)
}

func (api *academicApi) previewBulk(ctx echo.Context) error {
	data, err := api.bindBulk(ctx)
	if err != nil {
		return err
	}
	combos, err := api.svc.PreviewBulkClassSections(ctx.Request().Context(), contextScope(ctx), data)
	if err != nil {
		return errors.Wrap(err, "previewing class sections")
	}
	return okList(ctx, combos)
}

func (api *academicApi) bulkCreate(ctx echo.Context) error {
	data, err := api.bindBulk(ctx)
	if err != nil {
		return err
	}
	css, err := api.svc.BulkCreateClassSections(ctx.Request().Context(), contextScope(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating class sections")
	}
	if css == nil {
		css = []academic.ClassSection{}
	}
	return ok(ctx, http.StatusCreated, css)
}

func (api *academicApi) retrieveClassSection(ctx echo.Context) error {
	cs, err := api.svc.GetClassSection(ctx.Request().Context(), contextScope(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting class section")
	}
	return ok(ctx, http.StatusOK, cs)
}

func (api *academicApi) updateClassSection(ctx echo.Context) error {
	orig, err := api.svc.GetClassSection(ctx.Request().Context(), contextScope(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting class section")
	}
	var data academic.UpdateClassSection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClassSection")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	cs, err := api.svc.UpdateClassSection(ctx.Request().Context(), orig, data)
	if err != nil {
		return errors.Wrap(err, "updating class section")
	}
	return ok(ctx, http.StatusOK, cs)
}

func (api *academicApi) destroyClassSection(ctx echo.Context) error {
	if err := api.svc.DeleteClassSection(ctx.Request().Context(), contextScope(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class section")
	}
	return ctx.NoContent(http.StatusNoContent)
}
