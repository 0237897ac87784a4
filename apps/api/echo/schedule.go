package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/permission"
	"github.com/trezcool/shule/core/schedule"
)

type scheduleApi struct {
	svc      *schedule.Service
	validate *validator.Validate
}

// yearQuery selects the academic year of settings lists.
type yearQuery struct {
	AcademicYearID string `query:"academic_year_id"`
}

func registerScheduleAPI(g *echo.Group, perms *permission.Service, svc *schedule.Service, validate *validator.Validate) {
	api := scheduleApi{svc: svc, validate: validate}
	feature := featureMiddleware(perms, permission.FeatureSchedule)

	tg := g.Group("/timing-templates", feature)
	tg.GET("", api.queryTimingTemplates)
	tg.POST("", api.createTimingTemplate)
	tg.GET("/:id", api.retrieveTimingTemplate)
	tg.PUT("/:id", api.updateTimingTemplate)
	tg.DELETE("/:id", api.destroyTimingTemplate)

	hg := g.Group("/holidays", feature)
	hg.GET("", api.queryHolidays)
	hg.POST("", api.createHoliday)
	hg.DELETE("/:id", api.destroyHoliday)

	vg := g.Group("/vacations", feature)
	vg.GET("", api.queryVacations)
	vg.POST("", api.createVacation)
	vg.DELETE("/:id", api.destroyVacation)

	g.GET("/closed-days", api.closedDays, feature)
}

func bindYear(ctx echo.Context) (string, error) {
	var q yearQuery
	if err := bindQuery(ctx, &q); err != nil {
		return "", err
	}
	return q.AcademicYearID, nil
}

// Timing templates

func (api *scheduleApi) queryTimingTemplates(ctx echo.Context) error {
	tts, err := api.svc.QueryTimingTemplates(ctx.Request().Context(), contextScope(ctx))
	if err != nil {
		return errors.Wrap(err, "querying timing templates")
	}
	return okList(ctx, tts)
}

func (api *scheduleApi) createTimingTemplate(ctx echo.Context) error {
	var data schedule.NewTimingTemplate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTimingTemplate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	tt, err := api.svc.CreateTimingTemplate(ctx.Request().Context(), contextScope(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating timing template")
	}
	return ok(ctx, http.StatusCreated, tt)
}

func (api *scheduleApi) retrieveTimingTemplate(ctx echo.Context) error {
	tt, err := api.svc.GetTimingTemplate(ctx.Request().Context(), contextScope(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting timing template")
	}
	return ok(ctx, http.StatusOK, tt)
}

func (api *scheduleApi) updateTimingTemplate(ctx echo.Context) error {
	orig, err := api.svc.GetTimingTemplate(ctx.Request().Context(), contextScope(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting timing template")
	}
	var data schedule.NewTimingTemplate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTimingTemplate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	tt, err := api.svc.UpdateTimingTemplate(ctx.Request().Context(), orig, data)
	if err != nil {
		return errors.Wrap(err, "updating timing template")
	}
	return ok(ctx, http.StatusOK, tt)
}

func (api *scheduleApi) destroyTimingTemplate(ctx echo.Context) error {
	if err := api.svc.DeleteTimingTemplate(ctx.Request().Context(), contextScope(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting timing template")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Holidays & vacations

func (api *scheduleApi) queryHolidays(ctx echo.Context) error {
	yearID, err := bindYear(ctx)
	if err != nil {
		return err
	}
	hs, err := api.svc.QueryHolidays(ctx.Request().Context(), contextScope(ctx), yearID)
	if err != nil {
		return errors.Wrap(err, "querying holidays")
	}
	return okList(ctx, hs)
}

func (api *scheduleApi) createHoliday(ctx echo.Context) error {
	var data schedule.NewPublicHoliday
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPublicHoliday")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	h, err := api.svc.CreateHoliday(ctx.Request().Context(), contextScope(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating holiday")
	}
	return ok(ctx, http.StatusCreated, h)
}

func (api *scheduleApi) destroyHoliday(ctx echo.Context) error {
	if err := api.svc.DeleteHoliday(ctx.Request().Context(), contextScope(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting holiday")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *scheduleApi) queryVacations(ctx echo.Context) error {
	yearID, err := bindYear(ctx)
	if err != nil {
		return err
	}
	vs, err := api.svc.QueryVacations(ctx.Request().Context(), contextScope(ctx), yearID)
	if err != nil {
		return errors.Wrap(err, "querying vacations")
	}
	return okList(ctx, vs)
}

func (api *scheduleApi) createVacation(ctx echo.Context) error {
	var data schedule.NewVacation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewVacation")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	v, err := api.svc.CreateVacation(ctx.Request().Context(), contextScope(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating vacation")
	}
	return ok(ctx, http.StatusCreated, v)
}

func (api *scheduleApi) destroyVacation(ctx echo.Context) error {
	if err := api.svc.DeleteVacation(ctx.Request().Context(), contextScope(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting vacation")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *scheduleApi) closedDays(ctx echo.Context) error {
	yearID, err := bindYear(ctx)
	if err != nil {
		return err
	}
	days, err := api.svc.ClosedDays(ctx.Request().Context(), contextScope(ctx), yearID)
	if err != nil {
		return errors.Wrap(err, "listing closed days")
	}
	return okList(ctx, days)
}
