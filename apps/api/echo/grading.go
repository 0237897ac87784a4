package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/grading"
	"github.com/trezcool/shule/core/permission"
)

type gradingApi struct {
	svc      *grading.Service
	validate *validator.Validate
}

func registerGradingAPI(g *echo.Group, perms *permission.Service, svc *grading.Service, validate *validator.Validate) {
	api := gradingApi{svc: svc, validate: validate}
	feature := featureMiddleware(perms, permission.FeatureGrading)

	ag := g.Group("/assessment-types", feature)
	ag.GET("", api.queryAssessmentTypes)
	ag.POST("", api.createAssessmentType)
	ag.GET("/:id", api.retrieveAssessmentType)
	ag.PUT("/:id", api.updateAssessmentType)
	ag.DELETE("/:id", api.destroyAssessmentType)

	tg := g.Group("/grade-templates", feature)
	tg.GET("", api.queryGradeTemplates)
	tg.POST("", api.createGradeTemplate)
	tg.GET("/:id", api.retrieveGradeTemplate)
	tg.PUT("/:id", api.updateGradeTemplate)
	tg.DELETE("/:id", api.destroyGradeTemplate)
}

func (api *gradingApi) queryAssessmentTypes(ctx echo.Context) error {
	yearID, err := bindYear(ctx)
	if err != nil {
		return err
	}
	ats, err := api.svc.QueryAssessmentTypes(ctx.Request().Context(), contextScope(ctx), yearID)
	if err != nil {
		return errors.Wrap(err, "querying assessment types")
	}
	return okList(ctx, ats)
}

func (api *gradingApi) createAssessmentType(ctx echo.Context) error {
	var data grading.NewAssessmentType
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssessmentType")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	at, err := api.svc.CreateAssessmentType(ctx.Request().Context(), contextScope(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating assessment type")
	}
	return ok(ctx, http.StatusCreated, at)
}

func (api *gradingApi) retrieveAssessmentType(ctx echo.Context) error {
	at, err := api.svc.GetAssessmentType(ctx.Request().Context(), contextScope(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting assessment type")
	}
	return ok(ctx, http.StatusOK, at)
}

func (api *gradingApi) updateAssessmentType(ctx echo.Context) error {
	orig, err := api.svc.GetAssessmentType(ctx.Request().Context(), contextScope(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting assessment type")
	}
	var data grading.UpdateAssessmentType
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssessmentType")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	at, err := api.svc.UpdateAssessmentType(ctx.Request().Context(), orig, data)
	if err != nil {
		return errors.Wrap(err, "updating assessment type")
	}
	return ok(ctx, http.StatusOK, at)
}

func (api *gradingApi) destroyAssessmentType(ctx echo.Context) error {
	if err := api.svc.DeleteAssessmentType(ctx.Request().Context(), contextScope(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assessment type")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *gradingApi) queryGradeTemplates(ctx echo.Context) error {
	gts, err := api.svc.QueryGradeTemplates(ctx.Request().Context(), contextScope(ctx))
	if err != nil {
		return errors.Wrap(err, "querying grade templates")
	}
	return okList(ctx, gts)
}

func (api *gradingApi) createGradeTemplate(ctx echo.Context) error {
	var data grading.NewGradeTemplate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGradeTemplate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	gt, err := api.svc.CreateGradeTemplate(ctx.Request().Context(), contextScope(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating grade template")
	}
	return ok(ctx, http.StatusCreated, gt)
}

func (api *gradingApi) retrieveGradeTemplate(ctx echo.Context) error {
	gt, err := api.svc.GetGradeTemplate(ctx.Request().Context(), contextScope(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting grade template")
	}
	return ok(ctx, http.StatusOK, gt)
}

func (api *gradingApi) updateGradeTemplate(ctx echo.Context) error {
	orig, err := api.svc.GetGradeTemplate(ctx.Request().Context(), contextScope(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting grade template")
	}
	var data grading.NewGradeTemplate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGradeTemplate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	gt, err := api.svc.UpdateGradeTemplate(ctx.Request().Context(), orig, data)
	if err != nil {
		return errors.Wrap(err, "updating grade template")
	}
	return ok(ctx, http.StatusOK, gt)
}

func (api *gradingApi) destroyGradeTemplate(ctx echo.Context) error {
	if err := api.svc.DeleteGradeTemplate(ctx.Request().Context(), contextScope(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting grade template")
	}
	return ctx.NoContent(http.StatusNoContent)
}
