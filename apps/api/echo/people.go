package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/permission"
	"github.com/trezcool/shule/core/staff"
	"github.com/trezcool/shule/core/student"
)

const maxImportSize = 5 << 20

type studentApi struct {
	svc        *student.Service
	classes    *academic.Service
	validate   *validator.Validate
	translator ut.Translator
	logger     core.Logger
}

func registerStudentAPI(
	g *echo.Group,
	perms *permission.Service,
	svc *student.Service,
	classes *academic.Service,
	validate *validator.Validate,
	translator ut.Translator,
	logger core.Logger,
) {
	api := studentApi{svc: svc, classes: classes, validate: validate, translator: translator, logger: logger}

	sg := g.Group("/students", featureMiddleware(perms, permission.FeatureStudents))
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.DELETE("", api.destroyMultiple)
	sg.POST("/import", api.importXLSX)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update)
	sg.DELETE("/:id", api.destroy)
	sg.GET("/:id/parents", api.parents)
	sg.POST("/:id/parents", api.addParent)
	sg.DELETE("/:id/parents/:pid", api.removeParent)
}

func (api *studentApi) query(ctx echo.Context) error {
	var filter student.QueryFilter
	if err := bindQuery(ctx, &filter); err != nil {
		return err
	}
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.svc.Query(ctx.Request().Context(), contextScope(ctx), filter, ordering.Orderings, page)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return okPage(ctx, students)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	s, err := api.svc.Create(ctx.Request().Context(), contextScope(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ok(ctx, http.StatusCreated, s)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.Get(ctx.Request().Context(), contextScope(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return ok(ctx, http.StatusOK, s)
}

func (api *studentApi) update(ctx echo.Context) error {
	scope := contextScope(ctx)
	orig, err := api.svc.Get(ctx.Request().Context(), scope, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}

	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	s, err := data.Apply(orig, api.validate)
	if err != nil {
		return err
	}
	if s, err = api.svc.Update(ctx.Request().Context(), s); err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ok(ctx, http.StatusOK, s)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	scope := contextScope(ctx)
	if _, err := api.svc.Get(ctx.Request().Context(), scope, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "getting student")
	}
	if err := api.svc.Delete(ctx.Request().Context(), scope, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) destroyMultiple(ctx echo.Context) error {
	ids := idParams(ctx)
	if ids == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), contextScope(ctx), ids...); err != nil {
		return errors.Wrap(err, "deleting students")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// importXLSX creates the students of the uploaded "file" spreadsheet; failing rows are reported, not fatal.
func (api *studentApi) importXLSX(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewFieldError("file", errors.New("this field is required"))
	}
	if fh.Size > maxImportSize {
		return core.NewFieldError("file", errors.New("file too large"))
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	rows, rowErrs, err := student.ParseXLSX(f)
	if err != nil {
		return core.NewFieldError("file", err)
	}

	report, err := api.svc.Import(ctx.Request().Context(), contextScope(ctx), rows, api.validate, api.translator, api.classes)
	if err != nil {
		return errors.Wrap(err, "importing students")
	}
	if len(rowErrs) > 0 {
		report.Errors = append(rowErrs, report.Errors...)
	}
	if len(report.Errors) > 0 {
		api.logger.Warn("student import rows rejected", map[string]interface{}{
			"file":     fh.Filename,
			"created":  len(report.Created),
			"rejected": len(report.Errors),
		})
	}
	return ok(ctx, http.StatusOK, report)
}

func (api *studentApi) parents(ctx echo.Context) error {
	scope := contextScope(ctx)
	if _, err := api.svc.Get(ctx.Request().Context(), scope, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "getting student")
	}
	parents, err := api.svc.Parents(ctx.Request().Context(), scope, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying parents")
	}
	return okList(ctx, parents)
}

func (api *studentApi) addParent(ctx echo.Context) error {
	var data student.NewParentAssociation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewParentAssociation")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	pa, err := api.svc.AddParent(ctx.Request().Context(), contextScope(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding parent")
	}
	return ok(ctx, http.StatusCreated, pa)
}

func (api *studentApi) removeParent(ctx echo.Context) error {
	if err := api.svc.RemoveParent(ctx.Request().Context(), contextScope(ctx), ctx.Param("id"), ctx.Param("pid")); err != nil {
		return errors.Wrap(err, "removing parent")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type staffApi struct {
	svc      *staff.Service
	validate *validator.Validate
}

func registerStaffAPI(g *echo.Group, perms *permission.Service, svc *staff.Service, validate *validator.Validate) {
	api := staffApi{svc: svc, validate: validate}

	sg := g.Group("/staff", featureMiddleware(perms, permission.FeatureStaff))
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.DELETE("", api.destroyMultiple)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update)
	sg.DELETE("/:id", api.destroy)
}

func (api *staffApi) query(ctx echo.Context) error {
	var filter staff.QueryFilter
	if err := bindQuery(ctx, &filter); err != nil {
		return err
	}
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	members, err := api.svc.Query(ctx.Request().Context(), contextScope(ctx), filter, ordering.Orderings, page)
	if err != nil {
		return errors.Wrap(err, "querying staff")
	}
	return okPage(ctx, members)
}

func (api *staffApi) create(ctx echo.Context) error {
	var data staff.NewStaff
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStaff")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	s, err := api.svc.Create(ctx.Request().Context(), contextScope(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating staff")
	}
	return ok(ctx, http.StatusCreated, s)
}

func (api *staffApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.Get(ctx.Request().Context(), contextScope(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting staff")
	}
	return ok(ctx, http.StatusOK, s)
}

func (api *staffApi) update(ctx echo.Context) error {
	orig, err := api.svc.Get(ctx.Request().Context(), contextScope(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting staff")
	}
	var data staff.UpdateStaff
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStaff")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	s, err := api.svc.Update(ctx.Request().Context(), orig, data)
	if err != nil {
		return errors.Wrap(err, "updating staff")
	}
	return ok(ctx, http.StatusOK, s)
}

func (api *staffApi) destroy(ctx echo.Context) error {
	scope := contextScope(ctx)
	if _, err := api.svc.Get(ctx.Request().Context(), scope, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "getting staff")
	}
	if err := api.svc.Delete(ctx.Request().Context(), scope, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting staff")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *staffApi) destroyMultiple(ctx echo.Context) error {
	ids := idParams(ctx)
	if ids == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), contextScope(ctx), ids...); err != nil {
		return errors.Wrap(err, "deleting staff")
	}
	return ctx.NoContent(http.StatusNoContent)
}
