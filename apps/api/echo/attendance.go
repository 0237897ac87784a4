package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/permission"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var errRangeInverted = errors.New("to cannot be before the start date")

type attendanceApi struct {
	svc      *attendance.Service
	validate *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, perms *permission.Service, svc *attendance.Service, validate *validator.Validate) {
	api := attendanceApi{svc: svc, validate: validate}

	ag := g.Group("/attendance", featureMiddleware(perms, permission.FeatureAttendance))
	ag.GET("", api.query)
	ag.GET("/summary", api.summary)
	ag.GET("/export", api.export)
	ag.POST("/bulk", api.mark)
}

func bindAttendanceFilter(ctx echo.Context) (attendance.QueryFilter, error) {
	var filter attendance.QueryFilter
	if err := bindQuery(ctx, &filter); err != nil {
		return filter, err
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return filter, core.NewFieldError("to", errRangeInverted)
	}
	return filter, nil
}

func (api *attendanceApi) query(ctx echo.Context) error {
	filter, err := bindAttendanceFilter(ctx)
	if err != nil {
		return err
	}
	records, err := api.svc.Query(ctx.Request().Context(), contextScope(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return okList(ctx, records)
}

func (api *attendanceApi) summary(ctx echo.Context) error {
	filter, err := bindAttendanceFilter(ctx)
	if err != nil {
		return err
	}
	records, err := api.svc.Query(ctx.Request().Context(), contextScope(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ok(ctx, http.StatusOK, attendance.Summarize(records))
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	var data attendance.BulkMark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkMark")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	records, err := api.svc.MarkClass(ctx.Request().Context(), contextScope(ctx), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return okList(ctx, records)
}

func (api *attendanceApi) export(ctx echo.Context) error {
	filter, err := bindAttendanceFilter(ctx)
	if err != nil {
		return err
	}
	name := "attendance"
	if !filter.From.IsZero() {
		name += "-" + filter.From.String()
	}
	if !filter.To.IsZero() {
		name += "-" + filter.To.String()
	}

	var buf bytes.Buffer
	if err := api.svc.Export(ctx.Request().Context(), contextScope(ctx), filter, &buf); err != nil {
		return errors.Wrap(err, "exporting attendance")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name+".xlsx"))
	return ctx.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
