package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/shule/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindQuery binds the query params of a GET request into i.
func bindQuery(ctx echo.Context, i interface{}) error {
	if err := ctx.Bind(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query params").SetInternal(err)
	}
	return nil
}

func bindPage(ctx echo.Context) (core.Pagination, error) {
	var page core.Pagination
	if err := bindQuery(ctx, &page); err != nil {
		return page, err
	}
	page.Clean()
	return page, nil
}

// ok writes data in an envelope; nil slices are rendered as empty lists.
func ok(ctx echo.Context, code int, data interface{}) error {
	return ctx.JSON(code, core.Envelope{Data: data})
}

func okList[T any](ctx echo.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	return ok(ctx, http.StatusOK, items)
}

func okPage[T any](ctx echo.Context, p core.Paged[T]) error {
	if p.Items == nil {
		p.Items = []T{}
	}
	return ctx.JSON(http.StatusOK, core.Envelope{Data: p.Items, Meta: core.PageMeta(p)})
}

// idParams collects the ids of bulk deletes from ?id=a&id=b.
func idParams(ctx echo.Context) []string {
	var ids []string
	for _, id := range ctx.QueryParams()["id"] {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
