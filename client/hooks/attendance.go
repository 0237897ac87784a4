package hooks

import (
	"context"
	"io"
	"net/http"

	"github.com/trezcool/shule/client/apiclient"
	"github.com/trezcool/shule/client/forms"
	"github.com/trezcool/shule/client/query"
	"github.com/trezcool/shule/core/attendance"
)

func attendanceParams(filter attendance.QueryFilter) apiclient.Params {
	return apiclient.FilterParams(filter)
}

// checkRange rejects inverted from/to filters before they are sent.
func (h *Hooks) checkRange(filter attendance.QueryFilter) error {
	if filter.From.IsZero() || filter.To.IsZero() {
		return nil
	}
	return h.forms.Validate(&forms.DateRange{From: filter.From, To: filter.To})
}

func (h *Hooks) Attendance(ctx context.Context, filter attendance.QueryFilter) query.State[[]attendance.Record] {
	if err := h.checkRange(filter); err != nil {
		return query.State[[]attendance.Record]{Status: query.StatusError, Err: err}
	}
	return get[[]attendance.Record](ctx, h, ResAttendance, attendanceParams(filter))
}

// MarkAttendance records a whole class for a date.
func (h *Hooks) MarkAttendance(ctx context.Context, form attendance.BulkMark) ([]attendance.Record, error) {
	return mutate[[]attendance.Record](ctx, h, http.MethodPost, ResAttendance+"/bulk", &form, ResAttendance)
}

// ExportAttendance writes the xlsx export of the filtered records to w.
func (h *Hooks) ExportAttendance(ctx context.Context, filter attendance.QueryFilter, w io.Writer) error {
	if err := h.checkRange(filter); err != nil {
		return err
	}
	return download(ctx, h.api, apiPrefix+ResAttendance+"/export", attendanceParams(filter), w)
}
