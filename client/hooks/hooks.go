// Package hooks exposes one query per API read and one mutation per API write.
//
// Queries are cached by resource + params. Mutations validate their form before any request is
// sent and, on success, invalidate the resources they touch so dependent queries refetch on
// their next read.
package hooks

import (
	"context"
	"net/http"

	"github.com/trezcool/shule/client/apiclient"
	"github.com/trezcool/shule/client/forms"
	"github.com/trezcool/shule/client/query"
	"github.com/trezcool/shule/core"
)

const apiPrefix = "/api/v1/"

// Cached resources
const (
	ResStudents         = "students"
	ResStaff            = "staff"
	ResUsers            = "users"
	ResAttendance       = "attendance"
	ResAcademicYears    = "academic-years"
	ResActiveYear       = "academic-years/active"
	ResClassSections    = "class-sections"
	ResHolidays         = "holidays"
	ResVacations        = "vacations"
	ResTimingTemplates  = "timing-templates"
	ResAssessmentTypes  = "assessment-types"
	ResGradeTemplates   = "grade-templates"
	ResRoles            = "roles"
	ResFeatures         = "features"
	ResPermissions      = "permissions"
	ResNotifications    = "notifications"
	ResUnreadCount      = "notifications/unread-count"
	ResMyPermissions    = "permissions/me"
	ResTheme            = "theme"
)

// Page is a page of items with its pagination meta.
type Page[T any] struct {
	Items []T        `json:"items"`
	Meta  *core.Meta `json:"meta"`
}

type Hooks struct {
	api   *apiclient.Client
	cache *query.Cache
	forms *forms.Validator
}

func New(api *apiclient.Client, cache *query.Cache, validator *forms.Validator) *Hooks {
	return &Hooks{api: api, cache: cache, forms: validator}
}

// NewFromConfig wires a client, a cache & a validator from the client settings of conf.
func NewFromConfig(conf core.ClientConfig, store core.Cache, opts ...apiclient.Option) *Hooks {
	cacheOpts := []query.Option{query.WithStaleAfter(conf.CacheStaleAfter)}
	if store != nil {
		cacheOpts = append(cacheOpts, query.WithSharedStore(store))
	}
	return New(apiclient.NewFromConfig(conf, opts...), query.New(cacheOpts...), forms.New())
}

func (h *Hooks) API() *apiclient.Client { return h.api }
func (h *Hooks) Cache() *query.Cache    { return h.cache }

// get is the query of resource with params: GET /api/v1/<resource>?<params>.
func get[T any](ctx context.Context, h *Hooks, resource string, params apiclient.Params) query.State[T] {
	key := query.NewKey(resource, params)
	return query.Fetch(ctx, h.cache, key, func(ctx context.Context) (T, error) {
		res, err := apiclient.Get[T](ctx, h.api, apiPrefix+resource, apiclient.WithParams(params))
		return res.Data, err
	})
}

// getPage is get for paginated lists, keeping the pagination meta.
func getPage[T any](ctx context.Context, h *Hooks, resource string, params apiclient.Params) query.State[Page[T]] {
	key := query.NewKey(resource, params)
	return query.Fetch(ctx, h.cache, key, func(ctx context.Context) (Page[T], error) {
		res, err := apiclient.Get[[]T](ctx, h.api, apiPrefix+resource, apiclient.WithParams(params))
		if err != nil {
			return Page[T]{}, err
		}
		return Page[T]{Items: res.Data, Meta: res.Meta}, nil
	})
}

func pageParams(filter interface{}, ordering []core.DBOrdering, page core.Pagination) apiclient.Params {
	p := apiclient.FilterParams(filter)
	p["ordering"] = ordering
	p["page"] = page.Page
	p["per_page"] = page.PerPage
	return p
}

// mutate validates form (when not nil), sends it and invalidates resources on success.
func mutate[T any](ctx context.Context, h *Hooks, method, path string, form interface{}, resources ...string) (T, error) {
	if form != nil {
		if err := h.forms.Validate(form); err != nil {
			var zero T
			return zero, err
		}
	}
	return query.Mutate(ctx, h.cache, func(ctx context.Context) (T, error) {
		var opts []apiclient.RequestOption
		if form != nil {
			opts = append(opts, apiclient.WithBody(form))
		}
		var res apiclient.ApiResponse[T]
		err := h.api.Do(ctx, method, apiPrefix+path, &res, opts...)
		return res.Data, err
	}, resources...)
}

// remove sends a DELETE and invalidates resources on success.
func remove(ctx context.Context, h *Hooks, path string, resources ...string) error {
	_, err := mutate[struct{}](ctx, h, http.MethodDelete, path, nil, resources...)
	return err
}
