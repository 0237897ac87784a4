package hooks

import (
	"context"
	"net/http"
	"time"

	"github.com/trezcool/shule/client/apiclient"
	"github.com/trezcool/shule/client/query"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/theme"
)

type UnreadCount struct {
	Count int `json:"count"`
}

type ReadCount struct {
	Updated int `json:"updated"`
}

func (h *Hooks) Notifications(ctx context.Context, filter notification.QueryFilter, page core.Pagination) query.State[Page[notification.Notification]] {
	return getPage[notification.Notification](ctx, h, ResNotifications, pageParams(filter, nil, page))
}

func (h *Hooks) UnreadCount(ctx context.Context) query.State[UnreadCount] {
	return get[UnreadCount](ctx, h, ResUnreadCount, nil)
}

func (h *Hooks) fetchUnreadCount(ctx context.Context) (UnreadCount, error) {
	res, err := apiclient.Get[UnreadCount](ctx, h.api, apiPrefix+ResUnreadCount)
	return res.Data, err
}

// PollUnreadCount refetches the unread count every interval, passing each result to fn, until ctx is done.
func (h *Hooks) PollUnreadCount(ctx context.Context, interval time.Duration, fn func(query.State[UnreadCount])) {
	query.Poll(ctx, h.cache, query.NewKey(ResUnreadCount, nil), interval, h.fetchUnreadCount, fn)
}

func (h *Hooks) SendNotification(ctx context.Context, form notification.NewNotification) ([]notification.Notification, error) {
	return mutate[[]notification.Notification](ctx, h, http.MethodPost, ResNotifications, &form, ResNotifications)
}

func (h *Hooks) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := mutate[struct{}](ctx, h, http.MethodPost, ResNotifications+"/"+id+"/read", nil, ResNotifications)
	return err
}

func (h *Hooks) MarkAllNotificationsRead(ctx context.Context) (int, error) {
	res, err := mutate[ReadCount](ctx, h, http.MethodPost, ResNotifications+"/read-all", nil, ResNotifications)
	return res.Updated, err
}

// Theme

func (h *Hooks) Theme(ctx context.Context) query.State[theme.Palette] {
	return get[theme.Palette](ctx, h, ResTheme, nil)
}

func (h *Hooks) UpdateTheme(ctx context.Context, form tenant.UpdateTheme) (theme.Palette, error) {
	return mutate[theme.Palette](ctx, h, http.MethodPut, ResTheme, &form, ResTheme)
}
