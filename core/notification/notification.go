package notification

import (
	"context"
	"net/mail"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

const unreadCountTTL = 5 * time.Minute

type Notification struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	BranchID  string     `json:"branch_id"`
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (n Notification) IsRead() bool { return n.ReadAt != nil }

type NewNotification struct {
	UserIDs   []string `json:"user_ids" validate:"required,min=1,dive,uuid"`
	Title     string   `json:"title" validate:"required,max=200"`
	Body      string   `json:"body" validate:"max=5000"`
	SendEmail bool     `json:"send_email"`
}

func (nn *NewNotification) Validate(validate *validator.Validate) error {
	nn.Title = core.CleanString(nn.Title)
	return validate.Struct(nn)
}

type QueryFilter struct {
	UnreadOnly bool `query:"unread"`
}

type Repository interface {
	CreateNotifications(ctx context.Context, ns ...Notification) error
	QueryNotifications(ctx context.Context, userID string, filter QueryFilter, page core.Pagination) (core.Paged[Notification], error)
	CountUnread(ctx context.Context, userID string) (int, error)
	// MarkRead marks the given notifications (all unread ones when none given) of userID as read.
	// It returns how many of the given notifications userID owns, read before or not.
	MarkRead(ctx context.Context, userID string, at time.Time, ids ...string) (int, error)
}

type UserGetter interface {
	GetInScope(ctx context.Context, scope core.Scope, id string) (user.User, error)
}

type Service struct {
	repo    Repository
	users   UserGetter
	cache   core.Cache
	mailSvc core.EmailService
	logger  core.Logger
}

func NewService(repo Repository, users UserGetter, cache core.Cache, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{repo: repo, users: users, cache: cache, mailSvc: mailSvc, logger: logger}
}

// unreadGenKey holds the current generation of a user's cached unread count.
// Counts are cached under their generation, so one computed before an invalidation is never served after it.
func unreadGenKey(userID string) string {
	return "notifications:unread:" + userID
}

func unreadKey(userID, gen string) string {
	return unreadGenKey(userID) + ":" + gen
}

func (svc *Service) forgetUnread(ctx context.Context, userIDs ...string) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, unreadGenKey(id))
	}
	if err := svc.cache.Delete(ctx, keys...); err != nil {
		svc.logger.Warn("clearing unread counts", "error", err)
	}
}

// Notify creates one notification per recipient visible from scope, emailing them when asked.
func (svc *Service) Notify(ctx context.Context, scope core.Scope, nn NewNotification) ([]Notification, error) {
	now := time.Now().UTC()
	ns := make([]Notification, 0, len(nn.UserIDs))
	var msgs []*core.EmailMessage
	seen := make(map[string]struct{}, len(nn.UserIDs))

	for _, id := range nn.UserIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		usr, err := svc.users.GetInScope(ctx, scope, id)
		if err != nil {
			if core.IsNotFound(err) {
				return nil, core.NewFieldError("user_ids", errors.Wrap(user.ErrNotFound, id))
			}
			return nil, errors.Wrap(err, "getting recipient")
		}
		ns = append(ns, Notification{
			ID:        core.NewID(),
			TenantID:  usr.TenantID,
			BranchID:  usr.BranchID,
			UserID:    usr.ID,
			Title:     nn.Title,
			Body:      nn.Body,
			CreatedAt: now,
		})
		if nn.SendEmail && usr.Email != "" {
			msgs = append(msgs, &core.EmailMessage{
				To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
				Subject:      nn.Title,
				TemplateName: "notification",
				TemplateData: map[string]string{"Name": usr.Name, "Title": nn.Title, "Body": nn.Body},
			})
		}
	}

	if err := svc.repo.CreateNotifications(ctx, ns...); err != nil {
		return nil, errors.Wrap(err, "creating notifications")
	}
	svc.forgetUnread(ctx, nn.UserIDs...)
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
	return ns, nil
}

func (svc *Service) List(ctx context.Context, userID string, filter QueryFilter, page core.Pagination) (core.Paged[Notification], error) {
	page.Clean()
	return svc.repo.QueryNotifications(ctx, userID, filter, page)
}

// unreadGen returns the user's current count generation, starting a new one when there is none.
func (svc *Service) unreadGen(ctx context.Context, userID string) (string, error) {
	val, err := svc.cache.Get(ctx, unreadGenKey(userID))
	if err == nil {
		return string(val), nil
	}
	if errors.Cause(err) != core.ErrCacheMiss {
		return "", err
	}
	gen := core.NewID()
	if err := svc.cache.Set(ctx, unreadGenKey(userID), []byte(gen), 0); err != nil {
		return "", err
	}
	return gen, nil
}

// UnreadCount is served from the cache, falling back to the repository.
func (svc *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	gen, err := svc.unreadGen(ctx, userID)
	if err != nil {
		svc.logger.Warn("reading unread count generation", "error", err)
		return svc.countUnread(ctx, userID)
	}

	key := unreadKey(userID, gen)
	if val, err := svc.cache.Get(ctx, key); err == nil {
		if n, err := strconv.Atoi(string(val)); err == nil {
			return n, nil
		}
	} else if errors.Cause(err) != core.ErrCacheMiss {
		svc.logger.Warn("reading unread count from cache", "error", err)
	}

	n, err := svc.countUnread(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := svc.cache.Set(ctx, key, []byte(strconv.Itoa(n)), unreadCountTTL); err != nil {
		svc.logger.Warn("caching unread count", "error", err)
	}
	return n, nil
}

func (svc *Service) countUnread(ctx context.Context, userID string) (int, error) {
	n, err := svc.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, errors.Wrap(err, "counting unread notifications")
	}
	return n, nil
}

func (svc *Service) MarkRead(ctx context.Context, userID, id string) error {
	n, err := svc.repo.MarkRead(ctx, userID, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	if n == 0 {
		return core.ErrNotFound
	}
	svc.forgetUnread(ctx, userID)
	return nil
}

func (svc *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	n, err := svc.repo.MarkRead(ctx, userID, time.Now().UTC())
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications read")
	}
	svc.forgetUnread(ctx, userID)
	return n, nil
}
