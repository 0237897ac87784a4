package notification_test

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/services/email"
	"github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/cache"
	"github.com/trezcool/shule/storage/database/inmem"
	"github.com/trezcool/shule/tests"
)

func TestService(t *testing.T) {
	conf := core.NewTestConfig()
	db := inmemdb.Open()
	users := inmemdb.NewUserRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	memCache := cache.NewMemory()
	svc := notification.NewService(
		inmemdb.NewNotificationRepository(db),
		user.NewService(users, mailSvc, conf),
		memCache,
		mailSvc,
		logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf),
	)
	ctx := context.Background()

	tenantID := core.NewID()
	scope := core.Scope{TenantID: tenantID, BranchID: core.NewID()}
	teacher := testutil.CreateUser(t, users, scope, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	noEmail := testutil.CreateUser(t, users, scope, "Driver", "driver", "", "", []string{user.RoleStaff}, true)
	elsewhere := testutil.CreateUser(t, users, core.Scope{TenantID: core.NewID()}, "Other", "other", "other@test.cd", "", nil, true)

	t.Run("recipients must be visible", func(t *testing.T) {
		_, err := svc.Notify(ctx, core.Scope{TenantID: tenantID}, notification.NewNotification{UserIDs: []string{teacher.ID, elsewhere.ID}, Title: "Hi"})
		verr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok, "%v", err)
		assert.Equal(t, "user_ids", verr.Fields[0].Field)

		n, err := svc.UnreadCount(ctx, teacher.ID)
		require.NoError(t, err)
		assert.Zero(t, n, "nothing is created on failure")
	})

	t.Run("notify", func(t *testing.T) {
		mailSvc.Reset()
		ns, err := svc.Notify(ctx, core.Scope{TenantID: tenantID}, notification.NewNotification{
			UserIDs: []string{teacher.ID, noEmail.ID, teacher.ID}, Title: "Staff meeting", Body: "At 10.", SendEmail: true,
		})
		require.NoError(t, err)
		require.Len(t, ns, 2, "recipients are deduplicated")
		assert.Equal(t, scope.BranchID, ns[0].BranchID)
		assert.False(t, ns[0].IsRead())

		msgs := mailSvc.SentMessages()
		require.Len(t, msgs, 1, "users without an email are skipped")
		assert.Equal(t, "teacher@test.cd", msgs[0].To[0].Address)
	})

	t.Run("unread count is cached until it changes", func(t *testing.T) {
		n, err := svc.UnreadCount(ctx, teacher.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		gen, err := memCache.Get(ctx, "notifications:unread:"+teacher.ID)
		require.NoError(t, err)
		val, err := memCache.Get(ctx, "notifications:unread:"+teacher.ID+":"+string(gen))
		require.NoError(t, err)
		assert.Equal(t, "1", string(val))

		_, err = svc.Notify(ctx, scope, notification.NewNotification{UserIDs: []string{teacher.ID}, Title: "Report cards"})
		require.NoError(t, err)
		_, err = memCache.Get(ctx, "notifications:unread:"+teacher.ID)
		assert.Equal(t, core.ErrCacheMiss, errors.Cause(err))

		n, err = svc.UnreadCount(ctx, teacher.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("mark read", func(t *testing.T) {
		page, err := svc.List(ctx, teacher.ID, notification.QueryFilter{UnreadOnly: true}, core.Pagination{})
		require.NoError(t, err)
		require.Equal(t, 2, page.Total)

		require.NoError(t, svc.MarkRead(ctx, teacher.ID, page.Items[0].ID))
		require.NoError(t, svc.MarkRead(ctx, teacher.ID, page.Items[0].ID), "idempotent")
		assert.True(t, core.IsNotFound(svc.MarkRead(ctx, noEmail.ID, page.Items[1].ID)))

		n, err := svc.UnreadCount(ctx, teacher.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		updated, err := svc.MarkAllRead(ctx, teacher.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, updated)
		n, err = svc.UnreadCount(ctx, teacher.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

// countHook runs during CountUnread, after the count was taken.
type countHook struct {
	notification.Repository
	during func()
}

func (r *countHook) CountUnread(ctx context.Context, userID string) (int, error) {
	n, err := r.Repository.CountUnread(ctx, userID)
	if r.during != nil {
		during := r.during
		r.during = nil
		during()
	}
	return n, err
}

func TestService_UnreadCountInvalidatedWhileCounting(t *testing.T) {
	conf := core.NewTestConfig()
	db := inmemdb.Open()
	users := inmemdb.NewUserRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	repo := &countHook{Repository: inmemdb.NewNotificationRepository(db)}
	svc := notification.NewService(
		repo,
		user.NewService(users, mailSvc, conf),
		cache.NewMemory(),
		mailSvc,
		logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf),
	)
	ctx := context.Background()

	scope := core.Scope{TenantID: core.NewID()}
	parent := testutil.CreateUser(t, users, scope, "Mama", "mama", "mama@test.cd", "", []string{user.RoleParent}, true)

	repo.during = func() {
		_, err := svc.Notify(ctx, scope, notification.NewNotification{UserIDs: []string{parent.ID}, Title: "Absent"})
		require.NoError(t, err)
	}
	n, err := svc.UnreadCount(ctx, parent.ID)
	require.NoError(t, err)
	assert.Zero(t, n, "counted before the notification")

	n, err = svc.UnreadCount(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "the stale count is not served")
}
