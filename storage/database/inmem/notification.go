package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/notification"
)

type notificationRepository struct {
	db *table[notification.Notification]
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db.notification}
}

func (repo *notificationRepository) CreateNotifications(_ context.Context, ns ...notification.Notification) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, n := range ns {
		repo.db.rows[n.ID] = n
	}
	return nil
}

func (repo *notificationRepository) QueryNotifications(_ context.Context, userID string, filter notification.QueryFilter, page core.Pagination) (core.Paged[notification.Notification], error) {
	ns := repo.db.query(
		func(n notification.Notification) bool {
			return n.UserID == userID && !(filter.UnreadOnly && n.IsRead())
		},
		func(a, b notification.Notification) bool { return a.CreatedAt.After(b.CreatedAt) },
	)
	return paginate(ns, page), nil
}

func (repo *notificationRepository) CountUnread(_ context.Context, userID string) (int, error) {
	return len(repo.db.query(func(n notification.Notification) bool { return n.UserID == userID && !n.IsRead() }, nil)), nil
}

func (repo *notificationRepository) MarkRead(_ context.Context, userID string, at time.Time, ids ...string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	mark := func(id string, n notification.Notification) {
		if n.ReadAt == nil {
			readAt := at
			n.ReadAt = &readAt
			repo.db.rows[id] = n
		}
	}

	var count int
	if len(ids) == 0 {
		for id, n := range repo.db.rows {
			if n.UserID == userID && !n.IsRead() {
				mark(id, n)
				count++
			}
		}
		return count, nil
	}
	for _, id := range ids {
		if n, ok := repo.db.rows[id]; ok && n.UserID == userID {
			mark(id, n)
			count++
		}
	}
	return count, nil
}
