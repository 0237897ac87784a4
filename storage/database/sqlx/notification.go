package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/notification"
)

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

type notificationRow struct {
	ID        string      `db:"id"`
	TenantID  string      `db:"tenant_id"`
	BranchID  null.String `db:"branch_id"`
	UserID    string      `db:"user_id"`
	Title     string      `db:"title"`
	Body      string      `db:"body"`
	ReadAt    null.Time   `db:"read_at"`
	CreatedAt time.Time   `db:"created_at"`
}

func (r notificationRow) notification() notification.Notification {
	return notification.Notification{
		ID:        r.ID,
		TenantID:  r.TenantID,
		BranchID:  r.BranchID.String,
		UserID:    r.UserID,
		Title:     r.Title,
		Body:      r.Body,
		ReadAt:    r.ReadAt.Ptr(),
		CreatedAt: r.CreatedAt,
	}
}

func (repo *notificationRepository) CreateNotifications(ctx context.Context, ns ...notification.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		for _, n := range ns {
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO notification (id, tenant_id, branch_id, user_id, title, body, read_at, created_at)
				VALUES (:id, :tenant_id, :branch_id, :user_id, :title, :body, :read_at, :created_at)`,
				notificationRow{
					ID:        n.ID,
					TenantID:  n.TenantID,
					BranchID:  nullString(n.BranchID),
					UserID:    n.UserID,
					Title:     n.Title,
					Body:      n.Body,
					ReadAt:    null.TimeFromPtr(n.ReadAt),
					CreatedAt: n.CreatedAt,
				},
			); err != nil {
				return errors.Wrap(err, "inserting notification")
			}
		}
		return nil
	})
}

func (repo *notificationRepository) QueryNotifications(ctx context.Context, userID string, filter notification.QueryFilter, page core.Pagination) (core.Paged[notification.Notification], error) {
	w := new(where)
	w.add("user_id = ?", userID)
	if filter.UnreadOnly {
		w.add("read_at IS NULL")
	}

	res := core.Paged[notification.Notification]{Pagination: page}
	if err := repo.db.GetContext(ctx, &res.Total, w.sql(repo.db, `SELECT COUNT(*) FROM notification`), w.args...); err != nil {
		return res, errors.Wrap(err, "counting notifications")
	}

	limit, args := pageClause(w, page)
	var rows []notificationRow
	if err := repo.db.SelectContext(ctx, &rows, w.sql(repo.db, `SELECT * FROM notification`, ` ORDER BY created_at DESC`, limit), args...); err != nil {
		return res, errors.Wrap(err, "selecting notifications")
	}
	res.Items = make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		res.Items = append(res.Items, r.notification())
	}
	return res, nil
}

func (repo *notificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := repo.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM notification WHERE user_id = $1 AND read_at IS NULL`, userID)
	return n, errors.Wrap(err, "counting unread notifications")
}

func (repo *notificationRepository) MarkRead(ctx context.Context, userID string, at time.Time, ids ...string) (int, error) {
	if len(ids) == 0 {
		res, err := repo.db.ExecContext(ctx,
			`UPDATE notification SET read_at = $2 WHERE user_id = $1 AND read_at IS NULL`, userID, at,
		)
		if err != nil {
			return 0, errors.Wrap(err, "marking notifications read")
		}
		n, err := res.RowsAffected()
		return int(n), errors.Wrap(err, "marking notifications read")
	}

	var owned int
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &owned,
			`SELECT COUNT(*) FROM notification WHERE user_id = $1 AND id::text = ANY($2)`, userID, pq.Array(ids),
		); err != nil {
			return errors.Wrap(err, "counting notifications")
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE notification SET read_at = $3 WHERE user_id = $1 AND id::text = ANY($2) AND read_at IS NULL`,
			userID, pq.Array(ids), at,
		)
		return errors.Wrap(err, "marking notifications read")
	})
	return owned, err
}
