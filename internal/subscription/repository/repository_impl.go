package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/smallbiznis/messledger/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

const windowColumns = `id, mess_id, start_date, end_date, status, reference, created_at, updated_at, cancelled_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, w *subscriptiondomain.SubscriptionWindow) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscription_windows (`+windowColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID,
		w.MessID,
		w.StartDate,
		w.EndDate,
		w.Status,
		w.Reference,
		w.CreatedAt,
		w.UpdatedAt,
		w.CancelledAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, messID, id snowflake.ID) (*subscriptiondomain.SubscriptionWindow, error) {
	var w subscriptiondomain.SubscriptionWindow
	err := db.WithContext(ctx).Raw(
		`SELECT `+windowColumns+` FROM subscription_windows WHERE mess_id = ? AND id = ?`,
		messID,
		id,
	).Scan(&w).Error
	if err != nil {
		return nil, err
	}
	if w.ID == 0 {
		return nil, nil
	}
	return &w, nil
}

func (r *repo) FindCurrent(ctx context.Context, db *gorm.DB, messID snowflake.ID, day time.Time) (*subscriptiondomain.SubscriptionWindow, error) {
	var w subscriptiondomain.SubscriptionWindow
	err := db.WithContext(ctx).Raw(
		`SELECT `+windowColumns+` FROM subscription_windows
		 WHERE mess_id = ?
		 ORDER BY CASE WHEN status = ? THEN 1 ELSE 0 END ASC,
		          CASE WHEN start_date <= ? THEN 0 ELSE 1 END ASC,
		          end_date DESC, id DESC
		 LIMIT 1`,
		messID,
		subscriptiondomain.WindowStatusCancelled,
		day,
	).Scan(&w).Error
	if err != nil {
		return nil, err
	}
	if w.ID == 0 {
		return nil, nil
	}
	return &w, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, messID snowflake.ID) ([]subscriptiondomain.SubscriptionWindow, error) {
	var windows []subscriptiondomain.SubscriptionWindow
	err := db.WithContext(ctx).Raw(
		`SELECT `+windowColumns+` FROM subscription_windows
		 WHERE mess_id = ?
		 ORDER BY start_date ASC, id ASC`,
		messID,
	).Scan(&windows).Error
	if err != nil {
		return nil, err
	}
	return windows, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, w *subscriptiondomain.SubscriptionWindow) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscription_windows
		 SET status = ?, cancelled_at = ?, updated_at = ?
		 WHERE mess_id = ? AND id = ?`,
		w.Status,
		w.CancelledAt,
		w.UpdatedAt,
		w.MessID,
		w.ID,
	).Error
}

func (r *repo) ExpireEndedBefore(ctx context.Context, db *gorm.DB, day time.Time, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE subscription_windows
		 SET status = ?, updated_at = ?
		 WHERE status = ? AND end_date < ?`,
		subscriptiondomain.WindowStatusExpired,
		at,
		subscriptiondomain.WindowStatusActive,
		day,
	)
	return res.RowsAffected, res.Error
}
