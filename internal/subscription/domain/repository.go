package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, window *SubscriptionWindow) error
	FindByID(ctx context.Context, db *gorm.DB, messID, id snowflake.ID) (*SubscriptionWindow, error)
	// FindCurrent returns the window governing day: the non-cancelled window
	// that started on or before day with the latest end date. Windows that have
	// not started yet are used only when none has, and cancelled windows last.
	FindCurrent(ctx context.Context, db *gorm.DB, messID snowflake.ID, day time.Time) (*SubscriptionWindow, error)
	List(ctx context.Context, db *gorm.DB, messID snowflake.ID) ([]SubscriptionWindow, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, window *SubscriptionWindow) error
	// ExpireEndedBefore marks active windows whose end date is before day as expired.
	ExpireEndedBefore(ctx context.Context, db *gorm.DB, day time.Time, at time.Time) (int64, error)
}
