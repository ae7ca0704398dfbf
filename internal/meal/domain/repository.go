package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Increment adds one to column, creating the day's row when missing.
	Increment(ctx context.Context, db *gorm.DB, record *MealRecord, column string) error
	// Decrement subtracts one from column without going below zero. It never
	// creates a row.
	Decrement(ctx context.Context, db *gorm.DB, memberID snowflake.ID, day time.Time, column string, at time.Time) error
	Find(ctx context.Context, db *gorm.DB, memberID snowflake.ID, day time.Time) (*MealRecord, error)
	ListBetween(ctx context.Context, db *gorm.DB, messID snowflake.ID, from, to time.Time) ([]MealRecord, error)
}
