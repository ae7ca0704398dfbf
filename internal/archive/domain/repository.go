package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/messledger/internal/period"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert is create-only: it reports false when an archive for the same
	// (mess, month) already exists and leaves that row untouched.
	Insert(ctx context.Context, db *gorm.DB, archive *MonthlyArchive) (bool, error)
	Find(ctx context.Context, db *gorm.DB, messID snowflake.ID, month period.Month) (*MonthlyArchive, error)
	// List returns archives newest month first.
	List(ctx context.Context, db *gorm.DB, messID snowflake.ID, limit int) ([]*MonthlyArchive, error)
}
