package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/messledger/internal/period"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, mess *Mess) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Mess, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Mess, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, mess *Mess) error
	// AdvanceMonth moves current_month from `from` to its successor. It
	// reports false when current_month was no longer `from`.
	AdvanceMonth(ctx context.Context, db *gorm.DB, id snowflake.ID, from period.Month) (bool, error)
	ListBehind(ctx context.Context, db *gorm.DB, month period.Month, afterID snowflake.ID, limit int) ([]Mess, error)

	InsertMember(ctx context.Context, db *gorm.DB, member *Member) error
	FindMember(ctx context.Context, db *gorm.DB, messID, memberID snowflake.ID) (*Member, error)
	ListMembers(ctx context.Context, db *gorm.DB, messID snowflake.ID, activeOnly bool) ([]Member, error)
	DeactivateMember(ctx context.Context, db *gorm.DB, member *Member) error
	CountActiveMembers(ctx context.Context, db *gorm.DB, messID snowflake.ID) (int64, error)
}
