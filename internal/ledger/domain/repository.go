package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository inserts are idempotent on (mess_id, client_ref): a repeated
// client reference inserts nothing and reports false.
type Repository interface {
	InsertBazar(ctx context.Context, db *gorm.DB, rec *BazarRecord) (bool, error)
	InsertDeposit(ctx context.Context, db *gorm.DB, rec *DepositRecord) (bool, error)
	InsertAdditionalCost(ctx context.Context, db *gorm.DB, rec *AdditionalCostRecord) (bool, error)

	FindBazarByClientRef(ctx context.Context, db *gorm.DB, messID snowflake.ID, ref string) (*BazarRecord, error)
	FindDepositByClientRef(ctx context.Context, db *gorm.DB, messID snowflake.ID, ref string) (*DepositRecord, error)
	FindAdditionalCostByClientRef(ctx context.Context, db *gorm.DB, messID snowflake.ID, ref string) (*AdditionalCostRecord, error)

	// List* return records dated from <= date < to.
	ListBazarBetween(ctx context.Context, db *gorm.DB, messID snowflake.ID, from, to time.Time) ([]BazarRecord, error)
	ListDepositsBetween(ctx context.Context, db *gorm.DB, messID snowflake.ID, from, to time.Time) ([]DepositRecord, error)
	ListAdditionalCostsBetween(ctx context.Context, db *gorm.DB, messID snowflake.ID, from, to time.Time) ([]AdditionalCostRecord, error)
}
