package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/messledger/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() ledgerdomain.Repository {
	return &repo{}
}

// insertOnce runs an INSERT that skips rows colliding on (mess_id, client_ref).
func insertOnce(ctx context.Context, db *gorm.DB, table, columns, placeholders string, args ...any) (bool, error) {
	var stmt string
	if db.Dialector.Name() == "mysql" {
		stmt = `INSERT IGNORE INTO ` + table + ` (` + columns + `) VALUES (` + placeholders + `)`
	} else {
		stmt = `INSERT INTO ` + table + ` (` + columns + `) VALUES (` + placeholders + `)
		 ON CONFLICT (mess_id, client_ref) DO NOTHING`
	}
	res := db.WithContext(ctx).Exec(stmt, args...)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

const bazarColumns = `id, mess_id, member_id, purchase_date, cost, description, client_ref, created_at`

func (r *repo) InsertBazar(ctx context.Context, db *gorm.DB, rec *ledgerdomain.BazarRecord) (bool, error) {
	return insertOnce(ctx, db, "bazar_records", bazarColumns, "?, ?, ?, ?, ?, ?, ?, ?",
		rec.ID,
		rec.MessID,
		rec.MemberID,
		rec.PurchaseDate,
		rec.Cost,
		rec.Description,
		rec.ClientRef,
		rec.CreatedAt,
	)
}

func (r *repo) FindBazarByClientRef(ctx context.Context, db *gorm.DB, messID snowflake.ID, ref string) (*ledgerdomain.BazarRecord, error) {
	var rec ledgerdomain.BazarRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+bazarColumns+` FROM bazar_records WHERE mess_id = ? AND client_ref = ?`,
		messID,
		ref,
	).Scan(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == 0 {
		return nil, nil
	}
	return &rec, nil
}

func (r *repo) ListBazarBetween(ctx context.Context, db *gorm.DB, messID snowflake.ID, from, to time.Time) ([]ledgerdomain.BazarRecord, error) {
	var records []ledgerdomain.BazarRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+bazarColumns+` FROM bazar_records
		 WHERE mess_id = ? AND purchase_date >= ? AND purchase_date < ?
		 ORDER BY purchase_date ASC, id ASC`,
		messID,
		from,
		to,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

const depositColumns = `id, mess_id, member_id, deposit_date, amount, note, client_ref, created_at`

func (r *repo) InsertDeposit(ctx context.Context, db *gorm.DB, rec *ledgerdomain.DepositRecord) (bool, error) {
	return insertOnce(ctx, db, "deposit_records", depositColumns, "?, ?, ?, ?, ?, ?, ?, ?",
		rec.ID,
		rec.MessID,
		rec.MemberID,
		rec.DepositDate,
		rec.Amount,
		rec.Note,
		rec.ClientRef,
		rec.CreatedAt,
	)
}

func (r *repo) FindDepositByClientRef(ctx context.Context, db *gorm.DB, messID snowflake.ID, ref string) (*ledgerdomain.DepositRecord, error) {
	var rec ledgerdomain.DepositRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+depositColumns+` FROM deposit_records WHERE mess_id = ? AND client_ref = ?`,
		messID,
		ref,
	).Scan(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == 0 {
		return nil, nil
	}
	return &rec, nil
}

func (r *repo) ListDepositsBetween(ctx context.Context, db *gorm.DB, messID snowflake.ID, from, to time.Time) ([]ledgerdomain.DepositRecord, error) {
	var records []ledgerdomain.DepositRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+depositColumns+` FROM deposit_records
		 WHERE mess_id = ? AND deposit_date >= ? AND deposit_date < ?
		 ORDER BY deposit_date ASC, id ASC`,
		messID,
		from,
		to,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

const additionalCostColumns = `id, mess_id, cost_date, description, amount, client_ref, created_at`

func (r *repo) InsertAdditionalCost(ctx context.Context, db *gorm.DB, rec *ledgerdomain.AdditionalCostRecord) (bool, error) {
	return insertOnce(ctx, db, "additional_cost_records", additionalCostColumns, "?, ?, ?, ?, ?, ?, ?",
		rec.ID,
		rec.MessID,
		rec.CostDate,
		rec.Description,
		rec.Amount,
		rec.ClientRef,
		rec.CreatedAt,
	)
}

func (r *repo) FindAdditionalCostByClientRef(ctx context.Context, db *gorm.DB, messID snowflake.ID, ref string) (*ledgerdomain.AdditionalCostRecord, error) {
	var rec ledgerdomain.AdditionalCostRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+additionalCostColumns+` FROM additional_cost_records WHERE mess_id = ? AND client_ref = ?`,
		messID,
		ref,
	).Scan(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == 0 {
		return nil, nil
	}
	return &rec, nil
}

func (r *repo) ListAdditionalCostsBetween(ctx context.Context, db *gorm.DB, messID snowflake.ID, from, to time.Time) ([]ledgerdomain.AdditionalCostRecord, error) {
	var records []ledgerdomain.AdditionalCostRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+additionalCostColumns+` FROM additional_cost_records
		 WHERE mess_id = ? AND cost_date >= ? AND cost_date < ?
		 ORDER BY cost_date ASC, id ASC`,
		messID,
		from,
		to,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
