package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	mealdomain "github.com/smallbiznis/messledger/internal/meal/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() mealdomain.Repository {
	return &repo{}
}

const recordColumns = `id, mess_id, member_id, meal_date, breakfast, lunch, dinner, created_at, updated_at`

// Increment is a single upsert statement; concurrent taps on the same counter
// serialise in the database and none is lost.
func (r *repo) Increment(ctx context.Context, db *gorm.DB, rec *mealdomain.MealRecord, column string) error {
	var conflict string
	if db.Dialector.Name() == "mysql" {
		conflict = fmt.Sprintf(`ON DUPLICATE KEY UPDATE %[1]s = %[1]s + 1, updated_at = VALUES(updated_at)`, column)
	} else {
		conflict = fmt.Sprintf(`ON CONFLICT (member_id, meal_date) DO UPDATE SET %[1]s = meal_records.%[1]s + 1, updated_at = excluded.updated_at`, column)
	}

	return db.WithContext(ctx).Exec(
		`INSERT INTO meal_records (`+recordColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) `+conflict,
		rec.ID,
		rec.MessID,
		rec.MemberID,
		rec.MealDate,
		rec.Breakfast,
		rec.Lunch,
		rec.Dinner,
		rec.CreatedAt,
		rec.UpdatedAt,
	).Error
}

func (r *repo) Decrement(ctx context.Context, db *gorm.DB, memberID snowflake.ID, day time.Time, column string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		fmt.Sprintf(`UPDATE meal_records
		 SET %[1]s = CASE WHEN %[1]s > 0 THEN %[1]s - 1 ELSE 0 END, updated_at = ?
		 WHERE member_id = ? AND meal_date = ?`, column),
		at,
		memberID,
		day,
	).Error
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, memberID snowflake.ID, day time.Time) (*mealdomain.MealRecord, error) {
	var rec mealdomain.MealRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+recordColumns+` FROM meal_records WHERE member_id = ? AND meal_date = ?`,
		memberID,
		day,
	).Scan(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == 0 {
		return nil, nil
	}
	return &rec, nil
}

// ListBetween returns records with from <= meal_date < to.
func (r *repo) ListBetween(ctx context.Context, db *gorm.DB, messID snowflake.ID, from, to time.Time) ([]mealdomain.MealRecord, error) {
	var records []mealdomain.MealRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+recordColumns+` FROM meal_records
		 WHERE mess_id = ? AND meal_date >= ? AND meal_date < ?
		 ORDER BY meal_date ASC, member_id ASC`,
		messID,
		from,
		to,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
