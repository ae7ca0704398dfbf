package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	messdomain "github.com/smallbiznis/messledger/internal/mess/domain"
	"github.com/smallbiznis/messledger/internal/period"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() messdomain.Repository {
	return &repo{}
}

const messColumns = `id, name, slug, current_month, status, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, m *messdomain.Mess) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO messes (`+messColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.Name,
		m.Slug,
		m.CurrentMonth,
		m.Status,
		m.CreatedAt,
		m.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*messdomain.Mess, error) {
	var mess messdomain.Mess
	err := db.WithContext(ctx).Raw(
		`SELECT `+messColumns+` FROM messes WHERE id = ?`,
		id,
	).Scan(&mess).Error
	if err != nil {
		return nil, err
	}
	if mess.ID == 0 {
		return nil, nil
	}
	return &mess, nil
}

// FindByIDForUpdate holds a row lock until the surrounding transaction ends.
// Dialects without row locks (sqlite) ignore the clause.
func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*messdomain.Mess, error) {
	var mess messdomain.Mess
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&mess).Error
	if err != nil {
		return nil, err
	}
	if mess.ID == 0 {
		return nil, nil
	}
	return &mess, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, m *messdomain.Mess) error {
	return db.WithContext(ctx).Exec(
		`UPDATE messes SET status = ?, updated_at = ? WHERE id = ?`,
		m.Status,
		m.UpdatedAt,
		m.ID,
	).Error
}

func (r *repo) AdvanceMonth(ctx context.Context, db *gorm.DB, id snowflake.ID, from period.Month) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE messes SET current_month = ?, updated_at = ?
		 WHERE id = ? AND current_month = ?`,
		from.Next(),
		time.Now().UTC(),
		id,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListBehind returns active messes whose open month is before month, in id
// order starting after afterID.
func (r *repo) ListBehind(ctx context.Context, db *gorm.DB, month period.Month, afterID snowflake.ID, limit int) ([]messdomain.Mess, error) {
	var messes []messdomain.Mess
	err := db.WithContext(ctx).Raw(
		`SELECT `+messColumns+` FROM messes
		 WHERE status = ? AND current_month < ? AND id > ?
		 ORDER BY id ASC
		 LIMIT ?`,
		messdomain.MessStatusActive,
		month,
		afterID,
		limit,
	).Scan(&messes).Error
	if err != nil {
		return nil, err
	}
	return messes, nil
}

const memberColumns = `id, mess_id, name, active, created_at, deactivated_at`

func (r *repo) InsertMember(ctx context.Context, db *gorm.DB, m *messdomain.Member) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO members (`+memberColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.MessID,
		m.Name,
		m.Active,
		m.CreatedAt,
		m.DeactivatedAt,
	).Error
}

func (r *repo) FindMember(ctx context.Context, db *gorm.DB, messID, memberID snowflake.ID) (*messdomain.Member, error) {
	var member messdomain.Member
	err := db.WithContext(ctx).Raw(
		`SELECT `+memberColumns+` FROM members WHERE mess_id = ? AND id = ?`,
		messID,
		memberID,
	).Scan(&member).Error
	if err != nil {
		return nil, err
	}
	if member.ID == 0 {
		return nil, nil
	}
	return &member, nil
}

func (r *repo) ListMembers(ctx context.Context, db *gorm.DB, messID snowflake.ID, activeOnly bool) ([]messdomain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE mess_id = ?`
	args := []any{messID}
	if activeOnly {
		query += ` AND active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	var members []messdomain.Member
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repo) DeactivateMember(ctx context.Context, db *gorm.DB, m *messdomain.Member) error {
	return db.WithContext(ctx).Exec(
		`UPDATE members SET active = ?, deactivated_at = ? WHERE mess_id = ? AND id = ?`,
		false,
		m.DeactivatedAt,
		m.MessID,
		m.ID,
	).Error
}

func (r *repo) CountActiveMembers(ctx context.Context, db *gorm.DB, messID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM members WHERE mess_id = ? AND active = ?`,
		messID,
		true,
	).Scan(&count).Error
	return count, err
}
