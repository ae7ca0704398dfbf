package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	archivedomain "github.com/smallbiznis/messledger/internal/archive/domain"
	"github.com/smallbiznis/messledger/internal/period"
	"github.com/smallbiznis/messledger/pkg/db/option"
	"github.com/smallbiznis/messledger/pkg/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() archivedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, a *archivedomain.MonthlyArchive) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "mess_id"}, {Name: "month"}},
			DoNothing: true,
		}).
		Create(a)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, messID snowflake.ID, month period.Month) (*archivedomain.MonthlyArchive, error) {
	return store(db).FindOne(ctx,
		&archivedomain.MonthlyArchive{MessID: messID},
		option.WithWhere("month = ?", month),
	)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, messID snowflake.ID, limit int) ([]*archivedomain.MonthlyArchive, error) {
	return store(db).Find(ctx,
		&archivedomain.MonthlyArchive{MessID: messID},
		option.ApplyOrder("month", option.DESC),
		option.WithLimit(limit),
	)
}

func store(db *gorm.DB) repository.Repository[archivedomain.MonthlyArchive] {
	return repository.ProvideStore[archivedomain.MonthlyArchive](db)
}
