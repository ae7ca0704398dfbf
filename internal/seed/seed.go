package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/messledger/internal/clock"
	"github.com/smallbiznis/messledger/internal/config"
	messdomain "github.com/smallbiznis/messledger/internal/mess/domain"
	"github.com/smallbiznis/messledger/internal/period"
	subscriptiondomain "github.com/smallbiznis/messledger/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	demoMessName = "Demo Mess"
	demoMessSlug = "demo-mess"
)

var demoMembers = []string{"Arif", "Bina", "Chandra"}

// Module seeds the demo mess after migrations when SEED_DEMO is set.
var Module = fx.Module("seed",
	fx.Invoke(func(lc fx.Lifecycle, cfg config.Config, db *gorm.DB, node *snowflake.Node, clk clock.Clock, log *zap.Logger) {
		if !cfg.SeedDemo {
			return
		}
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				mess, err := EnsureDemoMess(ctx, db, node, clk.Now())
				if err != nil {
					return err
				}
				log.Info("demo mess ready", zap.String("mess_id", mess.ID.String()))
				return nil
			},
		})
	}),
)

// EnsureDemoMess creates an active mess with three members and a subscription
// window covering the current month. It is idempotent on the demo slug.
func EnsureDemoMess(ctx context.Context, db *gorm.DB, node *snowflake.Node, now time.Time) (*messdomain.Mess, error) {
	if db == nil {
		return nil, errors.New("seed database handle is required")
	}
	if node == nil {
		return nil, errors.New("seed id generator is required")
	}

	var mess messdomain.Mess
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		mess, err = ensureDemoMessTx(ctx, tx, node, now)
		if err != nil {
			return err
		}
		if err := ensureMembersTx(ctx, tx, node, mess.ID, now); err != nil {
			return err
		}
		return ensureWindowTx(ctx, tx, node, mess.ID, now)
	})
	if err != nil {
		return nil, err
	}
	return &mess, nil
}

func ensureDemoMessTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, now time.Time) (messdomain.Mess, error) {
	var mess messdomain.Mess
	err := tx.WithContext(ctx).Where("slug = ?", demoMessSlug).First(&mess).Error
	if err == nil {
		return mess, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return mess, err
	}
	now = now.UTC()
	mess = messdomain.Mess{
		ID:           node.Generate(),
		Name:         demoMessName,
		Slug:         demoMessSlug,
		CurrentMonth: period.MonthOf(now),
		Status:       messdomain.MessStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(&mess).Error; err != nil {
		return mess, err
	}
	return mess, nil
}

func ensureMembersTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, messID snowflake.ID, now time.Time) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&messdomain.Member{}).Where("mess_id = ?", messID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, name := range demoMembers {
		member := messdomain.Member{
			ID:        node.Generate(),
			MessID:    messID,
			Name:      name,
			Active:    true,
			CreatedAt: now.UTC(),
		}
		if err := tx.WithContext(ctx).Create(&member).Error; err != nil {
			return err
		}
	}
	return nil
}

func ensureWindowTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, messID snowflake.ID, now time.Time) error {
	var window subscriptiondomain.SubscriptionWindow
	err := tx.WithContext(ctx).Where("mess_id = ?", messID).First(&window).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	month := period.MonthOf(now.UTC())
	window = subscriptiondomain.SubscriptionWindow{
		ID:        node.Generate(),
		MessID:    messID,
		StartDate: month.Start(),
		EndDate:   month.LastDay(),
		Status:    subscriptiondomain.WindowStatusActive,
		Reference: "demo",
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	return tx.WithContext(ctx).Create(&window).Error
}
