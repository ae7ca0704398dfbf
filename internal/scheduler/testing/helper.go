package testing

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	messdomain "github.com/smallbiznis/messledger/internal/mess/domain"
	"github.com/smallbiznis/messledger/internal/period"
	subscriptiondomain "github.com/smallbiznis/messledger/internal/subscription/domain"
	"gorm.io/gorm"
)

// TimeAccelerator rewinds stored state so rollover and expiry can be driven
// without waiting for the calendar.
type TimeAccelerator struct {
	db *gorm.DB
}

func NewTimeAccelerator(db *gorm.DB) *TimeAccelerator {
	return &TimeAccelerator{db: db}
}

// RewindMess sets the open month of a mess, leaving archives untouched.
func (ta *TimeAccelerator) RewindMess(ctx context.Context, messID snowflake.ID, month period.Month) error {
	return ta.db.WithContext(ctx).Exec(
		`UPDATE messes
		 SET current_month = ?, updated_at = ?
		 WHERE id = ?`,
		month,
		time.Now().UTC(),
		messID,
	).Error
}

// RewindAllMesses moves every active mess back to month.
func (ta *TimeAccelerator) RewindAllMesses(ctx context.Context, month period.Month) (int64, error) {
	result := ta.db.WithContext(ctx).Exec(
		`UPDATE messes
		 SET current_month = ?, updated_at = ?
		 WHERE status = ?`,
		month,
		time.Now().UTC(),
		messdomain.MessStatusActive,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// EndWindow moves the end date of an active window to end.
func (ta *TimeAccelerator) EndWindow(ctx context.Context, windowID snowflake.ID, end time.Time) error {
	return ta.db.WithContext(ctx).Exec(
		`UPDATE subscription_windows
		 SET end_date = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		period.Day(end),
		time.Now().UTC(),
		windowID,
		subscriptiondomain.WindowStatusActive,
	).Error
}
