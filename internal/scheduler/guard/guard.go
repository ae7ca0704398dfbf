package guard

import (
	"errors"
	"time"

	messdomain "github.com/smallbiznis/messledger/internal/mess/domain"
	"github.com/smallbiznis/messledger/internal/period"
)

var (
	ErrMessNotActive      = errors.New("mess_not_active")
	ErrMonthNotEnded      = errors.New("month_not_ended")
	ErrInvalidMonth       = errors.New("invalid_month")
)

// EnsureMessCanRollover reports whether the open month of mess can be
// archived at now.
func EnsureMessCanRollover(status messdomain.MessStatus, current period.Month, now time.Time) error {
	if status != messdomain.MessStatusActive {
		return ErrMessNotActive
	}
	if current.IsZero() {
		return ErrInvalidMonth
	}
	if now.Before(current.End()) {
		return ErrMonthNotEnded
	}
	return nil
}
