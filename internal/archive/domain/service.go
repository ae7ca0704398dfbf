package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/messledger/internal/period"
)

type Service interface {
	// Archive snapshots a month and advances the mess to the next month in
	// one transaction. Archiving a month twice returns the first snapshot.
	Archive(ctx context.Context, req ArchiveRequest) (*ArchiveResult, error)
	Get(ctx context.Context, messID, month string) (*MonthlyArchive, error)
	List(ctx context.Context, req ListRequest) ([]*MonthlyArchive, error)
	// Verify recomputes the month from its records and compares the result
	// with the stored snapshot.
	Verify(ctx context.Context, messID, month string) (*VerifyResult, error)
}

const (
	TriggerAPI       = "api"
	TriggerScheduler = "scheduler"
)

type ArchiveRequest struct {
	MessID  string `json:"-"`
	// Month defaults to the open month of the mess.
	Month   string `json:"month,omitempty"`
	Trigger string `json:"-"`
}

type ArchiveResult struct {
	Archive *MonthlyArchive `json:"archive"`
	Created bool            `json:"created"`
}

type ListRequest struct {
	MessID string
	Limit  int
}

type Mismatch struct {
	Field    string `json:"field"`
	Stored   string `json:"stored"`
	Computed string `json:"computed"`
}

type VerifyResult struct {
	MessID     string       `json:"mess_id"`
	Month      period.Month `json:"month"`
	Matches    bool         `json:"matches"`
	Mismatches []Mismatch   `json:"mismatches"`
}

var (
	ErrInvalidMess   = errors.New("invalid_mess")
	ErrInvalidMonth  = errors.New("invalid_month")
	ErrNotFound      = errors.New("archive_not_found")
	ErrMonthAhead    = errors.New("month_ahead")
	ErrMonthClosed   = errors.New("month_closed")
	ErrMonthNotEnded = errors.New("month_not_ended")
	ErrMonthAdvanced = errors.New("month_already_advanced")
)
