package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/messledger/internal/datewindow"
)

type Service interface {
	// Approve records a paid window for a mess, typically after a payment is confirmed.
	Approve(ctx context.Context, req ApproveRequest) (*SubscriptionWindow, error)
	Current(ctx context.Context, messID string) (*SubscriptionWindow, error)
	List(ctx context.Context, messID string) ([]SubscriptionWindow, error)
	Cancel(ctx context.Context, messID, windowID string) (*SubscriptionWindow, error)
	ExpireDue(ctx context.Context) (int64, error)

	// EditableRange is the writable date span of a mess at the current time.
	EditableRange(ctx context.Context, messID snowflake.ID) (datewindow.Range, error)
	Window(ctx context.Context, messID string, req WindowRequest) (*WindowResponse, error)
	// CheckWritable rejects dates outside the editable range of the mess.
	CheckWritable(ctx context.Context, messID snowflake.ID, date time.Time) error
}

type ApproveRequest struct {
	MessID    string `json:"-"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reference string `json:"reference,omitempty"`
}

type WindowRequest struct {
	Months []string
	Date   string
}

type DateCheck struct {
	Date  string `json:"date"`
	Valid bool   `json:"valid"`
	Code  string `json:"code,omitempty"`
}

type WindowResponse struct {
	MessID         string           `json:"mess_id"`
	CurrentMonth   string           `json:"current_month"`
	Range          datewindow.Range `json:"range"`
	EditableMonths []string         `json:"editable_months"`
	Date           *DateCheck       `json:"date,omitempty"`
}

var (
	ErrInvalidMess       = errors.New("invalid_mess")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidStartDate  = errors.New("invalid_start_date")
	ErrInvalidEndDate    = errors.New("invalid_end_date")
	ErrInvalidMonth      = errors.New("invalid_month")
	ErrNotFound          = errors.New("subscription_not_found")
	ErrOverlappingWindow = errors.New("overlapping_window")
)
