// Package domain contains persistence models for paid subscription windows.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/messledger/internal/datewindow"
)

// WindowStatus represents lifecycle states for a subscription window.
type WindowStatus string

const (
	WindowStatusActive    WindowStatus = "active"
	WindowStatusExpired   WindowStatus = "expired"
	WindowStatusCancelled WindowStatus = "cancelled"
)

// SubscriptionWindow is a paid access period. EndDate is inclusive.
type SubscriptionWindow struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	MessID      snowflake.ID `json:"mess_id" gorm:"not null;index:ix_subscription_windows_mess"`
	StartDate   time.Time    `json:"start_date" gorm:"not null"`
	EndDate     time.Time    `json:"end_date" gorm:"not null"`
	Status      WindowStatus `json:"status" gorm:"type:varchar(16);not null"`
	Reference   string       `json:"reference,omitempty" gorm:"type:text"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"not null"`
	CancelledAt *time.Time   `json:"cancelled_at,omitempty"`
}

// TableName sets the database table name.
func (SubscriptionWindow) TableName() string { return "subscription_windows" }

// Window converts the stored row into the validator input.
func (w SubscriptionWindow) Window() *datewindow.Subscription {
	status := datewindow.StatusActive
	switch w.Status {
	case WindowStatusExpired:
		status = datewindow.StatusExpired
	case WindowStatusCancelled:
		status = datewindow.StatusCancelled
	}
	return &datewindow.Subscription{
		StartDate: w.StartDate,
		EndDate:   w.EndDate,
		Status:    status,
	}
}
