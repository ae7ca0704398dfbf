// Package domain contains persistence models for messes and their members.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/messledger/internal/period"
)

// MessStatus represents lifecycle states for a mess.
type MessStatus string

const (
	MessStatusActive    MessStatus = "active"
	MessStatusSuspended MessStatus = "suspended"
)

// Mess is one shared household. CurrentMonth is the open billing month and
// only moves forward when the previous month is archived.
type Mess struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	Name         string       `json:"name" gorm:"type:text;not null"`
	Slug         string       `json:"slug" gorm:"type:varchar(191);not null;uniqueIndex:ux_messes_slug"`
	CurrentMonth period.Month `json:"current_month" gorm:"type:varchar(7);not null"`
	Status       MessStatus   `json:"status" gorm:"type:varchar(16);not null"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Mess) TableName() string { return "messes" }

func (m Mess) Writable() bool {
	return m.Status == MessStatusActive
}

// Member belongs to exactly one mess and is deactivated instead of deleted.
type Member struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	MessID        snowflake.ID `json:"mess_id" gorm:"not null;index:ix_members_mess"`
	Name          string       `json:"name" gorm:"type:text;not null"`
	Active        bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt     time.Time    `json:"created_at" gorm:"not null"`
	DeactivatedAt *time.Time   `json:"deactivated_at,omitempty"`
}

// TableName sets the database table name.
func (Member) TableName() string { return "members" }
