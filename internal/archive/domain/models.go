// Package domain holds the immutable monthly snapshots of a mess.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/messledger/internal/period"
	"gorm.io/datatypes"
)

// MemberSnapshot is one member's reconciled position at archive time.
// Decimals are stored unrounded.
type MemberSnapshot struct {
	MemberID              snowflake.ID    `json:"member_id"`
	Name                  string          `json:"name"`
	Active                bool            `json:"active"`
	MealCount             int64           `json:"meal_count"`
	MealCost              decimal.Decimal `json:"meal_cost"`
	DepositTotal          decimal.Decimal `json:"deposit_total"`
	BazarContribution     decimal.Decimal `json:"bazar_contribution"`
	PerHeadAdditionalCost decimal.Decimal `json:"per_head_additional_cost"`
	Balance               decimal.Decimal `json:"balance"`
}

// MonthlyArchive is written once per (mess, month) and never updated.
type MonthlyArchive struct {
	ID                    snowflake.ID                       `json:"id" gorm:"primaryKey"`
	MessID                snowflake.ID                       `json:"mess_id" gorm:"not null;uniqueIndex:ux_monthly_archives_mess_month,priority:1"`
	Month                 period.Month                       `json:"month" gorm:"type:varchar(7);not null;uniqueIndex:ux_monthly_archives_mess_month,priority:2"`
	MealRate              decimal.Decimal                    `json:"meal_rate" gorm:"type:numeric(38,16);not null"`
	TotalBazar            decimal.Decimal                    `json:"total_bazar" gorm:"type:numeric(20,4);not null"`
	TotalMeals            int64                              `json:"total_meals" gorm:"not null"`
	TotalDeposits         decimal.Decimal                    `json:"total_deposits" gorm:"type:numeric(20,4);not null"`
	TotalAdditionalCost   decimal.Decimal                    `json:"total_additional_cost" gorm:"type:numeric(20,4);not null"`
	PerHeadAdditionalCost decimal.Decimal                    `json:"per_head_additional_cost" gorm:"type:numeric(38,16);not null"`
	ActiveMemberCount     int                                `json:"active_member_count" gorm:"not null"`
	MembersData           datatypes.JSONSlice[MemberSnapshot] `json:"members_data"`
	CreatedAt             time.Time                          `json:"created_at" gorm:"not null"`
}

// TableName sets the database table name.
func (MonthlyArchive) TableName() string { return "monthly_archives" }

// Member returns the snapshot of id, if present.
func (a MonthlyArchive) Member(id snowflake.ID) (MemberSnapshot, bool) {
	for _, m := range a.MembersData {
		if m.MemberID == id {
			return m, true
		}
	}
	return MemberSnapshot{}, false
}
