// Package domain describes the reconciled month view of a mess.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/messledger/internal/period"
	"github.com/smallbiznis/messledger/internal/reconcile"
	"gorm.io/gorm"
)

// MonthData is everything the reconciler needs for one mess month, plus
// member names for presentation.
type MonthData struct {
	Period      reconcile.Period
	MemberNames map[snowflake.ID]string
	ActiveIDs   map[snowflake.ID]bool
}

type Repository interface {
	// LoadMonth reads the month's records using db, which may be a transaction.
	LoadMonth(ctx context.Context, db *gorm.DB, messID snowflake.ID, month period.Month) (*MonthData, error)
}

type Service interface {
	Statement(ctx context.Context, req StatementRequest) (*Statement, error)
	MemberBalance(ctx context.Context, req MemberBalanceRequest) (*MemberLine, error)
}

type StatementRequest struct {
	MessID string
	Month  string
}

type MemberBalanceRequest struct {
	MessID   string
	MemberID string
	Month    string
}

// MemberLine is one member's balance, rounded for display.
type MemberLine struct {
	MemberID              snowflake.ID    `json:"member_id"`
	Name                  string          `json:"name"`
	Active                bool            `json:"active"`
	MealCount             int64           `json:"meal_count"`
	MealCost              decimal.Decimal `json:"meal_cost"`
	DepositTotal          decimal.Decimal `json:"deposit_total"`
	BazarContribution     decimal.Decimal `json:"bazar_contribution"`
	PerHeadAdditionalCost decimal.Decimal `json:"per_head_additional_cost"`
	Balance               decimal.Decimal `json:"balance"`
	Label                 string          `json:"label"`
}

type Statement struct {
	MessID                snowflake.ID    `json:"mess_id"`
	Month                 period.Month    `json:"month"`
	Archived              bool            `json:"archived"`
	MealRate              decimal.Decimal `json:"meal_rate"`
	TotalBazar            decimal.Decimal `json:"total_bazar"`
	TotalMeals            int64           `json:"total_meals"`
	TotalDeposits         decimal.Decimal `json:"total_deposits"`
	TotalAdditionalCost   decimal.Decimal `json:"total_additional_cost"`
	PerHeadAdditionalCost decimal.Decimal `json:"per_head_additional_cost"`
	ActiveMemberCount     int             `json:"active_member_count"`
	Members               []MemberLine    `json:"members"`
}

var (
	ErrInvalidMonth  = errors.New("invalid_month")
	ErrInvalidMember = errors.New("invalid_member")
)
