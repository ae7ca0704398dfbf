package testkit

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	ledgerdomain "github.com/smallbiznis/messledger/internal/ledger/domain"
	mealdomain "github.com/smallbiznis/messledger/internal/meal/domain"
	"github.com/smallbiznis/messledger/internal/period"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Records inserts ledger rows directly, bypassing window checks, so tests can
// lay out a month in any order.
type Records struct {
	t      testing.TB
	db     *gorm.DB
	node   *snowflake.Node
	messID snowflake.ID
}

func NewRecords(t testing.TB, db *gorm.DB, messID snowflake.ID) *Records {
	t.Helper()
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	return &Records{t: t, db: db, node: node, messID: messID}
}

func (r *Records) day(raw string) time.Time {
	r.t.Helper()
	d, err := period.ParseDate(raw)
	require.NoError(r.t, err)
	return d
}

func (r *Records) Meal(memberID snowflake.ID, day string, breakfast, lunch, dinner int) {
	r.t.Helper()
	now := time.Now().UTC()
	require.NoError(r.t, r.db.Create(&mealdomain.MealRecord{
		ID:        r.node.Generate(),
		MessID:    r.messID,
		MemberID:  memberID,
		MealDate:  r.day(day),
		Breakfast: breakfast,
		Lunch:     lunch,
		Dinner:    dinner,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)
}

// Bazar records a purchase; a zero memberID means the common fund paid.
func (r *Records) Bazar(memberID snowflake.ID, day, cost string) {
	r.t.Helper()
	rec := &ledgerdomain.BazarRecord{
		ID:           r.node.Generate(),
		MessID:       r.messID,
		PurchaseDate: r.day(day),
		Cost:         decimal.RequireFromString(cost),
		CreatedAt:    time.Now().UTC(),
	}
	if memberID != 0 {
		rec.MemberID = &memberID
	}
	require.NoError(r.t, r.db.Create(rec).Error)
}

func (r *Records) Deposit(memberID snowflake.ID, day, amount string) {
	r.t.Helper()
	require.NoError(r.t, r.db.Create(&ledgerdomain.DepositRecord{
		ID:          r.node.Generate(),
		MessID:      r.messID,
		MemberID:    memberID,
		DepositDate: r.day(day),
		Amount:      decimal.RequireFromString(amount),
		CreatedAt:   time.Now().UTC(),
	}).Error)
}

func (r *Records) AdditionalCost(day, description, amount string) {
	r.t.Helper()
	require.NoError(r.t, r.db.Create(&ledgerdomain.AdditionalCostRecord{
		ID:          r.node.Generate(),
		MessID:      r.messID,
		CostDate:    r.day(day),
		Description: description,
		Amount:      decimal.RequireFromString(amount),
		CreatedAt:   time.Now().UTC(),
	}).Error)
}
