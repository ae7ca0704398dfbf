// Package reconcile derives meal rates, per-head shared costs and member
// balances from the raw records of one billing period.
//
// All arithmetic uses decimal.Decimal. Functions hold no state and can be
// called concurrently.
package reconcile

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Bazar is one grocery purchase. MemberID is zero when unattributed.
type Bazar struct {
	MemberID snowflake.ID
	Cost     decimal.Decimal
}

// Meal is one member's meal counts for one day.
type Meal struct {
	MemberID  snowflake.ID
	Breakfast int
	Lunch     int
	Dinner    int
}

func (m Meal) Total() int {
	return m.Breakfast + m.Lunch + m.Dinner
}

type Deposit struct {
	MemberID snowflake.ID
	Amount   decimal.Decimal
}

type AdditionalCost struct {
	Amount decimal.Decimal
}

// Period is the full record set of one mess for one billing month.
type Period struct {
	Members           []snowflake.ID
	ActiveMemberCount int
	Bazars            []Bazar
	Meals             []Meal
	Deposits          []Deposit
	AdditionalCosts   []AdditionalCost
}

func (p Period) additionalAmounts() []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(p.AdditionalCosts))
	for _, c := range p.AdditionalCosts {
		out = append(out, c.Amount)
	}
	return out
}

// memberIDs returns the declared members followed by any member seen only in
// records, in first-seen order.
func (p Period) memberIDs() []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(p.Members))
	out := make([]snowflake.ID, 0, len(p.Members))
	add := func(id snowflake.ID) {
		if id == 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range p.Members {
		add(id)
	}
	for _, m := range p.Meals {
		add(m.MemberID)
	}
	for _, d := range p.Deposits {
		add(d.MemberID)
	}
	for _, b := range p.Bazars {
		add(b.MemberID)
	}
	return out
}
