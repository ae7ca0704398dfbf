package reconcile

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const (
	LabelSurplus = "surplus"
	LabelDue     = "due"
)

// MemberBalance is one member's reconciled position for a period.
type MemberBalance struct {
	MemberID              snowflake.ID    `json:"member_id"`
	MealCount             int64           `json:"meal_count"`
	MealCost              decimal.Decimal `json:"meal_cost"`
	DepositTotal          decimal.Decimal `json:"deposit_total"`
	BazarContribution     decimal.Decimal `json:"bazar_contribution"`
	PerHeadAdditionalCost decimal.Decimal `json:"per_head_additional_cost"`
	Balance               decimal.Decimal `json:"balance"`
}

// Label is "surplus" for a non-negative balance and "due" otherwise.
func (b MemberBalance) Label() string {
	if b.Balance.IsNegative() {
		return LabelDue
	}
	return LabelSurplus
}

// Statement is the reconciled view of a whole period.
type Statement struct {
	MealRate              decimal.Decimal `json:"meal_rate"`
	TotalBazar            decimal.Decimal `json:"total_bazar"`
	TotalMeals            int64           `json:"total_meals"`
	TotalDeposits         decimal.Decimal `json:"total_deposits"`
	TotalAdditionalCost   decimal.Decimal `json:"total_additional_cost"`
	PerHeadAdditionalCost decimal.Decimal `json:"per_head_additional_cost"`
	ActiveMemberCount     int             `json:"active_member_count"`
	Members               []MemberBalance `json:"members"`
}

// Reconciler combines the rate calculator and the allocator.
type Reconciler struct {
	Allocator Allocator
}

func NewReconciler(policy ZeroMemberPolicy) Reconciler {
	return Reconciler{Allocator: Allocator{Policy: policy}}
}

// Reconcile computes the balance of one member:
// balance = deposits - meals*rate - per-head additional cost.
func (r Reconciler) Reconcile(memberID snowflake.ID, p Period) MemberBalance {
	rate := ComputeRate(p.Bazars, p.Meals)
	perHead := r.Allocator.AggregatePerHead(p.additionalAmounts(), p.ActiveMemberCount)
	return r.reconcile(memberID, p, rate, perHead)
}

func (r Reconciler) reconcile(memberID snowflake.ID, p Period, rate, perHead decimal.Decimal) MemberBalance {
	var meals int64
	for _, m := range p.Meals {
		if m.MemberID == memberID {
			meals += int64(m.Total())
		}
	}

	deposits := decimal.Zero
	for _, d := range p.Deposits {
		if d.MemberID == memberID {
			deposits = deposits.Add(d.Amount)
		}
	}

	contribution := decimal.Zero
	for _, b := range p.Bazars {
		if b.MemberID == memberID {
			contribution = contribution.Add(b.Cost)
		}
	}

	mealCost := rate.Mul(decimal.NewFromInt(meals))
	return MemberBalance{
		MemberID:              memberID,
		MealCount:             meals,
		MealCost:              mealCost,
		DepositTotal:          deposits,
		BazarContribution:     contribution,
		PerHeadAdditionalCost: perHead,
		Balance:               deposits.Sub(mealCost).Sub(perHead),
	}
}

// Statement reconciles every member of the period. Members are listed in the
// order of p.Members, followed by ids that appear only in records.
func (r Reconciler) Statement(p Period) Statement {
	rate := ComputeRate(p.Bazars, p.Meals)
	additional := p.additionalAmounts()
	perHead := r.Allocator.AggregatePerHead(additional, p.ActiveMemberCount)

	totalAdditional := decimal.Zero
	for _, a := range additional {
		totalAdditional = totalAdditional.Add(a)
	}
	totalDeposits := decimal.Zero
	for _, d := range p.Deposits {
		totalDeposits = totalDeposits.Add(d.Amount)
	}

	ids := p.memberIDs()
	members := make([]MemberBalance, 0, len(ids))
	for _, id := range ids {
		members = append(members, r.reconcile(id, p, rate, perHead))
	}

	return Statement{
		MealRate:              rate,
		TotalBazar:            TotalBazar(p.Bazars),
		TotalMeals:            TotalMeals(p.Meals),
		TotalDeposits:         totalDeposits,
		TotalAdditionalCost:   totalAdditional,
		PerHeadAdditionalCost: perHead,
		ActiveMemberCount:     p.ActiveMemberCount,
		Members:               members,
	}
}

// Member returns the balance for id, if present.
func (s Statement) Member(id snowflake.ID) (MemberBalance, bool) {
	for _, m := range s.Members {
		if m.MemberID == id {
			return m, true
		}
	}
	return MemberBalance{}, false
}

var defaultReconciler = Reconciler{Allocator: defaultAllocator}

// Reconcile uses the floor allocation policy.
func Reconcile(memberID snowflake.ID, p Period) MemberBalance {
	return defaultReconciler.Reconcile(memberID, p)
}
