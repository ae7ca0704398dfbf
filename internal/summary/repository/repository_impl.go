package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/messledger/internal/ledger/domain"
	mealdomain "github.com/smallbiznis/messledger/internal/meal/domain"
	messdomain "github.com/smallbiznis/messledger/internal/mess/domain"
	"github.com/smallbiznis/messledger/internal/period"
	"github.com/smallbiznis/messledger/internal/reconcile"
	summarydomain "github.com/smallbiznis/messledger/internal/summary/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	MessRepo   messdomain.Repository
	MealRepo   mealdomain.Repository
	LedgerRepo ledgerdomain.Repository
}

type repo struct {
	messRepo   messdomain.Repository
	mealRepo   mealdomain.Repository
	ledgerRepo ledgerdomain.Repository
}

func Provide(p Params) summarydomain.Repository {
	return &repo{
		messRepo:   p.MessRepo,
		mealRepo:   p.MealRepo,
		ledgerRepo: p.LedgerRepo,
	}
}

func (r *repo) LoadMonth(ctx context.Context, db *gorm.DB, messID snowflake.ID, month period.Month) (*summarydomain.MonthData, error) {
	from, to := month.Start(), month.End()

	members, err := r.messRepo.ListMembers(ctx, db, messID, false)
	if err != nil {
		return nil, err
	}
	meals, err := r.mealRepo.ListBetween(ctx, db, messID, from, to)
	if err != nil {
		return nil, err
	}
	bazars, err := r.ledgerRepo.ListBazarBetween(ctx, db, messID, from, to)
	if err != nil {
		return nil, err
	}
	deposits, err := r.ledgerRepo.ListDepositsBetween(ctx, db, messID, from, to)
	if err != nil {
		return nil, err
	}
	costs, err := r.ledgerRepo.ListAdditionalCostsBetween(ctx, db, messID, from, to)
	if err != nil {
		return nil, err
	}

	data := &summarydomain.MonthData{
		MemberNames: make(map[snowflake.ID]string, len(members)),
		ActiveIDs:   make(map[snowflake.ID]bool, len(members)),
	}
	p := reconcile.Period{}
	for _, m := range members {
		data.MemberNames[m.ID] = m.Name
		if !activeDuring(m, month) {
			continue
		}
		data.ActiveIDs[m.ID] = true
		p.Members = append(p.Members, m.ID)
	}
	p.ActiveMemberCount = len(p.Members)

	for _, rec := range meals {
		p.Meals = append(p.Meals, rec.Reconcile())
	}
	for _, rec := range bazars {
		p.Bazars = append(p.Bazars, rec.Reconcile())
	}
	for _, rec := range deposits {
		p.Deposits = append(p.Deposits, rec.Reconcile())
	}
	for _, rec := range costs {
		p.AdditionalCosts = append(p.AdditionalCosts, rec.Reconcile())
	}
	data.Period = p
	return data, nil
}

// activeDuring reports whether the member was active at any point of month.
func activeDuring(m messdomain.Member, month period.Month) bool {
	if !m.CreatedAt.Before(month.End()) {
		return false
	}
	if m.DeactivatedAt != nil && m.DeactivatedAt.Before(month.Start()) {
		return false
	}
	return true
}
