package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/messledger/internal/config"
	messdomain "github.com/smallbiznis/messledger/internal/mess/domain"
	"github.com/smallbiznis/messledger/internal/period"
	"github.com/smallbiznis/messledger/internal/reconcile"
	summarydomain "github.com/smallbiznis/messledger/internal/summary/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Repo         summarydomain.Repository
	MessSvc      messdomain.Service
	LedgerConfig *config.LedgerConfigHolder
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	repo         summarydomain.Repository
	messSvc      messdomain.Service
	ledgerConfig *config.LedgerConfigHolder
}

func NewService(p ServiceParam) summarydomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("summary.service"),
		repo:         p.Repo,
		messSvc:      p.MessSvc,
		ledgerConfig: p.LedgerConfig,
	}
}

func (s *Service) Statement(ctx context.Context, req summarydomain.StatementRequest) (*summarydomain.Statement, error) {
	mess, month, err := s.resolve(ctx, req.MessID, req.Month)
	if err != nil {
		return nil, err
	}
	data, err := s.repo.LoadMonth(ctx, s.db, mess.ID, month)
	if err != nil {
		return nil, err
	}

	cfg := s.ledgerConfig.Get()
	st := reconcile.NewReconciler(reconcile.ParseZeroMemberPolicy(cfg.ZeroMemberPolicy)).Statement(data.Period)
	return Present(mess.ID, month, month.Before(mess.CurrentMonth), st, data, cfg.DisplayScale), nil
}

func (s *Service) MemberBalance(ctx context.Context, req summarydomain.MemberBalanceRequest) (*summarydomain.MemberLine, error) {
	memberID, err := snowflake.ParseString(strings.TrimSpace(req.MemberID))
	if err != nil || memberID == 0 {
		return nil, summarydomain.ErrInvalidMember
	}
	mess, month, err := s.resolve(ctx, req.MessID, req.Month)
	if err != nil {
		return nil, err
	}
	if _, err := s.messSvc.EnsureMember(ctx, mess.ID, memberID); err != nil {
		return nil, err
	}
	data, err := s.repo.LoadMonth(ctx, s.db, mess.ID, month)
	if err != nil {
		return nil, err
	}

	cfg := s.ledgerConfig.Get()
	balance := reconcile.NewReconciler(reconcile.ParseZeroMemberPolicy(cfg.ZeroMemberPolicy)).Reconcile(memberID, data.Period)
	line := presentLine(balance, data, cfg.DisplayScale)
	return &line, nil
}

func (s *Service) resolve(ctx context.Context, messID, rawMonth string) (*messdomain.Mess, period.Month, error) {
	mess, err := s.messSvc.Get(ctx, messID)
	if err != nil {
		return nil, period.Month{}, err
	}
	raw := strings.TrimSpace(rawMonth)
	if raw == "" {
		return mess, mess.CurrentMonth, nil
	}
	month, err := period.ParseMonth(raw)
	if err != nil {
		return nil, period.Month{}, summarydomain.ErrInvalidMonth
	}
	return mess, month, nil
}

// Present rounds a statement for display. Rounding happens only here; the
// reconciler works on exact values.
func Present(messID snowflake.ID, month period.Month, archived bool, st reconcile.Statement, data *summarydomain.MonthData, scale int32) *summarydomain.Statement {
	out := &summarydomain.Statement{
		MessID:                messID,
		Month:                 month,
		Archived:              archived,
		MealRate:              st.MealRate.Round(scale),
		TotalBazar:            st.TotalBazar.Round(scale),
		TotalMeals:            st.TotalMeals,
		TotalDeposits:         st.TotalDeposits.Round(scale),
		TotalAdditionalCost:   st.TotalAdditionalCost.Round(scale),
		PerHeadAdditionalCost: st.PerHeadAdditionalCost.Round(scale),
		ActiveMemberCount:     st.ActiveMemberCount,
		Members:               make([]summarydomain.MemberLine, 0, len(st.Members)),
	}
	for _, m := range st.Members {
		out.Members = append(out.Members, presentLine(m, data, scale))
	}
	return out
}

func presentLine(b reconcile.MemberBalance, data *summarydomain.MonthData, scale int32) summarydomain.MemberLine {
	return summarydomain.MemberLine{
		MemberID:              b.MemberID,
		Name:                  data.MemberNames[b.MemberID],
		Active:                data.ActiveIDs[b.MemberID],
		MealCount:             b.MealCount,
		MealCost:              b.MealCost.Round(scale),
		DepositTotal:          b.DepositTotal.Round(scale),
		BazarContribution:     b.BazarContribution.Round(scale),
		PerHeadAdditionalCost: b.PerHeadAdditionalCost.Round(scale),
		Balance:               b.Balance.Round(scale),
		Label:                 b.Label(),
	}
}
