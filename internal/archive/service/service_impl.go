package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	archivedomain "github.com/smallbiznis/messledger/internal/archive/domain"
	"github.com/smallbiznis/messledger/internal/clock"
	"github.com/smallbiznis/messledger/internal/config"
	messdomain "github.com/smallbiznis/messledger/internal/mess/domain"
	obsmetrics "github.com/smallbiznis/messledger/internal/observability/metrics"
	"github.com/smallbiznis/messledger/internal/period"
	"github.com/smallbiznis/messledger/internal/reconcile"
	summarydomain "github.com/smallbiznis/messledger/internal/summary/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 24
	maxListLimit     = 120

	// verifyScale is the precision the stored columns are compared at.
	verifyScale int32 = 4
)

type ServiceParam struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	GenID            *snowflake.Node
	Clock            clock.Clock
	Repo             archivedomain.Repository
	MessRepo         messdomain.Repository
	MessSvc          messdomain.Service
	SummaryRepo      summarydomain.Repository
	LedgerConfig     *config.LedgerConfigHolder
	ObsMetrics       *obsmetrics.Metrics          `optional:"true"`
	SchedulerMetrics *obsmetrics.SchedulerMetrics `optional:"true"`
}

type Service struct {
	db               *gorm.DB
	log              *zap.Logger
	genID            *snowflake.Node
	clock            clock.Clock
	repo             archivedomain.Repository
	messRepo         messdomain.Repository
	messSvc          messdomain.Service
	summaryRepo      summarydomain.Repository
	ledgerConfig     *config.LedgerConfigHolder
	obsMetrics       *obsmetrics.Metrics
	schedulerMetrics *obsmetrics.SchedulerMetrics
}

func NewService(p ServiceParam) archivedomain.Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("archive.service"),
		genID:            p.GenID,
		clock:            p.Clock,
		repo:             p.Repo,
		messRepo:         p.MessRepo,
		messSvc:          p.MessSvc,
		summaryRepo:      p.SummaryRepo,
		ledgerConfig:     p.LedgerConfig,
		obsMetrics:       p.ObsMetrics,
		schedulerMetrics: p.SchedulerMetrics,
	}
}

func (s *Service) Archive(ctx context.Context, req archivedomain.ArchiveRequest) (*archivedomain.ArchiveResult, error) {
	messID, err := parseMessID(req.MessID)
	if err != nil {
		return nil, err
	}
	var requested period.Month
	if raw := strings.TrimSpace(req.Month); raw != "" {
		requested, err = period.ParseMonth(raw)
		if err != nil {
			return nil, archivedomain.ErrInvalidMonth
		}
	}
	trigger := strings.TrimSpace(req.Trigger)
	if trigger == "" {
		trigger = archivedomain.TriggerAPI
	}

	var result archivedomain.ArchiveResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lockStart := time.Now()
		mess, err := s.messRepo.FindByIDForUpdate(ctx, tx, messID)
		s.schedulerMetrics.ObserveDBLockWait(obsmetrics.LockResourceMessRow, time.Since(lockStart))
		if err != nil {
			return err
		}
		if mess == nil {
			return messdomain.ErrMessNotFound
		}

		month := requested
		if month.IsZero() {
			month = mess.CurrentMonth
		}

		existing, err := s.repo.Find(ctx, tx, mess.ID, month)
		if err != nil {
			return err
		}
		if existing != nil {
			result = archivedomain.ArchiveResult{Archive: existing}
			return nil
		}

		switch {
		case month.After(mess.CurrentMonth):
			return archivedomain.ErrMonthAhead
		case month.Before(mess.CurrentMonth):
			return archivedomain.ErrMonthClosed
		case s.clock.Now().Before(month.End()):
			return archivedomain.ErrMonthNotEnded
		}

		data, err := s.summaryRepo.LoadMonth(ctx, tx, mess.ID, month)
		if err != nil {
			return err
		}
		archive := s.snapshot(mess.ID, month, data)

		created, err := s.repo.Insert(ctx, tx, archive)
		if err != nil {
			return err
		}
		if !created {
			existing, err := s.repo.Find(ctx, tx, mess.ID, month)
			if err != nil {
				return err
			}
			if existing == nil {
				return archivedomain.ErrNotFound
			}
			result = archivedomain.ArchiveResult{Archive: existing}
			return nil
		}

		advanced, err := s.messRepo.AdvanceMonth(ctx, tx, mess.ID, month)
		if err != nil {
			return err
		}
		if !advanced {
			return archivedomain.ErrMonthAdvanced
		}
		result = archivedomain.ArchiveResult{Archive: archive, Created: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordArchive(ctx, trigger, result.Created)
	if result.Created {
		s.log.Info("month archived",
			zap.String("mess_id", messID.String()),
			zap.String("month", result.Archive.Month.String()),
			zap.String("trigger", trigger),
			zap.Int64("total_meals", result.Archive.TotalMeals),
			zap.Int("members", len(result.Archive.MembersData)),
		)
	}
	return &result, nil
}

// snapshot reconciles the month with the live ledger policy so the archive
// carries the same numbers the summary showed.
func (s *Service) snapshot(messID snowflake.ID, month period.Month, data *summarydomain.MonthData) *archivedomain.MonthlyArchive {
	st := s.statement(data)

	members := make([]archivedomain.MemberSnapshot, 0, len(st.Members))
	for _, m := range st.Members {
		members = append(members, archivedomain.MemberSnapshot{
			MemberID:              m.MemberID,
			Name:                  data.MemberNames[m.MemberID],
			Active:                data.ActiveIDs[m.MemberID],
			MealCount:             m.MealCount,
			MealCost:              m.MealCost,
			DepositTotal:          m.DepositTotal,
			BazarContribution:     m.BazarContribution,
			PerHeadAdditionalCost: m.PerHeadAdditionalCost,
			Balance:               m.Balance,
		})
	}

	return &archivedomain.MonthlyArchive{
		ID:                    s.genID.Generate(),
		MessID:                messID,
		Month:                 month,
		MealRate:              st.MealRate,
		TotalBazar:            st.TotalBazar,
		TotalMeals:            st.TotalMeals,
		TotalDeposits:         st.TotalDeposits,
		TotalAdditionalCost:   st.TotalAdditionalCost,
		PerHeadAdditionalCost: st.PerHeadAdditionalCost,
		ActiveMemberCount:     st.ActiveMemberCount,
		MembersData:           datatypes.JSONSlice[archivedomain.MemberSnapshot](members),
		CreatedAt:             s.clock.Now(),
	}
}

func (s *Service) statement(data *summarydomain.MonthData) reconcile.Statement {
	cfg := s.ledgerConfig.Get()
	return reconcile.NewReconciler(reconcile.ParseZeroMemberPolicy(cfg.ZeroMemberPolicy)).Statement(data.Period)
}

func (s *Service) Get(ctx context.Context, messID, month string) (*archivedomain.MonthlyArchive, error) {
	mess, err := s.messSvc.Get(ctx, messID)
	if err != nil {
		return nil, err
	}
	m, err := period.ParseMonth(month)
	if err != nil {
		return nil, archivedomain.ErrInvalidMonth
	}
	archive, err := s.repo.Find(ctx, s.db, mess.ID, m)
	if err != nil {
		return nil, err
	}
	if archive == nil {
		return nil, archivedomain.ErrNotFound
	}
	return archive, nil
}

func (s *Service) List(ctx context.Context, req archivedomain.ListRequest) ([]*archivedomain.MonthlyArchive, error) {
	mess, err := s.messSvc.Get(ctx, req.MessID)
	if err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	items, err := s.repo.List(ctx, s.db, mess.ID, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*archivedomain.MonthlyArchive{}
	}
	return items, nil
}

func (s *Service) Verify(ctx context.Context, messID, month string) (*archivedomain.VerifyResult, error) {
	archive, err := s.Get(ctx, messID, month)
	if err != nil {
		return nil, err
	}
	data, err := s.summaryRepo.LoadMonth(ctx, s.db, archive.MessID, archive.Month)
	if err != nil {
		return nil, err
	}
	st := s.statement(data)

	mismatches := compare(archive, st)
	if len(mismatches) > 0 {
		s.log.Warn("archive drift detected",
			zap.String("mess_id", archive.MessID.String()),
			zap.String("month", archive.Month.String()),
			zap.Int("mismatches", len(mismatches)),
		)
	}
	return &archivedomain.VerifyResult{
		MessID:     archive.MessID.String(),
		Month:      archive.Month,
		Matches:    len(mismatches) == 0,
		Mismatches: mismatches,
	}, nil
}

func compare(a *archivedomain.MonthlyArchive, st reconcile.Statement) []archivedomain.Mismatch {
	out := []archivedomain.Mismatch{}
	dec := func(field string, stored, computed decimal.Decimal) {
		if !stored.Round(verifyScale).Equal(computed.Round(verifyScale)) {
			out = append(out, archivedomain.Mismatch{
				Field:    field,
				Stored:   stored.Round(verifyScale).String(),
				Computed: computed.Round(verifyScale).String(),
			})
		}
	}
	num := func(field string, stored, computed int64) {
		if stored != computed {
			out = append(out, archivedomain.Mismatch{
				Field:    field,
				Stored:   strconv.FormatInt(stored, 10),
				Computed: strconv.FormatInt(computed, 10),
			})
		}
	}

	dec("meal_rate", a.MealRate, st.MealRate)
	dec("total_bazar", a.TotalBazar, st.TotalBazar)
	num("total_meals", a.TotalMeals, st.TotalMeals)
	dec("total_deposits", a.TotalDeposits, st.TotalDeposits)
	dec("total_additional_cost", a.TotalAdditionalCost, st.TotalAdditionalCost)
	dec("per_head_additional_cost", a.PerHeadAdditionalCost, st.PerHeadAdditionalCost)
	num("active_member_count", int64(a.ActiveMemberCount), int64(st.ActiveMemberCount))

	num("members", int64(len(a.MembersData)), int64(len(st.Members)))
	for _, m := range st.Members {
		prefix := "members." + m.MemberID.String() + "."
		stored, ok := a.Member(m.MemberID)
		if !ok {
			out = append(out, archivedomain.Mismatch{Field: prefix + "missing", Computed: m.Balance.Round(verifyScale).String()})
			continue
		}
		num(prefix+"meal_count", stored.MealCount, m.MealCount)
		dec(prefix+"meal_cost", stored.MealCost, m.MealCost)
		dec(prefix+"deposit_total", stored.DepositTotal, m.DepositTotal)
		dec(prefix+"bazar_contribution", stored.BazarContribution, m.BazarContribution)
		dec(prefix+"per_head_additional_cost", stored.PerHeadAdditionalCost, m.PerHeadAdditionalCost)
		dec(prefix+"balance", stored.Balance, m.Balance)
	}
	return out
}

func parseMessID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, archivedomain.ErrInvalidMess
	}
	return id, nil
}
