package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/messledger/internal/clock"
	ledgerdomain "github.com/smallbiznis/messledger/internal/ledger/domain"
	messdomain "github.com/smallbiznis/messledger/internal/mess/domain"
	obsmetrics "github.com/smallbiznis/messledger/internal/observability/metrics"
	"github.com/smallbiznis/messledger/internal/period"
	subscriptiondomain "github.com/smallbiznis/messledger/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Repo            ledgerdomain.Repository
	MessSvc         messdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	ObsMetrics      *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	repo            ledgerdomain.Repository
	messSvc         messdomain.Service
	subscriptionSvc subscriptiondomain.Service
	obsMetrics      *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("ledger.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		repo:            p.Repo,
		messSvc:         p.MessSvc,
		subscriptionSvc: p.SubscriptionSvc,
		obsMetrics:      p.ObsMetrics,
	}
}

// Amounts are stored as NUMERIC(20,4).
const amountScale int32 = 4

var maxAmount = decimal.New(1, 16)

// entryInput is the validated common part of every record request.
type entryInput struct {
	messID    snowflake.ID
	date      time.Time
	amount    decimal.Decimal
	clientRef *string
}

func (s *Service) prepare(ctx context.Context, messID, date, amount, clientRef string) (entryInput, error) {
	var in entryInput

	id, err := snowflake.ParseString(strings.TrimSpace(messID))
	if err != nil || id == 0 {
		return in, ledgerdomain.ErrInvalidMess
	}
	day, err := period.ParseDate(date)
	if err != nil {
		return in, ledgerdomain.ErrInvalidDate
	}
	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return in, ledgerdomain.ErrInvalidAmount
	}
	if !value.IsPositive() {
		return in, ledgerdomain.ErrNonPositiveAmount
	}
	if !value.Truncate(amountScale).Equal(value) || value.GreaterThanOrEqual(maxAmount) {
		return in, ledgerdomain.ErrInvalidAmount
	}
	if ref := strings.TrimSpace(clientRef); ref != "" {
		if len(ref) > 64 {
			return in, ledgerdomain.ErrInvalidClientRef
		}
		in.clientRef = &ref
	}

	if err := s.subscriptionSvc.CheckWritable(ctx, id, day); err != nil {
		return in, err
	}

	in.messID = id
	in.date = day
	in.amount = value
	return in, nil
}

func (s *Service) member(ctx context.Context, messID snowflake.ID, raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, ledgerdomain.ErrInvalidMember
	}
	if _, err := s.messSvc.EnsureMember(ctx, messID, id); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Service) RecordBazar(ctx context.Context, req ledgerdomain.RecordBazarRequest) (*ledgerdomain.BazarRecord, error) {
	in, err := s.prepare(ctx, req.MessID, req.Date, req.Cost, req.ClientRef)
	if err != nil {
		return nil, err
	}

	rec := &ledgerdomain.BazarRecord{
		ID:           s.genID.Generate(),
		MessID:       in.messID,
		PurchaseDate: in.date,
		Cost:         in.amount,
		Description:  strings.TrimSpace(req.Description),
		ClientRef:    in.clientRef,
		CreatedAt:    s.clock.Now().UTC(),
	}
	if strings.TrimSpace(req.MemberID) != "" {
		memberID, err := s.member(ctx, in.messID, req.MemberID)
		if err != nil {
			return nil, err
		}
		rec.MemberID = &memberID
	}

	inserted, err := s.repo.InsertBazar(ctx, s.db, rec)
	if err != nil {
		return nil, err
	}
	if !inserted && in.clientRef != nil {
		return s.repo.FindBazarByClientRef(ctx, s.db, in.messID, *in.clientRef)
	}
	s.recorded(ctx, ledgerdomain.SourceTypeBazar, rec.ID, in.messID)
	return rec, nil
}

func (s *Service) RecordDeposit(ctx context.Context, req ledgerdomain.RecordDepositRequest) (*ledgerdomain.DepositRecord, error) {
	in, err := s.prepare(ctx, req.MessID, req.Date, req.Amount, req.ClientRef)
	if err != nil {
		return nil, err
	}
	memberID, err := s.member(ctx, in.messID, req.MemberID)
	if err != nil {
		return nil, err
	}

	rec := &ledgerdomain.DepositRecord{
		ID:          s.genID.Generate(),
		MessID:      in.messID,
		MemberID:    memberID,
		DepositDate: in.date,
		Amount:      in.amount,
		Note:        strings.TrimSpace(req.Note),
		ClientRef:   in.clientRef,
		CreatedAt:   s.clock.Now().UTC(),
	}
	inserted, err := s.repo.InsertDeposit(ctx, s.db, rec)
	if err != nil {
		return nil, err
	}
	if !inserted && in.clientRef != nil {
		return s.repo.FindDepositByClientRef(ctx, s.db, in.messID, *in.clientRef)
	}
	s.recorded(ctx, ledgerdomain.SourceTypeDeposit, rec.ID, in.messID)
	return rec, nil
}

func (s *Service) RecordAdditionalCost(ctx context.Context, req ledgerdomain.RecordAdditionalCostRequest) (*ledgerdomain.AdditionalCostRecord, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, ledgerdomain.ErrInvalidDescription
	}
	in, err := s.prepare(ctx, req.MessID, req.Date, req.Amount, req.ClientRef)
	if err != nil {
		return nil, err
	}

	rec := &ledgerdomain.AdditionalCostRecord{
		ID:          s.genID.Generate(),
		MessID:      in.messID,
		CostDate:    in.date,
		Description: description,
		Amount:      in.amount,
		ClientRef:   in.clientRef,
		CreatedAt:   s.clock.Now().UTC(),
	}
	inserted, err := s.repo.InsertAdditionalCost(ctx, s.db, rec)
	if err != nil {
		return nil, err
	}
	if !inserted && in.clientRef != nil {
		return s.repo.FindAdditionalCostByClientRef(ctx, s.db, in.messID, *in.clientRef)
	}
	s.recorded(ctx, ledgerdomain.SourceTypeAdditionalCost, rec.ID, in.messID)
	return rec, nil
}

func (s *Service) recorded(ctx context.Context, sourceType ledgerdomain.SourceType, id, messID snowflake.ID) {
	s.obsMetrics.RecordLedgerEntry(ctx, string(sourceType))
	s.log.Debug("ledger record created",
		zap.String("source_type", string(sourceType)),
		zap.String("source_id", id.String()),
		zap.String("mess_id", messID.String()),
	)
}

func (s *Service) ListBazar(ctx context.Context, req ledgerdomain.ListRequest) ([]ledgerdomain.BazarRecord, error) {
	mess, month, err := s.resolveMonth(ctx, req)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListBazarBetween(ctx, s.db, mess.ID, month.Start(), month.End())
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []ledgerdomain.BazarRecord{}
	}
	return records, nil
}

func (s *Service) ListDeposits(ctx context.Context, req ledgerdomain.ListRequest) ([]ledgerdomain.DepositRecord, error) {
	mess, month, err := s.resolveMonth(ctx, req)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListDepositsBetween(ctx, s.db, mess.ID, month.Start(), month.End())
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []ledgerdomain.DepositRecord{}
	}
	return records, nil
}

func (s *Service) ListAdditionalCosts(ctx context.Context, req ledgerdomain.ListRequest) ([]ledgerdomain.AdditionalCostRecord, error) {
	mess, month, err := s.resolveMonth(ctx, req)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListAdditionalCostsBetween(ctx, s.db, mess.ID, month.Start(), month.End())
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []ledgerdomain.AdditionalCostRecord{}
	}
	return records, nil
}

// resolveMonth defaults to the open month of the mess.
func (s *Service) resolveMonth(ctx context.Context, req ledgerdomain.ListRequest) (*messdomain.Mess, period.Month, error) {
	mess, err := s.messSvc.Get(ctx, req.MessID)
	if err != nil {
		return nil, period.Month{}, err
	}
	raw := strings.TrimSpace(req.Month)
	if raw == "" {
		return mess, mess.CurrentMonth, nil
	}
	month, err := period.ParseMonth(raw)
	if err != nil {
		return nil, period.Month{}, ledgerdomain.ErrInvalidMonth
	}
	return mess, month, nil
}
