package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/messledger/internal/clock"
	mealdomain "github.com/smallbiznis/messledger/internal/meal/domain"
	messdomain "github.com/smallbiznis/messledger/internal/mess/domain"
	obsmetrics "github.com/smallbiznis/messledger/internal/observability/metrics"
	"github.com/smallbiznis/messledger/internal/period"
	subscriptiondomain "github.com/smallbiznis/messledger/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Repo            mealdomain.Repository
	MessSvc         messdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	Limiter         mealdomain.TapLimiter `optional:"true"`
	Metrics         *obsmetrics.Metrics   `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	repo            mealdomain.Repository
	messSvc         messdomain.Service
	subscriptionSvc subscriptiondomain.Service
	limiter         mealdomain.TapLimiter
	metrics         *obsmetrics.Metrics
}

func NewService(p ServiceParam) mealdomain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("meal.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		repo:            p.Repo,
		messSvc:         p.MessSvc,
		subscriptionSvc: p.SubscriptionSvc,
		limiter:         p.Limiter,
		metrics:         p.Metrics,
	}
}

func (s *Service) Adjust(ctx context.Context, req mealdomain.AdjustRequest) (*mealdomain.MealRecord, error) {
	messID, err := snowflake.ParseString(strings.TrimSpace(req.MessID))
	if err != nil || messID == 0 {
		return nil, mealdomain.ErrInvalidMess
	}
	memberID, err := snowflake.ParseString(strings.TrimSpace(req.MemberID))
	if err != nil || memberID == 0 {
		return nil, mealdomain.ErrInvalidMember
	}
	day, err := period.ParseDate(req.Date)
	if err != nil {
		return nil, mealdomain.ErrInvalidDate
	}
	mealType := mealdomain.MealType(strings.ToLower(strings.TrimSpace(string(req.MealType))))
	column, ok := mealType.Column()
	if !ok {
		return nil, mealdomain.ErrInvalidMealType
	}
	if req.Delta != 1 && req.Delta != -1 {
		return nil, mealdomain.ErrInvalidDelta
	}

	member, err := s.messSvc.EnsureMember(ctx, messID, memberID)
	if err != nil {
		return nil, err
	}
	if req.Delta > 0 && !member.Active {
		return nil, messdomain.ErrMemberInactive
	}
	if err := s.subscriptionSvc.CheckWritable(ctx, messID, day); err != nil {
		return nil, err
	}
	if err := s.allow(ctx, memberID); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	direction := "increment"
	if req.Delta > 0 {
		rec := &mealdomain.MealRecord{
			ID:        s.genID.Generate(),
			MessID:    messID,
			MemberID:  memberID,
			MealDate:  day,
			CreatedAt: now,
			UpdatedAt: now,
		}
		switch mealType {
		case mealdomain.MealTypeBreakfast:
			rec.Breakfast = 1
		case mealdomain.MealTypeLunch:
			rec.Lunch = 1
		case mealdomain.MealTypeDinner:
			rec.Dinner = 1
		}
		err = s.repo.Increment(ctx, s.db, rec, column)
	} else {
		direction = "decrement"
		err = s.repo.Decrement(ctx, s.db, memberID, day, column, now)
	}
	if err != nil {
		return nil, err
	}
	s.metrics.RecordMealAdjustment(ctx, string(mealType), direction)

	rec, err := s.repo.Find(ctx, s.db, memberID, day)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		// Decrement on a day without any meals.
		rec = &mealdomain.MealRecord{MessID: messID, MemberID: memberID, MealDate: day}
	}
	return rec, nil
}

func (s *Service) allow(ctx context.Context, memberID snowflake.ID) error {
	if s.limiter == nil {
		return nil
	}
	ok, err := s.limiter.Allow(ctx, "meal_tap:"+memberID.String())
	if err != nil {
		// Fail open when the limiter backend is down.
		s.log.Warn("meal tap limiter unavailable", zap.Error(err))
		return nil
	}
	if !ok {
		return mealdomain.ErrRateLimited
	}
	return nil
}

func (s *Service) List(ctx context.Context, req mealdomain.ListRequest) ([]mealdomain.MealRecord, error) {
	mess, err := s.messSvc.Get(ctx, req.MessID)
	if err != nil {
		return nil, err
	}
	month := mess.CurrentMonth
	if raw := strings.TrimSpace(req.Month); raw != "" {
		month, err = period.ParseMonth(raw)
		if err != nil {
			return nil, mealdomain.ErrInvalidMonth
		}
	}

	records, err := s.repo.ListBetween(ctx, s.db, mess.ID, month.Start(), month.End())
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []mealdomain.MealRecord{}
	}
	return records, nil
}
