package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/messledger/internal/clock"
	"github.com/smallbiznis/messledger/internal/datewindow"
	messdomain "github.com/smallbiznis/messledger/internal/mess/domain"
	"github.com/smallbiznis/messledger/internal/period"
	subscriptiondomain "github.com/smallbiznis/messledger/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    subscriptiondomain.Repository
	MessSvc messdomain.Service
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    subscriptiondomain.Repository
	messSvc messdomain.Service
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("subscription.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		messSvc: p.MessSvc,
	}
}

func (s *Service) Approve(ctx context.Context, req subscriptiondomain.ApproveRequest) (*subscriptiondomain.SubscriptionWindow, error) {
	messID, err := parseMessID(req.MessID)
	if err != nil {
		return nil, err
	}
	start, err := period.ParseDate(req.StartDate)
	if err != nil {
		return nil, subscriptiondomain.ErrInvalidStartDate
	}
	end, err := period.ParseDate(req.EndDate)
	if err != nil || end.Before(start) {
		return nil, subscriptiondomain.ErrInvalidEndDate
	}

	mess, err := s.messSvc.Get(ctx, req.MessID)
	if err != nil {
		return nil, err
	}

	var window *subscriptiondomain.SubscriptionWindow
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.List(ctx, tx, mess.ID)
		if err != nil {
			return err
		}
		for _, w := range existing {
			if w.Status == subscriptiondomain.WindowStatusCancelled {
				continue
			}
			if !start.After(period.Day(w.EndDate)) && !end.Before(period.Day(w.StartDate)) {
				return subscriptiondomain.ErrOverlappingWindow
			}
		}

		now := s.clock.Now().UTC()
		status := subscriptiondomain.WindowStatusActive
		if end.Before(period.Day(now)) {
			status = subscriptiondomain.WindowStatusExpired
		}
		window = &subscriptiondomain.SubscriptionWindow{
			ID:        s.genID.Generate(),
			MessID:    messID,
			StartDate: start,
			EndDate:   end,
			Status:    status,
			Reference: strings.TrimSpace(req.Reference),
			CreatedAt: now,
			UpdatedAt: now,
		}
		return s.repo.Insert(ctx, tx, window)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("subscription window approved",
		zap.String("mess_id", messID.String()),
		zap.String("start_date", start.Format(period.DateLayout)),
		zap.String("end_date", end.Format(period.DateLayout)),
	)
	return window, nil
}

func (s *Service) Current(ctx context.Context, messID string) (*subscriptiondomain.SubscriptionWindow, error) {
	id, err := parseMessID(messID)
	if err != nil {
		return nil, err
	}
	window, err := s.repo.FindCurrent(ctx, s.db, id, period.Day(s.clock.Now()))
	if err != nil {
		return nil, err
	}
	if window == nil {
		return nil, subscriptiondomain.ErrNotFound
	}
	return window, nil
}

func (s *Service) List(ctx context.Context, messID string) ([]subscriptiondomain.SubscriptionWindow, error) {
	id, err := parseMessID(messID)
	if err != nil {
		return nil, err
	}
	windows, err := s.repo.List(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if windows == nil {
		windows = []subscriptiondomain.SubscriptionWindow{}
	}
	return windows, nil
}

func (s *Service) Cancel(ctx context.Context, messID, windowID string) (*subscriptiondomain.SubscriptionWindow, error) {
	mid, err := parseMessID(messID)
	if err != nil {
		return nil, err
	}
	wid, err := snowflake.ParseString(strings.TrimSpace(windowID))
	if err != nil || wid == 0 {
		return nil, subscriptiondomain.ErrInvalidID
	}

	window, err := s.repo.FindByID(ctx, s.db, mid, wid)
	if err != nil {
		return nil, err
	}
	if window == nil {
		return nil, subscriptiondomain.ErrNotFound
	}
	if window.Status == subscriptiondomain.WindowStatusCancelled {
		return window, nil
	}

	now := s.clock.Now().UTC()
	window.Status = subscriptiondomain.WindowStatusCancelled
	window.CancelledAt = &now
	window.UpdatedAt = now
	if err := s.repo.UpdateStatus(ctx, s.db, window); err != nil {
		return nil, err
	}
	return window, nil
}

// ExpireDue marks every active window whose end date has passed as expired.
func (s *Service) ExpireDue(ctx context.Context) (int64, error) {
	now := s.clock.Now().UTC()
	return s.repo.ExpireEndedBefore(ctx, s.db, period.Day(now), now)
}

func (s *Service) EditableRange(ctx context.Context, messID snowflake.ID) (datewindow.Range, error) {
	mess, err := s.messSvc.Get(ctx, messID.String())
	if err != nil {
		return datewindow.Range{}, err
	}
	return s.editableRange(ctx, mess)
}

// Archived months are frozen, so the range never reaches before the open month.
func (s *Service) editableRange(ctx context.Context, mess *messdomain.Mess) (datewindow.Range, error) {
	sub, err := s.currentWindow(ctx, mess.ID)
	if err != nil {
		return datewindow.Range{}, err
	}
	r := datewindow.ComputeEditableRange(sub, s.clock.Now())
	return r.WithFloor(mess.CurrentMonth.Start()), nil
}

func (s *Service) CheckWritable(ctx context.Context, messID snowflake.ID, date time.Time) error {
	mess, err := s.messSvc.EnsureWritable(ctx, messID)
	if err != nil {
		return err
	}
	r, err := s.editableRange(ctx, mess)
	if err != nil {
		return err
	}
	if res := r.Check(date); !res.Valid {
		return res.Err
	}
	return nil
}

func (s *Service) Window(ctx context.Context, messID string, req subscriptiondomain.WindowRequest) (*subscriptiondomain.WindowResponse, error) {
	mess, err := s.messSvc.Get(ctx, messID)
	if err != nil {
		return nil, err
	}
	sub, err := s.currentWindow(ctx, mess.ID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	r := datewindow.ComputeEditableRange(sub, now).WithFloor(mess.CurrentMonth.Start())

	var months []period.Month
	if len(req.Months) > 0 {
		months = make([]period.Month, 0, len(req.Months))
		for _, raw := range req.Months {
			m, err := period.ParseMonth(raw)
			if err != nil {
				return nil, subscriptiondomain.ErrInvalidMonth
			}
			months = append(months, m)
		}
	} else {
		months = datewindow.BrowsableMonths(period.MonthOf(mess.CreatedAt), sub, now)
	}

	filtered := datewindow.FilterToEditableMonths(months, sub, now)
	resp := &subscriptiondomain.WindowResponse{
		MessID:         mess.ID.String(),
		CurrentMonth:   mess.CurrentMonth.String(),
		Range:          r,
		EditableMonths: make([]string, 0, len(filtered)),
	}
	for _, m := range filtered {
		resp.EditableMonths = append(resp.EditableMonths, m.String())
	}

	if raw := strings.TrimSpace(req.Date); raw != "" {
		check := &subscriptiondomain.DateCheck{Date: raw, Valid: true}
		candidate, err := period.ParseDate(raw)
		if err != nil {
			check.Valid = false
			check.Code = datewindow.CodeMalformed
		} else if res := r.Check(candidate); !res.Valid {
			check.Valid = false
			check.Code = res.Code
		}
		resp.Date = check
	}
	return resp, nil
}

func (s *Service) currentWindow(ctx context.Context, messID snowflake.ID) (*datewindow.Subscription, error) {
	window, err := s.repo.FindCurrent(ctx, s.db, messID, period.Day(s.clock.Now()))
	if err != nil {
		return nil, err
	}
	if window == nil {
		return nil, nil
	}
	return window.Window(), nil
}

func parseMessID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, subscriptiondomain.ErrInvalidMess
	}
	return id, nil
}
