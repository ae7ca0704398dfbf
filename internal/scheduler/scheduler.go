package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	archivedomain "github.com/smallbiznis/messledger/internal/archive/domain"
	"github.com/smallbiznis/messledger/internal/clock"
	messdomain "github.com/smallbiznis/messledger/internal/mess/domain"
	obsmetrics "github.com/smallbiznis/messledger/internal/observability/metrics"
	"github.com/smallbiznis/messledger/internal/ratelimit"
	subscriptiondomain "github.com/smallbiznis/messledger/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	JobRolloverArchives    = "rollover_archives"
	JobExpireSubscriptions = "expire_subscriptions"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

// leaser is the subset of ratelimit.Locker the scheduler needs.
type leaser interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	Clock           clock.Clock
	MessRepo        messdomain.Repository
	ArchiveSvc      archivedomain.Service
	SubscriptionSvc subscriptiondomain.Service
	Metrics         *obsmetrics.SchedulerMetrics `optional:"true"`
	Locker          *ratelimit.Locker            `optional:"true"`
	Config          Config                       `optional:"true"`
}

type Scheduler struct {
	db              *gorm.DB
	log             *zap.Logger
	cfg             Config
	clock           clock.Clock
	messRepo        messdomain.Repository
	archiveSvc      archivedomain.Service
	subscriptionSvc subscriptiondomain.Service
	metrics         *obsmetrics.SchedulerMetrics
	locker          leaser
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.MessRepo == nil || p.ArchiveSvc == nil || p.SubscriptionSvc == nil {
		return nil, ErrInvalidConfig
	}
	s := &Scheduler{
		db:              p.DB,
		log:             p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:             p.Config.withDefaults(),
		clock:           p.Clock,
		messRepo:        p.MessRepo,
		archiveSvc:      p.ArchiveSvc,
		subscriptionSvc: p.SubscriptionSvc,
		metrics:         p.Metrics,
	}
	if p.Locker != nil {
		s.locker = p.Locker
	}
	return s, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	s.metrics.IncJobRun(name)

	err := s.withLease(ctx, name, fn)
	s.metrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if _, errs := run.counts(); err != nil && errs == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// A deadline is a soft timeout: the next tick picks up where this one
	// stopped.
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	s.metrics.IncJobError(name, err)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobExpireSubscriptions, s.ExpireSubscriptionsJob},
		{JobRolloverArchives, s.RolloverArchivesJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, s.cfg.BatchSize, s.cfg.JobTimeout, job.Run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := time.Now().Add(s.cfg.RunInterval)

	for {
		if lag := time.Since(nextRun); lag > 0 {
			s.metrics.ObserveRunLoopLag(lag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// An empty list enables every job.
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(strings.TrimSpace(enabled), jobName) {
			return true
		}
	}
	return false
}
