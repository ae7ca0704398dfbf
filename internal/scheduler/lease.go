package scheduler

import (
	"context"
	"time"

	obsmetrics "github.com/smallbiznis/messledger/internal/observability/metrics"
	"go.uber.org/zap"
)

const leaseKeyPrefix = "messledger:scheduler:lease:"

// withLease runs fn only if this replica holds the job lease. Without a
// locker every replica runs the job; the database constraints still keep the
// outcome correct.
func (s *Scheduler) withLease(ctx context.Context, job string, fn func(context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}

	key := leaseKeyPrefix + job
	start := time.Now()
	token, ok, err := s.locker.TryLock(ctx, key, s.cfg.LeaseTTL)
	s.metrics.ObserveDBLockWait(obsmetrics.LockResourceSchedulerLease, time.Since(start))
	if err != nil {
		s.logger(ctx).Warn("scheduler lease unavailable, running without it",
			zap.String("job", job),
			zap.Error(err),
		)
		return fn(ctx)
	}
	if !ok {
		s.metrics.IncBatchDeferred(job, obsmetrics.SchedulerBatchDeferredReasonLeaseHeld)
		s.logger(ctx).Debug("scheduler lease held elsewhere", zap.String("job", job))
		return nil
	}
	defer func() {
		// The job context may already be done; release on a fresh one.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.locker.Release(releaseCtx, key, token); err != nil {
			s.logger(ctx).Warn("scheduler lease release failed", zap.String("job", job), zap.Error(err))
		}
	}()
	return fn(ctx)
}
