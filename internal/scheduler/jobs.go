package scheduler

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	archivedomain "github.com/smallbiznis/messledger/internal/archive/domain"
	messdomain "github.com/smallbiznis/messledger/internal/mess/domain"
	obsmetrics "github.com/smallbiznis/messledger/internal/observability/metrics"
	"github.com/smallbiznis/messledger/internal/period"
	"github.com/smallbiznis/messledger/internal/scheduler/guard"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ExpireSubscriptionsJob marks every window whose end date has passed.
func (s *Scheduler) ExpireSubscriptionsJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	expired, err := s.subscriptionSvc.ExpireDue(ctx)
	if err != nil {
		return err
	}
	run.AddProcessed(int(expired))
	s.metrics.AddBatchProcessed(JobExpireSubscriptions, "subscription_windows", int(expired))
	if expired > 0 {
		s.logger(ctx).Info("subscription windows expired", zap.Int64("count", expired))
	}
	return nil
}

// RolloverArchivesJob archives the open month of every active mess whose
// month has ended, advancing it until it reaches the current calendar month.
// Messes are processed in id-ordered batches, each fanned out over a bounded
// number of goroutines.
func (s *Scheduler) RolloverArchivesJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	target := period.MonthOf(s.clock.Now())

	var afterID snowflake.ID
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		messes, err := s.messRepo.ListBehind(ctx, s.db, target, afterID, s.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(messes) == 0 {
			if afterID == 0 {
				s.metrics.IncBatchDeferred(JobRolloverArchives, obsmetrics.SchedulerBatchDeferredReasonEmpty)
			}
			return nil
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.cfg.Concurrency)
		for _, mess := range messes {
			mess := mess
			g.Go(func() error {
				archived := s.rolloverMess(gctx, run, mess, target)
				run.AddProcessed(archived)
				s.metrics.AddBatchProcessed(JobRolloverArchives, "monthly_archives", archived)
				// Per-mess failures are logged and counted; only a cancelled
				// context stops the batch.
				return gctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		afterID = messes[len(messes)-1].ID
		if len(messes) < s.cfg.BatchSize {
			return nil
		}
	}
}

// rolloverMess archives months of one mess until its open month reaches
// target, returning how many archives were created.
func (s *Scheduler) rolloverMess(ctx context.Context, run *jobRun, mess messdomain.Mess, target period.Month) int {
	ctx = s.withLogContext(ctx, mess.ID)
	created := 0
	current := mess.CurrentMonth

	for i := 0; i < s.cfg.MaxCatchUp && current.Before(target); i++ {
		if err := guard.EnsureMessCanRollover(mess.Status, current, s.clock.Now()); err != nil {
			s.logger(ctx).Debug("scheduler.rollover.skipped",
				zap.String("month", current.String()),
				zap.String("reason", err.Error()),
			)
			return created
		}

		res, err := s.archiveSvc.Archive(ctx, archivedomain.ArchiveRequest{
			MessID:  mess.ID.String(),
			Month:   current.String(),
			Trigger: archivedomain.TriggerScheduler,
		})
		switch {
		case errors.Is(err, archivedomain.ErrMonthClosed), errors.Is(err, archivedomain.ErrMonthAdvanced):
			// Another worker moved the mess on; the next run sees the new month.
			s.metrics.IncArchiveOutcome(obsmetrics.ArchiveOutcomeExisting)
			return created
		case err != nil:
			s.metrics.IncArchiveOutcome(obsmetrics.ArchiveOutcomeFailed)
			s.logSchedulerError(ctx, run, "scheduler.rollover.failed", mess.ID, err,
				zap.String("month", current.String()),
			)
			return created
		case !res.Created:
			s.metrics.IncArchiveOutcome(obsmetrics.ArchiveOutcomeExisting)
			return created
		}

		s.metrics.IncArchiveOutcome(obsmetrics.ArchiveOutcomeCreated)
		created++
		current = current.Next()
	}
	return created
}
