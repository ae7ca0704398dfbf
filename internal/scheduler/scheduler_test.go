package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/smallbiznis/messledger/internal/clock"
	obsmetrics "github.com/smallbiznis/messledger/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMetrics(registry *prometheus.Registry) *obsmetrics.SchedulerMetrics {
	return obsmetrics.NewSchedulerMetrics(registry, obsmetrics.Config{
		ServiceName: "messledger",
		Environment: "test",
	})
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	registry := prometheus.NewRegistry()
	s := &Scheduler{
		log:     zap.NewNop(),
		clock:   clock.NewFakeClock(time.Time{}),
		metrics: newTestMetrics(registry),
		cfg:     DefaultConfig(),
	}

	err := s.runJob(context.Background(), "timeout_job", 0, 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	labels := map[string]string{
		"service": "messledger",
		"env":     "test",
		"job":     "timeout_job",
	}
	assert.Equal(t, float64(1), getCounterValue(t, registry, "messledger_scheduler_job_timeouts_total", labels))

	errorLabels := map[string]string{
		"service": "messledger",
		"env":     "test",
		"job":     "timeout_job",
		"reason":  obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}
	assert.Equal(t, float64(1), getCounterValue(t, registry, "messledger_scheduler_job_errors_total", errorLabels))
}

func TestRunJobWrapsErrors(t *testing.T) {
	s := &Scheduler{log: zap.NewNop(), cfg: DefaultConfig()}
	boom := errors.New("boom")

	err := s.runJob(context.Background(), "failing_job", 1, time.Second, func(context.Context) error {
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing_job")
}

func TestRunJobSharesRunAcrossNestedCalls(t *testing.T) {
	s := &Scheduler{log: zap.NewNop(), cfg: DefaultConfig()}

	var outer, inner *jobRun
	err := s.runJob(context.Background(), "outer", 1, time.Second, func(ctx context.Context) error {
		outer = jobRunFromContext(ctx)
		return s.runJob(ctx, "inner", 1, time.Second, func(ctx context.Context) error {
			inner = jobRunFromContext(ctx)
			return nil
		})
	})
	require.NoError(t, err)
	require.NotNil(t, outer)
	assert.Same(t, outer, inner)
	assert.Len(t, outer.runID, 26, "run ids are ulids")
}

func TestIsJobEnabled(t *testing.T) {
	s := &Scheduler{cfg: DefaultConfig()}
	assert.True(t, s.isJobEnabled(JobRolloverArchives))
	assert.True(t, s.isJobEnabled(JobExpireSubscriptions))

	s.cfg.EnabledJobs = []string{" Rollover_Archives "}
	assert.True(t, s.isJobEnabled(JobRolloverArchives))
	assert.False(t, s.isJobEnabled(JobExpireSubscriptions))
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{BatchSize: 7}.withDefaults()
	assert.Equal(t, 7, cfg.BatchSize)
	assert.Equal(t, time.Minute, cfg.RunInterval)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 12, cfg.MaxCatchUp)
	assert.Equal(t, 5*time.Minute, cfg.LeaseTTL)
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			require.NotNilf(t, metric.Counter, "metric %s is not a counter", name)
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
