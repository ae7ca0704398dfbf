package scheduler

import (
	"time"

	"github.com/smallbiznis/messledger/internal/config"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	RunInterval time.Duration
	BatchSize   int
	Concurrency int
	EnabledJobs []string
	LeaseTTL    time.Duration
	JobTimeout  time.Duration
	// MaxCatchUp bounds how many months one mess may be rolled forward in a
	// single run.
	MaxCatchUp int
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Minute,
		BatchSize:   50,
		Concurrency: 4,
		LeaseTTL:    5 * time.Minute,
		JobTimeout:  2 * time.Minute,
		MaxCatchUp:  12,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.Scheduler.RunInterval,
		BatchSize:   cfg.Scheduler.BatchSize,
		Concurrency: cfg.Scheduler.Concurrency,
		EnabledJobs: cfg.Scheduler.EnabledJobs,
		LeaseTTL:    cfg.Scheduler.LeaseTTL,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaults.Concurrency
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = defaults.LeaseTTL
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.MaxCatchUp <= 0 {
		c.MaxCatchUp = defaults.MaxCatchUp
	}
	return c
}
