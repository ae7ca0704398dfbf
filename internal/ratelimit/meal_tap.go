package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/messledger/internal/config"
	mealdomain "github.com/smallbiznis/messledger/internal/meal/domain"
)

const keyMealTap = "messledger:ratelimit:%s"

// MealTapLimiter throttles counter taps with one token bucket per key.
type MealTapLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

var _ mealdomain.TapLimiter = (*MealTapLimiter)(nil)

// NewMealTapLimiter returns nil when rate limiting is disabled or no redis is
// configured; the meal service then lets every tap through.
func NewMealTapLimiter(cfg config.Config, client *redis.Client) (mealdomain.TapLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled || client == nil {
		return nil, nil
	}
	if limitCfg.MealTapRate <= 0 || limitCfg.MealTapBurst <= 0 {
		return nil, errors.New("meal tap rate limit must be positive")
	}
	return &MealTapLimiter{
		bucket: NewTokenBucket(client),
		rate:   limitCfg.MealTapRate,
		burst:  limitCfg.MealTapBurst,
	}, nil
}

func (l *MealTapLimiter) Allow(ctx context.Context, key string) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, errors.New("rate limiter key is empty")
	}
	res, err := l.bucket.Take(ctx, mealTapKey(key), l.rate, l.burst)
	if err != nil {
		return false, err
	}
	return res.Allowed, nil
}

func mealTapKey(key string) string {
	return fmt.Sprintf(keyMealTap, key)
}
