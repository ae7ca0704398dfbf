package domain

import (
	"context"
	"errors"
)

type Service interface {
	// Adjust moves one meal counter by +1 or -1 for a member and day.
	Adjust(ctx context.Context, req AdjustRequest) (*MealRecord, error)
	List(ctx context.Context, req ListRequest) ([]MealRecord, error)
}

type AdjustRequest struct {
	MessID   string   `json:"-"`
	MemberID string   `json:"member_id"`
	Date     string   `json:"date"`
	MealType MealType `json:"meal_type"`
	Delta    int      `json:"delta"`
}

type ListRequest struct {
	MessID string
	Month  string
}

// TapLimiter throttles counter taps per member.
type TapLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

var (
	ErrInvalidMess     = errors.New("invalid_mess")
	ErrInvalidMember   = errors.New("invalid_member")
	ErrInvalidDate     = errors.New("invalid_date")
	ErrInvalidMealType = errors.New("invalid_meal_type")
	ErrInvalidDelta    = errors.New("invalid_delta")
	ErrInvalidMonth    = errors.New("invalid_month")
	ErrRateLimited     = errors.New("rate_limited")
)
