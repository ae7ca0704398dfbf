package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/messledger/internal/clock"
	"github.com/smallbiznis/messledger/internal/datewindow"
	mealdomain "github.com/smallbiznis/messledger/internal/meal/domain"
	"github.com/smallbiznis/messledger/internal/meal/repository"
	messdomain "github.com/smallbiznis/messledger/internal/mess/domain"
	messrepository "github.com/smallbiznis/messledger/internal/mess/repository"
	messservice "github.com/smallbiznis/messledger/internal/mess/service"
	subscriptionrepository "github.com/smallbiznis/messledger/internal/subscription/repository"
	subscriptionservice "github.com/smallbiznis/messledger/internal/subscription/service"
	"github.com/smallbiznis/messledger/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testMessID   snowflake.ID = 9001
	testMemberID snowflake.ID = 9101
	otherMember  snowflake.ID = 9102
)

type limiterMock struct {
	mock.Mock
}

func (m *limiterMock) Allow(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func setupMealService(t *testing.T, limiter mealdomain.TapLimiter) (mealdomain.Service, *gorm.DB, messdomain.Service) {
	t.Helper()
	db := testkit.OpenDB(t)
	node := testkit.Node(t)
	fake := clock.NewFakeClock(time.Date(2025, 1, 20, 10, 0, 0, 0, time.UTC))

	joined := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	testkit.SeedMess(t, db, testMessID, "2025-01", joined)
	testkit.SeedMember(t, db, testMessID, testMemberID, "Rafi", joined)
	testkit.SeedMember(t, db, testMessID, otherMember, "Nila", joined)
	testkit.SeedWindow(t, db, testMessID, 9201, "2025-01-01", "2025-12-31")

	messSvc := messservice.New(messservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  messrepository.Provide(),
	})
	subscriptionSvc := subscriptionservice.NewService(subscriptionservice.ServiceParam{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   fake,
		Repo:    subscriptionrepository.Provide(),
		MessSvc: messSvc,
	})
	svc := NewService(ServiceParam{
		DB:              db,
		Log:             zap.NewNop(),
		GenID:           node,
		Clock:           fake,
		Repo:            repository.Provide(),
		MessSvc:         messSvc,
		SubscriptionSvc: subscriptionSvc,
		Limiter:         limiter,
	})
	return svc, db, messSvc
}

func adjust(memberID snowflake.ID, day string, mealType mealdomain.MealType, delta int) mealdomain.AdjustRequest {
	return mealdomain.AdjustRequest{
		MessID:   testMessID.String(),
		MemberID: memberID.String(),
		Date:     day,
		MealType: mealType,
		Delta:    delta,
	}
}

func TestAdjustIncrementAndDecrement(t *testing.T) {
	svc, _, _ := setupMealService(t, nil)
	ctx := context.Background()

	rec, err := svc.Adjust(ctx, adjust(testMemberID, "2025-01-15", mealdomain.MealTypeLunch, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Lunch)
	assert.Equal(t, 0, rec.Breakfast)

	rec, err = svc.Adjust(ctx, adjust(testMemberID, "2025-01-15", mealdomain.MealTypeLunch, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Lunch)

	rec, err = svc.Adjust(ctx, adjust(testMemberID, "2025-01-15", "Dinner", 1))
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Lunch)
	assert.Equal(t, 1, rec.Dinner)
	assert.Equal(t, 3, rec.Total())

	rec, err = svc.Adjust(ctx, adjust(testMemberID, "2025-01-15", mealdomain.MealTypeLunch, -1))
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Lunch)

	records, err := svc.List(ctx, mealdomain.ListRequest{MessID: testMessID.String()})
	require.NoError(t, err)
	require.Len(t, records, 1, "one record per member and day")
	assert.Equal(t, 1, records[0].Lunch)
	assert.Equal(t, 1, records[0].Dinner)
}

func TestDecrementAtZeroIsNoop(t *testing.T) {
	svc, db, _ := setupMealService(t, nil)
	ctx := context.Background()

	rec, err := svc.Adjust(ctx, adjust(testMemberID, "2025-01-10", mealdomain.MealTypeBreakfast, -1))
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Total())

	var count int64
	require.NoError(t, db.Model(&mealdomain.MealRecord{}).Count(&count).Error)
	assert.Zero(t, count, "decrement never creates a record")

	_, err = svc.Adjust(ctx, adjust(testMemberID, "2025-01-10", mealdomain.MealTypeDinner, 1))
	require.NoError(t, err)
	rec, err = svc.Adjust(ctx, adjust(testMemberID, "2025-01-10", mealdomain.MealTypeBreakfast, -1))
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Breakfast)
	assert.Equal(t, 1, rec.Dinner)
}

func TestConcurrentIncrementsLoseNothing(t *testing.T) {
	svc, _, _ := setupMealService(t, nil)
	ctx := context.Background()

	const taps = 25
	var wg sync.WaitGroup
	errs := make(chan error, taps)
	for i := 0; i < taps; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Adjust(ctx, adjust(testMemberID, "2025-01-18", mealdomain.MealTypeLunch, 1)); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	records, err := svc.List(ctx, mealdomain.ListRequest{MessID: testMessID.String(), Month: "2025-01"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, taps, records[0].Lunch)
}

func TestAdjustValidation(t *testing.T) {
	svc, _, _ := setupMealService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  mealdomain.AdjustRequest
		want error
	}{
		{"bad mess", mealdomain.AdjustRequest{MessID: "x", MemberID: "1", Date: "2025-01-10", MealType: mealdomain.MealTypeLunch, Delta: 1}, mealdomain.ErrInvalidMess},
		{"bad member", adjust(0, "2025-01-10", mealdomain.MealTypeLunch, 1), mealdomain.ErrInvalidMember},
		{"bad date", adjust(testMemberID, "10-01-2025", mealdomain.MealTypeLunch, 1), mealdomain.ErrInvalidDate},
		{"bad meal type", adjust(testMemberID, "2025-01-10", "supper", 1), mealdomain.ErrInvalidMealType},
		{"bad delta", adjust(testMemberID, "2025-01-10", mealdomain.MealTypeLunch, 2), mealdomain.ErrInvalidDelta},
		{"zero delta", adjust(testMemberID, "2025-01-10", mealdomain.MealTypeLunch, 0), mealdomain.ErrInvalidDelta},
		{"unknown member", adjust(12345, "2025-01-10", mealdomain.MealTypeLunch, 1), messdomain.ErrMemberNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Adjust(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAdjustRespectsWindow(t *testing.T) {
	svc, _, _ := setupMealService(t, nil)
	ctx := context.Background()

	_, err := svc.Adjust(ctx, adjust(testMemberID, "2025-01-21", mealdomain.MealTypeLunch, 1))
	var dateErr *datewindow.Error
	require.True(t, errors.As(err, &dateErr))
	assert.Equal(t, datewindow.CodeInFuture, dateErr.Code)

	_, err = svc.Adjust(ctx, adjust(testMemberID, "2024-12-31", mealdomain.MealTypeLunch, 1))
	require.True(t, errors.As(err, &dateErr))
	assert.Equal(t, datewindow.CodeBeforeWindow, dateErr.Code)
}

func TestInactiveMemberCanOnlyDecrement(t *testing.T) {
	svc, _, messSvc := setupMealService(t, nil)
	ctx := context.Background()

	_, err := svc.Adjust(ctx, adjust(otherMember, "2025-01-12", mealdomain.MealTypeDinner, 1))
	require.NoError(t, err)

	_, err = messSvc.DeactivateMember(ctx, testMessID.String(), otherMember.String())
	require.NoError(t, err)

	_, err = svc.Adjust(ctx, adjust(otherMember, "2025-01-12", mealdomain.MealTypeDinner, 1))
	assert.ErrorIs(t, err, messdomain.ErrMemberInactive)

	rec, err := svc.Adjust(ctx, adjust(otherMember, "2025-01-12", mealdomain.MealTypeDinner, -1))
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Dinner)
}

func TestAdjustRateLimited(t *testing.T) {
	limiter := &limiterMock{}
	limiter.On("Allow", mock.Anything, "meal_tap:"+testMemberID.String()).Return(false, nil).Once()
	limiter.On("Allow", mock.Anything, "meal_tap:"+testMemberID.String()).Return(false, errors.New("redis down")).Once()

	svc, _, _ := setupMealService(t, limiter)
	ctx := context.Background()

	_, err := svc.Adjust(ctx, adjust(testMemberID, "2025-01-15", mealdomain.MealTypeLunch, 1))
	assert.ErrorIs(t, err, mealdomain.ErrRateLimited)

	rec, err := svc.Adjust(ctx, adjust(testMemberID, "2025-01-15", mealdomain.MealTypeLunch, 1))
	require.NoError(t, err, "limiter errors fail open")
	assert.Equal(t, 1, rec.Lunch)

	limiter.AssertExpectations(t)
}

func TestListMonthValidation(t *testing.T) {
	svc, _, _ := setupMealService(t, nil)
	_, err := svc.List(context.Background(), mealdomain.ListRequest{MessID: testMessID.String(), Month: "2025/01"})
	assert.ErrorIs(t, err, mealdomain.ErrInvalidMonth)

	records, err := svc.List(context.Background(), mealdomain.ListRequest{MessID: testMessID.String(), Month: "2024-11"})
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}
