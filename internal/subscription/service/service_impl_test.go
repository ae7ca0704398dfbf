package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/messledger/internal/clock"
	"github.com/smallbiznis/messledger/internal/datewindow"
	messdomain "github.com/smallbiznis/messledger/internal/mess/domain"
	messrepository "github.com/smallbiznis/messledger/internal/mess/repository"
	messservice "github.com/smallbiznis/messledger/internal/mess/service"
	"github.com/smallbiznis/messledger/internal/period"
	subscriptiondomain "github.com/smallbiznis/messledger/internal/subscription/domain"
	"github.com/smallbiznis/messledger/internal/subscription/repository"
	"github.com/smallbiznis/messledger/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testMessID snowflake.ID = 7001

type subscriptionFixture struct {
	svc     subscriptiondomain.Service
	messSvc messdomain.Service
	db      *gorm.DB
	clock   *clock.FakeClock
}

func setupSubscriptionService(t *testing.T, now time.Time, month string) subscriptionFixture {
	t.Helper()
	db := testkit.OpenDB(t)
	node := testkit.Node(t)
	fake := clock.NewFakeClock(now)

	messSvc := messservice.New(messservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  messrepository.Provide(),
	})
	testkit.SeedMess(t, db, testMessID, month, time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC))

	svc := NewService(ServiceParam{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   fake,
		Repo:    repository.Provide(),
		MessSvc: messSvc,
	})
	return subscriptionFixture{svc: svc, messSvc: messSvc, db: db, clock: fake}
}

func date(raw string) time.Time {
	t, err := period.ParseDate(raw)
	if err != nil {
		panic(err)
	}
	return t
}

func codeOf(err error) string {
	var dateErr *datewindow.Error
	if errors.As(err, &dateErr) {
		return dateErr.Code
	}
	return ""
}

func TestApproveValidation(t *testing.T) {
	f := setupSubscriptionService(t, time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC), "2025-01")
	ctx := context.Background()
	messID := testMessID.String()

	_, err := f.svc.Approve(ctx, subscriptiondomain.ApproveRequest{MessID: "abc", StartDate: "2025-01-01", EndDate: "2025-01-31"})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidMess)

	_, err = f.svc.Approve(ctx, subscriptiondomain.ApproveRequest{MessID: messID, StartDate: "01/01/2025", EndDate: "2025-01-31"})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidStartDate)

	_, err = f.svc.Approve(ctx, subscriptiondomain.ApproveRequest{MessID: messID, StartDate: "2025-02-01", EndDate: "2025-01-31"})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidEndDate)

	_, err = f.svc.Approve(ctx, subscriptiondomain.ApproveRequest{MessID: "424242", StartDate: "2025-01-01", EndDate: "2025-01-31"})
	assert.ErrorIs(t, err, messdomain.ErrMessNotFound)
}

func TestApproveRejectsOverlap(t *testing.T) {
	f := setupSubscriptionService(t, time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC), "2025-01")
	ctx := context.Background()
	messID := testMessID.String()

	first, err := f.svc.Approve(ctx, subscriptiondomain.ApproveRequest{MessID: messID, StartDate: "2025-01-01", EndDate: "2025-01-31", Reference: "pay-1"})
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.WindowStatusActive, first.Status)

	_, err = f.svc.Approve(ctx, subscriptiondomain.ApproveRequest{MessID: messID, StartDate: "2025-01-31", EndDate: "2025-02-28"})
	assert.ErrorIs(t, err, subscriptiondomain.ErrOverlappingWindow)

	_, err = f.svc.Cancel(ctx, messID, first.ID.String())
	require.NoError(t, err)

	second, err := f.svc.Approve(ctx, subscriptiondomain.ApproveRequest{MessID: messID, StartDate: "2025-01-15", EndDate: "2025-02-28"})
	require.NoError(t, err, "cancelled windows do not block new ones")

	current, err := f.svc.Current(ctx, messID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)

	windows, err := f.svc.List(ctx, messID)
	require.NoError(t, err)
	assert.Len(t, windows, 2)
}

func TestApprovePastWindowIsExpired(t *testing.T) {
	f := setupSubscriptionService(t, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), "2025-01")

	window, err := f.svc.Approve(context.Background(), subscriptiondomain.ApproveRequest{
		MessID:    testMessID.String(),
		StartDate: "2025-01-01",
		EndDate:   "2025-01-31",
	})
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.WindowStatusExpired, window.Status)
}

func TestCancelIsIdempotent(t *testing.T) {
	f := setupSubscriptionService(t, time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC), "2025-01")
	ctx := context.Background()
	messID := testMessID.String()

	window, err := f.svc.Approve(ctx, subscriptiondomain.ApproveRequest{MessID: messID, StartDate: "2025-01-01", EndDate: "2025-01-31"})
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, messID, window.ID.String())
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.WindowStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	again, err := f.svc.Cancel(ctx, messID, window.ID.String())
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.WindowStatusCancelled, again.Status)

	_, err = f.svc.Cancel(ctx, messID, "99")
	assert.ErrorIs(t, err, subscriptiondomain.ErrNotFound)
	_, err = f.svc.Cancel(ctx, messID, "nope")
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidID)
}

func TestCurrentWithoutWindow(t *testing.T) {
	f := setupSubscriptionService(t, time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC), "2025-01")
	_, err := f.svc.Current(context.Background(), testMessID.String())
	assert.ErrorIs(t, err, subscriptiondomain.ErrNotFound)
}

func TestExpiredWindowClampsWrites(t *testing.T) {
	f := setupSubscriptionService(t, time.Date(2025, 2, 10, 8, 0, 0, 0, time.UTC), "2025-01")
	ctx := context.Background()
	testkit.SeedWindow(t, f.db, testMessID, 8001, "2025-01-01", "2025-01-31")

	expired, err := f.svc.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	current, err := f.svc.Current(ctx, testMessID.String())
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.WindowStatusExpired, current.Status)

	err = f.svc.CheckWritable(ctx, testMessID, date("2025-02-01"))
	require.Error(t, err)
	assert.ErrorIs(t, err, datewindow.ErrInvalidDate)
	assert.Equal(t, datewindow.CodeOutsideWindow, codeOf(err))

	assert.NoError(t, f.svc.CheckWritable(ctx, testMessID, date("2025-01-15")))

	r, err := f.svc.EditableRange(ctx, testMessID)
	require.NoError(t, err)
	assert.True(t, r.ReadOnly)
	assert.Equal(t, date("2025-01-31"), r.Max)
	assert.Equal(t, date("2025-01-01"), r.Min)
}

func TestPrepaidRenewalDoesNotReopenExpiredWindow(t *testing.T) {
	f := setupSubscriptionService(t, time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC), "2025-01")
	ctx := context.Background()
	messID := testMessID.String()

	testkit.SeedWindow(t, f.db, testMessID, 8001, "2025-01-01", "2025-01-05")
	expired, err := f.svc.ExpireDue(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), expired)

	renewal, err := f.svc.Approve(ctx, subscriptiondomain.ApproveRequest{MessID: messID, StartDate: "2025-03-01", EndDate: "2025-03-31"})
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.WindowStatusActive, renewal.Status)

	current, err := f.svc.Current(ctx, messID)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(8001), current.ID)

	err = f.svc.CheckWritable(ctx, testMessID, date("2025-01-09"))
	require.Error(t, err)
	assert.Equal(t, datewindow.CodeOutsideWindow, codeOf(err))
	assert.NoError(t, f.svc.CheckWritable(ctx, testMessID, date("2025-01-05")))

	r, err := f.svc.EditableRange(ctx, testMessID)
	require.NoError(t, err)
	assert.True(t, r.ReadOnly)
	assert.Equal(t, date("2025-01-05"), r.Max)

	f.clock.Set(time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC))
	current, err = f.svc.Current(ctx, messID)
	require.NoError(t, err)
	assert.Equal(t, renewal.ID, current.ID, "the renewal governs once it has started")
}

func TestUpcomingWindowIsNotActiveYet(t *testing.T) {
	f := setupSubscriptionService(t, time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC), "2025-01")
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, subscriptiondomain.ApproveRequest{MessID: testMessID.String(), StartDate: "2025-01-20", EndDate: "2025-02-28"})
	require.NoError(t, err)

	r, err := f.svc.EditableRange(ctx, testMessID)
	require.NoError(t, err)
	assert.True(t, r.ReadOnly)
	assert.Equal(t, date("2025-01-10"), r.Max)

	err = f.svc.CheckWritable(ctx, testMessID, date("2025-01-21"))
	assert.Equal(t, datewindow.CodeOutsideWindow, codeOf(err))
}

func TestExpireDueLeavesRunningWindows(t *testing.T) {
	f := setupSubscriptionService(t, time.Date(2025, 1, 31, 23, 0, 0, 0, time.UTC), "2025-01")
	testkit.SeedWindow(t, f.db, testMessID, 8001, "2025-01-01", "2025-01-31")

	expired, err := f.svc.ExpireDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, expired, "the end date is covered until the day is over")
}

func TestCheckWritableRules(t *testing.T) {
	f := setupSubscriptionService(t, time.Date(2025, 2, 10, 8, 0, 0, 0, time.UTC), "2025-02")
	ctx := context.Background()
	testkit.SeedWindow(t, f.db, testMessID, 8001, "2025-01-01", "2025-03-31")

	assert.NoError(t, f.svc.CheckWritable(ctx, testMessID, date("2025-02-10")))
	assert.NoError(t, f.svc.CheckWritable(ctx, testMessID, date("2025-02-01")))

	err := f.svc.CheckWritable(ctx, testMessID, date("2025-02-11"))
	assert.Equal(t, datewindow.CodeInFuture, codeOf(err))

	err = f.svc.CheckWritable(ctx, testMessID, date("2025-01-31"))
	assert.Equal(t, datewindow.CodeBeforeWindow, codeOf(err), "archived months are frozen")

	_, err = f.messSvc.SetStatus(ctx, messdomain.SetStatusRequest{MessID: testMessID.String(), Status: messdomain.MessStatusSuspended})
	require.NoError(t, err)
	err = f.svc.CheckWritable(ctx, testMessID, date("2025-02-10"))
	assert.ErrorIs(t, err, messdomain.ErrMessSuspended)
}

func TestWindowKeepsCurrentMonth(t *testing.T) {
	f := setupSubscriptionService(t, time.Date(2025, 3, 5, 8, 0, 0, 0, time.UTC), "2025-01")
	ctx := context.Background()
	testkit.SeedWindow(t, f.db, testMessID, 8001, "2024-12-20", "2025-01-31")

	resp, err := f.svc.Window(ctx, testMessID.String(), subscriptiondomain.WindowRequest{})
	require.NoError(t, err)
	assert.Equal(t, "2025-01", resp.CurrentMonth)
	assert.Equal(t, []string{"2024-12", "2025-01", "2025-03"}, resp.EditableMonths)
	assert.True(t, resp.Range.ReadOnly)
	assert.Nil(t, resp.Date)

	resp, err = f.svc.Window(ctx, testMessID.String(), subscriptiondomain.WindowRequest{
		Months: []string{"2025-02", "2025-03", "2025-01", "2025-03"},
		Date:   "2025-02-01",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03", "2025-01"}, resp.EditableMonths)
	require.NotNil(t, resp.Date)
	assert.False(t, resp.Date.Valid)
	assert.Equal(t, datewindow.CodeOutsideWindow, resp.Date.Code)

	resp, err = f.svc.Window(ctx, testMessID.String(), subscriptiondomain.WindowRequest{Date: "2025-1-5"})
	require.NoError(t, err)
	assert.Equal(t, datewindow.CodeMalformed, resp.Date.Code)

	_, err = f.svc.Window(ctx, testMessID.String(), subscriptiondomain.WindowRequest{Months: []string{"March"}})
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidMonth)
}
