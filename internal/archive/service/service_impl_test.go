package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	archivedomain "github.com/smallbiznis/messledger/internal/archive/domain"
	"github.com/smallbiznis/messledger/internal/archive/repository"
	"github.com/smallbiznis/messledger/internal/clock"
	"github.com/smallbiznis/messledger/internal/config"
	ledgerrepository "github.com/smallbiznis/messledger/internal/ledger/repository"
	mealrepository "github.com/smallbiznis/messledger/internal/meal/repository"
	messdomain "github.com/smallbiznis/messledger/internal/mess/domain"
	messrepository "github.com/smallbiznis/messledger/internal/mess/repository"
	messservice "github.com/smallbiznis/messledger/internal/mess/service"
	obsmetrics "github.com/smallbiznis/messledger/internal/observability/metrics"
	"github.com/smallbiznis/messledger/internal/period"
	"github.com/smallbiznis/messledger/internal/reconcile"
	summarydomain "github.com/smallbiznis/messledger/internal/summary/domain"
	summaryrepository "github.com/smallbiznis/messledger/internal/summary/repository"
	"github.com/smallbiznis/messledger/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testMessID snowflake.ID = 4001
	memberA    snowflake.ID = 4101
	memberB    snowflake.ID = 4102
	memberC    snowflake.ID = 4103
)

type archiveFixture struct {
	svc         archivedomain.Service
	db          *gorm.DB
	clock       *clock.FakeClock
	messRepo    messdomain.Repository
	summaryRepo summarydomain.Repository
	registry    *prometheus.Registry
}

// failingSummaryRepo loads the month and then fails, after the mess row is
// already locked.
type failingSummaryRepo struct {
	summarydomain.Repository
}

func (failingSummaryRepo) LoadMonth(context.Context, *gorm.DB, snowflake.ID, period.Month) (*summarydomain.MonthData, error) {
	return nil, errors.New("read replica unavailable")
}

func setupArchiveService(t *testing.T, now time.Time, summaryRepo summarydomain.Repository) archiveFixture {
	t.Helper()
	db := testkit.OpenDB(t)
	node := testkit.Node(t)
	fake := clock.NewFakeClock(now)

	joined := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	testkit.SeedMess(t, db, testMessID, "2025-01", joined)
	testkit.SeedMember(t, db, testMessID, memberA, "Arif", joined)
	testkit.SeedMember(t, db, testMessID, memberB, "Bina", joined)
	testkit.SeedMember(t, db, testMessID, memberC, "Chandra", joined)

	messRepo := messrepository.Provide()
	messSvc := messservice.New(messservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  messRepo,
	})
	liveRepo := summaryrepository.Provide(summaryrepository.Params{
		MessRepo:   messRepo,
		MealRepo:   mealrepository.Provide(),
		LedgerRepo: ledgerrepository.Provide(),
	})
	if summaryRepo == nil {
		summaryRepo = liveRepo
	}

	registry := prometheus.NewRegistry()
	svc := NewService(ServiceParam{
		DB:               db,
		Log:              zap.NewNop(),
		GenID:            node,
		Clock:            fake,
		Repo:             repository.Provide(),
		MessRepo:         messRepo,
		MessSvc:          messSvc,
		SummaryRepo:      summaryRepo,
		LedgerConfig:     config.NewStaticLedgerConfigHolder(config.DefaultLedgerConfig()),
		SchedulerMetrics: obsmetrics.NewSchedulerMetrics(registry, obsmetrics.Config{ServiceName: "messledger-test"}),
	})
	return archiveFixture{
		svc:         svc,
		db:          db,
		clock:       fake,
		messRepo:    messRepo,
		summaryRepo: liveRepo,
		registry:    registry,
	}
}

func seedJanuary(t *testing.T, db *gorm.DB) {
	t.Helper()
	r := testkit.NewRecords(t, db, testMessID)
	r.Meal(memberA, "2025-01-03", 5, 5, 5)
	r.Meal(memberA, "2025-01-04", 0, 3, 2)
	r.Meal(memberB, "2025-01-03", 8, 9, 8)
	r.Meal(memberC, "2025-01-05", 0, 8, 7)
	r.Bazar(memberA, "2025-01-02", "700")
	r.Bazar(memberB, "2025-01-09", "500")
	r.Deposit(memberA, "2025-01-01", "1000")
	r.Deposit(memberB, "2025-01-01", "1200")
	r.Deposit(memberC, "2025-01-01", "800")
	r.AdditionalCost("2025-01-10", "electricity", "90")
	r.AdditionalCost("2025-01-20", "internet", "60")
}

func currentMonth(t *testing.T, f archiveFixture) string {
	t.Helper()
	mess, err := f.messRepo.FindByID(context.Background(), f.db, testMessID)
	require.NoError(t, err)
	return mess.CurrentMonth.String()
}

func TestArchiveSnapshotsAndAdvances(t *testing.T) {
	f := setupArchiveService(t, time.Date(2025, 2, 1, 0, 5, 0, 0, time.UTC), nil)
	seedJanuary(t, f.db)
	ctx := context.Background()

	res, err := f.svc.Archive(ctx, archivedomain.ArchiveRequest{MessID: testMessID.String()})
	require.NoError(t, err)
	require.True(t, res.Created)

	a := res.Archive
	assert.Equal(t, "2025-01", a.Month.String())
	assert.True(t, decimal.NewFromInt(20).Equal(a.MealRate))
	assert.True(t, decimal.NewFromInt(1200).Equal(a.TotalBazar))
	assert.Equal(t, int64(60), a.TotalMeals)
	assert.True(t, decimal.NewFromInt(50).Equal(a.PerHeadAdditionalCost))
	assert.Equal(t, 3, a.ActiveMemberCount)
	require.Len(t, a.MembersData, 3)

	assert.Equal(t, "2025-02", currentMonth(t, f))

	stored, err := f.svc.Get(ctx, testMessID.String(), "2025-01")
	require.NoError(t, err)
	for id, balance := range map[snowflake.ID]string{memberA: "550", memberB: "650", memberC: "450"} {
		snap, ok := stored.Member(id)
		require.True(t, ok)
		assert.True(t, decimal.RequireFromString(balance).Equal(snap.Balance), "%s: %s", snap.Name, snap.Balance)
	}

	assert.Equal(t, uint64(1), lockWaitSamples(t, f.registry))
}

func lockWaitSamples(t *testing.T, registry *prometheus.Registry) uint64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "messledger_scheduler_lock_wait_seconds" {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "resource" && label.GetValue() == obsmetrics.LockResourceMessRow {
					return m.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	return 0
}

func TestArchiveMatchesReconciler(t *testing.T) {
	f := setupArchiveService(t, time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), nil)
	seedJanuary(t, f.db)
	r := testkit.NewRecords(t, f.db, testMessID)
	r.Bazar(0, "2025-01-30", "33.37")
	r.Meal(memberC, "2025-01-30", 1, 0, 0)
	ctx := context.Background()

	data, err := f.summaryRepo.LoadMonth(ctx, f.db, testMessID, period.MustParseMonth("2025-01"))
	require.NoError(t, err)
	want := reconcile.NewReconciler(reconcile.ZeroMemberFloor).Statement(data.Period)

	res, err := f.svc.Archive(ctx, archivedomain.ArchiveRequest{MessID: testMessID.String(), Month: "2025-01"})
	require.NoError(t, err)

	stored, err := f.svc.Get(ctx, testMessID.String(), "2025-01")
	require.NoError(t, err)
	assert.Equal(t, res.Archive.ID, stored.ID)
	assert.True(t, want.MealRate.Round(4).Equal(stored.MealRate.Round(4)), "%s vs %s", want.MealRate, stored.MealRate)
	for _, m := range want.Members {
		snap, ok := stored.Member(m.MemberID)
		require.True(t, ok)
		assert.True(t, m.Balance.Equal(snap.Balance), "members_data keeps exact balances: %s vs %s", m.Balance, snap.Balance)
		assert.Equal(t, m.MealCount, snap.MealCount)
	}

	verify, err := f.svc.Verify(ctx, testMessID.String(), "2025-01")
	require.NoError(t, err)
	assert.True(t, verify.Matches, "%+v", verify.Mismatches)
	assert.Empty(t, verify.Mismatches)
}

func TestArchiveIsCreateOnce(t *testing.T) {
	f := setupArchiveService(t, time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC), nil)
	seedJanuary(t, f.db)
	ctx := context.Background()

	first, err := f.svc.Archive(ctx, archivedomain.ArchiveRequest{MessID: testMessID.String(), Month: "2025-01"})
	require.NoError(t, err)
	require.True(t, first.Created)

	// A late record must not rewrite the snapshot.
	testkit.NewRecords(t, f.db, testMessID).Bazar(0, "2025-01-31", "100")

	second, err := f.svc.Archive(ctx, archivedomain.ArchiveRequest{MessID: testMessID.String(), Month: "2025-01"})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Archive.ID, second.Archive.ID)
	assert.True(t, first.Archive.TotalBazar.Equal(second.Archive.TotalBazar))
	assert.Equal(t, "2025-02", currentMonth(t, f), "month advances once")

	var count int64
	require.NoError(t, f.db.Model(&archivedomain.MonthlyArchive{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	verify, err := f.svc.Verify(ctx, testMessID.String(), "2025-01")
	require.NoError(t, err)
	assert.False(t, verify.Matches)
	fields := make([]string, 0, len(verify.Mismatches))
	for _, m := range verify.Mismatches {
		fields = append(fields, m.Field)
	}
	assert.Contains(t, fields, "total_bazar")
	assert.Contains(t, fields, "meal_rate")
}

func TestVerifyComparesEveryMemberField(t *testing.T) {
	f := setupArchiveService(t, time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC), nil)
	seedJanuary(t, f.db)
	ctx := context.Background()

	_, err := f.svc.Archive(ctx, archivedomain.ArchiveRequest{MessID: testMessID.String(), Month: "2025-01"})
	require.NoError(t, err)

	late := testkit.NewRecords(t, f.db, testMessID)
	late.Bazar(memberC, "2025-01-31", "60")
	late.AdditionalCost("2025-01-31", "water", "30")

	verify, err := f.svc.Verify(ctx, testMessID.String(), "2025-01")
	require.NoError(t, err)
	require.False(t, verify.Matches)

	fields := make(map[string]archivedomain.Mismatch, len(verify.Mismatches))
	for _, m := range verify.Mismatches {
		fields[m.Field] = m
	}
	prefix := "members." + memberC.String() + "."
	assert.Equal(t, "300", fields[prefix+"meal_cost"].Stored)
	assert.Equal(t, "315", fields[prefix+"meal_cost"].Computed)
	assert.Equal(t, "0", fields[prefix+"bazar_contribution"].Stored)
	assert.Equal(t, "60", fields[prefix+"bazar_contribution"].Computed)
	assert.Equal(t, "50", fields[prefix+"per_head_additional_cost"].Stored)
	assert.Equal(t, "60", fields[prefix+"per_head_additional_cost"].Computed)
	assert.Contains(t, fields, prefix+"balance")
	assert.NotContains(t, fields, prefix+"meal_count")
	assert.NotContains(t, fields, prefix+"deposit_total")
}

func TestConcurrentArchiveWritesOneRow(t *testing.T) {
	f := setupArchiveService(t, time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC), nil)
	seedJanuary(t, f.db)
	ctx := context.Background()

	const attempts = 6
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		ids     = map[snowflake.ID]struct{}{}
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.Archive(ctx, archivedomain.ArchiveRequest{MessID: testMessID.String(), Month: "2025-01", Trigger: archivedomain.TriggerScheduler})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if res.Created {
				created++
			}
			ids[res.Archive.ID] = struct{}{}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, ids, 1)
	assert.Equal(t, "2025-02", currentMonth(t, f))
}

func TestArchiveFailureKeepsMonth(t *testing.T) {
	f := setupArchiveService(t, time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC), failingSummaryRepo{})
	seedJanuary(t, f.db)

	_, err := f.svc.Archive(context.Background(), archivedomain.ArchiveRequest{MessID: testMessID.String()})
	require.Error(t, err)

	assert.Equal(t, "2025-01", currentMonth(t, f))
	var count int64
	require.NoError(t, f.db.Model(&archivedomain.MonthlyArchive{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestArchiveMonthRules(t *testing.T) {
	f := setupArchiveService(t, time.Date(2025, 1, 31, 22, 0, 0, 0, time.UTC), nil)
	ctx := context.Background()
	messID := testMessID.String()

	_, err := f.svc.Archive(ctx, archivedomain.ArchiveRequest{MessID: messID, Month: "2025-02"})
	assert.ErrorIs(t, err, archivedomain.ErrMonthAhead)

	_, err = f.svc.Archive(ctx, archivedomain.ArchiveRequest{MessID: messID, Month: "2024-12"})
	assert.ErrorIs(t, err, archivedomain.ErrMonthClosed)

	_, err = f.svc.Archive(ctx, archivedomain.ArchiveRequest{MessID: messID})
	assert.ErrorIs(t, err, archivedomain.ErrMonthNotEnded)

	_, err = f.svc.Archive(ctx, archivedomain.ArchiveRequest{MessID: messID, Month: "January"})
	assert.ErrorIs(t, err, archivedomain.ErrInvalidMonth)

	_, err = f.svc.Archive(ctx, archivedomain.ArchiveRequest{MessID: "x"})
	assert.ErrorIs(t, err, archivedomain.ErrInvalidMess)

	_, err = f.svc.Archive(ctx, archivedomain.ArchiveRequest{MessID: "31337"})
	assert.ErrorIs(t, err, messdomain.ErrMessNotFound)

	assert.Equal(t, "2025-01", currentMonth(t, f))
}

func TestListArchivesNewestFirst(t *testing.T) {
	f := setupArchiveService(t, time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), nil)
	seedJanuary(t, f.db)
	ctx := context.Background()

	for _, month := range []string{"2025-01", "2025-02", "2025-03"} {
		res, err := f.svc.Archive(ctx, archivedomain.ArchiveRequest{MessID: testMessID.String(), Month: month})
		require.NoError(t, err)
		require.True(t, res.Created, month)
	}
	assert.Equal(t, "2025-04", currentMonth(t, f))

	items, err := f.svc.List(ctx, archivedomain.ListRequest{MessID: testMessID.String()})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "2025-03", items[0].Month.String())
	assert.Equal(t, "2025-01", items[2].Month.String())
	assert.Zero(t, items[0].TotalMeals, "march had no meals")

	limited, err := f.svc.List(ctx, archivedomain.ListRequest{MessID: testMessID.String(), Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = f.svc.Get(ctx, testMessID.String(), "2025-04")
	assert.ErrorIs(t, err, archivedomain.ErrNotFound)
}
