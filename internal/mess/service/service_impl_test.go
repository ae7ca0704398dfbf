package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/messledger/internal/clock"
	messdomain "github.com/smallbiznis/messledger/internal/mess/domain"
	"github.com/smallbiznis/messledger/internal/mess/repository"
	"github.com/smallbiznis/messledger/internal/period"
	"github.com/smallbiznis/messledger/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupMessService(t *testing.T, now time.Time) (messdomain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()
	db := testkit.OpenDB(t)
	fake := clock.NewFakeClock(now)
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testkit.Node(t),
		Clock: fake,
		Repo:  repository.Provide(),
	})
	return svc, db, fake
}

func TestCreateDefaultsToCurrentMonth(t *testing.T) {
	svc, _, _ := setupMessService(t, time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	mess, err := svc.Create(ctx, messdomain.CreateRequest{Name: "  Green House Mess "})
	require.NoError(t, err)
	assert.Equal(t, "Green House Mess", mess.Name)
	assert.Equal(t, "green-house-mess", mess.Slug)
	assert.Equal(t, period.MustParseMonth("2025-03"), mess.CurrentMonth)
	assert.Equal(t, messdomain.MessStatusActive, mess.Status)

	loaded, err := svc.Get(ctx, mess.ID.String())
	require.NoError(t, err)
	assert.Equal(t, mess.ID, loaded.ID)
	assert.Equal(t, mess.CurrentMonth, loaded.CurrentMonth)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := setupMessService(t, time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := svc.Create(ctx, messdomain.CreateRequest{Name: "   "})
	assert.ErrorIs(t, err, messdomain.ErrInvalidName)

	_, err = svc.Create(ctx, messdomain.CreateRequest{Name: "Mess", CurrentMonth: "2025-13"})
	assert.ErrorIs(t, err, messdomain.ErrInvalidMonth)

	mess, err := svc.Create(ctx, messdomain.CreateRequest{Name: "Mess", CurrentMonth: "2025-01"})
	require.NoError(t, err)
	assert.Equal(t, "2025-01", mess.CurrentMonth.String())
}

func TestCreateDuplicateNameGetsUniqueSlug(t *testing.T) {
	svc, _, _ := setupMessService(t, time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	first, err := svc.Create(ctx, messdomain.CreateRequest{Name: "Blue Mess"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, messdomain.CreateRequest{Name: "Blue Mess"})
	require.NoError(t, err)

	assert.Equal(t, "blue-mess", first.Slug)
	assert.NotEqual(t, first.Slug, second.Slug)
	assert.Contains(t, second.Slug, "blue-mess-")
}

func TestGetErrors(t *testing.T) {
	svc, _, _ := setupMessService(t, time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := svc.Get(ctx, "not-a-number")
	assert.ErrorIs(t, err, messdomain.ErrInvalidMess)

	_, err = svc.Get(ctx, "12345")
	assert.ErrorIs(t, err, messdomain.ErrMessNotFound)
}

func TestSuspendedMessRejectsWrites(t *testing.T) {
	svc, _, _ := setupMessService(t, time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	mess, err := svc.Create(ctx, messdomain.CreateRequest{Name: "Mess"})
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, messdomain.SetStatusRequest{MessID: mess.ID.String(), Status: "archived"})
	assert.ErrorIs(t, err, messdomain.ErrInvalidStatus)

	suspended, err := svc.SetStatus(ctx, messdomain.SetStatusRequest{MessID: mess.ID.String(), Status: "Suspended"})
	require.NoError(t, err)
	assert.Equal(t, messdomain.MessStatusSuspended, suspended.Status)

	_, err = svc.EnsureWritable(ctx, mess.ID)
	assert.ErrorIs(t, err, messdomain.ErrMessSuspended)

	_, err = svc.AddMember(ctx, messdomain.AddMemberRequest{MessID: mess.ID.String(), Name: "Rafi"})
	assert.ErrorIs(t, err, messdomain.ErrMessSuspended)

	_, err = svc.SetStatus(ctx, messdomain.SetStatusRequest{MessID: mess.ID.String(), Status: messdomain.MessStatusActive})
	require.NoError(t, err)
	_, err = svc.EnsureWritable(ctx, mess.ID)
	assert.NoError(t, err)
}

func TestMemberLifecycle(t *testing.T) {
	svc, _, fake := setupMessService(t, time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	mess, err := svc.Create(ctx, messdomain.CreateRequest{Name: "Mess"})
	require.NoError(t, err)

	_, err = svc.AddMember(ctx, messdomain.AddMemberRequest{MessID: mess.ID.String(), Name: ""})
	assert.ErrorIs(t, err, messdomain.ErrInvalidName)

	rafi, err := svc.AddMember(ctx, messdomain.AddMemberRequest{MessID: mess.ID.String(), Name: "Rafi"})
	require.NoError(t, err)
	nila, err := svc.AddMember(ctx, messdomain.AddMemberRequest{MessID: mess.ID.String(), Name: "Nila"})
	require.NoError(t, err)

	fake.Advance(24 * time.Hour)
	deactivated, err := svc.DeactivateMember(ctx, mess.ID.String(), nila.ID.String())
	require.NoError(t, err)
	assert.False(t, deactivated.Active)
	require.NotNil(t, deactivated.DeactivatedAt)

	again, err := svc.DeactivateMember(ctx, mess.ID.String(), nila.ID.String())
	require.NoError(t, err)
	assert.Equal(t, deactivated.DeactivatedAt.Unix(), again.DeactivatedAt.Unix())

	all, err := svc.ListMembers(ctx, mess.ID.String(), false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := svc.ListMembers(ctx, mess.ID.String(), true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, rafi.ID, active[0].ID)

	_, err = svc.EnsureMember(ctx, mess.ID, nila.ID)
	assert.NoError(t, err, "deactivated members still resolve for history")

	_, err = svc.EnsureMember(ctx, mess.ID, 999)
	assert.ErrorIs(t, err, messdomain.ErrMemberNotFound)

	_, err = svc.DeactivateMember(ctx, mess.ID.String(), "x")
	assert.ErrorIs(t, err, messdomain.ErrInvalidMember)
}

func TestListMembersEmptyIsNotNil(t *testing.T) {
	svc, _, _ := setupMessService(t, time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	mess, err := svc.Create(ctx, messdomain.CreateRequest{Name: "Mess"})
	require.NoError(t, err)

	members, err := svc.ListMembers(ctx, mess.ID.String(), true)
	require.NoError(t, err)
	assert.NotNil(t, members)
	assert.Empty(t, members)
}
