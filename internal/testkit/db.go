// Package testkit opens isolated in-memory databases and seeds the rows most
// service tests start from.
package testkit

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/messledger/internal/migration"
	messdomain "github.com/smallbiznis/messledger/internal/mess/domain"
	"github.com/smallbiznis/messledger/internal/period"
	subscriptiondomain "github.com/smallbiznis/messledger/internal/subscription/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var nameReplacer = strings.NewReplacer("/", "_", " ", "_", "#", "_")

// OpenDB returns a migrated sqlite database private to t. The pool holds a
// single connection so concurrent callers queue instead of failing with
// SQLITE_BUSY.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", nameReplacer.Replace(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migration.AutoMigrate(db))
	return db
}

// Node returns a snowflake node for test ids.
func Node(t testing.TB) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

// SeedMess inserts an active mess whose open month is month.
func SeedMess(t testing.TB, db *gorm.DB, id snowflake.ID, month string, createdAt time.Time) *messdomain.Mess {
	t.Helper()
	mess := &messdomain.Mess{
		ID:           id,
		Name:         "Mess " + id.String(),
		Slug:         "mess-" + id.String(),
		CurrentMonth: period.MustParseMonth(month),
		Status:       messdomain.MessStatusActive,
		CreatedAt:    createdAt.UTC(),
		UpdatedAt:    createdAt.UTC(),
	}
	require.NoError(t, db.Create(mess).Error)
	return mess
}

// SeedMember inserts an active member created at createdAt.
func SeedMember(t testing.TB, db *gorm.DB, messID, id snowflake.ID, name string, createdAt time.Time) *messdomain.Member {
	t.Helper()
	member := &messdomain.Member{
		ID:        id,
		MessID:    messID,
		Name:      name,
		Active:    true,
		CreatedAt: createdAt.UTC(),
	}
	require.NoError(t, db.Create(member).Error)
	return member
}

// SeedWindow inserts an active subscription window covering start..end
// (YYYY-MM-DD, inclusive).
func SeedWindow(t testing.TB, db *gorm.DB, messID, id snowflake.ID, start, end string) *subscriptiondomain.SubscriptionWindow {
	t.Helper()
	startDate, err := period.ParseDate(start)
	require.NoError(t, err)
	endDate, err := period.ParseDate(end)
	require.NoError(t, err)

	now := time.Now().UTC()
	window := &subscriptiondomain.SubscriptionWindow{
		ID:        id,
		MessID:    messID,
		StartDate: startDate,
		EndDate:   endDate,
		Status:    subscriptiondomain.WindowStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, db.Create(window).Error)
	return window
}
