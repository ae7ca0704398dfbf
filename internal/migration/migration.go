package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	archivedomain "github.com/smallbiznis/messledger/internal/archive/domain"
	ledgerdomain "github.com/smallbiznis/messledger/internal/ledger/domain"
	mealdomain "github.com/smallbiznis/messledger/internal/meal/domain"
	messdomain "github.com/smallbiznis/messledger/internal/mess/domain"
	subscriptiondomain "github.com/smallbiznis/messledger/internal/subscription/domain"
	"gorm.io/gorm"
)

// RunMigrations applies the embedded postgres migrations. It is a no-op when
// the schema is already current.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&messdomain.Mess{},
		&messdomain.Member{},
		&subscriptiondomain.SubscriptionWindow{},
		&mealdomain.MealRecord{},
		&ledgerdomain.BazarRecord{},
		&ledgerdomain.DepositRecord{},
		&ledgerdomain.AdditionalCostRecord{},
		&archivedomain.MonthlyArchive{},
	}
}

// AutoMigrate builds the schema from the gorm models. It serves sqlite and
// mysql deployments and tests; postgres uses RunMigrations.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
