package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// migrationsFS holds the versioned Postgres migrations:
//
//	000001_description.up.sql   - applies the migration
//	000001_description.down.sql - reverts the migration
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

func newMigrator(database *sql.DB) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := postgres.WithInstance(database, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// RunMigrations applies all pending versioned migrations to a Postgres database.
// It is idempotent and safe to run on every start.
func RunMigrations(database *sql.DB) error {
	m, err := newMigrator(database)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("database schema is up to date", slog.String("component", "db_migrate"))
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		slog.Warn("could not determine migration version", slog.Any("error", err), slog.String("component", "db_migrate"))
		return nil
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d - manual intervention required", version)
	}

	slog.Info("migrations applied successfully",
		slog.Uint64("version", uint64(version)),
		slog.String("component", "db_migrate"))
	return nil
}

// MigrateDown rolls back the most recent migration.
// WARNING: this may drop recorded play sessions.
func MigrateDown(database *sql.DB) error {
	m, err := newMigrator(database)
	if err != nil {
		return err
	}

	if err := m.Steps(-1); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("no migrations to roll back", slog.String("component", "db_migrate"))
			return nil
		}
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		// Version errors once every migration has been rolled back.
		slog.Info("rolled back to no migrations", slog.String("component", "db_migrate"))
		return nil
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d after rollback - manual intervention required", version)
	}

	slog.Info("migration rolled back successfully",
		slog.Uint64("version", uint64(version)),
		slog.String("component", "db_migrate"))
	return nil
}

// GetMigrationVersion returns the current migration version and dirty state.
func GetMigrationVersion(database *sql.DB) (version uint, dirty bool, err error) {
	m, err := newMigrator(database)
	if err != nil {
		return 0, false, err
	}

	v, d, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return v, d, nil
}

// Prepare brings the schema up to date for the dialect. Postgres uses versioned
// migrations and falls back to the embedded statements for databases that predate
// the migration table; sqlite always uses the embedded statements.
func Prepare(ctx context.Context, database *sql.DB, dialect Dialect) error {
	if dialect != Postgres {
		return Migrate(ctx, database, dialect)
	}
	if err := RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, attempting fallback to embedded SQL",
			slog.Any("err", err),
			slog.String("component", "db_migrate"))
		if err := Migrate(ctx, database, dialect); err != nil {
			return fmt.Errorf("migrate (both versioned and embedded SQL failed): %w", err)
		}
	}
	return nil
}
