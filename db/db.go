// Package db provides database connection helpers, SQL dialect handling, and schema migration.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'
	_ "modernc.org/sqlite"             // pure-go sqlite driver registered as 'sqlite'
)

// Dialect identifies the SQL flavour behind a *sql.DB. Its value doubles as the
// database/sql driver name.
type Dialect string

const (
	Postgres Dialect = "pgx"
	SQLite   Dialect = "sqlite"
)

// ParseDialect maps a DB_DRIVER value onto a supported dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "pgx", "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q (want pgx or sqlite)", driver)
	}
}

// Rebind rewrites '?' placeholders into the dialect's native form.
// Queries in this repository are written once with '?' and rebound for Postgres.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Connect opens a database handle for the dialect and verifies it with a ping.
// SQLite handles are pinned to a single connection so in-memory databases and
// PRAGMA settings survive across queries.
func Connect(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty DSN for driver %s", dialect)
	}
	if dialect == SQLite {
		dsn = sqliteDSN(dsn)
	}
	database, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == SQLite {
		database.SetMaxOpenConns(1)
	}
	if err := database.PingContext(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	if dialect == SQLite {
		if _, err := database.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	}
	return database, nil
}

// sqliteDSN makes the driver write timestamps in a sortable layout it can parse back.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_time_format=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_time_format=sqlite"
}

// Migrate applies idempotent schema statements for the dialect. Postgres deployments
// normally go through RunMigrations; this is the fallback and the sqlite path.
func Migrate(ctx context.Context, database *sql.DB, dialect Dialect) error {
	stmts := postgresSchema
	if dialect == SQLite {
		stmts = sqliteSchema
	}
	for i, s := range stmts {
		if _, err := database.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("%s migrate step %d failed: %w", dialect, i, err)
		}
	}
	return nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		display_name TEXT,
		avatar TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS games (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		start_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		end_time TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT games_end_after_start CHECK (end_time IS NULL OR end_time >= start_time)
	)`,
	`CREATE TABLE IF NOT EXISTS league_accounts (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE REFERENCES users(id),
		game_name TEXT NOT NULL,
		tag_line TEXT NOT NULL,
		puuid TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_games_open_session ON games(user_id, name) WHERE end_time IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_games_user_start ON games(user_id, start_time)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		display_name TEXT,
		avatar TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS games (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		start_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		end_time TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CHECK (end_time IS NULL OR end_time >= start_time)
	)`,
	`CREATE TABLE IF NOT EXISTS league_accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL UNIQUE REFERENCES users(id),
		game_name TEXT NOT NULL,
		tag_line TEXT NOT NULL,
		puuid TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_games_open_session ON games(user_id, name) WHERE end_time IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_games_user_start ON games(user_id, start_time)`,
}
