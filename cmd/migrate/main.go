// Package main provides a CLI tool to manage the versioned Postgres schema.
//
// Usage:
//
//	migrate [up|down|version]
//
// Environment Variables:
//
//	DB_DSN: Postgres connection string (required)
//
// SQLite databases are migrated by the bot itself at startup and are not
// versioned.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/onnwee/playtime/db"
)

var errUsage = errors.New("usage: migrate [up|down|version]")

type action int

const (
	actionUp action = iota
	actionDown
	actionVersion
)

func parseAction(args []string) (action, error) {
	if len(args) == 0 {
		return actionUp, nil
	}
	if len(args) > 1 {
		return 0, errUsage
	}
	switch args[0] {
	case "up":
		return actionUp, nil
	case "down":
		return actionDown, nil
	case "version":
		return actionVersion, nil
	default:
		return 0, fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
}

func main() {
	flag.Parse()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	act, err := parseAction(flag.Args())
	if err != nil {
		slog.Error("invalid arguments", slog.Any("err", err))
		os.Exit(2)
	}

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		slog.Error("DB_DSN environment variable is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	database, err := db.Connect(ctx, db.Postgres, dsn)
	if err != nil {
		slog.Error("failed to connect", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	switch act {
	case actionUp:
		err = db.RunMigrations(database)
	case actionDown:
		err = db.MigrateDown(database)
	}
	if err != nil {
		slog.Error("migration failed", slog.Any("err", err))
		os.Exit(1)
	}

	version, dirty, err := db.GetMigrationVersion(database)
	if err != nil {
		slog.Error("failed to read migration version", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("schema version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
}
