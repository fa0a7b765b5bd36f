// Command playtime is the Discord presence bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres (or SQLite) and runs idempotent migrations.
//   - Tracks game sessions from presence updates and serves the slash commands.
//   - Samples open sessions on a schedule and exposes /health, /readyz and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/onnwee/playtime/bot"
	"github.com/onnwee/playtime/commands"
	"github.com/onnwee/playtime/config"
	"github.com/onnwee/playtime/db"
	"github.com/onnwee/playtime/jobs"
	"github.com/onnwee/playtime/presence"
	"github.com/onnwee/playtime/riot"
	"github.com/onnwee/playtime/server"
	"github.com/onnwee/playtime/storage"
	"github.com/onnwee/playtime/summary"
	"github.com/onnwee/playtime/telemetry"
)

var version = "dev"

var errDiscordNotReady = errors.New("discord gateway session not ready")

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	setupLogging(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("err", err))
		os.Exit(1)
	}
	if !cfg.RiotEnabled() {
		slog.Warn("RIOT_API_KEY not set, league account registration will fail validation")
	}

	shutdownTracing, err := telemetry.InitTracing(cfg.OTLPEndpoint, "playtime", version)
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("playtime exited with error", slog.Any("err", err))
		stop()
		shutdownTracing()
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config) error {
	dialect, err := db.ParseDialect(cfg.DBDriver)
	if err != nil {
		return err
	}
	database, err := db.Connect(ctx, dialect, cfg.DBDsn)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	slog.Info("running database migrations", slog.String("component", "db_migrate"), slog.String("driver", string(dialect)))
	if err := db.Prepare(ctx, database, dialect); err != nil {
		return err
	}
	store := storage.New(database, dialect)

	registry := telemetry.NewRegistry()
	metrics := telemetry.NewMetrics(registry)

	cache := presence.NewSnapshotCache()
	tracker := presence.NewTracker(store, metrics)
	dispatcher := presence.NewDispatcher(tracker, cache, cfg.PresenceWorkers, cfg.PresenceQueueSize)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	riotClient := riot.NewClient(cfg.RiotAPIKey, riot.WithBaseURL(cfg.RiotBaseURL))
	router := commands.NewRouter(metrics,
		commands.Summary(summary.NewService(store, cfg.SummaryWindow)),
		commands.RegisterLeagueAccount(store, riotClient),
	)

	discord, err := bot.New(bot.Options{Token: cfg.DiscordToken, AppID: cfg.AppID, GuildID: cfg.GuildID}, dispatcher, cache, router)
	if err != nil {
		return err
	}

	sched, err := jobs.Start(ctx, store, metrics, cfg.OpenSessionsSampleInterval)
	if err != nil {
		return err
	}
	defer func() {
		if err := sched.Stop(); err != nil {
			slog.Warn("scheduler shutdown failed", slog.Any("err", err))
		}
	}()

	handler := server.NewMux(server.Options{
		Gatherer: registry,
		Metrics:  metrics,
		Checks: []server.ReadinessCheck{
			{Name: "database", Check: store.Ping},
			{Name: "discord", Check: func(context.Context) error {
				if !discord.Ready() {
					return errDiscordNotReady
				}
				return nil
			}},
		},
	})
	go func() {
		if err := server.Start(ctx, handler, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	if err := discord.Open(ctx); err != nil {
		return err
	}
	// Deferred calls run in reverse: the gateway closes first so no new events
	// reach the dispatcher while it drains.
	defer func() {
		if err := discord.Close(); err != nil {
			slog.Warn("discord close failed", slog.Any("err", err))
		}
	}()

	slog.Info("playtime running", slog.String("http_addr", cfg.HTTPAddr), slog.String("version", version),
		slog.Bool("tracing", telemetry.IsTracingEnabled()))
	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}

func setupLogging(level, format string) {
	lvl := slog.LevelInfo
	unknown := false
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
	default:
		unknown = true
	}
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		format = "text"
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	if unknown {
		slog.Warn("unknown LOG_LEVEL, using info", slog.String("value", level))
	}
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", format))
}
