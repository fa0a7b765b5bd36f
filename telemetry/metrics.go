// Package telemetry provides the Prometheus metrics sink, tracing setup and
// correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Command outcome label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// HTTPDurationBuckets are the request latency buckets in seconds.
var HTTPDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

// Metrics owns every collector the bot reports. It is constructed once and passed
// to the components that record into it.
type Metrics struct {
	gamesStarted     *prometheus.CounterVec
	gamesEnded       *prometheus.CounterVec
	unmatchedCloses  *prometheus.CounterVec
	activePlayers    *prometheus.GaugeVec
	presenceUpdates  prometheus.Counter
	commandsExecuted *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	openSessions     prometheus.Gauge

	// mu serializes read-then-decrement on activePlayers.
	mu sync.Mutex
}

// NewRegistry returns a registry preloaded with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewMetrics registers the bot collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gamesStarted:     f.NewCounterVec(prometheus.CounterOpts{Name: "discord_games_started_total", Help: "Total number of games started"}, []string{"game"}),
		gamesEnded:       f.NewCounterVec(prometheus.CounterOpts{Name: "discord_games_ended_total", Help: "Total number of games ended"}, []string{"game"}),
		unmatchedCloses:  f.NewCounterVec(prometheus.CounterOpts{Name: "discord_game_unmatched_closes_total", Help: "Game ends observed with no open session to close"}, []string{"game"}),
		activePlayers:    f.NewGaugeVec(prometheus.GaugeOpts{Name: "discord_game_active_players", Help: "Number of active players per game"}, []string{"game"}),
		presenceUpdates:  f.NewCounter(prometheus.CounterOpts{Name: "discord_presence_updates_total", Help: "Total number of presence updates"}),
		commandsExecuted: f.NewCounterVec(prometheus.CounterOpts{Name: "discord_commands_executed_total", Help: "Total number of commands executed"}, []string{"command", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: HTTPDurationBuckets,
		}, []string{"method", "path", "status"}),
		openSessions: f.NewGauge(prometheus.GaugeOpts{Name: "discord_open_game_sessions", Help: "Game sessions without an end time, sampled periodically"}),
	}
}

func (m *Metrics) CountStarted(game string) { m.gamesStarted.WithLabelValues(game).Inc() }
func (m *Metrics) CountEnded(game string) { m.gamesEnded.WithLabelValues(game).Inc() }
func (m *Metrics) CountPresenceUpdate() { m.presenceUpdates.Inc() }

// CountUnmatchedClose records a game end that found no open session.
func (m *Metrics) CountUnmatchedClose(game string) { m.unmatchedCloses.WithLabelValues(game).Inc() }

// IncActive adds one active player for game.
func (m *Metrics) IncActive(game string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activePlayers.WithLabelValues(game).Inc()
}

// DecActive removes one active player for game, never going below zero.
func (m *Metrics) DecActive(game string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.activePlayers.WithLabelValues(game)
	if gaugeValue(g) > 0 {
		g.Dec()
	}
}

// ActivePlayers reads the current active-player gauge for game.
func (m *Metrics) ActivePlayers(game string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gaugeValue(m.activePlayers.WithLabelValues(game))
}

// CommandExecuted records a slash command outcome.
func (m *Metrics) CommandExecuted(command, status string) {
	m.commandsExecuted.WithLabelValues(command, status).Inc()
}

// ObserveHTTP records one request duration.
func (m *Metrics) ObserveHTTP(method, path string, status int, d time.Duration) {
	m.httpDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(d.Seconds())
}

// SetOpenSessions records the sampled open-session count.
func (m *Metrics) SetOpenSessions(n int) { m.openSessions.Set(float64(n)) }

func gaugeValue(g prometheus.Gauge) float64 {
	var pb dto.Metric
	if err := g.Write(&pb); err != nil {
		return 0
	}
	return pb.GetGauge().GetValue()
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context carrying the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
