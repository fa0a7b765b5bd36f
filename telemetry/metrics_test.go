package telemetry

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewMetrics(reg), reg
}

func TestDecActiveClampsAtZero(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.DecActive("Chess")
	if got := m.ActivePlayers("Chess"); got != 0 {
		t.Fatalf("active after dec on empty = %v, want 0", got)
	}

	m.IncActive("Chess")
	m.IncActive("Chess")
	m.DecActive("Chess")
	if got := m.ActivePlayers("Chess"); got != 1 {
		t.Fatalf("active = %v, want 1", got)
	}
	m.DecActive("Chess")
	m.DecActive("Chess")
	if got := m.ActivePlayers("Chess"); got != 0 {
		t.Fatalf("active = %v, want 0", got)
	}
}

func TestCountersByLabel(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.CountStarted("Chess")
	m.CountStarted("Chess")
	m.CountEnded("Go")
	m.CountUnmatchedClose("Go")
	m.CountPresenceUpdate()
	m.CommandExecuted("summary", StatusSuccess)
	m.CommandExecuted("summary", StatusError)
	m.CommandExecuted("summary", StatusError)

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"started chess", m.gamesStarted.WithLabelValues("Chess"), 2},
		{"ended go", m.gamesEnded.WithLabelValues("Go"), 1},
		{"unmatched go", m.unmatchedCloses.WithLabelValues("Go"), 1},
		{"presence updates", m.presenceUpdates, 1},
		{"summary success", m.commandsExecuted.WithLabelValues("summary", StatusSuccess), 1},
		{"summary error", m.commandsExecuted.WithLabelValues("summary", StatusError), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := promtest.ToFloat64(tt.c); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestObserveHTTPBuckets(t *testing.T) {
	m, reg := newTestMetrics(t)
	m.ObserveHTTP("GET", "/health", 200, 3*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var hist *dto.Histogram
	for _, mf := range families {
		if mf.GetName() == "http_request_duration_seconds" {
			hist = mf.GetMetric()[0].GetHistogram()
			labels := map[string]string{}
			for _, lp := range mf.GetMetric()[0].GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["method"] != "GET" || labels["path"] != "/health" || labels["status"] != "200" {
				t.Errorf("labels = %v", labels)
			}
		}
	}
	if hist == nil {
		t.Fatal("histogram not gathered")
	}
	if hist.GetSampleCount() != 1 {
		t.Errorf("sample count = %d, want 1", hist.GetSampleCount())
	}
	if len(hist.GetBucket()) != len(HTTPDurationBuckets) {
		t.Errorf("bucket count = %d, want %d", len(hist.GetBucket()), len(HTTPDurationBuckets))
	}
	// 3ms falls in the 0.005 bucket but not the 0.001 one.
	if hist.GetBucket()[0].GetCumulativeCount() != 0 || hist.GetBucket()[1].GetCumulativeCount() != 1 {
		t.Errorf("unexpected bucket counts: %v", hist.GetBucket())
	}
}

func TestSetOpenSessions(t *testing.T) {
	m, reg := newTestMetrics(t)
	m.SetOpenSessions(3)

	expected := `
# HELP discord_open_game_sessions Game sessions without an end time, sampled periodically
# TYPE discord_open_game_sessions gauge
discord_open_game_sessions 3
`
	if err := promtest.GatherAndCompare(reg, strings.NewReader(expected), "discord_open_game_sessions"); err != nil {
		t.Fatal(err)
	}
}

func TestNewRegistryIncludesRuntimeCollectors(t *testing.T) {
	reg := NewRegistry()
	NewMetrics(reg)
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "go_goroutines" {
			found = true
		}
	}
	if !found {
		t.Error("go_goroutines not registered")
	}
}

func TestCorrelationHelpers(t *testing.T) {
	ctx := context.Background()
	if GetCorrelation(ctx) != "" {
		t.Fatal("expected empty correlation")
	}
	ctx = WithCorrelation(ctx, "abc")
	if got := GetCorrelation(ctx); got != "abc" {
		t.Fatalf("correlation = %q, want abc", got)
	}
	if LoggerWithCorr(ctx) == nil {
		t.Fatal("nil logger")
	}
}
