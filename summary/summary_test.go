package summary

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/onnwee/playtime/storage"
)

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func session(game string, start, end time.Duration) storage.GameSession {
	e := base.Add(end)
	return storage.GameSession{Game: game, Start: base.Add(start), End: &e}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0m"},
		{59 * time.Second, "0m"},
		{40 * time.Minute, "40m"},
		{90 * time.Minute, "1h 30m"},
		{2 * time.Hour, "2h 0m"},
		{25*time.Hour + 59*time.Minute + 59*time.Second, "25h 59m"},
		{-time.Minute, "0m"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAggregate(t *testing.T) {
	open := storage.GameSession{Game: "Open", Start: base}
	r := Aggregate([]storage.GameSession{
		session("Chess", 0, 30*time.Minute),
		session("Chess", time.Hour, time.Hour+10*time.Minute),
		session("Go", 2*time.Hour, 3*time.Hour),
		session("Alpha", 4*time.Hour, 4*time.Hour+40*time.Minute),
		open,
	})

	want := []GameTotal{
		{"Go", time.Hour},
		{"Alpha", 40 * time.Minute},
		{"Chess", 40 * time.Minute},
	}
	if len(r.Games) != len(want) {
		t.Fatalf("games = %+v, want %+v", r.Games, want)
	}
	for i := range want {
		if r.Games[i] != want[i] {
			t.Errorf("games[%d] = %+v, want %+v", i, r.Games[i], want[i])
		}
	}
	if r.Total != 140*time.Minute {
		t.Errorf("total = %v, want 2h20m", r.Total)
	}
	wantLines := "Go - 1h 0m\nAlpha - 40m\nChess - 40m"
	if got := r.Lines(); got != wantLines {
		t.Errorf("lines = %q, want %q", got, wantLines)
	}
}

func TestAggregateEmpty(t *testing.T) {
	r := Aggregate(nil)
	if !r.Empty() || r.Total != 0 || r.Lines() != "" {
		t.Fatalf("unexpected report %+v", r)
	}
}

type fakeLister struct {
	since    time.Time
	sessions []storage.GameSession
	err      error
}

func (f *fakeLister) ListClosedSessions(ctx context.Context, userID string, since time.Time) ([]storage.GameSession, error) {
	f.since = since
	return f.sessions, f.err
}

func TestServiceForUser(t *testing.T) {
	lister := &fakeLister{sessions: []storage.GameSession{session("Chess", 0, 90*time.Minute)}}
	now := base.Add(5 * time.Hour)
	svc := &Service{Store: lister, Now: func() time.Time { return now }}

	r, err := svc.ForUser(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !lister.since.Equal(now.Add(-24 * time.Hour)) {
		t.Errorf("since = %v, want now-24h", lister.since)
	}
	if r.Lines() != "Chess - 1h 30m" {
		t.Errorf("lines = %q", r.Lines())
	}
	if svc.WindowLabel() != "24 hours" {
		t.Errorf("label = %q", svc.WindowLabel())
	}
}

func TestServiceForUserError(t *testing.T) {
	boom := errors.New("db down")
	svc := NewService(&fakeLister{err: boom}, 0)
	if _, err := svc.ForUser(context.Background(), "u1"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped db error", err)
	}
}

func TestWindowLabel(t *testing.T) {
	tests := []struct {
		window time.Duration
		want   string
	}{
		{0, "24 hours"},
		{time.Hour, "1 hour"},
		{12 * time.Hour, "12 hours"},
		{90 * time.Minute, "90 minutes"},
		{time.Minute, "1 minute"},
	}
	for _, tt := range tests {
		if got := NewService(&fakeLister{}, tt.window).WindowLabel(); got != tt.want {
			t.Errorf("WindowLabel(%v) = %q, want %q", tt.window, got, tt.want)
		}
	}
}
