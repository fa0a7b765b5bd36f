// Package summary aggregates closed game sessions into per-game play time.
package summary

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/onnwee/playtime/storage"
)

// DefaultWindow is how far back a summary looks.
const DefaultWindow = 24 * time.Hour

// GameTotal is the summed play time for one game.
type GameTotal struct {
	Game     string
	Duration time.Duration
}

// Report is a sorted per-game breakdown with a grand total.
type Report struct {
	Games []GameTotal
	Total time.Duration
}

// Empty reports whether no closed session contributed.
func (r Report) Empty() bool { return len(r.Games) == 0 }

// Lines renders one "game - duration" line per game.
func (r Report) Lines() string {
	lines := make([]string, 0, len(r.Games))
	for _, g := range r.Games {
		lines = append(lines, g.Game+" - "+FormatDuration(g.Duration))
	}
	return strings.Join(lines, "\n")
}

// Aggregate sums closed sessions by game, longest first. Ties sort by name.
// Open sessions are skipped.
func Aggregate(sessions []storage.GameSession) Report {
	byGame := make(map[string]time.Duration)
	for _, s := range sessions {
		if s.Open() {
			continue
		}
		d := s.Duration()
		if d < 0 {
			d = 0
		}
		byGame[s.Game] += d
	}

	r := Report{Games: make([]GameTotal, 0, len(byGame))}
	for game, d := range byGame {
		r.Games = append(r.Games, GameTotal{Game: game, Duration: d})
		r.Total += d
	}
	sort.Slice(r.Games, func(i, j int) bool {
		if r.Games[i].Duration != r.Games[j].Duration {
			return r.Games[i].Duration > r.Games[j].Duration
		}
		return r.Games[i].Game < r.Games[j].Game
	})
	return r
}

// FormatDuration renders whole minutes as "1h 30m", or "40m" under an hour.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int64(d / time.Minute)
	hours := minutes / 60
	minutes %= 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// SessionLister is the store read the service needs.
type SessionLister interface {
	ListClosedSessions(ctx context.Context, userID string, since time.Time) ([]storage.GameSession, error)
}

// Service builds reports for a user over a trailing window.
type Service struct {
	Store  SessionLister
	Window time.Duration
	Now    func() time.Time
}

// NewService returns a service with the given window, DefaultWindow when zero.
func NewService(store SessionLister, window time.Duration) *Service {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Service{Store: store, Window: window, Now: time.Now}
}

// ForUser aggregates the user's sessions started within the window.
func (s *Service) ForUser(ctx context.Context, userID string) (Report, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	window := s.Window
	if window <= 0 {
		window = DefaultWindow
	}
	sessions, err := s.Store.ListClosedSessions(ctx, userID, now().Add(-window))
	if err != nil {
		return Report{}, fmt.Errorf("summary for %s: %w", userID, err)
	}
	return Aggregate(sessions), nil
}

// WindowLabel describes the window for user-facing text, e.g. "24 hours" or
// "90 minutes".
func (s *Service) WindowLabel() string {
	window := s.Window
	if window <= 0 {
		window = DefaultWindow
	}
	if window%time.Hour == 0 {
		return plural(int(window/time.Hour), "hour")
	}
	// Sub-minute remainders are dropped; config only allows whole minutes.
	return plural(int(window/time.Minute), "minute")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
