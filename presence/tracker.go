package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/playtime/storage"
	"github.com/onnwee/playtime/telemetry"
)

// SessionStore is the subset of the store the tracker writes to.
type SessionStore interface {
	UpsertUser(ctx context.Context, u storage.User) error
	FindOpenSession(ctx context.Context, userID, game string) (*storage.GameSession, error)
	InsertSession(ctx context.Context, userID, game string, start time.Time) (*storage.GameSession, error)
	CloseSession(ctx context.Context, id int64, end time.Time) error
}

// MetricsSink receives the counter and gauge effects.
type MetricsSink interface {
	CountPresenceUpdate()
	CountStarted(game string)
	CountEnded(game string)
	CountUnmatchedClose(game string)
	IncActive(game string)
	DecActive(game string)
}

// Update is one resolved presence change.
type Update struct {
	User     storage.User
	Previous string
	Current  string
}

// Tracker applies planned effects for presence updates.
type Tracker struct {
	store   SessionStore
	metrics MetricsSink
	now     func() time.Time
	started time.Time
	log     *slog.Logger
}

// NewTracker builds a tracker over store and metrics.
func NewTracker(store SessionStore, metrics MetricsSink) *Tracker {
	return &Tracker{
		store:   store,
		metrics: metrics,
		now:     time.Now,
		started: time.Now(),
		log:     slog.Default().With(slog.String("component", "presence")),
	}
}

// WithClock overrides the time source and restarts the tracker's start time from
// it. Intended for tests.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	t.started = now()
	return t
}

// Handle records the update: the user row is always upserted, then effects run in
// order. A store failure stops the remaining effects and is returned; effects that
// already ran are kept.
func (t *Tracker) Handle(ctx context.Context, u Update) (err error) {
	transition := Classify(u.Previous, u.Current)
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerPresence, "presence.update",
		attribute.String("user.id", u.User.ID),
		attribute.String("presence.transition", transition.String()),
		attribute.String("presence.previous", u.Previous),
		attribute.String("presence.current", u.Current),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	t.metrics.CountPresenceUpdate()

	if err := t.store.UpsertUser(ctx, u.User); err != nil {
		return fmt.Errorf("presence %s: %w", u.User.ID, err)
	}

	effects := Plan(u.Previous, u.Current)
	if len(effects) == 0 {
		return nil
	}
	now := t.now().UTC()
	for _, e := range effects {
		if err := t.apply(ctx, u.User.ID, e, now); err != nil {
			return fmt.Errorf("presence %s %s %q: %w", u.User.ID, e.Kind, e.Game, err)
		}
	}
	t.log.Info("presence transition applied",
		slog.String("user", u.User.ID),
		slog.String("transition", transition.String()),
		slog.String("previous", u.Previous),
		slog.String("current", u.Current))
	return nil
}

func (t *Tracker) apply(ctx context.Context, userID string, e Effect, now time.Time) error {
	switch e.Kind {
	case EffectCloseSession:
		return t.closeSession(ctx, userID, e.Game, now)
	case EffectOpenSession:
		return t.openSession(ctx, userID, e.Game, now)
	case EffectCountEnded:
		t.metrics.CountEnded(e.Game)
	case EffectCountStarted:
		t.metrics.CountStarted(e.Game)
	case EffectDecActive:
		t.metrics.DecActive(e.Game)
	case EffectIncActive:
		t.metrics.IncActive(e.Game)
	}
	return nil
}

func (t *Tracker) closeSession(ctx context.Context, userID, game string, now time.Time) error {
	open, err := t.store.FindOpenSession(ctx, userID, game)
	if errors.Is(err, storage.ErrNotFound) {
		t.unmatched(userID, game)
		return nil
	}
	if err != nil {
		return err
	}
	if err := t.store.CloseSession(ctx, open.ID, now); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			t.unmatched(userID, game)
			return nil
		}
		return err
	}
	return nil
}

func (t *Tracker) unmatched(userID, game string) {
	t.metrics.CountUnmatchedClose(game)
	t.log.Debug("no open session to close",
		slog.String("user", userID),
		slog.String("game", game))
}

func (t *Tracker) openSession(ctx context.Context, userID, game string, now time.Time) error {
	existing, err := t.store.FindOpenSession(ctx, userID, game)
	switch {
	case err == nil && existing.Start.Before(t.started):
		// Left open across a restart; its eventual close spans the downtime.
		t.log.Warn("reusing stale open session",
			slog.String("user", userID),
			slog.String("game", game),
			slog.Int64("session_id", existing.ID),
			slog.Duration("age", now.Sub(existing.Start)))
		return nil
	case err == nil:
		t.log.Debug("reusing open session",
			slog.String("user", userID),
			slog.String("game", game),
			slog.Int64("session_id", existing.ID))
		return nil
	case !errors.Is(err, storage.ErrNotFound):
		return err
	}
	if _, err := t.store.InsertSession(ctx, userID, game, now); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil
		}
		return err
	}
	return nil
}
