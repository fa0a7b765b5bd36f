package presence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/onnwee/playtime/storage"
)

type recordingHandler struct {
	mu      sync.Mutex
	updates map[string][]Update
	active  map[string]bool
	overlap bool
	fail    bool
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{updates: map[string][]Update{}, active: map[string]bool{}}
}

func (h *recordingHandler) Handle(ctx context.Context, u Update) error {
	h.mu.Lock()
	if h.active[u.User.ID] {
		h.overlap = true
	}
	h.active[u.User.ID] = true
	h.mu.Unlock()

	time.Sleep(time.Millisecond)

	h.mu.Lock()
	h.active[u.User.ID] = false
	h.updates[u.User.ID] = append(h.updates[u.User.ID], u)
	fail := h.fail
	h.mu.Unlock()
	if fail {
		return errors.New("handler failed")
	}
	return nil
}

func TestDispatcherPreservesPerUserOrder(t *testing.T) {
	h := newRecordingHandler()
	d := NewDispatcher(h, NewSnapshotCache(), 4, 8)
	d.Start(context.Background())

	ctx := context.Background()
	games := []string{"Chess", "", "Go", "Go", "Chess", ""}
	users := []string{"u1", "u2", "u3", "u4", "u5"}
	for _, g := range games {
		for _, id := range users {
			if err := d.Submit(ctx, Event{User: storage.User{ID: id, Name: id}, Current: g}); err != nil {
				t.Fatalf("submit: %v", err)
			}
		}
	}
	d.Stop()

	if h.overlap {
		t.Fatal("events for one user were handled concurrently")
	}
	wantPrev := []string{"", "Chess", "", "Go", "Go", "Chess"}
	for _, id := range users {
		got := h.updates[id]
		if len(got) != len(games) {
			t.Fatalf("%s: got %d updates, want %d", id, len(got), len(games))
		}
		for i, u := range got {
			if u.Current != games[i] || u.Previous != wantPrev[i] {
				t.Errorf("%s update %d = %q->%q, want %q->%q", id, i, u.Previous, u.Current, wantPrev[i], games[i])
			}
		}
	}
}

func TestDispatcherContinuesAfterHandlerError(t *testing.T) {
	h := newRecordingHandler()
	h.fail = true
	d := NewDispatcher(h, NewSnapshotCache(), 1, 4)
	d.Start(context.Background())

	for i := 0; i < 3; i++ {
		if err := d.Submit(context.Background(), Event{User: storage.User{ID: "u1"}, Current: fmt.Sprintf("G%d", i)}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	d.Stop()
	if got := len(h.updates["u1"]); got != 3 {
		t.Fatalf("handled %d events, want 3", got)
	}
}

func TestDispatcherSubmitAfterStop(t *testing.T) {
	d := NewDispatcher(newRecordingHandler(), NewSnapshotCache(), 2, 1)
	d.Start(context.Background())
	d.Stop()
	d.Stop()

	err := d.Submit(context.Background(), Event{User: storage.User{ID: "u1"}})
	if !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("err = %v, want ErrDispatcherClosed", err)
	}
}

func TestDispatcherSubmitHonorsContext(t *testing.T) {
	// Not started, so the unbuffered shard never drains.
	d := NewDispatcher(newRecordingHandler(), NewSnapshotCache(), 1, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := d.Submit(ctx, Event{User: storage.User{ID: "u1"}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestDispatcherSameUserSameShard(t *testing.T) {
	d := NewDispatcher(newRecordingHandler(), NewSnapshotCache(), 8, 1)
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("user-%d", i)
		if d.shardFor(id) != d.shardFor(id) {
			t.Fatalf("shard for %s is not stable", id)
		}
		if s := d.shardFor(id); s < 0 || s >= 8 {
			t.Fatalf("shard %d out of range", s)
		}
	}
}
