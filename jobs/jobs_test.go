package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/onnwee/playtime/db"
	"github.com/onnwee/playtime/storage"
	"github.com/onnwee/playtime/testutil"
)

type gaugeRecorder struct {
	values chan int
}

func (g *gaugeRecorder) SetOpenSessions(n int) {
	select {
	case g.values <- n:
	default:
	}
}

type failingCounter struct{}

func (failingCounter) CountOpenSessions(context.Context) (int, error) {
	return 0, errors.New("db down")
}

func TestSampleOpenSessions(t *testing.T) {
	store := storage.New(testutil.SetupSQLiteDB(t), db.SQLite)
	ctx := context.Background()
	if err := store.UpsertUser(ctx, storage.User{ID: "u1", Name: "alice"}); err != nil {
		t.Fatal(err)
	}
	for _, game := range []string{"Chess", "Go"} {
		if _, err := store.InsertSession(ctx, "u1", game, time.Now()); err != nil {
			t.Fatal(err)
		}
	}

	g := &gaugeRecorder{values: make(chan int, 1)}
	if err := SampleOpenSessions(ctx, store, g); err != nil {
		t.Fatal(err)
	}
	if got := <-g.values; got != 2 {
		t.Fatalf("sampled %d, want 2", got)
	}
}

func TestSampleOpenSessionsError(t *testing.T) {
	g := &gaugeRecorder{values: make(chan int, 1)}
	if err := SampleOpenSessions(context.Background(), failingCounter{}, g); err == nil {
		t.Fatal("expected error")
	}
	if len(g.values) != 0 {
		t.Fatal("gauge must not be set on error")
	}
}

func TestSchedulerRunsImmediately(t *testing.T) {
	store := storage.New(testutil.SetupSQLiteDB(t), db.SQLite)
	g := &gaugeRecorder{values: make(chan int, 1)}

	s, err := Start(context.Background(), store, g, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := s.Stop(); err != nil {
			t.Errorf("stop: %v", err)
		}
	}()

	select {
	case got := <-g.values:
		if got != 0 {
			t.Errorf("sampled %d, want 0", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("sampler did not run on start")
	}
}
