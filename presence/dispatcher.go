package presence

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/onnwee/playtime/storage"
)

// ErrDispatcherClosed is returned by Submit after Stop.
var ErrDispatcherClosed = errors.New("presence dispatcher closed")

const eventTimeout = 30 * time.Second

// Event is a raw presence observation: the user and the game they are playing now.
type Event struct {
	User    storage.User
	Current string
}

// Handler processes one resolved update.
type Handler interface {
	Handle(ctx context.Context, u Update) error
}

// Dispatcher fans presence events out to a fixed set of shards. Every event for a
// given user lands on the same shard, so one user's events are handled in arrival
// order and never concurrently.
type Dispatcher struct {
	handler Handler
	cache   *SnapshotCache
	shards  []chan Event
	log     *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher with workers shards each buffering queueSize events.
func NewDispatcher(handler Handler, cache *SnapshotCache, workers, queueSize int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	d := &Dispatcher{
		handler: handler,
		cache:   cache,
		shards:  make([]chan Event, workers),
		log:     slog.Default().With(slog.String("component", "presence_dispatcher")),
	}
	for i := range d.shards {
		d.shards[i] = make(chan Event, queueSize)
	}
	return d
}

// Start launches one goroutine per shard. ctx is the parent of every handler call.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.shards {
		d.wg.Add(1)
		go d.run(ctx, i, ch)
	}
	d.log.Info("presence workers started", slog.Int("count", len(d.shards)))
}

func (d *Dispatcher) shardFor(userID string) int {
	return int(xxhash.Sum64String(userID) % uint64(len(d.shards)))
}

// Submit queues ev on its user's shard, blocking while the shard is full.
func (d *Dispatcher) Submit(ctx context.Context, ev Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.shards[d.shardFor(ev.User.ID)] <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run(ctx context.Context, shard int, ch <-chan Event) {
	defer d.wg.Done()
	for ev := range ch {
		previous := d.cache.Swap(ev.User.ID, ev.Current)
		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventTimeout)
		if err := d.handler.Handle(hctx, Update{User: ev.User, Previous: previous, Current: ev.Current}); err != nil {
			d.log.Error("presence update failed",
				slog.Int("shard", shard),
				slog.String("user", ev.User.ID),
				slog.String("previous", previous),
				slog.String("current", ev.Current),
				slog.Any("err", err))
		}
		cancel()
	}
}

// Stop rejects new events, drains queued ones and waits for the shards to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.shards {
		close(ch)
	}
	d.mu.Unlock()

	d.wg.Wait()
	d.log.Info("presence workers stopped")
}
