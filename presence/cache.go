package presence

import "sync"

// SnapshotCache remembers the last game observed per user.
type SnapshotCache struct {
	mu    sync.Mutex
	games map[string]string
}

func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{games: make(map[string]string)}
}

// Swap stores current for the user and returns what was stored before.
func (c *SnapshotCache) Swap(userID, current string) (previous string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	previous = c.games[userID]
	if current == "" {
		delete(c.games, userID)
	} else {
		c.games[userID] = current
	}
	return previous
}

// Seed records a game observed at startup without producing a transition.
// Existing entries are kept.
func (c *SnapshotCache) Seed(userID, game string) {
	if game == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.games[userID]; !ok {
		c.games[userID] = game
	}
}

// Get returns the cached game for the user.
func (c *SnapshotCache) Get(userID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.games[userID]
}

// Len is the number of users currently cached as playing.
func (c *SnapshotCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.games)
}
