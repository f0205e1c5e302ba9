// Package dedup suppresses re-processing of inbound events already
// seen within a bounded time window.
package dedup

import (
	"sync"
	"time"
)

// DefaultWindow is the time span during which a repeated event id is
// treated as a duplicate.
const DefaultWindow = 5 * time.Minute

// Cache is an in-memory seen-id cache. Expired entries are swept
// before every check, so memory stays proportional to event rate times
// window length without a background timer. Process-lifetime only.
type Cache struct {
	window time.Duration

	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

// NewCache creates a cache with the given window. A non-positive
// window falls back to DefaultWindow.
func NewCache(window time.Duration) *Cache {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Cache{
		window: window,
		seen:   map[string]time.Time{},
		now:    time.Now,
	}
}

// Seen reports whether id was observed within the window, recording it
// as a side effect when it was not. A duplicate observation does not
// refresh the original timestamp.
func (c *Cache) Seen(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweep(now)

	if _, ok := c.seen[id]; ok {
		return true
	}
	c.seen[id] = now
	return false
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweep(c.now())
	return len(c.seen)
}

// sweep evicts entries older than the window. Caller holds c.mu.
func (c *Cache) sweep(now time.Time) {
	for id, seenAt := range c.seen {
		if now.Sub(seenAt) > c.window {
			delete(c.seen, id)
		}
	}
}
