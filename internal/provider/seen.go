package provider

import (
	"sync"
	"time"

	"github.com/pitchedge/pitchedge/internal/models"
)

// SeenCache is the process-wide (source, fingerprint) set used to suppress
// cross-provider duplicates. Entries expire after maxAge.
type SeenCache struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	maxAge time.Duration
	now    func() time.Time
}

// NewSeenCache creates a content-dedup cache with the given entry lifetime.
func NewSeenCache(maxAge time.Duration) *SeenCache {
	if maxAge <= 0 {
		maxAge = 6 * time.Hour
	}
	return &SeenCache{
		seen:   make(map[string]time.Time),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// IsSeen reports whether equivalent content from this source was already
// recorded and has not expired.
func (c *SeenCache) IsSeen(content, source string) bool {
	key := models.ContentFingerprint(content, source)

	c.mu.Lock()
	defer c.mu.Unlock()

	at, ok := c.seen[key]
	if !ok {
		return false
	}
	if c.now().Sub(at) > c.maxAge {
		delete(c.seen, key)
		return false
	}
	return true
}

// MarkSeen records the content fingerprint, pruning expired entries
// opportunistically.
func (c *SeenCache) MarkSeen(content, source string) {
	key := models.ContentFingerprint(content, source)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.seen[key] = now
	if len(c.seen)%256 == 0 {
		for k, at := range c.seen {
			if now.Sub(at) > c.maxAge {
				delete(c.seen, k)
			}
		}
	}
}

// Len returns the number of live entries.
func (c *SeenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
