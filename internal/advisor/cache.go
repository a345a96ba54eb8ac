package advisor

import (
	"sync"
	"time"

	"github.com/umutugur/mintly-advisor/internal/model"
)

// DefaultCacheTTL is how long a generated insight stays servable.
var DefaultCacheTTL = 6 * time.Hour

type cacheEntry struct {
	expiresAt time.Time
	insight   *model.AdvisorInsight
}

// InsightCache is an in-memory TTL cache for assembled insights. Expired
// entries are purged lazily on read; there is no background sweeper.
type InsightCache struct {
	entries map[string]cacheEntry
	now     func() time.Time
	mu      sync.Mutex
}

// NewInsightCache creates an empty insight cache.
func NewInsightCache() *InsightCache {
	return &InsightCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached insight for key if present and not expired.
// Expired entries are deleted on access.
func (c *InsightCache) Get(key string) (*model.AdvisorInsight, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.insight, true
}

// Set stores an insight under key for ttl. A non-positive ttl stores
// nothing.
func (c *InsightCache) Set(key string, insight *model.AdvisorInsight, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{
		insight:   insight,
		expiresAt: c.now().Add(ttl),
	}
}

// Clear drops every cached insight.
func (c *InsightCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Len reports how many entries are stored, including not-yet-purged
// expired ones.
func (c *InsightCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
