package geocode

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// LRUCache is a concurrent-safe in-memory result cache with TTL expiration.
type LRUCache struct {
	mu         sync.Mutex
	entries    map[string]*lruEntry
	order      []string // LRU order: front=oldest, back=newest
	maxEntries int
	ttl        time.Duration
	hits       atomic.Int64
	misses     atomic.Int64
}

type lruEntry struct {
	result    Result
	createdAt time.Time
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// NewLRUCache creates an LRUCache with the given capacity and TTL. A zero
// TTL never expires entries.
func NewLRUCache(maxEntries int, ttl time.Duration) *LRUCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &LRUCache{
		entries:    make(map[string]*lruEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// Get implements Cache.
func (c *LRUCache) Get(_ context.Context, key string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	if c.ttl > 0 && time.Since(entry.createdAt) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.misses.Add(1)
		return nil, false
	}

	// Move to back (most recently used).
	c.removeFromOrder(key)
	c.order = append(c.order, key)
	c.hits.Add(1)
	r := entry.result
	return &r, true
}

// Set implements Cache, evicting the oldest entry if at capacity.
func (c *LRUCache) Set(_ context.Context, key string, r *Result) {
	if r == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.entries[key] = &lruEntry{result: *r, createdAt: time.Now()}
		c.removeFromOrder(key)
		c.order = append(c.order, key)
		return
	}

	for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = &lruEntry{result: *r, createdAt: time.Now()}
	c.order = append(c.order, key)
}

// Purge drops every entry. Statistics are kept.
func (c *LRUCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*lruEntry)
	c.order = nil
}

// Stats returns cache performance statistics.
func (c *LRUCache) Stats() CacheStats {
	c.mu.Lock()
	entries := len(c.entries)
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Entries:    entries,
		MaxEntries: c.maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate,
	}
}

func (c *LRUCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
