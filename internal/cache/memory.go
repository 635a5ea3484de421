package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is a concurrency-safe in-process cache with TTL and a size bound.
type MemoryCache struct {
	mu sync.RWMutex

	data map[string]entry

	// maxEntries <= 0 means unbounded.
	maxEntries int
	now        func() time.Time
}

// NewMemoryCache creates a new MemoryCache.
func NewMemoryCache(maxEntries int) *MemoryCache {
	return &MemoryCache{
		data:       make(map[string]entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns a live entry. Expired entries are dropped on read.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		if cur, still := c.data[key]; still && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.data, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value for ttl. A non-positive ttl is a no-op.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[key]; !exists && c.maxEntries > 0 && len(c.data) >= c.maxEntries {
		c.purgeLocked(now)
		if len(c.data) >= c.maxEntries {
			c.evictSoonestLocked()
		}
	}

	buf := make([]byte, len(value))
	copy(buf, value)
	c.data[key] = entry{value: buf, expiresAt: now.Add(ttl)}
	return nil
}

// Purge removes expired entries and returns how many were dropped.
func (c *MemoryCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeLocked(c.now())
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func (c *MemoryCache) purgeLocked(now time.Time) int {
	removed := 0
	for k, e := range c.data {
		if !now.Before(e.expiresAt) {
			delete(c.data, k)
			removed++
		}
	}
	return removed
}

func (c *MemoryCache) evictSoonestLocked() {
	var (
		victim string
		soon   time.Time
		found  bool
	)
	for k, e := range c.data {
		if !found || e.expiresAt.Before(soon) {
			victim, soon, found = k, e.expiresAt, true
		}
	}
	if found {
		delete(c.data, victim)
	}
}

var (
	_ Cache  = (*MemoryCache)(nil)
	_ Purger = (*MemoryCache)(nil)
)
