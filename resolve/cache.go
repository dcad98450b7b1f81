package resolve

import (
	"sync"
	"time"

	"github.com/taxonaut/taxonaut/core"
)

// CacheStats provides cache performance metrics
type CacheStats struct {
	Size      int     `json:"size"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

// IdentityCache is the session-scoped store of resolved identities.
// Keys are normalized with NormalizeKey so cosmetic variants of the same
// name hit the same entry. At most one entry exists per normalized key;
// writes are last-writer-wins. Resolution is treated as pure (the same
// input always resolves to the same record), so lost-update races cost a
// redundant external call at worst, never an inconsistency.
//
// The cache is safe for concurrent use by sessions sharing a long-lived
// resolver instance.
type IdentityCache struct {
	mu      sync.RWMutex
	items   map[string]*cacheEntry
	stats   CacheStats
	maxSize int
	ttl     time.Duration

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

type cacheEntry struct {
	record    *core.IdentityRecord
	expiresAt time.Time // zero means no expiry
}

// NewIdentityCache creates a cache with default settings: 1000 entries,
// no expiry within the session.
func NewIdentityCache() *IdentityCache {
	return NewIdentityCacheWithOptions(core.DefaultCacheMaxSize, 0, 5*time.Minute)
}

// NewIdentityCacheWithOptions creates a cache with custom settings.
// A ttl of zero disables expiry; entries then live until the session
// ends or the cache is stopped.
func NewIdentityCacheWithOptions(maxSize int, ttl, cleanupInterval time.Duration) *IdentityCache {
	if maxSize <= 0 {
		maxSize = core.DefaultCacheMaxSize
	}
	c := &IdentityCache{
		items:           make(map[string]*cacheEntry),
		maxSize:         maxSize,
		ttl:             ttl,
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	if ttl > 0 && cleanupInterval > 0 {
		go c.cleanupRoutine()
	}

	return c
}

// Get retrieves the identity cached under the normalized form of name.
func (c *IdentityCache) Get(name string) (*core.IdentityRecord, bool) {
	key := NormalizeKey(name)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, found := c.items[key]
	if !found {
		c.stats.Misses++
		c.updateHitRate()
		return nil, false
	}

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(c.items, key)
		c.stats.Evictions++
		c.stats.Misses++
		c.updateHitRate()
		return nil, false
	}

	c.stats.Hits++
	c.updateHitRate()
	return entry.record, true
}

// Put stores a resolved identity under the normalized form of name.
func (c *IdentityCache) Put(name string, record *core.IdentityRecord) {
	key := NormalizeKey(name)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) >= c.maxSize {
		c.evictExpiredLocked()
		if len(c.items) >= c.maxSize {
			c.evictOneLocked()
		}
	}

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}
	c.items[key] = &cacheEntry{record: record, expiresAt: expiresAt}
	c.stats.Size = len(c.items)
}

// Clear removes all cached identities.
func (c *IdentityCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*cacheEntry)
	c.stats.Size = 0
}

// Stats returns cache statistics.
func (c *IdentityCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.Size = len(c.items)
	return stats
}

// Stop stops the cleanup routine, if one is running.
func (c *IdentityCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCleanup) })
}

func (c *IdentityCache) cleanupRoutine() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.evictExpiredLocked()
			c.stats.Size = len(c.items)
			c.mu.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *IdentityCache) evictExpiredLocked() {
	now := time.Now()
	for key, entry := range c.items {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(c.items, key)
			c.stats.Evictions++
		}
	}
}

// evictOneLocked drops an arbitrary entry to make room. Entries are
// idempotently re-resolvable, so which one goes does not matter.
func (c *IdentityCache) evictOneLocked() {
	for key := range c.items {
		delete(c.items, key)
		c.stats.Evictions++
		return
	}
}

func (c *IdentityCache) updateHitRate() {
	total := c.stats.Hits + c.stats.Misses
	if total > 0 {
		c.stats.HitRate = float64(c.stats.Hits) / float64(total)
	}
}
