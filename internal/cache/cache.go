// Package cache is the single source of truth for enrichment cost
// avoidance: a TTL cache with an in-memory LRU front and write-through to a
// persistent store so entries survive restarts.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"newsflow/internal/config"
	"newsflow/internal/domain"
	"newsflow/internal/ports"
)

// purgeEvery triggers an opportunistic expiry scan after this many writes.
const purgeEvery = 64

// Cache maps content fingerprints to previously computed enrichment
// results. Entries are immutable once written; concurrent Put for the same
// key is last-writer-wins since payloads for one fingerprint are
// computation-equivalent.
type Cache struct {
	mu     sync.Mutex
	memory *lru.Cache[string, domain.CacheEntry]
	store  ports.CacheStore
	ttl    time.Duration
	logger *slog.Logger
	writes int

	nowFn func() time.Time
}

// New builds the cache; store may be nil for a memory-only cache.
func New(cfg config.CacheConfig, store ports.CacheStore, logger *slog.Logger) (*Cache, error) {
	memory, err := lru.New[string, domain.CacheEntry](cfg.MemorySize)
	if err != nil {
		return nil, err
	}

	return &Cache{
		memory: memory,
		store:  store,
		ttl:    cfg.TTL(),
		logger: logger,
		nowFn:  time.Now,
	}, nil
}

// Get returns the live entry for the key. Expired entries are treated as
// misses and dropped from the memory front.
func (c *Cache) Get(ctx context.Context, key string) (domain.CacheEntry, bool) {
	now := c.nowFn()

	c.mu.Lock()
	if entry, ok := c.memory.Get(key); ok {
		if !entry.Expired(now) {
			c.mu.Unlock()
			return entry, true
		}
		c.memory.Remove(key)
	}
	c.mu.Unlock()

	if c.store == nil {
		return domain.CacheEntry{}, false
	}

	entry, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.warn("cache store get failed", "key", key, "error", err)
		return domain.CacheEntry{}, false
	}
	if !found || entry.Expired(now) {
		return domain.CacheEntry{}, false
	}

	c.mu.Lock()
	c.memory.Add(key, entry)
	c.mu.Unlock()

	return entry, true
}

// Put records the enrichment result under the key with the configured TTL
// and returns the stored entry. Store failures are logged, not escalated;
// the memory front still serves the entry for this process lifetime.
func (c *Cache) Put(ctx context.Context, key string, result domain.ScoreResult) domain.CacheEntry {
	now := c.nowFn()
	entry := domain.CacheEntry{
		Key:       key,
		Tier:      result.Tier,
		Urgent:    result.Urgent,
		Fresh:     result.Fresh,
		Summary:   result.Summary,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}

	c.mu.Lock()
	c.memory.Add(key, entry)
	c.writes++
	purge := c.writes%purgeEvery == 0
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Put(ctx, entry); err != nil {
			c.warn("cache store put failed", "key", key, "error", err)
		}
	}

	if purge {
		c.Purge(ctx, now)
	}

	return entry
}

// Purge removes expired entries from both layers and reports how many the
// persistent store dropped.
func (c *Cache) Purge(ctx context.Context, now time.Time) int {
	c.mu.Lock()
	for _, key := range c.memory.Keys() {
		if entry, ok := c.memory.Peek(key); ok && entry.Expired(now) {
			c.memory.Remove(key)
		}
	}
	c.mu.Unlock()

	if c.store == nil {
		return 0
	}

	removed, err := c.store.Purge(ctx, now)
	if err != nil {
		c.warn("cache store purge failed", "error", err)
		return 0
	}

	return removed
}

func (c *Cache) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
