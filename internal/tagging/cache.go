package tagging

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/tagmill/tagmill/internal/tag"
)

// resultCache memoizes facade results per (mode, kind, text) with TTL
// expiry and LRU eviction at the configured bound. Text goes into the
// key hashed, so meeting transcripts don't pin their full bodies in
// memory twice.
type resultCache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	ttl        time.Duration
	maxEntries int
}

type cacheEntry struct {
	tags         []tag.Tag
	expiresAt    time.Time
	lastAccessed time.Time
}

func newResultCache(ttl time.Duration, maxEntries int) *resultCache {
	return &resultCache{
		entries:    make(map[string]*cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// cacheKey builds the lookup key for one call.
func cacheKey(mode Mode, kind Kind, text string) string {
	sum := sha256.Sum256([]byte(text))
	return string(mode) + "|" + string(kind) + "|" + hex.EncodeToString(sum[:])
}

// get returns a copy of the cached tags, if present and fresh.
func (c *resultCache) get(key string) ([]tag.Tag, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	e.lastAccessed = time.Now()

	out := make([]tag.Tag, len(e.tags))
	copy(out, e.tags)
	return out, true
}

// set stores tags under key, evicting the least recently used entry
// when the cache is full.
func (c *resultCache) set(key string, tags []tag.Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLRU()
	}

	stored := make([]tag.Tag, len(tags))
	copy(stored, tags)

	now := time.Now()
	c.entries[key] = &cacheEntry{
		tags:         stored,
		expiresAt:    now.Add(c.ttl),
		lastAccessed: now,
	}
}

// clear drops every entry.
func (c *resultCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

// size returns the current entry count.
func (c *resultCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictLRU removes the least recently used entry. Caller holds the lock.
func (c *resultCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time
	first := true
	for key, e := range c.entries {
		if first || e.lastAccessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.lastAccessed
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
