package services

import (
	"sync"
	"time"

	"github.com/vibin/deepsearch-chat/internal/core/domain"
)

// DefaultCacheTTL is how long an aggregated response is served from the cache
const DefaultCacheTTL = time.Hour

// Clock returns the current time. Injected so expiry can be tested.
type Clock func() time.Time

// cacheKey identifies an aggregation. Query, depth and limit together
// determine the response, so two callers agreeing on all three share an entry.
type cacheKey struct {
	query string
	depth domain.SearchDepth
	limit int
}

type cacheEntry struct {
	response  *domain.SearchResponse
	createdAt time.Time
}

// ResponseCache memoizes search responses for a fixed TTL.
//
// Entries are never evicted proactively; an expired entry is ignored on
// lookup and replaced by the next Set for the same key. Concurrent
// aggregations for one key may both store, the last write wins.
type ResponseCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry
	ttl     time.Duration
	now     Clock
}

// NewResponseCache creates a cache with the given TTL and clock
func NewResponseCache(ttl time.Duration, now Clock) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &ResponseCache{
		entries: make(map[cacheKey]cacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

// Get returns the live response stored under key
func (c *ResponseCache) Get(key cacheKey) (*domain.SearchResponse, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(entry.createdAt) >= c.ttl {
		return nil, false
	}
	return entry.response, true
}

// Set stores resp under key, replacing any previous entry
func (c *ResponseCache) Set(key cacheKey, resp *domain.SearchResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{response: resp, createdAt: c.now()}
}

// Clear drops every entry
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]cacheEntry)
}

// Len returns the number of stored entries, expired ones included
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
