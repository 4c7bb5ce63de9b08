package environment

import (
	"sync"
	"time"
)

// DefaultCacheTTL is how long a resolved observation stays fresh.
const DefaultCacheTTL = 5 * time.Minute

// ObservationCache is an in-memory TTL cache for resolved observations,
// keyed by domain plus rounded coordinate. Expired entries are replaced
// lazily on the next access rather than evicted by a background sweeper:
// every expired entry is overwritten by the fetch that found it stale.
type ObservationCache struct {
	data map[string]*cacheEntry
	ttl  time.Duration
	mu   sync.RWMutex
}

// cacheEntry represents a cache entry with expiration
type cacheEntry struct {
	value      interface{}
	expiration time.Time
}

// NewObservationCache creates a cache with the given TTL.
func NewObservationCache(ttl time.Duration) *ObservationCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ObservationCache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
	}
}

// Get retrieves a value from the cache. A stale entry is treated as a miss.
func (c *ObservationCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiration) {
		return nil, false
	}
	return entry.value, true
}

// Set stores a value in the cache with the configured TTL.
func (c *ObservationCache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = &cacheEntry{
		value:      value,
		expiration: time.Now().Add(c.ttl),
	}
}

// Delete removes a value from the cache.
func (c *ObservationCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
}

// Clear removes all entries from the cache.
func (c *ObservationCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[string]*cacheEntry)
}

// Size returns the number of entries, expired ones included.
func (c *ObservationCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.data)
}
