package cache

import (
	"sync"
	"time"

	"github.com/prylval/affiliates/internal/domain"
)

// DefaultTTL is how long a fetched affiliate map is considered fresh.
const DefaultTTL = 24 * time.Hour

// MapCache is a thread-safe in-memory holder for the last fetched affiliate
// map. An expired map is kept so callers can fall back to it when a refresh
// fails.
type MapCache struct {
	data      domain.AffiliateMap
	fetchedAt time.Time
	ttl       time.Duration
	clock     domain.Clock
	mutex     sync.RWMutex
}

// NewMapCache creates an empty cache. Zero ttl means DefaultTTL, nil clock the
// wall clock.
func NewMapCache(ttl time.Duration, clock domain.Clock) *MapCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = domain.SystemClock
	}
	return &MapCache{ttl: ttl, clock: clock}
}

// IsValid reports whether a map is cached and younger than the TTL
func (c *MapCache) IsValid() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.data == nil {
		return false
	}
	return c.clock.Now().Sub(c.fetchedAt) < c.ttl
}

// Set stores m and restarts the TTL
func (c *MapCache) Set(m domain.AffiliateMap) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if m == nil {
		m = domain.AffiliateMap{}
	}
	c.data = m
	c.fetchedAt = c.clock.Now()
}

// Get returns the cached map regardless of age. The bool is false when
// nothing has been cached yet.
func (c *MapCache) Get() (domain.AffiliateMap, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.data, c.data != nil
}

// FetchedAt returns when the map was last set (zero if never)
func (c *MapCache) FetchedAt() time.Time {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.fetchedAt
}

// Clear drops the cached map
func (c *MapCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = nil
	c.fetchedAt = time.Time{}
}
