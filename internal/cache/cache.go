package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kjstillabower/weatherlog/internal/models"
)

// Cache stores weather reports keyed by normalized city.
// Get returns (report, true, nil) on hit and (zero, false, nil) on miss or expiry.
type Cache interface {
	Get(ctx context.Context, key string) (models.Report, bool, error)
	Set(ctx context.Context, key string, value models.Report, ttl time.Duration) error
}

// Key normalizes a city into a cache key.
func Key(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// InMemoryCache implements Cache with a mutex-guarded map. Expired entries are removed on access.
type InMemoryCache struct {
	mu    sync.Mutex
	clock clockwork.Clock
	data  map[string]cacheEntry
}

type cacheEntry struct {
	value     models.Report
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache using the wall clock.
func NewInMemoryCache() *InMemoryCache {
	return NewInMemoryCacheWithClock(clockwork.NewRealClock())
}

// NewInMemoryCacheWithClock creates an in-memory cache driven by clock.
func NewInMemoryCacheWithClock(clock clockwork.Clock) *InMemoryCache {
	return &InMemoryCache{
		clock: clock,
		data:  make(map[string]cacheEntry),
	}
}

func (c *InMemoryCache) Get(ctx context.Context, key string) (models.Report, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data[key]
	if !ok {
		return models.Report{}, false, nil
	}
	if !c.clock.Now().Before(entry.expiresAt) {
		delete(c.data, key)
		return models.Report{}, false, nil
	}
	return entry.value, true, nil
}

func (c *InMemoryCache) Set(ctx context.Context, key string, value models.Report, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = cacheEntry{
		value:     value,
		expiresAt: c.clock.Now().Add(ttl),
	}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *InMemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Nop is a Cache that never stores anything. Used when cache.backend is none.
type Nop struct{}

func (Nop) Get(context.Context, string) (models.Report, bool, error) {
	return models.Report{}, false, nil
}

func (Nop) Set(context.Context, string, models.Report, time.Duration) error { return nil }
