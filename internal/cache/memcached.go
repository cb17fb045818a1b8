package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/kjstillabower/weatherlog/internal/models"
)

const (
	keyPrefix = "weatherlog:report:"

	// memcached treats expirations above 30 days as absolute unix times.
	maxRelativeExp = 30 * 24 * 60 * 60
	fallbackExp    = 3600
)

// MemcachedCache implements Cache using memcached with JSON-encoded reports.
type MemcachedCache struct {
	client *memcache.Client
}

// NewMemcachedCache creates a MemcachedCache. addrs is a comma-separated list
// (e.g. "host1:11211,host2:11211"). Zero timeout or maxIdleConns keep client defaults.
func NewMemcachedCache(addrs string, timeout time.Duration, maxIdleConns int) (*MemcachedCache, error) {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		return nil, fmt.Errorf("memcached: no server addresses in %q", addrs)
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedCache{client: client}, nil
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// itemKey maps a city key onto a memcached-safe key (no spaces or control characters).
func itemKey(k string) string {
	return keyPrefix + strings.ReplaceAll(k, " ", "_")
}

// expirySeconds clamps ttl into memcached's relative expiration range.
func expirySeconds(ttl time.Duration) int32 {
	exp := int64(ttl / time.Second)
	if exp <= 0 || exp > maxRelativeExp {
		return fallbackExp
	}
	return int32(exp)
}

func (c *MemcachedCache) Get(ctx context.Context, key string) (models.Report, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Report{}, false, err
	}
	item, err := c.client.Get(itemKey(key))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return models.Report{}, false, nil
		}
		return models.Report{}, false, fmt.Errorf("memcached get: %w", err)
	}
	var report models.Report
	if err := json.Unmarshal(item.Value, &report); err != nil {
		return models.Report{}, false, fmt.Errorf("memcached decode: %w", err)
	}
	return report, true, nil
}

func (c *MemcachedCache) Set(ctx context.Context, key string, value models.Report, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("memcached encode: %w", err)
	}
	if err := c.client.Set(&memcache.Item{
		Key:        itemKey(key),
		Value:      raw,
		Expiration: expirySeconds(ttl),
	}); err != nil {
		return fmt.Errorf("memcached set: %w", err)
	}
	return nil
}

// Ping checks if memcached is reachable. Used by /health.
func (c *MemcachedCache) Ping() error {
	return c.client.Ping()
}

// Close closes idle connections. Call during shutdown.
func (c *MemcachedCache) Close() error {
	return c.client.Close()
}
