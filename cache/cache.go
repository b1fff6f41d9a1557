// Package cache is a short-lived read-through cache for API reads, keyed by
// endpoint and query. Mutations invalidate by key prefix.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long an entry lives unless configured otherwise.
const DefaultTTL = 15 * time.Second

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache holds values for a fixed TTL. Concurrent misses for one key share a
// single fetch. Errors are never cached.
type Cache struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]entry
	gen     uint64 // bumped on every invalidation
	group   singleflight.Group
}

// New returns a cache whose entries live for ttl. A non-positive ttl
// disables caching but still collapses concurrent fetches.
func New(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, entries: make(map[string]entry)}
}

// Key builds a cache key from an endpoint and its encoded query.
func Key(endpoint, rawQuery string) string {
	if rawQuery == "" {
		return endpoint
	}
	return endpoint + "?" + rawQuery
}

// Fetch returns the cached value for key or loads it with fetch.
func Fetch[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	if c == nil {
		return fetch(ctx)
	}
	if v, ok := c.lookup(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	startGen := c.generation()
	v, err, _ := c.group.Do(key, func() (any, error) {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, value, startGen)
		return value, nil
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("[cache Fetch] %s holds %T", key, v)
	}
	return typed, nil
}

// Invalidate drops every entry whose key starts with one of prefixes.
func (c *Cache) Invalidate(prefixes ...string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	for key := range c.entries {
		for _, prefix := range prefixes {
			if strings.HasPrefix(key, prefix) {
				delete(c.entries, key)
				break
			}
		}
	}
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := NowTimeFunc()
	n := 0
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

func (c *Cache) lookup(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !NowTimeFunc().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) store(key string, value any, startGen uint64) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// A load that raced an invalidation must not repopulate the entry
	if c.gen != startGen {
		return
	}
	c.entries[key] = entry{value: value, expiresAt: NowTimeFunc().Add(c.ttl)}
}

func (c *Cache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}
