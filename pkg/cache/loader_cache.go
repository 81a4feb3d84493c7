// Package cache provides a generic loader cache combining an expiring LRU
// with singleflight to coalesce concurrent loads for the same key. Without
// singleflight, a burst of N concurrent misses for one key would trigger N
// loads; with it, one load runs and the rest share that result.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// LoaderCache loads values on miss via a callback. Entries expire after the
// configured TTL so stale upstream documents age out on their own.
type LoaderCache[V any] struct {
	lru   *expirable.LRU[string, V]
	group singleflight.Group
}

// NewLoaderCache creates a loader cache with the given capacity and TTL.
// A zero TTL disables expiry; entries then only leave via LRU eviction.
func NewLoaderCache[V any](maxEntries int, ttl time.Duration) *LoaderCache[V] {
	return &LoaderCache[V]{
		lru: expirable.NewLRU[string, V](maxEntries, nil, ttl),
	}
}

// Get returns the value for key, loading it on miss. hit reports whether the
// value came from the cache, so callers can count hits without the cache
// knowing about metrics.
func (c *LoaderCache[V]) Get(ctx context.Context, key string, load func(context.Context, string) (V, error)) (V, bool, error) {
	if v, ok := c.lru.Get(key); ok {
		return v, true, nil
	}

	val, err, _ := c.group.Do(key, func() (any, error) {
		loaded, loadErr := load(ctx, key)
		if loadErr != nil {
			return zero[V](), loadErr
		}

		c.lru.Add(key, loaded)

		return loaded, nil
	})
	if err != nil {
		return zero[V](), false, err
	}

	return val.(V), false, nil
}

func zero[V any]() (z V) { return z }

// Invalidate removes the entry for key.
func (c *LoaderCache[V]) Invalidate(key string) {
	c.lru.Remove(key)
}

// InvalidateAll removes all entries.
func (c *LoaderCache[V]) InvalidateAll() {
	c.lru.Purge()
}

// Len returns the number of live entries.
func (c *LoaderCache[V]) Len() int {
	return c.lru.Len()
}
