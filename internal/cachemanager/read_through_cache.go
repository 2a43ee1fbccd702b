package cachemanager

import (
	"context"
	"time"
)

// ReadThroughCache consults the cache before falling back to the loader and
// caching its result.
type ReadThroughCache[K ~string, V any] struct {
	cache           CacheManager[K, V]
	load            func(ctx context.Context, key K) (V, error)
	shouldSkipCache bool
}

// NewReadThroughCache wires a cache in front of load. shouldSkipCache
// bypasses the cache entirely (used when callers need uncached reads).
func NewReadThroughCache[K ~string, V any](
	cache CacheManager[K, V],
	load func(ctx context.Context, key K) (V, error),
	shouldSkipCache bool,
) *ReadThroughCache[K, V] {
	return &ReadThroughCache[K, V]{
		cache:           cache,
		load:            load,
		shouldSkipCache: shouldSkipCache,
	}
}

// Get returns the cached value for key, loading and caching it on a miss.
func (r *ReadThroughCache[K, V]) Get(ctx context.Context, key K, ttl time.Duration) (V, error) {
	if r.shouldSkipCache {
		return r.load(ctx, key)
	}

	if value, ok := r.cache.Get(ctx, key); ok {
		return value, nil
	}

	value, err := r.load(ctx, key)
	if err != nil {
		return value, err
	}

	r.cache.Set(ctx, key, value, ttl)
	return value, nil
}

// Invalidate drops cached entries for the given keys.
func (r *ReadThroughCache[K, V]) Invalidate(ctx context.Context, keys ...K) error {
	return r.cache.Delete(ctx, keys...)
}
