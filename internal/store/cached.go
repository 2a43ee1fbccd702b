package store

import (
	"context"
	"time"

	"github.com/keydeck/keydeck/internal/cachemanager"
	"github.com/keydeck/keydeck/internal/profile"
)

const profileCacheTTL = 5 * time.Minute

// Cached wraps a Store with a read-through cache for single-profile reads.
// Writes invalidate the touched id so readers never see a stale document.
type Cached struct {
	*Store
	reads  *cachemanager.ReadThroughCache[string, profile.Profile]
	cache  cachemanager.CacheManager[string, profile.Profile]
	bypass bool
}

// NewCached wires the read-through cache in front of s.
func NewCached(s *Store) *Cached {
	return NewCachedWith(s, true)
}

// NewCachedWith wires the cache in front of s. With enabled false every
// read goes straight to the database; the wrapper keeps the same surface
// so callers never branch.
func NewCachedWith(s *Store, enabled bool) *Cached {
	cache := cachemanager.NewInMemoryCacheManager[string, profile.Profile](
		"profiles", cachemanager.DefaultExpiration, cachemanager.DefaultCleanupInterval)
	return &Cached{
		Store:  s,
		cache:  cache,
		reads:  cachemanager.NewReadThroughCache(cache, s.GetProfile, false),
		bypass: !enabled,
	}
}

// GetProfile returns the cached profile for id, loading it on a miss.
func (c *Cached) GetProfile(ctx context.Context, id string) (profile.Profile, error) {
	if c.bypass {
		return c.Store.GetProfile(ctx, id)
	}
	return c.reads.Get(ctx, id, profileCacheTTL)
}

// SaveProfile writes through and invalidates the cached document.
func (c *Cached) SaveProfile(ctx context.Context, p profile.Profile) error {
	if err := c.Store.SaveProfile(ctx, p); err != nil {
		return err
	}
	return c.reads.Invalidate(ctx, p.ID)
}

// DeleteProfile writes through and invalidates the cached document.
func (c *Cached) DeleteProfile(ctx context.Context, id string) error {
	if err := c.Store.DeleteProfile(ctx, id); err != nil {
		return err
	}
	return c.reads.Invalidate(ctx, id)
}

// InvalidateAll drops every cached document. Used when the database changed
// underneath us (external writers).
func (c *Cached) InvalidateAll(ctx context.Context) error {
	return c.cache.Flush(ctx)
}
