package content

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Cache is the slice of redisclient.JSONCache the decorators need.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// CachedMusic serves repeated searches from the cache. Cache failures
// fall through to the provider.
type CachedMusic struct {
	next  MusicProvider
	cache Cache
	ttl   time.Duration
	log   zerolog.Logger
}

func NewCachedMusic(next MusicProvider, cache Cache, ttl time.Duration, log zerolog.Logger) *CachedMusic {
	return &CachedMusic{next: next, cache: cache, ttl: ttl, log: log}
}

func (c *CachedMusic) SearchTracks(ctx context.Context, query string, limit int) ([]Item, error) {
	return cached(ctx, c.cache, c.ttl, c.log, cacheKey("spotify", query, limit), func() ([]Item, error) {
		return c.next.SearchTracks(ctx, query, limit)
	})
}

type CachedVideos struct {
	next  VideoProvider
	cache Cache
	ttl   time.Duration
	log   zerolog.Logger
}

func NewCachedVideos(next VideoProvider, cache Cache, ttl time.Duration, log zerolog.Logger) *CachedVideos {
	return &CachedVideos{next: next, cache: cache, ttl: ttl, log: log}
}

func (c *CachedVideos) SearchVideos(ctx context.Context, query string, limit int) ([]Item, error) {
	return cached(ctx, c.cache, c.ttl, c.log, cacheKey("youtube", query, limit), func() ([]Item, error) {
		return c.next.SearchVideos(ctx, query, limit)
	})
}

func cacheKey(provider, query string, limit int) string {
	return fmt.Sprintf("content:%s:%d:%s", provider, limit, query)
}

func cached(ctx context.Context, cache Cache, ttl time.Duration, log zerolog.Logger, key string, fetch func() ([]Item, error)) ([]Item, error) {
	var items []Item
	hit, err := cache.Get(ctx, key, &items)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("content cache read failed")
	}
	if hit {
		return items, nil
	}

	items, err = fetch()
	if err != nil {
		return nil, err
	}
	// empty results are not cached so a recovering provider is retried
	if len(items) > 0 {
		if err := cache.Set(ctx, key, items, ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("content cache write failed")
		}
	}
	return items, nil
}
