package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache stores JSON values under keys grouped by tags. Invalidating a tag drops
// every key stored with it and bumps the tag's generation.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration, tags ...string) error
	// Generation counts the invalidations of tag so far.
	Generation(ctx context.Context, tag string) (int64, error)
	// SetIfGeneration stores value under key and tag only while tag is still at
	// generation, and reports whether it did. A fill that read the generation
	// before fetching cannot write back data an invalidation already dropped.
	SetIfGeneration(ctx context.Context, key string, value interface{}, ttl time.Duration, tag string, generation int64) (bool, error)
	InvalidateTag(ctx context.Context, tag string) (int, error)
}
