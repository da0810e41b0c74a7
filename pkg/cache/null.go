package cache

import (
	"context"
	"time"
)

// nullCache discards writes and misses every read. It stands in for a real
// backend when caching is disabled (--no-cache, backend "none") so callers
// never have to branch on a nil Cache.
type nullCache struct{}

// NewNullCache returns a cache that stores nothing.
func NewNullCache() Cache {
	return nullCache{}
}

func (nullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (nullCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

func (nullCache) Delete(ctx context.Context, key string) error {
	return nil
}

func (nullCache) Close() error {
	return nil
}
