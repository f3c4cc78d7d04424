package batchloader

import (
	"context"
)

// LoadingCache is a read-through cache for single keys.
// It serves values from Storage and falls back to Loader on a miss.
type LoadingCache[K KeyConstraint, V ValueConstraint] struct {
	Loader  SourceLoader[K, V]
	Storage CacheStorage[K, V]
}

// GetOrLoad retrieves the value associated with the given key from the cache.
// If the value is not found in the cache, it loads the value from the external source.
// A negative entry yields a nil entry without calling the source.
func (c *LoadingCache[K, V]) GetOrLoad(ctx context.Context, key K) (*Entry[K, V], error) {
	if cacheEntry, err := c.Storage.Get(ctx, key); err != nil {
		return nil, err
	} else if cacheEntry != nil {
		if cacheEntry.NegativeCache {
			return nil, nil
		}
		return &cacheEntry.Entry, nil
	}

	return c.Loader.LoadAndStore(ctx, key)
}

// Invalidate drops the cached value so the next GetOrLoad asks the source again.
func (c *LoadingCache[K, V]) Invalidate(ctx context.Context, key K) error {
	return c.Storage.Delete(ctx, key)
}
