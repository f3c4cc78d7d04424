// Package lrustorage provides a size-bounded in-memory batchloader.CacheStorage
// that evicts the least recently used entries.
package lrustorage

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/karupanerura/batchloader"
	"github.com/karupanerura/batchloader/expiration"
)

// Storage keeps at most a fixed number of entries. Expired entries count toward the size
// until they are read, overwritten or evicted.
type Storage[K batchloader.KeyConstraint, V batchloader.ValueConstraint] struct {
	cache   *lru.Cache[K, *batchloader.CacheEntry[K, V]]
	clock   batchloader.Clock
	cloner  batchloader.ValueCloner[V]
	policy  expiration.Policy
	onEvict func(K)
}

var _ batchloader.CacheStorage[string, struct{}] = (*Storage[string, struct{}])(nil)

// New creates a storage holding up to size entries. It fails if size is not positive.
func New[K batchloader.KeyConstraint, V batchloader.ValueConstraint](size int, opts ...Option[K, V]) (*Storage[K, V], error) {
	s := &Storage[K, V]{
		clock:  batchloader.SystemClock,
		policy: expiration.Deadline{},
	}
	for _, o := range opts {
		o.apply(s)
	}
	if s.cloner == nil {
		s.cloner = batchloader.DefaultValueCloner[V]()
	}

	cache, err := lru.NewWithEvict(size, func(key K, _ *batchloader.CacheEntry[K, V]) {
		if s.onEvict != nil {
			s.onEvict(key)
		}
	})
	if err != nil {
		return nil, err
	}
	s.cache = cache
	return s, nil
}

// Len returns the number of stored entries, expired ones included.
func (s *Storage[K, V]) Len() int {
	return s.cache.Len()
}

func (s *Storage[K, V]) get(key K) *batchloader.CacheEntry[K, V] {
	e, ok := s.cache.Get(key)
	if !ok {
		return nil
	}
	if s.policy.IsExpired(s.clock.Now(), e.ExpiresAt) {
		s.cache.Remove(key)
		return nil
	}
	return s.clone(e)
}

func (s *Storage[K, V]) clone(e *batchloader.CacheEntry[K, V]) *batchloader.CacheEntry[K, V] {
	c := &batchloader.CacheEntry[K, V]{
		Entry:         batchloader.Entry[K, V]{Key: e.Key},
		ExpiresAt:     e.ExpiresAt,
		NegativeCache: e.NegativeCache,
	}
	if !e.NegativeCache {
		c.Value = s.cloner.CloneValue(e.Value)
	}
	return c
}

func (s *Storage[K, V]) Get(_ context.Context, key K) (*batchloader.CacheEntry[K, V], error) {
	return s.get(key), nil
}

func (s *Storage[K, V]) GetMulti(_ context.Context, keys []K) ([]*batchloader.CacheEntry[K, V], error) {
	entries := make([]*batchloader.CacheEntry[K, V], len(keys))
	for i, key := range keys {
		entries[i] = s.get(key)
	}
	return entries, nil
}

func (s *Storage[K, V]) Set(_ context.Context, entry *batchloader.CacheEntry[K, V]) error {
	s.cache.Add(entry.Key, s.clone(entry))
	return nil
}

func (s *Storage[K, V]) SetMulti(_ context.Context, entries []*batchloader.CacheEntry[K, V]) error {
	for _, e := range entries {
		if e != nil {
			s.cache.Add(e.Key, s.clone(e))
		}
	}
	return nil
}

func (s *Storage[K, V]) Delete(_ context.Context, key K) error {
	s.cache.Remove(key)
	return nil
}

func (s *Storage[K, V]) Clear(context.Context) error {
	s.cache.Purge()
	return nil
}
