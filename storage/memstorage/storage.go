package memstorage

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/karupanerura/batchloader"
	"github.com/karupanerura/batchloader/internal/keyhash"
)

type bucket[K batchloader.KeyConstraint, V batchloader.ValueConstraint] struct {
	mu sync.RWMutex
	m  map[K]*batchloader.CacheEntry[K, V]
}

// Storage is an in-memory CacheStorage. Keys are spread over buckets by their hash
// so that writers of different keys rarely contend.
type Storage[K batchloader.KeyConstraint, V batchloader.ValueConstraint] struct {
	buckets []*bucket[K, V]
	options options[K, V]
}

var _ batchloader.CacheStorage[string, struct{}] = (*Storage[string, struct{}])(nil)

// New creates an empty in-memory storage.
func New[K batchloader.KeyConstraint, V batchloader.ValueConstraint](opts ...Option[K, V]) *Storage[K, V] {
	options := defaultOptions[K, V]()
	for _, opt := range opts {
		opt.apply(&options)
	}
	if options.hashKey == nil && options.bucketsSize > 1 {
		options.hashKey = keyhash.GetOrCreateKeyHash[K]()
	}

	buckets := make([]*bucket[K, V], options.bucketsSize)
	for i := range buckets {
		buckets[i] = &bucket[K, V]{m: map[K]*batchloader.CacheEntry[K, V]{}}
	}
	return &Storage[K, V]{buckets: buckets, options: options}
}

func (s *Storage[K, V]) bucketIndex(key K) int {
	if len(s.buckets) == 1 {
		return 0
	}
	index := s.options.hashKey(key) % len(s.buckets)
	if index < 0 {
		index = -index
	}
	return index
}

// lockBuckets locks the buckets of keys in ascending order and returns the bucket index of each key
// with the function releasing the locks.
func (s *Storage[K, V]) lockBuckets(keys []K, write bool) ([]int, func()) {
	indexes := make([]int, len(keys))
	for i, key := range keys {
		indexes[i] = s.bucketIndex(key)
	}
	locked := slices.Compact(slices.Sorted(slices.Values(indexes)))
	for _, i := range locked {
		if write {
			s.buckets[i].mu.Lock()
		} else {
			s.buckets[i].mu.RLock()
		}
	}
	return indexes, func() {
		for _, i := range locked {
			if write {
				s.buckets[i].mu.Unlock()
			} else {
				s.buckets[i].mu.RUnlock()
			}
		}
	}
}

func (s *Storage[K, V]) lookup(b *bucket[K, V], key K, now time.Time) *batchloader.CacheEntry[K, V] {
	e, ok := b.m[key]
	if !ok || s.options.policy.IsExpired(now, e.ExpiresAt) {
		return nil
	}
	return cloneCacheEntry(s.options.cloner, e)
}

func (s *Storage[K, V]) Get(_ context.Context, key K) (*batchloader.CacheEntry[K, V], error) {
	b := s.buckets[s.bucketIndex(key)]
	b.mu.RLock()
	defer b.mu.RUnlock()
	return s.lookup(b, key, s.options.clock.Now()), nil
}

func (s *Storage[K, V]) GetMulti(_ context.Context, keys []K) ([]*batchloader.CacheEntry[K, V], error) {
	indexes, unlock := s.lockBuckets(keys, false)
	defer unlock()

	now := s.options.clock.Now()
	result := make([]*batchloader.CacheEntry[K, V], len(keys))
	for i, key := range keys {
		result[i] = s.lookup(s.buckets[indexes[i]], key, now)
	}
	return result, nil
}

func (s *Storage[K, V]) Set(_ context.Context, entry *batchloader.CacheEntry[K, V]) error {
	b := s.buckets[s.bucketIndex(entry.Key)]
	b.mu.Lock()
	defer b.mu.Unlock()

	b.m[entry.Key] = cloneCacheEntry(s.options.cloner, entry)
	return nil
}

func (s *Storage[K, V]) SetMulti(_ context.Context, entries []*batchloader.CacheEntry[K, V]) error {
	entries = slices.DeleteFunc(slices.Clone(entries), func(e *batchloader.CacheEntry[K, V]) bool {
		return e == nil
	})
	keys := make([]K, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}

	indexes, unlock := s.lockBuckets(keys, true)
	defer unlock()

	for i, e := range entries {
		s.buckets[indexes[i]].m[e.Key] = cloneCacheEntry(s.options.cloner, e)
	}
	return nil
}

func (s *Storage[K, V]) Delete(_ context.Context, key K) error {
	b := s.buckets[s.bucketIndex(key)]
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.m, key)
	return nil
}

// Clear empties the buckets one at a time. Entries written to an already cleared bucket
// while Clear runs are kept.
func (s *Storage[K, V]) Clear(context.Context) error {
	for _, b := range s.buckets {
		b.mu.Lock()
		clear(b.m)
		b.mu.Unlock()
	}
	return nil
}

func cloneCacheEntry[K batchloader.KeyConstraint, V batchloader.ValueConstraint](cloner batchloader.ValueCloner[V], e *batchloader.CacheEntry[K, V]) *batchloader.CacheEntry[K, V] {
	clone := &batchloader.CacheEntry[K, V]{
		Entry:         batchloader.Entry[K, V]{Key: e.Key},
		ExpiresAt:     e.ExpiresAt,
		NegativeCache: e.NegativeCache,
	}
	if !e.NegativeCache {
		clone.Value = cloner.CloneValue(e.Value)
	}
	return clone
}
