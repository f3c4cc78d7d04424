package storage

import (
	"context"

	"github.com/karupanerura/batchloader"
)

var _ batchloader.CacheStorage[string, struct{}] = (*SilentErrorStorage[string, struct{}])(nil)

// SilentErrorStorage hands storage errors to OnError and reports success to its caller.
// Failed reads look like misses.
type SilentErrorStorage[K batchloader.KeyConstraint, V batchloader.ValueConstraint] struct {
	Storage batchloader.CacheStorage[K, V]

	// OnError receives every error of Storage. It may be nil.
	OnError func(error)
}

func (s *SilentErrorStorage[K, V]) report(err error) {
	if s.OnError != nil {
		s.OnError(err)
	}
}

// Get returns nil when the underlying storage fails.
func (s *SilentErrorStorage[K, V]) Get(ctx context.Context, key K) (*batchloader.CacheEntry[K, V], error) {
	entry, err := s.Storage.Get(ctx, key)
	if err != nil {
		s.report(err)
		return nil, nil
	}
	return entry, nil
}

// GetMulti returns all nil entries when the underlying storage fails.
func (s *SilentErrorStorage[K, V]) GetMulti(ctx context.Context, keys []K) ([]*batchloader.CacheEntry[K, V], error) {
	entries, err := s.Storage.GetMulti(ctx, keys)
	if err != nil {
		s.report(err)
		return make([]*batchloader.CacheEntry[K, V], len(keys)), nil
	}
	return entries, nil
}

func (s *SilentErrorStorage[K, V]) Set(ctx context.Context, entry *batchloader.CacheEntry[K, V]) error {
	if err := s.Storage.Set(ctx, entry); err != nil {
		s.report(err)
	}
	return nil
}

func (s *SilentErrorStorage[K, V]) SetMulti(ctx context.Context, entries []*batchloader.CacheEntry[K, V]) error {
	if err := s.Storage.SetMulti(ctx, entries); err != nil {
		s.report(err)
	}
	return nil
}

func (s *SilentErrorStorage[K, V]) Delete(ctx context.Context, key K) error {
	if err := s.Storage.Delete(ctx, key); err != nil {
		s.report(err)
	}
	return nil
}

func (s *SilentErrorStorage[K, V]) Clear(ctx context.Context) error {
	if err := s.Storage.Clear(ctx); err != nil {
		s.report(err)
	}
	return nil
}

var _ batchloader.CacheStorage[string, struct{}] = (*FunctionsStorage[string, struct{}])(nil)

// FunctionsStorage is a CacheStorage made of functions.
// Calling an operation whose function is nil panics.
type FunctionsStorage[K batchloader.KeyConstraint, V batchloader.ValueConstraint] struct {
	SetFunc      func(context.Context, *batchloader.CacheEntry[K, V]) error
	SetMultiFunc func(context.Context, []*batchloader.CacheEntry[K, V]) error
	GetFunc      func(context.Context, K) (*batchloader.CacheEntry[K, V], error)
	GetMultiFunc func(context.Context, []K) ([]*batchloader.CacheEntry[K, V], error)
	DeleteFunc   func(context.Context, K) error
	ClearFunc    func(context.Context) error
}

func (s *FunctionsStorage[K, V]) Set(ctx context.Context, entry *batchloader.CacheEntry[K, V]) error {
	return s.SetFunc(ctx, entry)
}

func (s *FunctionsStorage[K, V]) SetMulti(ctx context.Context, entries []*batchloader.CacheEntry[K, V]) error {
	return s.SetMultiFunc(ctx, entries)
}

func (s *FunctionsStorage[K, V]) Get(ctx context.Context, key K) (*batchloader.CacheEntry[K, V], error) {
	return s.GetFunc(ctx, key)
}

func (s *FunctionsStorage[K, V]) GetMulti(ctx context.Context, keys []K) ([]*batchloader.CacheEntry[K, V], error) {
	return s.GetMultiFunc(ctx, keys)
}

func (s *FunctionsStorage[K, V]) Delete(ctx context.Context, key K) error {
	return s.DeleteFunc(ctx, key)
}

func (s *FunctionsStorage[K, V]) Clear(ctx context.Context) error {
	return s.ClearFunc(ctx)
}
