package source

import (
	"context"
	"fmt"

	"github.com/karupanerura/batchloader"
)

// FunctionsSource is a LoadingSource backed by a function.
type FunctionsSource[K batchloader.KeyConstraint, V batchloader.ValueConstraint] struct {
	// GetFunc loads the entry of a key. It returns nil if the key does not exist.
	GetFunc func(context.Context, K) (*batchloader.CacheEntry[K, V], error)
}

var _ batchloader.LoadingSource[string, struct{}] = (*FunctionsSource[string, struct{}])(nil)

// Get calls GetFunc.
func (s *FunctionsSource[K, V]) Get(ctx context.Context, key K) (*batchloader.CacheEntry[K, V], error) {
	return s.GetFunc(ctx, key)
}

// ResolverFunc adapts a function to BatchResolver.
type ResolverFunc[K any, V batchloader.ValueConstraint] func(context.Context, []K) ([]batchloader.Outcome[V], error)

var _ batchloader.BatchResolver[string, struct{}] = (ResolverFunc[string, struct{}])(nil)

// Resolve calls f.
func (f ResolverFunc[K, V]) Resolve(ctx context.Context, keys []K) ([]batchloader.Outcome[V], error) {
	return f(ctx, keys)
}

// MapResolver adapts a function returning outcomes by cache key to BatchResolver.
// Keys missing from the map fail with ErrMissing, so the function may leave out keys it found nothing for.
type MapResolver[K any, V batchloader.ValueConstraint] struct {
	CacheKey    batchloader.CacheKeyFunc[K]
	ResolveFunc func(context.Context, []K) (map[string]batchloader.Outcome[V], error)
}

var _ batchloader.BatchResolver[string, struct{}] = (*MapResolver[string, struct{}])(nil)

// Resolve calls ResolveFunc and aligns its outcomes with keys.
func (r *MapResolver[K, V]) Resolve(ctx context.Context, keys []K) ([]batchloader.Outcome[V], error) {
	m, err := r.ResolveFunc(ctx, keys)
	if err != nil {
		return nil, err
	}

	outcomes := make([]batchloader.Outcome[V], len(keys))
	for i, key := range keys {
		ck := r.CacheKey(key)
		o, ok := m[ck]
		if !ok {
			o = batchloader.Fail[V](fmt.Errorf("%w: %s", ErrMissing, ck))
		}
		outcomes[i] = o
	}
	return outcomes, nil
}

// LintResolver checks the outcomes of Resolver and panics when they are not aligned with the keys.
// Use it in tests of resolver implementations.
type LintResolver[K any, V batchloader.ValueConstraint] struct {
	Resolver batchloader.BatchResolver[K, V]
}

var _ batchloader.BatchResolver[string, struct{}] = (*LintResolver[string, struct{}])(nil)

// Resolve calls Resolver and validates its result.
func (r *LintResolver[K, V]) Resolve(ctx context.Context, keys []K) ([]batchloader.Outcome[V], error) {
	outcomes, err := r.Resolver.Resolve(ctx, keys)
	if err != nil {
		if outcomes != nil {
			panic("outcomes must be nil when an error is returned")
		}
		return nil, err
	}
	if len(outcomes) != len(keys) {
		panic(fmt.Sprintf("must return one outcome per key: %d outcomes for %d keys", len(outcomes), len(keys)))
	}
	return outcomes, nil
}
