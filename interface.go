package batchloader

import (
	"context"
	"time"
)

// KeyConstraint is an interface for cache key constraints.
type KeyConstraint interface {
	comparable
}

// ValueConstraint is an interface for value constraints.
type ValueConstraint interface {
	any
}

// NeverExpires is the expiration time given to entries that live as long as their storage.
var NeverExpires = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

// Entry is a key-value pair.
type Entry[K KeyConstraint, V ValueConstraint] struct {
	// Key is the key of the entry.
	Key K

	// Value is the value associated with the key.
	Value V
}

// CacheEntry is a key-value pair with an expiration time.
type CacheEntry[K KeyConstraint, V ValueConstraint] struct {
	Entry[K, V]

	// ExpiresAt is the expiration time of the entry.
	// Use NeverExpires for entries without a deadline.
	ExpiresAt time.Time

	// NegativeCache marks an entry that records a failed or empty resolution.
	// Callers observe it as a nil result until it expires or is cleared.
	// If NegativeCache is true, the Value field must be the zero value of V.
	NegativeCache bool
}

// CacheStorage is an interface for a cache storage backend.
// Implementations must be thread-safe.
type CacheStorage[K KeyConstraint, V ValueConstraint] interface {
	// Set stores the entry, overwriting any existing entry for the key.
	// It must clone the input entry before storing it.
	Set(context.Context, *CacheEntry[K, V]) error

	// SetMulti stores multiple entries. Nil entries are skipped.
	// It must clone the input entries before storing them.
	SetMulti(context.Context, []*CacheEntry[K, V]) error

	// Get retrieves the entry for the key.
	// It returns nil if the key is not found or expired.
	// A negative entry is returned with NegativeCache set to true.
	// It must clone the returned entry before returning it.
	Get(context.Context, K) (*CacheEntry[K, V], error)

	// GetMulti retrieves multiple entries in the order of the input keys.
	// Missing or expired keys are nil in the result.
	// It must clone the returned entries before returning them.
	GetMulti(context.Context, []K) ([]*CacheEntry[K, V], error)

	// Delete removes the entry for the key. Deleting a missing key is not an error.
	Delete(context.Context, K) error

	// Clear removes every entry.
	Clear(context.Context) error
}

// LoadingSource is an interface for loading a single value from an external source.
type LoadingSource[K KeyConstraint, V ValueConstraint] interface {
	// Get retrieves a value by its key.
	// It returns the value wrapped in a CacheEntry with its expiration time.
	// If the key is not found, it should return nil as the CacheEntry.
	Get(context.Context, K) (*CacheEntry[K, V], error)
}

// SourceLoader loads a value from an external source and stores it in a cache storage.
// Implementations must be thread-safe.
type SourceLoader[K KeyConstraint, V ValueConstraint] interface {
	// LoadAndStore loads a value by key from the external source and stores it in the cache storage.
	LoadAndStore(context.Context, K) (*Entry[K, V], error)
}

// Outcome is the result of resolving one key of a batch.
type Outcome[V ValueConstraint] struct {
	// Value is the resolved value. It is ignored when Err is set.
	Value V

	// Err is the reason the key could not be resolved.
	Err error
}

// Succeed returns a successful outcome.
func Succeed[V ValueConstraint](v V) Outcome[V] {
	return Outcome[V]{Value: v}
}

// Fail returns a failed outcome.
func Fail[V ValueConstraint](err error) Outcome[V] {
	return Outcome[V]{Err: err}
}

// BatchResolver resolves a batch of keys with as few backend calls as it can.
type BatchResolver[K any, V ValueConstraint] interface {
	// Resolve returns one outcome per key, in the same order as keys.
	// An error fails every key of the batch.
	Resolve(context.Context, []K) ([]Outcome[V], error)
}

// CacheKeyFunc derives the canonical cache key of a load key.
// Keys with equal cache keys are loaded once and share one cached outcome.
type CacheKeyFunc[K any] func(K) string
