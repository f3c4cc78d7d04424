package batchloader

import (
	"context"
)

// Future is the pending result of a Load call.
// Futures for the same cache key are shared between all callers that joined the same load.
type Future[V ValueConstraint] struct {
	key    string
	cloner ValueCloner[V]

	// done is closed once entry is set.
	done  chan struct{}
	entry *Entry[string, V]
}

func newFuture[V ValueConstraint](key string, cloner ValueCloner[V]) *Future[V] {
	return &Future[V]{
		key:    key,
		cloner: cloner,
		done:   make(chan struct{}),
	}
}

func resolvedFuture[V ValueConstraint](key string, cloner ValueCloner[V], entry *Entry[string, V]) *Future[V] {
	f := newFuture(key, cloner)
	f.resolve(entry)
	return f
}

// resolve sets the result. It must be called exactly once.
func (f *Future[V]) resolve(entry *Entry[string, V]) {
	f.entry = entry
	close(f.done)
}

// Key returns the cache key the future resolves.
func (f *Future[V]) Key() string {
	return f.key
}

// Get waits until the result is available.
// A nil entry with a nil error means no result is available for the key.
// The only error is the context error when ctx is done before the result; the load itself continues.
func (f *Future[V]) Get(ctx context.Context) (*Entry[string, V], error) {
	select {
	case <-f.done:
		return f.result(), nil
	default:
	}

	select {
	case <-f.done:
		return f.result(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// IsDone reports whether the result is available.
func (f *Future[V]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// result returns a private copy of the entry so receivers never share the value.
func (f *Future[V]) result() *Entry[string, V] {
	if f.entry == nil {
		return nil
	}
	return &Entry[string, V]{
		Key:   f.entry.Key,
		Value: f.cloner.CloneValue(f.entry.Value),
	}
}
