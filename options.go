package batchloader

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Unset disables the time-based flush when given to WithBatchWait.
const Unset = -1

// DefaultBatchWait is how long a batch collects keys before it is dispatched.
var DefaultBatchWait = 16 * time.Millisecond

// Option is the interface for the options of the Loader.
type Option[K any, V ValueConstraint] interface {
	apply(*Loader[K, V])
}

type optionFunc[K any, V ValueConstraint] func(*Loader[K, V])

func (f optionFunc[K, V]) apply(l *Loader[K, V]) {
	f(l)
}

// WithBatchWait sets how long the first key of a batch waits for other keys before the batch is dispatched.
// 0 dispatches as soon as the timer goroutine runs.
// Unset disables the timer, so batches are dispatched only by Flush or WithMaxBatchSize.
func WithBatchWait[K any, V ValueConstraint](wait time.Duration) Option[K, V] {
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.batchWait = wait
	})
}

// WithMaxBatchSize dispatches a batch as soon as it holds size unique keys.
// A non-positive size means unlimited, which is the default.
func WithMaxBatchSize[K any, V ValueConstraint](size int) Option[K, V] {
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.maxBatchSize = size
	})
}

// WithTTL sets how long successful results stay cached.
// The default is to keep them for the lifetime of the storage.
func WithTTL[K any, V ValueConstraint](ttl time.Duration) Option[K, V] {
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.ttl = ttl
	})
}

// WithFailureTTL sets how long failed keys stay cached as nil results.
// The default is to keep them for the lifetime of the storage.
func WithFailureTTL[K any, V ValueConstraint](ttl time.Duration) Option[K, V] {
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.failureTTL = ttl
	})
}

// WithCloner sets the value cloner used to hand independent copies to every receiver.
// The default is DefaultValueCloner.
func WithCloner[K any, V ValueConstraint](cloner ValueCloner[V]) Option[K, V] {
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.cloner = cloner
	})
}

// WithClock sets the clock used to compute expiration times.
func WithClock[K any, V ValueConstraint](clock Clock) Option[K, V] {
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.clock = clock
	})
}

// WithLogger sets the logger. The default is logrus.StandardLogger().
func WithLogger[K any, V ValueConstraint](logger logrus.FieldLogger) Option[K, V] {
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.logger = logger
	})
}

// WithBackgroundContextProvider sets the provider of the context given to the resolver and the storage writes.
// The provider must return a new context for each call.
// The default context provider is context.Background.
func WithBackgroundContextProvider[K any, V ValueConstraint](provider func() context.Context) Option[K, V] {
	return optionFunc[K, V](func(l *Loader[K, V]) {
		l.context = provider
	})
}
