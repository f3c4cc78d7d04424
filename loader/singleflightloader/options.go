package singleflightloader

import (
	"context"

	"github.com/karupanerura/batchloader"
)

// Option configures a SingleFlightLoader.
type Option[K batchloader.KeyConstraint, V batchloader.ValueConstraint] interface {
	apply(*SingleFlightLoader[K, V])
}

type optionFunc[K batchloader.KeyConstraint, V batchloader.ValueConstraint] func(*SingleFlightLoader[K, V])

func (f optionFunc[K, V]) apply(l *SingleFlightLoader[K, V]) {
	f(l)
}

// WithCloner sets the cloner giving every caller of a shared load its own value.
// The default is batchloader.DefaultValueCloner.
func WithCloner[K batchloader.KeyConstraint, V batchloader.ValueConstraint](cloner batchloader.ValueCloner[V]) Option[K, V] {
	return optionFunc[K, V](func(l *SingleFlightLoader[K, V]) {
		l.cloner = cloner
	})
}

// WithBackgroundContextProvider sets the provider of the context given to the source and the storage.
// The provider must return a new context for each call. The default is context.Background.
func WithBackgroundContextProvider[K batchloader.KeyConstraint, V batchloader.ValueConstraint](provider func() context.Context) Option[K, V] {
	return optionFunc[K, V](func(l *SingleFlightLoader[K, V]) {
		l.context = provider
	})
}

// WithKeyString sets how keys are turned into the strings singleflight groups calls by.
// Distinct keys must map to distinct strings. The default formats the key with %#v.
func WithKeyString[K batchloader.KeyConstraint, V batchloader.ValueConstraint](f func(K) string) Option[K, V] {
	return optionFunc[K, V](func(l *SingleFlightLoader[K, V]) {
		l.keyString = f
	})
}
