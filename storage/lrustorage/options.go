package lrustorage

import (
	"github.com/karupanerura/batchloader"
	"github.com/karupanerura/batchloader/expiration"
)

// Option configures a Storage.
type Option[K batchloader.KeyConstraint, V batchloader.ValueConstraint] interface {
	apply(*Storage[K, V])
}

type optionFunc[K batchloader.KeyConstraint, V batchloader.ValueConstraint] func(*Storage[K, V])

func (f optionFunc[K, V]) apply(s *Storage[K, V]) {
	f(s)
}

// WithClock sets the clock compared with the deadlines of entries.
func WithClock[K batchloader.KeyConstraint, V batchloader.ValueConstraint](clock batchloader.Clock) Option[K, V] {
	return optionFunc[K, V](func(s *Storage[K, V]) {
		s.clock = clock
	})
}

// WithCloner sets the cloner applied to values on the way in and out.
func WithCloner[K batchloader.KeyConstraint, V batchloader.ValueConstraint](cloner batchloader.ValueCloner[V]) Option[K, V] {
	return optionFunc[K, V](func(s *Storage[K, V]) {
		s.cloner = cloner
	})
}

// WithExpirationPolicy sets the policy deciding whether an entry is expired. The default is expiration.Deadline.
func WithExpirationPolicy[K batchloader.KeyConstraint, V batchloader.ValueConstraint](policy expiration.Policy) Option[K, V] {
	return optionFunc[K, V](func(s *Storage[K, V]) {
		s.policy = policy
	})
}

// WithOnEvict sets a callback called with the key of every entry dropped by the size bound,
// by Delete, or by Clear.
func WithOnEvict[K batchloader.KeyConstraint, V batchloader.ValueConstraint](f func(K)) Option[K, V] {
	return optionFunc[K, V](func(s *Storage[K, V]) {
		s.onEvict = f
	})
}
