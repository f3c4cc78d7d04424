package redisstorage

import (
	"github.com/karupanerura/batchloader"
	"github.com/karupanerura/batchloader/expiration"
)

// Option configures a Storage.
type Option[V batchloader.ValueConstraint] interface {
	apply(*Storage[V])
}

type optionFunc[V batchloader.ValueConstraint] func(*Storage[V])

func (f optionFunc[V]) apply(s *Storage[V]) {
	f(s)
}

// WithPrefix sets the prefix of the Redis keys. Clear removes every key with this prefix.
func WithPrefix[V batchloader.ValueConstraint](prefix string) Option[V] {
	return optionFunc[V](func(s *Storage[V]) {
		s.prefix = prefix
	})
}

// WithClock sets the clock compared with the deadlines of entries.
func WithClock[V batchloader.ValueConstraint](clock batchloader.Clock) Option[V] {
	return optionFunc[V](func(s *Storage[V]) {
		s.clock = clock
	})
}

// WithExpirationPolicy sets the policy applied on reads. The default is expiration.Deadline.
func WithExpirationPolicy[V batchloader.ValueConstraint](policy expiration.Policy) Option[V] {
	return optionFunc[V](func(s *Storage[V]) {
		s.policy = policy
	})
}
