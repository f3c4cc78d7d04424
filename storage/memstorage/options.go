package memstorage

import (
	"github.com/karupanerura/batchloader"
	"github.com/karupanerura/batchloader/expiration"
)

// DefaultBucketsSize is the default number of buckets.
var DefaultBucketsSize = 256

// Option configures a Storage.
type Option[K batchloader.KeyConstraint, V batchloader.ValueConstraint] interface {
	apply(*options[K, V])
}

type optionFunc[K batchloader.KeyConstraint, V batchloader.ValueConstraint] func(*options[K, V])

func (f optionFunc[K, V]) apply(o *options[K, V]) {
	f(o)
}

// WithKeyHash replaces the hash used to pick the bucket of a key.
func WithKeyHash[K batchloader.KeyConstraint, V batchloader.ValueConstraint](f func(K) int) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.hashKey = func(key any) int {
			return f(key.(K))
		}
	})
}

// WithBucketsSize sets the number of buckets. It panics unless bucketsSize is positive.
func WithBucketsSize[K batchloader.KeyConstraint, V batchloader.ValueConstraint](bucketsSize int) Option[K, V] {
	if bucketsSize <= 0 {
		panic("bucketsSize must be a positive number")
	}
	return optionFunc[K, V](func(o *options[K, V]) {
		o.bucketsSize = bucketsSize
	})
}

// WithClock sets the clock compared with the deadlines of entries.
func WithClock[K batchloader.KeyConstraint, V batchloader.ValueConstraint](clock batchloader.Clock) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.clock = clock
	})
}

// WithCloner sets the cloner applied to values on the way in and out.
func WithCloner[K batchloader.KeyConstraint, V batchloader.ValueConstraint](cloner batchloader.ValueCloner[V]) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.cloner = cloner
	})
}

// WithExpirationPolicy sets the policy deciding whether an entry is expired. The default is expiration.Deadline.
func WithExpirationPolicy[K batchloader.KeyConstraint, V batchloader.ValueConstraint](policy expiration.Policy) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.policy = policy
	})
}

type options[K batchloader.KeyConstraint, V batchloader.ValueConstraint] struct {
	hashKey     func(any) int
	bucketsSize int
	clock       batchloader.Clock
	cloner      batchloader.ValueCloner[V]
	policy      expiration.Policy
}

func defaultOptions[K batchloader.KeyConstraint, V batchloader.ValueConstraint]() options[K, V] {
	return options[K, V]{
		bucketsSize: DefaultBucketsSize,
		clock:       batchloader.SystemClock,
		cloner:      batchloader.DefaultValueCloner[V](),
		policy:      expiration.Deadline{},
	}
}
