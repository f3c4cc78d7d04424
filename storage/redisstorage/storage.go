// Package redisstorage provides a batchloader.CacheStorage backed by Redis.
//
// Entries are stored as JSON under a key prefix. Redis expires keys at their deadline,
// and reads also check the deadline against the storage clock.
package redisstorage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/karupanerura/batchloader"
	"github.com/karupanerura/batchloader/expiration"
	"github.com/karupanerura/batchloader/storage"
)

// DefaultPrefix is prepended to every key unless WithPrefix is given.
const DefaultPrefix = "batchloader:"

// scanCount is the COUNT hint of the SCAN calls issued by Clear.
const scanCount = 256

// envelope is the stored form of an entry.
type envelope[V batchloader.ValueConstraint] struct {
	Value     V         `json:"v"`
	Negative  bool      `json:"n,omitempty"`
	ExpiresAt time.Time `json:"e"`
}

// Storage stores entries of string keys in Redis.
type Storage[V batchloader.ValueConstraint] struct {
	client redis.UniversalClient
	prefix string
	clock  batchloader.Clock
	policy expiration.Policy
}

var _ batchloader.CacheStorage[string, struct{}] = (*Storage[struct{}])(nil)

// New creates a storage using client. Values must be encodable with encoding/json.
func New[V batchloader.ValueConstraint](client redis.UniversalClient, opts ...Option[V]) *Storage[V] {
	s := &Storage[V]{
		client: client,
		prefix: DefaultPrefix,
		clock:  batchloader.SystemClock,
		policy: expiration.Deadline{},
	}
	for _, o := range opts {
		o.apply(s)
	}
	return s
}

func (s *Storage[V]) redisKey(key string) string {
	return s.prefix + key
}

func (s *Storage[V]) encode(entry *batchloader.CacheEntry[string, V]) ([]byte, error) {
	env := envelope[V]{Negative: entry.NegativeCache, ExpiresAt: entry.ExpiresAt}
	if !entry.NegativeCache {
		env.Value = entry.Value
	}
	return json.Marshal(env)
}

// decode returns nil for an expired entry.
func (s *Storage[V]) decode(key string, data []byte, now time.Time) (*batchloader.CacheEntry[string, V], error) {
	var env envelope[V]
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode %q: %w", key, err)
	}
	if s.policy.IsExpired(now, env.ExpiresAt) {
		return nil, nil
	}
	return &batchloader.CacheEntry[string, V]{
		Entry:         batchloader.Entry[string, V]{Key: key, Value: env.Value},
		ExpiresAt:     env.ExpiresAt,
		NegativeCache: env.Negative,
	}, nil
}

func (s *Storage[V]) Get(ctx context.Context, key string) (*batchloader.CacheEntry[string, V], error) {
	data, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrGet, err)
	}

	entry, err := s.decode(key, data, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrGet, err)
	}
	return entry, nil
}

func (s *Storage[V]) GetMulti(ctx context.Context, keys []string) ([]*batchloader.CacheEntry[string, V], error) {
	entries := make([]*batchloader.CacheEntry[string, V], len(keys))
	if len(keys) == 0 {
		return entries, nil
	}

	redisKeys := make([]string, len(keys))
	for i, key := range keys {
		redisKeys[i] = s.redisKey(key)
	}
	values, err := s.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrGetMulti, err)
	}

	now := s.clock.Now()
	for i, v := range values {
		data, ok := v.(string)
		if !ok {
			continue
		}
		entries[i], err = s.decode(keys[i], []byte(data), now)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrGetMulti, err)
		}
	}
	return entries, nil
}

// write queues the command storing entry. An entry already past its deadline removes the key.
func (s *Storage[V]) write(ctx context.Context, cmd redis.Cmdable, entry *batchloader.CacheEntry[string, V]) error {
	data, err := s.encode(entry)
	if err != nil {
		return fmt.Errorf("encode %q: %w", entry.Key, err)
	}

	key := s.redisKey(entry.Key)
	if !entry.ExpiresAt.Before(batchloader.NeverExpires) {
		return cmd.Set(ctx, key, data, 0).Err()
	}
	ttl := entry.ExpiresAt.Sub(s.clock.Now())
	if ttl <= 0 {
		return cmd.Del(ctx, key).Err()
	}
	return cmd.Set(ctx, key, data, ttl).Err()
}

func (s *Storage[V]) Set(ctx context.Context, entry *batchloader.CacheEntry[string, V]) error {
	if err := s.write(ctx, s.client, entry); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSet, err)
	}
	return nil
}

func (s *Storage[V]) SetMulti(ctx context.Context, entries []*batchloader.CacheEntry[string, V]) error {
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, entry := range entries {
			if entry == nil {
				continue
			}
			if err := s.write(ctx, pipe, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSetMulti, err)
	}
	return nil
}

func (s *Storage[V]) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrDelete, err)
	}
	return nil
}

// Clear deletes every key under the prefix. With a cluster client only the keys on the node
// answering the SCAN calls are visited.
func (s *Storage[V]) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", scanCount).Result()
		if err != nil {
			return fmt.Errorf("%w: %w", storage.ErrClear, err)
		}
		if len(keys) != 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("%w: %w", storage.ErrClear, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
