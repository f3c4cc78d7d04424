package singleflightloader

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/karupanerura/batchloader"
	"github.com/karupanerura/batchloader/internal/panicutil"
)

// ErrGoexit is returned to the callers of a load whose source called runtime.Goexit.
var ErrGoexit = errors.New("runtime.Goexit is called in the source")

// SingleFlightLoader loads values from a source into a storage, one source call per key at a time.
type SingleFlightLoader[K batchloader.KeyConstraint, V batchloader.ValueConstraint] struct {
	storage   batchloader.CacheStorage[K, V]
	source    batchloader.LoadingSource[K, V]
	cloner    batchloader.ValueCloner[V]
	context   func() context.Context
	keyString func(K) string

	group singleflight.Group
}

var _ batchloader.SourceLoader[string, struct{}] = (*SingleFlightLoader[string, struct{}])(nil)

// NewSingleFlightLoader creates a loader reading from source and writing to storage.
func NewSingleFlightLoader[K batchloader.KeyConstraint, V batchloader.ValueConstraint](storage batchloader.CacheStorage[K, V], source batchloader.LoadingSource[K, V], opts ...Option[K, V]) *SingleFlightLoader[K, V] {
	l := &SingleFlightLoader[K, V]{
		storage: storage,
		source:  source,
		context: context.Background,
		keyString: func(key K) string {
			return fmt.Sprintf("%#v", key)
		},
	}
	for _, o := range opts {
		o.apply(l)
	}
	if l.cloner == nil {
		l.cloner = batchloader.DefaultValueCloner[V]()
	}
	return l
}

type loadResult[K batchloader.KeyConstraint, V batchloader.ValueConstraint] struct {
	entry *batchloader.CacheEntry[K, V]
	err   error
}

// LoadAndStore loads key from the source, stores the result, and returns it.
// A missing or negative entry returns nil. If ctx is done first, the load keeps running
// for the other callers and the context error is returned.
func (l *SingleFlightLoader[K, V]) LoadAndStore(ctx context.Context, key K) (*batchloader.Entry[K, V], error) {
	ch := l.group.DoChan(l.keyString(key), func() (any, error) {
		r := l.load(key)
		return r.entry, r.err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		cacheEntry := res.Val.(*batchloader.CacheEntry[K, V])
		if cacheEntry == nil || cacheEntry.NegativeCache {
			return nil, nil
		}
		entry := cacheEntry.Entry
		if res.Shared {
			entry.Value = l.cloner.CloneValue(entry.Value)
		}
		return &entry, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Forget makes the next LoadAndStore of key call the source even if a load is in flight.
func (l *SingleFlightLoader[K, V]) Forget(key K) {
	l.group.Forget(l.keyString(key))
}

// load calls the source on its own goroutine so that runtime.Goexit in the source
// cannot strand the callers waiting in singleflight.
func (l *SingleFlightLoader[K, V]) load(key K) loadResult[K, V] {
	done := make(chan loadResult[K, V], 1)
	go func() {
		ctx := l.context()
		dds := panicutil.DoubleDeferSandwich{
			OnGoexit: func() {
				done <- loadResult[K, V]{err: ErrGoexit}
			},
		}

		var cacheEntry *batchloader.CacheEntry[K, V]
		if err := dds.Invoke(func() (err error) {
			cacheEntry, err = l.source.Get(ctx, key)
			return
		}); err != nil {
			done <- loadResult[K, V]{err: err}
			return
		}

		if cacheEntry != nil {
			if err := l.storage.Set(ctx, cacheEntry); err != nil {
				done <- loadResult[K, V]{err: err}
				return
			}
		}
		done <- loadResult[K, V]{entry: cacheEntry}
	}()
	return <-done
}
