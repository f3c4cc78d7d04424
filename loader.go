package batchloader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/karupanerura/batchloader/internal/ctxsync"
	"github.com/karupanerura/batchloader/internal/panicutil"
)

// Loader coalesces concurrent loads into batches, resolves every batch with one resolver call,
// and caches the outcome of each key in a CacheStorage under its cache key.
//
// Load never fails because of the resolver: a key the resolver could not resolve becomes a cached nil result.
type Loader[K any, V ValueConstraint] struct {
	storage  CacheStorage[string, V]
	resolver BatchResolver[K, V]
	cacheKey CacheKeyFunc[K]

	cloner       ValueCloner[V]
	clock        Clock
	logger       logrus.FieldLogger
	context      func() context.Context
	batchWait    time.Duration
	maxBatchSize int
	ttl          time.Duration
	failureTTL   time.Duration

	mu       sync.Mutex
	pending  *batch[K]
	inflight map[string]*Future[V]
	// settled counts finished batches so Load can detect a batch that settled during its storage lookup.
	settled uint64

	// flushing serializes dispatches: a batch starts resolving only after the previous one has finished.
	flushing ctxsync.CtxLocker
}

// batch is a set of unique keys collected between two flushes.
type batch[K any] struct {
	id        string
	keys      []K
	cacheKeys []string
	timer     *time.Timer
}

// New creates a Loader that caches outcomes in storage and resolves misses with resolver.
func New[K any, V ValueConstraint](storage CacheStorage[string, V], resolver BatchResolver[K, V], cacheKey CacheKeyFunc[K], opts ...Option[K, V]) *Loader[K, V] {
	l := &Loader[K, V]{
		storage:   storage,
		resolver:  resolver,
		cacheKey:  cacheKey,
		clock:     SystemClock,
		logger:    logrus.StandardLogger(),
		context:   context.Background,
		batchWait: DefaultBatchWait,
		inflight:  map[string]*Future[V]{},
		flushing:  ctxsync.CtxLocker{Locker: &sync.Mutex{}},
	}
	for _, o := range opts {
		o.apply(l)
	}
	if l.cloner == nil {
		l.cloner = DefaultValueCloner[V]()
	}
	return l
}

// Load registers a key to be loaded and returns a Future for its result.
// A cached key returns an already resolved Future.
// A key that is already being loaded returns the Future of that load.
func (l *Loader[K, V]) Load(ctx context.Context, key K) *Future[V] {
	ck := l.cacheKey(key)
	for {
		l.mu.Lock()
		if f, ok := l.inflight[ck]; ok {
			l.mu.Unlock()
			return f
		}
		seq := l.settled
		l.mu.Unlock()

		if f := l.lookup(ctx, ck); f != nil {
			return f
		}

		l.mu.Lock()
		if f, ok := l.inflight[ck]; ok {
			l.mu.Unlock()
			return f
		}
		if l.settled != seq {
			// A batch settled while the storage was read, so the miss may be stale.
			l.mu.Unlock()
			continue
		}
		f, full := l.enqueueLocked(key, ck)
		l.mu.Unlock()

		if full != nil {
			go l.dispatch(full)
		}
		return f
	}
}

// Get registers a key to be loaded and waits for the result.
// A nil entry means the key has no result. The error is non-nil only if ctx is done first.
func (l *Loader[K, V]) Get(ctx context.Context, key K) (*Entry[string, V], error) {
	return l.Load(ctx, key).Get(ctx)
}

// LoadMany registers keys to be loaded and returns their Futures in the order of keys.
func (l *Loader[K, V]) LoadMany(ctx context.Context, keys []K) []*Future[V] {
	futures := make([]*Future[V], len(keys))
	for i, key := range keys {
		futures[i] = l.Load(ctx, key)
	}
	return futures
}

// GetMany registers keys to be loaded and waits for all of them.
// Entries are in the order of keys; nil marks a key without a result.
// If ctx is done first, the entries resolved so far are returned along with the context error.
func (l *Loader[K, V]) GetMany(ctx context.Context, keys []K) ([]*Entry[string, V], error) {
	futures := l.LoadMany(ctx, keys)
	entries := make([]*Entry[string, V], len(futures))
	for i, f := range futures {
		entry, err := f.Get(ctx)
		if err != nil {
			return entries, err
		}
		entries[i] = entry
	}
	return entries, nil
}

// Flush dispatches the collecting batch on the caller goroutine.
// If ctx is done while waiting for a running batch, the batch is handed to a background goroutine
// and the context error is returned.
func (l *Loader[K, V]) Flush(ctx context.Context) error {
	l.mu.Lock()
	b := l.detachLocked()
	l.mu.Unlock()
	if b == nil {
		return nil
	}

	if err := l.flushing.LockCtx(ctx); err != nil {
		go l.dispatch(b)
		return err
	}
	defer l.flushing.Unlock()
	l.resolveBatch(b)
	return nil
}

// Prime stores value for key without calling the resolver, replacing any cached outcome.
func (l *Loader[K, V]) Prime(ctx context.Context, key K, value V) error {
	ck := l.cacheKey(key)
	return l.storage.Set(ctx, &CacheEntry[string, V]{
		Entry:     Entry[string, V]{Key: ck, Value: value},
		ExpiresAt: expiresAfter(l.clock.Now(), l.ttl),
	})
}

// Clear drops the cached outcome of key so the next Load resolves it again.
func (l *Loader[K, V]) Clear(ctx context.Context, key K) error {
	return l.storage.Delete(ctx, l.cacheKey(key))
}

// ClearAll drops every cached outcome.
func (l *Loader[K, V]) ClearAll(ctx context.Context) error {
	return l.storage.Clear(ctx)
}

// lookup returns a resolved Future if the storage holds an outcome for ck.
// Storage errors are logged and treated as a miss.
func (l *Loader[K, V]) lookup(ctx context.Context, ck string) *Future[V] {
	entry, err := l.storage.Get(ctx, ck)
	if err != nil {
		l.logger.WithFields(logrus.Fields{"cache_key": ck, "error": err}).Warn("unable to read cached outcome")
		return nil
	}
	if entry == nil {
		return nil
	}
	if entry.NegativeCache {
		return resolvedFuture[V](ck, l.cloner, nil)
	}
	return resolvedFuture(ck, l.cloner, &entry.Entry)
}

// enqueueLocked adds the key to the collecting batch.
// It returns the batch detached by WithMaxBatchSize, if any. l.mu must be held.
func (l *Loader[K, V]) enqueueLocked(key K, ck string) (*Future[V], *batch[K]) {
	f := newFuture(ck, l.cloner)
	l.inflight[ck] = f

	if l.pending == nil {
		l.pending = l.newBatchLocked()
	}
	b := l.pending
	b.keys = append(b.keys, key)
	b.cacheKeys = append(b.cacheKeys, ck)

	if l.maxBatchSize > 0 && len(b.keys) >= l.maxBatchSize {
		return f, l.detachLocked()
	}
	return f, nil
}

// newBatchLocked creates a batch and arms its flush timer. l.mu must be held.
func (l *Loader[K, V]) newBatchLocked() *batch[K] {
	b := &batch[K]{id: uuid.NewString()}
	if l.batchWait >= 0 {
		b.timer = time.AfterFunc(l.batchWait, func() {
			l.mu.Lock()
			if l.pending != b {
				// already detached by Flush or WithMaxBatchSize
				l.mu.Unlock()
				return
			}
			l.pending = nil
			l.mu.Unlock()
			l.dispatch(b)
		})
	}
	return b
}

// detachLocked removes the collecting batch so later loads start a new one. l.mu must be held.
func (l *Loader[K, V]) detachLocked() *batch[K] {
	b := l.pending
	if b == nil {
		return nil
	}
	l.pending = nil
	if b.timer != nil {
		b.timer.Stop()
	}
	return b
}

// dispatch waits for the previous batch and resolves b.
func (l *Loader[K, V]) dispatch(b *batch[K]) {
	l.flushing.Lock()
	defer l.flushing.Unlock()
	l.resolveBatch(b)
}

// resolveBatch calls the resolver once for b, stores the outcomes and resolves every waiting Future.
func (l *Loader[K, V]) resolveBatch(b *batch[K]) {
	logger := l.logger.WithFields(logrus.Fields{"batch": b.id, "keys": len(b.keys)})
	logger.Debug("dispatching batch")

	outcomes, err := l.resolve(b)
	if err == nil && len(outcomes) != len(b.keys) {
		err = fmt.Errorf("%w: %d outcomes for %d keys", ErrOutcomeMismatch, len(outcomes), len(b.keys))
	}

	var entries []*CacheEntry[string, V]
	if err != nil {
		logger.WithField("error", err).Error("batch resolution failed")
		entries = l.failAll(b)
	} else {
		entries = l.toEntries(b, outcomes, logger)
	}

	if err := l.storage.SetMulti(l.context(), entries); err != nil {
		logger.WithField("error", err).Error("unable to store batch outcomes")
	}
	l.settle(b, entries)
}

type resolveResult[V ValueConstraint] struct {
	outcomes []Outcome[V]
	err      error
}

// resolve calls the resolver on its own goroutine so that runtime.Goexit in the resolver
// cannot end the dispatching goroutine, which may be a caller of Flush.
func (l *Loader[K, V]) resolve(b *batch[K]) ([]Outcome[V], error) {
	done := make(chan resolveResult[V], 1)
	go func() {
		dds := panicutil.DoubleDeferSandwich{
			OnGoexit: func() {
				done <- resolveResult[V]{err: errGoexit}
			},
		}
		var outcomes []Outcome[V]
		err := dds.Invoke(func() (err error) {
			outcomes, err = l.resolver.Resolve(l.context(), b.keys)
			return
		})
		done <- resolveResult[V]{outcomes: outcomes, err: err}
	}()
	r := <-done
	return r.outcomes, r.err
}

// toEntries converts outcomes into cache entries aligned with b.cacheKeys.
func (l *Loader[K, V]) toEntries(b *batch[K], outcomes []Outcome[V], logger logrus.FieldLogger) []*CacheEntry[string, V] {
	now := l.clock.Now()
	entries := make([]*CacheEntry[string, V], len(outcomes))
	for i, o := range outcomes {
		ck := b.cacheKeys[i]
		if o.Err != nil {
			logger.WithFields(logrus.Fields{"cache_key": ck, "error": o.Err}).Warn("key resolution failed")
			entries[i] = l.negativeEntry(ck, now)
			continue
		}
		entries[i] = &CacheEntry[string, V]{
			Entry:     Entry[string, V]{Key: ck, Value: o.Value},
			ExpiresAt: expiresAfter(now, l.ttl),
		}
	}
	return entries
}

// failAll returns negative entries for every key of b.
func (l *Loader[K, V]) failAll(b *batch[K]) []*CacheEntry[string, V] {
	now := l.clock.Now()
	entries := make([]*CacheEntry[string, V], len(b.cacheKeys))
	for i, ck := range b.cacheKeys {
		entries[i] = l.negativeEntry(ck, now)
	}
	return entries
}

func (l *Loader[K, V]) negativeEntry(ck string, now time.Time) *CacheEntry[string, V] {
	return &CacheEntry[string, V]{
		Entry:         Entry[string, V]{Key: ck},
		ExpiresAt:     expiresAfter(now, l.failureTTL),
		NegativeCache: true,
	}
}

// settle resolves the Futures of b with entries and forgets them.
func (l *Loader[K, V]) settle(b *batch[K], entries []*CacheEntry[string, V]) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, ck := range b.cacheKeys {
		f, ok := l.inflight[ck]
		if !ok {
			continue
		}
		delete(l.inflight, ck)
		if entries[i].NegativeCache {
			f.resolve(nil)
		} else {
			f.resolve(&entries[i].Entry)
		}
	}
	l.settled++
}
