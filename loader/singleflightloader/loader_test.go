package singleflightloader_test

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sourcegraph/conc/panics"

	"github.com/karupanerura/batchloader"
	"github.com/karupanerura/batchloader/loader/singleflightloader"
	"github.com/karupanerura/batchloader/source"
	"github.com/karupanerura/batchloader/storage"
	"github.com/karupanerura/batchloader/storage/memstorage"
)

type token struct {
	Value  string
	Scopes []string
}

func (t *token) Clone() *token {
	return &token{Value: t.Value, Scopes: append([]string(nil), t.Scopes...)}
}

var expiresAt = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

func TestLoadAndStore(t *testing.T) {
	t.Parallel()

	errSource := errors.New("source failed")
	for _, tt := range []struct {
		name       string
		get        func(context.Context, string) (*batchloader.CacheEntry[string, string], error)
		wantEntry  *batchloader.Entry[string, string]
		wantErr    error
		wantStored *batchloader.CacheEntry[string, string]
	}{
		{
			name: "found",
			get: func(_ context.Context, key string) (*batchloader.CacheEntry[string, string], error) {
				return &batchloader.CacheEntry[string, string]{
					Entry:     batchloader.Entry[string, string]{Key: key, Value: "v:" + key},
					ExpiresAt: expiresAt,
				}, nil
			},
			wantEntry: &batchloader.Entry[string, string]{Key: "a", Value: "v:a"},
			wantStored: &batchloader.CacheEntry[string, string]{
				Entry:     batchloader.Entry[string, string]{Key: "a", Value: "v:a"},
				ExpiresAt: expiresAt,
			},
		},
		{
			name: "not found",
			get: func(context.Context, string) (*batchloader.CacheEntry[string, string], error) {
				return nil, nil
			},
		},
		{
			name: "negative",
			get: func(_ context.Context, key string) (*batchloader.CacheEntry[string, string], error) {
				return &batchloader.CacheEntry[string, string]{
					Entry:         batchloader.Entry[string, string]{Key: key},
					ExpiresAt:     expiresAt,
					NegativeCache: true,
				}, nil
			},
			wantStored: &batchloader.CacheEntry[string, string]{
				Entry:         batchloader.Entry[string, string]{Key: "a"},
				ExpiresAt:     expiresAt,
				NegativeCache: true,
			},
		},
		{
			name: "source error",
			get: func(context.Context, string) (*batchloader.CacheEntry[string, string], error) {
				return nil, errSource
			},
			wantErr: errSource,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var stored *batchloader.CacheEntry[string, string]
			st := &storage.FunctionsStorage[string, string]{
				SetFunc: func(_ context.Context, e *batchloader.CacheEntry[string, string]) error {
					stored = e
					return nil
				},
			}
			l := singleflightloader.NewSingleFlightLoader(st, &source.FunctionsSource[string, string]{GetFunc: tt.get})

			got, err := l.LoadAndStore(t.Context(), "a")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if diff := cmp.Diff(tt.wantEntry, got); diff != "" {
				t.Errorf("unexpected entry (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantStored, stored); diff != "" {
				t.Errorf("unexpected stored entry (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadAndStore_StorageError(t *testing.T) {
	t.Parallel()

	errStorage := errors.New("storage failed")
	st := &storage.FunctionsStorage[string, string]{
		SetFunc: func(context.Context, *batchloader.CacheEntry[string, string]) error { return errStorage },
	}
	src := &source.FunctionsSource[string, string]{
		GetFunc: func(_ context.Context, key string) (*batchloader.CacheEntry[string, string], error) {
			return &batchloader.CacheEntry[string, string]{Entry: batchloader.Entry[string, string]{Key: key}, ExpiresAt: expiresAt}, nil
		},
	}

	l := singleflightloader.NewSingleFlightLoader(st, src)
	if _, err := l.LoadAndStore(t.Context(), "a"); !errors.Is(err, errStorage) {
		t.Errorf("expected the storage error, got %v", err)
	}
}

func TestLoadAndStore_Panic(t *testing.T) {
	t.Parallel()

	src := &source.FunctionsSource[string, string]{
		GetFunc: func(context.Context, string) (*batchloader.CacheEntry[string, string], error) {
			panic("source panicked")
		},
	}
	l := singleflightloader.NewSingleFlightLoader(memstorage.New[string, string](), src)

	_, err := l.LoadAndStore(t.Context(), "a")
	var recovered *panics.ErrRecovered
	if !errors.As(err, &recovered) {
		t.Fatalf("expected *panics.ErrRecovered, got %T: %v", err, err)
	}
	if recovered.Value != "source panicked" {
		t.Errorf("unexpected panic value: %v", recovered.Value)
	}
}

func TestLoadAndStore_Goexit(t *testing.T) {
	t.Parallel()

	src := &source.FunctionsSource[string, string]{
		GetFunc: func(context.Context, string) (*batchloader.CacheEntry[string, string], error) {
			runtime.Goexit()
			return nil, nil
		},
	}
	l := singleflightloader.NewSingleFlightLoader(memstorage.New[string, string](), src)

	if _, err := l.LoadAndStore(t.Context(), "a"); !errors.Is(err, singleflightloader.ErrGoexit) {
		t.Errorf("expected ErrGoexit, got %v", err)
	}
}

func TestLoadAndStore_ContextDone(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	src := &source.FunctionsSource[string, string]{
		GetFunc: func(_ context.Context, key string) (*batchloader.CacheEntry[string, string], error) {
			<-release
			return &batchloader.CacheEntry[string, string]{
				Entry:     batchloader.Entry[string, string]{Key: key, Value: "late"},
				ExpiresAt: batchloader.NeverExpires,
			}, nil
		},
	}
	st := memstorage.New[string, string]()
	l := singleflightloader.NewSingleFlightLoader(st, src)

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.LoadAndStore(ctx, "a"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}

	// the abandoned load still completes for later callers
	close(release)
	got, err := l.LoadAndStore(t.Context(), "a")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Value != "late" {
		t.Errorf("unexpected entry: %+v", got)
	}
}

func TestLoadAndStore_Concurrent(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	src := &source.FunctionsSource[string, *token]{
		GetFunc: func(_ context.Context, key string) (*batchloader.CacheEntry[string, *token], error) {
			if calls.Add(1) == 1 {
				close(started)
			}
			<-release
			return &batchloader.CacheEntry[string, *token]{
				Entry:     batchloader.Entry[string, *token]{Key: key, Value: &token{Value: "secret", Scopes: []string{"read"}}},
				ExpiresAt: batchloader.NeverExpires,
			}, nil
		},
	}
	l := singleflightloader.NewSingleFlightLoader(
		memstorage.New[string, *token](),
		src,
		singleflightloader.WithBackgroundContextProvider[string, *token](context.Background),
	)

	const callers = 5
	results := make([]*batchloader.Entry[string, *token], callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := range callers {
		go func() {
			defer wg.Done()
			results[i], errs[i] = l.LoadAndStore(t.Context(), "client")
		}()
	}

	<-started
	// give the other callers time to join the load in flight
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("expected one source call, got %d", got)
	}
	for i := range callers {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if diff := cmp.Diff(&token{Value: "secret", Scopes: []string{"read"}}, results[i].Value); diff != "" {
			t.Errorf("caller %d: unexpected value (-want +got):\n%s", i, diff)
		}
	}
	for i := 1; i < callers; i++ {
		if results[i].Value == results[0].Value {
			t.Errorf("callers 0 and %d share a value", i)
		}
	}
}

func TestForget(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	release := make(chan struct{})
	src := &source.FunctionsSource[string, string]{
		GetFunc: func(_ context.Context, key string) (*batchloader.CacheEntry[string, string], error) {
			if calls.Add(1) == 1 {
				<-release
			}
			return &batchloader.CacheEntry[string, string]{
				Entry:     batchloader.Entry[string, string]{Key: key, Value: "v"},
				ExpiresAt: batchloader.NeverExpires,
			}, nil
		},
	}
	l := singleflightloader.NewSingleFlightLoader(
		memstorage.New[string, string](),
		src,
		singleflightloader.WithKeyString[string, string](func(key string) string { return key }),
	)

	first := make(chan error, 1)
	go func() {
		_, err := l.LoadAndStore(context.Background(), "a")
		first <- err
	}()
	for calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	l.Forget("a")
	if _, err := l.LoadAndStore(t.Context(), "a"); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected a second source call after Forget, got %d", got)
	}

	close(release)
	if err := <-first; err != nil {
		t.Fatal(err)
	}
}
