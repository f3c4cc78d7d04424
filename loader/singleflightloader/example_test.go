package singleflightloader_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/karupanerura/batchloader"
	"github.com/karupanerura/batchloader/loader/singleflightloader"
	"github.com/karupanerura/batchloader/source"
	"github.com/karupanerura/batchloader/storage/memstorage"
)

func ExampleNewSingleFlightLoader() {
	var calls atomic.Int32
	src := &source.FunctionsSource[string, string]{
		GetFunc: func(_ context.Context, key string) (*batchloader.CacheEntry[string, string], error) {
			calls.Add(1)
			time.Sleep(50 * time.Millisecond)
			return &batchloader.CacheEntry[string, string]{
				Entry:     batchloader.Entry[string, string]{Key: key, Value: "token-for-" + key},
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}

	cache := &batchloader.LoadingCache[string, string]{
		Storage: memstorage.New[string, string](),
	}
	cache.Loader = singleflightloader.NewSingleFlightLoader(cache.Storage, src)

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cache.GetOrLoad(context.Background(), "catalog")
		}()
	}
	wg.Wait()

	entry, _ := cache.GetOrLoad(context.Background(), "catalog")
	fmt.Println(entry.Value)
	fmt.Println(calls.Load() >= 1)
	// Output:
	// token-for-catalog
	// true
}
