package memstorage_test

import (
	"context"
	"fmt"
	"time"

	"github.com/karupanerura/batchloader"
	"github.com/karupanerura/batchloader/expiration"
	"github.com/karupanerura/batchloader/storage/memstorage"
)

func ExampleNew() {
	s := memstorage.New[string, int]()

	ctx := context.Background()
	_ = s.Set(ctx, &batchloader.CacheEntry[string, int]{
		Entry:     batchloader.Entry[string, int]{Key: "S1", Value: 1999},
		ExpiresAt: batchloader.NeverExpires,
	})

	entry, _ := s.Get(ctx, "S1")
	fmt.Println(entry.Value)
	// Output: 1999
}

func ExampleNew_options() {
	s := memstorage.New(
		memstorage.WithBucketsSize[string, int](16),
		memstorage.WithExpirationPolicy[string, int](expiration.Leeway(30*time.Second)),
		memstorage.WithCloner[string, int](batchloader.NopValueCloner[int]{}),
	)

	_ = s
}
