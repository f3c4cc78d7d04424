package lrustorage_test

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/karupanerura/batchloader"
	"github.com/karupanerura/batchloader/storage/lrustorage"
	"github.com/karupanerura/batchloader/storage/storagetest"
)

func TestStorage(t *testing.T) {
	t.Parallel()

	storagetest.Run(t, func(t *testing.T, clock batchloader.Clock) batchloader.CacheStorage[string, *storagetest.Item] {
		s, err := lrustorage.New(1024, lrustorage.WithClock[string, *storagetest.Item](clock))
		if err != nil {
			t.Fatal(err)
		}
		return s
	})
}

func TestNew_InvalidSize(t *testing.T) {
	t.Parallel()

	if _, err := lrustorage.New[string, int](0); err == nil {
		t.Error("expected an error for size 0")
	}
}

func TestStorage_Eviction(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		evicted []string
	)
	s, err := lrustorage.New(2, lrustorage.WithOnEvict[string, int](func(key string) {
		mu.Lock()
		defer mu.Unlock()
		evicted = append(evicted, key)
	}))
	if err != nil {
		t.Fatal(err)
	}

	set := func(key string, value int) {
		t.Helper()
		if err := s.Set(t.Context(), &batchloader.CacheEntry[string, int]{
			Entry:     batchloader.Entry[string, int]{Key: key, Value: value},
			ExpiresAt: batchloader.NeverExpires,
		}); err != nil {
			t.Fatal(err)
		}
	}

	set("S1", 1)
	set("S2", 2)
	// reading S1 makes S2 the least recently used
	if got, _ := s.Get(t.Context(), "S1"); got == nil {
		t.Fatal("expected S1 to be cached")
	}
	set("S3", 3)

	got, err := s.GetMulti(t.Context(), []string{"S1", "S2", "S3"})
	if err != nil {
		t.Fatal(err)
	}
	if got[0] == nil || got[1] != nil || got[2] == nil {
		t.Errorf("expected S2 to be evicted, got %+v", got)
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", s.Len())
	}

	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff([]string{"S2"}, evicted); diff != "" {
		t.Errorf("unexpected evictions (-want +got):\n%s", diff)
	}
}
