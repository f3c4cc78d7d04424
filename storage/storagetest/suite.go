// Package storagetest provides the behavior suite shared by the CacheStorage implementations.
package storagetest

import (
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"github.com/karupanerura/batchloader"
)

// Item is the value type stored by the suite. It has a slice field so that sharing is observable.
type Item struct {
	SKU  string   `json:"sku"`
	Tags []string `json:"tags"`
}

// Clone returns a deep copy of the item.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	return &Item{SKU: i.SKU, Tags: slices.Clone(i.Tags)}
}

// Provider creates an empty storage reading the time from clock.
// Storages that hold external resources release them with t.Cleanup.
type Provider func(t *testing.T, clock batchloader.Clock) batchloader.CacheStorage[string, *Item]

func entry(key string, expiresAt time.Time, tags ...string) *batchloader.CacheEntry[string, *Item] {
	return &batchloader.CacheEntry[string, *Item]{
		Entry:     batchloader.Entry[string, *Item]{Key: key, Value: &Item{SKU: key, Tags: tags}},
		ExpiresAt: expiresAt,
	}
}

func negative(key string, expiresAt time.Time) *batchloader.CacheEntry[string, *Item] {
	return &batchloader.CacheEntry[string, *Item]{
		Entry:         batchloader.Entry[string, *Item]{Key: key},
		ExpiresAt:     expiresAt,
		NegativeCache: true,
	}
}

// Run runs every test of the suite against storages created by provider.
func Run(t *testing.T, provider Provider) {
	t.Run("SetAndGet", func(t *testing.T) {
		t.Parallel()
		TestSetAndGet(t, provider)
	})
	t.Run("NegativeCache", func(t *testing.T) {
		t.Parallel()
		TestNegativeCache(t, provider)
	})
	t.Run("Expiration", func(t *testing.T) {
		t.Parallel()
		TestExpiration(t, provider)
	})
	t.Run("Multi", func(t *testing.T) {
		t.Parallel()
		TestMulti(t, provider)
	})
	t.Run("DeleteAndClear", func(t *testing.T) {
		t.Parallel()
		TestDeleteAndClear(t, provider)
	})
	t.Run("Clone", func(t *testing.T) {
		t.Parallel()
		TestClone(t, provider)
	})
	t.Run("Concurrency", func(t *testing.T) {
		t.Parallel()
		TestConcurrency(t, provider)
	})
}

// TestSetAndGet checks that a stored entry is returned and can be overwritten.
func TestSetAndGet(t *testing.T, provider Provider) {
	clock := batchloader.NewFixedClock(time.Now())
	s := provider(t, clock)
	expiresAt := clock.Now().Add(time.Hour)

	got, err := s.Get(t.Context(), "S1")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected a miss on an empty storage, got %+v", got)
	}

	want := entry("S1", expiresAt, "shirt")
	if err := s.Set(t.Context(), want); err != nil {
		t.Fatal(err)
	}
	got, err = s.Get(t.Context(), "S1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entry diff (-want +got):\n%s", diff)
	}

	want = entry("S1", expiresAt, "shirt", "sale")
	if err := s.Set(t.Context(), want); err != nil {
		t.Fatal(err)
	}
	got, err = s.Get(t.Context(), "S1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("overwritten entry diff (-want +got):\n%s", diff)
	}

	forever := entry("S2", batchloader.NeverExpires)
	if err := s.Set(t.Context(), forever); err != nil {
		t.Fatal(err)
	}
	clock.Advance(24 * 365 * time.Hour)
	got, err = s.Get(t.Context(), "S2")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(forever, got); diff != "" {
		t.Errorf("NeverExpires entry diff (-want +got):\n%s", diff)
	}
}

// TestNegativeCache checks that a negative entry is kept apart from a miss.
func TestNegativeCache(t *testing.T, provider Provider) {
	clock := batchloader.NewFixedClock(time.Now())
	s := provider(t, clock)

	want := negative("UNKNOWN", clock.Now().Add(time.Hour))
	if err := s.Set(t.Context(), want); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(t.Context(), "UNKNOWN")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("negative entry diff (-want +got):\n%s", diff)
	}

	clock.Advance(time.Hour)
	got, err = s.Get(t.Context(), "UNKNOWN")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("expected an expired negative entry to be a miss, got %+v", got)
	}
}

// TestExpiration checks that entries stop being served at their deadline.
func TestExpiration(t *testing.T, provider Provider) {
	clock := batchloader.NewFixedClock(time.Now())
	s := provider(t, clock)

	want := entry("S1", clock.Now().Add(time.Hour))
	if err := s.Set(t.Context(), want); err != nil {
		t.Fatal(err)
	}

	clock.Advance(time.Hour - time.Second)
	got, err := s.Get(t.Context(), "S1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entry diff just before expiration (-want +got):\n%s", diff)
	}

	clock.Advance(time.Second)
	got, err = s.Get(t.Context(), "S1")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("expected a miss at the deadline, got %+v", got)
	}

	multi, err := s.GetMulti(t.Context(), []string{"S1"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]*batchloader.CacheEntry[string, *Item]{nil}, multi); diff != "" {
		t.Errorf("GetMulti diff at the deadline (-want +got):\n%s", diff)
	}
}

// TestMulti checks SetMulti and GetMulti ordering, nil handling and duplicates.
func TestMulti(t *testing.T, provider Provider) {
	clock := batchloader.NewFixedClock(time.Now())
	s := provider(t, clock)
	expiresAt := clock.Now().Add(time.Hour)

	entries := []*batchloader.CacheEntry[string, *Item]{
		entry("S1", expiresAt, "shirt"),
		nil,
		negative("S9", expiresAt),
		entry("S2", expiresAt, "shoe"),
	}
	if err := s.SetMulti(t.Context(), entries); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetMulti(t.Context(), []string{"S2", "missing", "S9", "S1", "S2"})
	if err != nil {
		t.Fatal(err)
	}
	want := []*batchloader.CacheEntry[string, *Item]{entries[3], nil, entries[2], entries[0], entries[3]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetMulti diff (-want +got):\n%s", diff)
	}

	got, err = s.GetMulti(t.Context(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no entries for no keys, got %d", len(got))
	}

	if err := s.SetMulti(t.Context(), nil); err != nil {
		t.Errorf("SetMulti without entries: %v", err)
	}
}

// TestDeleteAndClear checks removal of one key and of every key.
func TestDeleteAndClear(t *testing.T, provider Provider) {
	clock := batchloader.NewFixedClock(time.Now())
	s := provider(t, clock)
	expiresAt := clock.Now().Add(time.Hour)

	if err := s.SetMulti(t.Context(), []*batchloader.CacheEntry[string, *Item]{
		entry("S1", expiresAt),
		entry("S2", expiresAt),
		negative("S3", expiresAt),
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(t.Context(), "S1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(t.Context(), "missing"); err != nil {
		t.Errorf("deleting a missing key: %v", err)
	}
	got, err := s.GetMulti(t.Context(), []string{"S1", "S2", "S3"})
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != nil || got[1] == nil || got[2] == nil {
		t.Errorf("expected only S1 to be deleted, got %+v", got)
	}

	if err := s.Clear(t.Context()); err != nil {
		t.Fatal(err)
	}
	got, err = s.GetMulti(t.Context(), []string{"S1", "S2", "S3"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]*batchloader.CacheEntry[string, *Item]{nil, nil, nil}, got); diff != "" {
		t.Errorf("entries after Clear (-want +got):\n%s", diff)
	}

	// the storage stays usable after Clear
	want := entry("S4", expiresAt)
	if err := s.Set(t.Context(), want); err != nil {
		t.Fatal(err)
	}
	one, err := s.Get(t.Context(), "S4")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, one); diff != "" {
		t.Errorf("entry after Clear diff (-want +got):\n%s", diff)
	}
}

// TestClone checks that neither the caller's entry nor a returned entry shares memory with the stored one.
func TestClone(t *testing.T, provider Provider) {
	clock := batchloader.NewFixedClock(time.Now())
	s := provider(t, clock)

	original := entry("S1", clock.Now().Add(time.Hour), "shirt")
	if err := s.Set(t.Context(), original); err != nil {
		t.Fatal(err)
	}
	original.Value.Tags[0] = "mutated by the writer"

	first, err := s.Get(t.Context(), "S1")
	if err != nil {
		t.Fatal(err)
	}
	if first.Value == original.Value {
		t.Fatal("stored value must be cloned")
	}
	if first.Value.Tags[0] != "shirt" {
		t.Errorf("writer mutation leaked into the storage: %q", first.Value.Tags[0])
	}

	first.Value.Tags[0] = "mutated by a reader"
	second, err := s.Get(t.Context(), "S1")
	if err != nil {
		t.Fatal(err)
	}
	if second.Value == first.Value {
		t.Fatal("returned value must be cloned")
	}
	if second.Value.Tags[0] != "shirt" {
		t.Errorf("reader mutation leaked into the storage: %q", second.Value.Tags[0])
	}
}

// TestConcurrency checks concurrent writers and readers of disjoint and shared keys.
func TestConcurrency(t *testing.T, provider Provider) {
	clock := batchloader.NewFixedClock(time.Now())
	s := provider(t, clock)
	expiresAt := clock.Now().Add(time.Hour)

	const writers = 8
	const keysPerWriter = 16

	var eg errgroup.Group
	for w := range writers {
		eg.Go(func() error {
			entries := make([]*batchloader.CacheEntry[string, *Item], keysPerWriter)
			for i := range entries {
				entries[i] = entry(fmt.Sprintf("w%d-k%d", w, i), expiresAt)
			}
			if err := s.SetMulti(t.Context(), entries); err != nil {
				return err
			}
			return s.Set(t.Context(), entry("shared", expiresAt))
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	misses := 0
	eg = errgroup.Group{}
	for w := range writers {
		eg.Go(func() error {
			keys := make([]string, keysPerWriter)
			for i := range keys {
				keys[i] = fmt.Sprintf("w%d-k%d", w, i)
			}
			got, err := s.GetMulti(t.Context(), keys)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for i, e := range got {
				if e == nil || e.Key != keys[i] {
					misses++
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}
	if misses != 0 {
		t.Errorf("%d keys were lost or misplaced", misses)
	}

	shared, err := s.Get(t.Context(), "shared")
	if err != nil {
		t.Fatal(err)
	}
	if shared == nil {
		t.Error("shared key is missing")
	}
}
