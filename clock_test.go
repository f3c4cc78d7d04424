package batchloader_test

import (
	"testing"
	"time"

	"github.com/karupanerura/batchloader"
)

func TestFixedClock(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := batchloader.NewFixedClock(start)

	for range 3 {
		if got := clock.Now(); !got.Equal(start) {
			t.Errorf("expected %v, got %v", start, got)
		}
	}

	clock.Advance(90 * time.Second)
	if got, want := clock.Now(), start.Add(90*time.Second); !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestClockFunc(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := batchloader.ClockFunc(func() time.Time {
		return fixed
	})
	if got := clock.Now(); !got.Equal(fixed) {
		t.Errorf("expected %v, got %v", fixed, got)
	}
}

func TestSystemClock(t *testing.T) {
	t.Parallel()

	before := time.Now()
	got := batchloader.SystemClock.Now()
	if got.Before(before) || got.After(time.Now()) {
		t.Errorf("expected the current time, got %v", got)
	}
}
