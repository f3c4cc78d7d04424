package panicutil_test

import (
	"errors"
	"runtime"
	"sync"
	"testing"

	"github.com/sourcegraph/conc/panics"

	"github.com/karupanerura/batchloader/internal/panicutil"
)

func TestDDS(t *testing.T) {
	t.Parallel()

	errResolve := errors.New("resolve failed")
	for _, tt := range []struct {
		name       string
		f          func() error
		wantErr    error
		wantPanic  any
		isRecovery bool
	}{
		{
			name: "nil error",
			f:    func() error { return nil },
		},
		{
			name:    "returned error",
			f:       func() error { return errResolve },
			wantErr: errResolve,
		},
		{
			name:       "panic with string",
			f:          func() error { panic("boom") },
			wantPanic:  "boom",
			isRecovery: true,
		},
		{
			name:       "panic with error",
			f:          func() error { panic(errResolve) },
			wantPanic:  errResolve,
			isRecovery: true,
		},
		{
			name: "nested returned error",
			f: func() error {
				return panicutil.DDS(func() error { return errResolve })
			},
			wantErr: errResolve,
		},
		{
			name: "nested panic",
			f: func() error {
				return panicutil.DDS(func() error { panic("inner") })
			},
			wantPanic:  "inner",
			isRecovery: true,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := panicutil.DDS(tt.f)
			if !tt.isRecovery {
				if err != tt.wantErr {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}

			var recovered *panics.ErrRecovered
			if !errors.As(err, &recovered) {
				t.Fatalf("expected *panics.ErrRecovered, got %T", err)
			}
			if recovered.Value != tt.wantPanic {
				t.Errorf("expected panic value %v, got %v", tt.wantPanic, recovered.Value)
			}
		})
	}
}

func TestDoubleDeferSandwich_OnGoexit(t *testing.T) {
	t.Parallel()

	t.Run("called on Goexit", func(t *testing.T) {
		t.Parallel()

		var (
			wg       sync.WaitGroup
			called   bool
			returned bool
		)
		dds := panicutil.DoubleDeferSandwich{OnGoexit: func() { called = true }}

		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = dds.Invoke(func() error {
				runtime.Goexit()
				return nil
			})
			returned = true
		}()
		wg.Wait()

		if !called {
			t.Error("OnGoexit was not called")
		}
		if returned {
			t.Error("Invoke returned after Goexit")
		}
	})

	t.Run("not called on panic", func(t *testing.T) {
		t.Parallel()

		called := false
		dds := panicutil.DoubleDeferSandwich{OnGoexit: func() { called = true }}
		if err := dds.Invoke(func() error { panic("boom") }); err == nil {
			t.Error("expected an error")
		}
		if called {
			t.Error("OnGoexit was called for a panic")
		}
	})

	t.Run("nested Goexit without hook", func(t *testing.T) {
		t.Parallel()

		var wg sync.WaitGroup
		var err error
		wg.Add(1)
		go func() {
			defer wg.Done()
			err = panicutil.DDS(func() error {
				return panicutil.DDS(func() error {
					runtime.Goexit()
					return nil
				})
			})
		}()
		wg.Wait()

		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}
