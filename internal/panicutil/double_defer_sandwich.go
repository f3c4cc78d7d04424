package panicutil

import (
	"github.com/sourcegraph/conc/panics"
)

// DDS calls f inside a DoubleDeferSandwich without a Goexit hook.
func DDS(f func() error) error {
	var dds DoubleDeferSandwich
	return dds.Invoke(f)
}

// DoubleDeferSandwich tells apart the three ways a callback can leave: returning, panicking, and runtime.Goexit.
type DoubleDeferSandwich struct {
	// OnGoexit runs on the calling goroutine when f calls runtime.Goexit.
	// Invoke does not return in that case, so OnGoexit is the only place to release waiters.
	OnGoexit func()
}

// Invoke calls f and returns its error.
// A panic in f is recovered and returned as *panics.ErrRecovered.
// If f calls runtime.Goexit, OnGoexit is called and the goroutine keeps exiting.
func (dds *DoubleDeferSandwich) Invoke(f func() error) (err error) {
	var (
		returned   bool
		panicked   bool
		panicValue panics.Recovered
	)
	defer func() {
		if returned {
			return
		}
		if panicked {
			err = panicValue.AsError()
			return
		}
		if dds.OnGoexit != nil {
			dds.OnGoexit()
		}
	}()
	func() {
		defer func() {
			if !returned {
				panicValue = panics.NewRecovered(2, recover())
			}
		}()
		err = f()
		returned = true
	}()
	// reached only after a recovered panic; Goexit skips this line
	panicked = !returned
	return
}
