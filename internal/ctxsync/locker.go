package ctxsync

import (
	"context"
	"sync"
)

// CtxLocker wraps a sync.Locker so that waiting for the lock can be abandoned with a context.
type CtxLocker struct {
	sync.Locker
}

type tryLocker interface {
	TryLock() bool
}

// LockCtx acquires the lock or returns the context error, whichever comes first.
// A done context never acquires the lock, even if the lock is free.
// When the context wins, the lock is released as soon as the abandoned acquisition completes.
func (l *CtxLocker) LockCtx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tl, ok := l.Locker.(tryLocker); ok && tl.TryLock() {
		return nil
	}

	acquired := make(chan struct{})
	go func() {
		defer close(acquired)
		l.Locker.Lock()
	}()

	select {
	case <-acquired:
		return nil
	case <-ctx.Done():
		go func() {
			<-acquired
			l.Locker.Unlock()
		}()
		return ctx.Err()
	}
}
