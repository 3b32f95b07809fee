// Copyright 2025 The corelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package locks

import (
	"sync/atomic"

	"github.com/kolkov/corelock/internal/spinwait"
)

// SpinLock is a non-reentrant mutual exclusion lock that spins instead of
// parking the goroutine. The zero value is unlocked.
//
// It suits critical sections of a few instructions. Locking it twice from
// the same goroutine deadlocks; unlocking it while unlocked, or from a
// goroutine that did not lock it, is undefined.
type SpinLock struct {
	state atomic.Uint32
}

// Lock acquires l, spinning with backoff until it is free.
func (l *SpinLock) Lock() {
	if l.TryLock() {
		return
	}
	var w spinwait.Waiter
	for {
		w.Wait()
		// Read before trying, so waiters don't bounce the cache line
		// with failing CASes.
		if l.state.Load() == 0 && l.TryLock() {
			return
		}
	}
}

// Unlock releases l.
func (l *SpinLock) Unlock() {
	l.state.Store(0)
}

// TryLock acquires l if it is free and reports whether it did. On failure
// nothing changes.
func (l *SpinLock) TryLock() bool {
	return l.state.CompareAndSwap(0, 1)
}

// IsLocked reports whether some goroutine holds l.
//
// The answer can change at any instant, so it is only useful for
// assertions made while expecting to hold the lock. A true result does not
// prove the caller is the holder, but a false one proves it is not.
func (l *SpinLock) IsLocked() bool {
	return l.state.Load() != 0
}
