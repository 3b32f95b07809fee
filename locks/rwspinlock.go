// Copyright 2025 The corelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package locks

import (
	"sync"
	"unsafe"

	"github.com/kolkov/corelock/internal/rwsem"
	"github.com/kolkov/corelock/race"
)

// RWSpinLock is a spinning reader-writer lock that reports every
// acquisition and release to a race.Observer.
//
// Use it when the goroutine that takes the lock is the one that releases
// it; the default observer in race builds checks exactly that. The zero
// value is unlocked and reports to race.Default().
//
// Acquired events are sent after the lock is held and Released events
// before it is let go, so the observer's view never runs ahead of the
// lock. Shared events use race.Shared (slot 0) and exclusive events
// race.Exclusive (slot 1).
type RWSpinLock struct {
	sem rwsem.Sem
	obs race.Observer
}

// NewRWSpinLock returns an unlocked RWSpinLock reporting to obs, or to
// race.Default() if obs is nil, and announces its creation.
func NewRWSpinLock(obs race.Observer) *RWSpinLock {
	l := &RWSpinLock{}
	l.init(obs)
	return l
}

func (l *RWSpinLock) init(obs race.Observer) {
	l.obs = obs
	l.observer().Created(l.ptr())
}

// Destroy announces that l will no longer be used. l must be unlocked.
func (l *RWSpinLock) Destroy() {
	l.observer().Destroyed(l.ptr())
}

// RLock acquires l in shared mode.
func (l *RWSpinLock) RLock() {
	l.sem.RLock()
	l.observer().Acquired(l.ptr(), race.Shared)
}

// TryRLock acquires l in shared mode if no writer holds or waits for it,
// and reports whether it did.
func (l *RWSpinLock) TryRLock() bool {
	if !l.sem.TryRLock() {
		return false
	}
	l.observer().Acquired(l.ptr(), race.Shared)
	return true
}

// RUnlock releases one shared hold.
func (l *RWSpinLock) RUnlock() {
	l.observer().Released(l.ptr(), race.Shared)
	l.sem.RUnlock()
}

// Lock acquires l in exclusive mode.
func (l *RWSpinLock) Lock() {
	l.sem.Lock()
	l.observer().Acquired(l.ptr(), race.Exclusive)
}

// TryLock acquires l in exclusive mode if it is free, and reports whether
// it did. The observer hears about successful attempts only.
func (l *RWSpinLock) TryLock() bool {
	if !l.sem.TryLock() {
		return false
	}
	l.observer().Acquired(l.ptr(), race.Exclusive)
	return true
}

// Unlock releases the exclusive hold.
func (l *RWSpinLock) Unlock() {
	l.observer().Released(l.ptr(), race.Exclusive)
	l.sem.Unlock()
}

// IsWriteLocked reports whether a writer holds l. Like
// SpinLock.IsLocked, the answer is only good for assertions.
func (l *RWSpinLock) IsWriteLocked() bool {
	return l.sem.IsWriteLocked()
}

// IsLocked reports whether l is held in any mode. Like
// SpinLock.IsLocked, the answer is only good for assertions.
func (l *RWSpinLock) IsLocked() bool {
	return l.sem.IsLocked()
}

// RLocker returns a sync.Locker whose Lock and Unlock call RLock and
// RUnlock.
func (l *RWSpinLock) RLocker() sync.Locker {
	return (*rlocker)(l)
}

type rlocker RWSpinLock

func (r *rlocker) Lock()   { (*RWSpinLock)(r).RLock() }
func (r *rlocker) Unlock() { (*RWSpinLock)(r).RUnlock() }

func (l *RWSpinLock) observer() race.Observer {
	if l.obs != nil {
		return l.obs
	}
	return race.Default()
}

// ptr identifies l to its observer. Handing it to the observer moves l to
// the heap, where its address stays put.
func (l *RWSpinLock) ptr() unsafe.Pointer {
	return unsafe.Pointer(l)
}
