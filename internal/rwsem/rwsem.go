// Copyright 2025 The corelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rwsem implements a spinning reader-writer semaphore on a single
// 32-bit word.
//
// Layout of the state word:
//
//	bit 31      writer flag (set by a writer that holds or is draining)
//	bits 0..30  number of readers holding the semaphore
//
// A writer first claims the writer flag, which blocks new readers, and then
// waits for the readers already inside to leave. Sem performs no
// ownership tracking and no annotations; callers that need those wrap it.
package rwsem

import (
	"sync/atomic"

	"github.com/kolkov/corelock/internal/spinwait"
)

const (
	writeFlag   uint32 = 1 << 31
	readersMask uint32 = writeFlag - 1
)

// Sem is a reader-writer spin semaphore. The zero value is unlocked.
type Sem struct {
	state atomic.Uint32
}

// RLock acquires the semaphore in shared mode.
func (s *Sem) RLock() {
	if s.TryRLock() {
		return
	}
	// Only a writer can make TryRLock fail, so wait for the flag to clear
	// before trying again.
	var w spinwait.Waiter
	for {
		w.Wait()
		if s.state.Load()&writeFlag == 0 && s.TryRLock() {
			return
		}
	}
}

// TryRLock acquires the semaphore in shared mode unless a writer holds or
// is draining it, and reports whether it did. Other readers arriving or
// leaving at the same time never make it fail.
func (s *Sem) TryRLock() bool {
	for {
		cur := s.state.Load()
		if cur&writeFlag != 0 {
			return false
		}
		if s.state.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// RUnlock releases one shared hold.
func (s *Sem) RUnlock() {
	s.state.Add(^uint32(0))
}

// TryLock attempts to acquire the semaphore in exclusive mode without
// waiting for anything.
func (s *Sem) TryLock() bool {
	return s.state.CompareAndSwap(0, writeFlag)
}

// Lock acquires the semaphore in exclusive mode.
func (s *Sem) Lock() {
	if s.TryLock() {
		return
	}

	// Claim the writer flag. Only one writer can own it at a time.
	var w spinwait.Waiter
	for {
		cur := s.state.Load() & readersMask
		if s.state.CompareAndSwap(cur, cur|writeFlag) {
			break
		}
		w.Wait()
	}

	// Drain readers that got in before the flag was set.
	w.Reset()
	for s.state.Load()&readersMask != 0 {
		w.Wait()
	}
}

// Unlock releases the exclusive hold.
func (s *Sem) Unlock() {
	s.state.Store(0)
}

// IsWriteLocked reports whether a writer holds or is acquiring the
// semaphore. The answer may be stale by the time it is returned.
func (s *Sem) IsWriteLocked() bool {
	return s.state.Load()&writeFlag != 0
}

// IsLocked reports whether the semaphore is held in any mode. The answer
// may be stale by the time it is returned.
func (s *Sem) IsLocked() bool {
	return s.state.Load() != 0
}

// Readers returns the current number of shared holders.
func (s *Sem) Readers() int {
	return int(s.state.Load() & readersMask)
}
