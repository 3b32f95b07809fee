// Copyright 2025 The corelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lockshadow

import (
	"runtime"
	"sync"
	"unsafe"
)

// LockShadow maps locks to their LockVar.
//
// Locks are identified by a pointer to their memory, which must be a
// heap or global address: stack memory moves. The table holds only the
// address, never the pointer, so it does not keep locks alive. When a
// heap lock becomes unreachable its entry is dropped by a runtime
// cleanup. Entries for locks in global variables live as long as the
// process, like the locks themselves.
//
// A destroyed lock keeps a tombstone entry so that later releases can be
// reported as use after destroy. The tombstone goes away with the lock's
// memory, or when the lock is announced again with Create.
//
// Thread Safety: All methods are safe for concurrent calls.
type LockShadow struct {
	vars sync.Map // uintptr -> *LockVar
}

// entry is what a cleanup needs to drop one LockVar, and only that one.
type entry struct {
	addr uintptr
	v    *LockVar
}

// New returns an empty LockShadow.
func New() *LockShadow {
	return &LockShadow{}
}

// GetOrCreate returns the LockVar for lock, creating it if needed.
func (s *LockShadow) GetOrCreate(lock unsafe.Pointer) *LockVar {
	addr := uintptr(lock)
	if v, ok := s.vars.Load(addr); ok {
		return v.(*LockVar)
	}
	fresh := newLockVar()
	v, loaded := s.vars.LoadOrStore(addr, fresh)
	if !loaded {
		s.track(lock, fresh)
	}
	return v.(*LockVar)
}

// Create starts tracking lock from a clean, unlocked state, replacing any
// previous entry for the same address.
func (s *LockShadow) Create(lock unsafe.Pointer) *LockVar {
	v := newLockVar()
	s.vars.Store(uintptr(lock), v)
	s.track(lock, v)
	return v
}

// Lookup returns the LockVar for lock without creating one.
func (s *LockShadow) Lookup(lock unsafe.Pointer) (*LockVar, bool) {
	v, ok := s.vars.Load(uintptr(lock))
	if !ok {
		return nil, false
	}
	return v.(*LockVar), true
}

// Len returns the number of tracked locks.
func (s *LockShadow) Len() int {
	n := 0
	s.vars.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Reset drops every entry.
func (s *LockShadow) Reset() {
	s.vars.Clear()
}

// track arranges for v to be dropped once the memory at lock is
// unreachable. Cleanups are no-ops for global variables.
func (s *LockShadow) track(lock unsafe.Pointer, v *LockVar) {
	if lock == nil {
		return
	}
	runtime.AddCleanup((*byte)(lock), s.drop, entry{addr: uintptr(lock), v: v})
}

// drop removes e's LockVar unless the address has since been announced
// again for a new lock.
func (s *LockShadow) drop(e entry) {
	s.vars.CompareAndDelete(e.addr, e.v)
}
