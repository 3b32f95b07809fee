// Copyright 2025 The corelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package race defines the annotation hooks that locks report to.
//
// See doc.go for detailed documentation and examples.
package race

import (
	"sync/atomic"
	"unsafe"
)

// Mode is the mode a lock is acquired or released in. Its value is the
// slot id used to tell shared and exclusive events apart.
type Mode int

const (
	// Shared is reader mode, slot 0.
	Shared Mode = 0

	// Exclusive is writer mode, slot 1.
	Exclusive Mode = 1
)

// String returns "shared" or "exclusive".
func (m Mode) String() string {
	switch m {
	case Shared:
		return "shared"
	case Exclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}

// Observer receives lock lifecycle events.
//
// Locks call Acquired after they are physically held and Released before
// they are physically released, so an observer never sees a lock as free
// while it is held or as held before it is. Observers are called on the
// lock's hot path and from many goroutines at once.
//
// lock points at the lock that sent the event. Passing it through this
// interface moves the lock to the heap, so the pointer stays the same for
// the lock's whole life. Observers that key state on it should keep the
// address rather than the pointer, or the lock is never collected.
type Observer interface {
	// Created is called when lock is constructed.
	Created(lock unsafe.Pointer)

	// Destroyed is called when lock is torn down.
	Destroyed(lock unsafe.Pointer)

	// Acquired is called once the calling goroutine holds lock in mode.
	Acquired(lock unsafe.Pointer, mode Mode)

	// Released is called right before the calling goroutine gives up its
	// hold on lock in mode.
	Released(lock unsafe.Pointer, mode Mode)
}

// Nop is an Observer that ignores every event.
type Nop struct{}

func (Nop) Created(unsafe.Pointer)        {}
func (Nop) Destroyed(unsafe.Pointer)      {}
func (Nop) Acquired(unsafe.Pointer, Mode) {}
func (Nop) Released(unsafe.Pointer, Mode) {}

// observerBox lets an interface value live behind an atomic.Pointer.
type observerBox struct {
	obs Observer
}

var defaultObserver atomic.Pointer[observerBox]

func init() {
	defaultObserver.Store(&observerBox{obs: buildDefault()})
}

// Default returns the process-wide Observer used by locks that were not
// given one explicitly.
//
// In builds with the race tag (go test -race) the default is a Checker
// that logs every violation; otherwise it is Nop.
func Default() Observer {
	return defaultObserver.Load().obs
}

// SetDefault replaces the process-wide Observer and returns the previous
// one. A nil obs installs Nop.
//
// Locks look the default up on every event, so a lock that is held while
// the default changes reports its release to the new observer. Swap
// defaults only while no default-observed lock is held.
func SetDefault(obs Observer) Observer {
	if obs == nil {
		obs = Nop{}
	}
	return defaultObserver.Swap(&observerBox{obs: obs}).obs
}

// Enable installs a fresh Checker as the process-wide Observer and returns
// it.
//
//	func TestMain(m *testing.M) {
//		race.Enable()
//		os.Exit(m.Run())
//	}
func Enable(opts ...CheckerOption) *Checker {
	c := NewChecker(opts...)
	SetDefault(c)
	return c
}

// Disable installs Nop as the process-wide Observer.
func Disable() {
	SetDefault(Nop{})
}
