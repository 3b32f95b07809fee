// Copyright 2025 The corelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package race

import (
	"sync"
	"unsafe"

	log "github.com/sirupsen/logrus"

	"github.com/kolkov/corelock/internal/goid"
	"github.com/kolkov/corelock/internal/race/lockshadow"
	"github.com/kolkov/corelock/internal/race/stackdepot"
)

// stackSkip hides Checker.capture, the Observer method and the lock method
// that called it, so recorded stacks start at the code using the lock.
const stackSkip = 3

// Checker is an Observer that tracks which goroutine holds each lock and
// reports misuse.
//
// It catches:
//   - unlocking a lock nobody holds in that mode
//   - unlocking from a goroutine other than the one that locked
//   - destroying a lock that is still held
//   - releasing or destroying a destroyed lock
//   - incompatible holders observed together (a broken primitive)
//
// Every event identifies the calling goroutine by parsing its stack
// header, so a Checker is meant for tests and debug builds.
//
// Thread Safety: All methods are safe for concurrent calls.
type Checker struct {
	shadow  *lockshadow.LockShadow
	logger  *log.Logger
	handler func(Violation)
	stacks  bool

	mu         sync.Mutex
	violations []Violation
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithHandler sets the function called for each violation, replacing the
// default of logging it. The handler runs on the goroutine that caused
// the violation.
func WithHandler(fn func(Violation)) CheckerOption {
	return func(c *Checker) { c.handler = fn }
}

// WithLogger sets the logger used by the default handler.
func WithLogger(l *log.Logger) CheckerOption {
	return func(c *Checker) { c.logger = l }
}

// WithoutStacks disables stack capture. Reports then name goroutines but
// not code locations.
func WithoutStacks() CheckerOption {
	return func(c *Checker) { c.stacks = false }
}

// NewChecker returns a Checker that logs violations to the standard
// logrus logger unless configured otherwise.
func NewChecker(opts ...CheckerOption) *Checker {
	c := &Checker{
		shadow: lockshadow.New(),
		logger: log.StandardLogger(),
		stacks: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.handler == nil {
		c.handler = c.logViolation
	}
	return c
}

// Created implements Observer.
func (c *Checker) Created(lock unsafe.Pointer) {
	c.shadow.Create(lock)
}

// Destroyed implements Observer.
func (c *Checker) Destroyed(lock unsafe.Pointer) {
	kind, holders := c.shadow.GetOrCreate(lock).Destroy()
	if kind != lockshadow.OK {
		c.report(kind, uintptr(lock), Exclusive, goid.Get(), c.capture(), holders)
	}
}

// Acquired implements Observer.
func (c *Checker) Acquired(lock unsafe.Pointer, mode Mode) {
	h := lockshadow.Holder{
		Goroutine: goid.Get(),
		Exclusive: mode == Exclusive,
		Stack:     c.capture(),
	}
	kind, holders := c.shadow.GetOrCreate(lock).Acquire(h)
	if kind != lockshadow.OK {
		c.report(kind, uintptr(lock), mode, h.Goroutine, h.Stack, holders)
	}
}

// Released implements Observer.
func (c *Checker) Released(lock unsafe.Pointer, mode Mode) {
	gid := goid.Get()
	kind, holders := c.shadow.GetOrCreate(lock).Release(gid, mode == Exclusive)
	if kind != lockshadow.OK {
		c.report(kind, uintptr(lock), mode, gid, c.capture(), holders)
	}
}

// Violations returns a copy of every violation recorded so far.
func (c *Checker) Violations() []Violation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Violation(nil), c.violations...)
}

// Holders returns the goroutines currently holding lock.
func (c *Checker) Holders(lock unsafe.Pointer) []Holder {
	v, ok := c.shadow.Lookup(lock)
	if !ok {
		return nil
	}
	return holdersFrom(v.Holders())
}

// Tracked returns the number of locks the checker knows about. Locks drop
// out some time after they become unreachable.
func (c *Checker) Tracked() int {
	return c.shadow.Len()
}

// Reset forgets all locks and recorded violations. It must not race with
// lock events.
func (c *Checker) Reset() {
	c.shadow.Reset()
	c.mu.Lock()
	c.violations = nil
	c.mu.Unlock()
}

func (c *Checker) capture() stackdepot.Handle {
	if !c.stacks {
		return 0
	}
	return stackdepot.Capture(stackSkip)
}

func (c *Checker) report(kind lockshadow.Kind, addr uintptr, mode Mode, gid int64,
	stack stackdepot.Handle, holders []lockshadow.Holder) {
	v := Violation{
		Kind:      kind,
		Addr:      addr,
		Mode:      mode,
		Goroutine: gid,
		Stack:     stackdepot.Lookup(stack).Format(),
		Holders:   holdersFrom(holders),
	}

	c.mu.Lock()
	c.violations = append(c.violations, v)
	c.mu.Unlock()

	c.handler(v)
}

func (c *Checker) logViolation(v Violation) {
	c.logger.WithFields(log.Fields{
		"kind":      v.Kind.String(),
		"addr":      v.AddrString(),
		"mode":      v.Mode.String(),
		"goroutine": v.Goroutine,
	}).Error(v.String())
}

func holdersFrom(hs []lockshadow.Holder) []Holder {
	if len(hs) == 0 {
		return nil
	}
	out := make([]Holder, len(hs))
	for i, h := range hs {
		mode := Shared
		if h.Exclusive {
			mode = Exclusive
		}
		out[i] = Holder{
			Goroutine: h.Goroutine,
			Mode:      mode,
			Stack:     stackdepot.Lookup(h.Stack).Format(),
		}
	}
	return out
}
