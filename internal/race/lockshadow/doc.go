// Copyright 2025 The corelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lockshadow keeps shadow state for reader-writer locks.
//
// Every annotated lock maps to a LockVar recording who holds the lock
// right now:
//
//	writer   the goroutine holding it exclusively (0 if none)
//	readers  goroutine id -> number of shared holds
//
// Each holder also carries the stack it acquired from, so a report can
// show where the conflicting hold came from.
//
// Transitions and what they check:
//
//	Acquire(shared)     no writer
//	Acquire(exclusive)  no writer, no readers
//	Release(shared)     the caller holds shared
//	Release(exclusive)  the caller is the writer
//	Destroy             nobody holds the lock
//
// A destroyed lock accepts no release and no second Destroy. An Acquire
// brings it back to life, since a zero value lock placed in the same
// memory is indistinguishable from the old one.
//
// A failed check is returned as a Kind together with the holders that were
// involved. The shadow state is still updated the way the physical lock
// was, so one misuse yields one report rather than a cascade.
//
// Acquired events are delivered after the lock is physically held and
// Released events before it is physically released. Under that protocol
// an Acquire check failure means the underlying primitive let two
// incompatible holders in, and every Release failure is caller misuse.
package lockshadow
