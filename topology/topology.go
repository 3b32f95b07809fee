// Copyright 2025 The corelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package topology provides the logical processor services that the
// per-CPU locks route on.
//
// Two questions are asked of a Topology:
//   - ProcessorCount, once, when a per-CPU lock is built. It fixes the
//     number of shards for the lifetime of that lock.
//   - CurrentProcessor, on every shared acquisition. It picks the shard.
//
// Host answers from the operating system. Fixed answers from values set by
// the caller, which lets tests emulate goroutines pinned to processors on
// any machine.
package topology

import (
	"errors"
	"sync/atomic"
)

// ErrNoProcessors is returned when a processor count cannot be determined.
var ErrNoProcessors = errors.New("no logical processors reported")

// Topology reports logical processor information.
//
// CurrentProcessor must return a value in [0, n) where n is a count
// previously returned by ProcessorCount. Implementations must be safe for
// concurrent use.
type Topology interface {
	// ProcessorCount returns the number of logical processors.
	ProcessorCount() (int, error)

	// CurrentProcessor returns the id of the processor running the caller.
	// The caller may be moved to another processor right after the call.
	CurrentProcessor() int
}

// FixedTopology is a Topology with a caller-controlled processor count and
// current processor.
type FixedTopology struct {
	n       int
	current atomic.Int64
	fn      atomic.Pointer[func() int]
}

// Fixed returns a FixedTopology reporting n processors, currently on 0.
func Fixed(n int) *FixedTopology {
	return &FixedTopology{n: n}
}

// ProcessorCount implements Topology. A non-positive count is reported as
// ErrNoProcessors.
func (f *FixedTopology) ProcessorCount() (int, error) {
	if f.n <= 0 {
		return f.n, ErrNoProcessors
	}
	return f.n, nil
}

// CurrentProcessor implements Topology.
func (f *FixedTopology) CurrentProcessor() int {
	if fn := f.fn.Load(); fn != nil {
		return (*fn)()
	}
	return int(f.current.Load())
}

// SetCurrent makes every caller appear to run on processor id.
func (f *FixedTopology) SetCurrent(id int) {
	f.current.Store(int64(id))
}

// SetFunc installs fn as the source of CurrentProcessor. Passing nil
// restores the value set by SetCurrent.
func (f *FixedTopology) SetFunc(fn func() int) {
	if fn == nil {
		f.fn.Store(nil)
		return
	}
	f.fn.Store(&fn)
}

type failing struct {
	err error
}

// Failing returns a Topology whose ProcessorCount always fails with err.
func Failing(err error) Topology {
	return failing{err: err}
}

func (f failing) ProcessorCount() (int, error) { return 0, f.err }
func (f failing) CurrentProcessor() int        { return 0 }
