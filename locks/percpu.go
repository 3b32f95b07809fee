// Copyright 2025 The corelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package locks

import (
	"unsafe"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/cpu"

	"github.com/kolkov/corelock/topology"
)

const cacheLineSize = unsafe.Sizeof(cpu.CacheLinePad{})

// paddedRWSpinLock occupies a full cache line so that neighbouring shards
// never share one. An RWSpinLock that outgrows the line makes the pad
// length negative and fails the build.
type paddedRWSpinLock struct {
	lock RWSpinLock
	_    [cacheLineSize - unsafe.Sizeof(RWSpinLock{})]byte
}

// PerCPURWLock is a reader-writer lock sharded by logical processor.
//
// Readers lock only the shard of the processor they run on, so readers on
// different processors never touch the same cache line. Writers lock every
// shard in ascending order. This makes shared acquisition almost free and
// exclusive acquisition cost O(number of processors); use it for state
// that is read constantly and written rarely.
//
// Shared use goes through a handle:
//
//	l := lock.RLock()
//	defer l.RUnlock()
//
// or, equivalently,
//
//	l := lock.SharedLock()
//	l.RLock()
//	defer l.RUnlock()
//
// The goroutine may migrate to another processor while it holds the
// shared lock. That is harmless as long as the release goes to the same
// handle; calling SharedLock again to release would pick the wrong shard.
//
// Shards are padded to a cache line each. The shard slice itself is not
// aligned to a line boundary, so the first and last shard can share a
// line with neighbouring allocations.
type PerCPURWLock struct {
	shards []paddedRWSpinLock
	topo   topology.Topology
	logger *log.Logger
}

// NewPerCPURWLock returns an unlocked PerCPURWLock with one shard per
// logical processor.
//
// The processor count is read once. If it cannot be determined, or is not
// positive, the fault is logged at Fatal level and the process exits.
func NewPerCPURWLock(opts ...Option) *PerCPURWLock {
	cfg := newConfig(opts)

	n, err := cfg.topology.ProcessorCount()
	if err != nil {
		fatalf(cfg.logger, "percpu rwlock: cannot determine processor count: %v", err)
	}
	if n <= 0 {
		fatalf(cfg.logger, "percpu rwlock: invalid processor count %d", n)
	}

	l := &PerCPURWLock{
		shards: make([]paddedRWSpinLock, n),
		topo:   cfg.topology,
		logger: cfg.logger,
	}
	for i := range l.shards {
		l.shards[i].lock.init(cfg.observer)
	}
	cfg.logger.WithFields(log.Fields{
		"shards":     n,
		"cache_line": cacheLineSize,
	}).Debug("percpu rwlock created")
	return l
}

// SharedLock returns the shard lock of the processor the caller runs on.
// The caller locks and unlocks it in shared mode.
//
// A processor id outside [0, NumShards()) means the topology is broken;
// it is logged at Fatal level and the process exits.
func (l *PerCPURWLock) SharedLock() *RWSpinLock {
	id := l.topo.CurrentProcessor()
	if id < 0 || id >= len(l.shards) {
		fatalf(l.logger, "percpu rwlock: processor id %d out of range [0, %d)", id, len(l.shards))
	}
	return &l.shards[id].lock
}

// RLock acquires the current processor's shard in shared mode and returns
// it. Release with RUnlock on the returned lock.
func (l *PerCPURWLock) RLock() *RWSpinLock {
	s := l.SharedLock()
	s.RLock()
	return s
}

// Lock acquires every shard exclusively, in ascending order.
func (l *PerCPURWLock) Lock() {
	for i := range l.shards {
		l.shards[i].lock.Lock()
	}
}

// Unlock releases every shard, in ascending order.
func (l *PerCPURWLock) Unlock() {
	for i := range l.shards {
		l.shards[i].lock.Unlock()
	}
}

// TryLock tries each shard in ascending order. If one is busy, the shards
// already taken are released in reverse order and TryLock returns false,
// leaving l as it found it.
func (l *PerCPURWLock) TryLock() bool {
	for i := range l.shards {
		if l.shards[i].lock.TryLock() {
			continue
		}
		for j := i - 1; j >= 0; j-- {
			l.shards[j].lock.Unlock()
		}
		return false
	}
	return true
}

// IsLocked reports whether any shard is held in any mode. The answer is
// only good for assertions.
func (l *PerCPURWLock) IsLocked() bool {
	for i := range l.shards {
		if l.shards[i].lock.IsLocked() {
			return true
		}
	}
	return false
}

// NumShards returns the number of shards, fixed at construction.
func (l *PerCPURWLock) NumShards() int {
	return len(l.shards)
}

// Close announces the destruction of every shard. l must be unlocked and
// must not be used afterwards.
func (l *PerCPURWLock) Close() {
	for i := range l.shards {
		l.shards[i].lock.Destroy()
	}
}
