// Copyright 2025 The corelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package locks provides spinning mutual exclusion primitives for short
// critical sections over shared in-memory state.
//
// # Locks
//
//   - SpinLock: exclusive only. The zero value is ready to use.
//   - RWSpinLock: shared or exclusive, with every acquisition and release
//     reported to a race.Observer.
//   - PerCPURWLock: one RWSpinLock per logical processor. Readers touch
//     only their own processor's shard; writers take all of them.
//
// None of the locks are reentrant, fair, or upgradable. Blocking
// acquisitions spin, then yield, then sleep with exponential backoff; they
// cannot be cancelled.
//
// # Choosing
//
// sync.Mutex and sync.RWMutex park waiters and are the right default.
// These locks fit sections of a few instructions where parking costs more
// than the wait. PerCPURWLock fits data read on every request and written
// almost never, such as routing tables or configuration snapshots:
//
//	var routes = locks.NewPerCPURWLock()
//
//	func lookup(key string) string {
//		l := routes.RLock()
//		defer l.RUnlock()
//		return table[key]
//	}
//
//	func update(k, v string) {
//		routes.Lock()
//		defer routes.Unlock()
//		table[k] = v
//	}
//
// # Race detection
//
// Locks report to race.Default() unless given an Observer. Under go test
// -race that default is a race.Checker, which logs unlocks by non-holders
// and similar misuse.
package locks
