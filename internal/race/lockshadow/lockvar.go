// Copyright 2025 The corelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lockshadow

import (
	"sort"
	"sync"

	"github.com/kolkov/corelock/internal/race/stackdepot"
)

// Kind classifies a failed check. The zero Kind means the check passed.
type Kind int

const (
	// OK means the transition was valid.
	OK Kind = iota

	// UnlockNotHeld is a release of a mode nobody holds.
	UnlockNotHeld

	// UnlockForeign is a release by a goroutine other than the holder.
	UnlockForeign

	// ExclusiveWhileHeld is an exclusive acquisition observed while other
	// holders exist.
	ExclusiveWhileHeld

	// SharedWhileWriteHeld is a shared acquisition observed while a writer
	// exists.
	SharedWhileWriteHeld

	// DestroyWhileHeld is a destruction of a lock that is still held.
	DestroyWhileHeld

	// UseAfterDestroy is a release or destruction of a destroyed lock.
	UseAfterDestroy
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case UnlockNotHeld:
		return "unlock of unheld lock"
	case UnlockForeign:
		return "unlock by non-holder"
	case ExclusiveWhileHeld:
		return "exclusive acquire while held"
	case SharedWhileWriteHeld:
		return "shared acquire while write held"
	case DestroyWhileHeld:
		return "destroy while held"
	case UseAfterDestroy:
		return "use after destroy"
	default:
		return "unknown"
	}
}

// Holder is one goroutine's hold on a lock.
type Holder struct {
	Goroutine int64
	Exclusive bool
	Stack     stackdepot.Handle
}

// LockVar is the shadow state of a single lock.
type LockVar struct {
	mu        sync.Mutex
	writer    *Holder
	readers   map[int64]*readerHold
	destroyed bool
}

type readerHold struct {
	count int
	stack stackdepot.Handle
}

func newLockVar() *LockVar {
	return &LockVar{readers: make(map[int64]*readerHold)}
}

// Acquire records that h now holds the lock in its mode.
//
// It returns the holders that conflict with h, if any. Acquiring a
// destroyed lock revives it: the memory is being reused as a fresh zero
// value lock, which needs no announcement.
func (v *LockVar) Acquire(h Holder) (Kind, []Holder) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.destroyed = false

	kind := OK
	var conflicts []Holder
	switch {
	case h.Exclusive && (v.writer != nil || len(v.readers) > 0):
		kind = ExclusiveWhileHeld
		conflicts = v.holdersLocked()
	case !h.Exclusive && v.writer != nil:
		kind = SharedWhileWriteHeld
		conflicts = []Holder{*v.writer}
	}

	if h.Exclusive {
		hold := h
		v.writer = &hold
	} else {
		r := v.readers[h.Goroutine]
		if r == nil {
			r = &readerHold{stack: h.Stack}
			v.readers[h.Goroutine] = r
		}
		r.count++
	}
	return kind, conflicts
}

// Release records that goroutine gid gave up a hold in the given mode.
//
// It returns the holders the release was checked against if the caller
// was not one of them.
func (v *LockVar) Release(gid int64, exclusive bool) (Kind, []Holder) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return UseAfterDestroy, nil
	}

	if exclusive {
		switch {
		case v.writer == nil:
			return UnlockNotHeld, v.holdersLocked()
		case v.writer.Goroutine != gid:
			w := *v.writer
			v.writer = nil
			return UnlockForeign, []Holder{w}
		}
		v.writer = nil
		return OK, nil
	}

	if r, ok := v.readers[gid]; ok {
		if r.count--; r.count == 0 {
			delete(v.readers, gid)
		}
		return OK, nil
	}
	if len(v.readers) == 0 {
		return UnlockNotHeld, v.holdersLocked()
	}

	// The physical reader count dropped by one. Drop a hold from the
	// lowest-numbered reader to keep the shadow count in step.
	holders := v.holdersLocked()
	victim := holders[0].Goroutine
	r := v.readers[victim]
	if r.count--; r.count == 0 {
		delete(v.readers, victim)
	}
	return UnlockForeign, holders
}

// Destroy marks the lock destroyed and reports any remaining holders.
func (v *LockVar) Destroy() (Kind, []Holder) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return UseAfterDestroy, nil
	}
	v.destroyed = true
	if v.writer != nil || len(v.readers) > 0 {
		holders := v.holdersLocked()
		v.writer = nil
		clear(v.readers)
		return DestroyWhileHeld, holders
	}
	return OK, nil
}

// Holders returns a snapshot of the current holders, writer first and
// readers ordered by goroutine id.
func (v *LockVar) Holders() []Holder {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.holdersLocked()
}

// Destroyed reports whether Destroy has been called.
func (v *LockVar) Destroyed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.destroyed
}

func (v *LockVar) holdersLocked() []Holder {
	var out []Holder
	if v.writer != nil {
		out = append(out, *v.writer)
	}
	start := len(out)
	for gid, r := range v.readers {
		for i := 0; i < r.count; i++ {
			out = append(out, Holder{Goroutine: gid, Stack: r.stack})
		}
	}
	readers := out[start:]
	sort.Slice(readers, func(i, j int) bool {
		return readers[i].Goroutine < readers[j].Goroutine
	})
	return out
}
