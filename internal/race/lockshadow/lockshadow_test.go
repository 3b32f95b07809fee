// Copyright 2025 The corelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lockshadow

import (
	"runtime"
	"sync"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLock stands in for a lock. It holds a pointer so that it gets its
// own heap allocation.
type fakeLock struct {
	_ *int
	_ uint64
}

func newLock() unsafe.Pointer { return unsafe.Pointer(new(fakeLock)) }

func shared(gid int64) Holder    { return Holder{Goroutine: gid} }
func exclusive(gid int64) Holder { return Holder{Goroutine: gid, Exclusive: true} }

// TestGetOrCreate_Cached verifies the same LockVar is returned for a lock.
func TestGetOrCreate_Cached(t *testing.T) {
	s := New()
	l1, l2 := newLock(), newLock()
	a := s.GetOrCreate(l1)
	assert.Same(t, a, s.GetOrCreate(l1))
	assert.NotSame(t, a, s.GetOrCreate(l2))
	assert.Equal(t, 2, s.Len())
	runtime.KeepAlive(l1)
	runtime.KeepAlive(l2)
}

// TestGetOrCreate_Concurrent verifies racing creators agree on one LockVar.
func TestGetOrCreate_Concurrent(t *testing.T) {
	s := New()
	l := newLock()
	results := make(chan *LockVar, 64)
	var wg sync.WaitGroup
	for i := 0; i < cap(results); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.GetOrCreate(l)
		}()
	}
	wg.Wait()
	close(results)

	first := <-results
	for v := range results {
		assert.Same(t, first, v)
	}
	runtime.KeepAlive(l)
}

func TestCreate_ReplacesTombstone(t *testing.T) {
	s := New()
	l := newLock()
	v := s.GetOrCreate(l)
	kind, _ := v.Destroy()
	require.Equal(t, OK, kind)

	fresh := s.Create(l)
	assert.NotSame(t, v, fresh)
	assert.False(t, fresh.Destroyed())
	runtime.KeepAlive(l)
}

func TestLookupAndReset(t *testing.T) {
	s := New()
	l1, l2 := newLock(), newLock()
	s.GetOrCreate(l1)
	_, ok := s.Lookup(l2)
	assert.False(t, ok)
	_, ok = s.Lookup(l1)
	assert.True(t, ok)
	assert.Equal(t, 1, s.Len())

	s.Reset()
	assert.Equal(t, 0, s.Len())
	runtime.KeepAlive(l1)
}

func TestGlobalLockTracked(t *testing.T) {
	s := New()
	v := s.GetOrCreate(unsafe.Pointer(&globalLock))
	assert.Same(t, v, s.GetOrCreate(unsafe.Pointer(&globalLock)))
}

var globalLock fakeLock

// trackMany creates, uses and destroys n locks that are unreachable once
// it returns.
func trackMany(s *LockShadow, n int) {
	for i := 0; i < n; i++ {
		l := newLock()
		v := s.Create(l)
		v.Acquire(exclusive(1))
		v.Release(1, true)
		if i%2 == 0 {
			v.Destroy()
		}
	}
}

// TestLockShadow_DropsUnreachableLocks verifies entries, tombstones
// included, go away once their lock's memory is garbage.
func TestLockShadow_DropsUnreachableLocks(t *testing.T) {
	s := New()
	const n = 1000
	trackMany(s, n)
	require.LessOrEqual(t, s.Len(), n)

	require.Eventually(t, func() bool {
		runtime.GC()
		return s.Len() == 0
	}, 10*time.Second, 10*time.Millisecond, "%d entries left", s.Len())
}

// TestLockShadow_LiveLockSurvivesGC verifies a reachable lock keeps its
// state across collections.
func TestLockShadow_LiveLockSurvivesGC(t *testing.T) {
	s := New()
	l := newLock()
	s.Create(l).Acquire(shared(7))

	runtime.GC()
	runtime.GC()

	v, ok := s.Lookup(l)
	require.True(t, ok)
	require.Len(t, v.Holders(), 1)
	assert.Equal(t, int64(7), v.Holders()[0].Goroutine)
	runtime.KeepAlive(l)
}

func TestLockVar_Transitions(t *testing.T) {
	tests := []struct {
		name  string
		steps func(v *LockVar) (Kind, []Holder)
		want  Kind
		peers []int64
	}{
		{
			name: "exclusive round trip",
			steps: func(v *LockVar) (Kind, []Holder) {
				v.Acquire(exclusive(1))
				return v.Release(1, true)
			},
			want: OK,
		},
		{
			name: "shared by several goroutines",
			steps: func(v *LockVar) (Kind, []Holder) {
				v.Acquire(shared(1))
				v.Acquire(shared(2))
				v.Acquire(shared(1))
				v.Release(1, false)
				v.Release(2, false)
				return v.Release(1, false)
			},
			want: OK,
		},
		{
			name: "exclusive unlock of unheld lock",
			steps: func(v *LockVar) (Kind, []Holder) {
				return v.Release(1, true)
			},
			want: UnlockNotHeld,
		},
		{
			name: "shared unlock of unheld lock",
			steps: func(v *LockVar) (Kind, []Holder) {
				return v.Release(1, false)
			},
			want: UnlockNotHeld,
		},
		{
			name: "exclusive unlock by another goroutine",
			steps: func(v *LockVar) (Kind, []Holder) {
				v.Acquire(exclusive(1))
				return v.Release(2, true)
			},
			want:  UnlockForeign,
			peers: []int64{1},
		},
		{
			name: "shared unlock by another goroutine",
			steps: func(v *LockVar) (Kind, []Holder) {
				v.Acquire(shared(3))
				return v.Release(4, false)
			},
			want:  UnlockForeign,
			peers: []int64{3},
		},
		{
			name: "shared unlock of exclusive hold",
			steps: func(v *LockVar) (Kind, []Holder) {
				v.Acquire(exclusive(1))
				return v.Release(1, false)
			},
			want:  UnlockNotHeld,
			peers: []int64{1},
		},
		{
			name: "exclusive acquire while read held",
			steps: func(v *LockVar) (Kind, []Holder) {
				v.Acquire(shared(2))
				return v.Acquire(exclusive(1))
			},
			want:  ExclusiveWhileHeld,
			peers: []int64{2},
		},
		{
			name: "shared acquire while write held",
			steps: func(v *LockVar) (Kind, []Holder) {
				v.Acquire(exclusive(1))
				return v.Acquire(shared(2))
			},
			want:  SharedWhileWriteHeld,
			peers: []int64{1},
		},
		{
			name: "destroy while held",
			steps: func(v *LockVar) (Kind, []Holder) {
				v.Acquire(shared(5))
				return v.Destroy()
			},
			want:  DestroyWhileHeld,
			peers: []int64{5},
		},
		{
			name: "release after destroy",
			steps: func(v *LockVar) (Kind, []Holder) {
				v.Acquire(exclusive(1))
				v.Release(1, true)
				v.Destroy()
				return v.Release(1, true)
			},
			want: UseAfterDestroy,
		},
		{
			name: "acquire after destroy revives",
			steps: func(v *LockVar) (Kind, []Holder) {
				v.Destroy()
				v.Acquire(shared(1))
				return v.Release(1, false)
			},
			want: OK,
		},
		{
			name: "double destroy",
			steps: func(v *LockVar) (Kind, []Holder) {
				v.Destroy()
				return v.Destroy()
			},
			want: UseAfterDestroy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, holders := tt.steps(newLockVar())
			assert.Equal(t, tt.want, kind, "got %v", kind)
			var gids []int64
			for _, h := range holders {
				gids = append(gids, h.Goroutine)
			}
			assert.Equal(t, tt.peers, gids)
		})
	}
}

// TestLockVar_ForeignReleaseKeepsCountInStep verifies one misuse does not
// poison later checks.
func TestLockVar_ForeignReleaseKeepsCountInStep(t *testing.T) {
	v := newLockVar()
	v.Acquire(shared(1))

	kind, _ := v.Release(2, false)
	require.Equal(t, UnlockForeign, kind)
	assert.Empty(t, v.Holders())

	kind, _ = v.Acquire(exclusive(3))
	assert.Equal(t, OK, kind)
}

func TestLockVar_HoldersOrder(t *testing.T) {
	v := newLockVar()
	v.Acquire(shared(9))
	v.Acquire(shared(2))
	v.Acquire(shared(2))

	holders := v.Holders()
	require.Len(t, holders, 3)
	assert.Equal(t, int64(2), holders[0].Goroutine)
	assert.Equal(t, int64(2), holders[1].Goroutine)
	assert.Equal(t, int64(9), holders[2].Goroutine)
}

func TestLockVar_ReviveClearsTombstone(t *testing.T) {
	v := newLockVar()
	v.Destroy()
	require.True(t, v.Destroyed())

	kind, _ := v.Acquire(exclusive(2))
	assert.Equal(t, OK, kind)
	assert.False(t, v.Destroyed())
	kind, _ = v.Release(2, true)
	assert.Equal(t, OK, kind)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "ok", OK.String())
	assert.Equal(t, "unlock by non-holder", UnlockForeign.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
