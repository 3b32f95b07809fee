// Copyright 2025 The corelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rwsem

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSem_ZeroValueUnlocked(t *testing.T) {
	var s Sem
	assert.False(t, s.IsLocked())
	assert.False(t, s.IsWriteLocked())
	assert.Equal(t, 0, s.Readers())
}

func TestSem_SharedHolders(t *testing.T) {
	var s Sem
	s.RLock()
	s.RLock()
	assert.True(t, s.TryRLock())
	assert.Equal(t, 3, s.Readers())
	assert.True(t, s.IsLocked())
	assert.False(t, s.IsWriteLocked())
	assert.False(t, s.TryLock(), "exclusive granted while readers hold")

	s.RUnlock()
	s.RUnlock()
	s.RUnlock()
	assert.False(t, s.IsLocked())
}

func TestSem_ExclusiveBlocksShared(t *testing.T) {
	var s Sem
	require.True(t, s.TryLock())
	assert.True(t, s.IsWriteLocked())
	assert.False(t, s.TryRLock())
	assert.False(t, s.TryLock())
	s.Unlock()
	assert.False(t, s.IsLocked())
	assert.True(t, s.TryRLock())
	s.RUnlock()
}

// TestSem_WriterDrainsReaders verifies a writer waits for readers already
// inside and blocks readers that arrive afterwards.
func TestSem_WriterDrainsReaders(t *testing.T) {
	var s Sem
	s.RLock()

	acquired := make(chan struct{})
	go func() {
		s.Lock()
		close(acquired)
	}()

	// Wait until the writer has claimed its flag.
	require.Eventually(t, s.IsWriteLocked, time.Second, time.Millisecond)
	assert.False(t, s.TryRLock(), "new reader admitted while writer waits")

	select {
	case <-acquired:
		t.Fatal("writer acquired while a reader still holds")
	case <-time.After(20 * time.Millisecond):
	}

	s.RUnlock()
	<-acquired
	assert.Equal(t, 0, s.Readers())
	s.Unlock()
	assert.False(t, s.IsLocked())
}

// TestSem_MutualExclusion hammers the semaphore and checks that writers are
// alone and readers never overlap a writer.
func TestSem_MutualExclusion(t *testing.T) {
	var (
		s       Sem
		writers atomic.Int32
		readers atomic.Int32
		wg      sync.WaitGroup
		bad     atomic.Int32
	)

	const iterations = 2000
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(writer bool) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				if writer {
					s.Lock()
					if writers.Add(1) != 1 || readers.Load() != 0 {
						bad.Add(1)
					}
					writers.Add(-1)
					s.Unlock()
					continue
				}
				s.RLock()
				readers.Add(1)
				if writers.Load() != 0 {
					bad.Add(1)
				}
				readers.Add(-1)
				s.RUnlock()
			}
		}(g%4 == 0)
	}
	wg.Wait()

	assert.Equal(t, int32(0), bad.Load())
	assert.False(t, s.IsLocked())
}

// TestSem_TryRLockIgnoresOtherReaders verifies that with no writer around
// TryRLock succeeds however busy the reader count is.
func TestSem_TryRLockIgnoresOtherReaders(t *testing.T) {
	var (
		s      Sem
		wg     sync.WaitGroup
		failed atomic.Int32
	)

	const iterations = 20000
	workers := 2 * runtime.NumCPU()
	if workers < 4 {
		workers = 4
	}
	for g := 0; g < workers; g++ {
		wg.Add(1)
		go func(try bool) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				if try {
					if !s.TryRLock() {
						failed.Add(1)
						continue
					}
				} else {
					s.RLock()
				}
				s.RUnlock()
			}
		}(g%2 == 0)
	}
	wg.Wait()

	assert.Equal(t, int32(0), failed.Load())
	assert.False(t, s.IsLocked())
}

func BenchmarkSem_RLockParallel(b *testing.B) {
	var s Sem
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			s.RLock()
			s.RUnlock()
		}
	})
}
