// Copyright 2025 The corelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package spinwait implements the contention backoff used by the spin locks.
//
// A Waiter escalates through four phases as the number of failed attempts
// grows, following the classic yield_k pattern:
//
//	attempts  0..3   re-check immediately
//	attempts  4..15  busy-spin 1<<(k-4) iterations (skipped on one CPU)
//	attempts 16..31  runtime.Gosched
//	attempts 32..    sleep, exponentially growing from 1µs up to 1ms
//
// Usage:
//
//	var w spinwait.Waiter
//	for !tryAcquire() {
//		w.Wait()
//	}
//
// The zero value is ready to use. A Waiter must not be shared between
// goroutines; each blocking call owns its own.
package spinwait

import (
	"runtime"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// SpinThreshold is the attempt count at which busy-spinning starts.
	SpinThreshold = 4

	// YieldThreshold is the attempt count at which the waiter starts
	// handing the processor back to the scheduler.
	YieldThreshold = 16

	// SleepThreshold is the attempt count at which the waiter starts
	// sleeping between attempts.
	SleepThreshold = 32

	// MinSleep and MaxSleep bound the sleep phase.
	MinSleep = time.Microsecond
	MaxSleep = time.Millisecond
)

// multicore is false on single-CPU hosts, where spinning can only delay
// the holder that we are waiting for.
var multicore = runtime.NumCPU() > 1

// Waiter tracks the escalation state of one blocking acquisition.
type Waiter struct {
	k     uint32
	sleep *backoff.ExponentialBackOff
}

// Wait blocks for an amount of time appropriate for the number of
// previous calls to Wait.
func (w *Waiter) Wait() {
	k := w.k
	if k < SleepThreshold {
		w.k++
	}

	switch {
	case k < SpinThreshold:
		// Re-check right away: most critical sections are a few
		// instructions long.
	case k < YieldThreshold:
		if multicore {
			_ = spin(1 << (k - SpinThreshold))
		} else {
			runtime.Gosched()
		}
	case k < SleepThreshold:
		runtime.Gosched()
	default:
		time.Sleep(w.nextSleep())
	}
}

// Attempts returns how many times Wait has been called, saturating at
// SleepThreshold.
func (w *Waiter) Attempts() uint32 {
	return w.k
}

// Reset returns the waiter to the spinning phase.
func (w *Waiter) Reset() {
	w.k = 0
	if w.sleep != nil {
		w.sleep.Reset()
	}
}

func (w *Waiter) nextSleep() time.Duration {
	if w.sleep == nil {
		w.sleep = newSleepBackOff()
	}
	d := w.sleep.NextBackOff()
	if d == backoff.Stop || d <= 0 {
		return MaxSleep
	}
	return d
}

func newSleepBackOff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     MinSleep,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         MaxSleep,
		// Lock waits never give up.
		MaxElapsedTime: 0,
		Stop:           backoff.Stop,
		Clock:          backoff.SystemClock,
	}
	b.Reset()
	return b
}

// spin burns roughly n loop iterations without touching shared memory.
//
//go:noinline
func spin(n uint32) uint32 {
	var x uint32
	for i := uint32(0); i < n; i++ {
		x ^= i
	}
	return x
}
