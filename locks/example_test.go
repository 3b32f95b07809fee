package locks_test

import (
	"fmt"

	"github.com/kolkov/corelock/locks"
	"github.com/kolkov/corelock/topology"
)

func ExampleSpinLock() {
	var (
		mu    locks.SpinLock
		total int
	)

	mu.Lock()
	total += 42
	mu.Unlock()

	fmt.Println(total, mu.IsLocked())
	// Output: 42 false
}

func ExamplePerCPURWLock() {
	// Four emulated processors; the caller runs on processor 2.
	topo := topology.Fixed(4)
	topo.SetCurrent(2)
	lock := locks.NewPerCPURWLock(locks.WithTopology(topo))

	r := lock.RLock()
	fmt.Println("shards:", lock.NumShards())
	fmt.Println("writer while reading:", lock.TryLock())
	r.RUnlock()

	lock.Lock()
	fmt.Println("reader while writing:", lock.SharedLock().TryRLock())
	lock.Unlock()

	// Output:
	// shards: 4
	// writer while reading: false
	// reader while writing: false
}

func ExamplePerCPURWLock_SharedLock() {
	topo := topology.Fixed(2)
	lock := locks.NewPerCPURWLock(locks.WithTopology(topo))

	// Keep the handle: the goroutine may have moved to another processor
	// by the time it unlocks.
	l := lock.SharedLock()
	l.RLock()
	topo.SetCurrent(1)
	l.RUnlock()

	fmt.Println(lock.IsLocked())
	// Output: false
}
