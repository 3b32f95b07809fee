// Package race defines the race-detector annotations reported by corelock's
// reader-writer locks, and a Checker that turns them into misuse reports.
//
// # Events
//
// Every annotated lock reports four kinds of events to an [Observer]:
//
//	Created(lock)            the lock was constructed
//	Acquired(lock, mode)     the caller now holds the lock
//	Released(lock, mode)     the caller is about to give it up
//	Destroyed(lock)          the lock was torn down
//
// mode is [Shared] (slot 0) or [Exclusive] (slot 1). Acquired is sent only
// after the underlying primitive granted the lock and Released only before
// it is given back, so an observer never sees a released lock that is
// still physically held.
//
// # Choosing an Observer
//
// Locks accept an Observer at construction. Locks without one report to
// [Default], which is:
//   - [Nop] in ordinary builds, costing one atomic load per event;
//   - a [Checker] logging through logrus in builds with the race tag, which
//     go test -race sets.
//
// Use [SetDefault], [Enable] or [Disable] to change it at run time.
//
// # Checker
//
// A [Checker] remembers which goroutine holds each lock and where it was
// acquired. It reports a [Violation] when:
//   - a lock is unlocked by a goroutine that does not hold it
//   - a mode is unlocked that nobody holds
//   - a lock is destroyed while held, or released or destroyed again
//     after it was destroyed
//   - incompatible holders are observed at the same time
//
// Example report:
//
//	==================
//	WARNING: LOCK MISUSE (unlock by non-holder)
//	exclusive release of lock 0xc00001c0c0 by goroutine 8:
//	  main.worker()
//	      /app/main.go:31
//
//	Previously acquired exclusive by goroutine 1:
//	  main.main()
//	      /app/main.go:20
//	==================
//
// A destroyed lock that is acquired again is taken to be a new zero value
// lock in the same memory. State for a lock is dropped some time after the
// lock becomes unreachable, so a long-running Checker does not grow with
// every lock ever used.
//
// The Checker assumes the goroutine that acquires a lock is the one that
// releases it. Code that hands a locked lock to another goroutine on
// purpose should use an observer other than the Checker.
//
// # Thread Safety
//
// All functions and Observer implementations in this package are safe for
// concurrent use.
package race
