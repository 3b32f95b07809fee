// Copyright 2025 The corelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package race

import (
	"fmt"
	"strings"

	"github.com/kolkov/corelock/internal/race/lockshadow"
)

// ViolationKind classifies a Violation.
type ViolationKind = lockshadow.Kind

// Violation kinds reported by Checker.
const (
	UnlockNotHeld        = lockshadow.UnlockNotHeld
	UnlockForeign        = lockshadow.UnlockForeign
	ExclusiveWhileHeld   = lockshadow.ExclusiveWhileHeld
	SharedWhileWriteHeld = lockshadow.SharedWhileWriteHeld
	DestroyWhileHeld     = lockshadow.DestroyWhileHeld
	UseAfterDestroy      = lockshadow.UseAfterDestroy
)

// Holder describes a goroutine holding a lock.
type Holder struct {
	Goroutine int64
	Mode      Mode

	// Stack is where the hold was acquired, formatted one frame per two
	// lines.
	Stack string
}

// Violation is one detected misuse of a lock.
type Violation struct {
	Kind ViolationKind

	// Addr is the address of the lock.
	Addr uintptr

	// Mode is the mode of the offending event.
	Mode Mode

	// Goroutine is the goroutine that caused the violation.
	Goroutine int64

	// Stack is where the offending event happened.
	Stack string

	// Holders are the holds the event conflicted with, if any.
	Holders []Holder
}

// AddrString returns the lock address in 0x form.
func (v Violation) AddrString() string {
	return fmt.Sprintf("%#x", v.Addr)
}

// String renders the violation as a multi-line report:
//
//	==================
//	WARNING: LOCK MISUSE (unlock by non-holder)
//	exclusive release of lock 0xc000012345 by goroutine 7:
//	  main.worker()
//	      /app/main.go:31
//
//	Previously acquired exclusive by goroutine 6:
//	  main.main()
//	      /app/main.go:20
//	==================
func (v Violation) String() string {
	var b strings.Builder
	b.WriteString("==================\n")
	fmt.Fprintf(&b, "WARNING: LOCK MISUSE (%s)\n", v.Kind)
	fmt.Fprintf(&b, "%s %s of lock %s by goroutine %d:\n",
		v.Mode, eventName(v.Kind), v.AddrString(), v.Goroutine)
	b.WriteString(v.Stack)
	for _, h := range v.Holders {
		fmt.Fprintf(&b, "\nPreviously acquired %s by goroutine %d:\n", h.Mode, h.Goroutine)
		b.WriteString(h.Stack)
	}
	b.WriteString("==================\n")
	return b.String()
}

func eventName(k ViolationKind) string {
	switch k {
	case UnlockNotHeld, UnlockForeign:
		return "release"
	case DestroyWhileHeld:
		return "destroy"
	case UseAfterDestroy:
		return "use"
	default:
		return "acquire"
	}
}
