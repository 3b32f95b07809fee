// Copyright 2025 The corelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stackdepot stores the call stacks at which locks were acquired.
//
// Lock holders are recorded on every acquisition while checking is on, but
// their stacks are only printed when a violation is found. The depot keeps
// each distinct stack once, keyed by an FNV-1a hash of its program
// counters, so a hot acquisition site costs a hash and a map lookup rather
// than a fresh allocation.
//
// Usage:
//
//	h := stackdepot.Capture(1)          // skip the caller's own frame
//	...
//	fmt.Print(stackdepot.Lookup(h).Format())
package stackdepot

import (
	"encoding/binary"
	"hash/fnv"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// MaxFrames bounds the depth of a stored stack. Lock misuse is almost
// always visible in the innermost frames.
const MaxFrames = 16

// Handle identifies a stored stack. The zero Handle means "no stack".
type Handle uint64

// Stack is a captured call stack.
type Stack struct {
	PC []uintptr
}

// depot maps Handle to *Stack.
var depot sync.Map

// Capture records the stack of its caller and returns its handle.
//
// skip is the number of additional frames to drop above Capture's caller,
// so that frames belonging to the locking machinery can be hidden.
func Capture(skip int) Handle {
	var pcs [MaxFrames]uintptr
	// 2 = runtime.Callers + Capture.
	n := runtime.Callers(2+skip, pcs[:])
	if n == 0 {
		return 0
	}

	h := hash(pcs[:n])
	if _, ok := depot.Load(h); ok {
		return h
	}
	st := &Stack{PC: append([]uintptr(nil), pcs[:n]...)}
	depot.LoadOrStore(h, st)
	return h
}

// Lookup returns the stack stored under h, or nil.
func Lookup(h Handle) *Stack {
	if h == 0 {
		return nil
	}
	v, ok := depot.Load(h)
	if !ok {
		return nil
	}
	return v.(*Stack)
}

// Format renders the stack one frame per two lines, skipping runtime
// frames:
//
//	main.reader()
//	    /path/to/main.go:42
func (st *Stack) Format() string {
	if st == nil || len(st.PC) == 0 {
		return "  <unknown>\n"
	}

	var b strings.Builder
	frames := runtime.CallersFrames(st.PC)
	for {
		frame, more := frames.Next()
		if frame.PC != 0 && !strings.HasPrefix(frame.Function, "runtime.") {
			b.WriteString("  ")
			b.WriteString(frame.Function)
			b.WriteString("()\n      ")
			b.WriteString(frame.File)
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(frame.Line))
			b.WriteByte('\n')
		}
		if !more {
			break
		}
	}
	if b.Len() == 0 {
		return "  <runtime internal>\n"
	}
	return b.String()
}

// Len returns the number of distinct stacks stored.
func Len() int {
	n := 0
	depot.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Reset drops every stored stack. Only for tests.
func Reset() {
	depot.Clear()
}

func hash(pcs []uintptr) Handle {
	h := fnv.New64a()
	var buf [8]byte
	for _, pc := range pcs {
		binary.LittleEndian.PutUint64(buf[:], uint64(pc))
		_, _ = h.Write(buf[:])
	}
	// Reserve 0 for "no stack".
	if s := h.Sum64(); s != 0 {
		return Handle(s)
	}
	return 1
}
