// Copyright 2025 The corelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package goid returns the id of the calling goroutine.
//
// The id is parsed from the header line of runtime.Stack, which is the
// only portable source. This costs about a microsecond per call, which is
// acceptable for lock checking in debug and test builds and too much for
// anything on a release hot path.
package goid

import "runtime"

// Get returns the current goroutine id, or 0 if it cannot be determined.
func Get() int64 {
	// "goroutine 123 [running]:\n" fits comfortably.
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parse(buf[:n])
}

// parse extracts the id from "goroutine <id> [...". It returns 0 if the
// prefix is missing or no digits follow it.
func parse(buf []byte) int64 {
	const prefix = "goroutine "
	if len(buf) < len(prefix) || string(buf[:len(prefix)]) != prefix {
		return 0
	}

	var id int64
	for _, c := range buf[len(prefix):] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return id
}
