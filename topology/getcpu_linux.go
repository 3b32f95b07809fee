// Copyright 2025 The corelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package topology

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// currentProcessor asks the kernel which CPU the calling thread is on.
// A failing syscall reports CPU 0, which is always a valid shard.
func currentProcessor() int {
	var cpu uint32
	//nolint:gosec // G103: getcpu writes into cpu, which outlives the call
	_, _, errno := unix.RawSyscall(unix.SYS_GETCPU, uintptr(unsafe.Pointer(&cpu)), 0, 0)
	if errno != 0 {
		return 0
	}
	return int(cpu)
}
