// Copyright 2025 The corelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package topology

// currentProcessor has no portable source outside Linux. Every caller maps
// to processor 0: shared acquisitions still work, they just share a shard.
func currentProcessor() int {
	return 0
}
