// Copyright 2025 The corelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !race

package race

// Enabled is true when the default observer checks lock usage.
const Enabled = false

func buildDefault() Observer {
	return Nop{}
}
