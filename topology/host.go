// Copyright 2025 The corelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package topology

import (
	"fmt"

	"github.com/tklauser/numcpus"
)

type host struct{}

// Host returns the Topology of the machine the process runs on.
//
// The processor count is the number of possible CPUs rather than the online
// or present ones, so that every id the kernel can hand out later (for
// example after a CPU is brought online) stays below the count.
func Host() Topology {
	return host{}
}

func (host) ProcessorCount() (int, error) {
	n, err := numcpus.GetPossible()
	if err != nil {
		return 0, fmt.Errorf("failed to read possible CPUs: %w", err)
	}
	if n <= 0 {
		return n, ErrNoProcessors
	}
	return n, nil
}

func (host) CurrentProcessor() int {
	return currentProcessor()
}
