// Copyright 2025 The corelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package race

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMode_String(t *testing.T) {
	assert.Equal(t, "shared", Shared.String())
	assert.Equal(t, "exclusive", Exclusive.String())
	assert.Equal(t, "unknown", Mode(7).String())
	assert.Equal(t, 0, int(Shared))
	assert.Equal(t, 1, int(Exclusive))
}

func TestDefault_MatchesBuild(t *testing.T) {
	_, checking := Default().(*Checker)
	assert.Equal(t, Enabled, checking)
}

func TestSetDefault(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	c := NewChecker()
	assert.Equal(t, prev, SetDefault(c))
	assert.Same(t, c, Default())

	assert.Same(t, c, SetDefault(nil))
	assert.Equal(t, Nop{}, Default())
}

func TestEnableDisable(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	c := Enable()
	assert.Same(t, c, Default())
	assert.True(t, GetInfo().Checking)

	Disable()
	info := GetInfo()
	assert.False(t, info.Checking)
	assert.Equal(t, "race.Nop", info.Observer)
	assert.Equal(t, Version, info.Version)
}

func TestViolation_String(t *testing.T) {
	v := Violation{
		Kind:      UnlockForeign,
		Addr:      0xbeef,
		Mode:      Exclusive,
		Goroutine: 8,
		Stack:     "  main.worker()\n      /app/main.go:31\n",
		Holders: []Holder{{
			Goroutine: 1,
			Mode:      Exclusive,
			Stack:     "  main.main()\n      /app/main.go:20\n",
		}},
	}

	want := "==================\n" +
		"WARNING: LOCK MISUSE (unlock by non-holder)\n" +
		"exclusive release of lock 0xbeef by goroutine 8:\n" +
		"  main.worker()\n      /app/main.go:31\n" +
		"\nPreviously acquired exclusive by goroutine 1:\n" +
		"  main.main()\n      /app/main.go:20\n" +
		"==================\n"
	assert.Equal(t, want, v.String())
}
