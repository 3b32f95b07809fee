// Copyright 2025 The corelock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package locks

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/kolkov/corelock/race"
	"github.com/kolkov/corelock/topology"
)

// Option configures a PerCPURWLock.
type Option func(*config)

type config struct {
	topology topology.Topology
	observer race.Observer
	logger   *log.Logger
}

// WithTopology sets the source of the processor count and the current
// processor. Defaults to topology.Host().
func WithTopology(t topology.Topology) Option {
	return func(c *config) { c.topology = t }
}

// WithObserver sets the Observer every shard reports to. Defaults to
// race.Default(), looked up on each event.
func WithObserver(obs race.Observer) Option {
	return func(c *config) { c.observer = obs }
}

// WithLogger sets the logger used to report fatal configuration faults.
// Defaults to the standard logrus logger.
func WithLogger(l *log.Logger) Option {
	return func(c *config) { c.logger = l }
}

func newConfig(opts []Option) *config {
	c := &config{
		topology: topology.Host(),
		logger:   log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// fatalf logs through the logger's Fatal level, which exits the process.
// If the logger's ExitFunc returns instead, fatalf panics so that a lock
// with a broken layout is never handed out.
func fatalf(l *log.Logger, format string, args ...any) {
	l.Fatalf(format, args...)
	panic(fmt.Sprintf(format, args...))
}
