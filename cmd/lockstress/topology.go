// topology.go implements the 'lockstress topology' command.
package main

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/kolkov/corelock/topology"
)

// topologyCommand implements the 'lockstress topology' command.
func topologyCommand(_ []string) {
	if err := printTopology(os.Stdout, topology.Host()); err != nil {
		log.Errorf("Cannot read topology: %v", err)
		os.Exit(1)
	}
}

func printTopology(w io.Writer, topo topology.Topology) error {
	n, err := topo.ProcessorCount()
	if err != nil {
		return fmt.Errorf("processor count: %w", err)
	}
	fmt.Fprintf(w, "processors: %d\n", n)
	fmt.Fprintf(w, "current:    %d\n", topo.CurrentProcessor())
	return nil
}
