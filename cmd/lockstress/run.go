// run.go implements the 'lockstress run' command.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/peterbourgon/ff/v3"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/kolkov/corelock/locks"
	"github.com/kolkov/corelock/race"
	"github.com/kolkov/corelock/topology"
)

// errTornRead is returned when a reader sees the guarded pair mid-update.
var errTornRead = errors.New("reader observed a writer in progress")

type runArgs struct {
	readers  int
	writers  int
	duration time.Duration
	shards   int
	checker  bool
	logLevel string

	fs *flag.FlagSet
}

func (args *runArgs) SanityCheck() error {
	if args.readers < 0 || args.writers < 0 {
		return errors.New("readers and writers must not be negative")
	}
	if args.readers+args.writers == 0 {
		return errors.New("at least one reader or writer is required")
	}
	if args.duration <= 0 {
		return errors.New("duration must be positive")
	}
	if args.shards < 0 {
		return errors.New("shards must not be negative")
	}
	return nil
}

func parseRunArgs(argv []string) (*runArgs, error) {
	var args runArgs

	fs := flag.NewFlagSet("lockstress run", flag.ContinueOnError)
	fs.IntVar(&args.readers, "readers", 8, "Number of reader goroutines.")
	fs.IntVar(&args.writers, "writers", 1, "Number of writer goroutines.")
	fs.DurationVar(&args.duration, "duration", 2*time.Second, "How long to run.")
	fs.IntVar(&args.shards, "shards", 0,
		"Emulate this many processors, spreading readers round-robin. 0 uses the host.")
	fs.BoolVar(&args.checker, "checker", false, "Track lock ownership and report misuse.")
	fs.StringVar(&args.logLevel, "log-level", "info", "Log level (debug, info, warn, error).")
	fs.String("config", "", "Optional config file.")
	args.fs = fs

	err := ff.Parse(fs, argv,
		ff.WithEnvVarPrefix("LOCKSTRESS"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithAllowMissingConfigFile(true),
	)
	if err != nil {
		return nil, err
	}
	return &args, args.SanityCheck()
}

// runCommand implements the 'lockstress run' command.
//
// Writers bump both halves of a guarded pair under the exclusive lock;
// readers check under the shared lock that the halves agree. A torn read
// or a checker violation fails the run with exit code 1.
func runCommand(argv []string) {
	args, err := parseRunArgs(argv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if err = setupLogging(args.logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	res, err := stress(context.Background(), args)
	if err != nil {
		log.Errorf("Stress run failed: %v", err)
		os.Exit(1)
	}
	res.print(os.Stdout)
	if len(res.violations) > 0 {
		os.Exit(1)
	}
}

type stressResult struct {
	shards     int
	reads      uint64
	writes     uint64
	elapsed    time.Duration
	violations []race.Violation
}

func (r *stressResult) print(w io.Writer) {
	secs := r.elapsed.Seconds()
	if secs == 0 {
		secs = 1
	}
	fmt.Fprintf(w, "shards:     %d\n", r.shards)
	fmt.Fprintf(w, "reads:      %d (%.0f/s)\n", r.reads, float64(r.reads)/secs)
	fmt.Fprintf(w, "writes:     %d (%.0f/s)\n", r.writes, float64(r.writes)/secs)
	fmt.Fprintf(w, "violations: %d\n", len(r.violations))
	for _, v := range r.violations {
		fmt.Fprint(w, v.String())
	}
}

// stress runs the reader/writer workload until args.duration elapses or
// ctx is cancelled.
func stress(ctx context.Context, args *runArgs) (*stressResult, error) {
	opts := []locks.Option{locks.WithLogger(log.StandardLogger())}

	if args.shards > 0 {
		topo := topology.Fixed(args.shards)
		var next atomic.Uint32
		n := uint32(args.shards)
		topo.SetFunc(func() int { return int(next.Add(1) % n) })
		opts = append(opts, locks.WithTopology(topo))
	}

	var checker *race.Checker
	if args.checker {
		checker = race.NewChecker()
		opts = append(opts, locks.WithObserver(checker))
	} else {
		opts = append(opts, locks.WithObserver(race.Nop{}))
	}

	lock := locks.NewPerCPURWLock(opts...)
	defer lock.Close()

	log.WithFields(log.Fields{
		"shards":   lock.NumShards(),
		"readers":  args.readers,
		"writers":  args.writers,
		"duration": args.duration,
		"checker":  args.checker,
	}).Info("Starting stress run")

	ctx, cancel := context.WithTimeout(ctx, args.duration)
	defer cancel()

	var (
		a, b    uint64
		writing atomic.Bool
		reads   atomic.Uint64
		writes  atomic.Uint64
	)

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for range args.writers {
		g.Go(func() error {
			for ctx.Err() == nil {
				lock.Lock()
				writing.Store(true)
				a++
				b++
				writing.Store(false)
				lock.Unlock()
				writes.Add(1)
			}
			return nil
		})
	}
	for range args.readers {
		g.Go(func() error {
			for ctx.Err() == nil {
				s := lock.RLock()
				torn := a != b || writing.Load()
				s.RUnlock()
				if torn {
					return errTornRead
				}
				reads.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("after %d reads and %d writes: %w",
			reads.Load(), writes.Load(), err)
	}

	res := &stressResult{
		shards:  lock.NumShards(),
		reads:   reads.Load(),
		writes:  writes.Load(),
		elapsed: time.Since(start),
	}
	if checker != nil {
		res.violations = checker.Violations()
	}
	log.WithFields(log.Fields{
		"reads":      res.reads,
		"writes":     res.writes,
		"violations": len(res.violations),
	}).Debug("Stress run finished")
	return res, nil
}
