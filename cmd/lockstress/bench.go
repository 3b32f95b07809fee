// bench.go implements the 'lockstress bench' command.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/peterbourgon/ff/v3"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/kolkov/corelock/locks"
	"github.com/kolkov/corelock/race"
)

// checkEvery is how many lock round trips a bench goroutine makes between
// looks at the deadline.
const checkEvery = 256

type benchArgs struct {
	goroutines int
	duration   time.Duration
	logLevel   string

	fs *flag.FlagSet
}

func (args *benchArgs) SanityCheck() error {
	if args.goroutines < 0 {
		return errors.New("goroutines must not be negative")
	}
	if args.duration <= 0 {
		return errors.New("duration must be positive")
	}
	return nil
}

func parseBenchArgs(argv []string) (*benchArgs, error) {
	var args benchArgs

	fs := flag.NewFlagSet("lockstress bench", flag.ContinueOnError)
	fs.IntVar(&args.goroutines, "goroutines", 0, "Reader goroutines per lock. 0 means GOMAXPROCS.")
	fs.DurationVar(&args.duration, "duration", time.Second, "How long to measure each lock.")
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
	if args.goroutines == 0 {
		args.goroutines = runtime.GOMAXPROCS(0)
	}
	return &args, args.SanityCheck()
}

// benchCommand implements the 'lockstress bench' command.
func benchCommand(argv []string) {
	args, err := parseBenchArgs(argv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if err = setupLogging(args.logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	results, err := bench(context.Background(), args, benchTargets())
	if err != nil {
		log.Errorf("Benchmark failed: %v", err)
		os.Exit(1)
	}
	printBench(os.Stdout, results)
}

// benchTarget is one lock under measurement. readOnce takes and releases
// its read lock once.
type benchTarget struct {
	name     string
	readOnce func()
}

func benchTargets() []benchTarget {
	percpu := locks.NewPerCPURWLock(locks.WithObserver(race.Nop{}))
	rwspin := locks.NewRWSpinLock(race.Nop{})
	var rwmutex sync.RWMutex

	return []benchTarget{
		{"PerCPURWLock", func() { percpu.RLock().RUnlock() }},
		{"RWSpinLock", func() { rwspin.RLock(); rwspin.RUnlock() }},
		{"sync.RWMutex", func() { rwmutex.RLock(); rwmutex.RUnlock() }},
	}
}

type benchResult struct {
	name    string
	ops     uint64
	elapsed time.Duration
}

func (r benchResult) opsPerSec() float64 {
	if r.elapsed <= 0 {
		return 0
	}
	return float64(r.ops) / r.elapsed.Seconds()
}

// bench measures each target in turn for args.duration.
func bench(ctx context.Context, args *benchArgs, targets []benchTarget) ([]benchResult, error) {
	results := make([]benchResult, 0, len(targets))
	for _, t := range targets {
		res, err := benchOne(ctx, args, t)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.name, err)
		}
		log.WithFields(log.Fields{
			"lock": res.name,
			"ops":  res.ops,
		}).Debug("Measured")
		results = append(results, res)
	}
	return results, nil
}

func benchOne(ctx context.Context, args *benchArgs, t benchTarget) (benchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, args.duration)
	defer cancel()

	var ops atomic.Uint64
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	for range args.goroutines {
		g.Go(func() error {
			var n uint64
			for ctx.Err() == nil {
				for range checkEvery {
					t.readOnce()
				}
				n += checkEvery
			}
			ops.Add(n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return benchResult{}, err
	}
	return benchResult{name: t.name, ops: ops.Load(), elapsed: time.Since(start)}, nil
}

func printBench(w io.Writer, results []benchResult) {
	fmt.Fprintf(w, "%-14s %14s %14s\n", "lock", "ops", "ops/s")
	for _, r := range results {
		fmt.Fprintf(w, "%-14s %14d %14.0f\n", r.name, r.ops, r.opsPerSec())
	}
}
