// Package main provides n64diff, a differential runner: it executes the
// same image under every backend concurrently and reports any difference
// in the final CPU state or RDRAM contents.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/n64core/config"
	"github.com/sarchlab/n64core/emu"
	"github.com/sarchlab/n64core/loader"
	"github.com/sarchlab/n64core/machine"
)

var (
	configPath = flag.String("config", "", "Path to machine configuration file (.json, .yaml)")
	cycles     = flag.Uint64("cycles", 10_000_000, "Cycle budget for every backend")
	elfImage   = flag.Bool("elf", false, "Image is a MIPS ELF executable instead of a cartridge ROM")
	verbosity  = flag.Int("v", 0, "Log verbosity")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 || *cycles == 0 {
		fmt.Fprintf(os.Stderr, "Usage: n64diff [options] <image>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(2)
	}

	os.Exit(run(flag.Arg(0)))
}

func run(imagePath string) int {
	log := funcr.New(func(prefix, args string) {
		fmt.Fprintln(os.Stderr, prefix, args)
	}, funcr.Options{Verbosity: *verbosity})

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Error(err, "bad configuration")
			return 1
		}
	}

	load, err := imageLoader(imagePath, *elfImage)
	if err != nil {
		log.Error(err, "cannot load image", "path", imagePath)
		return 1
	}

	results, err := runAll(context.Background(), cfg, load, *cycles, log)
	if err != nil {
		log.Error(err, "run failed")
		return 1
	}

	if diverged := report(os.Stdout, results); diverged {
		return 1
	}
	return 0
}

// imageLoader reads the image once and returns a function installing a
// private copy in a machine.
func imageLoader(path string, isELF bool) (func(*machine.Machine) error, error) {
	if isELF {
		prog, err := loader.Load(path)
		if err != nil {
			return nil, err
		}
		return func(m *machine.Machine) error { return m.LoadELF(prog) }, nil
	}

	rom, err := loader.LoadROM(path)
	if err != nil {
		return nil, err
	}
	return func(m *machine.Machine) error {
		own := *rom
		own.Data = bytes.Clone(rom.Data)
		return m.LoadROM(&own)
	}, nil
}

// result is the final state of one backend.
type result struct {
	backend string
	snap    emu.Snapshot
	rdram   []byte
	runErr  error
}

// runAll runs a machine per backend concurrently, each for the same budget.
// A host-fatal error is recorded in the result rather than aborting the
// others.
func runAll(ctx context.Context, base *config.Config, load func(*machine.Machine) error,
	budget uint64, log logr.Logger) ([]result, error) {
	results := make([]result, len(config.Backends))

	g, ctx := errgroup.WithContext(ctx)
	for i, name := range config.Backends {
		i, name := i, name
		g.Go(func() error {
			cfg := base.Clone()
			cfg.Backend = name

			m, err := machine.New(cfg, machine.WithLogger(log.WithName(name)))
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			if err := load(m); err != nil {
				return err
			}

			_, runErr := m.Run(ctx, budget)
			results[i] = result{
				backend: name,
				snap:    m.Snapshot(),
				rdram:   bytes.Clone(m.Bus().RDRAM()),
				runErr:  runErr,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// report compares every result against the first and reports whether any
// diverged.
func report(w io.Writer, results []result) bool {
	ref := results[0]
	diverged := false

	for _, r := range results {
		status := "ok"
		if r.runErr != nil {
			status = r.runErr.Error()
		}
		fmt.Fprintf(w, "%-12s instructions=%d cycles=%d pc=%#x %s\n",
			r.backend, r.snap.Instret, r.snap.Cycles, r.snap.Regs.PC, status)
	}

	for _, r := range results[1:] {
		if d := cmp.Diff(ref.snap, r.snap); d != "" {
			diverged = true
			fmt.Fprintf(w, "\nstate differs (-%s +%s):\n%s", ref.backend, r.backend, d)
		}
		if off, ok := firstDifference(ref.rdram, r.rdram); ok {
			diverged = true
			fmt.Fprintf(w, "\nRDRAM differs (%s vs %s) first at %#x\n", ref.backend, r.backend, off)
		}
		if (ref.runErr == nil) != (r.runErr == nil) {
			diverged = true
			fmt.Fprintf(w, "\nrun outcome differs (%s vs %s)\n", ref.backend, r.backend)
		}
	}

	if !diverged {
		fmt.Fprintln(w, "\nall backends agree")
	}
	return diverged
}

func firstDifference(a, b []byte) (int, bool) {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i, true
		}
	}
	if len(a) != len(b) {
		return n, true
	}
	return 0, false
}
