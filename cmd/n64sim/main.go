// Package main provides n64sim, which runs a cartridge ROM or a MIPS ELF
// executable on the N64 CPU core under a chosen backend.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"github.com/sarchlab/n64core/cached"
	"github.com/sarchlab/n64core/config"
	"github.com/sarchlab/n64core/dynarec"
	"github.com/sarchlab/n64core/emu"
	"github.com/sarchlab/n64core/loader"
	"github.com/sarchlab/n64core/machine"
)

var (
	backendName = flag.String("backend", "", "Execution backend: interpreter, cached or dynarec (default from config)")
	configPath  = flag.String("config", "", "Path to machine configuration file (.json, .yaml)")
	cycles      = flag.Uint64("cycles", 0, "Cycle budget; 0 runs until the guest halts or SIGINT")
	elfImage    = flag.Bool("elf", false, "Image is a MIPS ELF executable instead of a cartridge ROM")
	dumpPath    = flag.String("dump", "", "Write the final CPU state as snappy-compressed JSON")
	cpuProfile  = flag.String("cpuprofile", "", "Write a host CPU profile")
	verbosity   = flag.Int("v", 0, "Log verbosity (1 exceptions, 2 blocks and DMA, 3 instructions)")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: n64sim [options] <image>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(2)
	}

	os.Exit(run(flag.Arg(0)))
}

func run(imagePath string) int {
	log := newLogger(os.Stderr, *verbosity)

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Error(err, "cannot create profile")
			return 1
		}
		defer func() { _ = f.Close() }()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Error(err, "cannot start profile")
			return 1
		}
		defer pprof.StopCPUProfile()
	}

	cfg, err := machineConfig(*configPath, *backendName)
	if err != nil {
		log.Error(err, "bad configuration")
		return 1
	}

	m, err := machine.New(cfg, machine.WithLogger(log))
	if err != nil {
		log.Error(err, "cannot create machine")
		return 1
	}
	defer func() { _ = m.Close() }()

	if err := loadImage(m, imagePath, *elfImage); err != nil {
		log.Error(err, "cannot load image", "path", imagePath)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	used, runErr := m.Run(ctx, *cycles)
	report(os.Stdout, m, imagePath, used)

	if *dumpPath != "" {
		if err := writeDump(*dumpPath, m.Snapshot()); err != nil {
			log.Error(err, "cannot write dump")
			return 1
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error(runErr, "run failed")
		return 1
	}
	return 0
}

func newLogger(w io.Writer, v int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(w, "%s: %s\n", prefix, args)
		} else {
			fmt.Fprintln(w, args)
		}
	}, funcr.Options{Verbosity: v})
}

// machineConfig loads the configuration file, if any, and applies the
// backend override.
func machineConfig(path, backend string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}

	if backend != "" {
		cfg.Backend = backend
	}

	return cfg, cfg.Validate()
}

func loadImage(m *machine.Machine, path string, isELF bool) error {
	if isELF {
		prog, err := loader.Load(path)
		if err != nil {
			return err
		}
		return m.LoadELF(prog)
	}

	rom, err := loader.LoadROM(path)
	if err != nil {
		return err
	}
	return m.LoadROM(rom)
}

// writeDump stores a snapshot as JSON in a snappy stream.
func writeDump(path string, snap emu.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create dump file")
	}
	defer func() { _ = f.Close() }()

	w := snappy.NewBufferedWriter(f)
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		return errors.Wrap(err, "failed to encode snapshot")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "failed to flush dump")
	}
	return nil
}

func report(w io.Writer, m *machine.Machine, imagePath string, used uint64) {
	cpu := m.CPU()
	rf := cpu.RegFile()

	fmt.Fprintf(w, "Image: %s\n", imagePath)
	if rom := m.ROM(); rom != nil {
		fmt.Fprintf(w, "Title: %s (%s)\n", rom.Header.Title(), rom.Order)
	}
	fmt.Fprintf(w, "Backend: %s\n", m.Backend().Name())
	fmt.Fprintf(w, "Session: %s\n", m.Session())
	fmt.Fprintf(w, "Cycles: %d (this run %d)\n", cpu.Cycles(), used)
	fmt.Fprintf(w, "Instructions: %d\n", cpu.InstructionCount())
	fmt.Fprintf(w, "Exceptions: %d\n", cpu.ExceptionCount())
	fmt.Fprintf(w, "PC: %#016x\n", rf.PC)

	switch b := m.Backend().(type) {
	case *cached.Interpreter:
		s := b.Stats()
		fmt.Fprintf(w, "Code cache: %d lookups, %d hits, %d decodes, %d evictions, %d invalidations\n",
			s.Lookups, s.Hits, s.Decodes, s.Evictions, s.Invalidations)
	case *dynarec.Dynarec:
		s := b.Stats()
		fmt.Fprintf(w, "Blocks: %d built, %d invalidated, %d lookups, %d hits\n",
			s.BlocksBuilt, s.BlocksInvalidated, s.Lookups, s.Hits)
		fmt.Fprintf(w, "Native: %d segments, %d instructions; handler calls: %d\n",
			s.NativeSegments, s.NativeInsts, s.HandlerCalls)
	}
}
