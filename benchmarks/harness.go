// Package benchmarks runs guest microbenchmarks on each execution backend
// and reports how they compare.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/sarchlab/n64core/cached"
	"github.com/sarchlab/n64core/config"
	"github.com/sarchlab/n64core/dynarec"
	"github.com/sarchlab/n64core/emu"
	"github.com/sarchlab/n64core/emutest"
	"github.com/sarchlab/n64core/machine"
)

// Result holds the outcome of a single benchmark run on one backend.
type Result struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Backend is the execution backend the benchmark ran on
	Backend string `json:"backend"`

	// Cycles is the guest cycle count consumed until halt
	Cycles uint64 `json:"cycles"`

	// Instructions is the number of retired guest instructions
	Instructions uint64 `json:"instructions"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// V0 is the value left in v0 at halt
	V0 uint64 `json:"v0"`

	// Passed reports whether V0 matched the expected value
	Passed bool `json:"passed"`

	// Decodes counts cached-interpreter decode misses
	Decodes uint64 `json:"decodes,omitempty"`

	// BlocksBuilt and NativeInsts describe dynarec activity
	BlocksBuilt uint64 `json:"blocks_built,omitempty"`
	NativeInsts uint64 `json:"native_insts,omitempty"`

	// WallTime is the host time taken to run the benchmark
	WallTime time.Duration `json:"wall_time_ns"`

	// MIPS is millions of guest instructions per host second
	MIPS float64 `json:"mips"`
}

// Benchmark defines a single guest program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Program is loaded at emutest.Entry and ends by writing the halt
	// device
	Program emutest.Program

	// ExpectedV0 is the value v0 holds at halt
	ExpectedV0 uint64
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Backends lists the backends every benchmark runs on
	Backends []string

	// Machine supplies the backend settings
	Machine *config.Config

	// MaxCycles aborts a benchmark that has not halted
	MaxCycles uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Logger receives backend diagnostics
	Logger logr.Logger
}

// DefaultConfig returns a configuration running every backend.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Backends:  config.Backends,
		Machine:   config.Default(),
		MaxCycles: 50_000_000,
		Output:    os.Stdout,
		Logger:    logr.Discard(),
	}
}

// Harness runs benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	def := DefaultConfig()
	if config.Output == nil {
		config.Output = def.Output
	}
	if config.Machine == nil {
		config.Machine = def.Machine
	}
	if len(config.Backends) == 0 {
		config.Backends = def.Backends
	}
	if config.MaxCycles == 0 {
		config.MaxCycles = def.MaxCycles
	}
	if config.Logger.GetSink() == nil {
		config.Logger = def.Logger
	}
	return &Harness{config: config}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes every benchmark on every backend. Results are ordered
// by benchmark, then backend.
func (h *Harness) RunAll() ([]Result, error) {
	results := make([]Result, 0, len(h.benchmarks)*len(h.config.Backends))
	for _, bench := range h.benchmarks {
		for _, backend := range h.config.Backends {
			r, err := h.Run(bench, backend)
			if err != nil {
				return results, err
			}
			results = append(results, r)
		}
	}
	return results, nil
}

// Run executes bench on the named backend.
func (h *Harness) Run(bench Benchmark, backend string) (Result, error) {
	cfg := h.config.Machine.Clone()
	cfg.Backend = backend

	_, cpu, err := emutest.Setup(bench.Program, emu.WithLogger(h.config.Logger))
	if err != nil {
		return Result{}, errors.Wrapf(err, "loading %s", bench.Name)
	}

	be, err := machine.NewBackend(cpu, cfg, h.config.Logger.WithName(backend))
	if err != nil {
		return Result{}, err
	}
	if c, ok := be.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}

	start := time.Now()
	for !cpu.StopRequested() {
		if cpu.Cycles() >= h.config.MaxCycles {
			return Result{}, errors.Errorf("%s on %s did not halt within %d cycles",
				bench.Name, backend, h.config.MaxCycles)
		}
		be.Run(min(h.config.Machine.FrameCycles, h.config.MaxCycles-cpu.Cycles()))
	}
	wall := time.Since(start)

	r := Result{
		Name:         bench.Name,
		Backend:      backend,
		Cycles:       cpu.Cycles(),
		Instructions: cpu.InstructionCount(),
		V0:           cpu.RegFile().ReadReg(v0),
		WallTime:     wall,
	}
	r.Passed = r.V0 == bench.ExpectedV0
	if r.Instructions > 0 {
		r.CPI = float64(r.Cycles) / float64(r.Instructions)
	}
	if wall > 0 {
		r.MIPS = float64(r.Instructions) / wall.Seconds() / 1e6
	}

	switch b := be.(type) {
	case *cached.Interpreter:
		r.Decodes = b.Stats().Decodes
	case *dynarec.Dynarec:
		s := b.Stats()
		r.BlocksBuilt = s.BlocksBuilt
		r.NativeInsts = s.NativeInsts
	}

	return r, nil
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []Result) {
	w := h.config.Output
	_, _ = fmt.Fprintln(w, "=== N64 Core Backend Benchmark Results ===")
	_, _ = fmt.Fprintln(w, "")

	for _, r := range results {
		status := "ok"
		if !r.Passed {
			status = "WRONG RESULT"
		}
		_, _ = fmt.Fprintf(w, "Benchmark: %s [%s] %s\n", r.Name, r.Backend, status)
		_, _ = fmt.Fprintf(w, "  v0:           %d\n", r.V0)
		_, _ = fmt.Fprintf(w, "  Cycles:       %d\n", r.Cycles)
		_, _ = fmt.Fprintf(w, "  Instructions: %d\n", r.Instructions)
		_, _ = fmt.Fprintf(w, "  CPI:          %.3f\n", r.CPI)
		if r.Decodes > 0 {
			_, _ = fmt.Fprintf(w, "  Decodes:      %d\n", r.Decodes)
		}
		if r.BlocksBuilt > 0 {
			_, _ = fmt.Fprintf(w, "  Blocks:       %d\n", r.BlocksBuilt)
			_, _ = fmt.Fprintf(w, "  Native insts: %d\n", r.NativeInsts)
		}
		_, _ = fmt.Fprintf(w, "  Wall Time:    %v (%.1f MIPS)\n", r.WallTime, r.MIPS)
		_, _ = fmt.Fprintln(w, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []Result) {
	w := h.config.Output
	_, _ = fmt.Fprintln(w, "name,backend,cycles,instructions,cpi,v0,passed,wall_ns,mips")
	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%s,%s,%d,%d,%.3f,%d,%t,%d,%.2f\n",
			r.Name,
			r.Backend,
			r.Cycles,
			r.Instructions,
			r.CPI,
			r.V0,
			r.Passed,
			r.WallTime.Nanoseconds(),
			r.MIPS,
		)
	}
}

// PrintJSON outputs benchmark results as an indented JSON array.
func (h *Harness) PrintJSON(results []Result) error {
	enc := json.NewEncoder(h.config.Output)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(results), "encoding results")
}
