// Package machine assembles a complete N64 CPU session: the bus with its
// peripherals, the CPU, and the configured execution backend.
package machine

import (
	"context"
	"io"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/rs/xid"

	"github.com/sarchlab/n64core/bus"
	"github.com/sarchlab/n64core/cached"
	"github.com/sarchlab/n64core/config"
	"github.com/sarchlab/n64core/dynarec"
	"github.com/sarchlab/n64core/emu"
	"github.com/sarchlab/n64core/loader"
	"github.com/sarchlab/n64core/timing/latency"
)

// Machine is one emulation session.
type Machine struct {
	config  *config.Config
	session xid.ID
	log     logr.Logger

	bus     *bus.Bus
	cpu     *emu.CPU
	backend emu.Backend

	rom *loader.ROM
}

// Option configures a machine.
type Option func(*Machine)

// WithLogger sets the logger. Every message carries the session id.
func WithLogger(log logr.Logger) Option {
	return func(m *Machine) {
		m.log = log
	}
}

// New creates a machine from cfg. The CPU starts at the reset vector; use
// LoadROM or LoadELF to give it something to run.
func New(cfg *config.Config, opts ...Option) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	m := &Machine{
		config:  cfg.Clone(),
		session: xid.New(),
		log:     logr.Discard(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.log = m.log.WithValues("session", m.session.String())

	m.bus = bus.New(
		bus.WithRDRAMSize(cfg.RDRAMSize),
		bus.WithLogger(m.log.WithName("bus")),
	)
	m.cpu = emu.NewCPU(m.bus,
		emu.WithLogger(m.log.WithName("cpu")),
		emu.WithLatencyTable(latency.NewTableWithConfig(cfg.Timing)),
	)
	m.bus.MI().OnInterrupt(m.rcpInterrupt)

	backend, err := NewBackend(m.cpu, m.config, m.log.WithName(cfg.Backend))
	if err != nil {
		return nil, err
	}
	m.backend = backend

	m.log.Info("machine created",
		"backend", backend.Name(), "rdram", cfg.RDRAMSize)

	return m, nil
}

// NewBackend creates the backend named by cfg.Backend driving cpu.
func NewBackend(cpu *emu.CPU, cfg *config.Config, log logr.Logger) (emu.Backend, error) {
	switch cfg.Backend {
	case config.BackendInterpreter:
		return emu.NewInterpreter(cpu), nil
	case config.BackendCached:
		return cached.New(cpu, cached.WithConfig(cfg.Cache)), nil
	case config.BackendDynarec:
		d, err := dynarec.New(cpu,
			dynarec.WithConfig(cfg.Dynarec),
			dynarec.WithLogger(log))
		if err != nil {
			return nil, errors.Wrap(err, "creating dynarec")
		}
		return d, nil
	}
	return nil, errors.Errorf("unknown backend %q", cfg.Backend)
}

func (m *Machine) rcpInterrupt(asserted bool) {
	if asserted {
		m.cpu.COP0().SetInterruptPending(emu.IntRCP)
	} else {
		m.cpu.COP0().ClearInterruptPending(emu.IntRCP)
	}
}

// Config returns a copy of the machine configuration.
func (m *Machine) Config() *config.Config {
	return m.config.Clone()
}

// Session returns the session id.
func (m *Machine) Session() string {
	return m.session.String()
}

// CPU returns the CPU.
func (m *Machine) CPU() *emu.CPU {
	return m.cpu
}

// Bus returns the bus.
func (m *Machine) Bus() *bus.Bus {
	return m.bus
}

// Backend returns the execution backend.
func (m *Machine) Backend() emu.Backend {
	return m.backend
}

// ROM returns the loaded cartridge, or nil.
func (m *Machine) ROM() *loader.ROM {
	return m.rom
}

// Snapshot captures the CPU state.
func (m *Machine) Snapshot() emu.Snapshot {
	return m.cpu.Snapshot()
}

// Stop asks a running Run to return at the next instruction boundary.
func (m *Machine) Stop() {
	m.backend.Stop()
}

// Close releases backend resources.
func (m *Machine) Close() error {
	if c, ok := m.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Run executes up to cycles CPU cycles, or until a stop is requested when
// cycles is 0. Execution proceeds in frame slices; ctx is checked between
// slices. A host-fatal condition in the CPU ends the run with an error
// whose cause is the *emu.FatalError.
func (m *Machine) Run(ctx context.Context, cycles uint64) (used uint64, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		fatal, ok := r.(*emu.FatalError)
		if !ok {
			panic(r)
		}
		m.log.Error(fatal, "cpu halted", "cycles", m.cpu.Cycles())
		err = errors.Wrap(fatal, "cpu halted")
	}()

	for cycles == 0 || used < cycles {
		if err := ctx.Err(); err != nil {
			return used, err
		}
		if m.cpu.StopRequested() {
			break
		}

		slice := m.config.FrameCycles
		if cycles != 0 {
			slice = min(slice, cycles-used)
		}
		used += m.backend.Run(slice)
	}

	return used, nil
}
