package emu

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/sarchlab/n64core/insts"
	"github.com/sarchlab/n64core/timing/latency"
)

// CPU holds the architectural state of the R4300i and the machinery shared
// by every execution backend: the instruction semantics, exception
// dispatch, the Count/Compare timer and the stop request.
type CPU struct {
	regs RegFile
	cop0 COP0
	cop1 COP1
	bus  Bus

	latency *latency.Table
	cost    [insts.NumOps]uint64
	log     logr.Logger
	trace   bool

	// inDelay is true while the retiring instruction sits in a delay slot.
	inDelay bool

	stop       bool
	cycles     uint64
	instret    uint64
	exceptions uint64
}

// CPUOption is a functional option for configuring the CPU.
type CPUOption func(*CPU)

// WithLogger sets the logger. Exceptions log at V(1), per-instruction
// tracing at V(3).
func WithLogger(log logr.Logger) CPUOption {
	return func(c *CPU) {
		c.log = log
	}
}

// WithLatencyTable sets the per-instruction cycle costs.
func WithLatencyTable(t *latency.Table) CPUOption {
	return func(c *CPU) {
		c.latency = t
	}
}

// NewCPU creates a CPU attached to bus, in its power-on state.
func NewCPU(bus Bus, opts ...CPUOption) *CPU {
	c := &CPU{
		bus: bus,
		log: logr.Discard(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.latency == nil {
		c.latency = latency.NewTable()
	}
	for op := insts.Op(0); op < insts.NumOps; op++ {
		c.cost[op] = c.latency.OpLatency(op)
	}
	c.trace = c.log.V(3).Enabled()

	c.Reset()

	return c
}

// Reset puts the CPU in its power-on state at the reset vector.
func (c *CPU) Reset() {
	c.regs = RegFile{}
	c.regs.SetPC(VectorReset)
	c.cop0.Reset()
	c.cop1.Reset()
	c.inDelay = false
	c.stop = false
	c.cycles = 0
	c.instret = 0
	c.exceptions = 0
}

// RegFile returns the integer register file.
func (c *CPU) RegFile() *RegFile {
	return &c.regs
}

// COP0 returns the system control coprocessor.
func (c *CPU) COP0() *COP0 {
	return &c.cop0
}

// COP1 returns the floating-point register file.
func (c *CPU) COP1() *COP1 {
	return &c.cop1
}

// Bus returns the memory port the CPU executes against.
func (c *CPU) Bus() Bus {
	return c.bus
}

// Logger returns the CPU's logger.
func (c *CPU) Logger() logr.Logger {
	return c.log
}

// Cycles returns the number of cycles consumed since reset.
func (c *CPU) Cycles() uint64 {
	return c.cycles
}

// InstructionCount returns the number of instructions retired since reset.
func (c *CPU) InstructionCount() uint64 {
	return c.instret
}

// ExceptionCount returns the number of exceptions delivered since reset.
func (c *CPU) ExceptionCount() uint64 {
	return c.exceptions
}

// Cost returns the cycle cost of op.
func (c *CPU) Cost(op insts.Op) uint64 {
	return c.cost[op]
}

// RequestStop asks the running backend to return at the next instruction
// boundary. The request stays latched until ClearStop.
func (c *CPU) RequestStop() {
	c.stop = true
}

// StopRequested reports whether a stop has been requested.
func (c *CPU) StopRequested() bool {
	return c.stop
}

// ClearStop withdraws a stop request.
func (c *CPU) ClearStop() {
	c.stop = false
}

// TranslatePC translates the fetch address. On failure the matching
// exception has been delivered and ok is false.
func (c *CPU) TranslatePC() (phys uint32, ok bool) {
	pc := c.regs.PC
	if pc&3 != 0 {
		c.cop0.Reg[Cop0BadVAddr] = pc
		c.deliver(ExcAddressErrorLoad, 0, pc, c.regs.DelaySlot, false)
		return 0, false
	}

	phys, fail := c.cop0.Translate(AccessFetch, pc)
	if fail != FailNone {
		c.raiseAddress(fail, AccessFetch, pc, pc, c.regs.DelaySlot)
		return 0, false
	}

	return phys, true
}

// Exec retires one decoded instruction fetched from PC: it advances the PC
// triple, applies the instruction semantics and charges its cycles. It is
// the single execution path shared by all backends.
func (c *CPU) Exec(in *insts.Instruction) uint64 {
	rf := &c.regs
	c.inDelay = rf.DelaySlot
	rf.DelaySlot = false
	rf.OldPC = rf.PC
	rf.PC = rf.NextPC
	rf.NextPC += 4

	if c.trace {
		c.log.V(3).Info("exec", "pc", fmt.Sprintf("%#x", rf.OldPC),
			"inst", insts.Disassemble(in, rf.OldPC))
	}

	handlers[in.Op](c, in)

	n := c.cost[in.Op]
	c.Tick(n)
	c.instret++

	return n
}

// Tick advances Count by n cycles, raising the timer interrupt when Count
// reaches Compare.
func (c *CPU) Tick(n uint64) {
	c.cycles += n
	if c.cop0.advanceCount(n) {
		c.cop0.SetInterruptPending(IntTimer)
	}
}

// AdvanceLinear retires n straight-line instructions whose register effects
// were applied outside Exec, charging cycles in total. It is only valid
// when the PC triple is linear and no delay slot is pending.
func (c *CPU) AdvanceLinear(n, cycles uint64) {
	rf := &c.regs
	rf.OldPC = rf.PC + 4*(n-1)
	rf.PC += 4 * n
	rf.NextPC = rf.PC + 4
	c.Tick(cycles)
	c.instret += n
}
