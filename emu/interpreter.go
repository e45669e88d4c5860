package emu

import "github.com/sarchlab/n64core/insts"

// Interpreter is the reference backend: every instruction is fetched,
// translated and decoded afresh.
type Interpreter struct {
	cpu     *CPU
	decoder *insts.Decoder
	inst    insts.Instruction
}

// NewInterpreter creates an interpreter driving cpu.
func NewInterpreter(cpu *CPU) *Interpreter {
	return &Interpreter{
		cpu:     cpu,
		decoder: insts.NewDecoder(),
	}
}

// Name returns "interpreter".
func (i *Interpreter) Name() string {
	return "interpreter"
}

// CPU returns the CPU the interpreter drives.
func (i *Interpreter) CPU() *CPU {
	return i.cpu
}

// Stop asks Run to return at the next instruction boundary.
func (i *Interpreter) Stop() {
	i.cpu.RequestStop()
}

// Step executes a single instruction.
func (i *Interpreter) Step() uint64 {
	c := i.cpu
	c.CheckInterrupts()

	phys, ok := c.TranslatePC()
	if !ok {
		return 0
	}

	i.decoder.DecodeInto(c.bus.Read32(phys), &i.inst)
	return c.Exec(&i.inst)
}

// Run executes instructions until budget cycles are consumed or a stop is
// requested.
func (i *Interpreter) Run(budget uint64) uint64 {
	var used uint64
	for used < budget && !i.cpu.stop {
		used += i.Step()
	}
	return used
}
