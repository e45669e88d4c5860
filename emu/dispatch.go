package emu

import "github.com/sarchlab/n64core/insts"

// Handler applies the semantics of one decoded instruction. The PC triple
// has already been advanced; OldPC is the instruction's own address.
type Handler func(c *CPU, in *insts.Instruction)

var handlers [insts.NumOps]Handler

func init() {
	tables := []map[insts.Op]Handler{
		aluHandlers,
		mulDivHandlers,
		branchHandlers,
		memHandlers,
		cop0Handlers,
		cop1Handlers,
		systemHandlers,
	}
	for _, t := range tables {
		for op, h := range t {
			handlers[op] = h
		}
	}
	for op := range handlers {
		if handlers[op] == nil {
			handlers[op] = handleReserved
		}
	}
}

// HandlerFor returns the semantic handler of op.
func HandlerFor(op insts.Op) Handler {
	return handlers[op]
}

func handleReserved(c *CPU, in *insts.Instruction) {
	panic(newFatalError(c.regs.OldPC, in, "reserved instruction encoding"))
}

var systemHandlers = map[insts.Op]Handler{
	insts.OpSYSCALL: func(c *CPU, _ *insts.Instruction) { c.raise(ExcSyscall, 0) },
	insts.OpBREAK:   func(c *CPU, _ *insts.Instruction) { c.raise(ExcBreakpoint, 0) },
	insts.OpSYNC:    func(*CPU, *insts.Instruction) {},
	insts.OpCOP2:    handleCop2,
	insts.OpLWC2:    handleCop2,
	insts.OpSWC2:    handleCop2,
	insts.OpLDC2:    handleCop2,
	insts.OpSDC2:    handleCop2,
}

// handleCop2 gates on CU2; the R4300i has no COP2 so a usable unit still
// raises a reserved-instruction exception.
func handleCop2(c *CPU, _ *insts.Instruction) {
	if !c.cop0.CopUsable(2) {
		c.raise(ExcCopUnusable, 2)
		return
	}
	c.raise(ExcReservedInstruction, 2)
}
