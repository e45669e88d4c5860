package emu

import "github.com/sarchlab/n64core/insts"

var memHandlers = map[insts.Op]Handler{
	insts.OpLB:  func(c *CPU, in *insts.Instruction) { c.load(in, 1, func(p uint32) uint64 { return sext8(c.bus.Read8(p)) }) },
	insts.OpLBU: func(c *CPU, in *insts.Instruction) { c.load(in, 1, func(p uint32) uint64 { return uint64(c.bus.Read8(p)) }) },
	insts.OpLH:  func(c *CPU, in *insts.Instruction) { c.load(in, 2, func(p uint32) uint64 { return sext16(c.bus.Read16(p)) }) },
	insts.OpLHU: func(c *CPU, in *insts.Instruction) { c.load(in, 2, func(p uint32) uint64 { return uint64(c.bus.Read16(p)) }) },
	insts.OpLW:  func(c *CPU, in *insts.Instruction) { c.load(in, 4, func(p uint32) uint64 { return sext32(c.bus.Read32(p)) }) },
	insts.OpLWU: func(c *CPU, in *insts.Instruction) { c.load(in, 4, func(p uint32) uint64 { return uint64(c.bus.Read32(p)) }) },
	insts.OpLD:  func(c *CPU, in *insts.Instruction) { c.load(in, 8, c.bus.Read64) },

	insts.OpSB: func(c *CPU, in *insts.Instruction) { c.store(in, 1, func(p uint32, v uint64) { c.bus.Write8(p, uint8(v)) }) },
	insts.OpSH: func(c *CPU, in *insts.Instruction) { c.store(in, 2, func(p uint32, v uint64) { c.bus.Write16(p, uint16(v)) }) },
	insts.OpSW: func(c *CPU, in *insts.Instruction) { c.store(in, 4, func(p uint32, v uint64) { c.bus.Write32(p, uint32(v)) }) },
	insts.OpSD: func(c *CPU, in *insts.Instruction) { c.store(in, 8, c.bus.Write64) },

	insts.OpLWL: execLWL,
	insts.OpLWR: execLWR,
	insts.OpLDL: execLDL,
	insts.OpLDR: execLDR,
	insts.OpSWL: execSWL,
	insts.OpSWR: execSWR,
	insts.OpSDL: execSDL,
	insts.OpSDR: execSDR,

	insts.OpLL:  execLL,
	insts.OpLLD: execLLD,
	insts.OpSC:  execSC,
	insts.OpSCD: execSCD,

	insts.OpCACHE: func(*CPU, *insts.Instruction) {},
}

func (c *CPU) effectiveAddress(in *insts.Instruction) uint64 {
	return c.rs(in) + in.SImm()
}

// resolve checks alignment then translates va. On failure the exception has
// been raised and ok is false.
func (c *CPU) resolve(kind AccessKind, va uint64, size uint64) (uint32, bool) {
	if va&(size-1) != 0 {
		c.raiseMisaligned(kind, va)
		return 0, false
	}
	phys, fail := c.cop0.Translate(kind, va)
	if fail != FailNone {
		c.raiseAddress(fail, kind, va, c.regs.OldPC, c.inDelay)
		return 0, false
	}
	return phys, true
}

func (c *CPU) load(in *insts.Instruction, size uint64, read func(uint32) uint64) {
	phys, ok := c.resolve(AccessLoad, c.effectiveAddress(in), size)
	if !ok {
		return
	}
	c.regs.WriteReg(in.Rt, read(phys))
}

func (c *CPU) store(in *insts.Instruction, size uint64, write func(uint32, uint64)) {
	phys, ok := c.resolve(AccessStore, c.effectiveAddress(in), size)
	if !ok {
		return
	}
	write(phys, c.rt(in))
}

// Unaligned loads and stores merge the addressed bytes of the enclosing
// aligned word into or out of the register, most significant byte first.

func execLWL(c *CPU, in *insts.Instruction) {
	va := c.effectiveAddress(in)
	phys, ok := c.resolve(AccessLoad, va, 1)
	if !ok {
		return
	}
	shift := (va & 3) * 8
	word := c.bus.Read32(phys &^ 3)
	old := uint32(c.rt(in))
	c.regs.WriteReg32(in.Rt, old&(1<<shift-1)|word<<shift)
}

func execLWR(c *CPU, in *insts.Instruction) {
	va := c.effectiveAddress(in)
	phys, ok := c.resolve(AccessLoad, va, 1)
	if !ok {
		return
	}
	shift := (3 - va&3) * 8
	word := c.bus.Read32(phys &^ 3)
	if shift == 0 {
		c.regs.WriteReg32(in.Rt, word)
		return
	}
	mask := uint64(0xFFFFFFFF) >> shift
	c.regs.WriteReg(in.Rt, c.rt(in)&^mask|uint64(word>>shift))
}

func execLDL(c *CPU, in *insts.Instruction) {
	va := c.effectiveAddress(in)
	phys, ok := c.resolve(AccessLoad, va, 1)
	if !ok {
		return
	}
	shift := (va & 7) * 8
	dw := c.bus.Read64(phys &^ 7)
	c.regs.WriteReg(in.Rt, c.rt(in)&(1<<shift-1)|dw<<shift)
}

func execLDR(c *CPU, in *insts.Instruction) {
	va := c.effectiveAddress(in)
	phys, ok := c.resolve(AccessLoad, va, 1)
	if !ok {
		return
	}
	shift := (7 - va&7) * 8
	dw := c.bus.Read64(phys &^ 7)
	c.regs.WriteReg(in.Rt, c.rt(in)&^(^uint64(0)>>shift)|dw>>shift)
}

func execSWL(c *CPU, in *insts.Instruction) {
	va := c.effectiveAddress(in)
	phys, ok := c.resolve(AccessStore, va, 1)
	if !ok {
		return
	}
	shift := (va & 3) * 8
	old := c.bus.Read32(phys &^ 3)
	mask := uint32(0xFFFFFFFF) >> shift
	c.bus.Write32(phys&^3, old&^mask|uint32(c.rt(in))>>shift)
}

func execSWR(c *CPU, in *insts.Instruction) {
	va := c.effectiveAddress(in)
	phys, ok := c.resolve(AccessStore, va, 1)
	if !ok {
		return
	}
	shift := (3 - va&3) * 8
	old := c.bus.Read32(phys &^ 3)
	c.bus.Write32(phys&^3, old&(1<<shift-1)|uint32(c.rt(in))<<shift)
}

func execSDL(c *CPU, in *insts.Instruction) {
	va := c.effectiveAddress(in)
	phys, ok := c.resolve(AccessStore, va, 1)
	if !ok {
		return
	}
	shift := (va & 7) * 8
	old := c.bus.Read64(phys &^ 7)
	mask := ^uint64(0) >> shift
	c.bus.Write64(phys&^7, old&^mask|c.rt(in)>>shift)
}

func execSDR(c *CPU, in *insts.Instruction) {
	va := c.effectiveAddress(in)
	phys, ok := c.resolve(AccessStore, va, 1)
	if !ok {
		return
	}
	shift := (7 - va&7) * 8
	old := c.bus.Read64(phys &^ 7)
	c.bus.Write64(phys&^7, old&(1<<shift-1)|c.rt(in)<<shift)
}

// Load-linked records the physical address and sets LLBit; a store
// conditional commits only while LLBit is still set and always clears it.

func execLL(c *CPU, in *insts.Instruction) {
	phys, ok := c.resolve(AccessLoad, c.effectiveAddress(in), 4)
	if !ok {
		return
	}
	c.regs.WriteReg(in.Rt, sext32(c.bus.Read32(phys)))
	c.linkAddress(phys)
}

func execLLD(c *CPU, in *insts.Instruction) {
	phys, ok := c.resolve(AccessLoad, c.effectiveAddress(in), 8)
	if !ok {
		return
	}
	c.regs.WriteReg(in.Rt, c.bus.Read64(phys))
	c.linkAddress(phys)
}

func (c *CPU) linkAddress(phys uint32) {
	c.cop0.Reg[Cop0LLAddr] = uint64(phys >> 4)
	c.cop0.LLBit = true
}

func execSC(c *CPU, in *insts.Instruction) {
	c.storeConditional(in, 4, func(p uint32, v uint64) { c.bus.Write32(p, uint32(v)) })
}

func execSCD(c *CPU, in *insts.Instruction) {
	c.storeConditional(in, 8, c.bus.Write64)
}

func (c *CPU) storeConditional(in *insts.Instruction, size uint64, write func(uint32, uint64)) {
	if !c.cop0.LLBit {
		c.regs.WriteReg(in.Rt, 0)
		return
	}
	phys, ok := c.resolve(AccessStore, c.effectiveAddress(in), size)
	if !ok {
		return
	}
	write(phys, c.rt(in))
	c.cop0.LLBit = false
	c.regs.WriteReg(in.Rt, 1)
}
