package emu

import "github.com/sarchlab/n64core/insts"

var aluHandlers = map[insts.Op]Handler{
	insts.OpADD:    execADD,
	insts.OpADDU:   execADDU,
	insts.OpSUB:    execSUB,
	insts.OpSUBU:   execSUBU,
	insts.OpDADD:   execDADD,
	insts.OpDADDU:  execDADDU,
	insts.OpDSUB:   execDSUB,
	insts.OpDSUBU:  execDSUBU,
	insts.OpAND:    func(c *CPU, in *insts.Instruction) { c.regs.WriteReg(in.Rd, c.rs(in)&c.rt(in)) },
	insts.OpOR:     func(c *CPU, in *insts.Instruction) { c.regs.WriteReg(in.Rd, c.rs(in)|c.rt(in)) },
	insts.OpXOR:    func(c *CPU, in *insts.Instruction) { c.regs.WriteReg(in.Rd, c.rs(in)^c.rt(in)) },
	insts.OpNOR:    func(c *CPU, in *insts.Instruction) { c.regs.WriteReg(in.Rd, ^(c.rs(in) | c.rt(in))) },
	insts.OpSLT:    func(c *CPU, in *insts.Instruction) { c.regs.WriteReg(in.Rd, b2u(int64(c.rs(in)) < int64(c.rt(in)))) },
	insts.OpSLTU:   func(c *CPU, in *insts.Instruction) { c.regs.WriteReg(in.Rd, b2u(c.rs(in) < c.rt(in))) },
	insts.OpADDI:   execADDI,
	insts.OpADDIU:  execADDIU,
	insts.OpDADDI:  execDADDI,
	insts.OpDADDIU: func(c *CPU, in *insts.Instruction) { c.regs.WriteReg(in.Rt, c.rs(in)+in.SImm()) },
	insts.OpSLTI:   func(c *CPU, in *insts.Instruction) { c.regs.WriteReg(in.Rt, b2u(int64(c.rs(in)) < int64(in.SImm()))) },
	insts.OpSLTIU:  func(c *CPU, in *insts.Instruction) { c.regs.WriteReg(in.Rt, b2u(c.rs(in) < in.SImm())) },
	insts.OpANDI:   func(c *CPU, in *insts.Instruction) { c.regs.WriteReg(in.Rt, c.rs(in)&in.ZImm()) },
	insts.OpORI:    func(c *CPU, in *insts.Instruction) { c.regs.WriteReg(in.Rt, c.rs(in)|in.ZImm()) },
	insts.OpXORI:   func(c *CPU, in *insts.Instruction) { c.regs.WriteReg(in.Rt, c.rs(in)^in.ZImm()) },
	insts.OpLUI:    func(c *CPU, in *insts.Instruction) { c.regs.WriteReg32(in.Rt, uint32(in.Imm)<<16) },

	insts.OpSLL:    func(c *CPU, in *insts.Instruction) { c.regs.WriteReg32(in.Rd, uint32(c.rt(in))<<in.Sa) },
	insts.OpSRL:    func(c *CPU, in *insts.Instruction) { c.regs.WriteReg32(in.Rd, uint32(c.rt(in))>>in.Sa) },
	insts.OpSRA:    func(c *CPU, in *insts.Instruction) { c.regs.WriteReg32(in.Rd, uint32(int64(c.rt(in))>>in.Sa)) },
	insts.OpSLLV:   func(c *CPU, in *insts.Instruction) { c.regs.WriteReg32(in.Rd, uint32(c.rt(in))<<(c.rs(in)&31)) },
	insts.OpSRLV:   func(c *CPU, in *insts.Instruction) { c.regs.WriteReg32(in.Rd, uint32(c.rt(in))>>(c.rs(in)&31)) },
	insts.OpSRAV:   func(c *CPU, in *insts.Instruction) { c.regs.WriteReg32(in.Rd, uint32(int64(c.rt(in))>>(c.rs(in)&31))) },
	insts.OpDSLL:   func(c *CPU, in *insts.Instruction) { c.regs.WriteReg(in.Rd, c.rt(in)<<in.Sa) },
	insts.OpDSRL:   func(c *CPU, in *insts.Instruction) { c.regs.WriteReg(in.Rd, c.rt(in)>>in.Sa) },
	insts.OpDSRA:   func(c *CPU, in *insts.Instruction) { c.regs.WriteReg(in.Rd, uint64(int64(c.rt(in))>>in.Sa)) },
	insts.OpDSLL32: func(c *CPU, in *insts.Instruction) { c.regs.WriteReg(in.Rd, c.rt(in)<<(in.Sa+32)) },
	insts.OpDSRL32: func(c *CPU, in *insts.Instruction) { c.regs.WriteReg(in.Rd, c.rt(in)>>(in.Sa+32)) },
	insts.OpDSRA32: func(c *CPU, in *insts.Instruction) { c.regs.WriteReg(in.Rd, uint64(int64(c.rt(in))>>(in.Sa+32))) },
	insts.OpDSLLV:  func(c *CPU, in *insts.Instruction) { c.regs.WriteReg(in.Rd, c.rt(in)<<(c.rs(in)&63)) },
	insts.OpDSRLV:  func(c *CPU, in *insts.Instruction) { c.regs.WriteReg(in.Rd, c.rt(in)>>(c.rs(in)&63)) },
	insts.OpDSRAV:  func(c *CPU, in *insts.Instruction) { c.regs.WriteReg(in.Rd, uint64(int64(c.rt(in))>>(c.rs(in)&63))) },

	insts.OpTGE:   func(c *CPU, in *insts.Instruction) { c.trapIf(int64(c.rs(in)) >= int64(c.rt(in))) },
	insts.OpTGEU:  func(c *CPU, in *insts.Instruction) { c.trapIf(c.rs(in) >= c.rt(in)) },
	insts.OpTLT:   func(c *CPU, in *insts.Instruction) { c.trapIf(int64(c.rs(in)) < int64(c.rt(in))) },
	insts.OpTLTU:  func(c *CPU, in *insts.Instruction) { c.trapIf(c.rs(in) < c.rt(in)) },
	insts.OpTEQ:   func(c *CPU, in *insts.Instruction) { c.trapIf(c.rs(in) == c.rt(in)) },
	insts.OpTNE:   func(c *CPU, in *insts.Instruction) { c.trapIf(c.rs(in) != c.rt(in)) },
	insts.OpTGEI:  func(c *CPU, in *insts.Instruction) { c.trapIf(int64(c.rs(in)) >= int64(in.SImm())) },
	insts.OpTGEIU: func(c *CPU, in *insts.Instruction) { c.trapIf(c.rs(in) >= in.SImm()) },
	insts.OpTLTI:  func(c *CPU, in *insts.Instruction) { c.trapIf(int64(c.rs(in)) < int64(in.SImm())) },
	insts.OpTLTIU: func(c *CPU, in *insts.Instruction) { c.trapIf(c.rs(in) < in.SImm()) },
	insts.OpTEQI:  func(c *CPU, in *insts.Instruction) { c.trapIf(c.rs(in) == in.SImm()) },
	insts.OpTNEI:  func(c *CPU, in *insts.Instruction) { c.trapIf(c.rs(in) != in.SImm()) },
}

func (c *CPU) rs(in *insts.Instruction) uint64 { return c.regs.GPR[in.Rs] }

func (c *CPU) rt(in *insts.Instruction) uint64 { return c.regs.GPR[in.Rt] }

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func (c *CPU) trapIf(cond bool) {
	if cond {
		c.raise(ExcTrap, 0)
	}
}

// add32Overflows reports whether a+b overflows a signed 32-bit result.
func add32Overflows(a, b, sum int32) bool {
	return (a^sum)&(b^sum) < 0
}

// sub32Overflows reports whether a-b overflows a signed 32-bit result.
func sub32Overflows(a, b, diff int32) bool {
	return (a^b)&(a^diff) < 0
}

func execADD(c *CPU, in *insts.Instruction) {
	a, b := int32(c.rs(in)), int32(c.rt(in))
	sum := a + b
	if add32Overflows(a, b, sum) {
		c.raise(ExcOverflow, 0)
		return
	}
	c.regs.WriteReg32(in.Rd, uint32(sum))
}

func execADDU(c *CPU, in *insts.Instruction) {
	c.regs.WriteReg32(in.Rd, uint32(c.rs(in))+uint32(c.rt(in)))
}

func execSUB(c *CPU, in *insts.Instruction) {
	a, b := int32(c.rs(in)), int32(c.rt(in))
	diff := a - b
	if sub32Overflows(a, b, diff) {
		c.raise(ExcOverflow, 0)
		return
	}
	c.regs.WriteReg32(in.Rd, uint32(diff))
}

func execSUBU(c *CPU, in *insts.Instruction) {
	c.regs.WriteReg32(in.Rd, uint32(c.rs(in))-uint32(c.rt(in)))
}

func execADDI(c *CPU, in *insts.Instruction) {
	a, b := int32(c.rs(in)), int32(int16(in.Imm))
	sum := a + b
	if add32Overflows(a, b, sum) {
		c.raise(ExcOverflow, 0)
		return
	}
	c.regs.WriteReg32(in.Rt, uint32(sum))
}

func execADDIU(c *CPU, in *insts.Instruction) {
	c.regs.WriteReg32(in.Rt, uint32(c.rs(in))+uint32(in.SImm()))
}

func execDADD(c *CPU, in *insts.Instruction) {
	a, b := int64(c.rs(in)), int64(c.rt(in))
	sum := a + b
	if (a^sum)&(b^sum) < 0 {
		c.raise(ExcOverflow, 0)
		return
	}
	c.regs.WriteReg(in.Rd, uint64(sum))
}

func execDADDU(c *CPU, in *insts.Instruction) {
	c.regs.WriteReg(in.Rd, c.rs(in)+c.rt(in))
}

func execDSUB(c *CPU, in *insts.Instruction) {
	a, b := int64(c.rs(in)), int64(c.rt(in))
	diff := a - b
	if (a^b)&(a^diff) < 0 {
		c.raise(ExcOverflow, 0)
		return
	}
	c.regs.WriteReg(in.Rd, uint64(diff))
}

func execDSUBU(c *CPU, in *insts.Instruction) {
	c.regs.WriteReg(in.Rd, c.rs(in)-c.rt(in))
}

func execDADDI(c *CPU, in *insts.Instruction) {
	a, b := int64(c.rs(in)), int64(in.SImm())
	sum := a + b
	if (a^sum)&(b^sum) < 0 {
		c.raise(ExcOverflow, 0)
		return
	}
	c.regs.WriteReg(in.Rt, uint64(sum))
}
