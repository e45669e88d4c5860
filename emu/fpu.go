package emu

import (
	"math"

	"github.com/sarchlab/n64core/insts"
)

var cop1Handlers = map[insts.Op]Handler{
	insts.OpMFC1:  fpu(func(c *CPU, in *insts.Instruction, fr bool) { c.regs.WriteReg32(in.Rt, c.cop1.Single(in.Fs(), fr)) }),
	insts.OpDMFC1: fpu(func(c *CPU, in *insts.Instruction, fr bool) { c.regs.WriteReg(in.Rt, c.cop1.Double(in.Fs(), fr)) }),
	insts.OpCFC1:  fpu(func(c *CPU, in *insts.Instruction, _ bool) { c.regs.WriteReg32(in.Rt, c.cop1.Control(in.Fs())) }),
	insts.OpMTC1:  fpu(func(c *CPU, in *insts.Instruction, fr bool) { c.cop1.SetSingle(in.Fs(), fr, uint32(c.rt(in))) }),
	insts.OpDMTC1: fpu(func(c *CPU, in *insts.Instruction, fr bool) { c.cop1.SetDouble(in.Fs(), fr, c.rt(in)) }),
	insts.OpCTC1:  fpu(func(c *CPU, in *insts.Instruction, _ bool) { c.cop1.SetControl(in.Fs(), uint32(c.rt(in))) }),

	insts.OpLWC1: fpu(execLWC1),
	insts.OpLDC1: fpu(execLDC1),
	insts.OpSWC1: fpu(execSWC1),
	insts.OpSDC1: fpu(execSDC1),

	insts.OpBC1F:  fpu(func(c *CPU, in *insts.Instruction, _ bool) { c.branch(in, !c.cop1.Condition()) }),
	insts.OpBC1T:  fpu(func(c *CPU, in *insts.Instruction, _ bool) { c.branch(in, c.cop1.Condition()) }),
	insts.OpBC1FL: fpu(func(c *CPU, in *insts.Instruction, _ bool) { c.branchLikely(in, !c.cop1.Condition()) }),
	insts.OpBC1TL: fpu(func(c *CPU, in *insts.Instruction, _ bool) { c.branchLikely(in, c.cop1.Condition()) }),

	insts.OpFADD: fpu(arith(func(a, b float64) float64 { return a + b })),
	insts.OpFSUB: fpu(arith(func(a, b float64) float64 { return a - b })),
	insts.OpFMUL: fpu(arith(func(a, b float64) float64 { return a * b })),
	insts.OpFDIV: fpu(execFDIV),
	insts.OpFSQRT: fpu(unary(func(c *CPU, a float64) (float64, bool) {
		if a < 0 {
			return math.NaN(), c.cop1.signal(fpInvalid)
		}
		return math.Sqrt(a), false
	})),
	insts.OpFABS: fpu(unary(func(_ *CPU, a float64) (float64, bool) { return math.Abs(a), false })),
	insts.OpFMOV: fpu(execFMOV),
	insts.OpFNEG: fpu(unary(func(_ *CPU, a float64) (float64, bool) { return -a, false })),

	insts.OpFROUNDL: fpu(toFixed(RoundNearest, true)),
	insts.OpFTRUNCL: fpu(toFixed(RoundZero, true)),
	insts.OpFCEILL:  fpu(toFixed(RoundPlusInf, true)),
	insts.OpFFLOORL: fpu(toFixed(RoundMinInf, true)),
	insts.OpFROUNDW: fpu(toFixed(RoundNearest, false)),
	insts.OpFTRUNCW: fpu(toFixed(RoundZero, false)),
	insts.OpFCEILW:  fpu(toFixed(RoundPlusInf, false)),
	insts.OpFFLOORW: fpu(toFixed(RoundMinInf, false)),
	insts.OpFCVTW:   fpu(toFixed(-1, false)),
	insts.OpFCVTL:   fpu(toFixed(-1, true)),
	insts.OpFCVTS:   fpu(execFCVTS),
	insts.OpFCVTD:   fpu(execFCVTD),
	insts.OpFCMP:    fpu(execFCMP),
}

type fpuHandler func(c *CPU, in *insts.Instruction, fr bool)

// fpu gates a handler on the COP1 usable bit.
func fpu(h fpuHandler) Handler {
	return func(c *CPU, in *insts.Instruction) {
		if !c.cop0.CopUsable(1) {
			c.raise(ExcCopUnusable, 1)
			return
		}
		h(c, in, c.cop0.Reg[Cop0Status]&StatusFR != 0)
	}
}

func (c *CPU) readFloat(format, n uint8, fr bool) float64 {
	switch format {
	case insts.FmtS:
		return float64(math.Float32frombits(c.cop1.Single(n, fr)))
	case insts.FmtD:
		return math.Float64frombits(c.cop1.Double(n, fr))
	case insts.FmtW:
		return float64(int32(c.cop1.Single(n, fr)))
	default:
		return float64(int64(c.cop1.Double(n, fr)))
	}
}

func (c *CPU) writeFloat(format, n uint8, fr bool, v float64) {
	if format == insts.FmtS {
		c.cop1.SetSingle(n, fr, math.Float32bits(float32(v)))
		return
	}
	c.cop1.SetDouble(n, fr, math.Float64bits(v))
}

func arith(op func(a, b float64) float64) fpuHandler {
	return func(c *CPU, in *insts.Instruction, fr bool) {
		a := c.readFloat(in.Fmt(), in.Fs(), fr)
		b := c.readFloat(in.Fmt(), in.Ft(), fr)
		c.writeFloat(in.Fmt(), in.Fd(), fr, op(a, b))
	}
}

// unary applies op to fs; op reports whether an enabled FPU exception
// must be raised instead of writing fd.
func unary(op func(c *CPU, a float64) (float64, bool)) fpuHandler {
	return func(c *CPU, in *insts.Instruction, fr bool) {
		r, trap := op(c, c.readFloat(in.Fmt(), in.Fs(), fr))
		if trap {
			c.raise(ExcFloatingPoint, 1)
			return
		}
		c.writeFloat(in.Fmt(), in.Fd(), fr, r)
	}
}

func execFDIV(c *CPU, in *insts.Instruction, fr bool) {
	a := c.readFloat(in.Fmt(), in.Fs(), fr)
	b := c.readFloat(in.Fmt(), in.Ft(), fr)
	if b == 0 && c.cop1.signal(fpDivZero) {
		c.raise(ExcFloatingPoint, 1)
		return
	}
	c.writeFloat(in.Fmt(), in.Fd(), fr, a/b)
}

// execFMOV copies the raw bits so NaN payloads survive.
func execFMOV(c *CPU, in *insts.Instruction, fr bool) {
	if in.Fmt() == insts.FmtS {
		c.cop1.SetSingle(in.Fd(), fr, c.cop1.Single(in.Fs(), fr))
		return
	}
	c.cop1.SetDouble(in.Fd(), fr, c.cop1.Double(in.Fs(), fr))
}

// toFixed converts to a 32- or 64-bit integer. A negative mode uses the
// rounding mode in FCR31.
func toFixed(mode int, long bool) fpuHandler {
	return func(c *CPU, in *insts.Instruction, fr bool) {
		m := uint32(mode)
		if mode < 0 {
			m = c.cop1.roundingMode()
		}
		x := round(c.readFloat(in.Fmt(), in.Fs(), fr), m)

		if long {
			if math.IsNaN(x) || x >= math.MaxInt64 || x < math.MinInt64 {
				if c.cop1.signal(fpInvalid) {
					c.raise(ExcFloatingPoint, 1)
					return
				}
				c.cop1.SetDouble(in.Fd(), fr, math.MaxInt64)
				return
			}
			c.cop1.SetDouble(in.Fd(), fr, uint64(int64(x)))
			return
		}

		if math.IsNaN(x) || x > math.MaxInt32 || x < math.MinInt32 {
			if c.cop1.signal(fpInvalid) {
				c.raise(ExcFloatingPoint, 1)
				return
			}
			c.cop1.SetSingle(in.Fd(), fr, math.MaxInt32)
			return
		}
		c.cop1.SetSingle(in.Fd(), fr, uint32(int32(x)))
	}
}

func execFCVTS(c *CPU, in *insts.Instruction, fr bool) {
	c.writeFloat(insts.FmtS, in.Fd(), fr, c.readFloat(in.Fmt(), in.Fs(), fr))
}

func execFCVTD(c *CPU, in *insts.Instruction, fr bool) {
	c.writeFloat(insts.FmtD, in.Fd(), fr, c.readFloat(in.Fmt(), in.Fs(), fr))
}

// execFCMP evaluates C.cond.fmt: bit 0 of cond accepts unordered, bit 1
// equal, bit 2 less than; bit 3 makes NaN operands signal invalid.
func execFCMP(c *CPU, in *insts.Instruction, fr bool) {
	a := c.readFloat(in.Fmt(), in.Fs(), fr)
	b := c.readFloat(in.Fmt(), in.Ft(), fr)
	cond := in.Cond()

	unordered := math.IsNaN(a) || math.IsNaN(b)
	if unordered && cond&8 != 0 && c.cop1.signal(fpInvalid) {
		c.raise(ExcFloatingPoint, 1)
		return
	}

	result := (unordered && cond&1 != 0) ||
		(!unordered && a == b && cond&2 != 0) ||
		(!unordered && a < b && cond&4 != 0)
	c.cop1.setCondition(result)
}

func execLWC1(c *CPU, in *insts.Instruction, fr bool) {
	phys, ok := c.resolve(AccessLoad, c.effectiveAddress(in), 4)
	if !ok {
		return
	}
	c.cop1.SetSingle(in.Ft(), fr, c.bus.Read32(phys))
}

func execLDC1(c *CPU, in *insts.Instruction, fr bool) {
	phys, ok := c.resolve(AccessLoad, c.effectiveAddress(in), 8)
	if !ok {
		return
	}
	c.cop1.SetDouble(in.Ft(), fr, c.bus.Read64(phys))
}

func execSWC1(c *CPU, in *insts.Instruction, fr bool) {
	phys, ok := c.resolve(AccessStore, c.effectiveAddress(in), 4)
	if !ok {
		return
	}
	c.bus.Write32(phys, c.cop1.Single(in.Ft(), fr))
}

func execSDC1(c *CPU, in *insts.Instruction, fr bool) {
	phys, ok := c.resolve(AccessStore, c.effectiveAddress(in), 8)
	if !ok {
		return
	}
	c.bus.Write64(phys, c.cop1.Double(in.Ft(), fr))
}
