package emu

import (
	"math/bits"

	"github.com/sarchlab/n64core/insts"
)

var mulDivHandlers = map[insts.Op]Handler{
	insts.OpMFHI:   func(c *CPU, in *insts.Instruction) { c.regs.WriteReg(in.Rd, c.regs.Hi) },
	insts.OpMFLO:   func(c *CPU, in *insts.Instruction) { c.regs.WriteReg(in.Rd, c.regs.Lo) },
	insts.OpMTHI:   func(c *CPU, in *insts.Instruction) { c.regs.Hi = c.rs(in) },
	insts.OpMTLO:   func(c *CPU, in *insts.Instruction) { c.regs.Lo = c.rs(in) },
	insts.OpMULT:   execMULT,
	insts.OpMULTU:  execMULTU,
	insts.OpDMULT:  execDMULT,
	insts.OpDMULTU: execDMULTU,
	insts.OpDIV:    execDIV,
	insts.OpDIVU:   execDIVU,
	insts.OpDDIV:   execDDIV,
	insts.OpDDIVU:  execDDIVU,
}

func execMULT(c *CPU, in *insts.Instruction) {
	p := int64(int32(c.rs(in))) * int64(int32(c.rt(in)))
	c.regs.Lo = sext32(uint32(p))
	c.regs.Hi = sext32(uint32(p >> 32))
}

func execMULTU(c *CPU, in *insts.Instruction) {
	p := uint64(uint32(c.rs(in))) * uint64(uint32(c.rt(in)))
	c.regs.Lo = sext32(uint32(p))
	c.regs.Hi = sext32(uint32(p >> 32))
}

func execDMULT(c *CPU, in *insts.Instruction) {
	a, b := c.rs(in), c.rt(in)
	hi, lo := bits.Mul64(a, b)
	// Signed correction of the unsigned high word.
	if int64(a) < 0 {
		hi -= b
	}
	if int64(b) < 0 {
		hi -= a
	}
	c.regs.Hi, c.regs.Lo = hi, lo
}

func execDMULTU(c *CPU, in *insts.Instruction) {
	c.regs.Hi, c.regs.Lo = bits.Mul64(c.rs(in), c.rt(in))
}

// Division by zero does not trap: the quotient is -1 for a non-negative
// dividend and 1 otherwise, the remainder is the dividend.

func execDIV(c *CPU, in *insts.Instruction) {
	n, d := int32(c.rs(in)), int32(c.rt(in))
	if d == 0 {
		q := int32(-1)
		if n < 0 {
			q = 1
		}
		c.regs.Lo = sext32(uint32(q))
		c.regs.Hi = sext32(uint32(n))
		return
	}
	// MinInt32 / -1 wraps to MinInt32 with remainder 0.
	c.regs.Lo = sext32(uint32(n / d))
	c.regs.Hi = sext32(uint32(n % d))
}

func execDIVU(c *CPU, in *insts.Instruction) {
	n, d := uint32(c.rs(in)), uint32(c.rt(in))
	if d == 0 {
		c.regs.Lo = ^uint64(0)
		c.regs.Hi = sext32(n)
		return
	}
	c.regs.Lo = sext32(n / d)
	c.regs.Hi = sext32(n % d)
}

func execDDIV(c *CPU, in *insts.Instruction) {
	n, d := int64(c.rs(in)), int64(c.rt(in))
	if d == 0 {
		q := int64(-1)
		if n < 0 {
			q = 1
		}
		c.regs.Lo = uint64(q)
		c.regs.Hi = uint64(n)
		return
	}
	// MinInt64 / -1 yields the dividend with remainder 0.
	c.regs.Lo = uint64(n / d)
	c.regs.Hi = uint64(n % d)
}

func execDDIVU(c *CPU, in *insts.Instruction) {
	n, d := c.rs(in), c.rt(in)
	if d == 0 {
		c.regs.Lo = ^uint64(0)
		c.regs.Hi = n
		return
	}
	c.regs.Lo = n / d
	c.regs.Hi = n % d
}
