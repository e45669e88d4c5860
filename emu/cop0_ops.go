package emu

import (
	"fmt"

	"github.com/sarchlab/n64core/insts"
)

var cop0Handlers = map[insts.Op]Handler{
	insts.OpMFC0:  execMFC0,
	insts.OpDMFC0: execDMFC0,
	insts.OpMTC0:  execMTC0,
	insts.OpDMTC0: execDMTC0,
	insts.OpTLBR:  execTLBR,
	insts.OpTLBWI: execTLBWI,
	insts.OpTLBWR: execTLBWR,
	insts.OpTLBP:  execTLBP,
	insts.OpERET:  execERET,
}

// cop0Usable raises a coprocessor-unusable exception when COP0 is not
// accessible in the current mode.
func (c *CPU) cop0Usable() bool {
	if c.cop0.CopUsable(0) {
		return true
	}
	c.raise(ExcCopUnusable, 0)
	return false
}

func execMFC0(c *CPU, in *insts.Instruction) {
	if !c.cop0Usable() {
		return
	}
	c.regs.WriteReg32(in.Rt, uint32(c.cop0.Read(in.Rd)))
}

func execDMFC0(c *CPU, in *insts.Instruction) {
	if !c.cop0Usable() {
		return
	}
	c.regs.WriteReg(in.Rt, c.cop0.Read(in.Rd))
}

func execMTC0(c *CPU, in *insts.Instruction) {
	if !c.cop0Usable() {
		return
	}
	c.writeCop0(in.Rd, sext32(uint32(c.rt(in))))
}

func execDMTC0(c *CPU, in *insts.Instruction) {
	if !c.cop0Usable() {
		return
	}
	c.writeCop0(in.Rd, c.rt(in))
}

// writeCop0 applies a software write together with its side effects.
func (c *CPU) writeCop0(n uint8, value uint64) {
	c.cop0.Write(n, value)

	if n == Cop0Compare {
		c.cop0.ClearInterruptPending(IntTimer)
	}
}

func execTLBR(c *CPU, _ *insts.Instruction) {
	if !c.cop0Usable() {
		return
	}
	c.cop0.ReadTLB(int(c.cop0.Reg[Cop0Index] & 0x1F))
}

func execTLBWI(c *CPU, _ *insts.Instruction) {
	if !c.cop0Usable() {
		return
	}
	c.writeTLB(int(c.cop0.Reg[Cop0Index] & 0x1F))
}

func execTLBWR(c *CPU, _ *insts.Instruction) {
	if !c.cop0Usable() {
		return
	}
	c.writeTLB(int(c.cop0.Read(Cop0Random)))
}

func (c *CPU) writeTLB(i int) {
	c.cop0.WriteTLB(i)
	if c.log.V(2).Enabled() {
		e := &c.cop0.TLB[i]
		c.log.V(2).Info("tlb write", "index", i,
			"entryhi", fmt.Sprintf("%#x", e.EntryHi),
			"lo0", fmt.Sprintf("%#x", e.EntryLo0),
			"lo1", fmt.Sprintf("%#x", e.EntryLo1),
			"pagemask", fmt.Sprintf("%#x", e.PageMask),
			"global", e.Global)
	}
}

func execTLBP(c *CPU, _ *insts.Instruction) {
	if !c.cop0Usable() {
		return
	}
	c.cop0.ProbeTLB()
}

func execERET(c *CPU, _ *insts.Instruction) {
	if !c.cop0Usable() {
		return
	}
	c.eret()
}
