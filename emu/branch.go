package emu

import "github.com/sarchlab/n64core/insts"

var branchHandlers = map[insts.Op]Handler{
	insts.OpJ:    execJ,
	insts.OpJAL:  execJAL,
	insts.OpJR:   execJR,
	insts.OpJALR: execJALR,

	insts.OpBEQ:  func(c *CPU, in *insts.Instruction) { c.branch(in, c.rs(in) == c.rt(in)) },
	insts.OpBNE:  func(c *CPU, in *insts.Instruction) { c.branch(in, c.rs(in) != c.rt(in)) },
	insts.OpBLEZ: func(c *CPU, in *insts.Instruction) { c.branch(in, int64(c.rs(in)) <= 0) },
	insts.OpBGTZ: func(c *CPU, in *insts.Instruction) { c.branch(in, int64(c.rs(in)) > 0) },
	insts.OpBLTZ: func(c *CPU, in *insts.Instruction) { c.branch(in, int64(c.rs(in)) < 0) },
	insts.OpBGEZ: func(c *CPU, in *insts.Instruction) { c.branch(in, int64(c.rs(in)) >= 0) },

	insts.OpBEQL:  func(c *CPU, in *insts.Instruction) { c.branchLikely(in, c.rs(in) == c.rt(in)) },
	insts.OpBNEL:  func(c *CPU, in *insts.Instruction) { c.branchLikely(in, c.rs(in) != c.rt(in)) },
	insts.OpBLEZL: func(c *CPU, in *insts.Instruction) { c.branchLikely(in, int64(c.rs(in)) <= 0) },
	insts.OpBGTZL: func(c *CPU, in *insts.Instruction) { c.branchLikely(in, int64(c.rs(in)) > 0) },
	insts.OpBLTZL: func(c *CPU, in *insts.Instruction) { c.branchLikely(in, int64(c.rs(in)) < 0) },
	insts.OpBGEZL: func(c *CPU, in *insts.Instruction) { c.branchLikely(in, int64(c.rs(in)) >= 0) },

	insts.OpBLTZAL:  func(c *CPU, in *insts.Instruction) { c.branch(in, c.link(int64(c.rs(in)) < 0)) },
	insts.OpBGEZAL:  func(c *CPU, in *insts.Instruction) { c.branch(in, c.link(int64(c.rs(in)) >= 0)) },
	insts.OpBLTZALL: func(c *CPU, in *insts.Instruction) { c.branchLikely(in, c.link(int64(c.rs(in)) < 0)) },
	insts.OpBGEZALL: func(c *CPU, in *insts.Instruction) { c.branchLikely(in, c.link(int64(c.rs(in)) >= 0)) },
}

// branch resolves a conditional branch. The delay slot always executes.
func (c *CPU) branch(in *insts.Instruction, taken bool) {
	rf := &c.regs
	rf.DelaySlot = true
	if taken {
		rf.NextPC = rf.PC + in.BranchOffset()
	}
}

// branchLikely resolves a branch-likely: when not taken the delay slot is
// annulled by stepping over it.
func (c *CPU) branchLikely(in *insts.Instruction, taken bool) {
	rf := &c.regs
	if taken {
		rf.DelaySlot = true
		rf.NextPC = rf.PC + in.BranchOffset()
		return
	}
	rf.PC = rf.NextPC
	rf.NextPC += 4
}

// link writes the return address to $ra, evaluated after the condition so
// that a branch on $ra itself sees the old value.
func (c *CPU) link(cond bool) bool {
	c.regs.WriteReg(insts.RegRA, c.regs.OldPC+8)
	return cond
}

func (c *CPU) jump(target uint64) {
	c.regs.DelaySlot = true
	c.regs.NextPC = target
}

func jumpTarget(pc uint64, in *insts.Instruction) uint64 {
	return pc&^0x0FFFFFFF | uint64(in.Target)<<2
}

func execJ(c *CPU, in *insts.Instruction) {
	c.jump(jumpTarget(c.regs.PC, in))
}

func execJAL(c *CPU, in *insts.Instruction) {
	c.regs.WriteReg(insts.RegRA, c.regs.OldPC+8)
	c.jump(jumpTarget(c.regs.PC, in))
}

func execJR(c *CPU, in *insts.Instruction) {
	c.jump(c.rs(in))
}

func execJALR(c *CPU, in *insts.Instruction) {
	target := c.rs(in)
	c.regs.WriteReg(in.Rd, c.regs.OldPC+8)
	c.jump(target)
}
