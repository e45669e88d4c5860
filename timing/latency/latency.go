// Package latency provides the per-instruction cycle costs that drive the
// COP0 Count register and the cycle results of every execution backend.
//
// The values approximate the VR4300 pipeline and can be configured via
// TimingConfig.
package latency

import (
	"github.com/sarchlab/n64core/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
	byOp   [insts.NumOps]uint64
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return NewTableWithConfig(DefaultTimingConfig())
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	t := &Table{config: config}
	for op := insts.Op(0); op < insts.NumOps; op++ {
		t.byOp[op] = t.classify(op)
	}
	return t
}

func (t *Table) classify(op insts.Op) uint64 {
	c := t.config

	switch op {
	case insts.OpMULT, insts.OpMULTU:
		return c.MultiplyLatency
	case insts.OpDMULT, insts.OpDMULTU:
		return c.DMultiplyLatency
	case insts.OpDIV, insts.OpDIVU:
		return c.DivideLatency
	case insts.OpDDIV, insts.OpDDIVU:
		return c.DDivideLatency
	case insts.OpFMUL:
		return c.FPMulLatency
	case insts.OpFDIV, insts.OpFSQRT:
		return c.FPDivLatency
	case insts.OpSYSCALL, insts.OpBREAK, insts.OpERET:
		return c.SyscallLatency
	}

	switch {
	case op.IsTrap():
		return c.SyscallLatency
	case op.IsBranch(), op.IsJump():
		return c.BranchLatency
	case op.IsLoad():
		return c.LoadLatency
	case op.IsStore():
		return c.StoreLatency
	case op.IsCop0():
		return c.Cop0Latency
	case op >= insts.OpFADD && op <= insts.OpFCMP:
		return c.FPAddLatency
	default:
		return c.ALULatency
	}
}

// GetLatency returns the cost in cycles of the given instruction.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 1
	}
	return t.OpLatency(inst.Op)
}

// OpLatency returns the cost in cycles of an opcode.
func (t *Table) OpLatency(op insts.Op) uint64 {
	if op >= insts.NumOps {
		return 1
	}
	return t.byOp[op]
}

// IsMemoryOp returns true if the instruction accesses memory.
func (t *Table) IsMemoryOp(inst *insts.Instruction) bool {
	return inst != nil && (inst.Op.IsLoad() || inst.Op.IsStore())
}

// IsBranchOp returns true if the instruction is a branch or jump.
func (t *Table) IsBranchOp(inst *insts.Instruction) bool {
	return inst != nil && (inst.Op.IsBranch() || inst.Op.IsJump())
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
