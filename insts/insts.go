// Package insts provides MIPS III (R4300i) instruction definitions and decoding.
//
// This package decodes 32-bit big-endian instruction words into structured
// Instruction values. It covers the integer ISA, the COP0 system control
// instructions and the COP1 floating-point instructions of the R4300i.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x24220005) // ADDIU $v0, $at, 5
//	fmt.Printf("Op: %v, Rt: %d, Rs: %d, Imm: %d\n", inst.Op, inst.Rt, inst.Rs, inst.SImm())
//
// Besides decoding, the package classifies instructions statically (from the
// word alone) so execution backends can lay out translation blocks ahead of
// execution: see Op.EndsBlock, Op.HasDelaySlot and Op.IsLikely.
package insts
