package insts

import "fmt"

// General-purpose register numbers under the o32/n64 ABI names.
const (
	RegZero uint8 = iota
	RegAT
	RegV0
	RegV1
	RegA0
	RegA1
	RegA2
	RegA3
	RegT0
	RegT1
	RegT2
	RegT3
	RegT4
	RegT5
	RegT6
	RegT7
	RegS0
	RegS1
	RegS2
	RegS3
	RegS4
	RegS5
	RegS6
	RegS7
	RegT8
	RegT9
	RegK0
	RegK1
	RegGP
	RegSP
	RegFP
	RegRA
)

var gprNames = [32]string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

// RegName returns the ABI name of a general-purpose register.
func RegName(r uint8) string {
	return gprNames[r&0x1F]
}

var fmtNames = map[uint8]string{FmtS: "s", FmtD: "d", FmtW: "w", FmtL: "l"}

var condNames = [16]string{
	"f", "un", "eq", "ueq", "olt", "ult", "ole", "ule",
	"sf", "ngle", "seq", "ngl", "lt", "nge", "le", "ngt",
}

// Disassemble renders inst in assembler syntax. pc is the address of the
// instruction and is used to resolve branch and jump targets.
func Disassemble(inst *Instruction, pc uint64) string {
	op := inst.Op
	r := func(n uint8) string { return "$" + RegName(n) }

	switch {
	case op == OpReserved:
		return fmt.Sprintf(".word 0x%08x", inst.Raw)
	case inst.Raw == 0:
		return "nop"
	case op == OpJ || op == OpJAL:
		target := (pc+4)&^0x0FFFFFFF | uint64(inst.Target)<<2
		return fmt.Sprintf("%s 0x%x", op, target)
	case op == OpJR:
		return fmt.Sprintf("jr %s", r(inst.Rs))
	case op == OpJALR:
		return fmt.Sprintf("jalr %s, %s", r(inst.Rd), r(inst.Rs))
	case op == OpBEQ || op == OpBNE || op == OpBEQL || op == OpBNEL:
		return fmt.Sprintf("%s %s, %s, 0x%x", op, r(inst.Rs), r(inst.Rt), pc+4+inst.BranchOffset())
	case op >= OpBC1F && op <= OpBC1TL:
		return fmt.Sprintf("%s 0x%x", op, pc+4+inst.BranchOffset())
	case op.IsBranch():
		return fmt.Sprintf("%s %s, 0x%x", op, r(inst.Rs), pc+4+inst.BranchOffset())
	case op >= OpTGEI && op <= OpTNEI:
		return fmt.Sprintf("%s %s, %d", op, r(inst.Rs), int16(inst.Imm))
	case op == OpSLL || op == OpSRL || op == OpSRA || (op >= OpDSLL && op <= OpDSRA32):
		return fmt.Sprintf("%s %s, %s, %d", op, r(inst.Rd), r(inst.Rt), inst.Sa)
	case op == OpSLLV || op == OpSRLV || op == OpSRAV || (op >= OpDSLLV && op <= OpDSRAV):
		return fmt.Sprintf("%s %s, %s, %s", op, r(inst.Rd), r(inst.Rt), r(inst.Rs))
	case op == OpMFHI || op == OpMFLO:
		return fmt.Sprintf("%s %s", op, r(inst.Rd))
	case op == OpMTHI || op == OpMTLO:
		return fmt.Sprintf("%s %s", op, r(inst.Rs))
	case (op >= OpMULT && op <= OpDDIVU) || (op >= OpTGE && op <= OpTNE):
		return fmt.Sprintf("%s %s, %s", op, r(inst.Rs), r(inst.Rt))
	case op >= OpADD && op <= OpDSUBU:
		return fmt.Sprintf("%s %s, %s, %s", op, r(inst.Rd), r(inst.Rs), r(inst.Rt))
	case op == OpLUI:
		return fmt.Sprintf("lui %s, 0x%x", r(inst.Rt), inst.Imm)
	case op == OpANDI || op == OpORI || op == OpXORI:
		return fmt.Sprintf("%s %s, %s, 0x%x", op, r(inst.Rt), r(inst.Rs), inst.Imm)
	case op >= OpADDI && op <= OpSLTIU, op == OpDADDI, op == OpDADDIU:
		return fmt.Sprintf("%s %s, %s, %d", op, r(inst.Rt), r(inst.Rs), int16(inst.Imm))
	case op == OpLWC1 || op == OpLDC1 || op == OpSWC1 || op == OpSDC1:
		return fmt.Sprintf("%s $f%d, %d(%s)", op, inst.Rt, int16(inst.Imm), r(inst.Rs))
	case op == OpCACHE:
		return fmt.Sprintf("cache 0x%x, %d(%s)", inst.Rt, int16(inst.Imm), r(inst.Rs))
	case op.IsLoad() || op.IsStore():
		return fmt.Sprintf("%s %s, %d(%s)", op, r(inst.Rt), int16(inst.Imm), r(inst.Rs))
	case op >= OpMFC0 && op <= OpDMTC0:
		return fmt.Sprintf("%s %s, $%d", op, r(inst.Rt), inst.Rd)
	case op >= OpMFC1 && op <= OpCTC1:
		return fmt.Sprintf("%s %s, $f%d", op, r(inst.Rt), inst.Rd)
	case op == OpFCMP:
		return fmt.Sprintf("c.%s.%s $f%d, $f%d", condNames[inst.Cond()], fmtNames[inst.Fmt()], inst.Fs(), inst.Ft())
	case op >= OpFADD && op <= OpFDIV:
		return fmt.Sprintf("%s.%s $f%d, $f%d, $f%d", op, fmtNames[inst.Fmt()], inst.Fd(), inst.Fs(), inst.Ft())
	case op.IsCop1() && op >= OpFSQRT:
		return fmt.Sprintf("%s.%s $f%d, $f%d", op, fmtNames[inst.Fmt()], inst.Fd(), inst.Fs())
	default:
		return op.String()
	}
}
