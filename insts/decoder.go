package insts

// COP1 operand formats, taken from the rs field of a COP1 arithmetic word.
const (
	FmtS uint8 = 16 // single precision
	FmtD uint8 = 17 // double precision
	FmtW uint8 = 20 // 32-bit fixed point
	FmtL uint8 = 21 // 64-bit fixed point
)

// Instruction represents a decoded MIPS instruction.
type Instruction struct {
	Raw uint32 // Original instruction word
	Op  Op     // Operation code

	Rs    uint8 // bits [25:21]; COP1 format for FPU arithmetic
	Rt    uint8 // bits [20:16]; ft for FPU arithmetic
	Rd    uint8 // bits [15:11]; fs for FPU arithmetic, COP0 register
	Sa    uint8 // bits [10:6]; fd for FPU arithmetic
	Funct uint8 // bits [5:0]

	Imm    uint16 // bits [15:0]
	Target uint32 // bits [25:0] of J/JAL
}

// SImm returns the immediate sign-extended to 64 bits.
func (in *Instruction) SImm() uint64 {
	return uint64(int64(int16(in.Imm)))
}

// ZImm returns the immediate zero-extended to 64 bits.
func (in *Instruction) ZImm() uint64 {
	return uint64(in.Imm)
}

// BranchOffset returns the byte displacement of a PC-relative branch,
// relative to the address of the delay slot.
func (in *Instruction) BranchOffset() uint64 {
	return in.SImm() << 2
}

// Fmt returns the COP1 operand format.
func (in *Instruction) Fmt() uint8 { return in.Rs }

// Ft returns the COP1 ft operand.
func (in *Instruction) Ft() uint8 { return in.Rt }

// Fs returns the COP1 fs operand.
func (in *Instruction) Fs() uint8 { return in.Rd }

// Fd returns the COP1 fd operand.
func (in *Instruction) Fd() uint8 { return in.Sa }

// Cond returns the comparison predicate of a C.cond.fmt instruction.
func (in *Instruction) Cond() uint8 { return in.Funct & 0xF }

// Primary opcode field values that select a sub-table.
const (
	opcodeSpecial = 0x00
	opcodeRegImm  = 0x01
	opcodeCop0    = 0x10
	opcodeCop1    = 0x11
	opcodeCop2    = 0x12
)

var primaryTable = [64]Op{
	0x02: OpJ, 0x03: OpJAL, 0x04: OpBEQ, 0x05: OpBNE,
	0x06: OpBLEZ, 0x07: OpBGTZ, 0x08: OpADDI, 0x09: OpADDIU,
	0x0A: OpSLTI, 0x0B: OpSLTIU, 0x0C: OpANDI, 0x0D: OpORI,
	0x0E: OpXORI, 0x0F: OpLUI,
	0x14: OpBEQL, 0x15: OpBNEL, 0x16: OpBLEZL, 0x17: OpBGTZL,
	0x18: OpDADDI, 0x19: OpDADDIU, 0x1A: OpLDL, 0x1B: OpLDR,
	0x20: OpLB, 0x21: OpLH, 0x22: OpLWL, 0x23: OpLW,
	0x24: OpLBU, 0x25: OpLHU, 0x26: OpLWR, 0x27: OpLWU,
	0x28: OpSB, 0x29: OpSH, 0x2A: OpSWL, 0x2B: OpSW,
	0x2C: OpSDL, 0x2D: OpSDR, 0x2E: OpSWR, 0x2F: OpCACHE,
	0x30: OpLL, 0x31: OpLWC1, 0x32: OpLWC2, 0x34: OpLLD,
	0x35: OpLDC1, 0x36: OpLDC2, 0x37: OpLD,
	0x38: OpSC, 0x39: OpSWC1, 0x3A: OpSWC2, 0x3C: OpSCD,
	0x3D: OpSDC1, 0x3E: OpSDC2, 0x3F: OpSD,
}

var specialTable = [64]Op{
	0x00: OpSLL, 0x02: OpSRL, 0x03: OpSRA,
	0x04: OpSLLV, 0x06: OpSRLV, 0x07: OpSRAV,
	0x08: OpJR, 0x09: OpJALR, 0x0C: OpSYSCALL, 0x0D: OpBREAK, 0x0F: OpSYNC,
	0x10: OpMFHI, 0x11: OpMTHI, 0x12: OpMFLO, 0x13: OpMTLO,
	0x14: OpDSLLV, 0x16: OpDSRLV, 0x17: OpDSRAV,
	0x18: OpMULT, 0x19: OpMULTU, 0x1A: OpDIV, 0x1B: OpDIVU,
	0x1C: OpDMULT, 0x1D: OpDMULTU, 0x1E: OpDDIV, 0x1F: OpDDIVU,
	0x20: OpADD, 0x21: OpADDU, 0x22: OpSUB, 0x23: OpSUBU,
	0x24: OpAND, 0x25: OpOR, 0x26: OpXOR, 0x27: OpNOR,
	0x2A: OpSLT, 0x2B: OpSLTU,
	0x2C: OpDADD, 0x2D: OpDADDU, 0x2E: OpDSUB, 0x2F: OpDSUBU,
	0x30: OpTGE, 0x31: OpTGEU, 0x32: OpTLT, 0x33: OpTLTU,
	0x34: OpTEQ, 0x36: OpTNE,
	0x38: OpDSLL, 0x3A: OpDSRL, 0x3B: OpDSRA,
	0x3C: OpDSLL32, 0x3E: OpDSRL32, 0x3F: OpDSRA32,
}

var regImmTable = [32]Op{
	0x00: OpBLTZ, 0x01: OpBGEZ, 0x02: OpBLTZL, 0x03: OpBGEZL,
	0x08: OpTGEI, 0x09: OpTGEIU, 0x0A: OpTLTI, 0x0B: OpTLTIU,
	0x0C: OpTEQI, 0x0E: OpTNEI,
	0x10: OpBLTZAL, 0x11: OpBGEZAL, 0x12: OpBLTZALL, 0x13: OpBGEZALL,
}

var cop0Table = [32]Op{
	0x00: OpMFC0, 0x01: OpDMFC0, 0x04: OpMTC0, 0x05: OpDMTC0,
}

var cop0FunctTable = [64]Op{
	0x01: OpTLBR, 0x02: OpTLBWI, 0x06: OpTLBWR, 0x08: OpTLBP, 0x18: OpERET,
}

var cop1Table = [32]Op{
	0x00: OpMFC1, 0x01: OpDMFC1, 0x02: OpCFC1,
	0x04: OpMTC1, 0x05: OpDMTC1, 0x06: OpCTC1,
}

var bc1Table = [4]Op{OpBC1F, OpBC1T, OpBC1FL, OpBC1TL}

// FPU arithmetic for the S and D formats.
var fpuTable = [64]Op{
	0x00: OpFADD, 0x01: OpFSUB, 0x02: OpFMUL, 0x03: OpFDIV,
	0x04: OpFSQRT, 0x05: OpFABS, 0x06: OpFMOV, 0x07: OpFNEG,
	0x08: OpFROUNDL, 0x09: OpFTRUNCL, 0x0A: OpFCEILL, 0x0B: OpFFLOORL,
	0x0C: OpFROUNDW, 0x0D: OpFTRUNCW, 0x0E: OpFCEILW, 0x0F: OpFFLOORW,
	0x20: OpFCVTS, 0x21: OpFCVTD, 0x24: OpFCVTW, 0x25: OpFCVTL,
}

// Decoder decodes MIPS III machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit big-endian instruction word. Encodings outside the
// R4300i catalog decode to OpReserved.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{}
	d.DecodeInto(word, inst)
	return inst
}

// DecodeInto decodes word into inst, overwriting every field.
func (d *Decoder) DecodeInto(word uint32, inst *Instruction) {
	*inst = Instruction{
		Raw:    word,
		Rs:     uint8(word>>21) & 0x1F,
		Rt:     uint8(word>>16) & 0x1F,
		Rd:     uint8(word>>11) & 0x1F,
		Sa:     uint8(word>>6) & 0x1F,
		Funct:  uint8(word) & 0x3F,
		Imm:    uint16(word),
		Target: word & 0x03FFFFFF,
	}
	inst.Op = d.opOf(inst)
}

func (d *Decoder) opOf(inst *Instruction) Op {
	switch primary := inst.Raw >> 26; primary {
	case opcodeSpecial:
		return specialTable[inst.Funct]
	case opcodeRegImm:
		return regImmTable[inst.Rt]
	case opcodeCop0:
		return d.cop0Op(inst)
	case opcodeCop1:
		return d.cop1Op(inst)
	case opcodeCop2:
		return OpCOP2
	default:
		return primaryTable[primary]
	}
}

func (d *Decoder) cop0Op(inst *Instruction) Op {
	if inst.Rs&0x10 != 0 {
		return cop0FunctTable[inst.Funct]
	}
	return cop0Table[inst.Rs]
}

func (d *Decoder) cop1Op(inst *Instruction) Op {
	switch inst.Rs {
	case 0x08:
		return bc1Table[inst.Rt&0x3]
	case FmtS, FmtD:
		if inst.Funct >= 0x30 {
			return OpFCMP
		}
		op := fpuTable[inst.Funct]
		// Conversions to the operand's own format are undefined.
		if (op == OpFCVTS && inst.Rs == FmtS) || (op == OpFCVTD && inst.Rs == FmtD) {
			return OpReserved
		}
		return op
	case FmtW, FmtL:
		switch inst.Funct {
		case 0x20:
			return OpFCVTS
		case 0x21:
			return OpFCVTD
		}
		return OpReserved
	default:
		return cop1Table[inst.Rs]
	}
}
