package insts

// Encoders for building guest code in tests, benchmarks and boot stubs.
// Register arguments are GPR numbers; immediates are raw 16-bit fields.

// EncodeR builds a SPECIAL-group (register format) word.
func EncodeR(funct, rs, rt, rd, sa uint8) uint32 {
	return uint32(rs&0x1F)<<21 | uint32(rt&0x1F)<<16 | uint32(rd&0x1F)<<11 |
		uint32(sa&0x1F)<<6 | uint32(funct&0x3F)
}

// EncodeI builds an immediate-format word for the given primary opcode.
func EncodeI(opcode, rs, rt uint8, imm uint16) uint32 {
	return uint32(opcode&0x3F)<<26 | uint32(rs&0x1F)<<21 | uint32(rt&0x1F)<<16 | uint32(imm)
}

// EncodeJType builds a J/JAL word from a byte address; only bits 27:2 are kept.
func EncodeJType(opcode uint8, addr uint32) uint32 {
	return uint32(opcode&0x3F)<<26 | (addr>>2)&0x03FFFFFF
}

// EncodeRegImm builds a REGIMM word; sel selects the branch or trap.
func EncodeRegImm(sel, rs uint8, imm uint16) uint32 {
	return EncodeI(opcodeRegImm, rs, sel, imm)
}

// EncodeCop builds a coprocessor move word (MFCz/MTCz family).
func EncodeCop(cop, sub, rt, rd uint8) uint32 {
	return uint32(opcodeCop0+cop)<<26 | uint32(sub&0x1F)<<21 | uint32(rt&0x1F)<<16 |
		uint32(rd&0x1F)<<11
}

// EncodeFPU builds a COP1 arithmetic word.
func EncodeFPU(fmt, ft, fs, fd, funct uint8) uint32 {
	return uint32(opcodeCop1)<<26 | uint32(fmt&0x1F)<<21 | uint32(ft&0x1F)<<16 |
		uint32(fs&0x1F)<<11 | uint32(fd&0x1F)<<6 | uint32(funct&0x3F)
}

// Branch offsets below are in instructions relative to the delay slot.

// EncodeNOP returns the canonical NOP (SLL $zero, $zero, 0).
func EncodeNOP() uint32 { return 0 }

// EncodeSLL encodes SLL rd, rt, sa.
func EncodeSLL(rd, rt, sa uint8) uint32 { return EncodeR(0x00, 0, rt, rd, sa) }

// EncodeSRL encodes SRL rd, rt, sa.
func EncodeSRL(rd, rt, sa uint8) uint32 { return EncodeR(0x02, 0, rt, rd, sa) }

// EncodeSRA encodes SRA rd, rt, sa.
func EncodeSRA(rd, rt, sa uint8) uint32 { return EncodeR(0x03, 0, rt, rd, sa) }

// EncodeSLLV encodes SLLV rd, rt, rs.
func EncodeSLLV(rd, rt, rs uint8) uint32 { return EncodeR(0x04, rs, rt, rd, 0) }

// EncodeDSLL encodes DSLL rd, rt, sa.
func EncodeDSLL(rd, rt, sa uint8) uint32 { return EncodeR(0x38, 0, rt, rd, sa) }

// EncodeDSLL32 encodes DSLL32 rd, rt, sa.
func EncodeDSLL32(rd, rt, sa uint8) uint32 { return EncodeR(0x3C, 0, rt, rd, sa) }

// EncodeDSRA32 encodes DSRA32 rd, rt, sa.
func EncodeDSRA32(rd, rt, sa uint8) uint32 { return EncodeR(0x3F, 0, rt, rd, sa) }

// EncodeJR encodes JR rs.
func EncodeJR(rs uint8) uint32 { return EncodeR(0x08, rs, 0, 0, 0) }

// EncodeJALR encodes JALR rd, rs.
func EncodeJALR(rd, rs uint8) uint32 { return EncodeR(0x09, rs, 0, rd, 0) }

// EncodeSYSCALL encodes SYSCALL.
func EncodeSYSCALL() uint32 { return EncodeR(0x0C, 0, 0, 0, 0) }

// EncodeBREAK encodes BREAK.
func EncodeBREAK() uint32 { return EncodeR(0x0D, 0, 0, 0, 0) }

// EncodeMFHI encodes MFHI rd.
func EncodeMFHI(rd uint8) uint32 { return EncodeR(0x10, 0, 0, rd, 0) }

// EncodeMFLO encodes MFLO rd.
func EncodeMFLO(rd uint8) uint32 { return EncodeR(0x12, 0, 0, rd, 0) }

// EncodeMULT encodes MULT rs, rt.
func EncodeMULT(rs, rt uint8) uint32 { return EncodeR(0x18, rs, rt, 0, 0) }

// EncodeMULTU encodes MULTU rs, rt.
func EncodeMULTU(rs, rt uint8) uint32 { return EncodeR(0x19, rs, rt, 0, 0) }

// EncodeDIV encodes DIV rs, rt.
func EncodeDIV(rs, rt uint8) uint32 { return EncodeR(0x1A, rs, rt, 0, 0) }

// EncodeDIVU encodes DIVU rs, rt.
func EncodeDIVU(rs, rt uint8) uint32 { return EncodeR(0x1B, rs, rt, 0, 0) }

// EncodeDMULTU encodes DMULTU rs, rt.
func EncodeDMULTU(rs, rt uint8) uint32 { return EncodeR(0x1D, rs, rt, 0, 0) }

// EncodeDDIV encodes DDIV rs, rt.
func EncodeDDIV(rs, rt uint8) uint32 { return EncodeR(0x1E, rs, rt, 0, 0) }

// EncodeADD encodes ADD rd, rs, rt.
func EncodeADD(rd, rs, rt uint8) uint32 { return EncodeR(0x20, rs, rt, rd, 0) }

// EncodeADDU encodes ADDU rd, rs, rt.
func EncodeADDU(rd, rs, rt uint8) uint32 { return EncodeR(0x21, rs, rt, rd, 0) }

// EncodeSUB encodes SUB rd, rs, rt.
func EncodeSUB(rd, rs, rt uint8) uint32 { return EncodeR(0x22, rs, rt, rd, 0) }

// EncodeSUBU encodes SUBU rd, rs, rt.
func EncodeSUBU(rd, rs, rt uint8) uint32 { return EncodeR(0x23, rs, rt, rd, 0) }

// EncodeAND encodes AND rd, rs, rt.
func EncodeAND(rd, rs, rt uint8) uint32 { return EncodeR(0x24, rs, rt, rd, 0) }

// EncodeOR encodes OR rd, rs, rt.
func EncodeOR(rd, rs, rt uint8) uint32 { return EncodeR(0x25, rs, rt, rd, 0) }

// EncodeXOR encodes XOR rd, rs, rt.
func EncodeXOR(rd, rs, rt uint8) uint32 { return EncodeR(0x26, rs, rt, rd, 0) }

// EncodeNOR encodes NOR rd, rs, rt.
func EncodeNOR(rd, rs, rt uint8) uint32 { return EncodeR(0x27, rs, rt, rd, 0) }

// EncodeSLT encodes SLT rd, rs, rt.
func EncodeSLT(rd, rs, rt uint8) uint32 { return EncodeR(0x2A, rs, rt, rd, 0) }

// EncodeSLTU encodes SLTU rd, rs, rt.
func EncodeSLTU(rd, rs, rt uint8) uint32 { return EncodeR(0x2B, rs, rt, rd, 0) }

// EncodeDADD encodes DADD rd, rs, rt.
func EncodeDADD(rd, rs, rt uint8) uint32 { return EncodeR(0x2C, rs, rt, rd, 0) }

// EncodeDADDU encodes DADDU rd, rs, rt.
func EncodeDADDU(rd, rs, rt uint8) uint32 { return EncodeR(0x2D, rs, rt, rd, 0) }

// EncodeDSUBU encodes DSUBU rd, rs, rt.
func EncodeDSUBU(rd, rs, rt uint8) uint32 { return EncodeR(0x2F, rs, rt, rd, 0) }

// EncodeTEQ encodes TEQ rs, rt.
func EncodeTEQ(rs, rt uint8) uint32 { return EncodeR(0x34, rs, rt, 0, 0) }

// EncodeBLTZ encodes BLTZ rs, offset.
func EncodeBLTZ(rs uint8, offset int16) uint32 { return EncodeRegImm(0x00, rs, uint16(offset)) }

// EncodeBGEZ encodes BGEZ rs, offset.
func EncodeBGEZ(rs uint8, offset int16) uint32 { return EncodeRegImm(0x01, rs, uint16(offset)) }

// EncodeBGEZAL encodes BGEZAL rs, offset.
func EncodeBGEZAL(rs uint8, offset int16) uint32 { return EncodeRegImm(0x11, rs, uint16(offset)) }

// EncodeJ encodes J to the byte address target.
func EncodeJ(target uint32) uint32 { return EncodeJType(0x02, target) }

// EncodeJAL encodes JAL to the byte address target.
func EncodeJAL(target uint32) uint32 { return EncodeJType(0x03, target) }

// EncodeBEQ encodes BEQ rs, rt, offset.
func EncodeBEQ(rs, rt uint8, offset int16) uint32 { return EncodeI(0x04, rs, rt, uint16(offset)) }

// EncodeBNE encodes BNE rs, rt, offset.
func EncodeBNE(rs, rt uint8, offset int16) uint32 { return EncodeI(0x05, rs, rt, uint16(offset)) }

// EncodeBLEZ encodes BLEZ rs, offset.
func EncodeBLEZ(rs uint8, offset int16) uint32 { return EncodeI(0x06, rs, 0, uint16(offset)) }

// EncodeBGTZ encodes BGTZ rs, offset.
func EncodeBGTZ(rs uint8, offset int16) uint32 { return EncodeI(0x07, rs, 0, uint16(offset)) }

// EncodeADDI encodes ADDI rt, rs, imm.
func EncodeADDI(rt, rs uint8, imm int16) uint32 { return EncodeI(0x08, rs, rt, uint16(imm)) }

// EncodeADDIU encodes ADDIU rt, rs, imm.
func EncodeADDIU(rt, rs uint8, imm int16) uint32 { return EncodeI(0x09, rs, rt, uint16(imm)) }

// EncodeSLTI encodes SLTI rt, rs, imm.
func EncodeSLTI(rt, rs uint8, imm int16) uint32 { return EncodeI(0x0A, rs, rt, uint16(imm)) }

// EncodeANDI encodes ANDI rt, rs, imm.
func EncodeANDI(rt, rs uint8, imm uint16) uint32 { return EncodeI(0x0C, rs, rt, imm) }

// EncodeORI encodes ORI rt, rs, imm.
func EncodeORI(rt, rs uint8, imm uint16) uint32 { return EncodeI(0x0D, rs, rt, imm) }

// EncodeXORI encodes XORI rt, rs, imm.
func EncodeXORI(rt, rs uint8, imm uint16) uint32 { return EncodeI(0x0E, rs, rt, imm) }

// EncodeLUI encodes LUI rt, imm.
func EncodeLUI(rt uint8, imm uint16) uint32 { return EncodeI(0x0F, 0, rt, imm) }

// EncodeBEQL encodes BEQL rs, rt, offset.
func EncodeBEQL(rs, rt uint8, offset int16) uint32 { return EncodeI(0x14, rs, rt, uint16(offset)) }

// EncodeBNEL encodes BNEL rs, rt, offset.
func EncodeBNEL(rs, rt uint8, offset int16) uint32 { return EncodeI(0x15, rs, rt, uint16(offset)) }

// EncodeDADDI encodes DADDI rt, rs, imm.
func EncodeDADDI(rt, rs uint8, imm int16) uint32 { return EncodeI(0x18, rs, rt, uint16(imm)) }

// EncodeDADDIU encodes DADDIU rt, rs, imm.
func EncodeDADDIU(rt, rs uint8, imm int16) uint32 { return EncodeI(0x19, rs, rt, uint16(imm)) }

// EncodeLB encodes LB rt, offset(base).
func EncodeLB(rt, base uint8, offset int16) uint32 { return EncodeI(0x20, base, rt, uint16(offset)) }

// EncodeLH encodes LH rt, offset(base).
func EncodeLH(rt, base uint8, offset int16) uint32 { return EncodeI(0x21, base, rt, uint16(offset)) }

// EncodeLWL encodes LWL rt, offset(base).
func EncodeLWL(rt, base uint8, offset int16) uint32 { return EncodeI(0x22, base, rt, uint16(offset)) }

// EncodeLW encodes LW rt, offset(base).
func EncodeLW(rt, base uint8, offset int16) uint32 { return EncodeI(0x23, base, rt, uint16(offset)) }

// EncodeLBU encodes LBU rt, offset(base).
func EncodeLBU(rt, base uint8, offset int16) uint32 { return EncodeI(0x24, base, rt, uint16(offset)) }

// EncodeLWR encodes LWR rt, offset(base).
func EncodeLWR(rt, base uint8, offset int16) uint32 { return EncodeI(0x26, base, rt, uint16(offset)) }

// EncodeLWU encodes LWU rt, offset(base).
func EncodeLWU(rt, base uint8, offset int16) uint32 { return EncodeI(0x27, base, rt, uint16(offset)) }

// EncodeSB encodes SB rt, offset(base).
func EncodeSB(rt, base uint8, offset int16) uint32 { return EncodeI(0x28, base, rt, uint16(offset)) }

// EncodeSH encodes SH rt, offset(base).
func EncodeSH(rt, base uint8, offset int16) uint32 { return EncodeI(0x29, base, rt, uint16(offset)) }

// EncodeSWL encodes SWL rt, offset(base).
func EncodeSWL(rt, base uint8, offset int16) uint32 { return EncodeI(0x2A, base, rt, uint16(offset)) }

// EncodeSW encodes SW rt, offset(base).
func EncodeSW(rt, base uint8, offset int16) uint32 { return EncodeI(0x2B, base, rt, uint16(offset)) }

// EncodeSWR encodes SWR rt, offset(base).
func EncodeSWR(rt, base uint8, offset int16) uint32 { return EncodeI(0x2E, base, rt, uint16(offset)) }

// EncodeLL encodes LL rt, offset(base).
func EncodeLL(rt, base uint8, offset int16) uint32 { return EncodeI(0x30, base, rt, uint16(offset)) }

// EncodeLD encodes LD rt, offset(base).
func EncodeLD(rt, base uint8, offset int16) uint32 { return EncodeI(0x37, base, rt, uint16(offset)) }

// EncodeSC encodes SC rt, offset(base).
func EncodeSC(rt, base uint8, offset int16) uint32 { return EncodeI(0x38, base, rt, uint16(offset)) }

// EncodeSD encodes SD rt, offset(base).
func EncodeSD(rt, base uint8, offset int16) uint32 { return EncodeI(0x3F, base, rt, uint16(offset)) }

// EncodeMFC0 encodes MFC0 rt, rd.
func EncodeMFC0(rt, rd uint8) uint32 { return EncodeCop(0, 0x00, rt, rd) }

// EncodeMTC0 encodes MTC0 rt, rd.
func EncodeMTC0(rt, rd uint8) uint32 { return EncodeCop(0, 0x04, rt, rd) }

// EncodeDMTC0 encodes DMTC0 rt, rd.
func EncodeDMTC0(rt, rd uint8) uint32 { return EncodeCop(0, 0x05, rt, rd) }

func encodeCop0Op(funct uint8) uint32 {
	return uint32(opcodeCop0)<<26 | 1<<25 | uint32(funct)
}

// EncodeTLBR encodes TLBR.
func EncodeTLBR() uint32 { return encodeCop0Op(0x01) }

// EncodeTLBWI encodes TLBWI.
func EncodeTLBWI() uint32 { return encodeCop0Op(0x02) }

// EncodeTLBWR encodes TLBWR.
func EncodeTLBWR() uint32 { return encodeCop0Op(0x06) }

// EncodeTLBP encodes TLBP.
func EncodeTLBP() uint32 { return encodeCop0Op(0x08) }

// EncodeERET encodes ERET.
func EncodeERET() uint32 { return encodeCop0Op(0x18) }

// EncodeMTC1 encodes MTC1 rt, fs.
func EncodeMTC1(rt, fs uint8) uint32 { return EncodeCop(1, 0x04, rt, fs) }

// EncodeMFC1 encodes MFC1 rt, fs.
func EncodeMFC1(rt, fs uint8) uint32 { return EncodeCop(1, 0x00, rt, fs) }

// EncodeCTC1 encodes CTC1 rt, fs.
func EncodeCTC1(rt, fs uint8) uint32 { return EncodeCop(1, 0x06, rt, fs) }

// EncodeBC1T encodes BC1T offset.
func EncodeBC1T(offset int16) uint32 {
	return uint32(opcodeCop1)<<26 | 0x08<<21 | 1<<16 | uint32(uint16(offset))
}
