package insts

// Op represents a MIPS III opcode after full decode of the opcode,
// function and coprocessor sub-fields.
type Op uint8

// R4300i opcodes. OpReserved covers every encoding outside the catalog.
const (
	OpReserved Op = iota

	// SPECIAL group
	OpSLL
	OpSRL
	OpSRA
	OpSLLV
	OpSRLV
	OpSRAV
	OpJR
	OpJALR
	OpSYSCALL
	OpBREAK
	OpSYNC
	OpMFHI
	OpMTHI
	OpMFLO
	OpMTLO
	OpDSLLV
	OpDSRLV
	OpDSRAV
	OpMULT
	OpMULTU
	OpDIV
	OpDIVU
	OpDMULT
	OpDMULTU
	OpDDIV
	OpDDIVU
	OpADD
	OpADDU
	OpSUB
	OpSUBU
	OpAND
	OpOR
	OpXOR
	OpNOR
	OpSLT
	OpSLTU
	OpDADD
	OpDADDU
	OpDSUB
	OpDSUBU
	OpTGE
	OpTGEU
	OpTLT
	OpTLTU
	OpTEQ
	OpTNE
	OpDSLL
	OpDSRL
	OpDSRA
	OpDSLL32
	OpDSRL32
	OpDSRA32

	// REGIMM group
	OpBLTZ
	OpBGEZ
	OpBLTZL
	OpBGEZL
	OpTGEI
	OpTGEIU
	OpTLTI
	OpTLTIU
	OpTEQI
	OpTNEI
	OpBLTZAL
	OpBGEZAL
	OpBLTZALL
	OpBGEZALL

	// Primary opcodes
	OpJ
	OpJAL
	OpBEQ
	OpBNE
	OpBLEZ
	OpBGTZ
	OpADDI
	OpADDIU
	OpSLTI
	OpSLTIU
	OpANDI
	OpORI
	OpXORI
	OpLUI
	OpBEQL
	OpBNEL
	OpBLEZL
	OpBGTZL
	OpDADDI
	OpDADDIU
	OpLDL
	OpLDR
	OpLB
	OpLH
	OpLWL
	OpLW
	OpLBU
	OpLHU
	OpLWR
	OpLWU
	OpSB
	OpSH
	OpSWL
	OpSW
	OpSDL
	OpSDR
	OpSWR
	OpCACHE
	OpLL
	OpLWC1
	OpLLD
	OpLDC1
	OpLD
	OpSC
	OpSWC1
	OpSCD
	OpSDC1
	OpSD

	// COP0 group
	OpMFC0
	OpDMFC0
	OpMTC0
	OpDMTC0
	OpTLBR
	OpTLBWI
	OpTLBWR
	OpTLBP
	OpERET

	// COP1 group
	OpMFC1
	OpDMFC1
	OpCFC1
	OpMTC1
	OpDMTC1
	OpCTC1
	OpBC1F
	OpBC1T
	OpBC1FL
	OpBC1TL
	OpFADD
	OpFSUB
	OpFMUL
	OpFDIV
	OpFSQRT
	OpFABS
	OpFMOV
	OpFNEG
	OpFROUNDL
	OpFTRUNCL
	OpFCEILL
	OpFFLOORL
	OpFROUNDW
	OpFTRUNCW
	OpFCEILW
	OpFFLOORW
	OpFCVTS
	OpFCVTD
	OpFCVTW
	OpFCVTL
	OpFCMP

	// COP2 group; the R4300i has no COP2 so these always trap.
	OpCOP2
	OpLWC2
	OpSWC2
	OpLDC2
	OpSDC2

	// NumOps is the size of tables indexed by Op.
	NumOps
)

type opFlags uint16

const (
	flagBranch opFlags = 1 << iota // conditional PC-relative branch
	flagJump                       // unconditional jump
	flagLikely                     // delay slot annulled when not taken
	flagLink                       // writes a return address
	flagTrap                       // conditional trap
	flagSystem                     // SYSCALL, BREAK, ERET
	flagLoad
	flagStore
	flagCop0
	flagCop1
	flagCop2
)

type opInfo struct {
	name  string
	flags opFlags
}

var opTable = [NumOps]opInfo{
	OpReserved: {"reserved", 0},

	OpSLL:     {"sll", 0},
	OpSRL:     {"srl", 0},
	OpSRA:     {"sra", 0},
	OpSLLV:    {"sllv", 0},
	OpSRLV:    {"srlv", 0},
	OpSRAV:    {"srav", 0},
	OpJR:      {"jr", flagJump},
	OpJALR:    {"jalr", flagJump | flagLink},
	OpSYSCALL: {"syscall", flagSystem},
	OpBREAK:   {"break", flagSystem},
	OpSYNC:    {"sync", 0},
	OpMFHI:    {"mfhi", 0},
	OpMTHI:    {"mthi", 0},
	OpMFLO:    {"mflo", 0},
	OpMTLO:    {"mtlo", 0},
	OpDSLLV:   {"dsllv", 0},
	OpDSRLV:   {"dsrlv", 0},
	OpDSRAV:   {"dsrav", 0},
	OpMULT:    {"mult", 0},
	OpMULTU:   {"multu", 0},
	OpDIV:     {"div", 0},
	OpDIVU:    {"divu", 0},
	OpDMULT:   {"dmult", 0},
	OpDMULTU:  {"dmultu", 0},
	OpDDIV:    {"ddiv", 0},
	OpDDIVU:   {"ddivu", 0},
	OpADD:     {"add", 0},
	OpADDU:    {"addu", 0},
	OpSUB:     {"sub", 0},
	OpSUBU:    {"subu", 0},
	OpAND:     {"and", 0},
	OpOR:      {"or", 0},
	OpXOR:     {"xor", 0},
	OpNOR:     {"nor", 0},
	OpSLT:     {"slt", 0},
	OpSLTU:    {"sltu", 0},
	OpDADD:    {"dadd", 0},
	OpDADDU:   {"daddu", 0},
	OpDSUB:    {"dsub", 0},
	OpDSUBU:   {"dsubu", 0},
	OpTGE:     {"tge", flagTrap},
	OpTGEU:    {"tgeu", flagTrap},
	OpTLT:     {"tlt", flagTrap},
	OpTLTU:    {"tltu", flagTrap},
	OpTEQ:     {"teq", flagTrap},
	OpTNE:     {"tne", flagTrap},
	OpDSLL:    {"dsll", 0},
	OpDSRL:    {"dsrl", 0},
	OpDSRA:    {"dsra", 0},
	OpDSLL32:  {"dsll32", 0},
	OpDSRL32:  {"dsrl32", 0},
	OpDSRA32:  {"dsra32", 0},

	OpBLTZ:    {"bltz", flagBranch},
	OpBGEZ:    {"bgez", flagBranch},
	OpBLTZL:   {"bltzl", flagBranch | flagLikely},
	OpBGEZL:   {"bgezl", flagBranch | flagLikely},
	OpTGEI:    {"tgei", flagTrap},
	OpTGEIU:   {"tgeiu", flagTrap},
	OpTLTI:    {"tlti", flagTrap},
	OpTLTIU:   {"tltiu", flagTrap},
	OpTEQI:    {"teqi", flagTrap},
	OpTNEI:    {"tnei", flagTrap},
	OpBLTZAL:  {"bltzal", flagBranch | flagLink},
	OpBGEZAL:  {"bgezal", flagBranch | flagLink},
	OpBLTZALL: {"bltzall", flagBranch | flagLink | flagLikely},
	OpBGEZALL: {"bgezall", flagBranch | flagLink | flagLikely},

	OpJ:      {"j", flagJump},
	OpJAL:    {"jal", flagJump | flagLink},
	OpBEQ:    {"beq", flagBranch},
	OpBNE:    {"bne", flagBranch},
	OpBLEZ:   {"blez", flagBranch},
	OpBGTZ:   {"bgtz", flagBranch},
	OpADDI:   {"addi", 0},
	OpADDIU:  {"addiu", 0},
	OpSLTI:   {"slti", 0},
	OpSLTIU:  {"sltiu", 0},
	OpANDI:   {"andi", 0},
	OpORI:    {"ori", 0},
	OpXORI:   {"xori", 0},
	OpLUI:    {"lui", 0},
	OpBEQL:   {"beql", flagBranch | flagLikely},
	OpBNEL:   {"bnel", flagBranch | flagLikely},
	OpBLEZL:  {"blezl", flagBranch | flagLikely},
	OpBGTZL:  {"bgtzl", flagBranch | flagLikely},
	OpDADDI:  {"daddi", 0},
	OpDADDIU: {"daddiu", 0},
	OpLDL:    {"ldl", flagLoad},
	OpLDR:    {"ldr", flagLoad},
	OpLB:     {"lb", flagLoad},
	OpLH:     {"lh", flagLoad},
	OpLWL:    {"lwl", flagLoad},
	OpLW:     {"lw", flagLoad},
	OpLBU:    {"lbu", flagLoad},
	OpLHU:    {"lhu", flagLoad},
	OpLWR:    {"lwr", flagLoad},
	OpLWU:    {"lwu", flagLoad},
	OpSB:     {"sb", flagStore},
	OpSH:     {"sh", flagStore},
	OpSWL:    {"swl", flagStore},
	OpSW:     {"sw", flagStore},
	OpSDL:    {"sdl", flagStore},
	OpSDR:    {"sdr", flagStore},
	OpSWR:    {"swr", flagStore},
	OpCACHE:  {"cache", 0},
	OpLL:     {"ll", flagLoad},
	OpLWC1:   {"lwc1", flagLoad | flagCop1},
	OpLLD:    {"lld", flagLoad},
	OpLDC1:   {"ldc1", flagLoad | flagCop1},
	OpLD:     {"ld", flagLoad},
	OpSC:     {"sc", flagStore},
	OpSWC1:   {"swc1", flagStore | flagCop1},
	OpSCD:    {"scd", flagStore},
	OpSDC1:   {"sdc1", flagStore | flagCop1},
	OpSD:     {"sd", flagStore},

	OpMFC0:  {"mfc0", flagCop0},
	OpDMFC0: {"dmfc0", flagCop0},
	OpMTC0:  {"mtc0", flagCop0},
	OpDMTC0: {"dmtc0", flagCop0},
	OpTLBR:  {"tlbr", flagCop0},
	OpTLBWI: {"tlbwi", flagCop0},
	OpTLBWR: {"tlbwr", flagCop0},
	OpTLBP:  {"tlbp", flagCop0},
	OpERET:  {"eret", flagCop0 | flagSystem},

	OpMFC1:    {"mfc1", flagCop1},
	OpDMFC1:   {"dmfc1", flagCop1},
	OpCFC1:    {"cfc1", flagCop1},
	OpMTC1:    {"mtc1", flagCop1},
	OpDMTC1:   {"dmtc1", flagCop1},
	OpCTC1:    {"ctc1", flagCop1},
	OpBC1F:    {"bc1f", flagCop1 | flagBranch},
	OpBC1T:    {"bc1t", flagCop1 | flagBranch},
	OpBC1FL:   {"bc1fl", flagCop1 | flagBranch | flagLikely},
	OpBC1TL:   {"bc1tl", flagCop1 | flagBranch | flagLikely},
	OpFADD:    {"add", flagCop1},
	OpFSUB:    {"sub", flagCop1},
	OpFMUL:    {"mul", flagCop1},
	OpFDIV:    {"div", flagCop1},
	OpFSQRT:   {"sqrt", flagCop1},
	OpFABS:    {"abs", flagCop1},
	OpFMOV:    {"mov", flagCop1},
	OpFNEG:    {"neg", flagCop1},
	OpFROUNDL: {"round.l", flagCop1},
	OpFTRUNCL: {"trunc.l", flagCop1},
	OpFCEILL:  {"ceil.l", flagCop1},
	OpFFLOORL: {"floor.l", flagCop1},
	OpFROUNDW: {"round.w", flagCop1},
	OpFTRUNCW: {"trunc.w", flagCop1},
	OpFCEILW:  {"ceil.w", flagCop1},
	OpFFLOORW: {"floor.w", flagCop1},
	OpFCVTS:   {"cvt.s", flagCop1},
	OpFCVTD:   {"cvt.d", flagCop1},
	OpFCVTW:   {"cvt.w", flagCop1},
	OpFCVTL:   {"cvt.l", flagCop1},
	OpFCMP:    {"c", flagCop1},

	OpCOP2: {"cop2", flagCop2},
	OpLWC2: {"lwc2", flagCop2 | flagLoad},
	OpSWC2: {"swc2", flagCop2 | flagStore},
	OpLDC2: {"ldc2", flagCop2 | flagLoad},
	OpSDC2: {"sdc2", flagCop2 | flagStore},
}

// String returns the assembler mnemonic of the opcode.
func (op Op) String() string {
	if op >= NumOps {
		return "invalid"
	}
	return opTable[op].name
}

func (op Op) has(f opFlags) bool {
	return op < NumOps && opTable[op].flags&f != 0
}

// IsBranch reports whether op is a conditional PC-relative branch,
// including the COP1 condition branches.
func (op Op) IsBranch() bool { return op.has(flagBranch) }

// IsJump reports whether op is an unconditional jump (J, JAL, JR, JALR).
func (op Op) IsJump() bool { return op.has(flagJump) }

// IsLikely reports whether op is a "branch likely" variant, whose delay
// slot is annulled when the branch is not taken.
func (op Op) IsLikely() bool { return op.has(flagLikely) }

// IsLink reports whether op writes a return address.
func (op Op) IsLink() bool { return op.has(flagLink) }

// IsTrap reports whether op is a conditional trap.
func (op Op) IsTrap() bool { return op.has(flagTrap) }

// IsLoad reports whether op reads guest memory.
func (op Op) IsLoad() bool { return op.has(flagLoad) }

// IsStore reports whether op writes guest memory.
func (op Op) IsStore() bool { return op.has(flagStore) }

// IsCop0 reports whether op belongs to the system control coprocessor group.
func (op Op) IsCop0() bool { return op.has(flagCop0) }

// IsCop1 reports whether op is gated by the COP1 usable bit.
func (op Op) IsCop1() bool { return op.has(flagCop1) }

// IsCop2 reports whether op targets the (absent) COP2.
func (op Op) IsCop2() bool { return op.has(flagCop2) }

// HasDelaySlot reports whether the instruction after op executes in op's
// branch-delay slot.
func (op Op) HasDelaySlot() bool { return op.has(flagBranch | flagJump) }

// EndsBlock reports whether a translation block must end at op. Branches,
// jumps, traps, SYSCALL/BREAK/ERET, every COP0 instruction, COP2 accesses
// (which always trap) and reserved encodings end a block. Arithmetic, logic,
// ordinary loads/stores and non-branch COP1 instructions never do.
func (op Op) EndsBlock() bool {
	if op == OpReserved || op >= NumOps {
		return true
	}
	return op.has(flagBranch | flagJump | flagTrap | flagSystem | flagCop0 | flagCop2)
}
