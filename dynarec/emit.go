package dynarec

import (
	"encoding/binary"
	"unsafe"

	"github.com/sarchlab/n64core/emu"
	"github.com/sarchlab/n64core/insts"
)

// x86-64 register operands used by the emitter. The generated code receives
// a *emu.RegFile in RDI and clobbers only RAX, RCX and the flags.
const (
	regRAX = 0
	regRCX = 1
	regRDI = 7
)

// ModRM extensions for the shift group.
const (
	shl = 0xE0
	shr = 0xE8
	sar = 0xF8
)

// Condition codes for SETcc.
const (
	ccB = 0x92
	ccL = 0x9C
)

var (
	hiDisp = int32(unsafe.Offsetof(emu.RegFile{}.Hi))
	loDisp = int32(unsafe.Offsetof(emu.RegFile{}.Lo))
)

func gprDisp(r uint8) int32 {
	return int32(unsafe.Offsetof(emu.RegFile{}.GPR)) + int32(r&0x1F)*8
}

// CodeBuffer accumulates x86-64 machine code.
type CodeBuffer struct {
	code []byte
}

// Bytes returns the code emitted so far.
func (b *CodeBuffer) Bytes() []byte {
	return b.code
}

// Len returns the number of bytes emitted.
func (b *CodeBuffer) Len() int {
	return len(b.code)
}

// Reset empties the buffer, keeping its storage.
func (b *CodeBuffer) Reset() {
	b.code = b.code[:0]
}

func (b *CodeBuffer) emit(bs ...byte) {
	b.code = append(b.code, bs...)
}

func (b *CodeBuffer) emitU32(v uint32) {
	b.code = binary.LittleEndian.AppendUint32(b.code, v)
}

func rex(w bool) byte {
	if w {
		return 0x48
	}
	return 0x40
}

func modRM(mod, reg, rm byte) byte {
	return mod<<6 | (reg&7)<<3 | rm&7
}

// mem emits opcode with a [rdi+disp32] operand.
func (b *CodeBuffer) mem(wide bool, op byte, reg byte, disp int32) {
	if wide {
		b.emit(rex(true))
	}
	b.emit(op, modRM(2, reg, regRDI))
	b.emitU32(uint32(disp))
}

func (b *CodeBuffer) loadRAX(disp int32) { b.mem(true, 0x8B, regRAX, disp) }
func (b *CodeBuffer) loadEAX(disp int32) { b.mem(false, 0x8B, regRAX, disp) }
func (b *CodeBuffer) loadECX(disp int32) { b.mem(false, 0x8B, regRCX, disp) }
func (b *CodeBuffer) storeRAX(disp int32) { b.mem(true, 0x89, regRAX, disp) }

// aluMem emits op rax/eax, [rdi+disp] for op in add(03) sub(2B) and(23)
// or(0B) xor(33) cmp(3B).
func (b *CodeBuffer) aluMem(wide bool, op byte, disp int32) {
	b.mem(wide, op, regRAX, disp)
}

// aluImm emits op rax/eax, imm32 using the short accumulator forms.
func (b *CodeBuffer) aluImm(wide bool, op byte, imm int32) {
	if wide {
		b.emit(rex(true))
	}
	b.emit(op)
	b.emitU32(uint32(imm))
}

func (b *CodeBuffer) storeImm(disp int32, imm int32) {
	b.mem(true, 0xC7, 0, disp)
	b.emitU32(uint32(imm))
}

func (b *CodeBuffer) movsxd()  { b.emit(0x48, 0x63, 0xC0) }
func (b *CodeBuffer) notRAX()  { b.emit(0x48, 0xF7, 0xD0) }
func (b *CodeBuffer) maskECX() { b.emit(0x83, 0xE1, 0x1F) }
func (b *CodeBuffer) ret()     { b.emit(0xC3) }

func (b *CodeBuffer) shiftImm(wide bool, ext byte, sa uint8) {
	if wide {
		b.emit(rex(true))
	}
	b.emit(0xC1, ext, sa)
}

func (b *CodeBuffer) shiftCL(wide bool, ext byte) {
	if wide {
		b.emit(rex(true))
	}
	b.emit(0xD3, ext)
}

// setcc stores the condition as 0 or 1 in rax.
func (b *CodeBuffer) setcc(cc byte) {
	b.emit(0x0F, cc, 0xC0)
	b.emit(0x0F, 0xB6, 0xC0)
}

var nativeOps = func() (t [insts.NumOps]bool) {
	for _, op := range []insts.Op{
		insts.OpADDU, insts.OpSUBU, insts.OpAND, insts.OpOR, insts.OpXOR,
		insts.OpNOR, insts.OpSLT, insts.OpSLTU,
		insts.OpADDIU, insts.OpSLTI, insts.OpSLTIU, insts.OpANDI, insts.OpORI,
		insts.OpXORI, insts.OpLUI,
		insts.OpSLL, insts.OpSRL, insts.OpSRA, insts.OpSLLV, insts.OpSRLV, insts.OpSRAV,
		insts.OpDADDU, insts.OpDSUBU, insts.OpDADDIU,
		insts.OpDSLL, insts.OpDSRL, insts.OpDSRA,
		insts.OpDSLL32, insts.OpDSRL32, insts.OpDSRA32,
		insts.OpDSLLV, insts.OpDSRLV, insts.OpDSRAV,
		insts.OpMFHI, insts.OpMFLO, insts.OpMTHI, insts.OpMTLO,
	} {
		t[op] = true
	}
	return t
}()

// Native reports whether op can be emitted as inline host code.
func Native(op insts.Op) bool {
	return nativeOps[op]
}

// EmitInst appends host code applying in to the register file in RDI. It
// returns false, emitting nothing, when op has no native form. Results
// targeting r0 emit nothing.
func (b *CodeBuffer) EmitInst(in *insts.Instruction) bool {
	if !Native(in.Op) {
		return false
	}

	switch in.Op {
	case insts.OpMTHI:
		b.loadRAX(gprDisp(in.Rs))
		b.storeRAX(hiDisp)
		return true
	case insts.OpMTLO:
		b.loadRAX(gprDisp(in.Rs))
		b.storeRAX(loDisp)
		return true
	}

	if dest(in) == 0 {
		return true
	}

	switch in.Op {
	case insts.OpADDU:
		b.rrr32(in, 0x03)
	case insts.OpSUBU:
		b.rrr32(in, 0x2B)
	case insts.OpDADDU:
		b.rrr64(in, 0x03)
	case insts.OpDSUBU:
		b.rrr64(in, 0x2B)
	case insts.OpAND:
		b.rrr64(in, 0x23)
	case insts.OpOR:
		b.rrr64(in, 0x0B)
	case insts.OpXOR:
		b.rrr64(in, 0x33)
	case insts.OpNOR:
		b.loadRAX(gprDisp(in.Rs))
		b.aluMem(true, 0x0B, gprDisp(in.Rt))
		b.notRAX()
		b.storeRAX(gprDisp(in.Rd))
	case insts.OpSLT, insts.OpSLTU:
		b.loadRAX(gprDisp(in.Rs))
		b.aluMem(true, 0x3B, gprDisp(in.Rt))
		b.setcc(condFor(in.Op == insts.OpSLT))
		b.storeRAX(gprDisp(in.Rd))

	case insts.OpADDIU:
		b.loadEAX(gprDisp(in.Rs))
		b.aluImm(false, 0x05, int32(in.SImm()))
		b.movsxd()
		b.storeRAX(gprDisp(in.Rt))
	case insts.OpDADDIU:
		b.loadRAX(gprDisp(in.Rs))
		b.aluImm(true, 0x05, int32(in.SImm()))
		b.storeRAX(gprDisp(in.Rt))
	case insts.OpANDI:
		b.rri(in, 0x25)
	case insts.OpORI:
		b.rri(in, 0x0D)
	case insts.OpXORI:
		b.rri(in, 0x35)
	case insts.OpSLTI, insts.OpSLTIU:
		b.loadRAX(gprDisp(in.Rs))
		b.aluImm(true, 0x3D, int32(in.SImm()))
		b.setcc(condFor(in.Op == insts.OpSLTI))
		b.storeRAX(gprDisp(in.Rt))
	case insts.OpLUI:
		b.storeImm(gprDisp(in.Rt), int32(uint32(in.Imm)<<16))

	case insts.OpSLL:
		b.shift32(in, shl)
	case insts.OpSRL:
		b.shift32(in, shr)
	case insts.OpSRA:
		b.loadRAX(gprDisp(in.Rt))
		b.shiftImm(true, sar, in.Sa)
		b.movsxd()
		b.storeRAX(gprDisp(in.Rd))
	case insts.OpSLLV:
		b.shiftVar32(in, shl)
	case insts.OpSRLV:
		b.shiftVar32(in, shr)
	case insts.OpSRAV:
		b.loadRAX(gprDisp(in.Rt))
		b.loadECX(gprDisp(in.Rs))
		b.maskECX()
		b.shiftCL(true, sar)
		b.movsxd()
		b.storeRAX(gprDisp(in.Rd))

	case insts.OpDSLL, insts.OpDSRL, insts.OpDSRA:
		b.shift64(in, shiftExt(in.Op), in.Sa)
	case insts.OpDSLL32, insts.OpDSRL32, insts.OpDSRA32:
		b.shift64(in, shiftExt(in.Op), in.Sa+32)
	case insts.OpDSLLV, insts.OpDSRLV, insts.OpDSRAV:
		b.loadRAX(gprDisp(in.Rt))
		b.loadECX(gprDisp(in.Rs))
		b.shiftCL(true, shiftExt(in.Op))
		b.storeRAX(gprDisp(in.Rd))

	case insts.OpMFHI:
		b.loadRAX(hiDisp)
		b.storeRAX(gprDisp(in.Rd))
	case insts.OpMFLO:
		b.loadRAX(loDisp)
		b.storeRAX(gprDisp(in.Rd))
	}

	return true
}

func dest(in *insts.Instruction) uint8 {
	switch in.Op {
	case insts.OpADDIU, insts.OpDADDIU, insts.OpANDI, insts.OpORI, insts.OpXORI,
		insts.OpSLTI, insts.OpSLTIU, insts.OpLUI:
		return in.Rt
	}
	return in.Rd
}

func condFor(signed bool) byte {
	if signed {
		return ccL
	}
	return ccB
}

func shiftExt(op insts.Op) byte {
	switch op {
	case insts.OpDSLL, insts.OpDSLL32, insts.OpDSLLV:
		return shl
	case insts.OpDSRL, insts.OpDSRL32, insts.OpDSRLV:
		return shr
	}
	return sar
}

func (b *CodeBuffer) rrr32(in *insts.Instruction, op byte) {
	b.loadEAX(gprDisp(in.Rs))
	b.aluMem(false, op, gprDisp(in.Rt))
	b.movsxd()
	b.storeRAX(gprDisp(in.Rd))
}

func (b *CodeBuffer) rrr64(in *insts.Instruction, op byte) {
	b.loadRAX(gprDisp(in.Rs))
	b.aluMem(true, op, gprDisp(in.Rt))
	b.storeRAX(gprDisp(in.Rd))
}

func (b *CodeBuffer) rri(in *insts.Instruction, op byte) {
	b.loadRAX(gprDisp(in.Rs))
	b.aluImm(true, op, int32(in.ZImm()))
	b.storeRAX(gprDisp(in.Rt))
}

func (b *CodeBuffer) shift32(in *insts.Instruction, ext byte) {
	b.loadEAX(gprDisp(in.Rt))
	b.shiftImm(false, ext, in.Sa)
	b.movsxd()
	b.storeRAX(gprDisp(in.Rd))
}

func (b *CodeBuffer) shiftVar32(in *insts.Instruction, ext byte) {
	b.loadEAX(gprDisp(in.Rt))
	b.loadECX(gprDisp(in.Rs))
	b.shiftCL(false, ext)
	b.movsxd()
	b.storeRAX(gprDisp(in.Rd))
}

func (b *CodeBuffer) shift64(in *insts.Instruction, ext byte, sa uint8) {
	b.loadRAX(gprDisp(in.Rt))
	b.shiftImm(true, ext, sa)
	b.storeRAX(gprDisp(in.Rd))
}
