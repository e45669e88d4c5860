// Package emu provides the R4300i CPU core.
package emu

// RegFile represents the MIPS III integer register file and the program
// counter triple that models the branch-delay slot.
type RegFile struct {
	// GPR holds the general-purpose registers. GPR[0] always reads as 0.
	GPR [32]uint64

	// Hi and Lo hold multiply and divide results.
	Hi uint64
	Lo uint64

	// PC is the address of the next instruction to execute.
	PC uint64

	// NextPC is the address of the instruction after PC. A taken branch
	// writes its target here.
	NextPC uint64

	// OldPC is the address of the instruction currently retiring.
	OldPC uint64

	// DelaySlot is true while the instruction at PC occupies a branch-delay
	// slot.
	DelaySlot bool
}

// ReadReg reads a general-purpose register.
func (r *RegFile) ReadReg(reg uint8) uint64 {
	return r.GPR[reg&0x1F]
}

// WriteReg writes a general-purpose register. Writes to register 0 are
// discarded.
func (r *RegFile) WriteReg(reg uint8, value uint64) {
	if reg == 0 {
		return
	}
	r.GPR[reg&0x1F] = value
}

// ReadReg32 reads the lower 32 bits of a register.
func (r *RegFile) ReadReg32(reg uint8) uint32 {
	return uint32(r.ReadReg(reg))
}

// WriteReg32 writes a 32-bit result, sign-extending it to 64 bits.
func (r *RegFile) WriteReg32(reg uint8, value uint32) {
	r.WriteReg(reg, sext32(value))
}

// SetPC points execution at pc, leaving the delay-slot state clear.
func (r *RegFile) SetPC(pc uint64) {
	r.PC = pc
	r.NextPC = pc + 4
	r.DelaySlot = false
}

func sext32(v uint32) uint64 {
	return uint64(int64(int32(v)))
}

func sext16(v uint16) uint64 {
	return uint64(int64(int16(v)))
}

func sext8(v uint8) uint64 {
	return uint64(int64(int8(v)))
}
