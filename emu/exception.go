package emu

import "fmt"

// ExceptionKind is an architectural exception, numbered by its Cause.ExcCode.
type ExceptionKind uint8

// Exception codes.
const (
	ExcInterrupt           ExceptionKind = 0
	ExcTLBModification     ExceptionKind = 1
	ExcTLBLoad             ExceptionKind = 2
	ExcTLBStore            ExceptionKind = 3
	ExcAddressErrorLoad    ExceptionKind = 4
	ExcAddressErrorStore   ExceptionKind = 5
	ExcBusErrorFetch       ExceptionKind = 6
	ExcBusErrorData        ExceptionKind = 7
	ExcSyscall             ExceptionKind = 8
	ExcBreakpoint          ExceptionKind = 9
	ExcReservedInstruction ExceptionKind = 10
	ExcCopUnusable         ExceptionKind = 11
	ExcOverflow            ExceptionKind = 12
	ExcTrap                ExceptionKind = 13
	ExcFloatingPoint       ExceptionKind = 15
	ExcWatch               ExceptionKind = 23
)

var excNames = map[ExceptionKind]string{
	ExcInterrupt:           "Int",
	ExcTLBModification:     "Mod",
	ExcTLBLoad:             "TLBL",
	ExcTLBStore:            "TLBS",
	ExcAddressErrorLoad:    "AdEL",
	ExcAddressErrorStore:   "AdES",
	ExcBusErrorFetch:       "IBE",
	ExcBusErrorData:        "DBE",
	ExcSyscall:             "Sys",
	ExcBreakpoint:          "Bp",
	ExcReservedInstruction: "RI",
	ExcCopUnusable:         "CpU",
	ExcOverflow:            "Ov",
	ExcTrap:                "Tr",
	ExcFloatingPoint:       "FPE",
	ExcWatch:               "WATCH",
}

func (k ExceptionKind) String() string {
	if name, ok := excNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Exc%d", uint8(k))
}

// Exception vectors, sign-extended.
const (
	VectorReset uint64 = 0xFFFFFFFFBFC00000

	vectorBase    uint64 = 0xFFFFFFFF80000000
	vectorBaseBEV uint64 = 0xFFFFFFFFBFC00200

	offsetRefill  = 0x000
	offsetXRefill = 0x080
	offsetGeneral = 0x180
)

// vector selects the handler address. The refill vectors are used only for
// a TLB miss taken while EXL was clear; invalid-entry faults and faults at
// exception level go to the general vector.
func (c *COP0) vector(tlbMiss, exl, wide bool) uint64 {
	base := vectorBase
	if c.Reg[Cop0Status]&StatusBEV != 0 {
		base = vectorBaseBEV
	}
	switch {
	case tlbMiss && !exl && wide:
		return base + offsetXRefill
	case tlbMiss && !exl:
		return base + offsetRefill
	default:
		return base + offsetGeneral
	}
}

// Raise delivers a synchronous exception blamed on the retiring instruction
// at pc. It is the ExceptionDispatcher entry point for instruction
// semantics; execution of the current instruction must stop after it.
func (c *CPU) Raise(kind ExceptionKind, cop uint8, pc uint64) {
	c.deliver(kind, cop, pc, c.inDelay, false)
}

// raise blames the retiring instruction.
func (c *CPU) raise(kind ExceptionKind, cop uint8) {
	c.deliver(kind, cop, c.regs.OldPC, c.inDelay, false)
}

// raiseAddress records va and raises the exception for a failed access.
func (c *CPU) raiseAddress(fail TLBFailure, kind AccessKind, va, pc uint64, inDelay bool) {
	c.cop0.RecordFaultingAddress(va)

	var exc ExceptionKind
	switch {
	case fail == FailModification:
		exc = ExcTLBModification
	case fail == FailDisallowed && kind == AccessStore:
		exc = ExcAddressErrorStore
	case fail == FailDisallowed:
		exc = ExcAddressErrorLoad
	case kind == AccessStore:
		exc = ExcTLBStore
	default:
		exc = ExcTLBLoad
	}
	c.deliver(exc, 0, pc, inDelay, fail == FailMiss)
}

// raiseMisaligned raises an address error for an unaligned access.
func (c *CPU) raiseMisaligned(kind AccessKind, va uint64) {
	c.cop0.Reg[Cop0BadVAddr] = va
	exc := ExcAddressErrorLoad
	if kind == AccessStore {
		exc = ExcAddressErrorStore
	}
	c.deliver(exc, 0, c.regs.OldPC, c.inDelay, false)
}

func (c *CPU) deliver(kind ExceptionKind, cop uint8, pc uint64, inDelay, tlbMiss bool) {
	cp := &c.cop0
	status := cp.Reg[Cop0Status]
	exl := status&StatusEXL != 0
	wide := cp.Addressing64()

	if !exl {
		cause := cp.Reg[Cop0Cause] &^ CauseBD
		if inDelay {
			cp.Reg[Cop0EPC] = pc - 4
			cause |= CauseBD
		} else {
			cp.Reg[Cop0EPC] = pc
		}
		cp.Reg[Cop0Cause] = cause
		cp.Reg[Cop0Status] = status | StatusEXL
	}

	cause := cp.Reg[Cop0Cause] &^ (causeExcMask | causeCEMask)
	cause |= uint64(kind)<<causeExcShift | uint64(cop&3)<<causeCEShift
	cp.Reg[Cop0Cause] = cause

	vector := cp.vector(tlbMiss, exl, wide)
	c.regs.SetPC(vector)
	c.exceptions++

	if kind != ExcInterrupt || c.log.V(2).Enabled() {
		c.log.V(1).Info("exception",
			"kind", kind.String(), "pc", fmt.Sprintf("%#x", pc),
			"delay", inDelay, "vector", fmt.Sprintf("%#x", vector))
	}
}

// FireException injects an exception from outside instruction execution.
// For ExcInterrupt, cop names the Cause.IP line to raise; the interrupt is
// taken at the next instruction boundary where it is enabled. Any other
// kind is delivered immediately, blamed on pc.
func (c *CPU) FireException(kind ExceptionKind, cop uint8, pc uint64) {
	if kind == ExcInterrupt {
		c.cop0.SetInterruptPending(cop)
		return
	}
	c.deliver(kind, cop, pc, false, false)
}

// CheckInterrupts takes a pending enabled interrupt, redirecting execution
// to the general vector. Backends call it at every instruction boundary.
func (c *CPU) CheckInterrupts() bool {
	if !c.cop0.InterruptPending() {
		return false
	}
	c.deliver(ExcInterrupt, 0, c.regs.PC, c.regs.DelaySlot, false)
	return true
}

// eret returns from an exception or error level.
func (c *CPU) eret() {
	cp := &c.cop0
	if cp.Reg[Cop0Status]&StatusERL != 0 {
		cp.Reg[Cop0Status] &^= StatusERL
		c.regs.SetPC(cp.Reg[Cop0ErrorEPC])
	} else {
		cp.Reg[Cop0Status] &^= StatusEXL
		c.regs.SetPC(cp.Reg[Cop0EPC])
	}
	cp.LLBit = false
}

// SoftReset enters the reset/NMI vector at error level.
func (c *CPU) SoftReset() {
	cp := &c.cop0
	pc := c.regs.PC
	if c.regs.DelaySlot {
		pc -= 4
	}
	cp.Reg[Cop0ErrorEPC] = pc
	cp.Reg[Cop0Status] |= StatusERL | StatusBEV | StatusSR
	c.regs.SetPC(VectorReset)
	c.log.V(0).Info("soft reset", "errorepc", fmt.Sprintf("%#x", pc))
}
