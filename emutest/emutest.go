// Package emutest provides guest programs and helpers for exercising the
// CPU backends against each other.
package emutest

import (
	"encoding/binary"

	"github.com/sarchlab/n64core/bus"
	"github.com/sarchlab/n64core/emu"
	"github.com/sarchlab/n64core/insts"
)

// Entry is the virtual address every program starts at.
const Entry uint64 = 0xFFFFFFFF80001000

// HaltAddr is the physical address of the halt device. Any write to it
// requests a stop.
const HaltAddr uint32 = 0x05000000

// DataBase is the physical address programs store their results at.
const DataBase uint32 = 0x2000

// Halt stops the attached CPU when written.
type Halt struct {
	CPU *emu.CPU
}

// Read32 implements bus.Device.
func (h *Halt) Read32(uint32) uint32 { return 0 }

// Write32 implements bus.Device.
func (h *Halt) Write32(uint32, uint32) {
	if h.CPU != nil {
		h.CPU.RequestStop()
	}
}

// Chunk is a run of instruction words at a physical address.
type Chunk struct {
	Addr  uint32
	Words []uint32
}

// Program is a guest test program.
type Program struct {
	Name   string
	Chunks []Chunk
}

// Load writes the program into memory.
func (p Program) Load(b *bus.Bus) error {
	for _, c := range p.Chunks {
		buf := make([]byte, 4*len(c.Words))
		for i, w := range c.Words {
			binary.BigEndian.PutUint32(buf[4*i:], w)
		}
		if err := b.WriteBlock(c.Addr, buf); err != nil {
			return err
		}
	}
	return nil
}

// NewCPU creates a CPU on b in kernel mode with BEV and ERL clear, about to
// execute at Entry, with the halt device mapped.
func NewCPU(b *bus.Bus, opts ...emu.CPUOption) *emu.CPU {
	cpu := emu.NewCPU(b, opts...)
	cpu.COP0().Reg[emu.Cop0Status] = 0
	cpu.RegFile().SetPC(Entry)
	b.Map(HaltAddr, 0x1000, &Halt{CPU: cpu})
	return cpu
}

// Setup creates a bus and CPU with p loaded.
func Setup(p Program, opts ...emu.CPUOption) (*bus.Bus, *emu.CPU, error) {
	b := bus.New(bus.WithRDRAMSize(bus.RDRAMSize4M))
	if err := p.Load(b); err != nil {
		return nil, nil, err
	}
	return b, NewCPU(b, opts...), nil
}

const (
	zero = insts.RegZero
	v0   = insts.RegV0
	v1   = insts.RegV1
	a0   = insts.RegA0
	a1   = insts.RegA1
	a2   = insts.RegA2
	a3   = insts.RegA3
	t0   = insts.RegT0
	t1   = insts.RegT1
	t2   = insts.RegT2
	t3   = insts.RegT3
	t4   = insts.RegT4
	t5   = insts.RegT5
	t6   = insts.RegT6
	t7   = insts.RegT7
	s0   = insts.RegS0
	s1   = insts.RegS1
	s2   = insts.RegS2
	s3   = insts.RegS3
	t9   = insts.RegT9
	k0   = insts.RegK0
	ra   = insts.RegRA
)

// haltSequence stores to the halt device through kseg1 and spins.
func haltSequence() []uint32 {
	return []uint32{
		insts.EncodeLUI(t9, 0xA500),
		insts.EncodeSW(zero, t9, 0),
		insts.EncodeBEQ(zero, zero, -1),
		insts.EncodeNOP(),
	}
}

func code(words ...[]uint32) []uint32 {
	var out []uint32
	for _, w := range words {
		out = append(out, w...)
	}
	return out
}

// ArithLoop mixes 32- and 64-bit ALU work, shifts and multiplies in a
// counted loop and stores the results.
func ArithLoop() Program {
	main := code([]uint32{
		insts.EncodeLUI(s0, 0x8000),
		insts.EncodeORI(s0, s0, uint16(DataBase)),
		insts.EncodeADDIU(t0, zero, 100),
		insts.EncodeADDIU(v0, zero, 0),
		insts.EncodeADDIU(v1, zero, 1),
		// loop
		insts.EncodeADDU(v0, v0, t0),
		insts.EncodeSLL(t1, t0, 3),
		insts.EncodeXOR(v1, v1, t1),
		insts.EncodeDADDU(a0, a0, v0),
		insts.EncodeDSLL(a1, a0, 5),
		insts.EncodeSLT(a2, v1, v0),
		insts.EncodeMULT(t0, v1),
		insts.EncodeMFLO(a3),
		insts.EncodeADDIU(t0, t0, -1),
		insts.EncodeBNE(t0, zero, -10),
		insts.EncodeSW(v0, s0, 0),
		insts.EncodeSD(a0, s0, 8),
		insts.EncodeSW(a3, s0, 16),
	}, haltSequence())

	return Program{Name: "arith-loop", Chunks: []Chunk{{Addr: 0x1000, Words: main}}}
}

// SelfModify patches an instruction of its own loop body after the first
// iteration. A correct backend ends with v1 = 17.
func SelfModify() Program {
	patch := insts.EncodeADDIU(v1, v1, 16)
	main := code([]uint32{
		insts.EncodeLUI(s0, 0x8000),
		insts.EncodeORI(s0, s0, 0x1010),
		insts.EncodeADDIU(t0, zero, 2),
		insts.EncodeADDIU(v1, zero, 0),
		// loop, patched
		insts.EncodeADDIU(v1, v1, 1),
		insts.EncodeLUI(t1, uint16(patch>>16)),
		insts.EncodeORI(t1, t1, uint16(patch)),
		insts.EncodeSW(t1, s0, 0),
		insts.EncodeADDIU(t0, t0, -1),
		insts.EncodeBNE(t0, zero, -6),
		insts.EncodeNOP(),
	}, haltSequence())

	return Program{Name: "self-modify", Chunks: []Chunk{{Addr: 0x1000, Words: main}}}
}

// TimerInterrupt spins until the timer interrupt handler sets v0. The spin
// count in t0 depends on exact interrupt timing.
func TimerInterrupt() Program {
	handler := []uint32{
		insts.EncodeMFC0(k0, emu.Cop0Cause),
		insts.EncodeADDIU(v0, zero, 1),
		insts.EncodeMTC0(zero, emu.Cop0Compare),
		insts.EncodeERET(),
		insts.EncodeNOP(),
	}
	main := code([]uint32{
		insts.EncodeADDIU(t2, zero, 200),
		insts.EncodeMTC0(t2, emu.Cop0Compare),
		insts.EncodeORI(t3, zero, 0x8001),
		insts.EncodeMTC0(t3, emu.Cop0Status),
		// spin
		insts.EncodeADDIU(t0, t0, 1),
		insts.EncodeDADDU(t1, t1, t0),
		insts.EncodeBEQ(v0, zero, -3),
		insts.EncodeNOP(),
	}, haltSequence())

	return Program{Name: "timer-interrupt", Chunks: []Chunk{
		{Addr: 0x180, Words: handler},
		{Addr: 0x1000, Words: main},
	}}
}

// TLBMapping installs a TLB entry, accesses memory through it and takes
// one refill exception that the handler skips.
func TLBMapping() Program {
	refill := []uint32{
		insts.EncodeMFC0(k0, emu.Cop0EPC),
		insts.EncodeADDIU(k0, k0, 4),
		insts.EncodeMTC0(k0, emu.Cop0EPC),
		insts.EncodeADDIU(v1, zero, 0x0BAD),
		insts.EncodeERET(),
		insts.EncodeNOP(),
	}
	main := code([]uint32{
		insts.EncodeLUI(t0, 0x0040),
		insts.EncodeMTC0(t0, emu.Cop0EntryHi),
		insts.EncodeADDIU(t1, zero, 3<<6|7),
		insts.EncodeMTC0(t1, emu.Cop0EntryLo0),
		insts.EncodeADDIU(t1, zero, 4<<6|7),
		insts.EncodeMTC0(t1, emu.Cop0EntryLo1),
		insts.EncodeMTC0(zero, emu.Cop0PageMask),
		insts.EncodeMTC0(zero, emu.Cop0Index),
		insts.EncodeTLBWI(),
		insts.EncodeADDIU(t2, zero, 0x55),
		insts.EncodeSW(t2, t0, 0x10),
		insts.EncodeLW(t3, t0, 0x10),
		insts.EncodeLUI(t4, 0x8000),
		insts.EncodeLW(t5, t4, 0x3010),
		insts.EncodeLW(t6, zero, 0),
		insts.EncodeLW(t7, t0, 0x1004),
	}, haltSequence())

	return Program{Name: "tlb-mapping", Chunks: []Chunk{
		{Addr: 0x000, Words: refill},
		{Addr: 0x1000, Words: main},
	}}
}

// Calls exercises JAL/JR, likely branches and division.
func Calls() Program {
	main := code([]uint32{
		insts.EncodeADDIU(a0, zero, 10),
		insts.EncodeJAL(0x80001030),
		insts.EncodeADDIU(a1, zero, 3),
		insts.EncodeADDU(s1, v0, zero),
		insts.EncodeBEQL(s1, zero, 1),
		insts.EncodeADDIU(s2, zero, 99),
		insts.EncodeBNEL(s1, zero, 1),
		insts.EncodeADDIU(s3, zero, 7),
	}, haltSequence(), []uint32{
		// fn at 0x80001030
		insts.EncodeDIV(a0, a1),
		insts.EncodeMFLO(v0),
		insts.EncodeMFHI(t0),
		insts.EncodeADDU(v0, v0, t0),
		insts.EncodeJR(ra),
		insts.EncodeNOP(),
	})

	return Program{Name: "calls", Chunks: []Chunk{{Addr: 0x1000, Words: main}}}
}

// Programs returns every program.
func Programs() []Program {
	return []Program{
		ArithLoop(),
		SelfModify(),
		TimerInterrupt(),
		TLBMapping(),
		Calls(),
	}
}
