package emu_test

import (
	"encoding/binary"

	"github.com/sarchlab/n64core/emu"
)

const (
	codeBase  = 0x1000
	dataBase  = 0x2000
	entry     = 0xFFFFFFFF80000000 + codeBase
	dataVAddr = 0xFFFFFFFF80000000 + dataBase

	vectorGeneral = 0xFFFFFFFF80000180
	vectorRefill  = 0xFFFFFFFF80000000
	vectorXRefill = 0xFFFFFFFF80000080
)

// flatBus is a 1 MiB big-endian RAM with code-page tracking.
type flatBus struct {
	mem     []byte
	tracked map[uint32]bool
	hooks   []func(addr, size uint32)
}

func newFlatBus() *flatBus {
	return &flatBus{
		mem:     make([]byte, 1<<20),
		tracked: make(map[uint32]bool),
	}
}

func (b *flatBus) in(addr, size uint32) bool {
	return uint64(addr)+uint64(size) <= uint64(len(b.mem))
}

func (b *flatBus) Read8(addr uint32) uint8 {
	if !b.in(addr, 1) {
		return 0
	}
	return b.mem[addr]
}

func (b *flatBus) Read16(addr uint32) uint16 {
	if !b.in(addr, 2) {
		return 0
	}
	return binary.BigEndian.Uint16(b.mem[addr:])
}

func (b *flatBus) Read32(addr uint32) uint32 {
	if !b.in(addr, 4) {
		return 0
	}
	return binary.BigEndian.Uint32(b.mem[addr:])
}

func (b *flatBus) Read64(addr uint32) uint64 {
	if !b.in(addr, 8) {
		return 0
	}
	return binary.BigEndian.Uint64(b.mem[addr:])
}

func (b *flatBus) notify(addr, size uint32) {
	if !b.tracked[addr>>12] {
		return
	}
	for _, h := range b.hooks {
		h(addr, size)
	}
}

func (b *flatBus) Write8(addr uint32, v uint8) {
	if b.in(addr, 1) {
		b.notify(addr, 1)
		b.mem[addr] = v
	}
}

func (b *flatBus) Write16(addr uint32, v uint16) {
	if b.in(addr, 2) {
		b.notify(addr, 2)
		binary.BigEndian.PutUint16(b.mem[addr:], v)
	}
}

func (b *flatBus) Write32(addr uint32, v uint32) {
	if b.in(addr, 4) {
		b.notify(addr, 4)
		binary.BigEndian.PutUint32(b.mem[addr:], v)
	}
}

func (b *flatBus) Write64(addr uint32, v uint64) {
	if b.in(addr, 8) {
		b.notify(addr, 8)
		binary.BigEndian.PutUint64(b.mem[addr:], v)
	}
}

func (b *flatBus) TrackCode(addr uint32) {
	b.tracked[addr>>12] = true
}

func (b *flatBus) OnCodeWrite(hook func(addr, size uint32)) {
	b.hooks = append(b.hooks, hook)
}

func (b *flatBus) load(addr uint32, words ...uint32) {
	for i, w := range words {
		binary.BigEndian.PutUint32(b.mem[addr+uint32(i)*4:], w)
	}
}

// newTestCPU returns a CPU in kernel mode with 32-bit addressing, BEV and
// ERL clear, about to execute at entry.
func newTestCPU() (*emu.CPU, *flatBus, *emu.Interpreter) {
	bus := newFlatBus()
	cpu := emu.NewCPU(bus)
	cpu.COP0().Reg[emu.Cop0Status] = 0
	cpu.RegFile().SetPC(entry)
	return cpu, bus, emu.NewInterpreter(cpu)
}

func excCode(cpu *emu.CPU) emu.ExceptionKind {
	return cpu.COP0().ExcCode()
}

func sext(v int32) uint64 {
	return uint64(int64(v))
}
