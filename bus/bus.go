// Package bus implements the N64 physical address space seen by the CPU:
// RDRAM, the RSP memories, the cartridge, the PIF and the RCP register
// windows, together with the code-page tracking the backends rely on.
package bus

import (
	"encoding/binary"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
)

// Physical memory map.
const (
	RDRAMBase     uint32 = 0x00000000
	RDRAMRegsBase uint32 = 0x03F00000
	SPMemBase     uint32 = 0x04000000
	SPDMEMBase    uint32 = 0x04000000
	SPIMEMBase    uint32 = 0x04001000
	SPRegsBase    uint32 = 0x04040000
	DPBase        uint32 = 0x04100000
	MIBase        uint32 = 0x04300000
	VIBase        uint32 = 0x04400000
	AIBase        uint32 = 0x04500000
	PIBase        uint32 = 0x04600000
	RIBase        uint32 = 0x04700000
	SIBase        uint32 = 0x04800000
	CartBase      uint32 = 0x10000000
	CartEnd       uint32 = 0x1FC00000
	PIFROMBase    uint32 = 0x1FC00000
	PIFRAMBase    uint32 = 0x1FC007C0

	SPMemSize  = 0x2000
	PIFROMSize = 0x7C0
	PIFRAMSize = 0x40

	windowSize = 0x100000
)

// RDRAM sizes.
const (
	RDRAMSize4M = 4 << 20
	RDRAMSize8M = 8 << 20
)

// ErrOutOfRange is returned by block transfers that leave backed memory.
var ErrOutOfRange = errors.New("physical range not backed by memory")

type span struct {
	start    uint32
	mem      []byte
	readOnly bool
}

func (s *span) contains(addr, size uint32) bool {
	return addr >= s.start && uint64(addr-s.start)+uint64(size) <= uint64(len(s.mem))
}

// Bus is the physical memory port. It is not safe for concurrent use; one
// machine session drives it from a single goroutine.
type Bus struct {
	rdram  []byte
	spMem  []byte
	cart   []byte
	pifROM []byte
	pifRAM []byte

	spans   []*span
	windows []window

	mi *MI
	pi *PI

	codePages codePages
	hooks     []func(addr, size uint32)

	log logr.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithRDRAMSize sets the RDRAM size in bytes.
func WithRDRAMSize(size int) Option {
	return func(b *Bus) {
		b.rdram = make([]byte, size)
	}
}

// WithLogger sets the logger used for DMA and unmapped-access reports.
func WithLogger(log logr.Logger) Option {
	return func(b *Bus) {
		b.log = log
	}
}

// New creates a bus with the standard devices mapped.
func New(opts ...Option) *Bus {
	b := &Bus{
		spMem:  make([]byte, SPMemSize),
		pifROM: make([]byte, PIFROMSize),
		pifRAM: make([]byte, PIFRAMSize),
		log:    logr.Discard(),
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.rdram == nil {
		b.rdram = make([]byte, RDRAMSize8M)
	}
	b.codePages = newCodePages()

	b.mi = newMI()
	b.pi = newPI(b)

	b.spans = []*span{
		{start: SPMemBase, mem: b.spMem},
		{start: PIFROMBase, mem: b.pifROM, readOnly: true},
		{start: PIFRAMBase, mem: b.pifRAM},
	}

	b.Map(RDRAMRegsBase, windowSize, NewRegisters(10))
	b.Map(SPRegsBase, windowSize, newSPRegisters())
	b.Map(DPBase, windowSize, NewRegisters(8))
	b.Map(MIBase, windowSize, b.mi)
	b.Map(VIBase, windowSize, NewRegisters(14))
	b.Map(AIBase, windowSize, NewRegisters(6))
	b.Map(PIBase, windowSize, b.pi)
	b.Map(RIBase, windowSize, NewRegisters(8))
	b.Map(SIBase, windowSize, NewRegisters(7))

	return b
}

// RDRAM exposes main memory.
func (b *Bus) RDRAM() []byte {
	return b.rdram
}

// SPMem exposes the RSP data and instruction memories.
func (b *Bus) SPMem() []byte {
	return b.spMem
}

// Cartridge returns the loaded cartridge image in big-endian order.
func (b *Bus) Cartridge() []byte {
	return b.cart
}

// MI returns the MIPS interface.
func (b *Bus) MI() *MI {
	return b.mi
}

// PI returns the peripheral interface.
func (b *Bus) PI() *PI {
	return b.pi
}

// LoadCartridge installs a big-endian cartridge image.
func (b *Bus) LoadCartridge(rom []byte) error {
	if len(rom) > int(CartEnd-CartBase) {
		return errors.Errorf("cartridge image too large: %d bytes", len(rom))
	}
	b.cart = rom
	b.removeSpan(CartBase)
	b.spans = append(b.spans, &span{start: CartBase, mem: rom, readOnly: true})
	return nil
}

// LoadPIFROM installs the PIF boot ROM.
func (b *Bus) LoadPIFROM(rom []byte) error {
	if len(rom) > PIFROMSize {
		return errors.Errorf("pif rom too large: %d bytes", len(rom))
	}
	copy(b.pifROM, rom)
	return nil
}

func (b *Bus) removeSpan(start uint32) {
	kept := b.spans[:0]
	for _, s := range b.spans {
		if s.start != start {
			kept = append(kept, s)
		}
	}
	b.spans = kept
}

// memory returns the backing slice for [addr, addr+size), or nil.
func (b *Bus) memory(addr, size uint32, write bool) []byte {
	if uint64(addr)+uint64(size) <= uint64(len(b.rdram)) {
		return b.rdram[addr : addr+size]
	}
	for _, s := range b.spans {
		if s.contains(addr, size) {
			if write && s.readOnly {
				return nil
			}
			off := addr - s.start
			return s.mem[off : off+size]
		}
	}
	return nil
}

// Read8 reads a byte.
func (b *Bus) Read8(addr uint32) uint8 {
	if m := b.memory(addr, 1, false); m != nil {
		return m[0]
	}
	if w, off, ok := b.window(addr); ok {
		return uint8(w.dev.Read32(off&^3) >> (24 - 8*(off&3)))
	}
	b.unmapped("read8", addr)
	return 0
}

// Read16 reads a halfword.
func (b *Bus) Read16(addr uint32) uint16 {
	if m := b.memory(addr, 2, false); m != nil {
		return binary.BigEndian.Uint16(m)
	}
	if w, off, ok := b.window(addr); ok {
		return uint16(w.dev.Read32(off&^3) >> (16 - 8*(off&2)))
	}
	b.unmapped("read16", addr)
	return 0
}

// Read32 reads a word.
func (b *Bus) Read32(addr uint32) uint32 {
	if uint64(addr)+4 <= uint64(len(b.rdram)) {
		return binary.BigEndian.Uint32(b.rdram[addr:])
	}
	if m := b.memory(addr, 4, false); m != nil {
		return binary.BigEndian.Uint32(m)
	}
	if w, off, ok := b.window(addr); ok {
		return w.dev.Read32(off)
	}
	b.unmapped("read32", addr)
	return 0
}

// Read64 reads a doubleword.
func (b *Bus) Read64(addr uint32) uint64 {
	if m := b.memory(addr, 8, false); m != nil {
		return binary.BigEndian.Uint64(m)
	}
	if w, off, ok := b.window(addr); ok {
		return uint64(w.dev.Read32(off))<<32 | uint64(w.dev.Read32(off+4))
	}
	b.unmapped("read64", addr)
	return 0
}

// Write8 writes a byte.
func (b *Bus) Write8(addr uint32, v uint8) {
	b.noteWrite(addr, 1)
	if m := b.memory(addr, 1, true); m != nil {
		m[0] = v
		return
	}
	if w, off, ok := b.window(addr); ok {
		shift := 24 - 8*(off&3)
		old := w.dev.Read32(off &^ 3)
		w.dev.Write32(off&^3, old&^(0xFF<<shift)|uint32(v)<<shift)
		return
	}
	b.unmapped("write8", addr)
}

// Write16 writes a halfword.
func (b *Bus) Write16(addr uint32, v uint16) {
	b.noteWrite(addr, 2)
	if m := b.memory(addr, 2, true); m != nil {
		binary.BigEndian.PutUint16(m, v)
		return
	}
	if w, off, ok := b.window(addr); ok {
		shift := 16 - 8*(off&2)
		old := w.dev.Read32(off &^ 3)
		w.dev.Write32(off&^3, old&^(0xFFFF<<shift)|uint32(v)<<shift)
		return
	}
	b.unmapped("write16", addr)
}

// Write32 writes a word.
func (b *Bus) Write32(addr uint32, v uint32) {
	b.noteWrite(addr, 4)
	if m := b.memory(addr, 4, true); m != nil {
		binary.BigEndian.PutUint32(m, v)
		return
	}
	if w, off, ok := b.window(addr); ok {
		w.dev.Write32(off, v)
		return
	}
	b.unmapped("write32", addr)
}

// Write64 writes a doubleword.
func (b *Bus) Write64(addr uint32, v uint64) {
	b.noteWrite(addr, 8)
	if m := b.memory(addr, 8, true); m != nil {
		binary.BigEndian.PutUint64(m, v)
		return
	}
	if w, off, ok := b.window(addr); ok {
		w.dev.Write32(off, uint32(v>>32))
		w.dev.Write32(off+4, uint32(v))
		return
	}
	b.unmapped("write64", addr)
}

// ReadBlock copies len(dst) bytes starting at addr out of backed memory.
func (b *Bus) ReadBlock(addr uint32, dst []byte) error {
	m := b.memory(addr, uint32(len(dst)), false)
	if m == nil {
		return errors.Wrapf(ErrOutOfRange, "read %#x+%#x", addr, len(dst))
	}
	copy(dst, m)
	return nil
}

// WriteBlock copies src into backed memory at addr, notifying code-page
// hooks for every tracked page it touches.
func (b *Bus) WriteBlock(addr uint32, src []byte) error {
	m := b.memory(addr, uint32(len(src)), true)
	if m == nil {
		return errors.Wrapf(ErrOutOfRange, "write %#x+%#x", addr, len(src))
	}
	b.noteRange(addr, uint32(len(src)))
	copy(m, src)
	return nil
}

func (b *Bus) unmapped(kind string, addr uint32) {
	if b.log.V(3).Enabled() {
		b.log.V(3).Info("unmapped access", "kind", kind, "addr", fmt.Sprintf("%#08x", addr))
	}
}
