package bus

import "github.com/pkg/errors"

// Device is a memory-mapped register block. Offsets are relative to the
// window base and word aligned; narrower accesses are merged by the bus.
type Device interface {
	Read32(offset uint32) uint32
	Write32(offset uint32, value uint32)
}

type window struct {
	start uint32
	size  uint32
	dev   Device
}

// Map places dev at the physical window [start, start+size). Later
// mappings take precedence over earlier ones.
func (b *Bus) Map(start, size uint32, dev Device) {
	b.windows = append([]window{{start: start, size: size, dev: dev}}, b.windows...)
}

// Unmap removes every window whose base is start.
func (b *Bus) Unmap(start uint32) error {
	kept := b.windows[:0]
	found := false
	for _, w := range b.windows {
		if w.start == start {
			found = true
			continue
		}
		kept = append(kept, w)
	}
	b.windows = kept
	if !found {
		return errors.Errorf("no device mapped at %#08x", start)
	}
	return nil
}

func (b *Bus) window(addr uint32) (window, uint32, bool) {
	for _, w := range b.windows {
		if addr-w.start < w.size {
			return w, addr - w.start, true
		}
	}
	return window{}, 0, false
}

// Registers is a bank of plain 32-bit storage registers. Accesses past the
// last register read as zero and are discarded on write.
type Registers struct {
	regs []uint32
}

// NewRegisters creates a bank of n registers.
func NewRegisters(n int) *Registers {
	return &Registers{regs: make([]uint32, n)}
}

// Read32 reads the register at offset.
func (r *Registers) Read32(offset uint32) uint32 {
	i := offset >> 2
	if int(i) >= len(r.regs) {
		return 0
	}
	return r.regs[i]
}

// Write32 writes the register at offset.
func (r *Registers) Write32(offset uint32, value uint32) {
	i := offset >> 2
	if int(i) < len(r.regs) {
		r.regs[i] = value
	}
}

const (
	spStatusOffset = 0x10
	spStatusHalt   = 1 << 0
)

// spRegisters reports the RSP as permanently halted.
type spRegisters struct {
	Registers
}

func newSPRegisters() *spRegisters {
	return &spRegisters{Registers: Registers{regs: make([]uint32, 8)}}
}

func (s *spRegisters) Read32(offset uint32) uint32 {
	if offset == spStatusOffset {
		return s.Registers.Read32(offset) | spStatusHalt
	}
	return s.Registers.Read32(offset)
}

func (s *spRegisters) Write32(offset uint32, value uint32) {
	if offset == spStatusOffset {
		return
	}
	s.Registers.Write32(offset, value)
}
