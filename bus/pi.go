package bus

import "fmt"

// PI register offsets.
const (
	piDRAMAddr  = 0x00
	piCartAddr  = 0x04
	piReadLen   = 0x08
	piWriteLen  = 0x0C
	piStatus    = 0x10
	piNumRegs   = 13
	piAddrMask  = 0x00FFFFFF
	piCartMask  = 0xFFFFFFFE
	piLenMask   = 0x00FFFFFF
	piStatReset = 1 << 0
	piStatClear = 1 << 1
)

// PI is the peripheral interface. DMA transfers between RDRAM and the
// cartridge complete synchronously and raise the MI PI interrupt.
type PI struct {
	bus  *Bus
	regs [piNumRegs]uint32

	transfers uint64
	bytes     uint64
}

func newPI(b *Bus) *PI {
	return &PI{bus: b}
}

// Transfers returns the number of completed DMA transfers and bytes moved.
func (p *PI) Transfers() (count, bytes uint64) {
	return p.transfers, p.bytes
}

// Read32 implements Device. The DMA is never busy.
func (p *PI) Read32(offset uint32) uint32 {
	i := offset >> 2
	if i >= piNumRegs {
		return 0
	}
	if offset == piStatus {
		return 0
	}
	return p.regs[i]
}

// Write32 implements Device.
func (p *PI) Write32(offset uint32, value uint32) {
	i := offset >> 2
	if i >= piNumRegs {
		return
	}

	switch offset {
	case piDRAMAddr:
		p.regs[i] = value & piAddrMask &^ 7
	case piCartAddr:
		p.regs[i] = value & piCartMask
	case piReadLen:
		p.regs[i] = value & piLenMask
		p.dma(false, value&piLenMask+1)
	case piWriteLen:
		p.regs[i] = value & piLenMask
		p.dma(true, value&piLenMask+1)
	case piStatus:
		if value&(piStatReset|piStatClear) != 0 {
			p.bus.mi.Clear(MIIntrPI)
		}
	default:
		p.regs[i] = value
	}
}

// dma moves length bytes. toRDRAM copies cartridge to RDRAM; otherwise
// RDRAM is copied to the cartridge address space.
func (p *PI) dma(toRDRAM bool, length uint32) {
	dram := p.regs[piDRAMAddr>>2]
	cart := p.regs[piCartAddr>>2]
	b := p.bus

	buf := make([]byte, length)
	var src, dst uint32
	if toRDRAM {
		src, dst = cart, dram
	} else {
		src, dst = dram, cart
	}

	for i := range buf {
		buf[i] = b.Read8(src + uint32(i))
	}
	if toRDRAM {
		if uint64(dst) < uint64(len(b.rdram)) {
			n := min(length, uint32(len(b.rdram))-dst)
			b.noteRange(dst, n)
			copy(b.rdram[dst:dst+n], buf)
		}
	} else {
		for i, v := range buf {
			b.Write8(dst+uint32(i), v)
		}
	}

	p.regs[piDRAMAddr>>2] = dram + length
	p.regs[piCartAddr>>2] = cart + length
	p.transfers++
	p.bytes += uint64(length)

	if b.log.V(2).Enabled() {
		b.log.V(2).Info("pi dma", "toRDRAM", toRDRAM,
			"dram", fmt.Sprintf("%#x", dram), "cart", fmt.Sprintf("%#x", cart), "len", length)
	}

	b.mi.Raise(MIIntrPI)
}
