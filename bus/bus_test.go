package bus_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/sarchlab/n64core/bus"
)

type recorder struct {
	writes map[uint32]uint32
}

func (r *recorder) Read32(offset uint32) uint32 {
	return r.writes[offset]
}

func (r *recorder) Write32(offset uint32, value uint32) {
	r.writes[offset] = value
}

var _ = Describe("Bus", func() {
	var b *bus.Bus

	BeforeEach(func() {
		b = bus.New(bus.WithRDRAMSize(bus.RDRAMSize4M))
	})

	It("should store RDRAM big-endian", func() {
		b.Write32(0x100, 0x11223344)

		Expect(b.Read8(0x100)).To(Equal(uint8(0x11)))
		Expect(b.Read16(0x102)).To(Equal(uint16(0x3344)))
		Expect(b.RDRAM()[0x103]).To(Equal(byte(0x44)))

		b.Write64(0x200, 0x0102030405060708)
		Expect(b.Read32(0x204)).To(Equal(uint32(0x05060708)))
	})

	It("should read unmapped addresses as zero and drop writes", func() {
		b.Write32(0x00500000, 0xFFFFFFFF)

		Expect(b.Read32(0x00500000)).To(BeZero())
		Expect(b.Read64(0x05000000)).To(BeZero())
	})

	It("should expose the RSP memories", func() {
		b.Write32(bus.SPIMEMBase+0x10, 0xCAFEBABE)

		Expect(b.Read32(bus.SPIMEMBase + 0x10)).To(Equal(uint32(0xCAFEBABE)))
		Expect(b.SPMem()[0x1010]).To(Equal(byte(0xCA)))
	})

	It("should map the cartridge read-only", func() {
		rom := []byte{0x80, 0x37, 0x12, 0x40, 0, 0, 0, 0}
		Expect(b.LoadCartridge(rom)).To(Succeed())

		Expect(b.Read32(bus.CartBase)).To(Equal(uint32(0x80371240)))

		b.Write32(bus.CartBase, 0)
		Expect(b.Read32(bus.CartBase)).To(Equal(uint32(0x80371240)))
	})

	It("should report the RSP as halted", func() {
		Expect(b.Read32(bus.SPRegsBase+0x10) & 1).To(Equal(uint32(1)))
	})

	It("should keep plain register windows", func() {
		b.Write32(bus.VIBase+0x04, 0x00100000)
		Expect(b.Read32(bus.VIBase + 0x04)).To(Equal(uint32(0x00100000)))

		b.Write8(bus.VIBase+0x07, 0x40)
		Expect(b.Read32(bus.VIBase + 0x04)).To(Equal(uint32(0x00100040)))
	})

	It("should prefer later mappings", func() {
		dev := &recorder{writes: map[uint32]uint32{}}
		b.Map(0x05000000, 0x1000, dev)

		b.Write32(0x05000008, 7)
		Expect(dev.writes).To(HaveKeyWithValue(uint32(8), uint32(7)))
		Expect(b.Read32(0x05000008)).To(Equal(uint32(7)))

		Expect(b.Unmap(0x05000000)).To(Succeed())
		Expect(b.Read32(0x05000008)).To(BeZero())
		Expect(b.Unmap(0x05000000)).NotTo(Succeed())
	})

	It("should reject block transfers outside memory", func() {
		err := b.WriteBlock(0x00500000, []byte{1, 2, 3})
		Expect(errors.Cause(err)).To(Equal(bus.ErrOutOfRange))

		Expect(b.WriteBlock(0x1000, []byte{1, 2, 3, 4})).To(Succeed())
		buf := make([]byte, 4)
		Expect(b.ReadBlock(0x1000, buf)).To(Succeed())
		Expect(buf).To(Equal([]byte{1, 2, 3, 4}))
	})

	Describe("code-page tracking", func() {
		type note struct{ addr, size uint32 }
		var notes []note

		BeforeEach(func() {
			notes = nil
			b.OnCodeWrite(func(addr, size uint32) {
				notes = append(notes, note{addr, size})
			})
		})

		It("should notify once per tracked page", func() {
			b.TrackCode(0x1234)
			Expect(b.Tracked(0x1000)).To(BeTrue())

			b.Write32(0x2000, 1)
			Expect(notes).To(BeEmpty())

			b.Write16(0x1FFE, 1)
			Expect(notes).To(Equal([]note{{0x1FFE, 2}}))
			Expect(b.Tracked(0x1000)).To(BeFalse())

			b.Write8(0x1000, 1)
			Expect(notes).To(HaveLen(1))
		})

		It("should call hooks before the write lands", func() {
			b.Write32(0x3000, 0xAAAAAAAA)
			b.TrackCode(0x3000)
			var seen uint32
			b.OnCodeWrite(func(addr, _ uint32) { seen = b.Read32(addr) })

			b.Write32(0x3000, 0xBBBBBBBB)

			Expect(seen).To(Equal(uint32(0xAAAAAAAA)))
		})

		It("should split block writes by page", func() {
			b.TrackCode(0x4000)
			b.TrackCode(0x5000)

			Expect(b.WriteBlock(0x4FF0, make([]byte, 0x20))).To(Succeed())

			Expect(notes).To(Equal([]note{{0x4FF0, 0x10}, {0x5000, 0x10}}))
			Expect(b.TrackedPages()).To(BeZero())
		})
	})

	Describe("MI", func() {
		var line bool

		BeforeEach(func() {
			line = false
			b.MI().OnInterrupt(func(asserted bool) { line = asserted })
		})

		It("should report its version", func() {
			Expect(b.Read32(bus.MIBase + 0x04)).To(Equal(uint32(0x02020102)))
		})

		It("should assert the line only for unmasked sources", func() {
			b.MI().Raise(bus.MIIntrVI)
			Expect(line).To(BeFalse())

			b.Write32(bus.MIBase+0x0C, 1<<7)
			Expect(b.MI().Mask()).To(Equal(bus.MIIntrVI))
			Expect(line).To(BeTrue())

			b.Write32(bus.MIBase+0x0C, 1<<6)
			Expect(line).To(BeFalse())
		})

		It("should clear the DP interrupt through the mode register", func() {
			b.Write32(bus.MIBase+0x0C, 1<<11)
			b.MI().Raise(bus.MIIntrDP)
			Expect(line).To(BeTrue())

			b.Write32(bus.MIBase, 1<<11)
			Expect(b.MI().Pending()).To(BeZero())
			Expect(line).To(BeFalse())
		})
	})

	Describe("PI DMA", func() {
		var rom []byte

		BeforeEach(func() {
			rom = make([]byte, 0x2000)
			for i := range rom {
				rom[i] = byte(i)
			}
			Expect(b.LoadCartridge(rom)).To(Succeed())
		})

		It("should copy cartridge data into RDRAM and raise PI", func() {
			b.Write32(bus.PIBase+0x00, 0x8000)
			b.Write32(bus.PIBase+0x04, bus.CartBase+0x100)
			b.Write32(bus.PIBase+0x0C, 0x0F)

			Expect(b.RDRAM()[0x8000:0x8010]).To(Equal(rom[0x100:0x110]))
			Expect(b.MI().Pending() & bus.MIIntrPI).NotTo(BeZero())
			count, n := b.PI().Transfers()
			Expect(count).To(Equal(uint64(1)))
			Expect(n).To(Equal(uint64(16)))

			b.Write32(bus.PIBase+0x10, 2)
			Expect(b.MI().Pending() & bus.MIIntrPI).To(BeZero())
		})

		It("should invalidate tracked pages it overwrites", func() {
			var hit []uint32
			b.OnCodeWrite(func(addr, _ uint32) { hit = append(hit, addr) })
			b.TrackCode(0x8000)

			b.Write32(bus.PIBase+0x00, 0x8000)
			b.Write32(bus.PIBase+0x04, bus.CartBase)
			b.Write32(bus.PIBase+0x0C, 0x7)

			Expect(hit).To(Equal([]uint32{0x8000}))
		})
	})
})
