package dynarec_test

import (
	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/n64core/bus"
	"github.com/sarchlab/n64core/dynarec"
	"github.com/sarchlab/n64core/emu"
	"github.com/sarchlab/n64core/emutest"
	"github.com/sarchlab/n64core/insts"
)

const budget = 1_000_000

const (
	zero = insts.RegZero
	v0   = insts.RegV0
	v1   = insts.RegV1
	a0   = insts.RegA0
	a1   = insts.RegA1
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
	s4   = insts.RegS4
	s5   = insts.RegS5
	s6   = insts.RegS6
	s7   = insts.RegS7
	t9   = insts.RegT9
)

// registerKernel exercises every instruction with a native form on values
// that stress sign extension, then halts.
func registerKernel() emutest.Program {
	words := []uint32{
		insts.EncodeLUI(t0, 0x8000),
		insts.EncodeORI(t0, t0, 0x1234),
		insts.EncodeADDIU(t1, zero, -7),
		insts.EncodeDSLL32(t2, t1, 0),
		insts.EncodeDADDIU(t2, t2, 0x7FFF),
		insts.EncodeADDIU(t3, zero, 35),
		insts.EncodeADDU(s0, t0, t1),
		insts.EncodeSUBU(s1, t1, t0),
		insts.EncodeAND(s2, t0, t2),
		insts.EncodeOR(s3, t1, t2),
		insts.EncodeXOR(s4, t0, t2),
		insts.EncodeNOR(s5, t0, t1),
		insts.EncodeSLT(s6, t0, t1),
		insts.EncodeSLTU(s7, t0, t1),
		insts.EncodeSLTI(a0, t1, -8),
		insts.EncodeI(0x0B, t1, a1, 0xFFF0), // sltiu
		insts.EncodeANDI(v0, t1, 0xF0F0),
		insts.EncodeXORI(v1, t0, 0xFFFF),
		insts.EncodeSLL(t4, t0, 4),
		insts.EncodeSRL(t5, t1, 3),
		insts.EncodeSRA(t6, t2, 9),
		insts.EncodeR(0x07, t3, t1, t7, 0), // srav
		insts.EncodeR(0x06, t3, t0, a0, 0), // srlv
		insts.EncodeSLLV(a1, t0, t3),
		insts.EncodeDADDU(s0, s0, t2),
		insts.EncodeDSUBU(s1, s1, t2),
		insts.EncodeDSLL(s2, t2, 7),
		insts.EncodeR(0x3A, 0, t2, s3, 5),  // dsrl
		insts.EncodeR(0x3B, 0, t1, s4, 5),  // dsra
		insts.EncodeR(0x3E, 0, t2, s5, 1),  // dsrl32
		insts.EncodeDSRA32(s6, t2, 2),
		insts.EncodeR(0x14, t3, t0, s7, 0), // dsllv
		insts.EncodeR(0x16, t3, t2, t4, 0), // dsrlv
		insts.EncodeR(0x17, t3, t2, t5, 0), // dsrav
		insts.EncodeR(0x11, t0, 0, 0, 0),   // mthi
		insts.EncodeR(0x13, t2, 0, 0, 0),   // mtlo
		insts.EncodeMFHI(t6),
		insts.EncodeMFLO(t7),
		insts.EncodeADDU(zero, t0, t1),
		insts.EncodeLUI(t9, 0xA500),
		insts.EncodeSW(zero, t9, 0),
		insts.EncodeBEQ(zero, zero, -1),
		insts.EncodeNOP(),
	}
	return emutest.Program{
		Name:   "register-kernel",
		Chunks: []emutest.Chunk{{Addr: 0x1000, Words: words}},
	}
}

func programs() []emutest.Program {
	return append(emutest.Programs(), registerKernel())
}

func setup(p emutest.Program) (*bus.Bus, *emu.CPU) {
	b, cpu, err := emutest.Setup(p)
	Expect(err).NotTo(HaveOccurred())
	return b, cpu
}

func newDynarec(cpu *emu.CPU, config dynarec.Config) *dynarec.Dynarec {
	d, err := dynarec.New(cpu, dynarec.WithConfig(config), dynarec.WithLogger(GinkgoLogr))
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(d.Close)
	return d
}

func reference(p emutest.Program) (*bus.Bus, *emu.CPU) {
	b, cpu := setup(p)
	emu.NewInterpreter(cpu).Run(budget)
	Expect(cpu.StopRequested()).To(BeTrue(), "program %s did not halt", p.Name)
	return b, cpu
}

func interpreted() dynarec.Config {
	config := dynarec.DefaultConfig()
	config.Native = false
	return config
}

var _ = Describe("Dynarec", func() {
	DescribeTable("configuration validation",
		func(config dynarec.Config, ok bool) {
			if ok {
				Expect(config.Validate()).To(Succeed())
			} else {
				Expect(config.Validate()).NotTo(Succeed())
			}
		},
		Entry("default", dynarec.DefaultConfig(), true),
		Entry("empty blocks", dynarec.Config{MaxBlockInsts: 0, ArenaSize: 1 << 20, Native: true}, false),
		Entry("blocks longer than a page", dynarec.Config{MaxBlockInsts: 2048, ArenaSize: 1 << 20}, false),
		Entry("tiny arena", dynarec.Config{MaxBlockInsts: 64, ArenaSize: 4096, Native: true}, false),
		Entry("tiny arena without native code", dynarec.Config{MaxBlockInsts: 64, ArenaSize: 4096}, true),
	)

	It("should lay out a block up to its terminator and delay slot", func() {
		_, cpu := setup(emutest.ArithLoop())
		d := newDynarec(cpu, dynarec.DefaultConfig())

		d.RunBlock()

		block, ok := d.Lookup(0x1000)
		Expect(ok).To(BeTrue())
		Expect(block.Len()).To(Equal(16))
		Expect(block.End()).To(Equal(uint32(0x1040)))
		Expect(block.Terminator()).To(Equal(insts.OpBNE))
		Expect(cpu.InstructionCount()).To(Equal(uint64(16)))
		Expect(cpu.RegFile().PC).To(Equal(emutest.Entry + 0x14))
	})

	It("should cap block length", func() {
		config := dynarec.DefaultConfig()
		config.MaxBlockInsts = 4
		_, cpu := setup(emutest.ArithLoop())
		d := newDynarec(cpu, config)

		d.Run(budget)

		block, ok := d.Lookup(0x1000)
		Expect(ok).To(BeTrue())
		Expect(block.Len()).To(Equal(4))
		Expect(block.Terminator()).To(Equal(insts.OpReserved))

		_, ref := reference(emutest.ArithLoop())
		Expect(cmp.Diff(ref.Snapshot(), cpu.Snapshot())).To(BeEmpty())
	})

	It("should reuse blocks on re-entry", func() {
		_, cpu := setup(emutest.ArithLoop())
		d := newDynarec(cpu, dynarec.DefaultConfig())

		d.Run(budget)

		stats := d.Stats()
		Expect(stats.BlocksBuilt).To(BeNumerically("<=", 4))
		Expect(stats.Hits).To(BeNumerically(">=", 98))
		Expect(stats.Lookups).To(Equal(stats.Hits + stats.BlocksBuilt))
		Expect(stats.NativeInsts + stats.HandlerCalls).To(Equal(cpu.InstructionCount()))
	})

	It("should run register-only runs as native code", func() {
		if !dynarec.NativeAvailable() {
			Skip("no native code generation on this host")
		}
		_, cpu := setup(emutest.ArithLoop())
		d := newDynarec(cpu, dynarec.DefaultConfig())
		Expect(d.Native()).To(BeTrue())

		d.Run(budget)

		Expect(d.Stats().NativeSegments).To(BeNumerically(">", 0))
		Expect(d.Stats().NativeInsts).To(BeNumerically(">", 500))
	})

	It("should not generate native code when disabled", func() {
		_, cpu := setup(emutest.ArithLoop())
		d := newDynarec(cpu, interpreted())
		Expect(d.Native()).To(BeFalse())

		d.Run(budget)

		Expect(d.Stats().NativeInsts).To(BeZero())
		Expect(d.Stats().HandlerCalls).To(Equal(cpu.InstructionCount()))
	})

	It("should rebuild blocks after the program rewrites them", func() {
		_, cpu := setup(emutest.SelfModify())
		d := newDynarec(cpu, dynarec.DefaultConfig())

		d.Run(budget)

		Expect(cpu.RegFile().ReadReg(insts.RegV1)).To(Equal(uint64(17)))
		Expect(d.Stats().BlocksInvalidated).To(BeNumerically(">", 0))
	})

	It("should drop blocks when code is loaded by DMA", func() {
		b, cpu := setup(emutest.ArithLoop())
		d := newDynarec(cpu, dynarec.DefaultConfig())

		d.Step()
		d.RunBlock()
		_, ok := d.Lookup(0x1004)
		Expect(ok).To(BeTrue())

		cpu.RegFile().SetPC(emutest.Entry + 4)
		Expect(b.WriteBlock(0x1008, []byte{0x24, 0x10, 0x00, 0x2A})).To(Succeed())
		_, ok = d.Lookup(0x1004)
		Expect(ok).To(BeFalse())

		d.Step()
		d.Step()
		Expect(cpu.RegFile().ReadReg(s0)).To(Equal(uint64(42)))
	})

	It("should drop everything on Flush", func() {
		_, cpu := setup(emutest.ArithLoop())
		d := newDynarec(cpu, dynarec.DefaultConfig())

		d.RunBlock()
		Expect(d.BlockCount()).To(Equal(1))

		d.Flush()
		Expect(d.BlockCount()).To(BeZero())
	})

	It("should honour a stop request", func() {
		_, cpu := setup(emutest.ArithLoop())
		d := newDynarec(cpu, dynarec.DefaultConfig())

		d.Stop()
		Expect(d.Run(budget)).To(BeZero())
		Expect(cpu.InstructionCount()).To(BeZero())
	})

	DescribeTable("stops at the same instruction as the interpreter for a budget",
		func(cycles uint64) {
			_, ref := setup(emutest.TimerInterrupt())
			refUsed := emu.NewInterpreter(ref).Run(cycles)

			_, cpu := setup(emutest.TimerInterrupt())
			used := newDynarec(cpu, dynarec.DefaultConfig()).Run(cycles)

			Expect(used).To(Equal(refUsed))
			Expect(cmp.Diff(ref.Snapshot(), cpu.Snapshot())).To(BeEmpty())
		},
		Entry("one cycle", uint64(1)),
		Entry("seven cycles", uint64(7)),
		Entry("mid-spin", uint64(50)),
		Entry("just before the interrupt", uint64(199)),
		Entry("after the interrupt", uint64(333)),
	)

	for _, native := range []bool{true, false} {
		config := dynarec.DefaultConfig()
		config.Native = native

		DescribeTable("matches the interpreter",
			func(p emutest.Program) {
				refBus, ref := reference(p)

				b, cpu := setup(p)
				newDynarec(cpu, config).Run(budget)

				Expect(cpu.StopRequested()).To(BeTrue())
				Expect(cmp.Diff(ref.Snapshot(), cpu.Snapshot())).To(BeEmpty())
				Expect(cpu.Cycles()).To(Equal(ref.Cycles()))
				Expect(b.RDRAM()[:0x8000]).To(Equal(refBus.RDRAM()[:0x8000]))
			},
			programEntries(native),
		)
	}
})

func programEntries(native bool) []TableEntry {
	mode := "handlers only"
	if native {
		mode = "native"
	}

	var entries []TableEntry
	for _, p := range programs() {
		entries = append(entries, Entry(p.Name+" "+mode, p))
	}
	return entries
}
