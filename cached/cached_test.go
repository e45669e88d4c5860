package cached_test

import (
	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/n64core/bus"
	"github.com/sarchlab/n64core/cached"
	"github.com/sarchlab/n64core/emu"
	"github.com/sarchlab/n64core/emutest"
	"github.com/sarchlab/n64core/insts"
)

const budget = 1_000_000

func runProgram(p emutest.Program, build func(*emu.CPU) emu.Backend) (*bus.Bus, *emu.CPU, emu.Backend) {
	b, cpu, err := emutest.Setup(p)
	Expect(err).NotTo(HaveOccurred())

	backend := build(cpu)
	backend.Run(budget)
	Expect(cpu.StopRequested()).To(BeTrue(), "program %s did not halt", p.Name)

	return b, cpu, backend
}

func interpreter(cpu *emu.CPU) emu.Backend {
	return emu.NewInterpreter(cpu)
}

func cachedWith(config cached.Config) func(*emu.CPU) emu.Backend {
	return func(cpu *emu.CPU) emu.Backend {
		return cached.New(cpu, cached.WithConfig(config))
	}
}

var _ = Describe("Cached interpreter", func() {
	DescribeTable("configuration validation",
		func(config cached.Config, ok bool) {
			if ok {
				Expect(config.Validate()).To(Succeed())
			} else {
				Expect(config.Validate()).NotTo(Succeed())
			}
		},
		Entry("default", cached.DefaultConfig(), true),
		Entry("no sets", cached.Config{Sets: 0, Ways: 1, LineSize: 64}, false),
		Entry("odd line size", cached.Config{Sets: 4, Ways: 1, LineSize: 24}, false),
		Entry("line larger than a page", cached.Config{Sets: 4, Ways: 1, LineSize: 8192}, false),
		Entry("single-instruction lines", cached.Config{Sets: 4, Ways: 2, LineSize: 4}, true),
	)

	It("should decode each instruction once", func() {
		_, cpu, backend := runProgram(emutest.ArithLoop(), cachedWith(cached.DefaultConfig()))

		stats := backend.(*cached.Interpreter).Stats()
		Expect(stats.Decodes).To(BeNumerically("<", 32))
		Expect(stats.Hits).To(BeNumerically(">", 900))
		Expect(stats.Lookups).To(Equal(cpu.InstructionCount()))
		Expect(stats.Evictions).To(BeZero())
	})

	It("should see code written by the program", func() {
		_, cpu, backend := runProgram(emutest.SelfModify(), cachedWith(cached.DefaultConfig()))

		Expect(cpu.RegFile().ReadReg(insts.RegV1)).To(Equal(uint64(17)))
		Expect(backend.(*cached.Interpreter).Stats().Invalidations).To(BeNumerically(">", 0))
	})

	It("should see code loaded by DMA", func() {
		b, cpu, err := emutest.Setup(emutest.ArithLoop())
		Expect(err).NotTo(HaveOccurred())
		backend := cached.New(cpu)

		backend.Step()
		Expect(b.Tracked(0x1000)).To(BeTrue())

		Expect(b.WriteBlock(0x1004, []byte{0x24, 0x10, 0x00, 0x2A})).To(Succeed())
		backend.Step()

		Expect(cpu.RegFile().ReadReg(insts.RegS0)).To(Equal(uint64(42)))
	})

	It("should evict lines in a tiny cache and keep running correctly", func() {
		tiny := cached.Config{Sets: 1, Ways: 1, LineSize: 16}
		_, cpu, backend := runProgram(emutest.Calls(), cachedWith(tiny))
		_, ref, _ := runProgram(emutest.Calls(), interpreter)

		Expect(backend.(*cached.Interpreter).Stats().Evictions).To(BeNumerically(">", 0))
		Expect(cmp.Diff(ref.Snapshot(), cpu.Snapshot())).To(BeEmpty())
	})

	It("should drop everything on Flush", func() {
		_, _, backend := runProgram(emutest.ArithLoop(), cachedWith(cached.DefaultConfig()))
		c := backend.(*cached.Interpreter)
		decodes := c.Stats().Decodes

		c.Flush()
		c.CPU().ClearStop()
		c.CPU().RegFile().SetPC(emutest.Entry)
		c.Step()

		Expect(c.Stats().Decodes).To(Equal(decodes + 1))
	})

	DescribeTable("matches the interpreter",
		func(p emutest.Program) {
			refBus, ref, _ := runProgram(p, interpreter)
			b, cpu, _ := runProgram(p, cachedWith(cached.DefaultConfig()))

			Expect(cmp.Diff(ref.Snapshot(), cpu.Snapshot())).To(BeEmpty())
			Expect(b.RDRAM()[:0x8000]).To(Equal(refBus.RDRAM()[:0x8000]))
		},
		Entry("arith loop", emutest.ArithLoop()),
		Entry("self-modifying code", emutest.SelfModify()),
		Entry("timer interrupt", emutest.TimerInterrupt()),
		Entry("tlb mapping", emutest.TLBMapping()),
		Entry("calls", emutest.Calls()),
	)
})
