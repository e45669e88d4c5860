package machine_test

import (
	"context"
	"encoding/binary"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/sarchlab/n64core/bus"
	"github.com/sarchlab/n64core/config"
	"github.com/sarchlab/n64core/emu"
	"github.com/sarchlab/n64core/emutest"
	"github.com/sarchlab/n64core/insts"
	"github.com/sarchlab/n64core/loader"
	"github.com/sarchlab/n64core/machine"
)

func words(ws ...uint32) []byte {
	out := make([]byte, 4*len(ws))
	for i, w := range ws {
		binary.BigEndian.PutUint32(out[4*i:], w)
	}
	return out
}

// answer sets v0 to 42 and writes the halt device.
var answer = words(
	insts.EncodeADDIU(insts.RegV0, insts.RegZero, 42),
	insts.EncodeLUI(insts.RegT9, 0xA500),
	insts.EncodeSW(insts.RegZero, insts.RegT9, 0),
	insts.EncodeBEQ(insts.RegZero, insts.RegZero, -1),
	insts.EncodeNOP(),
)

var spin = words(
	insts.EncodeBEQ(insts.RegZero, insts.RegZero, -1),
	insts.EncodeNOP(),
)

func program(code []byte) *loader.Program {
	return &loader.Program{
		EntryPoint: emutest.Entry,
		Segments: []loader.Segment{{
			VirtAddr: emutest.Entry,
			PhysAddr: 0x1000,
			Data:     code,
			MemSize:  uint64(len(code)) + 64,
			Flags:    loader.SegmentFlagRead | loader.SegmentFlagExecute,
		}},
	}
}

func cartridge(code []byte) *loader.ROM {
	data := make([]byte, 0x2000)
	binary.BigEndian.PutUint32(data, 0x80371240)
	copy(data[0x20:], "MACHINE TEST")
	copy(data[loader.HeaderSize:], code)

	rom, err := loader.ParseROM(data)
	Expect(err).NotTo(HaveOccurred())
	return rom
}

func newMachine(backend string) *machine.Machine {
	cfg := config.Default()
	cfg.Backend = backend
	cfg.RDRAMSize = bus.RDRAMSize4M
	cfg.FrameCycles = 1000

	m, err := machine.New(cfg, machine.WithLogger(GinkgoLogr))
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(m.Close)

	m.Bus().Map(emutest.HaltAddr, 0x1000, &emutest.Halt{CPU: m.CPU()})
	return m
}

func backendEntries() []TableEntry {
	var entries []TableEntry
	for _, name := range config.Backends {
		entries = append(entries, Entry(name, name))
	}
	return entries
}

var _ = Describe("Machine", func() {
	It("should reject invalid configurations", func() {
		cfg := config.Default()
		cfg.Backend = "tracer"

		_, err := machine.New(cfg)

		Expect(err).To(MatchError(ContainSubstring("invalid configuration")))
	})

	It("should give each session its own id", func() {
		a := newMachine(config.BackendInterpreter)
		b := newMachine(config.BackendInterpreter)

		Expect(a.Session()).NotTo(BeEmpty())
		Expect(a.Session()).NotTo(Equal(b.Session()))
	})

	DescribeTable("should create the configured backend",
		func(name string) {
			m := newMachine(name)
			Expect(m.Backend().Name()).To(Equal(name))
		},
		backendEntries(),
	)

	DescribeTable("should run an executable until it halts",
		func(name string) {
			m := newMachine(name)
			Expect(m.LoadELF(program(answer))).To(Succeed())

			_, err := m.Run(context.Background(), 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(m.CPU().RegFile().ReadReg(insts.RegV0)).To(Equal(uint64(42)))
			Expect(m.Snapshot().Instret).To(Equal(uint64(3)))
		},
		backendEntries(),
	)

	It("should clear BSS and set up the stack", func() {
		m := newMachine(config.BackendInterpreter)
		Expect(m.Bus().WriteBlock(0x1000+uint32(len(answer)), []byte{0xFF, 0xFF})).To(Succeed())

		Expect(m.LoadELF(program(answer))).To(Succeed())

		Expect(m.Bus().Read16(0x1000 + uint32(len(answer)))).To(BeZero())
		Expect(m.CPU().RegFile().ReadReg(insts.RegSP)).To(Equal(uint64(0xFFFFFFFF803FFFF0)))
		Expect(m.CPU().RegFile().PC).To(Equal(emutest.Entry))
	})

	DescribeTable("should boot a cartridge from SP DMEM",
		func(name string) {
			m := newMachine(name)
			rom := cartridge(answer)

			Expect(m.LoadROM(rom)).To(Succeed())

			rf := m.CPU().RegFile()
			Expect(rf.PC).To(Equal(machine.BootPC))
			Expect(rf.ReadReg(insts.RegSP)).To(Equal(machine.BootSP))
			Expect(m.CPU().COP0().Status()).To(Equal(machine.BootStatus))
			Expect(m.Bus().SPMem()[:loader.BootCodeSize]).To(Equal(rom.BootCode()))
			Expect(m.ROM().Header.Title()).To(Equal("MACHINE TEST"))

			_, err := m.Run(context.Background(), 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(rf.ReadReg(insts.RegV0)).To(Equal(uint64(42)))
		},
		backendEntries(),
	)

	DescribeTable("should stop after the cycle budget",
		func(name string) {
			m := newMachine(name)
			Expect(m.LoadELF(program(spin))).To(Succeed())

			used, err := m.Run(context.Background(), 5000)

			Expect(err).NotTo(HaveOccurred())
			Expect(used).To(BeNumerically(">=", 5000))
			Expect(used).To(BeNumerically("<", 5010))
		},
		backendEntries(),
	)

	It("should honour context cancellation", func() {
		m := newMachine(config.BackendDynarec)
		Expect(m.LoadELF(program(spin))).To(Succeed())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		used, err := m.Run(ctx, 0)

		Expect(err).To(MatchError(context.Canceled))
		Expect(used).To(BeZero())
	})

	DescribeTable("should turn fatal CPU conditions into errors",
		func(name string) {
			m := newMachine(name)
			Expect(m.LoadELF(program(words(0x7C000000)))).To(Succeed())

			_, err := m.Run(context.Background(), 0)

			Expect(err).To(HaveOccurred())
			var fatal *emu.FatalError
			Expect(errors.Cause(err)).To(BeAssignableToTypeOf(fatal))
			Expect(errors.Cause(err).(*emu.FatalError).PC).To(Equal(emutest.Entry))
		},
		backendEntries(),
	)

	It("should drive the RCP interrupt line from the MI", func() {
		m := newMachine(config.BackendInterpreter)
		ip2 := uint64(1) << (8 + emu.IntRCP)

		m.Bus().Write32(bus.MIBase+0x0C, 1<<9)
		m.Bus().MI().Raise(bus.MIIntrPI)
		Expect(m.CPU().COP0().Cause() & ip2).NotTo(BeZero())

		m.Bus().MI().Clear(bus.MIIntrPI)
		Expect(m.CPU().COP0().Cause() & ip2).To(BeZero())
	})

	It("should stop on request", func() {
		m := newMachine(config.BackendCached)
		Expect(m.LoadELF(program(spin))).To(Succeed())

		m.Stop()
		used, err := m.Run(context.Background(), 0)

		Expect(err).NotTo(HaveOccurred())
		Expect(used).To(BeZero())
	})
})
