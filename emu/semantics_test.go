package emu_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/n64core/emu"
	"github.com/sarchlab/n64core/insts"
)

var _ = Describe("Instruction semantics", func() {
	var (
		cpu    *emu.CPU
		bus    *flatBus
		interp *emu.Interpreter
		rf     *emu.RegFile
	)

	run := func(words ...uint32) {
		bus.load(codeBase, words...)
		for range words {
			interp.Step()
		}
	}

	BeforeEach(func() {
		cpu, bus, interp = newTestCPU()
		rf = cpu.RegFile()
	})

	Describe("arithmetic", func() {
		It("should sign-extend 32-bit results", func() {
			rf.WriteReg(insts.RegT0, 0x7FFFFFFF)
			run(insts.EncodeADDIU(insts.RegT1, insts.RegT0, 1))

			Expect(rf.ReadReg(insts.RegT1)).To(Equal(uint64(0xFFFFFFFF80000000)))
		})

		It("should never write register zero", func() {
			run(insts.EncodeADDIU(insts.RegZero, insts.RegZero, 5))

			Expect(rf.ReadReg(insts.RegZero)).To(BeZero())
		})

		It("should build constants with LUI and ORI", func() {
			run(
				insts.EncodeLUI(insts.RegT0, 0x8000),
				insts.EncodeORI(insts.RegT0, insts.RegT0, 0x1234),
			)

			Expect(rf.ReadReg(insts.RegT0)).To(Equal(uint64(0xFFFFFFFF80001234)))
		})

		DescribeTable("32-bit signed overflow",
			func(encode func(rd, rs, rt uint8) uint32, a, b int32) {
				rf.WriteReg(insts.RegT0, sext(a))
				rf.WriteReg(insts.RegT1, sext(b))
				rf.WriteReg(insts.RegT2, 0xDEAD)

				run(encode(insts.RegT2, insts.RegT0, insts.RegT1))

				Expect(excCode(cpu)).To(Equal(emu.ExcOverflow))
				Expect(rf.PC).To(Equal(uint64(vectorGeneral)))
				Expect(rf.ReadReg(insts.RegT2)).To(Equal(uint64(0xDEAD)))
				Expect(cpu.COP0().Reg[emu.Cop0EPC]).To(Equal(uint64(entry)))
			},
			Entry("ADD max+1", insts.EncodeADD, int32(math.MaxInt32), int32(1)),
			Entry("ADD min+-1", insts.EncodeADD, int32(math.MinInt32), int32(-1)),
			Entry("SUB min-1", insts.EncodeSUB, int32(math.MinInt32), int32(1)),
			Entry("SUB max-(-1)", insts.EncodeSUB, int32(math.MaxInt32), int32(-1)),
		)

		It("should not trap on wrapping ADDU", func() {
			rf.WriteReg(insts.RegT0, 0x7FFFFFFF)
			rf.WriteReg(insts.RegT1, 1)
			run(insts.EncodeADDU(insts.RegT2, insts.RegT0, insts.RegT1))

			Expect(rf.ReadReg(insts.RegT2)).To(Equal(uint64(0xFFFFFFFF80000000)))
			Expect(rf.PC).To(Equal(uint64(entry + 4)))
		})

		It("should trap on 64-bit overflow only for DADD", func() {
			rf.WriteReg(insts.RegT0, math.MaxInt64)
			rf.WriteReg(insts.RegT1, 1)
			run(insts.EncodeDADDU(insts.RegT2, insts.RegT0, insts.RegT1))
			Expect(rf.ReadReg(insts.RegT2)).To(Equal(uint64(1 << 63)))

			rf.SetPC(entry)
			run(insts.EncodeDADD(insts.RegT2, insts.RegZero, insts.RegZero),
				insts.EncodeDADD(insts.RegT3, insts.RegT0, insts.RegT1))
			Expect(excCode(cpu)).To(Equal(emu.ExcOverflow))
		})

		It("should compare signed and unsigned", func() {
			rf.WriteReg(insts.RegT0, sext(-1))
			rf.WriteReg(insts.RegT1, 1)
			run(
				insts.EncodeSLT(insts.RegT2, insts.RegT0, insts.RegT1),
				insts.EncodeSLTU(insts.RegT3, insts.RegT0, insts.RegT1),
			)

			Expect(rf.ReadReg(insts.RegT2)).To(Equal(uint64(1)))
			Expect(rf.ReadReg(insts.RegT3)).To(BeZero())
		})

		DescribeTable("shifts",
			func(word uint32, in, want uint64) {
				rf.WriteReg(insts.RegT0, in)
				run(word)
				Expect(rf.ReadReg(insts.RegT1)).To(Equal(want))
			},
			Entry("SLL sign-extends", insts.EncodeSLL(insts.RegT1, insts.RegT0, 4), uint64(0x08000000), uint64(0xFFFFFFFF80000000)),
			Entry("SRL zero-fills the word", insts.EncodeSRL(insts.RegT1, insts.RegT0, 4), uint64(0xFFFFFFFF80000000), uint64(0x08000000)),
			Entry("SRA keeps the sign", insts.EncodeSRA(insts.RegT1, insts.RegT0, 4), uint64(0xFFFFFFFF80000000), uint64(0xFFFFFFFFF8000000)),
			Entry("DSLL32", insts.EncodeDSLL32(insts.RegT1, insts.RegT0, 0), uint64(0x1234), uint64(0x0000123400000000)),
			Entry("DSRA32", insts.EncodeDSRA32(insts.RegT1, insts.RegT0, 4), uint64(0x8000000000000000), uint64(0xFFFFFFFFF8000000)),
		)

		It("should trap when TEQ operands are equal", func() {
			rf.WriteReg(insts.RegT0, 7)
			rf.WriteReg(insts.RegT1, 7)
			run(insts.EncodeTEQ(insts.RegT0, insts.RegT1))

			Expect(excCode(cpu)).To(Equal(emu.ExcTrap))
		})
	})

	Describe("multiply and divide", func() {
		It("should split MULT results into HI and LO", func() {
			rf.WriteReg(insts.RegT0, sext(-2))
			rf.WriteReg(insts.RegT1, 3)
			run(
				insts.EncodeMULT(insts.RegT0, insts.RegT1),
				insts.EncodeMFLO(insts.RegT2),
				insts.EncodeMFHI(insts.RegT3),
			)

			Expect(rf.ReadReg(insts.RegT2)).To(Equal(sext(-6)))
			Expect(rf.ReadReg(insts.RegT3)).To(Equal(sext(-1)))
		})

		It("should produce a 128-bit DMULTU product", func() {
			rf.WriteReg(insts.RegT0, math.MaxUint64)
			rf.WriteReg(insts.RegT1, 2)
			run(insts.EncodeDMULTU(insts.RegT0, insts.RegT1))

			Expect(rf.Lo).To(Equal(uint64(math.MaxUint64 - 1)))
			Expect(rf.Hi).To(Equal(uint64(1)))
		})

		It("should divide signed words", func() {
			rf.WriteReg(insts.RegT0, sext(-7))
			rf.WriteReg(insts.RegT1, 2)
			run(insts.EncodeDIV(insts.RegT0, insts.RegT1))

			Expect(rf.Lo).To(Equal(sext(-3)))
			Expect(rf.Hi).To(Equal(sext(-1)))
		})

		DescribeTable("division by zero",
			func(dividend int32, lo, hi uint64) {
				rf.WriteReg(insts.RegT0, sext(dividend))
				run(insts.EncodeDIV(insts.RegT0, insts.RegZero))

				Expect(rf.Lo).To(Equal(lo))
				Expect(rf.Hi).To(Equal(hi))
				Expect(rf.PC).To(Equal(uint64(entry + 4)))
			},
			Entry("positive dividend", int32(5), uint64(math.MaxUint64), uint64(5)),
			Entry("negative dividend", int32(-5), uint64(1), sext(-5)),
		)

		It("should not fault on MinInt32 / -1", func() {
			rf.WriteReg(insts.RegT0, sext(math.MinInt32))
			rf.WriteReg(insts.RegT1, sext(-1))
			run(insts.EncodeDIV(insts.RegT0, insts.RegT1))

			Expect(rf.Lo).To(Equal(sext(math.MinInt32)))
			Expect(rf.Hi).To(BeZero())
		})
	})

	Describe("branches", func() {
		It("should execute the delay slot of a taken branch", func() {
			run(
				insts.EncodeBEQ(insts.RegZero, insts.RegZero, 3),
				insts.EncodeADDIU(insts.RegT0, insts.RegZero, 1),
			)

			Expect(rf.ReadReg(insts.RegT0)).To(Equal(uint64(1)))
			Expect(rf.PC).To(Equal(uint64(entry + 16)))
		})

		It("should annul the delay slot of an untaken likely branch", func() {
			rf.WriteReg(insts.RegT1, 1)
			bus.load(codeBase,
				insts.EncodeBEQL(insts.RegT1, insts.RegZero, 3),
				insts.EncodeADDIU(insts.RegT2, insts.RegZero, 9),
				insts.EncodeADDIU(insts.RegT3, insts.RegZero, 4),
			)

			interp.Step()
			Expect(rf.PC).To(Equal(uint64(entry + 8)))

			interp.Step()
			Expect(rf.ReadReg(insts.RegT2)).To(BeZero())
			Expect(rf.ReadReg(insts.RegT3)).To(Equal(uint64(4)))
		})

		It("should execute the delay slot of an untaken ordinary branch", func() {
			rf.WriteReg(insts.RegT1, 1)
			run(
				insts.EncodeBEQ(insts.RegT1, insts.RegZero, 3),
				insts.EncodeADDIU(insts.RegT2, insts.RegZero, 9),
			)

			Expect(rf.ReadReg(insts.RegT2)).To(Equal(uint64(9)))
			Expect(rf.PC).To(Equal(uint64(entry + 8)))
		})

		It("should link past the delay slot", func() {
			run(
				insts.EncodeJAL(0x80001400),
				insts.EncodeNOP(),
			)

			Expect(rf.ReadReg(insts.RegRA)).To(Equal(uint64(entry + 8)))
			Expect(rf.PC).To(Equal(uint64(0xFFFFFFFF80001400)))
		})

		It("should jump through a register", func() {
			rf.WriteReg(insts.RegT0, 0xFFFFFFFF80001800)
			run(
				insts.EncodeJALR(insts.RegT1, insts.RegT0),
				insts.EncodeNOP(),
			)

			Expect(rf.ReadReg(insts.RegT1)).To(Equal(uint64(entry + 8)))
			Expect(rf.PC).To(Equal(uint64(0xFFFFFFFF80001800)))
		})

		It("should branch backwards", func() {
			bus.load(codeBase,
				insts.EncodeADDIU(insts.RegT0, insts.RegZero, 3),
				insts.EncodeADDIU(insts.RegT0, insts.RegT0, -1),
				insts.EncodeBNE(insts.RegT0, insts.RegZero, -2),
				insts.EncodeADDIU(insts.RegT1, insts.RegT1, 1),
				insts.EncodeBREAK(),
			)

			for rf.PC != vectorGeneral {
				interp.Step()
			}

			Expect(rf.ReadReg(insts.RegT0)).To(BeZero())
			Expect(rf.ReadReg(insts.RegT1)).To(Equal(uint64(3)))
			Expect(cpu.COP0().Reg[emu.Cop0EPC]).To(Equal(uint64(entry + 16)))
		})
	})

	Describe("loads and stores", func() {
		BeforeEach(func() {
			rf.WriteReg(insts.RegS0, dataVAddr)
			bus.load(dataBase, 0x11223344, 0x55667788)
		})

		It("should extend narrow loads", func() {
			bus.load(dataBase+8, 0x80FF7F00)
			run(
				insts.EncodeLB(insts.RegT0, insts.RegS0, 8),
				insts.EncodeLBU(insts.RegT1, insts.RegS0, 8),
				insts.EncodeLH(insts.RegT2, insts.RegS0, 8),
				insts.EncodeLWU(insts.RegT3, insts.RegS0, 8),
			)

			Expect(rf.ReadReg(insts.RegT0)).To(Equal(uint64(0xFFFFFFFFFFFFFF80)))
			Expect(rf.ReadReg(insts.RegT1)).To(Equal(uint64(0x80)))
			Expect(rf.ReadReg(insts.RegT2)).To(Equal(uint64(0xFFFFFFFFFFFF80FF)))
			Expect(rf.ReadReg(insts.RegT3)).To(Equal(uint64(0x80FF7F00)))
		})

		It("should load and store doublewords", func() {
			run(
				insts.EncodeLD(insts.RegT0, insts.RegS0, 0),
				insts.EncodeSD(insts.RegT0, insts.RegS0, 16),
			)

			Expect(rf.ReadReg(insts.RegT0)).To(Equal(uint64(0x1122334455667788)))
			Expect(bus.Read64(dataBase + 16)).To(Equal(uint64(0x1122334455667788)))
		})

		It("should merge unaligned words with LWL and LWR", func() {
			run(
				insts.EncodeLWL(insts.RegT0, insts.RegS0, 1),
				insts.EncodeLWR(insts.RegT0, insts.RegS0, 4),
			)

			Expect(rf.ReadReg(insts.RegT0)).To(Equal(uint64(0x22334455)))
		})

		It("should split unaligned words with SWL and SWR", func() {
			rf.WriteReg(insts.RegT0, 0xAABBCCDD)
			run(
				insts.EncodeSWL(insts.RegT0, insts.RegS0, 0x11),
				insts.EncodeSWR(insts.RegT0, insts.RegS0, 0x14),
			)

			Expect(bus.mem[dataBase+0x10 : dataBase+0x16]).To(Equal(
				[]byte{0x00, 0xAA, 0xBB, 0xCC, 0xDD, 0x00}))
		})

		It("should commit a store conditional only once per link", func() {
			rf.WriteReg(insts.RegT1, 0x99)
			run(
				insts.EncodeLL(insts.RegT0, insts.RegS0, 0),
				insts.EncodeSC(insts.RegT1, insts.RegS0, 0),
				insts.EncodeADDIU(insts.RegT2, insts.RegZero, 0x77),
				insts.EncodeSC(insts.RegT2, insts.RegS0, 0),
			)

			Expect(rf.ReadReg(insts.RegT0)).To(Equal(uint64(0x11223344)))
			Expect(rf.ReadReg(insts.RegT1)).To(Equal(uint64(1)))
			Expect(rf.ReadReg(insts.RegT2)).To(BeZero())
			Expect(bus.Read32(dataBase)).To(Equal(uint32(0x99)))
		})

		It("should report writes to tracked code pages", func() {
			var writes []uint32
			bus.TrackCode(dataBase)
			bus.OnCodeWrite(func(addr, _ uint32) { writes = append(writes, addr) })

			run(insts.EncodeSW(insts.RegZero, insts.RegS0, 4))

			Expect(writes).To(Equal([]uint32{dataBase + 4}))
		})
	})

	Describe("COP0 moves", func() {
		It("should round-trip EPC", func() {
			rf.WriteReg(insts.RegT0, 0xFFFFFFFF80004000)
			run(
				insts.EncodeMTC0(insts.RegT0, emu.Cop0EPC),
				insts.EncodeMFC0(insts.RegT1, emu.Cop0EPC),
			)

			Expect(rf.ReadReg(insts.RegT1)).To(Equal(uint64(0xFFFFFFFF80004000)))
		})

		It("should write the TLB through TLBWI", func() {
			rf.WriteReg(insts.RegT0, 3)
			rf.WriteReg(insts.RegT1, 0x00400000)
			rf.WriteReg(insts.RegT2, entryLo(0x123, loV|loD|loG))
			run(
				insts.EncodeMTC0(insts.RegT0, emu.Cop0Index),
				insts.EncodeMTC0(insts.RegT1, emu.Cop0EntryHi),
				insts.EncodeMTC0(insts.RegT2, emu.Cop0EntryLo0),
				insts.EncodeMTC0(insts.RegT2, emu.Cop0EntryLo1),
				insts.EncodeMTC0(insts.RegZero, emu.Cop0PageMask),
				insts.EncodeTLBWI(),
			)

			e := cpu.COP0().TLB[3]
			Expect(e.Written).To(BeTrue())
			Expect(e.Global).To(BeTrue())
			Expect(e.EntryHi).To(Equal(uint64(0x00400000)))
		})
	})

	Describe("coprocessor gating", func() {
		It("should raise coprocessor unusable for COP1 while CU1 is clear", func() {
			run(insts.EncodeMTC1(insts.RegT0, 0))

			Expect(excCode(cpu)).To(Equal(emu.ExcCopUnusable))
			Expect(cpu.COP0().Cause() >> 28 & 3).To(Equal(uint64(1)))
		})

		It("should raise reserved instruction for a usable COP2", func() {
			cpu.COP0().Reg[emu.Cop0Status] = emu.StatusCU2
			run(0x48000000)

			Expect(excCode(cpu)).To(Equal(emu.ExcReservedInstruction))
		})

		It("should panic with a fatal error on an unknown encoding", func() {
			bus.load(codeBase, 0x7C000000)

			Expect(func() { interp.Step() }).To(
				PanicWith(BeAssignableToTypeOf(&emu.FatalError{})))
		})
	})

	Describe("floating point", func() {
		const (
			add   = 0x00
			trunc = 0x0D
			clt   = 0x3C
		)

		BeforeEach(func() {
			cpu.COP0().Reg[emu.Cop0Status] = emu.StatusCU1
			rf.WriteReg(insts.RegT0, uint64(math.Float32bits(1.5)))
			rf.WriteReg(insts.RegT1, uint64(math.Float32bits(2.5)))
		})

		It("should add singles", func() {
			run(
				insts.EncodeMTC1(insts.RegT0, 0),
				insts.EncodeMTC1(insts.RegT1, 2),
				insts.EncodeFPU(insts.FmtS, 2, 0, 4, add),
				insts.EncodeMFC1(insts.RegT2, 4),
			)

			Expect(rf.ReadReg(insts.RegT2)).To(Equal(uint64(math.Float32bits(4.0))))
		})

		It("should truncate toward zero", func() {
			run(
				insts.EncodeMTC1(insts.RegT1, 2),
				insts.EncodeFPU(insts.FmtS, 0, 2, 6, trunc),
				insts.EncodeMFC1(insts.RegT2, 6),
			)

			Expect(rf.ReadReg(insts.RegT2)).To(Equal(uint64(2)))
		})

		It("should branch on a compare result", func() {
			run(
				insts.EncodeMTC1(insts.RegT0, 0),
				insts.EncodeMTC1(insts.RegT1, 2),
				insts.EncodeFPU(insts.FmtS, 2, 0, 0, clt),
				insts.EncodeBC1T(4),
				insts.EncodeNOP(),
			)

			Expect(cpu.COP1().Condition()).To(BeTrue())
			Expect(rf.PC).To(Equal(uint64(entry + 32)))
		})
	})

	It("should charge cycles and count retired instructions", func() {
		run(insts.EncodeNOP(), insts.EncodeNOP())

		Expect(cpu.InstructionCount()).To(Equal(uint64(2)))
		Expect(cpu.Cycles()).To(Equal(2 * cpu.Cost(insts.OpSLL)))
		Expect(cpu.COP0().Reg[emu.Cop0Count]).To(Equal(cpu.Cycles()))
	})

	It("should stop a run on request", func() {
		bus.load(codeBase, 0, 0, 0, 0)
		cpu.RequestStop()

		Expect(interp.Run(100)).To(BeZero())

		cpu.ClearStop()
		Expect(interp.Run(2)).To(BeNumerically(">=", 2))
	})
})
