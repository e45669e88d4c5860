package latency_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/n64core/insts"
	"github.com/sarchlab/n64core/timing/latency"
)

var _ = Describe("Latency", func() {
	var (
		table   *latency.Table
		decoder *insts.Decoder
	)

	BeforeEach(func() {
		table = latency.NewTable()
		decoder = insts.NewDecoder()
	})

	Describe("Default Timing Values", func() {
		It("should have correct ALU latency", func() {
			Expect(table.Config().ALULatency).To(Equal(uint64(1)))
		})

		It("should have correct divide latencies", func() {
			Expect(table.Config().DivideLatency).To(Equal(uint64(37)))
			Expect(table.Config().DDivideLatency).To(Equal(uint64(69)))
		})
	})

	DescribeTable("Instruction latencies",
		func(word uint32, cycles uint64) {
			Expect(table.GetLatency(decoder.Decode(word))).To(Equal(cycles))
		},
		Entry("ADDU", insts.EncodeADDU(2, 4, 5), uint64(1)),
		Entry("LUI", insts.EncodeLUI(2, 0x8000), uint64(1)),
		Entry("MULT", insts.EncodeMULT(4, 5), uint64(5)),
		Entry("DMULTU", insts.EncodeDMULTU(4, 5), uint64(8)),
		Entry("DIV", insts.EncodeDIV(4, 5), uint64(37)),
		Entry("DDIV", insts.EncodeDDIV(4, 5), uint64(69)),
		Entry("LW", insts.EncodeLW(8, 29, 0), uint64(1)),
		Entry("SW", insts.EncodeSW(8, 29, 0), uint64(1)),
		Entry("BEQ", insts.EncodeBEQ(0, 0, 1), uint64(1)),
		Entry("MTC0", insts.EncodeMTC0(8, 12), uint64(1)),
		Entry("ADD.D", insts.EncodeFPU(insts.FmtD, 2, 4, 6, 0x00), uint64(3)),
		Entry("MUL.S", insts.EncodeFPU(insts.FmtS, 2, 4, 6, 0x02), uint64(5)),
		Entry("SQRT.D", insts.EncodeFPU(insts.FmtD, 0, 4, 6, 0x04), uint64(29)),
	)

	Describe("Instruction Type Detection", func() {
		It("should detect memory operations", func() {
			Expect(table.IsMemoryOp(decoder.Decode(insts.EncodeLD(1, 2, 0)))).To(BeTrue())
			Expect(table.IsMemoryOp(decoder.Decode(insts.EncodeSB(1, 2, 0)))).To(BeTrue())
			Expect(table.IsMemoryOp(decoder.Decode(insts.EncodeADDU(1, 2, 3)))).To(BeFalse())
		})

		It("should detect branch operations", func() {
			Expect(table.IsBranchOp(decoder.Decode(insts.EncodeJR(31)))).To(BeTrue())
			Expect(table.IsBranchOp(decoder.Decode(insts.EncodeBEQL(1, 2, 3)))).To(BeTrue())
			Expect(table.IsBranchOp(decoder.Decode(insts.EncodeSYSCALL()))).To(BeFalse())
		})
	})

	Describe("Nil Instruction Handling", func() {
		It("should return 1 for nil instruction", func() {
			Expect(table.GetLatency(nil)).To(Equal(uint64(1)))
		})

		It("should return false for nil instruction checks", func() {
			Expect(table.IsMemoryOp(nil)).To(BeFalse())
			Expect(table.IsBranchOp(nil)).To(BeFalse())
		})
	})

	Describe("Custom Configuration", func() {
		It("should use custom config values", func() {
			config := latency.DefaultTimingConfig()
			config.ALULatency = 2
			config.LoadLatency = 3
			custom := latency.NewTableWithConfig(config)

			Expect(custom.OpLatency(insts.OpADDU)).To(Equal(uint64(2)))
			Expect(custom.OpLatency(insts.OpLW)).To(Equal(uint64(3)))
			Expect(custom.OpLatency(insts.OpSW)).To(Equal(uint64(1)))
		})
	})
})

var _ = Describe("TimingConfig", func() {
	Describe("Default Config", func() {
		It("should create valid default config", func() {
			Expect(latency.DefaultTimingConfig().Validate()).To(Succeed())
		})
	})

	Describe("Validation", func() {
		var config *latency.TimingConfig

		BeforeEach(func() {
			config = latency.DefaultTimingConfig()
		})

		It("should reject zero ALU latency", func() {
			config.ALULatency = 0
			Expect(config.Validate()).To(MatchError(ContainSubstring("alu_latency")))
		})

		It("should reject zero load latency", func() {
			config.LoadLatency = 0
			Expect(config.Validate()).To(MatchError(ContainSubstring("load_latency")))
		})

		It("should reject a 32-bit divide slower than the 64-bit one", func() {
			config.DivideLatency = 100
			Expect(config.Validate()).To(HaveOccurred())
		})
	})

	Describe("Clone", func() {
		It("should create independent copy", func() {
			original := latency.DefaultTimingConfig()
			clone := original.Clone()

			clone.ALULatency = 100

			Expect(original.ALULatency).To(Equal(uint64(1)))
			Expect(clone.ALULatency).To(Equal(uint64(100)))
		})
	})

	Describe("File Operations", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "latency-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("should save and load config", func() {
			original := latency.DefaultTimingConfig()
			original.ALULatency = 5
			original.LoadLatency = 10

			path := filepath.Join(tempDir, "timing.json")
			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.ALULatency).To(Equal(uint64(5)))
			Expect(loaded.LoadLatency).To(Equal(uint64(10)))
		})

		It("should return error for non-existent file", func() {
			_, err := latency.LoadConfig("/nonexistent/path/timing.json")
			Expect(err).To(HaveOccurred())
		})

		It("should return error for invalid JSON", func() {
			path := filepath.Join(tempDir, "invalid.json")
			err := os.WriteFile(path, []byte("not valid json"), 0644)
			Expect(err).NotTo(HaveOccurred())

			_, err = latency.LoadConfig(path)
			Expect(err).To(HaveOccurred())
		})
	})
})
