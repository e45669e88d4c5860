package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/n64core/emu"
)

var _ = Describe("RegFile", func() {
	var regFile *emu.RegFile

	BeforeEach(func() {
		regFile = &emu.RegFile{}
	})

	It("should discard writes to register 0", func() {
		regFile.WriteReg(0, 0x1234)
		Expect(regFile.ReadReg(0)).To(Equal(uint64(0)))
	})

	It("should store 64-bit values", func() {
		regFile.WriteReg(8, 0x0123456789ABCDEF)
		Expect(regFile.ReadReg(8)).To(Equal(uint64(0x0123456789ABCDEF)))
		Expect(regFile.ReadReg32(8)).To(Equal(uint32(0x89ABCDEF)))
	})

	It("should sign-extend 32-bit writes", func() {
		regFile.WriteReg32(9, 0x80000000)
		Expect(regFile.ReadReg(9)).To(Equal(uint64(0xFFFFFFFF80000000)))

		regFile.WriteReg32(9, 0x7FFFFFFF)
		Expect(regFile.ReadReg(9)).To(Equal(uint64(0x7FFFFFFF)))
	})

	It("should reset the PC triple with SetPC", func() {
		regFile.DelaySlot = true
		regFile.SetPC(0x80001000)

		Expect(regFile.PC).To(Equal(uint64(0x80001000)))
		Expect(regFile.NextPC).To(Equal(uint64(0x80001004)))
		Expect(regFile.DelaySlot).To(BeFalse())
	})
})
