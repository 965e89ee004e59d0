package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/insts"
)

var _ = Describe("ALU", func() {
	var alu *emu.ALU

	BeforeEach(func() {
		alu = emu.NewALU()
	})

	Describe("arithmetic", func() {
		It("should add with wraparound", func() {
			Expect(alu.Compute(insts.OpADD, 0xFFFFFFFF, 1)).To(Equal(uint32(0)))
		})

		It("should subtract", func() {
			Expect(alu.Compute(insts.OpSUB, 15, 10)).To(Equal(uint32(5)))
		})

		It("should compare signed", func() {
			Expect(alu.Compute(insts.OpSLT, 0xFFFFFFFF, 0)).To(Equal(uint32(1)))
			Expect(alu.Compute(insts.OpSLT, 0, 0xFFFFFFFF)).To(Equal(uint32(0)))
		})

		It("should compare unsigned", func() {
			Expect(alu.Compute(insts.OpSLTU, 0xFFFFFFFF, 0)).To(Equal(uint32(0)))
			Expect(alu.Compute(insts.OpSLTU, 0, 0xFFFFFFFF)).To(Equal(uint32(1)))
		})
	})

	Describe("shifts", func() {
		It("should mask the shift amount to 5 bits", func() {
			Expect(alu.Compute(insts.OpSLL, 1, 33)).To(Equal(uint32(2)))
		})

		It("should shift arithmetically", func() {
			Expect(alu.Compute(insts.OpSRA, 0x80000000, 31)).
				To(Equal(uint32(0xFFFFFFFF)))
		})

		It("should shift logically", func() {
			Expect(alu.Compute(insts.OpSRL, 0x80000000, 31)).To(Equal(uint32(1)))
		})
	})

	Describe("multiplication", func() {
		It("should multiply low", func() {
			Expect(alu.Compute(insts.OpMUL, 7, 6)).To(Equal(uint32(42)))
		})

		It("should produce the signed high word", func() {
			// -1 * -1 = 1, high word zero.
			Expect(alu.Compute(insts.OpMULH, 0xFFFFFFFF, 0xFFFFFFFF)).
				To(Equal(uint32(0)))
			// -2^31 * 2 = -2^32 => high word all ones.
			Expect(alu.Compute(insts.OpMULH, 0x80000000, 2)).
				To(Equal(uint32(0xFFFFFFFF)))
		})

		It("should produce the unsigned high word", func() {
			Expect(alu.Compute(insts.OpMULHU, 0xFFFFFFFF, 0xFFFFFFFF)).
				To(Equal(uint32(0xFFFFFFFE)))
		})

		It("should produce the signed-unsigned high word", func() {
			// -1 (signed) * 0xFFFFFFFF (unsigned) = -0xFFFFFFFF.
			Expect(alu.Compute(insts.OpMULHSU, 0xFFFFFFFF, 0xFFFFFFFF)).
				To(Equal(uint32(0xFFFFFFFF)))
		})
	})

	Describe("division", func() {
		It("should divide signed values", func() {
			Expect(alu.Compute(insts.OpDIV, uint32(0xFFFFFFF9), 2)). // -7 / 2
										To(Equal(uint32(0xFFFFFFFD))) // -3
		})

		It("should return all ones on division by zero", func() {
			Expect(alu.Compute(insts.OpDIV, 17, 0)).To(Equal(uint32(0xFFFFFFFF)))
			Expect(alu.Compute(insts.OpDIVU, 17, 0)).To(Equal(uint32(0xFFFFFFFF)))
		})

		It("should saturate on signed overflow", func() {
			Expect(alu.Compute(insts.OpDIV, 0x80000000, 0xFFFFFFFF)).
				To(Equal(uint32(0x80000000)))
			Expect(alu.Compute(insts.OpREM, 0x80000000, 0xFFFFFFFF)).
				To(Equal(uint32(0)))
		})

		It("should return the dividend as remainder by zero", func() {
			Expect(alu.Compute(insts.OpREM, 17, 0)).To(Equal(uint32(17)))
			Expect(alu.Compute(insts.OpREMU, 17, 0)).To(Equal(uint32(17)))
		})

		It("should compute signed remainders with the dividend's sign", func() {
			Expect(alu.Compute(insts.OpREM, uint32(0xFFFFFFF9), 2)). // -7 % 2
										To(Equal(uint32(0xFFFFFFFF))) // -1
		})
	})

	Describe("branch comparisons", func() {
		It("should evaluate equality", func() {
			Expect(alu.BranchTaken(insts.OpBEQ, 5, 5)).To(BeTrue())
			Expect(alu.BranchTaken(insts.OpBNE, 5, 5)).To(BeFalse())
		})

		It("should distinguish signed and unsigned compares", func() {
			Expect(alu.BranchTaken(insts.OpBLT, 0xFFFFFFFF, 0)).To(BeTrue())
			Expect(alu.BranchTaken(insts.OpBLTU, 0xFFFFFFFF, 0)).To(BeFalse())
			Expect(alu.BranchTaken(insts.OpBGE, 0, 0xFFFFFFFF)).To(BeTrue())
			Expect(alu.BranchTaken(insts.OpBGEU, 0, 0xFFFFFFFF)).To(BeFalse())
		})
	})
})
