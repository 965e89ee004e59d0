package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32sim/insts"
)

// Encoding helpers for building RV32 instruction words in tests.

func encodeR(funct7 uint32, rs2, rs1 uint8, funct3 uint8, rd uint8, opcode uint32) uint32 {
	return funct7<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 |
		uint32(funct3)<<12 | uint32(rd)<<7 | opcode
}

func encodeI(imm int32, rs1 uint8, funct3 uint8, rd uint8, opcode uint32) uint32 {
	return uint32(imm)<<20 | uint32(rs1)<<15 | uint32(funct3)<<12 |
		uint32(rd)<<7 | opcode
}

func encodeS(imm int32, rs2, rs1 uint8, funct3 uint8, opcode uint32) uint32 {
	u := uint32(imm)
	return (u>>5&0x7F)<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 |
		uint32(funct3)<<12 | (u&0x1F)<<7 | opcode
}

func encodeB(imm int32, rs2, rs1 uint8, funct3 uint8, opcode uint32) uint32 {
	u := uint32(imm)
	return (u>>12&0x1)<<31 | (u>>5&0x3F)<<25 | uint32(rs2)<<20 |
		uint32(rs1)<<15 | uint32(funct3)<<12 | (u>>1&0xF)<<8 |
		(u>>11&0x1)<<7 | opcode
}

func encodeU(imm uint32, rd uint8, opcode uint32) uint32 {
	return imm&0xFFFFF000 | uint32(rd)<<7 | opcode
}

func encodeJ(imm int32, rd uint8, opcode uint32) uint32 {
	u := uint32(imm)
	return (u>>20&0x1)<<31 | (u>>1&0x3FF)<<21 | (u>>11&0x1)<<20 |
		(u>>12&0xFF)<<12 | uint32(rd)<<7 | opcode
}

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("R-type instructions", func() {
		It("should decode ADD", func() {
			inst := decoder.Decode(encodeR(0, 2, 1, 0b000, 3, 0b0110011))

			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Format).To(Equal(insts.FormatR))
			Expect(inst.Rd).To(Equal(uint8(3)))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.Rs2).To(Equal(uint8(2)))
		})

		It("should decode SUB", func() {
			inst := decoder.Decode(encodeR(0b0100000, 5, 4, 0b000, 6, 0b0110011))

			Expect(inst.Op).To(Equal(insts.OpSUB))
			Expect(inst.Rd).To(Equal(uint8(6)))
		})

		It("should decode the shift and compare group", func() {
			Expect(decoder.Decode(encodeR(0, 2, 1, 0b001, 3, 0b0110011)).Op).
				To(Equal(insts.OpSLL))
			Expect(decoder.Decode(encodeR(0, 2, 1, 0b010, 3, 0b0110011)).Op).
				To(Equal(insts.OpSLT))
			Expect(decoder.Decode(encodeR(0, 2, 1, 0b011, 3, 0b0110011)).Op).
				To(Equal(insts.OpSLTU))
			Expect(decoder.Decode(encodeR(0, 2, 1, 0b101, 3, 0b0110011)).Op).
				To(Equal(insts.OpSRL))
			Expect(decoder.Decode(encodeR(0b0100000, 2, 1, 0b101, 3, 0b0110011)).Op).
				To(Equal(insts.OpSRA))
		})

		It("should decode the RV32M group", func() {
			Expect(decoder.Decode(encodeR(1, 2, 1, 0b000, 3, 0b0110011)).Op).
				To(Equal(insts.OpMUL))
			Expect(decoder.Decode(encodeR(1, 2, 1, 0b001, 3, 0b0110011)).Op).
				To(Equal(insts.OpMULH))
			Expect(decoder.Decode(encodeR(1, 2, 1, 0b011, 3, 0b0110011)).Op).
				To(Equal(insts.OpMULHU))
			Expect(decoder.Decode(encodeR(1, 2, 1, 0b100, 3, 0b0110011)).Op).
				To(Equal(insts.OpDIV))
			Expect(decoder.Decode(encodeR(1, 2, 1, 0b110, 3, 0b0110011)).Op).
				To(Equal(insts.OpREM))
		})
	})

	Describe("I-type instructions", func() {
		It("should decode ADDI with a positive immediate", func() {
			inst := decoder.Decode(encodeI(42, 1, 0b000, 2, 0b0010011))

			Expect(inst.Op).To(Equal(insts.OpADDI))
			Expect(inst.Format).To(Equal(insts.FormatI))
			Expect(inst.Rd).To(Equal(uint8(2)))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.Imm).To(Equal(int32(42)))
		})

		It("should sign-extend a negative ADDI immediate", func() {
			inst := decoder.Decode(encodeI(-5, 1, 0b000, 2, 0b0010011))

			Expect(inst.Imm).To(Equal(int32(-5)))
		})

		It("should decode shift immediates from the rs2 field", func() {
			inst := decoder.Decode(encodeI(13, 1, 0b001, 2, 0b0010011))

			Expect(inst.Op).To(Equal(insts.OpSLLI))
			Expect(inst.Imm).To(Equal(int32(13)))
		})

		It("should decode SRAI", func() {
			word := encodeI(7, 1, 0b101, 2, 0b0010011) | 0b0100000<<25
			inst := decoder.Decode(word)

			Expect(inst.Op).To(Equal(insts.OpSRAI))
			Expect(inst.Imm).To(Equal(int32(7)))
		})

		It("should decode loads", func() {
			inst := decoder.Decode(encodeI(16, 4, 0b010, 5, 0b0000011))

			Expect(inst.Op).To(Equal(insts.OpLW))
			Expect(inst.Rd).To(Equal(uint8(5)))
			Expect(inst.Rs1).To(Equal(uint8(4)))
			Expect(inst.Imm).To(Equal(int32(16)))
			Expect(inst.MemSize()).To(Equal(4))
		})

		It("should decode JALR", func() {
			inst := decoder.Decode(encodeI(8, 1, 0b000, 0, 0b1100111))

			Expect(inst.Op).To(Equal(insts.OpJALR))
			Expect(inst.IsBranch()).To(BeTrue())
		})
	})

	Describe("S-type instructions", func() {
		It("should decode SW with a negative offset", func() {
			inst := decoder.Decode(encodeS(-20, 2, 8, 0b010, 0b0100011))

			Expect(inst.Op).To(Equal(insts.OpSW))
			Expect(inst.Format).To(Equal(insts.FormatS))
			Expect(inst.Rs1).To(Equal(uint8(8)))
			Expect(inst.Rs2).To(Equal(uint8(2)))
			Expect(inst.Imm).To(Equal(int32(-20)))
		})

		It("should decode SB and SH widths", func() {
			Expect(decoder.Decode(encodeS(0, 2, 1, 0b000, 0b0100011)).MemSize()).
				To(Equal(1))
			Expect(decoder.Decode(encodeS(0, 2, 1, 0b001, 0b0100011)).MemSize()).
				To(Equal(2))
		})
	})

	Describe("B-type instructions", func() {
		It("should decode BEQ with a forward offset", func() {
			inst := decoder.Decode(encodeB(16, 2, 1, 0b000, 0b1100011))

			Expect(inst.Op).To(Equal(insts.OpBEQ))
			Expect(inst.Format).To(Equal(insts.FormatB))
			Expect(inst.Imm).To(Equal(int32(16)))
		})

		It("should decode BNE with a backward offset", func() {
			inst := decoder.Decode(encodeB(-8, 2, 1, 0b001, 0b1100011))

			Expect(inst.Op).To(Equal(insts.OpBNE))
			Expect(inst.Imm).To(Equal(int32(-8)))
		})

		It("should decode the unsigned compare branches", func() {
			Expect(decoder.Decode(encodeB(4, 2, 1, 0b110, 0b1100011)).Op).
				To(Equal(insts.OpBLTU))
			Expect(decoder.Decode(encodeB(4, 2, 1, 0b111, 0b1100011)).Op).
				To(Equal(insts.OpBGEU))
		})
	})

	Describe("U-type instructions", func() {
		It("should decode LUI", func() {
			inst := decoder.Decode(encodeU(0xDEAD1000, 7, 0b0110111))

			Expect(inst.Op).To(Equal(insts.OpLUI))
			Expect(inst.Rd).To(Equal(uint8(7)))
			Expect(uint32(inst.Imm)).To(Equal(uint32(0xDEAD1000)))
		})

		It("should decode AUIPC", func() {
			inst := decoder.Decode(encodeU(0x1000, 7, 0b0010111))

			Expect(inst.Op).To(Equal(insts.OpAUIPC))
			Expect(inst.Imm).To(Equal(int32(0x1000)))
		})
	})

	Describe("J-type instructions", func() {
		It("should decode JAL with a forward target", func() {
			inst := decoder.Decode(encodeJ(2048, 1, 0b1101111))

			Expect(inst.Op).To(Equal(insts.OpJAL))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Imm).To(Equal(int32(2048)))
		})

		It("should decode JAL with a backward target", func() {
			inst := decoder.Decode(encodeJ(-4, 0, 0b1101111))

			Expect(inst.Imm).To(Equal(int32(-4)))
		})
	})

	Describe("system instructions", func() {
		It("should decode ECALL", func() {
			inst := decoder.Decode(0x00000073)

			Expect(inst.Op).To(Equal(insts.OpECALL))
		})

		It("should decode EBREAK", func() {
			inst := decoder.Decode(0x00100073)

			Expect(inst.Op).To(Equal(insts.OpEBREAK))
		})
	})

	Describe("illegal encodings", func() {
		It("should return OpUnknown for an all-zero word", func() {
			inst := decoder.Decode(0)

			Expect(inst.Op).To(Equal(insts.OpUnknown))
		})

		It("should return OpUnknown for a reserved branch funct3", func() {
			inst := decoder.Decode(encodeB(4, 2, 1, 0b010, 0b1100011))

			Expect(inst.Op).To(Equal(insts.OpUnknown))
		})

		It("should return OpUnknown for a bad load width", func() {
			inst := decoder.Decode(encodeI(0, 1, 0b011, 2, 0b0000011))

			Expect(inst.Op).To(Equal(insts.OpUnknown))
		})
	})

	Describe("operand predicates", func() {
		It("should report that stores do not write rd", func() {
			inst := decoder.Decode(encodeS(0, 2, 1, 0b010, 0b0100011))

			Expect(inst.WritesRd()).To(BeFalse())
		})

		It("should report that a destination of x0 is not a write", func() {
			inst := decoder.Decode(encodeR(0, 2, 1, 0b000, 0, 0b0110011))

			Expect(inst.WritesRd()).To(BeFalse())
		})

		It("should report branch source registers", func() {
			inst := decoder.Decode(encodeB(4, 2, 1, 0b000, 0b1100011))

			Expect(inst.UsesRs1()).To(BeTrue())
			Expect(inst.UsesRs2()).To(BeTrue())
			Expect(inst.WritesRd()).To(BeFalse())
		})
	})
})
