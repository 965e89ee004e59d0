package insts

// RV32 major opcodes (bits [6:0]).
const (
	opcodeLUI    = 0b0110111
	opcodeAUIPC  = 0b0010111
	opcodeJAL    = 0b1101111
	opcodeJALR   = 0b1100111
	opcodeBranch = 0b1100011
	opcodeLoad   = 0b0000011
	opcodeStore  = 0b0100011
	opcodeOpImm  = 0b0010011
	opcodeOp     = 0b0110011
	opcodeFence  = 0b0001111
	opcodeSystem = 0b1110011
)

// Decoder decodes RV32IM machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new RV32IM instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit RV32 instruction word.
// Unrecognized encodings return an instruction with Op == OpUnknown.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{Op: OpUnknown, Format: FormatUnknown}

	switch word & 0x7F {
	case opcodeLUI:
		inst.Format = FormatU
		inst.Op = OpLUI
		d.decodeU(word, inst)
	case opcodeAUIPC:
		inst.Format = FormatU
		inst.Op = OpAUIPC
		d.decodeU(word, inst)
	case opcodeJAL:
		inst.Format = FormatJ
		inst.Op = OpJAL
		d.decodeJ(word, inst)
	case opcodeJALR:
		d.decodeJALR(word, inst)
	case opcodeBranch:
		d.decodeBranch(word, inst)
	case opcodeLoad:
		d.decodeLoad(word, inst)
	case opcodeStore:
		d.decodeStore(word, inst)
	case opcodeOpImm:
		d.decodeOpImm(word, inst)
	case opcodeOp:
		d.decodeOp(word, inst)
	case opcodeFence:
		inst.Format = FormatI
		inst.Op = OpFENCE
	case opcodeSystem:
		d.decodeSystem(word, inst)
	}

	return inst
}

// Field extraction helpers. Bit positions follow the RV32 base encoding.

func rd(word uint32) uint8     { return uint8((word >> 7) & 0x1F) }
func rs1(word uint32) uint8    { return uint8((word >> 15) & 0x1F) }
func rs2(word uint32) uint8    { return uint8((word >> 20) & 0x1F) }
func funct3(word uint32) uint8 { return uint8((word >> 12) & 0x7) }
func funct7(word uint32) uint8 { return uint8((word >> 25) & 0x7F) }

// immI extracts the sign-extended I-type immediate (bits [31:20]).
func immI(word uint32) int32 {
	return int32(word) >> 20
}

// immS extracts the sign-extended S-type immediate ([31:25] | [11:7]).
func immS(word uint32) int32 {
	return (int32(word)>>25)<<5 | int32((word>>7)&0x1F)
}

// immB extracts the sign-extended B-type immediate
// ([31] | [7] | [30:25] | [11:8], scaled by 2).
func immB(word uint32) int32 {
	imm := (int32(word)>>31)<<12 |
		int32((word>>7)&0x1)<<11 |
		int32((word>>25)&0x3F)<<5 |
		int32((word>>8)&0xF)<<1
	return imm
}

// immU extracts the U-type immediate ([31:12] << 12).
func immU(word uint32) int32 {
	return int32(word & 0xFFFFF000)
}

// immJ extracts the sign-extended J-type immediate
// ([31] | [19:12] | [20] | [30:21], scaled by 2).
func immJ(word uint32) int32 {
	imm := (int32(word)>>31)<<20 |
		int32((word>>12)&0xFF)<<12 |
		int32((word>>20)&0x1)<<11 |
		int32((word>>21)&0x3FF)<<1
	return imm
}

func (d *Decoder) decodeU(word uint32, inst *Instruction) {
	inst.Rd = rd(word)
	inst.Imm = immU(word)
}

func (d *Decoder) decodeJ(word uint32, inst *Instruction) {
	inst.Rd = rd(word)
	inst.Imm = immJ(word)
}

func (d *Decoder) decodeJALR(word uint32, inst *Instruction) {
	if funct3(word) != 0 {
		return // Reserved encoding
	}
	inst.Format = FormatI
	inst.Op = OpJALR
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
	inst.Imm = immI(word)
	inst.Funct3 = 0
}

func (d *Decoder) decodeBranch(word uint32, inst *Instruction) {
	f3 := funct3(word)

	var op Op
	switch f3 {
	case 0b000:
		op = OpBEQ
	case 0b001:
		op = OpBNE
	case 0b100:
		op = OpBLT
	case 0b101:
		op = OpBGE
	case 0b110:
		op = OpBLTU
	case 0b111:
		op = OpBGEU
	default:
		return // funct3 010/011 are reserved
	}

	inst.Format = FormatB
	inst.Op = op
	inst.Rs1 = rs1(word)
	inst.Rs2 = rs2(word)
	inst.Imm = immB(word)
	inst.Funct3 = f3
}

func (d *Decoder) decodeLoad(word uint32, inst *Instruction) {
	f3 := funct3(word)

	var op Op
	switch f3 {
	case 0b000:
		op = OpLB
	case 0b001:
		op = OpLH
	case 0b010:
		op = OpLW
	case 0b100:
		op = OpLBU
	case 0b101:
		op = OpLHU
	default:
		return
	}

	inst.Format = FormatI
	inst.Op = op
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
	inst.Imm = immI(word)
	inst.Funct3 = f3
}

func (d *Decoder) decodeStore(word uint32, inst *Instruction) {
	f3 := funct3(word)

	var op Op
	switch f3 {
	case 0b000:
		op = OpSB
	case 0b001:
		op = OpSH
	case 0b010:
		op = OpSW
	default:
		return
	}

	inst.Format = FormatS
	inst.Op = op
	inst.Rs1 = rs1(word)
	inst.Rs2 = rs2(word)
	inst.Imm = immS(word)
	inst.Funct3 = f3
}

func (d *Decoder) decodeOpImm(word uint32, inst *Instruction) {
	f3 := funct3(word)
	f7 := funct7(word)

	var op Op
	switch f3 {
	case 0b000:
		op = OpADDI
	case 0b010:
		op = OpSLTI
	case 0b011:
		op = OpSLTIU
	case 0b100:
		op = OpXORI
	case 0b110:
		op = OpORI
	case 0b111:
		op = OpANDI
	case 0b001:
		if f7 != 0 {
			return
		}
		op = OpSLLI
	case 0b101:
		switch f7 {
		case 0b0000000:
			op = OpSRLI
		case 0b0100000:
			op = OpSRAI
		default:
			return
		}
	}

	inst.Format = FormatI
	inst.Op = op
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
	inst.Funct3 = f3
	inst.Funct7 = f7

	// Shift-immediate encodings carry the shift amount in rs2's field.
	switch op {
	case OpSLLI, OpSRLI, OpSRAI:
		inst.Imm = int32((word >> 20) & 0x1F)
	default:
		inst.Imm = immI(word)
	}
}

func (d *Decoder) decodeOp(word uint32, inst *Instruction) {
	f3 := funct3(word)
	f7 := funct7(word)

	var op Op
	switch f7 {
	case 0b0000000:
		switch f3 {
		case 0b000:
			op = OpADD
		case 0b001:
			op = OpSLL
		case 0b010:
			op = OpSLT
		case 0b011:
			op = OpSLTU
		case 0b100:
			op = OpXOR
		case 0b101:
			op = OpSRL
		case 0b110:
			op = OpOR
		case 0b111:
			op = OpAND
		}
	case 0b0100000:
		switch f3 {
		case 0b000:
			op = OpSUB
		case 0b101:
			op = OpSRA
		default:
			return
		}
	case 0b0000001:
		// RV32M extension.
		switch f3 {
		case 0b000:
			op = OpMUL
		case 0b001:
			op = OpMULH
		case 0b010:
			op = OpMULHSU
		case 0b011:
			op = OpMULHU
		case 0b100:
			op = OpDIV
		case 0b101:
			op = OpDIVU
		case 0b110:
			op = OpREM
		case 0b111:
			op = OpREMU
		}
	default:
		return
	}

	inst.Format = FormatR
	inst.Op = op
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
	inst.Rs2 = rs2(word)
	inst.Funct3 = f3
	inst.Funct7 = f7
}

func (d *Decoder) decodeSystem(word uint32, inst *Instruction) {
	if funct3(word) != 0 {
		return // CSR instructions are outside RV32IM scope here
	}

	switch word >> 20 {
	case 0:
		inst.Format = FormatI
		inst.Op = OpECALL
	case 1:
		inst.Format = FormatI
		inst.Op = OpEBREAK
	}
}
