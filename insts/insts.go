// Package insts provides RV32IM instruction definitions and decoding.
//
// This package implements decoding of RV32I base integer machine code plus
// the RV32M multiply/divide extension into structured instruction
// representations.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x002081B3) // ADD x3, x1, x2
//	fmt.Printf("Op: %v, Rd: %d, Rs1: %d, Rs2: %d\n", inst.Op, inst.Rd, inst.Rs1, inst.Rs2)
package insts

// Op represents an RV32IM operation.
type Op uint16

// RV32I base integer operations plus the RV32M extension.
const (
	OpUnknown Op = iota

	// Upper-immediate and control transfer.
	OpLUI
	OpAUIPC
	OpJAL
	OpJALR

	// Conditional branches.
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU

	// Loads.
	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU

	// Stores.
	OpSB
	OpSH
	OpSW

	// ALU immediate.
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI

	// ALU register.
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND

	// RV32M.
	OpMUL
	OpMULH
	OpMULHSU
	OpMULHU
	OpDIV
	OpDIVU
	OpREM
	OpREMU

	// System.
	OpFENCE
	OpECALL
	OpEBREAK
)

// Format represents an RV32 instruction encoding format.
type Format uint8

// RV32 encoding formats.
const (
	FormatUnknown Format = iota
	FormatR              // Register-register (ADD, SUB, MUL, ...)
	FormatI              // Immediate (ADDI, loads, JALR, system)
	FormatS              // Store
	FormatB              // Conditional branch
	FormatU              // Upper immediate (LUI, AUIPC)
	FormatJ              // Jump (JAL)
)

// Instruction represents a decoded RV32IM instruction.
type Instruction struct {
	Op     Op     // Operation
	Format Format // Encoding format

	// Register operand indices. x0 is the hardwired zero register.
	Rd  uint8
	Rs1 uint8
	Rs2 uint8

	// Imm is the sign-extended immediate for I/S/B/U/J formats.
	Imm int32

	// Function-select fields kept for validation and disassembly.
	Funct3 uint8
	Funct7 uint8
}

// WritesRd reports whether the instruction architecturally writes Rd.
// Writes to x0 are discarded, so a destination of x0 does not count.
func (i *Instruction) WritesRd() bool {
	if i.Rd == 0 {
		return false
	}
	switch i.Format {
	case FormatR, FormatU, FormatJ:
		return true
	case FormatI:
		return i.Op != OpECALL && i.Op != OpEBREAK && i.Op != OpFENCE
	default:
		return false
	}
}

// IsLoad reports whether the instruction reads memory.
func (i *Instruction) IsLoad() bool {
	switch i.Op {
	case OpLB, OpLH, OpLW, OpLBU, OpLHU:
		return true
	}
	return false
}

// IsStore reports whether the instruction writes memory.
func (i *Instruction) IsStore() bool {
	switch i.Op {
	case OpSB, OpSH, OpSW:
		return true
	}
	return false
}

// IsBranch reports whether the instruction can redirect control flow.
// JAL and JALR are included: both are verified in execute against the
// prediction made at fetch time.
func (i *Instruction) IsBranch() bool {
	switch i.Op {
	case OpBEQ, OpBNE, OpBLT, OpBGE, OpBLTU, OpBGEU, OpJAL, OpJALR:
		return true
	}
	return false
}

// MemSize returns the access width in bytes for loads and stores, or 0.
func (i *Instruction) MemSize() int {
	switch i.Op {
	case OpLB, OpLBU, OpSB:
		return 1
	case OpLH, OpLHU, OpSH:
		return 2
	case OpLW, OpSW:
		return 4
	}
	return 0
}

// UsesRs1 reports whether Rs1 is a real source operand.
func (i *Instruction) UsesRs1() bool {
	switch i.Format {
	case FormatR, FormatS, FormatB:
		return true
	case FormatI:
		return i.Op != OpECALL && i.Op != OpEBREAK && i.Op != OpFENCE
	default:
		return false
	}
}

// UsesRs2 reports whether Rs2 is a real source operand.
func (i *Instruction) UsesRs2() bool {
	switch i.Format {
	case FormatR, FormatS, FormatB:
		return true
	default:
		return false
	}
}
