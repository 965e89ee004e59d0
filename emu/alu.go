package emu

import (
	"github.com/sarchlab/rv32sim/insts"
)

// ALU implements the RV32IM integer operations as pure functions of the
// operands and opcode. It holds no state and has no side effects; faults
// for unsupported opcodes are raised earlier, in decode.
type ALU struct{}

// NewALU creates a new ALU.
func NewALU() *ALU {
	return &ALU{}
}

// Compute evaluates op over two 32-bit operands.
// For I-format ALU instructions the caller passes the immediate as b.
func (a *ALU) Compute(op insts.Op, x, y uint32) uint32 {
	switch op {
	case insts.OpADD, insts.OpADDI:
		return x + y
	case insts.OpSUB:
		return x - y
	case insts.OpAND, insts.OpANDI:
		return x & y
	case insts.OpOR, insts.OpORI:
		return x | y
	case insts.OpXOR, insts.OpXORI:
		return x ^ y
	case insts.OpSLL, insts.OpSLLI:
		return x << (y & 0x1F)
	case insts.OpSRL, insts.OpSRLI:
		return x >> (y & 0x1F)
	case insts.OpSRA, insts.OpSRAI:
		return uint32(int32(x) >> (y & 0x1F))
	case insts.OpSLT, insts.OpSLTI:
		if int32(x) < int32(y) {
			return 1
		}
		return 0
	case insts.OpSLTU, insts.OpSLTIU:
		if x < y {
			return 1
		}
		return 0

	case insts.OpMUL:
		return x * y
	case insts.OpMULH:
		return uint32(uint64(int64(int32(x))*int64(int32(y))) >> 32)
	case insts.OpMULHSU:
		return uint32(uint64(int64(int32(x))*int64(y)) >> 32)
	case insts.OpMULHU:
		return uint32(uint64(x) * uint64(y) >> 32)

	case insts.OpDIV:
		return divSigned(x, y)
	case insts.OpDIVU:
		if y == 0 {
			return 0xFFFFFFFF
		}
		return x / y
	case insts.OpREM:
		return remSigned(x, y)
	case insts.OpREMU:
		if y == 0 {
			return x
		}
		return x % y
	}

	return 0
}

// divSigned implements DIV with the M-extension edge cases: division by
// zero yields all ones, and MinInt32 / -1 yields MinInt32.
func divSigned(x, y uint32) uint32 {
	dividend := int32(x)
	divisor := int32(y)

	if divisor == 0 {
		return 0xFFFFFFFF
	}
	if dividend == -1<<31 && divisor == -1 {
		return uint32(dividend)
	}
	return uint32(dividend / divisor)
}

// remSigned implements REM: remainder by zero yields the dividend, and
// the MinInt32 / -1 overflow case yields zero.
func remSigned(x, y uint32) uint32 {
	dividend := int32(x)
	divisor := int32(y)

	if divisor == 0 {
		return x
	}
	if dividend == -1<<31 && divisor == -1 {
		return 0
	}
	return uint32(dividend % divisor)
}

// BranchTaken evaluates a conditional branch comparison.
func (a *ALU) BranchTaken(op insts.Op, x, y uint32) bool {
	switch op {
	case insts.OpBEQ:
		return x == y
	case insts.OpBNE:
		return x != y
	case insts.OpBLT:
		return int32(x) < int32(y)
	case insts.OpBGE:
		return int32(x) >= int32(y)
	case insts.OpBLTU:
		return x < y
	case insts.OpBGEU:
		return x >= y
	}
	return false
}
