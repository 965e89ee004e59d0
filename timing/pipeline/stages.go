package pipeline

import (
	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/insts"
)

// FetchStage reads instruction words from memory.
type FetchStage struct {
	memory *emu.Memory
}

// NewFetchStage creates a fetch stage backed directly by memory.
func NewFetchStage(memory *emu.Memory) *FetchStage {
	return &FetchStage{memory: memory}
}

// Fetch reads the instruction word at pc. ok is false when pc is
// outside the memory range.
func (s *FetchStage) Fetch(pc uint32) (word uint32, ok bool) {
	if !s.memory.InRange(pc, 4) {
		return 0, false
	}
	return s.memory.Read32(pc), true
}

// DecodeResult is the output of the decode stage for one instruction.
type DecodeResult struct {
	Inst     *insts.Instruction
	Rs1Value uint32
	Rs2Value uint32
	Rd       uint8
	Rs1      uint8
	Rs2      uint8
	MemRead  bool
	MemWrite bool
	RegWrite bool
	MemToReg bool
	IsBranch bool
	Fault    *emu.Fault
}

// DecodeStage decodes instruction words and reads source registers.
type DecodeStage struct {
	decoder *insts.Decoder
	regFile *emu.RegFile
}

// NewDecodeStage creates a decode stage.
func NewDecodeStage(regFile *emu.RegFile) *DecodeStage {
	return &DecodeStage{
		decoder: insts.NewDecoder(),
		regFile: regFile,
	}
}

// Decode decodes one instruction word and derives its control signals.
// Unrecognized encodings produce an illegal-instruction fault that
// travels down the pipeline with the instruction slot.
func (s *DecodeStage) Decode(word uint32, pc uint32) DecodeResult {
	inst := s.decoder.Decode(word)

	if inst.Op == insts.OpUnknown {
		return DecodeResult{
			Inst: inst,
			Fault: &emu.Fault{
				Kind: emu.FaultIllegalInstruction,
				PC:   pc,
				Word: word,
			},
		}
	}

	return DecodeResult{
		Inst:     inst,
		Rs1Value: s.regFile.ReadReg(inst.Rs1),
		Rs2Value: s.regFile.ReadReg(inst.Rs2),
		Rd:       inst.Rd,
		Rs1:      inst.Rs1,
		Rs2:      inst.Rs2,
		MemRead:  inst.IsLoad(),
		MemWrite: inst.IsStore(),
		RegWrite: inst.WritesRd(),
		MemToReg: inst.IsLoad(),
		IsBranch: inst.IsBranch(),
	}
}

// ExecuteResult is the output of the execute stage for one instruction.
type ExecuteResult struct {
	// ALUResult is the computed value: the ALU output, the effective
	// address for loads and stores, or the link address for jumps.
	ALUResult uint32
	// StoreValue is the value a store writes to memory.
	StoreValue uint32
	// BranchTaken is the resolved direction for branches and jumps.
	BranchTaken bool
	// BranchTarget is the resolved target for taken branches.
	BranchTarget uint32
}

// ExecuteStage performs ALU operations and resolves branches.
type ExecuteStage struct {
	alu *emu.ALU
}

// NewExecuteStage creates an execute stage.
func NewExecuteStage() *ExecuteStage {
	return &ExecuteStage{alu: emu.NewALU()}
}

// Execute runs one instruction through the execute stage. Operand
// values arrive already forwarded.
func (s *ExecuteStage) Execute(idex *IDEXRegister, rs1Value, rs2Value uint32) ExecuteResult {
	inst := idex.Inst
	pc := idex.PC

	switch {
	case inst.Op == insts.OpLUI:
		return ExecuteResult{ALUResult: uint32(inst.Imm)}

	case inst.Op == insts.OpAUIPC:
		return ExecuteResult{ALUResult: pc + uint32(inst.Imm)}

	case inst.Op == insts.OpJAL:
		return ExecuteResult{
			ALUResult:    pc + 4,
			BranchTaken:  true,
			BranchTarget: pc + uint32(inst.Imm),
		}

	case inst.Op == insts.OpJALR:
		return ExecuteResult{
			ALUResult:    pc + 4,
			BranchTaken:  true,
			BranchTarget: (rs1Value + uint32(inst.Imm)) &^ 1,
		}

	case inst.Format == insts.FormatB:
		return ExecuteResult{
			BranchTaken:  s.alu.BranchTaken(inst.Op, rs1Value, rs2Value),
			BranchTarget: pc + uint32(inst.Imm),
		}

	case inst.IsLoad():
		return ExecuteResult{ALUResult: rs1Value + uint32(inst.Imm)}

	case inst.IsStore():
		return ExecuteResult{
			ALUResult:  rs1Value + uint32(inst.Imm),
			StoreValue: rs2Value,
		}

	case inst.Op == insts.OpECALL, inst.Op == insts.OpEBREAK, inst.Op == insts.OpFENCE:
		return ExecuteResult{}

	case inst.Format == insts.FormatI:
		return ExecuteResult{
			ALUResult: s.alu.Compute(inst.Op, rs1Value, uint32(inst.Imm)),
		}

	default:
		return ExecuteResult{
			ALUResult: s.alu.Compute(inst.Op, rs1Value, rs2Value),
		}
	}
}

// MemoryResult is the output of the memory stage.
type MemoryResult struct {
	// MemData is the loaded value, extended per the load opcode.
	MemData uint32
}

// MemoryStage performs data memory accesses directly against memory,
// used when no data cache is configured. Accesses complete in the same
// cycle.
type MemoryStage struct {
	memory *emu.Memory
}

// NewMemoryStage creates a memory stage.
func NewMemoryStage(memory *emu.Memory) *MemoryStage {
	return &MemoryStage{memory: memory}
}

// Access performs the memory operation of the instruction in EX/MEM.
func (s *MemoryStage) Access(exmem *EXMEMRegister) (MemoryResult, *emu.Fault) {
	addr := exmem.ALUResult
	size := exmem.Inst.MemSize()

	if !s.memory.InRange(addr, size) {
		return MemoryResult{}, &emu.Fault{
			Kind: emu.FaultBusError,
			PC:   exmem.PC,
			Addr: addr,
		}
	}

	if exmem.MemWrite {
		switch size {
		case 1:
			s.memory.Write8(addr, uint8(exmem.StoreValue))
		case 2:
			s.memory.Write16(addr, uint16(exmem.StoreValue))
		default:
			s.memory.Write32(addr, exmem.StoreValue)
		}
		return MemoryResult{}, nil
	}

	var raw uint32
	switch size {
	case 1:
		raw = uint32(s.memory.Read8(addr))
	case 2:
		raw = uint32(s.memory.Read16(addr))
	default:
		raw = s.memory.Read32(addr)
	}

	return MemoryResult{MemData: extendLoad(exmem.Inst.Op, raw)}, nil
}

// extendLoad applies the sign or zero extension a load opcode requires.
func extendLoad(op insts.Op, raw uint32) uint32 {
	switch op {
	case insts.OpLB:
		return uint32(int32(int8(raw)))
	case insts.OpLH:
		return uint32(int32(int16(raw)))
	default:
		return raw
	}
}

// crossesLine reports whether an access of size bytes at addr straddles
// a lineSize-aligned boundary. Such an access would need two cache
// lines and is not supported.
func crossesLine(addr uint32, size, lineSize int) bool {
	if size <= 1 {
		return false
	}
	return int(addr&uint32(lineSize-1))+size > lineSize
}

// naturallyAligned reports whether addr is aligned to the access size.
func naturallyAligned(addr uint32, size int) bool {
	return size <= 1 || addr&uint32(size-1) == 0
}

// WritebackStage commits results to the register file.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a writeback stage.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{regFile: regFile}
}

// Writeback retires the instruction in MEM/WB, returning true if an
// instruction actually completed.
func (s *WritebackStage) Writeback(memwb *MEMWBRegister) bool {
	if !memwb.Valid {
		return false
	}

	if memwb.RegWrite {
		value := memwb.ALUResult
		if memwb.MemToReg {
			value = memwb.MemData
		}
		s.regFile.WriteReg(memwb.Rd, value)
	}

	return true
}
