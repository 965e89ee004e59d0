// Package pipeline provides the 5-stage pipeline implementation for
// timing simulation.
package pipeline

import (
	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/insts"
)

// IFIDRegister holds state between Fetch and Decode stages.
type IFIDRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	// Valid and Bubble are never both set.
	Valid bool

	// Bubble indicates an injected pipeline bubble rather than a slot
	// that simply has not been filled yet.
	Bubble bool

	// PC is the program counter of the fetched instruction.
	PC uint32

	// InstructionWord is the raw 32-bit instruction word.
	InstructionWord uint32

	// PredictedTaken indicates if the branch predictor predicted taken.
	PredictedTaken bool

	// PredictedTarget is the predicted branch target (from BTB or early
	// resolution).
	PredictedTarget uint32

	// TargetKnown indicates the BTB supplied a target for this PC.
	TargetKnown bool

	// EarlyResolved indicates a JAL whose target was computed at fetch.
	EarlyResolved bool

	// Fault carries a fetch-time fault (misaligned PC or bus error).
	Fault *emu.Fault
}

// Clear resets the IF/ID register to the empty state.
func (r *IFIDRegister) Clear() {
	*r = IFIDRegister{}
}

// MakeBubble turns the register into an explicit bubble.
func (r *IFIDRegister) MakeBubble() {
	*r = IFIDRegister{Bubble: true}
}

// IDEXRegister holds state between Decode and Execute stages.
type IDEXRegister struct {
	Valid  bool
	Bubble bool

	// PC is the program counter of the instruction.
	PC uint32

	// Inst is the decoded instruction.
	Inst *insts.Instruction

	// Register values read from the register file.
	Rs1Value uint32
	Rs2Value uint32

	// Register numbers for hazard detection.
	Rd  uint8
	Rs1 uint8
	Rs2 uint8

	// Control signals.
	MemRead  bool // True for load instructions
	MemWrite bool // True for store instructions
	RegWrite bool // True if instruction writes a register
	MemToReg bool // True if result comes from memory (load)
	IsBranch bool // True for branches and jumps

	// Branch prediction info (propagated from IF/ID).
	PredictedTaken  bool
	PredictedTarget uint32
	TargetKnown     bool
	EarlyResolved   bool

	// Fault carries a fault raised in an earlier stage.
	Fault *emu.Fault
}

// Clear resets the ID/EX register to the empty state.
func (r *IDEXRegister) Clear() {
	*r = IDEXRegister{}
}

// MakeBubble turns the register into an explicit bubble.
func (r *IDEXRegister) MakeBubble() {
	*r = IDEXRegister{Bubble: true}
}

// EXMEMRegister holds state between Execute and Memory stages.
type EXMEMRegister struct {
	Valid  bool
	Bubble bool

	// PC is the program counter of the instruction.
	PC uint32

	// Inst is the decoded instruction.
	Inst *insts.Instruction

	// ALU result (address for load/store, result for ALU ops, link
	// address for jumps).
	ALUResult uint32

	// Value to store for store instructions.
	StoreValue uint32

	// Destination register number.
	Rd uint8

	// Control signals (propagated from ID/EX).
	MemRead  bool
	MemWrite bool
	RegWrite bool
	MemToReg bool

	// Fault carries a fault raised in an earlier stage.
	Fault *emu.Fault
}

// Clear resets the EX/MEM register to the empty state.
func (r *EXMEMRegister) Clear() {
	*r = EXMEMRegister{}
}

// MakeBubble turns the register into an explicit bubble.
func (r *EXMEMRegister) MakeBubble() {
	*r = EXMEMRegister{Bubble: true}
}

// MEMWBRegister holds state between Memory and Writeback stages.
type MEMWBRegister struct {
	Valid  bool
	Bubble bool

	// PC is the program counter of the instruction.
	PC uint32

	// Inst is the decoded instruction.
	Inst *insts.Instruction

	// ALU result (for ALU instructions and jumps).
	ALUResult uint32

	// Data read from memory (for load instructions).
	MemData uint32

	// Destination register number.
	Rd uint8

	// Control signals.
	RegWrite bool
	MemToReg bool

	// Fault carries a fault to be reported when this slot retires.
	Fault *emu.Fault
}

// Clear resets the MEM/WB register to the empty state.
func (r *MEMWBRegister) Clear() {
	*r = MEMWBRegister{}
}

// MakeBubble turns the register into an explicit bubble.
func (r *MEMWBRegister) MakeBubble() {
	*r = MEMWBRegister{Bubble: true}
}
