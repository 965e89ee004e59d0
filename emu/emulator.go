package emu

import (
	"io"
	"os"

	"github.com/sarchlab/rv32sim/insts"
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Exited is true if the program terminated (via exit syscall).
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int32

	// Err is set if a fault occurred during execution.
	Err error
}

// Emulator executes RV32IM instructions functionally, one per Step.
// It is the timing-independent reference model: the pipeline must
// produce the same architectural state for every program.
type Emulator struct {
	regFile        *RegFile
	memory         *Memory
	decoder        *insts.Decoder
	alu            *ALU
	syscallHandler SyscallHandler

	// I/O
	stdout io.Writer
	stderr io.Writer

	// Execution state
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithStdout sets a custom stdout writer.
func WithStdout(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stdout = w
	}
}

// WithStderr sets a custom stderr writer.
func WithStderr(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stderr = w
	}
}

// WithSyscallHandler sets a custom syscall handler.
func WithSyscallHandler(handler SyscallHandler) EmulatorOption {
	return func(e *Emulator) {
		e.syscallHandler = handler
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// WithMemory sets a custom backing memory.
func WithMemory(memory *Memory) EmulatorOption {
	return func(e *Emulator) {
		e.memory = memory
	}
}

// NewEmulator creates a new RV32IM emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: &RegFile{},
		memory:  NewMemory(),
		decoder: insts.NewDecoder(),
		alu:     NewALU(),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.syscallHandler == nil {
		e.syscallHandler = NewDefaultSyscallHandler(e.regFile, e.memory, e.stdout, e.stderr)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// InstructionCount returns the number of instructions executed so far.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// LoadProgram copies program bytes into memory at the given address and
// sets the PC to it.
func (e *Emulator) LoadProgram(entryPoint uint32, program []byte) {
	for i, b := range program {
		e.memory.Write8(entryPoint+uint32(i), b)
	}
	e.regFile.PC = entryPoint
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	pc := e.regFile.PC
	word := e.memory.Read32(pc)
	inst := e.decoder.Decode(word)

	if inst.Op == insts.OpUnknown {
		return StepResult{Err: &Fault{
			Kind: FaultIllegalInstruction,
			PC:   pc,
			Word: word,
		}}
	}

	e.instructionCount++
	nextPC := pc + 4

	rs1 := e.regFile.ReadReg(inst.Rs1)
	rs2 := e.regFile.ReadReg(inst.Rs2)

	switch {
	case inst.Op == insts.OpLUI:
		e.regFile.WriteReg(inst.Rd, uint32(inst.Imm))

	case inst.Op == insts.OpAUIPC:
		e.regFile.WriteReg(inst.Rd, pc+uint32(inst.Imm))

	case inst.Op == insts.OpJAL:
		e.regFile.WriteReg(inst.Rd, pc+4)
		nextPC = pc + uint32(inst.Imm)

	case inst.Op == insts.OpJALR:
		target := (rs1 + uint32(inst.Imm)) &^ 1
		e.regFile.WriteReg(inst.Rd, pc+4)
		nextPC = target

	case inst.Format == insts.FormatB:
		if e.alu.BranchTaken(inst.Op, rs1, rs2) {
			nextPC = pc + uint32(inst.Imm)
		}

	case inst.IsLoad():
		value, err := e.load(inst, pc, rs1+uint32(inst.Imm))
		if err != nil {
			return StepResult{Err: err}
		}
		e.regFile.WriteReg(inst.Rd, value)

	case inst.IsStore():
		if err := e.store(inst, pc, rs1+uint32(inst.Imm), rs2); err != nil {
			return StepResult{Err: err}
		}

	case inst.Op == insts.OpECALL:
		result := e.syscallHandler.Handle()
		if result.Exited {
			return StepResult{Exited: true, ExitCode: result.ExitCode}
		}

	case inst.Op == insts.OpEBREAK, inst.Op == insts.OpFENCE:
		// No architectural effect in this model.

	case inst.Format == insts.FormatI:
		e.regFile.WriteReg(inst.Rd, e.alu.Compute(inst.Op, rs1, uint32(inst.Imm)))

	case inst.Format == insts.FormatR:
		e.regFile.WriteReg(inst.Rd, e.alu.Compute(inst.Op, rs1, rs2))
	}

	e.regFile.PC = nextPC

	return StepResult{}
}

// load performs a load with the sign/zero extension the opcode requires.
func (e *Emulator) load(inst *insts.Instruction, pc, addr uint32) (uint32, error) {
	switch inst.Op {
	case insts.OpLB:
		return uint32(int32(int8(e.memory.Read8(addr)))), nil
	case insts.OpLBU:
		return uint32(e.memory.Read8(addr)), nil
	case insts.OpLH:
		return uint32(int32(int16(e.memory.Read16(addr)))), nil
	case insts.OpLHU:
		return uint32(e.memory.Read16(addr)), nil
	case insts.OpLW:
		return e.memory.Read32(addr), nil
	}
	return 0, &Fault{Kind: FaultIllegalInstruction, PC: pc}
}

// store performs a store of the width the opcode requires.
func (e *Emulator) store(inst *insts.Instruction, pc, addr, value uint32) error {
	switch inst.Op {
	case insts.OpSB:
		e.memory.Write8(addr, uint8(value))
	case insts.OpSH:
		e.memory.Write16(addr, uint16(value))
	case insts.OpSW:
		e.memory.Write32(addr, value)
	default:
		return &Fault{Kind: FaultIllegalInstruction, PC: pc}
	}
	return nil
}

// Run executes instructions until the program exits, faults, or the
// instruction limit is reached. Returns the exit code.
func (e *Emulator) Run() int32 {
	for {
		if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
			return 0
		}

		result := e.Step()
		if result.Exited {
			return result.ExitCode
		}
		if result.Err != nil {
			return -1
		}
	}
}
