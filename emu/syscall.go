package emu

import (
	"io"
)

// Linux RISC-V syscall numbers handled by the default handler.
const (
	// SyscallWrite is the write(2) syscall number.
	SyscallWrite = 64
	// SyscallExit is the exit(2) syscall number.
	SyscallExit = 93
)

// SyscallResult represents the outcome of handling an ECALL.
type SyscallResult struct {
	// Exited is true if the program requested termination.
	Exited bool
	// ExitCode is the exit status if Exited is true.
	ExitCode int32
}

// SyscallHandler handles ECALL instructions.
type SyscallHandler interface {
	// Handle processes the syscall identified by the current register
	// state (a7 holds the syscall number, a0-a2 the arguments).
	Handle() SyscallResult
}

// DefaultSyscallHandler implements the minimal Linux RISC-V syscall
// surface the simulator needs: exit and write.
type DefaultSyscallHandler struct {
	regFile *RegFile
	memory  *Memory
	stdout  io.Writer
	stderr  io.Writer
}

// NewDefaultSyscallHandler creates a syscall handler bound to the given
// register file, memory, and output writers. Nil writers discard output.
func NewDefaultSyscallHandler(regFile *RegFile, memory *Memory, stdout, stderr io.Writer) *DefaultSyscallHandler {
	return &DefaultSyscallHandler{
		regFile: regFile,
		memory:  memory,
		stdout:  stdout,
		stderr:  stderr,
	}
}

// Handle processes the pending ECALL.
// a7 (x17) selects the syscall; a0-a2 (x10-x12) carry the arguments.
// The return value, if any, is written to a0.
func (h *DefaultSyscallHandler) Handle() SyscallResult {
	num := h.regFile.ReadReg(17)

	switch num {
	case SyscallExit:
		return SyscallResult{
			Exited:   true,
			ExitCode: int32(h.regFile.ReadReg(10)),
		}

	case SyscallWrite:
		fd := h.regFile.ReadReg(10)
		addr := h.regFile.ReadReg(11)
		count := h.regFile.ReadReg(12)

		buf := make([]byte, count)
		for i := uint32(0); i < count; i++ {
			buf[i] = h.memory.Read8(addr + i)
		}

		var w io.Writer
		switch fd {
		case 1:
			w = h.stdout
		case 2:
			w = h.stderr
		}

		if w != nil {
			n, err := w.Write(buf)
			if err != nil {
				h.regFile.WriteReg(10, 0xFFFFFFFF)
				return SyscallResult{}
			}
			h.regFile.WriteReg(10, uint32(n))
		} else {
			h.regFile.WriteReg(10, count)
		}

	default:
		// Unhandled syscalls report failure without terminating.
		h.regFile.WriteReg(10, 0xFFFFFFFF)
	}

	return SyscallResult{}
}
