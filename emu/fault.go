package emu

import "fmt"

// FaultKind classifies architecturally visible faults.
type FaultKind uint8

// Fault kinds. Branch mispredictions are not faults; they are handled
// entirely inside the pipeline's flush mechanism.
const (
	// FaultIllegalInstruction is raised in decode for unsupported or
	// malformed encodings.
	FaultIllegalInstruction FaultKind = iota
	// FaultMisalignedAccess is raised in the memory stage when the low
	// address bits are inconsistent with the access width.
	FaultMisalignedAccess
	// FaultBusError is raised when the bus slave answers a transaction
	// with an error response.
	FaultBusError
)

// String returns a human-readable fault kind name.
func (k FaultKind) String() string {
	switch k {
	case FaultIllegalInstruction:
		return "illegal instruction"
	case FaultMisalignedAccess:
		return "misaligned access"
	case FaultBusError:
		return "bus error"
	default:
		return "unknown fault"
	}
}

// Fault describes an architecturally visible fault. Trap-handler
// dispatch is out of scope; the core records the fault and stops
// committing the faulting instruction.
type Fault struct {
	// Kind classifies the fault.
	Kind FaultKind
	// PC is the program counter of the faulting instruction.
	PC uint32
	// Addr is the offending data address for memory faults.
	Addr uint32
	// Word is the raw instruction word for illegal-instruction faults.
	Word uint32
}

// Error implements the error interface.
func (f *Fault) Error() string {
	switch f.Kind {
	case FaultIllegalInstruction:
		return fmt.Sprintf("%v at PC 0x%X (word 0x%08X)", f.Kind, f.PC, f.Word)
	default:
		return fmt.Sprintf("%v at PC 0x%X (addr 0x%X)", f.Kind, f.PC, f.Addr)
	}
}
