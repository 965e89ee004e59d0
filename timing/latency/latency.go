// Package latency provides instruction timing models for cycle-accurate
// simulation.
//
// The latency values can be configured via TimingConfig and loaded from
// a JSON file.
package latency

import (
	"github.com/sarchlab/rv32sim/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing
// configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the execute-stage latency in cycles for the given
// instruction.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 1
	}

	switch inst.Op {
	case insts.OpMUL, insts.OpMULH, insts.OpMULHSU, insts.OpMULHU:
		return t.config.MultiplyLatency

	case insts.OpDIV, insts.OpDIVU, insts.OpREM, insts.OpREMU:
		return t.config.DivideLatency

	case insts.OpECALL, insts.OpEBREAK:
		return t.config.SyscallLatency

	default:
	}

	switch {
	case inst.IsLoad():
		return t.config.LoadLatency
	case inst.IsStore():
		return t.config.StoreLatency
	case inst.IsBranch():
		return t.config.BranchLatency
	default:
		return t.config.ALULatency
	}
}

// IsMemoryOp returns true if the instruction accesses memory.
func (t *Table) IsMemoryOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	return inst.IsLoad() || inst.IsStore()
}

// IsMultiCycleOp returns true if the instruction occupies the execute
// stage for more than one cycle.
func (t *Table) IsMultiCycleOp(inst *insts.Instruction) bool {
	return t.GetLatency(inst) > 1
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
