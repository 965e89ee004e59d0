package pipeline

// ForwardSource indicates where a forwarded value should come from.
type ForwardSource int

const (
	// ForwardNone means no forwarding needed - use register file value.
	ForwardNone ForwardSource = iota
	// ForwardFromEXMEM means forward from the EX/MEM pipeline register.
	ForwardFromEXMEM
	// ForwardFromMEMWB means forward from the MEM/WB pipeline register.
	ForwardFromMEMWB
)

// ForwardingResult contains forwarding decisions for the operands of
// the instruction in the execute stage.
type ForwardingResult struct {
	// ForwardRs1 specifies the forwarding source for the rs1 operand.
	ForwardRs1 ForwardSource
	// ForwardRs2 specifies the forwarding source for the rs2 operand.
	ForwardRs2 ForwardSource
}

// StallResult contains stall and flush control signals.
type StallResult struct {
	// StallIF indicates the IF stage should hold its instruction.
	StallIF bool
	// StallID indicates the ID stage should stall.
	StallID bool
	// InsertBubbleEX indicates a bubble should be inserted in EX.
	InsertBubbleEX bool
	// FlushIF indicates the IF stage should be flushed (misprediction).
	FlushIF bool
	// FlushID indicates the ID stage should be flushed (misprediction).
	FlushID bool
}

// HazardUnit detects data hazards and determines forwarding and stall
// signals from the register scoreboard.
type HazardUnit struct {
	scoreboard *Scoreboard
}

// NewHazardUnit creates a new hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{
		scoreboard: NewScoreboard(),
	}
}

// Scoreboard returns the hazard unit's register scoreboard.
func (h *HazardUnit) Scoreboard() *Scoreboard {
	return h.scoreboard
}

// DetectForwarding determines forwarding for the instruction in ID/EX.
// A producer still in EX is the consulting instruction itself and is
// never a forwarding source; producers in MEM and WB are, with the
// younger one taking priority.
func (h *HazardUnit) DetectForwarding(idex *IDEXRegister) ForwardingResult {
	result := ForwardingResult{
		ForwardRs1: ForwardNone,
		ForwardRs2: ForwardNone,
	}

	if !idex.Valid {
		return result
	}

	if idex.Inst.UsesRs1() {
		result.ForwardRs1 = h.forwardSourceFor(idex.Rs1)
	}
	if idex.Inst.UsesRs2() {
		result.ForwardRs2 = h.forwardSourceFor(idex.Rs2)
	}

	return result
}

func (h *HazardUnit) forwardSourceFor(reg uint8) ForwardSource {
	if reg == 0 {
		return ForwardNone
	}

	for _, entry := range h.scoreboard.entries {
		if entry.Rd != reg || entry.Stage == StageEX {
			continue
		}

		switch entry.Stage {
		case StageMEM:
			return ForwardFromEXMEM
		case StageWB:
			return ForwardFromMEMWB
		}
	}

	return ForwardNone
}

// DetectLoadUseHazard reports whether the instruction about to enter
// execute depends on a load still in the execute stage. The loaded
// value is not available until after MEM, so the consumer must stall
// one cycle; every other RAW dependency is covered by forwarding.
func (h *HazardUnit) DetectLoadUseHazard(rs1, rs2 uint8, usesRs1, usesRs2 bool) bool {
	if usesRs1 {
		if entry, ok := h.scoreboard.Lookup(rs1); ok && entry.Stage == StageEX && entry.IsLoad {
			return true
		}
	}
	if usesRs2 {
		if entry, ok := h.scoreboard.Lookup(rs2); ok && entry.Stage == StageEX && entry.IsLoad {
			return true
		}
	}
	return false
}

// ComputeStalls computes stall and flush signals from the hazard
// conditions of the current cycle.
func (h *HazardUnit) ComputeStalls(loadUseHazard bool, mispredicted bool) StallResult {
	result := StallResult{}

	// Load-use hazard: hold IF and ID, insert a bubble in EX.
	if loadUseHazard {
		result.StallIF = true
		result.StallID = true
		result.InsertBubbleEX = true
	}

	// Misprediction: discard the wrong-path instructions in IF and ID.
	if mispredicted {
		result.FlushIF = true
		result.FlushID = true
	}

	return result
}

// GetForwardedValue returns the operand value to use given a forwarding
// decision. The memwb argument must be the MEM/WB register as it was
// before this cycle's writeback, so a value being written back this
// cycle still forwards.
func (h *HazardUnit) GetForwardedValue(
	forward ForwardSource,
	originalValue uint32,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) uint32 {
	switch forward {
	case ForwardFromEXMEM:
		return exmem.ALUResult
	case ForwardFromMEMWB:
		if memwb.MemToReg {
			return memwb.MemData
		}
		return memwb.ALUResult
	default:
		return originalValue
	}
}
