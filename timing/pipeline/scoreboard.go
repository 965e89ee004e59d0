package pipeline

// Stage identifies the pipeline stage an in-flight result lives in.
type Stage int

// Pipeline stages that can hold a pending register write.
const (
	StageEX Stage = iota
	StageMEM
	StageWB
)

// ScoreboardEntry records one in-flight register write.
type ScoreboardEntry struct {
	// Rd is the destination register.
	Rd uint8
	// Stage is where the producing instruction currently is.
	Stage Stage
	// IsLoad is true when the value comes from memory and is not
	// available until the producing instruction passes MEM.
	IsLoad bool
}

// Scoreboard tracks pending register writes in the pipeline. It is
// rebuilt from the pipeline registers at the start of every cycle, so
// it can never drift out of sync with them.
type Scoreboard struct {
	entries []ScoreboardEntry
}

// NewScoreboard creates an empty scoreboard.
func NewScoreboard() *Scoreboard {
	return &Scoreboard{
		entries: make([]ScoreboardEntry, 0, 3),
	}
}

// Rebuild derives the scoreboard from the current pipeline registers.
// Entries are ordered youngest first, so lookups naturally prefer the
// most recent producer of a register.
func (s *Scoreboard) Rebuild(idex *IDEXRegister, exmem *EXMEMRegister, memwb *MEMWBRegister) {
	s.entries = s.entries[:0]

	if idex.Valid && idex.RegWrite && idex.Rd != 0 {
		s.entries = append(s.entries, ScoreboardEntry{
			Rd:     idex.Rd,
			Stage:  StageEX,
			IsLoad: idex.MemRead,
		})
	}

	if exmem.Valid && exmem.RegWrite && exmem.Rd != 0 {
		s.entries = append(s.entries, ScoreboardEntry{
			Rd:     exmem.Rd,
			Stage:  StageMEM,
			IsLoad: exmem.MemRead,
		})
	}

	if memwb.Valid && memwb.RegWrite && memwb.Rd != 0 {
		s.entries = append(s.entries, ScoreboardEntry{
			Rd:     memwb.Rd,
			Stage:  StageWB,
			IsLoad: memwb.MemToReg,
		})
	}
}

// Lookup returns the youngest pending write to reg. x0 never has a
// pending write.
func (s *Scoreboard) Lookup(reg uint8) (ScoreboardEntry, bool) {
	if reg == 0 {
		return ScoreboardEntry{}, false
	}

	for _, entry := range s.entries {
		if entry.Rd == reg {
			return entry, true
		}
	}

	return ScoreboardEntry{}, false
}

// Pending reports whether any write to reg is in flight.
func (s *Scoreboard) Pending(reg uint8) bool {
	_, ok := s.Lookup(reg)
	return ok
}
