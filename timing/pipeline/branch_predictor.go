package pipeline

// BranchPredictorConfig holds configuration for the branch predictor.
type BranchPredictorConfig struct {
	// BHTSize is the number of entries in the Branch History Table.
	// Must be a power of 2. Default is 1024.
	BHTSize uint32
	// BTBSize is the number of entries in the Branch Target Buffer.
	// Must be a power of 2. Default is 256.
	BTBSize uint32
}

// DefaultBranchPredictorConfig returns a default configuration.
func DefaultBranchPredictorConfig() BranchPredictorConfig {
	return BranchPredictorConfig{
		BHTSize: 1024,
		BTBSize: 256,
	}
}

// BranchPredictorStats holds statistics for the branch predictor.
type BranchPredictorStats struct {
	// Predictions is the total number of lookups, one per fetched
	// instruction.
	Predictions uint64
	// Correct is the number of correct predictions among resolved
	// branches.
	Correct uint64
	// Mispredictions is the number of incorrect predictions among
	// resolved branches.
	Mispredictions uint64
	// BTBHits is the number of BTB hits.
	BTBHits uint64
	// BTBMisses is the number of BTB misses.
	BTBMisses uint64
}

// Accuracy returns the percentage of resolved branches that were
// predicted correctly.
func (s BranchPredictorStats) Accuracy() float64 {
	resolved := s.Correct + s.Mispredictions
	if resolved == 0 {
		return 0
	}
	return float64(s.Correct) / float64(resolved) * 100
}

// MispredictionRate returns the percentage of resolved branches that
// were mispredicted.
func (s BranchPredictorStats) MispredictionRate() float64 {
	resolved := s.Correct + s.Mispredictions
	if resolved == 0 {
		return 0
	}
	return float64(s.Mispredictions) / float64(resolved) * 100
}

// BTBHitRate returns the BTB hit rate as a percentage.
func (s BranchPredictorStats) BTBHitRate() float64 {
	total := s.BTBHits + s.BTBMisses
	if total == 0 {
		return 0
	}
	return float64(s.BTBHits) / float64(total) * 100
}

// Prediction represents a branch prediction result.
type Prediction struct {
	// Taken indicates whether the branch is predicted taken.
	Taken bool
	// Target is the predicted target address (if known from the BTB).
	Target uint32
	// TargetKnown indicates whether the target address is known. A
	// taken prediction without a known target cannot redirect fetch,
	// so the effective prediction falls back to not-taken.
	TargetKnown bool
}

// Effective reports whether the prediction actually redirects fetch.
func (p Prediction) Effective() bool {
	return p.Taken && p.TargetKnown
}

// BranchPredictor implements a 2-bit saturating counter (bimodal)
// predictor with a tagged Branch Target Buffer.
type BranchPredictor struct {
	// Branch History Table (BHT) - 2-bit saturating counters.
	// States: 0=Strongly Not Taken, 1=Weakly Not Taken,
	//         2=Weakly Taken, 3=Strongly Taken
	bht []uint8

	// Branch Target Buffer. Entries are tagged with the full branch PC
	// so an index collision never yields a bogus target.
	btb      []btbEntry
	btbValid []bool

	bhtSize uint32
	btbSize uint32

	stats BranchPredictorStats
}

// btbEntry represents an entry in the Branch Target Buffer.
type btbEntry struct {
	pc     uint32 // The PC of the branch instruction
	target uint32 // The target address
}

// NewBranchPredictor creates a new branch predictor with the given
// configuration.
func NewBranchPredictor(config BranchPredictorConfig) *BranchPredictor {
	bhtSize := config.BHTSize
	btbSize := config.BTBSize

	if bhtSize == 0 {
		bhtSize = 1024
	}
	if btbSize == 0 {
		btbSize = 256
	}

	bp := &BranchPredictor{
		bht:      make([]uint8, bhtSize),
		btb:      make([]btbEntry, btbSize),
		btbValid: make([]bool, btbSize),
		bhtSize:  bhtSize,
		btbSize:  btbSize,
	}

	// Cold counters start weakly not-taken, so an untrained branch
	// predicts fall-through.
	for i := range bp.bht {
		bp.bht[i] = 1
	}

	return bp
}

// bhtIndex computes the BHT index for a given PC.
func (bp *BranchPredictor) bhtIndex(pc uint32) uint32 {
	// Use lower bits of PC (excluding alignment bits)
	return (pc >> 2) & (bp.bhtSize - 1)
}

// btbIndex computes the BTB index for a given PC.
func (bp *BranchPredictor) btbIndex(pc uint32) uint32 {
	return (pc >> 2) & (bp.btbSize - 1)
}

// Predict makes a branch prediction for the given PC.
func (bp *BranchPredictor) Predict(pc uint32) Prediction {
	pred := Prediction{}

	counter := bp.bht[bp.bhtIndex(pc)]
	pred.Taken = counter >= 2

	btbIdx := bp.btbIndex(pc)
	if bp.btbValid[btbIdx] && bp.btb[btbIdx].pc == pc {
		pred.Target = bp.btb[btbIdx].target
		pred.TargetKnown = true
		bp.stats.BTBHits++
	} else {
		bp.stats.BTBMisses++
	}

	bp.stats.Predictions++
	return pred
}

// Update trains the predictor with the actual branch outcome.
func (bp *BranchPredictor) Update(pc uint32, taken bool, target uint32) {
	bhtIdx := bp.bhtIndex(pc)
	counter := bp.bht[bhtIdx]

	predicted := counter >= 2
	if predicted == taken {
		bp.stats.Correct++
	} else {
		bp.stats.Mispredictions++
	}

	// 2-bit saturating counter update.
	if taken {
		if counter < 3 {
			bp.bht[bhtIdx] = counter + 1
		}
	} else {
		if counter > 0 {
			bp.bht[bhtIdx] = counter - 1
		}
	}

	// The BTB learns targets of taken branches.
	if taken {
		btbIdx := bp.btbIndex(pc)
		bp.btb[btbIdx] = btbEntry{
			pc:     pc,
			target: target,
		}
		bp.btbValid[btbIdx] = true
	}
}

// Stats returns the branch predictor statistics.
func (bp *BranchPredictor) Stats() BranchPredictorStats {
	return bp.stats
}

// Reset clears all predictor state and statistics.
func (bp *BranchPredictor) Reset() {
	for i := range bp.bht {
		bp.bht[i] = 1
	}

	for i := range bp.btbValid {
		bp.btbValid[i] = false
	}

	bp.stats = BranchPredictorStats{}
}
