package pipeline

import (
	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/insts"
	"github.com/sarchlab/rv32sim/timing/bus"
	"github.com/sarchlab/rv32sim/timing/cache"
	"github.com/sarchlab/rv32sim/timing/latency"
)

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of cycles the front end was held.
	Stalls uint64
	// FetchStalls is the number of cycles fetch waited on the I-cache.
	FetchStalls uint64
	// ExecStalls is the number of stall cycles from multi-cycle execute.
	ExecStalls uint64
	// MemStalls is the number of stall cycles from data memory.
	MemStalls uint64
	// DataHazards is the number of RAW hazards resolved by forwarding.
	DataHazards uint64
	// Flushes is the number of pipeline flushes from mispredictions.
	Flushes uint64
	// BranchPredictions is the number of branches resolved in execute.
	BranchPredictions uint64
	// BranchCorrect is the number of correctly predicted branches.
	BranchCorrect uint64
	// BranchMispredictions is the number of mispredicted branches.
	BranchMispredictions uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// BranchAccuracy returns the percentage of executed branches whose
// prediction was correct.
func (s Statistics) BranchAccuracy() float64 {
	if s.BranchPredictions == 0 {
		return 0
	}
	return float64(s.BranchCorrect) / float64(s.BranchPredictions) * 100
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithSyscallHandler sets a custom syscall handler.
func WithSyscallHandler(handler emu.SyscallHandler) PipelineOption {
	return func(p *Pipeline) {
		p.syscallHandler = handler
	}
}

// WithLatencyTable sets a custom latency table for instruction timing.
// Multi-cycle operations then occupy the execute stage for their full
// latency, stalling upstream stages.
func WithLatencyTable(table *latency.Table) PipelineOption {
	return func(p *Pipeline) {
		p.latencyTable = table
	}
}

// WithICache enables an L1 instruction cache with the given
// configuration.
func WithICache(config cache.Config) PipelineOption {
	return func(p *Pipeline) {
		p.icacheConfig = &config
	}
}

// WithDCache enables an L1 data cache with the given configuration.
func WithDCache(config cache.Config) PipelineOption {
	return func(p *Pipeline) {
		p.dcacheConfig = &config
	}
}

// WithDefaultCaches enables the L1 I-cache and D-cache with their
// default configurations.
func WithDefaultCaches() PipelineOption {
	return func(p *Pipeline) {
		ic := cache.DefaultIConfig()
		dc := cache.DefaultDConfig()
		p.icacheConfig = &ic
		p.dcacheConfig = &dc
	}
}

// WithMemoryLatency sets the per-word access latency of the backing
// memory behind the caches.
func WithMemoryLatency(cycles int) PipelineOption {
	return func(p *Pipeline) {
		p.memLatency = cycles
	}
}

// WithStrictAlignment makes every load and store fault unless the
// address is naturally aligned to the access size. By default only
// accesses that straddle a cache line boundary fault.
func WithStrictAlignment() PipelineOption {
	return func(p *Pipeline) {
		p.strictAlign = true
	}
}

// WithBranchPredictorConfig sets the branch predictor table sizes.
func WithBranchPredictorConfig(config BranchPredictorConfig) PipelineOption {
	return func(p *Pipeline) {
		p.branchPredictor = NewBranchPredictor(config)
	}
}

// Pipeline implements a 5-stage in-order pipelined CPU model.
// Stages: Fetch (IF) -> Decode (ID) -> Execute (EX) -> Memory (MEM) ->
// Writeback (WB). One tick evaluates the stages in reverse order so
// each stage consumes the registers as the previous cycle left them,
// and latches the next-cycle values at the end.
type Pipeline struct {
	// Pipeline registers
	ifid  IFIDRegister
	idex  IDEXRegister
	exmem EXMEMRegister
	memwb MEMWBRegister

	// Pipeline stages
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	// Caches (optional)
	icacheConfig *cache.Config
	dcacheConfig *cache.Config
	icache       *cache.Cache
	dcache       *cache.Cache
	memLatency   int

	// Hazard detection
	hazardUnit *HazardUnit

	// Branch prediction
	branchPredictor *BranchPredictor

	// Instruction timing
	latencyTable *latency.Table
	exLatency    uint64 // Remaining cycles for the execute stage

	// Operand values latched on the first execute cycle. Downstream
	// stages drain during an execute stall, so the producers of a
	// multi-cycle op can retire before it completes; forwarding is
	// resolved once, when the op enters execute.
	exRs1Value uint32
	exRs2Value uint32

	// A decoder for peeking at not-yet-decoded instruction words during
	// hazard detection and early branch resolution.
	peekDecoder *insts.Decoder

	// Shared resources
	regFile *emu.RegFile
	memory  *emu.Memory

	// Syscall handling
	syscallHandler emu.SyscallHandler

	// Program counter
	pc uint32

	// Alignment policy
	strictAlign bool
	lineSize    int

	// Fetch is suppressed once a fetch fault is in flight, until a
	// flush redirects the front end.
	fetchStopped bool

	// Statistics
	stats Statistics

	// Execution state
	halted   bool
	exitCode int32
	fault    *emu.Fault
}

// NewPipeline creates a new 5-stage pipeline.
func NewPipeline(regFile *emu.RegFile, memory *emu.Memory, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		fetchStage:      NewFetchStage(memory),
		decodeStage:     NewDecodeStage(regFile),
		executeStage:    NewExecuteStage(),
		memoryStage:     NewMemoryStage(memory),
		writebackStage:  NewWritebackStage(regFile),
		hazardUnit:      NewHazardUnit(),
		branchPredictor: NewBranchPredictor(DefaultBranchPredictorConfig()),
		peekDecoder:     insts.NewDecoder(),
		regFile:         regFile,
		memory:          memory,
		memLatency:      2,
		lineSize:        16,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.icacheConfig != nil {
		slave := bus.NewMemorySlave(memory, bus.WithAccessLatency(p.memLatency))
		p.icache = cache.New(*p.icacheConfig, slave)
	}
	if p.dcacheConfig != nil {
		slave := bus.NewMemorySlave(memory, bus.WithAccessLatency(p.memLatency))
		p.dcache = cache.New(*p.dcacheConfig, slave)
		p.lineSize = p.dcacheConfig.BlockSize
	}

	if p.syscallHandler == nil {
		p.syscallHandler = emu.NewDefaultSyscallHandler(regFile, memory, nil, nil)
	}

	return p
}

// PC returns the current program counter.
func (p *Pipeline) PC() uint32 {
	return p.pc
}

// SetPC sets the program counter.
func (p *Pipeline) SetPC(pc uint32) {
	p.pc = pc
	p.regFile.PC = pc
}

// GetIFID returns the IF/ID pipeline register.
func (p *Pipeline) GetIFID() *IFIDRegister {
	return &p.ifid
}

// GetIDEX returns the ID/EX pipeline register.
func (p *Pipeline) GetIDEX() *IDEXRegister {
	return &p.idex
}

// GetEXMEM returns the EX/MEM pipeline register.
func (p *Pipeline) GetEXMEM() *EXMEMRegister {
	return &p.exmem
}

// GetMEMWB returns the MEM/WB pipeline register.
func (p *Pipeline) GetMEMWB() *MEMWBRegister {
	return &p.memwb
}

// Halted reports whether execution has stopped.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// ExitCode returns the program's exit code once halted.
func (p *Pipeline) ExitCode() int32 {
	return p.exitCode
}

// Fault returns the fault that stopped execution, or nil.
func (p *Pipeline) Fault() *emu.Fault {
	return p.fault
}

// Statistics returns a copy of the pipeline statistics.
func (p *Pipeline) Statistics() Statistics {
	return p.stats
}

// BranchPredictorStats returns the branch predictor statistics.
func (p *Pipeline) BranchPredictorStats() BranchPredictorStats {
	return p.branchPredictor.Stats()
}

// ICacheStatistics returns the I-cache counters, or zero values when no
// I-cache is configured.
func (p *Pipeline) ICacheStatistics() cache.Statistics {
	if p.icache == nil {
		return cache.Statistics{}
	}
	return p.icache.Statistics()
}

// DCacheStatistics returns the D-cache counters, or zero values when no
// D-cache is configured.
func (p *Pipeline) DCacheStatistics() cache.Statistics {
	if p.dcache == nil {
		return cache.Statistics{}
	}
	return p.dcache.Statistics()
}

// Reset returns the pipeline to its power-on state: registers cleared,
// predictor and caches cold, statistics zeroed. Memory contents are
// left alone.
func (p *Pipeline) Reset() {
	p.ifid.Clear()
	p.idex.Clear()
	p.exmem.Clear()
	p.memwb.Clear()
	p.branchPredictor.Reset()
	if p.icache != nil {
		p.icache.Reset()
	}
	if p.dcache != nil {
		p.dcache.Reset()
	}
	p.exLatency = 0
	p.exRs1Value = 0
	p.exRs2Value = 0
	p.fetchStopped = false
	p.stats = Statistics{}
	p.halted = false
	p.exitCode = 0
	p.fault = nil
}

func (p *Pipeline) getExLatency(inst *insts.Instruction) uint64 {
	if p.latencyTable == nil {
		return 1
	}
	return p.latencyTable.GetLatency(inst)
}

// Tick advances the pipeline by one cycle.
func (p *Pipeline) Tick() {
	if p.halted {
		return
	}
	p.stats.Cycles++

	if p.icache != nil {
		p.icache.Tick()
	}
	if p.dcache != nil {
		p.dcache.Tick()
	}

	// The scoreboard is rebuilt every cycle from the pipeline registers
	// as they stand at the start of the cycle.
	p.hazardUnit.Scoreboard().Rebuild(&p.idex, &p.exmem, &p.memwb)

	forwarding := p.hazardUnit.DetectForwarding(&p.idex)
	if forwarding.ForwardRs1 != ForwardNone || forwarding.ForwardRs2 != ForwardNone {
		p.stats.DataHazards++
	}

	loadUseHazard := p.detectLoadUse()

	// Stage 5: Writeback
	savedMEMWB := p.memwb
	if p.memwb.Valid && p.memwb.Fault != nil {
		p.halted = true
		p.fault = p.memwb.Fault
		return
	}
	if p.writebackStage.Writeback(&p.memwb) {
		p.stats.Instructions++
	}

	// Stage 4: Memory
	nextMEMWB, memStall := p.tickMemory()

	// Stage 3: Execute
	nextEXMEM, execStall, mispredicted, redirectPC :=
		p.tickExecute(&forwarding, &savedMEMWB, memStall)

	stallResult := p.hazardUnit.ComputeStalls(
		loadUseHazard || execStall || memStall, mispredicted)

	// Stage 1: Fetch
	var nextIFID IFIDRegister
	if !stallResult.StallIF && !stallResult.FlushIF {
		nextIFID = p.fetch()
	} else if stallResult.StallIF && !stallResult.FlushIF {
		nextIFID = p.ifid
		p.stats.Stalls++
	}

	// Stage 2: Decode
	nextIDEX := p.tickDecode(&stallResult, execStall, memStall)

	// Misprediction: redirect the front end and squash the wrong-path
	// instructions in IF and ID.
	if mispredicted {
		p.pc = redirectPC
		nextIFID.MakeBubble()
		nextIDEX.MakeBubble()
		p.fetchStopped = false
		p.stats.Flushes++
	}

	// Latch pipeline registers. A stalled stage holds its input
	// register and feeds a bubble downstream.
	if !memStall {
		p.memwb = nextMEMWB
	} else {
		p.memwb.MakeBubble()
	}
	if !memStall {
		if execStall {
			p.exmem.MakeBubble()
		} else {
			p.exmem = nextEXMEM
		}
	}
	if stallResult.InsertBubbleEX && !execStall && !memStall {
		p.idex.MakeBubble()
	} else if !memStall {
		p.idex = nextIDEX
	}
	p.ifid = nextIFID
}

// detectLoadUse peeks at the instruction waiting in IF/ID and asks the
// hazard unit whether it consumes a load still in execute.
func (p *Pipeline) detectLoadUse() bool {
	if !p.ifid.Valid || p.ifid.Fault != nil {
		return false
	}

	next := p.peekDecoder.Decode(p.ifid.InstructionWord)
	if next.Op == insts.OpUnknown {
		return false
	}

	return p.hazardUnit.DetectLoadUseHazard(
		next.Rs1, next.Rs2, next.UsesRs1(), next.UsesRs2())
}

// tickMemory evaluates the MEM stage, returning the next MEM/WB value
// and whether the stage stalled on the data cache.
func (p *Pipeline) tickMemory() (MEMWBRegister, bool) {
	var nextMEMWB MEMWBRegister

	if !p.exmem.Valid {
		if p.exmem.Bubble {
			nextMEMWB.MakeBubble()
		}
		return nextMEMWB, false
	}

	var memResult MemoryResult
	var memFault *emu.Fault

	switch {
	case p.exmem.Fault != nil:
		memFault = p.exmem.Fault

	case p.exmem.Inst.Op == insts.OpECALL:
		result := p.syscallHandler.Handle()
		if result.Exited {
			p.halted = true
			p.exitCode = result.ExitCode
		}

	case p.exmem.MemRead || p.exmem.MemWrite:
		memFault = p.checkAlignment()
		if memFault == nil {
			var stall bool
			memResult, stall, memFault = p.accessDataMemory()
			if stall {
				p.stats.MemStalls++
				return MEMWBRegister{}, true
			}
		}
	}

	nextMEMWB = MEMWBRegister{
		Valid:     true,
		PC:        p.exmem.PC,
		Inst:      p.exmem.Inst,
		ALUResult: p.exmem.ALUResult,
		MemData:   memResult.MemData,
		Rd:        p.exmem.Rd,
		RegWrite:  p.exmem.RegWrite,
		MemToReg:  p.exmem.MemToReg,
		Fault:     memFault,
	}
	if memFault != nil {
		nextMEMWB.RegWrite = false
		nextMEMWB.MemToReg = false
	}

	return nextMEMWB, false
}

// checkAlignment applies the alignment policy to the access in EX/MEM.
func (p *Pipeline) checkAlignment() *emu.Fault {
	addr := p.exmem.ALUResult
	size := p.exmem.Inst.MemSize()

	misaligned := false
	if p.strictAlign {
		misaligned = !naturallyAligned(addr, size)
	} else {
		misaligned = crossesLine(addr, size, p.lineSize)
	}

	if !misaligned {
		return nil
	}

	return &emu.Fault{
		Kind: emu.FaultMisalignedAccess,
		PC:   p.exmem.PC,
		Addr: addr,
	}
}

func (p *Pipeline) accessDataMemory() (MemoryResult, bool, *emu.Fault) {
	if p.dcache == nil {
		result, fault := p.memoryStage.Access(&p.exmem)
		return result, false, fault
	}

	addr := p.exmem.ALUResult
	size := p.exmem.Inst.MemSize()

	result := p.dcache.Access(addr, size, p.exmem.MemWrite, p.exmem.StoreValue)
	if !result.Done {
		return MemoryResult{}, true, nil
	}
	if result.Fault {
		return MemoryResult{}, false, &emu.Fault{
			Kind: emu.FaultBusError,
			PC:   p.exmem.PC,
			Addr: addr,
		}
	}

	return MemoryResult{MemData: extendLoad(p.exmem.Inst.Op, result.Data)}, false, nil
}

// tickExecute evaluates the EX stage. It returns the next EX/MEM value,
// whether execute is mid multi-cycle operation, and whether a branch
// misprediction was detected together with the corrected PC.
func (p *Pipeline) tickExecute(
	forwarding *ForwardingResult,
	savedMEMWB *MEMWBRegister,
	memStall bool,
) (nextEXMEM EXMEMRegister, execStall bool, mispredicted bool, redirectPC uint32) {
	if !p.idex.Valid || memStall {
		if p.idex.Bubble && !memStall {
			nextEXMEM.MakeBubble()
		}
		return nextEXMEM, false, false, 0
	}

	if p.idex.Fault != nil {
		nextEXMEM = EXMEMRegister{
			Valid: true,
			PC:    p.idex.PC,
			Inst:  p.idex.Inst,
			Fault: p.idex.Fault,
		}
		return nextEXMEM, false, false, 0
	}

	if p.exLatency == 0 {
		p.exLatency = p.getExLatency(p.idex.Inst)
		p.exRs1Value = p.hazardUnit.GetForwardedValue(
			forwarding.ForwardRs1, p.idex.Rs1Value, &p.exmem, savedMEMWB)
		p.exRs2Value = p.hazardUnit.GetForwardedValue(
			forwarding.ForwardRs2, p.idex.Rs2Value, &p.exmem, savedMEMWB)
	}
	p.exLatency--
	if p.exLatency > 0 {
		p.stats.ExecStalls++
		return nextEXMEM, true, false, 0
	}

	execResult := p.executeStage.Execute(&p.idex, p.exRs1Value, p.exRs2Value)

	if p.idex.IsBranch {
		mispredicted, redirectPC = p.verifyPrediction(&execResult)
	}

	nextEXMEM = EXMEMRegister{
		Valid:      true,
		PC:         p.idex.PC,
		Inst:       p.idex.Inst,
		ALUResult:  execResult.ALUResult,
		StoreValue: execResult.StoreValue,
		Rd:         p.idex.Rd,
		MemRead:    p.idex.MemRead,
		MemWrite:   p.idex.MemWrite,
		RegWrite:   p.idex.RegWrite,
		MemToReg:   p.idex.MemToReg,
	}

	return nextEXMEM, false, mispredicted, redirectPC
}

// verifyPrediction compares the branch outcome resolved in execute
// against the prediction captured at fetch time. The prediction only
// redirected fetch when both direction and target were known, so a
// taken prediction without a BTB target counts as a not-taken one.
func (p *Pipeline) verifyPrediction(execResult *ExecuteResult) (bool, uint32) {
	actualTaken := execResult.BranchTaken
	actualTarget := execResult.BranchTarget

	p.stats.BranchPredictions++

	effectiveTaken := p.idex.PredictedTaken && p.idex.TargetKnown
	if p.idex.EarlyResolved {
		effectiveTaken = true
	}

	wasMispredicted := false
	if actualTaken {
		if !effectiveTaken {
			wasMispredicted = true
		} else if p.idex.PredictedTarget != actualTarget {
			wasMispredicted = true
		}
	} else if effectiveTaken {
		wasMispredicted = true
	}

	p.branchPredictor.Update(p.idex.PC, actualTaken, actualTarget)

	if !wasMispredicted {
		p.stats.BranchCorrect++
		return false, 0
	}

	p.stats.BranchMispredictions++
	if actualTaken {
		return true, actualTarget
	}
	return true, p.idex.PC + 4
}

// tickDecode evaluates the ID stage.
func (p *Pipeline) tickDecode(stallResult *StallResult, execStall, memStall bool) IDEXRegister {
	var nextIDEX IDEXRegister

	switch {
	case p.ifid.Valid && !stallResult.StallID && !stallResult.FlushID &&
		!execStall && !memStall:
		if p.ifid.Fault != nil {
			nextIDEX = IDEXRegister{
				Valid: true,
				PC:    p.ifid.PC,
				Fault: p.ifid.Fault,
			}
			break
		}

		decResult := p.decodeStage.Decode(p.ifid.InstructionWord, p.ifid.PC)
		nextIDEX = IDEXRegister{
			Valid:           true,
			PC:              p.ifid.PC,
			Inst:            decResult.Inst,
			Rs1Value:        decResult.Rs1Value,
			Rs2Value:        decResult.Rs2Value,
			Rd:              decResult.Rd,
			Rs1:             decResult.Rs1,
			Rs2:             decResult.Rs2,
			MemRead:         decResult.MemRead,
			MemWrite:        decResult.MemWrite,
			RegWrite:        decResult.RegWrite,
			MemToReg:        decResult.MemToReg,
			IsBranch:        decResult.IsBranch,
			PredictedTaken:  p.ifid.PredictedTaken,
			PredictedTarget: p.ifid.PredictedTarget,
			TargetKnown:     p.ifid.TargetKnown,
			EarlyResolved:   p.ifid.EarlyResolved,
			Fault:           decResult.Fault,
		}

	case (stallResult.StallID || execStall || memStall) && !stallResult.FlushID:
		nextIDEX = p.idex

	case p.ifid.Bubble:
		nextIDEX.MakeBubble()
	}

	return nextIDEX
}

// fetch evaluates the IF stage: it reads the next instruction word,
// consults the branch predictor, resolves JAL targets early, and
// advances the speculative PC.
func (p *Pipeline) fetch() IFIDRegister {
	if p.fetchStopped {
		return IFIDRegister{}
	}

	pc := p.pc

	if pc&3 != 0 {
		p.fetchStopped = true
		return IFIDRegister{
			Valid: true,
			PC:    pc,
			Fault: &emu.Fault{
				Kind: emu.FaultMisalignedAccess,
				PC:   pc,
				Addr: pc,
			},
		}
	}

	var word uint32
	if p.icache != nil {
		result := p.icache.Access(pc, 4, false, 0)
		if !result.Done {
			p.stats.FetchStalls++
			bubble := IFIDRegister{}
			bubble.MakeBubble()
			return bubble
		}
		if result.Fault {
			p.fetchStopped = true
			return IFIDRegister{
				Valid: true,
				PC:    pc,
				Fault: &emu.Fault{
					Kind: emu.FaultBusError,
					PC:   pc,
					Addr: pc,
				},
			}
		}
		word = result.Data
	} else {
		var ok bool
		word, ok = p.fetchStage.Fetch(pc)
		if !ok {
			p.fetchStopped = true
			return IFIDRegister{
				Valid: true,
				PC:    pc,
				Fault: &emu.Fault{
					Kind: emu.FaultBusError,
					PC:   pc,
					Addr: pc,
				},
			}
		}
	}

	pred := p.branchPredictor.Predict(pc)

	// JAL's target is fully encoded in the instruction word, so it is
	// resolved at fetch and never mispredicts.
	earlyResolved := false
	if inst := p.peekDecoder.Decode(word); inst.Op == insts.OpJAL {
		pred.Taken = true
		pred.Target = pc + uint32(inst.Imm)
		pred.TargetKnown = true
		earlyResolved = true
	}

	nextIFID := IFIDRegister{
		Valid:           true,
		PC:              pc,
		InstructionWord: word,
		PredictedTaken:  pred.Taken,
		PredictedTarget: pred.Target,
		TargetKnown:     pred.TargetKnown,
		EarlyResolved:   earlyResolved,
	}

	// Speculative fetch: redirect only when direction and target are
	// both known.
	if pred.Effective() {
		p.pc = pred.Target
	} else {
		p.pc += 4
	}

	return nextIFID
}

// Run executes until the program exits, faults, or maxCycles elapses
// (0 means no limit). It returns the exit code and the fault that
// stopped execution, if any.
func (p *Pipeline) Run(maxCycles uint64) (int32, *emu.Fault) {
	for !p.halted {
		if maxCycles > 0 && p.stats.Cycles >= maxCycles {
			break
		}
		p.Tick()
	}
	return p.exitCode, p.fault
}
