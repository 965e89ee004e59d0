// Package core provides the cycle-accurate CPU core model.
// It wraps the pipeline implementation to provide a high-level interface.
package core

import (
	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/timing/pipeline"
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of stall cycles.
	Stalls uint64
	// Flushes is the number of pipeline flushes.
	Flushes uint64
	// BranchMispredictions is the number of mispredicted branches.
	BranchMispredictions uint64
}

// CPI returns the cycles per instruction.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Core represents a cycle-accurate CPU core model.
// It wraps a 5-stage pipeline and provides a simple interface for
// simulation.
type Core struct {
	// Pipeline is the underlying 5-stage pipeline.
	Pipeline *pipeline.Pipeline

	// Shared resources
	regFile *emu.RegFile
	memory  *emu.Memory
}

// NewCore creates a new Core with the given register file and memory.
// Pipeline options configure caches, latencies, and syscall handling.
func NewCore(regFile *emu.RegFile, memory *emu.Memory, opts ...pipeline.PipelineOption) *Core {
	return &Core{
		Pipeline: pipeline.NewPipeline(regFile, memory, opts...),
		regFile:  regFile,
		memory:   memory,
	}
}

// SetPC sets the program counter.
func (c *Core) SetPC(pc uint32) {
	c.Pipeline.SetPC(pc)
}

// Tick executes one pipeline cycle.
func (c *Core) Tick() {
	c.Pipeline.Tick()
}

// Halted returns true if the core has halted (exit syscall or fault).
func (c *Core) Halted() bool {
	return c.Pipeline.Halted()
}

// ExitCode returns the exit code if the core has halted.
func (c *Core) ExitCode() int32 {
	return c.Pipeline.ExitCode()
}

// Fault returns the fault that stopped the core, or nil.
func (c *Core) Fault() *emu.Fault {
	return c.Pipeline.Fault()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	pipeStats := c.Pipeline.Statistics()
	return Stats{
		Cycles:               pipeStats.Cycles,
		Instructions:         pipeStats.Instructions,
		Stalls:               pipeStats.Stalls,
		Flushes:              pipeStats.Flushes,
		BranchMispredictions: pipeStats.BranchMispredictions,
	}
}

// Run executes the core until it halts or maxCycles elapses (0 means no
// limit). It returns the exit code and the fault that stopped
// execution, if any.
func (c *Core) Run(maxCycles uint64) (int32, *emu.Fault) {
	return c.Pipeline.Run(maxCycles)
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if halted.
func (c *Core) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles; i++ {
		if c.Pipeline.Halted() {
			return false
		}
		c.Pipeline.Tick()
	}
	return !c.Pipeline.Halted()
}

// Reset clears all core state.
func (c *Core) Reset() {
	c.Pipeline.Reset()
}
