// Package main provides the entry point for rv32sim.
// rv32sim is a cycle-accurate RV32IM CPU simulator.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/loader"
	"github.com/sarchlab/rv32sim/timing/latency"
	"github.com/sarchlab/rv32sim/timing/pipeline"
)

var (
	timing      = flag.Bool("timing", false, "Enable timing simulation mode")
	configPath  = flag.String("config", "", "Path to timing configuration JSON file")
	useCaches   = flag.Bool("caches", false, "Enable L1 instruction and data caches (timing mode)")
	strictAlign = flag.Bool("strict-align", false, "Fault on any unaligned access (timing mode)")
	maxCycles   = flag.Uint64("max-cycles", 0, "Cycle limit in timing mode (0 = no limit)")
	verbose     = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: rv32sim [options] <program.elf>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	programPath := flag.Arg(0)

	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Loaded: %s\n", programPath)
		fmt.Printf("Entry point: 0x%X\n", prog.EntryPoint)
		fmt.Printf("Segments: %d\n", len(prog.Segments))
	}

	if *timing {
		os.Exit(int(runTiming(prog, programPath)))
	}
	os.Exit(int(runEmulation(prog, programPath)))
}

// runEmulation runs the program in functional emulation mode.
func runEmulation(prog *loader.Program, programPath string) int32 {
	memory := emu.NewMemory()
	if err := prog.LoadIntoMemory(memory); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading segments: %v\n", err)
		os.Exit(1)
	}

	emulator := emu.NewEmulator(emu.WithMemory(memory))
	emulator.RegFile().PC = prog.EntryPoint
	emulator.RegFile().WriteReg(2, prog.InitialSP) // sp

	exitCode := emulator.Run()

	if *verbose {
		fmt.Printf("\nProgram: %s\n", programPath)
		fmt.Printf("Exit code: %d\n", exitCode)
		fmt.Printf("Instructions executed: %d\n", emulator.InstructionCount())
	}

	return exitCode
}

// runTiming runs the program in timing simulation mode.
func runTiming(prog *loader.Program, programPath string) int32 {
	var timingConfig *latency.TimingConfig
	if *configPath != "" {
		var err error
		timingConfig, err = latency.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading timing config: %v\n", err)
			os.Exit(1)
		}
	} else {
		timingConfig = latency.DefaultTimingConfig()
	}

	latencyTable := latency.NewTableWithConfig(timingConfig)

	memory := emu.NewMemory()
	regFile := &emu.RegFile{}
	regFile.WriteReg(2, prog.InitialSP) // sp

	if err := prog.LoadIntoMemory(memory); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading segments: %v\n", err)
		os.Exit(1)
	}

	syscallHandler := emu.NewDefaultSyscallHandler(regFile, memory, os.Stdout, os.Stderr)
	opts := []pipeline.PipelineOption{
		pipeline.WithSyscallHandler(syscallHandler),
		pipeline.WithLatencyTable(latencyTable),
		pipeline.WithMemoryLatency(int(timingConfig.MemoryLatency)),
	}
	if *useCaches {
		opts = append(opts, pipeline.WithDefaultCaches())
	}
	if *strictAlign {
		opts = append(opts, pipeline.WithStrictAlignment())
	}

	pipe := pipeline.NewPipeline(regFile, memory, opts...)
	pipe.SetPC(prog.EntryPoint)

	exitCode, fault := pipe.Run(*maxCycles)
	if fault != nil {
		fmt.Fprintf(os.Stderr, "Fault: %v\n", fault)
	}

	printTimingReport(pipe, programPath, exitCode)

	if fault != nil {
		return -1
	}
	return exitCode
}

func printTimingReport(pipe *pipeline.Pipeline, programPath string, exitCode int32) {
	stats := pipe.Statistics()

	totalCycles := stats.Cycles
	if totalCycles == 0 {
		totalCycles = 1
	}

	fmt.Printf("\n")
	fmt.Printf("Program: %s\n", programPath)
	fmt.Printf("Exit code: %d\n", exitCode)
	fmt.Printf("Total Instructions: %d\n", stats.Instructions)
	fmt.Printf("Total Cycles: %d\n", stats.Cycles)
	fmt.Printf("CPI: %.2f\n", stats.CPI())
	fmt.Printf("\n")
	fmt.Printf("Breakdown:\n")
	fmt.Printf("  Front-end stalls:    %6d cycles (%5.1f%%)\n",
		stats.Stalls, 100.0*float64(stats.Stalls)/float64(totalCycles))
	fmt.Printf("  Fetch stalls:        %6d cycles (%5.1f%%)\n",
		stats.FetchStalls, 100.0*float64(stats.FetchStalls)/float64(totalCycles))
	fmt.Printf("  Execute stalls:      %6d cycles (%5.1f%%)\n",
		stats.ExecStalls, 100.0*float64(stats.ExecStalls)/float64(totalCycles))
	fmt.Printf("  Memory stalls:       %6d cycles (%5.1f%%)\n",
		stats.MemStalls, 100.0*float64(stats.MemStalls)/float64(totalCycles))
	fmt.Printf("\n")
	fmt.Printf("Pipeline Events:\n")
	fmt.Printf("  Data hazards (forwarded): %d\n", stats.DataHazards)
	fmt.Printf("  Flushes:                  %d\n", stats.Flushes)

	if stats.BranchPredictions > 0 {
		fmt.Printf("\n")
		fmt.Printf("Branch Predictor:\n")
		fmt.Printf("  Predictions:    %d\n", stats.BranchPredictions)
		fmt.Printf("  Correct:        %d\n", stats.BranchCorrect)
		fmt.Printf("  Mispredictions: %d\n", stats.BranchMispredictions)
		fmt.Printf("  Accuracy:       %.1f%%\n", stats.BranchAccuracy())
	}

	if *useCaches {
		istats := pipe.ICacheStatistics()
		dstats := pipe.DCacheStatistics()
		fmt.Printf("\n")
		fmt.Printf("Caches:\n")
		fmt.Printf("  I-cache: %d hits, %d misses (%.1f%% hit rate)\n",
			istats.Hits, istats.Misses, istats.HitRate())
		fmt.Printf("  D-cache: %d hits, %d misses (%.1f%% hit rate), %d writebacks\n",
			dstats.Hits, dstats.Misses, dstats.HitRate(), dstats.Writebacks)
	}
}
