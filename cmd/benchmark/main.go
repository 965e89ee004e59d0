// Command benchmark runs built-in microbenchmark kernels through the
// timing model and reports cycle counts and CPI.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv     Output results in CSV format (default: human-readable)
//	-caches  Run with L1 caches enabled
//
// The kernels are hand-encoded RV32 programs that isolate one pipeline
// behavior each (forwarding, load-use stalls, branch prediction, memory
// stride), so regressions in the timing model show up as CPI changes.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/timing/latency"
	"github.com/sarchlab/rv32sim/timing/pipeline"
)

const loadAddr = uint32(0x1000)

type benchmark struct {
	name    string
	program []uint32
}

func main() {
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	useCaches := flag.Bool("caches", false, "Run with L1 caches enabled")
	flag.Parse()

	benchmarks := []benchmark{
		{"independent-alu", independentALU()},
		{"dependent-chain", dependentChain()},
		{"load-use", loadUse()},
		{"branch-loop", branchLoop()},
		{"memory-stride", memoryStride()},
		{"multiply-divide", multiplyDivide()},
	}

	if *csvOutput {
		fmt.Println("benchmark,instructions,cycles,cpi,stalls,flushes")
	}

	for _, b := range benchmarks {
		stats, err := run(b, *useCaches)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", b.name, err)
			os.Exit(1)
		}

		if *csvOutput {
			fmt.Printf("%s,%d,%d,%.3f,%d,%d\n",
				b.name, stats.Instructions, stats.Cycles, stats.CPI(),
				stats.Stalls, stats.Flushes)
		} else {
			fmt.Printf("%-18s %8d insts %8d cycles  CPI %.3f  stalls %d  flushes %d\n",
				b.name, stats.Instructions, stats.Cycles, stats.CPI(),
				stats.Stalls, stats.Flushes)
		}
	}
}

func run(b benchmark, useCaches bool) (pipeline.Statistics, error) {
	memory := emu.NewMemory()
	regFile := &emu.RegFile{}

	for i, word := range b.program {
		memory.Write32(loadAddr+uint32(4*i), word)
	}

	opts := []pipeline.PipelineOption{
		pipeline.WithLatencyTable(latency.NewTable()),
	}
	if useCaches {
		opts = append(opts, pipeline.WithDefaultCaches())
	}

	pipe := pipeline.NewPipeline(regFile, memory, opts...)
	pipe.SetPC(loadAddr)

	_, fault := pipe.Run(10_000_000)
	if fault != nil {
		return pipeline.Statistics{}, fmt.Errorf("fault: %v", fault)
	}
	if !pipe.Halted() {
		return pipeline.Statistics{}, fmt.Errorf("did not halt within the cycle limit")
	}

	return pipe.Statistics(), nil
}

// RV32 encoders for the kernels below.

func encodeR(funct7, rs2, rs1, funct3, rd uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | 0x33
}

func encodeI(imm int32, rs1, funct3, rd, opcode uint32) uint32 {
	return uint32(imm)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeADD(rd, rs1, rs2 uint32) uint32 { return encodeR(0, rs2, rs1, 0, rd) }
func encodeMUL(rd, rs1, rs2 uint32) uint32 { return encodeR(1, rs2, rs1, 0, rd) }
func encodeDIV(rd, rs1, rs2 uint32) uint32 { return encodeR(1, rs2, rs1, 4, rd) }

func encodeADDI(rd, rs1 uint32, imm int32) uint32 {
	return encodeI(imm, rs1, 0, rd, 0x13)
}

func encodeLW(rd, rs1 uint32, imm int32) uint32 {
	return encodeI(imm, rs1, 2, rd, 0x03)
}

func encodeSW(rs2, rs1 uint32, imm int32) uint32 {
	i := uint32(imm)
	return (i>>5)<<25 | rs2<<20 | rs1<<15 | 2<<12 | (i&0x1F)<<7 | 0x23
}

func encodeBNE(rs1, rs2 uint32, imm int32) uint32 {
	i := uint32(imm)
	return (i>>12&1)<<31 | (i>>5&0x3F)<<25 | rs2<<20 | rs1<<15 |
		1<<12 | (i>>1&0xF)<<8 | (i>>11&1)<<7 | 0x63
}

func exit() []uint32 {
	return []uint32{
		encodeADDI(10, 0, 0),  // a0 = 0
		encodeADDI(17, 0, 93), // a7 = exit
		0x00000073,            // ECALL
	}
}

// independentALU runs a long stretch of ADDIs with no dependences; the
// pipeline should sustain one instruction per cycle.
func independentALU() []uint32 {
	var prog []uint32
	for i := 0; i < 256; i++ {
		prog = append(prog, encodeADDI(uint32(1+i%8), 0, int32(i)))
	}
	return append(prog, exit()...)
}

// dependentChain makes every instruction consume the previous result,
// exercising back-to-back forwarding.
func dependentChain() []uint32 {
	prog := []uint32{encodeADDI(1, 0, 1)}
	for i := 0; i < 255; i++ {
		prog = append(prog, encodeADD(1, 1, 1))
	}
	return append(prog, exit()...)
}

// loadUse alternates a load with an immediate consumer, paying the
// one-cycle load-use stall on every pair.
func loadUse() []uint32 {
	prog := []uint32{encodeADDI(1, 0, 0x700)}
	for i := 0; i < 128; i++ {
		prog = append(prog,
			encodeLW(2, 1, 0),
			encodeADD(3, 2, 2),
		)
	}
	return append(prog, exit()...)
}

// branchLoop decrements a counter in a tight loop; after the first
// iteration the predictor should cover the back edge.
func branchLoop() []uint32 {
	prog := []uint32{
		encodeADDI(1, 0, 512),
		encodeADDI(1, 1, -1),
		encodeBNE(1, 0, -4),
	}
	return append(prog, exit()...)
}

// memoryStride stores a stretch of words then reloads them, giving the
// D-cache a mix of misses and same-line hits.
func memoryStride() []uint32 {
	prog := []uint32{encodeADDI(1, 0, 0x400)}
	for i := 0; i < 64; i++ {
		prog = append(prog, encodeSW(1, 1, int32(4*i)))
	}
	for i := 0; i < 64; i++ {
		prog = append(prog, encodeLW(2, 1, int32(4*i)))
	}
	return append(prog, exit()...)
}

// multiplyDivide exercises the multi-cycle execute path.
func multiplyDivide() []uint32 {
	prog := []uint32{
		encodeADDI(1, 0, 1000),
		encodeADDI(2, 0, 7),
	}
	for i := 0; i < 32; i++ {
		prog = append(prog,
			encodeMUL(3, 1, 2),
			encodeDIV(4, 1, 2),
		)
	}
	return append(prog, exit()...)
}
