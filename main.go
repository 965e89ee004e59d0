// Package main provides the entry point for rv32sim.
// rv32sim is a cycle-accurate RV32IM CPU simulator.
//
// For the full CLI, use: go run ./cmd/rv32sim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("rv32sim - RV32IM CPU Simulator")
	fmt.Println("")
	fmt.Println("Usage: rv32sim [options] <program.elf>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -timing        Enable timing simulation mode")
	fmt.Println("  -config        Path to timing configuration JSON file")
	fmt.Println("  -caches        Enable L1 instruction and data caches")
	fmt.Println("  -strict-align  Fault on any unaligned access")
	fmt.Println("  -v             Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/rv32sim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/rv32sim' instead.")
	}
}
