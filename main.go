// Package main provides the entry point for legsim.
// legsim is a functional LEGv8 instruction set simulator.
//
// For the full CLI, use: go run ./cmd/legsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("legsim - LEGv8 Instruction Set Simulator")
	fmt.Println("")
	fmt.Println("Usage: legsim [options] <program>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config    Path to simulator configuration JSON file")
	fmt.Println("  -hex       Treat the program as a hex listing instead of ELF")
	fmt.Println("  -max       Instruction limit")
	fmt.Println("  -v         Verbose output")
	fmt.Println("  -dump-mem  Print memory words in start:stop after the run")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/legsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/legsim' instead.")
	}
}
