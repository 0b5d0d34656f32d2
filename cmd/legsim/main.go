// Package main provides the legsim command line simulator.
// It loads a LEGv8 program, runs it to HLT and prints the final state.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sarchlab/legsim/config"
	"github.com/sarchlab/legsim/emu"
	"github.com/sarchlab/legsim/loader"
	"github.com/sarchlab/legsim/memory"
	"github.com/sarchlab/legsim/sim"
)

var (
	configPath = flag.String("config", "", "Path to simulator configuration JSON file")
	hexInput   = flag.Bool("hex", false, "Treat the program as a hex listing instead of ELF")
	maxInsts   = flag.Uint64("max", 0, "Instruction limit (overrides the config file, 0 keeps it)")
	verbose    = flag.Bool("v", false, "Verbose output")
	dumpMem    = flag.String("dump-mem", "", "Print memory words in start:stop after the run")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: legsim [options] <program>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	os.Exit(run(flag.Arg(0)))
}

func run(programPath string) int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}
	verbosity := 0
	if cfg.Verbose {
		verbosity = 1
	}
	logger := emu.NewWriterLogger(os.Stderr, verbosity)

	var dumpStart, dumpStop uint64
	if *dumpMem != "" {
		dumpStart, dumpStop, err = parseRange(*dumpMem)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -dump-mem: %v\n", err)
			return 1
		}
	}

	prog, err := loadProgram(programPath, cfg.TextBase)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		return 1
	}

	mem, err := memory.New(cfg.Regions(), memory.WithLogger(logger.WithName("memory")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating memory: %v\n", err)
		return 1
	}

	if err := prog.LoadInto(mem); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		return 1
	}

	if cfg.Verbose {
		fmt.Printf("Loaded: %s\n", programPath)
		fmt.Printf("Entry point: 0x%X\n", prog.EntryPoint)
		fmt.Printf("Segments: %d\n", len(prog.Segments))
	}

	em := emu.NewEmulator(mem,
		emu.WithLogger(logger.WithName("emu")),
		emu.WithNarrowStoreAddress(cfg.LegacyNarrowStoreAddress))
	s := sim.New(em,
		sim.WithMaxInstructions(cfg.MaxInstructions),
		sim.WithLogger(logger.WithName("sim")))
	s.SetPC(prog.EntryPoint)

	exitCode := 0
	n, err := s.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Simulation stopped: %v\n", err)
		exitCode = 2
		if !errors.Is(err, sim.ErrInstructionLimit) {
			exitCode = 1
		}
	}

	if cfg.Verbose {
		fmt.Printf("\nProgram: %s\n", programPath)
		fmt.Printf("Instructions executed: %d\n", n)
		fmt.Printf("Warnings: %d\n", s.Stats().Warnings)
	}

	_ = s.DumpRegisters(os.Stdout)
	if *dumpMem != "" {
		fmt.Println()
		_ = s.DumpMemory(os.Stdout, dumpStart, dumpStop)
	}

	return exitCode
}

func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
	}

	if *maxInsts > 0 {
		cfg.MaxInstructions = *maxInsts
	}
	if *verbose {
		cfg.Verbose = true
	}

	return cfg, cfg.Validate()
}

func loadProgram(path string, textBase uint64) (*loader.Program, error) {
	if *hexInput {
		return loader.LoadHex(path, textBase)
	}
	return loader.Load(path)
}

// parseRange parses "start:stop" where both ends accept 0x, 0o, 0b or
// decimal notation.
func parseRange(s string) (uint64, uint64, error) {
	startStr, stopStr, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("expected start:stop, got %q", s)
	}

	start, err := strconv.ParseUint(strings.TrimSpace(startStr), 0, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad start address: %w", err)
	}
	stop, err := strconv.ParseUint(strings.TrimSpace(stopStr), 0, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad stop address: %w", err)
	}
	if stop < start {
		return 0, 0, fmt.Errorf("stop 0x%X is below start 0x%X", stop, start)
	}

	return start, stop, nil
}
