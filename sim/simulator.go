// Package sim drives the LEGv8 emulator: it owns the committed
// architectural state and advances it one instruction at a time.
package sim

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-logr/logr"

	"github.com/sarchlab/legsim/emu"
)

// ErrInstructionLimit is returned by Run when the instruction limit is
// reached before the program halts.
var ErrInstructionLimit = errors.New("instruction limit reached")

// Stats holds execution statistics.
type Stats struct {
	// Instructions is the number of instructions executed.
	Instructions uint64
	// Warnings is the number of instructions that reported a warning.
	Warnings uint64
}

// Simulator repeatedly steps an emulator and commits each next state into
// the current one.
type Simulator struct {
	emulator *emu.Emulator
	logger   logr.Logger

	entry   uint64
	current emu.State
	stats   Stats

	maxInstructions uint64
}

// Option is a functional option for configuring the Simulator.
type Option func(*Simulator)

// WithMaxInstructions bounds Run. Zero means no limit.
func WithMaxInstructions(max uint64) Option {
	return func(s *Simulator) {
		s.maxInstructions = max
	}
}

// WithLogger sets the logger for run-loop events.
func WithLogger(logger logr.Logger) Option {
	return func(s *Simulator) {
		s.logger = logger
	}
}

// New creates a simulator around em. Execution starts at address 0 until
// SetPC is called.
func New(em *emu.Emulator, opts ...Option) *Simulator {
	s := &Simulator{
		emulator: em,
		logger:   logr.Discard(),
		current:  emu.NewState(0),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SetPC sets the entry point. Reset returns to it.
func (s *Simulator) SetPC(pc uint64) {
	s.entry = pc
	s.current.Regs.PC = pc
}

// State returns a copy of the committed state.
func (s *Simulator) State() emu.State {
	return s.current
}

// SetState replaces the committed state.
func (s *Simulator) SetState(state emu.State) {
	s.current = state
}

// Halted returns true once HLT has cleared the run bit.
func (s *Simulator) Halted() bool {
	return !s.current.Running
}

// InstructionCount returns the number of instructions executed.
func (s *Simulator) InstructionCount() uint64 {
	return s.stats.Instructions
}

// Stats returns execution statistics.
func (s *Simulator) Stats() Stats {
	return s.stats
}

// Step executes one instruction and commits its result. It does nothing on
// a halted simulator.
func (s *Simulator) Step() emu.StepResult {
	if s.Halted() {
		return emu.StepResult{Halted: true}
	}

	next, result := s.emulator.Step(s.current)
	s.current = next

	s.stats.Instructions++
	if result.Warning != nil {
		s.stats.Warnings++
	}

	return result
}

// Run executes until the program halts and returns the number of
// instructions executed. It fails with ErrInstructionLimit if the limit is
// reached first.
func (s *Simulator) Run() (uint64, error) {
	for !s.Halted() {
		if s.maxInstructions > 0 && s.stats.Instructions >= s.maxInstructions {
			s.logger.Info("instruction limit reached",
				"limit", s.maxInstructions,
				"pc", fmt.Sprintf("0x%X", s.current.Regs.PC))
			return s.stats.Instructions, fmt.Errorf("%w after %d instructions at PC=0x%X",
				ErrInstructionLimit, s.stats.Instructions, s.current.Regs.PC)
		}
		s.Step()
	}

	s.logger.V(1).Info("halted",
		"instructions", s.stats.Instructions,
		"warnings", s.stats.Warnings)

	return s.stats.Instructions, nil
}

// RunCycles executes at most n instructions.
// Returns true if still running, false if halted.
func (s *Simulator) RunCycles(n uint64) bool {
	for i := uint64(0); i < n && !s.Halted(); i++ {
		s.Step()
	}
	return !s.Halted()
}

// Reset zeroes the registers and flags, returns to the entry point and
// clears the statistics. Memory is left untouched.
func (s *Simulator) Reset() {
	s.current = emu.NewState(s.entry)
	s.stats = Stats{}
}

// DumpRegisters writes the PC, the flags and every register to w.
func (s *Simulator) DumpRegisters(w io.Writer) error {
	regs := &s.current.Regs
	p := regs.PSTATE

	_, err := fmt.Fprintf(w, "PC: 0x%016X  Running: %t  Instructions: %d\n",
		regs.PC, s.current.Running, s.stats.Instructions)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "Flags: N=%d Z=%d C=%d V=%d\n",
		bit(p.N), bit(p.Z), bit(p.C), bit(p.V))
	if err != nil {
		return err
	}

	for i := uint8(0); i < emu.XZR; i++ {
		_, err = fmt.Fprintf(w, "X%-2d: 0x%016X (%d)\n",
			i, regs.ReadRegU(i), regs.ReadReg(i))
		if err != nil {
			return err
		}
	}

	return nil
}

// DumpMemory writes the words in [start, stop) to w, one per line. start is
// rounded down to a word boundary. The dump ends at the top of the address
// space.
func (s *Simulator) DumpMemory(w io.Writer, start, stop uint64) error {
	mem := s.emulator.Memory()

	for addr := start &^ 3; addr < stop; addr += 4 {
		_, err := fmt.Fprintf(w, "0x%08X: 0x%08X\n", addr, mem.Read32(addr))
		if err != nil {
			return err
		}

		if addr+4 < addr {
			break
		}
	}

	return nil
}

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}
