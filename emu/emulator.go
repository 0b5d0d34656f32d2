// Package emu provides functional LEGv8 emulation.
package emu

import (
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/sarchlab/legsim/insts"
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Inst is the decoded instruction.
	Inst *insts.Instruction

	// Halted is true if the instruction cleared the run bit.
	Halted bool

	// Warning is set when the instruction was unknown or used an
	// unimplemented variant. It wraps ErrUnknownOpcode, ErrUnknownCondition
	// or ErrUnimplementedVariant. Execution continues with a default
	// transition.
	Warning error
}

// Emulator executes LEGv8 instructions functionally, one step at a time.
// It never commits state: Step reads a current State and returns the next
// one.
type Emulator struct {
	memory  Memory
	decoder *insts.Decoder
	logger  logr.Logger

	narrowStoreAddr bool
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithLogger sets the logger that receives instruction diagnostics.
func WithLogger(logger logr.Logger) EmulatorOption {
	return func(e *Emulator) {
		e.logger = logger
	}
}

// WithStderr sends instruction diagnostics to w.
func WithStderr(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.logger = NewWriterLogger(w, 0)
	}
}

// WithNarrowStoreAddress truncates STUR, STURB and STURH addresses to 32
// bits while loads keep the full 64-bit address. Legacy LEGv8 traces were
// produced with this addressing.
func WithNarrowStoreAddress(narrow bool) EmulatorOption {
	return func(e *Emulator) {
		e.narrowStoreAddr = narrow
	}
}

// NewWriterLogger returns a logger that writes one line per entry to w.
// Entries logged with V(n) for n above verbosity are dropped.
func NewWriterLogger(w io.Writer, verbosity int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			_, _ = fmt.Fprintf(w, "%s: %s\n", prefix, args)
			return
		}
		_, _ = fmt.Fprintln(w, args)
	}, funcr.Options{Verbosity: verbosity})
}

// NewEmulator creates a new LEGv8 emulator over the given memory.
func NewEmulator(memory Memory, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		memory:  memory,
		decoder: insts.NewDecoder(),
		logger:  NewWriterLogger(os.Stderr, 0),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() Memory {
	return e.memory
}

// Step executes the instruction at current.Regs.PC.
// All reads come from current; the returned State starts as a copy of
// current and carries every register, flag, PC and run bit update.
func (e *Emulator) Step(current State) (State, StepResult) {
	next := current

	// 1. Fetch: Read 4 bytes at PC
	word := e.memory.Read32(current.Regs.PC)

	// 2. Decode
	inst := e.decoder.Decode(word)

	// 3. Execute
	warning := e.execute(inst, &current, &next)
	if warning != nil {
		e.logger.Info("instruction warning",
			"pc", fmt.Sprintf("0x%X", current.Regs.PC),
			"word", fmt.Sprintf("0x%08X", word),
			"reason", warning.Error())
	}

	return next, StepResult{
		Inst:    inst,
		Halted:  !next.Running,
		Warning: warning,
	}
}

// execute dispatches and executes a decoded instruction.
func (e *Emulator) execute(inst *insts.Instruction, cur, next *State) error {
	var warning error

	switch inst.Format {
	case insts.FormatException:
		next.Running = false
	case insts.FormatDPImm:
		e.executeDPImm(inst, cur, next)
	case insts.FormatDPReg:
		warning = e.executeDPReg(inst, cur, next)
	case insts.FormatDataProc3Src:
		warning = e.executeDataProc3Src(inst, cur, next)
	case insts.FormatBitfield:
		warning = e.executeBitfield(inst, cur, next)
	case insts.FormatMoveWide:
		warning = e.executeMoveWide(inst, cur, next)
	case insts.FormatBranch, insts.FormatBranchCond,
		insts.FormatBranchReg, insts.FormatCompareBranch:
		return e.executeBranch(inst, cur, next) // PC already updated
	case insts.FormatLoadStore:
		e.executeLoadStore(inst, cur, next)
	default:
		warning = fmt.Errorf("%w 0x%03X (word 0x%08X) at PC=0x%X",
			ErrUnknownOpcode, inst.Opcode, inst.Word, cur.Regs.PC)
	}

	// Advance PC by 4 (for non-branch instructions)
	next.Regs.PC = cur.Regs.PC + 4

	return warning
}

func unimplemented(inst *insts.Instruction, pc uint64, detail string) error {
	return fmt.Errorf("%w: %s %s at PC=0x%X",
		ErrUnimplementedVariant, inst.Mnemonic(), detail, pc)
}

// executeDPImm executes Add/Sub immediate instructions.
func (e *Emulator) executeDPImm(inst *insts.Instruction, cur, next *State) {
	alu := NewALU(&cur.Regs, &next.Regs)
	imm := inst.Imm << inst.Shift

	switch inst.Op {
	case insts.OpADD:
		alu.ADDImm(inst.Rd, inst.Rn, imm, inst.SetFlags)
	case insts.OpSUB:
		alu.SUBImm(inst.Rd, inst.Rn, imm, inst.SetFlags)
	}
}

// executeDPReg executes Add/Sub, ADCS and logical register instructions.
// A shifted second operand is not modeled and is read unshifted.
func (e *Emulator) executeDPReg(inst *insts.Instruction, cur, next *State) error {
	alu := NewALU(&cur.Regs, &next.Regs)

	switch inst.Op {
	case insts.OpADD:
		alu.ADD(inst.Rd, inst.Rn, inst.Rm, inst.SetFlags)
	case insts.OpSUB:
		alu.SUB(inst.Rd, inst.Rn, inst.Rm, inst.SetFlags)
	case insts.OpADC:
		alu.ADCS(inst.Rd, inst.Rn, inst.Rm)
	case insts.OpAND:
		alu.AND(inst.Rd, inst.Rn, inst.Rm, inst.SetFlags)
	case insts.OpORR:
		alu.ORR(inst.Rd, inst.Rn, inst.Rm)
	case insts.OpEOR:
		alu.EOR(inst.Rd, inst.Rn, inst.Rm)
	}

	if inst.ShiftAmount != 0 {
		return unimplemented(inst, cur.Regs.PC,
			fmt.Sprintf("shift amount %d, used 0", inst.ShiftAmount))
	}
	return nil
}

// executeDataProc3Src executes MUL. MADD with an addend other than XZR and
// the MSUB/MNEG forms are executed as MUL.
func (e *Emulator) executeDataProc3Src(inst *insts.Instruction, cur, next *State) error {
	NewALU(&cur.Regs, &next.Regs).MUL(inst.Rd, inst.Rn, inst.Rm)

	switch {
	case inst.Negate:
		return unimplemented(inst, cur.Regs.PC,
			fmt.Sprintf("o0=1 with addend X%d, executed as MUL", inst.Ra))
	case inst.Ra != XZR:
		return unimplemented(inst, cur.Regs.PC,
			fmt.Sprintf("addend X%d, ignored", inst.Ra))
	}
	return nil
}

// executeBitfield executes the LSL and LSR aliases of UBFM.
func (e *Emulator) executeBitfield(inst *insts.Instruction, cur, next *State) error {
	alu := NewALU(&cur.Regs, &next.Regs)

	switch inst.Op {
	case insts.OpLSR:
		alu.LSR(inst.Rd, inst.Rn, inst.Shift)
	case insts.OpLSL:
		alu.LSL(inst.Rd, inst.Rn, inst.Shift)
		if inst.Immr != (64-inst.Shift)&63 {
			return unimplemented(inst, cur.Regs.PC,
				fmt.Sprintf("immr=%d imms=%d, executed as LSL #%d",
					inst.Immr, inst.Imms, inst.Shift))
		}
	}
	return nil
}

// executeMoveWide executes MOVZ. Only hw == 0 is modeled; other values are
// executed as hw == 0.
func (e *Emulator) executeMoveWide(inst *insts.Instruction, cur, next *State) error {
	NewALU(&cur.Regs, &next.Regs).MOVZ(inst.Rd, uint16(inst.Imm))

	if inst.HW != 0 {
		return unimplemented(inst, cur.Regs.PC,
			fmt.Sprintf("hw=%d, used hw=0", inst.HW))
	}
	return nil
}

// executeBranch executes branch instructions. Every path sets the next PC.
func (e *Emulator) executeBranch(inst *insts.Instruction, cur, next *State) error {
	bu := NewBranchUnit(&cur.Regs, &next.Regs)

	switch inst.Op {
	case insts.OpB:
		bu.B(inst.BranchOffset)
	case insts.OpBR:
		bu.BR(inst.Rn)
	case insts.OpCBZ:
		bu.CBZ(inst.Rd, inst.BranchOffset)
	case insts.OpCBNZ:
		bu.CBNZ(inst.Rd, inst.BranchOffset)
	case insts.OpBCond:
		if !bu.BCond(inst.BranchOffset, inst.Cond) {
			return fmt.Errorf("%w 0x%X at PC=0x%X",
				ErrUnknownCondition, uint8(inst.Cond), cur.Regs.PC)
		}
	}
	return nil
}

// executeLoadStore executes the unscaled load/store family.
func (e *Emulator) executeLoadStore(inst *insts.Instruction, cur, next *State) {
	lsu := NewLoadStoreUnit(&cur.Regs, &next.Regs, e.memory, e.narrowStoreAddr)

	switch inst.Op {
	case insts.OpLDUR:
		lsu.LDUR(inst.Rd, inst.Rn, inst.MemOffset)
	case insts.OpLDURB:
		lsu.LDURB(inst.Rd, inst.Rn, inst.MemOffset)
	case insts.OpLDURH:
		lsu.LDURH(inst.Rd, inst.Rn, inst.MemOffset)
	case insts.OpSTUR:
		lsu.STUR(inst.Rd, inst.Rn, inst.MemOffset)
	case insts.OpSTURB:
		lsu.STURB(inst.Rd, inst.Rn, inst.MemOffset)
	case insts.OpSTURH:
		lsu.STURH(inst.Rd, inst.Rn, inst.MemOffset)
	}
}
