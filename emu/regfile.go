// Package emu provides functional LEGv8 emulation.
package emu

// XZR is the index of the zero register.
const XZR uint8 = 31

// RegFile represents the LEGv8 register file.
// It contains 31 general-purpose registers (X0-X30),
// the zero register, the program counter (PC) and the flags.
type RegFile struct {
	// X holds general-purpose registers X0-X30.
	// X[31] is the zero register (XZR) which always reads as 0.
	X [32]int64

	// PC is the program counter.
	PC uint64

	// PSTATE holds the processor state flags.
	PSTATE PSTATE
}

// PSTATE represents the processor state flags.
type PSTATE struct {
	// N is the negative flag.
	N bool
	// Z is the zero flag.
	Z bool
	// C is the carry flag.
	C bool
	// V is the overflow flag.
	V bool
}

// ReadReg reads a register value. Register 31 returns 0 (XZR).
func (r *RegFile) ReadReg(reg uint8) int64 {
	if reg >= XZR {
		return 0
	}
	return r.X[reg]
}

// ReadRegU reads a register value as an unsigned 64-bit quantity.
func (r *RegFile) ReadRegU(reg uint8) uint64 {
	return uint64(r.ReadReg(reg))
}

// WriteReg writes a value to a register. Writes to register 31 are ignored.
func (r *RegFile) WriteReg(reg uint8, value int64) {
	if reg >= XZR {
		return
	}
	r.X[reg] = value
}

// WriteRegU writes an unsigned value to a register.
func (r *RegFile) WriteRegU(reg uint8, value uint64) {
	r.WriteReg(reg, int64(value))
}

// State is one snapshot of the architectural state. The emulator reads a
// current State and stages its effects into a next State; the caller commits
// next as the current State of the following step.
type State struct {
	Regs RegFile

	// Running is the run bit. It stays true until HLT executes.
	Running bool
}

// NewState returns a running state with zeroed registers and the PC at entry.
func NewState(entry uint64) State {
	return State{
		Regs:    RegFile{PC: entry},
		Running: true,
	}
}
