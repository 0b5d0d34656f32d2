// Package emu provides functional LEGv8 emulation.
package emu

import "github.com/sarchlab/legsim/insts"

// BranchUnit implements LEGv8 branch operations. Branch targets are computed
// from the current PC and staged into the next PC.
type BranchUnit struct {
	cur  *RegFile
	next *RegFile
}

// NewBranchUnit creates a new BranchUnit reading from cur and writing to next.
func NewBranchUnit(cur, next *RegFile) *BranchUnit {
	return &BranchUnit{cur: cur, next: next}
}

func (b *BranchUnit) target(offset int64) uint64 {
	return uint64(int64(b.cur.PC) + offset)
}

func (b *BranchUnit) fallThrough() {
	b.next.PC = b.cur.PC + 4
}

// B performs an unconditional branch (PC-relative).
// The offset is in bytes and is added to the current PC.
func (b *BranchUnit) B(offset int64) {
	b.next.PC = b.target(offset)
}

// BR performs a branch to the address in the specified register.
func (b *BranchUnit) BR(rn uint8) {
	b.next.PC = b.cur.ReadRegU(rn)
}

// BCond performs a conditional branch based on the current flags.
// It reports false, and falls through, when the condition code is not one
// the simulator evaluates.
func (b *BranchUnit) BCond(offset int64, cond insts.Cond) bool {
	taken, ok := b.CheckCondition(cond)
	if taken {
		b.next.PC = b.target(offset)
	} else {
		b.fallThrough()
	}
	return ok
}

// CBZ branches when the register is zero.
func (b *BranchUnit) CBZ(rt uint8, offset int64) {
	if b.cur.ReadReg(rt) == 0 {
		b.next.PC = b.target(offset)
	} else {
		b.fallThrough()
	}
}

// CBNZ branches when the register is not zero.
func (b *BranchUnit) CBNZ(rt uint8, offset int64) {
	if b.cur.ReadReg(rt) != 0 {
		b.next.PC = b.target(offset)
	} else {
		b.fallThrough()
	}
}

// CheckCondition evaluates a condition code against the current N and Z
// flags. The second result is false for condition codes outside EQ, NE, GT,
// LT, GE and LE.
func (b *BranchUnit) CheckCondition(cond insts.Cond) (taken bool, ok bool) {
	pstate := &b.cur.PSTATE

	switch cond {
	case insts.CondEQ:
		return pstate.Z, true
	case insts.CondNE:
		return !pstate.Z, true
	case insts.CondGT:
		return !pstate.Z && !pstate.N, true
	case insts.CondLT:
		return pstate.N, true
	case insts.CondGE:
		return !pstate.N, true
	case insts.CondLE:
		return pstate.Z || pstate.N, true
	default:
		return false, false
	}
}
