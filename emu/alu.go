// Package emu provides functional LEGv8 emulation.
package emu

// ALU implements LEGv8 arithmetic and logic operations.
// Operands are read from the current register file and results are staged
// into the next one.
type ALU struct {
	cur  *RegFile
	next *RegFile
}

// NewALU creates a new ALU reading from cur and writing to next.
func NewALU(cur, next *RegFile) *ALU {
	return &ALU{cur: cur, next: next}
}

// ADD performs 64-bit addition: Xd = Xn + Xm
func (a *ALU) ADD(rd, rn, rm uint8, setFlags bool) {
	a.ADDImm(rd, rn, a.cur.ReadRegU(rm), setFlags)
}

// ADDImm performs 64-bit addition with immediate: Xd = Xn + imm
func (a *ALU) ADDImm(rd, rn uint8, imm uint64, setFlags bool) {
	op1 := a.cur.ReadRegU(rn)
	result := op1 + imm

	a.next.WriteRegU(rd, result)

	if setFlags {
		a.next.PSTATE.SetAdd(op1, imm, result)
	}
}

// ADCS performs addition with carry and sets flags: Xd = Xn + Xm + C
func (a *ALU) ADCS(rd, rn, rm uint8) {
	op1 := a.cur.ReadRegU(rn)
	op2 := a.cur.ReadRegU(rm)
	carry := a.cur.PSTATE.C

	result := op1 + op2
	if carry {
		result++
	}

	a.next.WriteRegU(rd, result)
	a.next.PSTATE.SetAddWithCarry(op1, op2, carry, result)
}

// SUB performs 64-bit subtraction: Xd = Xn - Xm
// With setFlags and rd == XZR this is CMP.
func (a *ALU) SUB(rd, rn, rm uint8, setFlags bool) {
	a.SUBImm(rd, rn, a.cur.ReadRegU(rm), setFlags)
}

// SUBImm performs 64-bit subtraction with immediate: Xd = Xn - imm
func (a *ALU) SUBImm(rd, rn uint8, imm uint64, setFlags bool) {
	op1 := a.cur.ReadRegU(rn)
	result := op1 - imm

	a.next.WriteRegU(rd, result)

	if setFlags {
		a.next.PSTATE.SetSub(op1, imm, result)
	}
}

// AND performs 64-bit bitwise AND: Xd = Xn & Xm
// ANDS updates only N and Z.
func (a *ALU) AND(rd, rn, rm uint8, setFlags bool) {
	result := a.cur.ReadRegU(rn) & a.cur.ReadRegU(rm)

	a.next.WriteRegU(rd, result)

	if setFlags {
		a.next.PSTATE.SetZN(result)
	}
}

// ORR performs 64-bit bitwise OR: Xd = Xn | Xm
func (a *ALU) ORR(rd, rn, rm uint8) {
	a.next.WriteRegU(rd, a.cur.ReadRegU(rn)|a.cur.ReadRegU(rm))
}

// EOR performs 64-bit bitwise XOR: Xd = Xn ^ Xm
func (a *ALU) EOR(rd, rn, rm uint8) {
	a.next.WriteRegU(rd, a.cur.ReadRegU(rn)^a.cur.ReadRegU(rm))
}

// MUL performs 64-bit multiplication keeping the low 64 bits: Xd = Xn * Xm
func (a *ALU) MUL(rd, rn, rm uint8) {
	a.next.WriteReg(rd, a.cur.ReadReg(rn)*a.cur.ReadReg(rm))
}

// LSL performs a logical shift left by an immediate and updates N and Z.
func (a *ALU) LSL(rd, rn uint8, shift uint8) {
	result := a.cur.ReadRegU(rn) << (shift & 63)

	a.next.WriteRegU(rd, result)
	a.next.PSTATE.SetZN(result)
}

// LSR performs a logical shift right by an immediate and updates N and Z.
func (a *ALU) LSR(rd, rn uint8, shift uint8) {
	result := a.cur.ReadRegU(rn) >> (shift & 63)

	a.next.WriteRegU(rd, result)
	a.next.PSTATE.SetZN(result)
}

// MOVZ writes a zero-extended 16-bit immediate: Xd = imm16
func (a *ALU) MOVZ(rd uint8, imm16 uint16) {
	a.next.WriteRegU(rd, uint64(imm16))
}

// SetZN sets N and Z from a result. C and V are left as they are.
func (p *PSTATE) SetZN(result uint64) {
	// N: Set if result is negative (MSB is 1)
	p.N = (result >> 63) == 1

	// Z: Set if result is zero
	p.Z = result == 0
}

// SetAdd sets NZCV flags for op1 + op2 = result.
func (p *PSTATE) SetAdd(op1, op2, result uint64) {
	p.SetZN(result)

	// C: Set if unsigned overflow (carry out)
	p.C = result < op1

	// V: Set if both operands share a sign the result does not have
	p.V = ((op1^result)&(op2^result))>>63 == 1
}

// SetAddWithCarry sets NZCV flags for op1 + op2 + carryIn = result.
func (p *PSTATE) SetAddWithCarry(op1, op2 uint64, carryIn bool, result uint64) {
	p.SetAdd(op1, op2, result)

	// With a carry in, result == op1 means op2 + 1 wrapped to zero.
	if carryIn && result == op1 {
		p.C = true
	}
}

// SetSub sets NZCV flags for op1 - op2 = result.
func (p *PSTATE) SetSub(op1, op2, result uint64) {
	p.SetZN(result)

	// C: Set if NO borrow occurred (op1 >= op2)
	p.C = op1 >= op2

	// V: Set if the operands differ in sign and the result sign differs
	// from op1
	p.V = ((op1^op2)&(op1^result))>>63 == 1
}
