// Package insts provides LEGv8 instruction definitions and decoding.
package insts

// Op represents a LEGv8 opcode.
type Op uint16

// LEGv8 opcodes. Flag-setting forms (ADDS, SUBS, ADCS, ANDS) share the Op of
// their base operation and are told apart by Instruction.SetFlags.
const (
	OpUnknown Op = iota
	OpHLT
	OpADD
	OpSUB
	OpADC
	OpAND
	OpORR
	OpEOR
	OpMUL
	OpLSL
	OpLSR
	OpMOVZ
	OpB
	OpBR
	OpBCond
	OpCBZ
	OpCBNZ
	OpSTUR
	OpSTURB
	OpSTURH
	OpLDUR
	OpLDURB
	OpLDURH
)

var opNames = [...]string{
	OpUnknown: "UNKNOWN",
	OpHLT:     "HLT",
	OpADD:     "ADD",
	OpSUB:     "SUB",
	OpADC:     "ADC",
	OpAND:     "AND",
	OpORR:     "ORR",
	OpEOR:     "EOR",
	OpMUL:     "MUL",
	OpLSL:     "LSL",
	OpLSR:     "LSR",
	OpMOVZ:    "MOVZ",
	OpB:       "B",
	OpBR:      "BR",
	OpBCond:   "B.cond",
	OpCBZ:     "CBZ",
	OpCBNZ:    "CBNZ",
	OpSTUR:    "STUR",
	OpSTURB:   "STURB",
	OpSTURH:   "STURH",
	OpLDUR:    "LDUR",
	OpLDURB:   "LDURB",
	OpLDURH:   "LDURH",
}

// String returns the base mnemonic of the opcode.
func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "UNKNOWN"
}

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatUnknown       Format = iota
	FormatException            // HLT
	FormatDPImm                // Add/Sub (immediate)
	FormatDPReg                // Add/Sub, ADCS and logical (register)
	FormatDataProc3Src         // MUL
	FormatBitfield             // LSL/LSR (immediate)
	FormatMoveWide             // MOVZ
	FormatBranch               // B
	FormatBranchCond           // B.cond
	FormatBranchReg            // BR
	FormatCompareBranch        // CBZ, CBNZ
	FormatLoadStore            // LDUR*, STUR*
)

// Cond represents an ARM64 condition code.
type Cond uint8

// ARM64 condition codes. Only EQ, NE, GT, LT, GE and LE are evaluated by the
// simulator.
const (
	CondEQ Cond = 0b0000 // Equal (Z == 1)
	CondNE Cond = 0b0001 // Not Equal (Z == 0)
	CondCS Cond = 0b0010 // Carry Set / Unsigned higher or same (C == 1)
	CondCC Cond = 0b0011 // Carry Clear / Unsigned lower (C == 0)
	CondMI Cond = 0b0100 // Minus / Negative (N == 1)
	CondPL Cond = 0b0101 // Plus / Positive or zero (N == 0)
	CondVS Cond = 0b0110 // Overflow (V == 1)
	CondVC Cond = 0b0111 // No overflow (V == 0)
	CondHI Cond = 0b1000 // Unsigned higher (C == 1 && Z == 0)
	CondLS Cond = 0b1001 // Unsigned lower or same (C == 0 || Z == 1)
	CondGE Cond = 0b1010 // Signed greater than or equal
	CondLT Cond = 0b1011 // Signed less than
	CondGT Cond = 0b1100 // Signed greater than
	CondLE Cond = 0b1101 // Signed less than or equal
	CondAL Cond = 0b1110 // Always (unconditional)
	CondNV Cond = 0b1111 // Always (unconditional, reserved)
)

// Instruction represents a decoded LEGv8 instruction.
type Instruction struct {
	Op     Op     // Operation code
	Format Format // Encoding format
	Word   uint32 // Raw instruction word
	Opcode uint16 // Bits [31:21]

	SetFlags bool  // true for ADDS, SUBS, ADCS, ANDS
	Rd       uint8 // Destination register, or Rt for loads, stores and CBZ/CBNZ
	Rn       uint8 // First source register or base register
	Rm       uint8 // Second source register
	Ra       uint8 // Addend register (MUL is MADD with Ra == XZR)
	Negate   bool  // o0, bit 15: MSUB/MNEG instead of MADD/MUL

	// Immediate operand
	Imm   uint64 // imm12 for add/sub, imm16 for MOVZ
	Shift uint8  // 12 for shifted add/sub immediates, shift amount for LSL/LSR

	// Bitfield fields (LSL/LSR are UBFM aliases)
	Immr uint8 // Bits [21:16]
	Imms uint8 // Bits [15:10]

	// Move wide
	HW uint8 // Bits [22:21]

	// Register operand shift, bits [15:10]. Only zero is implemented.
	ShiftAmount uint8

	// Branch fields
	BranchOffset int64 // Signed branch offset in bytes
	Cond         Cond  // Condition code for conditional branches

	// Load/store fields
	MemOffset int64 // Signed imm9 byte offset
	MemSize   uint8 // Access width in bytes: 1, 2 or 8
}

// Mnemonic returns the assembler mnemonic, including the S suffix of
// flag-setting forms.
func (i *Instruction) Mnemonic() string {
	name := i.Op.String()
	if i.SetFlags {
		return name + "S"
	}
	return name
}

// opcodeEntry matches the 11-bit opcode field against a pattern. Bits that are
// clear in mask belong to immediates or sub-fields and are ignored.
type opcodeEntry struct {
	pattern uint16
	mask    uint16
	decode  func(word uint32, inst *Instruction)
}

// Decoder decodes LEGv8 machine code into instructions.
type Decoder struct {
	table []opcodeEntry
}

// NewDecoder creates a new LEGv8 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{table: opcodeTable()}
}

func opcodeTable() []opcodeEntry {
	return []opcodeEntry{
		{0x6A2, 0x7FF, decodeHLT},

		{0x558, 0x7FF, decodeDPReg(OpADD, true)},
		{0x458, 0x7FF, decodeDPReg(OpADD, false)},
		{0x758, 0x7FF, decodeDPReg(OpSUB, true)},
		{0x658, 0x7FF, decodeDPReg(OpSUB, false)},
		{0x5D0, 0x7FF, decodeDPReg(OpADC, true)},
		{0x750, 0x7FF, decodeDPReg(OpAND, true)},
		{0x650, 0x7FF, decodeDPReg(OpEOR, false)},
		{0x550, 0x7FF, decodeDPReg(OpORR, false)},
		{0x4D8, 0x7FF, decodeMUL},

		{0x588, 0x7FC, decodeDPImm(OpADD, true)},
		{0x488, 0x7FC, decodeDPImm(OpADD, false)},
		{0x788, 0x7FC, decodeDPImm(OpSUB, true)},
		{0x688, 0x7FC, decodeDPImm(OpSUB, false)},

		{0x694, 0x7FC, decodeMOVZ},
		{0x69A, 0x7FE, decodeBitfield},

		{0x0A0, 0x7E0, decodeB},
		{0x5A0, 0x7F8, decodeCompareBranch(OpCBZ)},
		{0x5A8, 0x7F8, decodeCompareBranch(OpCBNZ)},
		{0x6B0, 0x7FF, decodeBR},

		{0x7C0, 0x7FF, decodeLoadStore(OpSTUR, 8)},
		{0x7C2, 0x7FF, decodeLoadStore(OpLDUR, 8)},
		{0x1C0, 0x7FF, decodeLoadStore(OpSTURB, 1)},
		{0x1C2, 0x7FF, decodeLoadStore(OpLDURB, 1)},
		{0x3C0, 0x7FF, decodeLoadStore(OpSTURH, 2)},
		{0x3C2, 0x7FF, decodeLoadStore(OpLDURH, 2)},
	}
}

// Decode decodes a 32-bit LEGv8 instruction word.
//
// Conditional branches are recognized first from bits [31:24] because their
// imm19 field overlaps the 11-bit opcode of unrelated instructions.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{
		Op:     OpUnknown,
		Format: FormatUnknown,
		Word:   word,
		Opcode: Opcode11(word),
	}

	if Opcode8(word) == CondBranchOpcode {
		decodeBranchCond(word, inst)
		return inst
	}

	for _, entry := range d.table {
		if inst.Opcode&entry.mask == entry.pattern {
			entry.decode(word, inst)
			break
		}
	}

	return inst
}

func decodeHLT(_ uint32, inst *Instruction) {
	inst.Op = OpHLT
	inst.Format = FormatException
}

// decodeDPReg decodes Add/Sub, ADCS and logical register instructions.
// Format: sf | opc | S | 01011 | shift | 0 | Rm | imm6 | Rn | Rd
func decodeDPReg(op Op, setFlags bool) func(uint32, *Instruction) {
	return func(word uint32, inst *Instruction) {
		inst.Op = op
		inst.Format = FormatDPReg
		inst.SetFlags = setFlags
		inst.Rd = RdField(word)
		inst.Rn = RnField(word)
		inst.Rm = RmField(word)
		inst.ShiftAmount = uint8((word >> 10) & 0x3F)
	}
}

// decodeMUL decodes MADD with the MUL alias fields.
// Format: 1 | 00 | 11011 | 000 | Rm | o0 | Ra | Rn | Rd
func decodeMUL(word uint32, inst *Instruction) {
	inst.Op = OpMUL
	inst.Format = FormatDataProc3Src
	inst.Rd = RdField(word)
	inst.Rn = RnField(word)
	inst.Rm = RmField(word)
	inst.Ra = uint8((word >> 10) & 0x1F)
	inst.Negate = (word>>15)&1 == 1
}

// decodeDPImm decodes Add/Sub immediate instructions.
// Format: sf | op | S | 100010 | sh | imm12 | Rn | Rd
func decodeDPImm(op Op, setFlags bool) func(uint32, *Instruction) {
	return func(word uint32, inst *Instruction) {
		inst.Op = op
		inst.Format = FormatDPImm
		inst.SetFlags = setFlags
		inst.Rd = RdField(word)
		inst.Rn = RnField(word)
		inst.Imm = uint64((word >> 10) & 0xFFF)

		if (word>>22)&0x3 == 1 {
			inst.Shift = 12
		}
	}
}

// decodeMOVZ decodes move wide with zero.
// Format: sf | 10 | 100101 | hw | imm16 | Rd
func decodeMOVZ(word uint32, inst *Instruction) {
	inst.Op = OpMOVZ
	inst.Format = FormatMoveWide
	inst.Rd = RdField(word)
	inst.Imm = uint64((word >> 5) & 0xFFFF)
	inst.HW = uint8((word >> 21) & 0x3)
}

// decodeBitfield decodes the LSL and LSR aliases of UBFM.
// Format: sf | 10 | 100110 | N | immr | imms | Rn | Rd
//
// LSR #s is UBFM immr=s, imms=63. Every other pattern is read as LSL with a
// shift of 63-imms.
func decodeBitfield(word uint32, inst *Instruction) {
	inst.Format = FormatBitfield
	inst.Rd = RdField(word)
	inst.Rn = RnField(word)
	inst.Immr = uint8((word >> 16) & 0x3F)
	inst.Imms = uint8((word >> 10) & 0x3F)

	if inst.Imms == 63 {
		inst.Op = OpLSR
		inst.Shift = inst.Immr
	} else {
		inst.Op = OpLSL
		inst.Shift = 63 - inst.Imms
	}
}

// decodeB decodes the unconditional branch.
// Format: 000101 | imm26
func decodeB(word uint32, inst *Instruction) {
	inst.Op = OpB
	inst.Format = FormatBranch
	inst.BranchOffset = SignExtend26Times4(word)
}

// decodeBranchCond decodes conditional branch instructions.
// Format: 01010100 | imm19 | 0 | cond
func decodeBranchCond(word uint32, inst *Instruction) {
	inst.Op = OpBCond
	inst.Format = FormatBranchCond
	inst.BranchOffset = SignExtend19Times4(word)
	inst.Cond = Cond(word & 0xF)
}

// decodeCompareBranch decodes CBZ and CBNZ. The tested register is in the
// Rt position, bits [4:0].
// Format: sf | 011010 | op | imm19 | Rt
func decodeCompareBranch(op Op) func(uint32, *Instruction) {
	return func(word uint32, inst *Instruction) {
		inst.Op = op
		inst.Format = FormatCompareBranch
		inst.Rd = RdField(word)
		inst.BranchOffset = SignExtend19Times4(word)
	}
}

// decodeBR decodes branch to register.
// Format: 1101011 0 0 00 11111 000000 Rn 00000
func decodeBR(word uint32, inst *Instruction) {
	inst.Op = OpBR
	inst.Format = FormatBranchReg
	inst.Rn = RnField(word)
}

// decodeLoadStore decodes the unscaled-offset load/store family.
// Format: size | 111 | 0 | 00 | opc | 0 | imm9 | 00 | Rn | Rt
func decodeLoadStore(op Op, size uint8) func(uint32, *Instruction) {
	return func(word uint32, inst *Instruction) {
		inst.Op = op
		inst.Format = FormatLoadStore
		inst.Rd = RdField(word)
		inst.Rn = RnField(word)
		inst.MemOffset = SignExtend9(word)
		inst.MemSize = size
	}
}
