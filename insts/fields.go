package insts

// CondBranchOpcode is the value of bits [31:24] shared by all B.cond
// encodings.
const CondBranchOpcode uint8 = 0x54

// Opcode11 returns the primary opcode field, bits [31:21].
func Opcode11(word uint32) uint16 {
	return uint16((word >> 21) & 0x7FF)
}

// Opcode8 returns bits [31:24], used to recognize conditional branches.
func Opcode8(word uint32) uint8 {
	return uint8((word >> 24) & 0xFF)
}

// RdField returns bits [4:0].
func RdField(word uint32) uint8 {
	return uint8(word & 0x1F)
}

// RnField returns bits [9:5].
func RnField(word uint32) uint8 {
	return uint8((word >> 5) & 0x1F)
}

// RmField returns bits [20:16].
func RmField(word uint32) uint8 {
	return uint8((word >> 16) & 0x1F)
}

// signExtend sign-extends the low width bits of value.
func signExtend(value uint64, width uint) int64 {
	shift := 64 - width
	return int64(value<<shift) >> shift
}

// SignExtend9 extracts the 9-bit offset at bits [20:12] and sign-extends it
// from bit 8.
func SignExtend9(word uint32) int64 {
	imm9 := (word >> 12) & 0x1FF
	return signExtend(uint64(imm9), 9)
}

// SignExtend19Times4 extracts the 19-bit offset at bits [23:5], sign-extends
// it from bit 18 and scales it to a byte offset.
func SignExtend19Times4(word uint32) int64 {
	imm19 := (word >> 5) & 0x7FFFF
	return signExtend(uint64(imm19), 19) * 4
}

// SignExtend26Times4 extracts the 26-bit offset at bits [25:0], sign-extends
// it from bit 25 and scales it to a byte offset.
func SignExtend26Times4(word uint32) int64 {
	imm26 := word & 0x3FFFFFF
	return signExtend(uint64(imm26), 26) * 4
}
