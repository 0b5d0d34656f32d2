// Package insts provides LEGv8 instruction definitions and decoding.
//
// This package decodes 32-bit machine words of the LEGv8 subset of ARM64
// into structured instruction representations. It supports:
//   - Arithmetic: ADD, ADDS, SUB, SUBS (register and immediate), ADCS, MUL
//   - Logic: ANDS, EOR, ORR (register), LSL and LSR (immediate)
//   - Moves: MOVZ
//   - Branches: B, BR, B.cond, CBZ, CBNZ
//   - Loads and stores: LDUR, LDURB, LDURH, STUR, STURB, STURH
//   - HLT
//
// Decoding never fails. A word that matches no entry decodes to OpUnknown.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0xB1002862) // ADDS X2, X3, #10
//	fmt.Printf("Op: %v, Rd: %d, Rn: %d, Imm: %d\n", inst.Op, inst.Rd, inst.Rn, inst.Imm)
package insts
