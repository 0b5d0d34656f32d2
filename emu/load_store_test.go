package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/legsim/emu"
	"github.com/sarchlab/legsim/memory"
)

var _ = Describe("Loads and stores", func() {
	var (
		mem *memory.Memory
		e   *emu.Emulator
		cur emu.State
	)

	const (
		entry = memory.TextBase
		data  = memory.DataBase
	)

	// run executes one instruction and commits its next state.
	run := func(word uint32) emu.StepResult {
		mem.Write32(cur.Regs.PC, word)
		next, result := e.Step(cur)
		cur = next
		return result
	}

	BeforeEach(func() {
		mem = memory.NewDefault(memory.WithLogger(GinkgoLogr))
		e = emu.NewEmulator(mem, emu.WithLogger(GinkgoLogr))
		cur = emu.NewState(entry)
		cur.Regs.WriteRegU(2, data)
	})

	Describe("STUR and LDUR", func() {
		It("should store and load 64 bits", func() {
			cur.Regs.WriteRegU(1, 0x123456789ABCDEF0)

			run(encodeLoadStore(opSTUR, 1, 2, 16))
			Expect(mem.Read32(data + 16)).To(Equal(uint32(0x9ABCDEF0)))
			Expect(mem.Read32(data + 20)).To(Equal(uint32(0x12345678)))

			run(encodeLoadStore(opLDUR, 3, 2, 16))
			Expect(cur.Regs.ReadRegU(3)).To(Equal(uint64(0x123456789ABCDEF0)))
			Expect(cur.Regs.PC).To(Equal(entry + 8))
		})

		It("should use negative offsets", func() {
			cur.Regs.WriteRegU(2, data+0x100)
			mem.Write64(data+0xF8, 0xDEADBEEFCAFEBABE)

			run(encodeLoadStore(opLDUR, 1, 2, -8))

			Expect(cur.Regs.ReadRegU(1)).To(Equal(uint64(0xDEADBEEFCAFEBABE)))
		})

		It("should store zero from XZR", func() {
			mem.Write64(data, 0xFFFFFFFFFFFFFFFF)

			run(encodeLoadStore(opSTUR, 31, 2, 0))

			Expect(mem.Read64(data)).To(Equal(uint64(0)))
		})

		It("should not touch flags", func() {
			cur.Regs.PSTATE = emu.PSTATE{Z: true, V: true}

			run(encodeLoadStore(opLDUR, 1, 2, 0))

			Expect(cur.Regs.PSTATE).To(Equal(emu.PSTATE{Z: true, V: true}))
		})
	})

	Describe("STURB and LDURB", func() {
		It("should round-trip a byte and keep the rest of the word", func() {
			mem.Write32(data, 0x11223344)
			cur.Regs.WriteRegU(1, 0xFFFFFFFFFFFFFFAB)

			run(encodeLoadStore(opSTURB, 1, 2, 1))
			Expect(mem.Read32(data)).To(Equal(uint32(0x1122AB44)))

			run(encodeLoadStore(opLDURB, 3, 2, 1))
			Expect(cur.Regs.ReadRegU(3)).To(Equal(uint64(0x00000000000000AB)))
		})

		It("should zero-extend into a register holding other bits", func() {
			mem.Write32(data, 0x000000FF)
			cur.Regs.WriteReg(3, -1)

			run(encodeLoadStore(opLDURB, 3, 2, 0))

			Expect(cur.Regs.ReadReg(3)).To(Equal(int64(0xFF)))
		})
	})

	Describe("STURH and LDURH", func() {
		It("should round-trip a halfword", func() {
			mem.Write32(data, 0x11223344)
			cur.Regs.WriteRegU(1, 0xBEEF)

			run(encodeLoadStore(opSTURH, 1, 2, 2))
			Expect(mem.Read32(data)).To(Equal(uint32(0xBEEF3344)))

			run(encodeLoadStore(opLDURH, 3, 2, 2))
			Expect(cur.Regs.ReadReg(3)).To(Equal(int64(0xBEEF)))
		})

		It("should handle a halfword that spans two words", func() {
			mem.Write64(data, 0x5566778811223344)
			cur.Regs.WriteRegU(1, 0xA1B2)

			run(encodeLoadStore(opSTURH, 1, 2, 3))
			Expect(mem.Read64(data)).To(Equal(uint64(0x556677A1B2223344)))

			run(encodeLoadStore(opLDURH, 3, 2, 3))
			Expect(cur.Regs.ReadReg(3)).To(Equal(int64(0xA1B2)))
		})
	})

	Describe("store addressing", func() {
		// Bit 32 set on top of the data region base.
		const wideBase = uint64(1)<<32 | data

		It("should use 64-bit store addresses by default", func() {
			cur.Regs.WriteRegU(2, wideBase)
			cur.Regs.WriteReg(1, 0x5A)

			run(encodeLoadStore(opSTURB, 1, 2, 0))

			Expect(mem.Read8(data)).To(Equal(uint8(0)))
		})

		// Legacy addressing computes store addresses in 32 bits but load
		// addresses in 64 bits, so a store and a load through the same base
		// register reach different bytes.
		It("should truncate store addresses when narrowing is enabled", func() {
			e = emu.NewEmulator(mem,
				emu.WithLogger(GinkgoLogr),
				emu.WithNarrowStoreAddress(true))
			cur.Regs.WriteRegU(2, wideBase)
			cur.Regs.WriteReg(1, 0x5A)

			run(encodeLoadStore(opSTURB, 1, 2, 0))
			Expect(mem.Read8(data)).To(Equal(uint8(0x5A)))

			run(encodeLoadStore(opLDURB, 3, 2, 0))
			Expect(cur.Regs.ReadReg(3)).To(Equal(int64(0)))
		})
	})
})
