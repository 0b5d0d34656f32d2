package sim_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/legsim/emu"
	"github.com/sarchlab/legsim/memory"
	"github.com/sarchlab/legsim/sim"
)

const (
	instHLT      uint32 = 0xD4400000
	instSelfLoop uint32 = 0x14000000 // b .
)

// sumProgram computes 5+4+3+2+1 into X0 and halts.
var sumProgram = []uint32{
	0xD28000A1, // movz x1, #5
	0xD2800000, // movz x0, #0
	0x8B010000, // loop: add x0, x0, x1
	0xF1000421, // subs x1, x1, #1
	0x54FFFFC1, // b.ne loop
	0xF8000040, // stur x0, [x2]
	instHLT,
}

var _ = Describe("Simulator", func() {
	var (
		mem *memory.Memory
		s   *sim.Simulator
	)

	load := func(words []uint32) {
		for i, w := range words {
			mem.Write32(memory.TextBase+uint64(4*i), w)
		}
	}

	BeforeEach(func() {
		mem = memory.NewDefault(memory.WithLogger(GinkgoLogr))
		em := emu.NewEmulator(mem, emu.WithLogger(GinkgoLogr))
		s = sim.New(em, sim.WithLogger(GinkgoLogr))
		s.SetPC(memory.TextBase)
	})

	It("should start running at the entry point", func() {
		Expect(s.Halted()).To(BeFalse())
		Expect(s.State().Regs.PC).To(Equal(memory.TextBase))
		Expect(s.InstructionCount()).To(BeZero())
	})

	Describe("Step", func() {
		It("should commit the next state and count the instruction", func() {
			load(sumProgram)

			s.Step()

			Expect(s.State().Regs.X[1]).To(Equal(int64(5)))
			Expect(s.State().Regs.PC).To(Equal(memory.TextBase + 4))
			Expect(s.InstructionCount()).To(Equal(uint64(1)))
		})

		It("should do nothing once halted", func() {
			load([]uint32{instHLT})

			result := s.Step()
			Expect(result.Halted).To(BeTrue())
			Expect(s.Halted()).To(BeTrue())

			result = s.Step()
			Expect(result.Halted).To(BeTrue())
			Expect(result.Inst).To(BeNil())
			Expect(s.InstructionCount()).To(Equal(uint64(1)))
			Expect(s.State().Regs.PC).To(Equal(memory.TextBase + 4))
		})

		It("should count warnings", func() {
			load([]uint32{0x00000000, instHLT})

			result := s.Step()

			Expect(result.Warning).To(MatchError(emu.ErrUnknownOpcode))
			Expect(s.Stats().Warnings).To(Equal(uint64(1)))
			Expect(s.State().Regs.PC).To(Equal(memory.TextBase + 4))
		})
	})

	Describe("Run", func() {
		It("should run a loop to completion", func() {
			load(sumProgram)
			state := s.State()
			state.Regs.WriteRegU(2, memory.DataBase)
			s.SetState(state)

			n, err := s.Run()

			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(uint64(19)))
			Expect(s.Halted()).To(BeTrue())
			Expect(s.State().Regs.X[0]).To(Equal(int64(15)))
			Expect(s.State().Regs.PSTATE.Z).To(BeTrue())
			Expect(mem.Read64(memory.DataBase)).To(Equal(uint64(15)))
		})

		It("should stop at the instruction limit", func() {
			em := emu.NewEmulator(mem, emu.WithLogger(GinkgoLogr))
			s = sim.New(em, sim.WithMaxInstructions(10), sim.WithLogger(GinkgoLogr))
			s.SetPC(memory.TextBase)
			load([]uint32{instSelfLoop})

			n, err := s.Run()

			Expect(err).To(MatchError(sim.ErrInstructionLimit))
			Expect(n).To(Equal(uint64(10)))
			Expect(s.Halted()).To(BeFalse())
		})
	})

	Describe("RunCycles", func() {
		It("should report whether the program is still running", func() {
			load(sumProgram)

			Expect(s.RunCycles(3)).To(BeTrue())
			Expect(s.InstructionCount()).To(Equal(uint64(3)))

			Expect(s.RunCycles(100)).To(BeFalse())
			Expect(s.InstructionCount()).To(Equal(uint64(19)))
		})
	})

	Describe("Reset", func() {
		It("should return to the entry point with cleared registers", func() {
			load(sumProgram)
			_, err := s.Run()
			Expect(err).NotTo(HaveOccurred())

			s.Reset()

			Expect(s.Halted()).To(BeFalse())
			Expect(s.State().Regs.PC).To(Equal(memory.TextBase))
			Expect(s.State().Regs.X[0]).To(BeZero())
			Expect(s.State().Regs.PSTATE).To(Equal(emu.PSTATE{}))
			Expect(s.Stats()).To(Equal(sim.Stats{}))
		})
	})

	Describe("dumps", func() {
		It("should print registers and flags", func() {
			load(sumProgram)
			_, err := s.Run()
			Expect(err).NotTo(HaveOccurred())

			var buf bytes.Buffer
			Expect(s.DumpRegisters(&buf)).To(Succeed())

			Expect(buf.String()).To(ContainSubstring("Flags: N=0 Z=1 C=1 V=0"))
			Expect(buf.String()).To(ContainSubstring("X0 : 0x000000000000000F (15)"))
			Expect(buf.String()).To(ContainSubstring("X30: "))
			Expect(buf.String()).NotTo(ContainSubstring("X31"))
		})

		It("should print memory words from an aligned start", func() {
			mem.Write32(memory.DataBase, 0xCAFEBABE)
			mem.Write32(memory.DataBase+4, 0x12345678)

			var buf bytes.Buffer
			Expect(s.DumpMemory(&buf, memory.DataBase+1, memory.DataBase+8)).To(Succeed())

			Expect(buf.String()).To(Equal(
				"0x10000000: 0xCAFEBABE\n" +
					"0x10000004: 0x12345678\n"))
		})

		It("should stop at the top of the address space", func() {
			var buf bytes.Buffer
			Expect(s.DumpMemory(&buf,
				0xFFFFFFFFFFFFFFF0, 0xFFFFFFFFFFFFFFFF)).To(Succeed())

			Expect(buf.String()).To(Equal(
				"0xFFFFFFFFFFFFFFF0: 0x00000000\n" +
					"0xFFFFFFFFFFFFFFF4: 0x00000000\n" +
					"0xFFFFFFFFFFFFFFF8: 0x00000000\n" +
					"0xFFFFFFFFFFFFFFFC: 0x00000000\n"))
		})
	})
})
