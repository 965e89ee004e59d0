package core_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/timing/core"
	"github.com/sarchlab/rv32sim/timing/pipeline"
)

var _ = Describe("Core", func() {
	var (
		regFile *emu.RegFile
		memory  *emu.Memory
		c       *core.Core
	)

	BeforeEach(func() {
		regFile = &emu.RegFile{}
		memory = emu.NewMemory()
		c = core.NewCore(regFile, memory)
	})

	It("should create a core with pipeline", func() {
		Expect(c).NotTo(BeNil())
		Expect(c.Pipeline).NotTo(BeNil())
	})

	It("should set and get PC", func() {
		c.SetPC(0x1000)
		Expect(c.Pipeline.PC()).To(Equal(uint32(0x1000)))
	})

	It("should not be halted initially", func() {
		Expect(c.Halted()).To(BeFalse())
	})

	It("should execute instructions through tick", func() {
		memory.Write32(0x1000, 0x02A00093) // ADDI x1, x0, 42
		// NOP instructions to flush pipeline.
		memory.Write32(0x1004, 0x00000013)
		memory.Write32(0x1008, 0x00000013)
		memory.Write32(0x100C, 0x00000013)
		memory.Write32(0x1010, 0x00000013)

		c.SetPC(0x1000)

		for i := 0; i < 10; i++ {
			c.Tick()
		}

		Expect(regFile.X[1]).To(Equal(uint32(42)))
	})

	It("should return stats", func() {
		memory.Write32(0x1000, 0x02A00093) // ADDI x1, x0, 42
		memory.Write32(0x1004, 0x00000013) // NOP

		c.SetPC(0x1000)
		c.Tick()
		c.Tick()

		stats := c.Stats()
		Expect(stats.Cycles).To(Equal(uint64(2)))
	})

	It("should run until halt and return exit code", func() {
		memory.Write32(0x1000, 0x00A00513) // ADDI x10, x0, 10 (exit code)
		memory.Write32(0x1004, 0x05D00893) // ADDI x17, x0, 93 (exit)
		memory.Write32(0x1008, 0x00000073) // ECALL

		c.SetPC(0x1000)
		exitCode, fault := c.Run(1000)

		Expect(fault).To(BeNil())
		Expect(c.Halted()).To(BeTrue())
		Expect(exitCode).To(Equal(int32(10)))
		Expect(c.ExitCode()).To(Equal(int32(10)))
	})

	It("should surface a fault through the facade", func() {
		memory.Write32(0x1000, 0x00000000) // illegal

		c.SetPC(0x1000)
		_, fault := c.Run(1000)

		Expect(fault).NotTo(BeNil())
		Expect(fault.Kind).To(Equal(emu.FaultIllegalInstruction))
		Expect(c.Fault()).To(Equal(fault))
	})

	It("should run for specified cycles and return running status", func() {
		for addr := uint32(0x1000); addr < 0x1040; addr += 4 {
			memory.Write32(addr, 0x00000013) // NOP
		}

		c.SetPC(0x1000)
		running := c.RunCycles(5)

		Expect(running).To(BeTrue())
		Expect(c.Halted()).To(BeFalse())
		Expect(c.Stats().Cycles).To(Equal(uint64(5)))
	})

	It("should stop running cycles when halted", func() {
		memory.Write32(0x1000, 0x00000513) // ADDI x10, x0, 0
		memory.Write32(0x1004, 0x05D00893) // ADDI x17, x0, 93
		memory.Write32(0x1008, 0x00000073) // ECALL

		c.SetPC(0x1000)
		running := c.RunCycles(100)

		Expect(running).To(BeFalse())
		Expect(c.Halted()).To(BeTrue())
	})

	It("should reset core state", func() {
		memory.Write32(0x1000, 0x02A00093) // ADDI x1, x0, 42
		for addr := uint32(0x1004); addr < 0x1020; addr += 4 {
			memory.Write32(addr, 0x00000013) // NOP
		}

		c.SetPC(0x1000)
		for i := 0; i < 10; i++ {
			c.Tick()
		}
		Expect(c.Stats().Cycles).To(BeNumerically(">", 0))

		c.Reset()

		stats := c.Stats()
		Expect(stats.Cycles).To(Equal(uint64(0)))
		Expect(stats.Instructions).To(Equal(uint64(0)))
		Expect(c.Halted()).To(BeFalse())
	})

	It("should pass pipeline options through", func() {
		cached := core.NewCore(regFile, memory,
			pipeline.WithDefaultCaches())

		memory.Write32(0x1000, 0x00000513) // ADDI x10, x0, 0
		memory.Write32(0x1004, 0x05D00893) // ADDI x17, x0, 93
		memory.Write32(0x1008, 0x00000073) // ECALL

		cached.SetPC(0x1000)
		_, fault := cached.Run(10000)

		Expect(fault).To(BeNil())
		Expect(cached.Pipeline.ICacheStatistics().Misses).To(BeNumerically(">=", 1))
	})
})
