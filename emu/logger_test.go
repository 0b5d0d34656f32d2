package emu_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/legsim/emu"
)

var _ = Describe("NewWriterLogger", func() {
	It("should drop entries above its verbosity", func() {
		var buf bytes.Buffer
		logger := emu.NewWriterLogger(&buf, 0)

		logger.V(1).Info("hidden")
		logger.Info("shown", "pc", "0x400000")

		Expect(buf.String()).NotTo(ContainSubstring("hidden"))
		Expect(buf.String()).To(ContainSubstring(`"msg"="shown"`))
		Expect(buf.String()).To(ContainSubstring(`"pc"="0x400000"`))
	})

	It("should keep verbose entries when asked to", func() {
		var buf bytes.Buffer
		logger := emu.NewWriterLogger(&buf, 1)

		logger.V(1).Info("halted")

		Expect(buf.String()).To(ContainSubstring(`"msg"="halted"`))
	})
})
