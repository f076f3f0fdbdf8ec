package regfiletb_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/regbench/regfile"
	"github.com/sarchlab/regbench/regfiletb"
	"github.com/sarchlab/regbench/sim"
)

var _ = Describe("Scenarios", func() {
	DescribeTable("should pass on a correct register file",
		func(name string) {
			runner := newRunner(regfile.MakeBuilder())
			checkpoints := uint64(0)
			runner.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
				if ctx.Pos == regfiletb.HookPosCheckpoint {
					checkpoints++
				}
			}))
			test := findTest(name)

			result := runner.Run(test)

			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Passed).To(BeTrue())
			Expect(checkpoints).To(Equal(test.Steps))
		},
		Entry("full sequence", regfiletb.TestRegisterFile),
		Entry("reset only", regfiletb.TestResetOnly),
		Entry("directed writes", regfiletb.TestDirectedWrites),
		Entry("repeat read", regfiletb.TestRepeatRead),
		Entry("x0 write ignored", regfiletb.TestX0WriteIgnored),
		Entry("combinational read", regfiletb.TestCombinationalRead),
	)

	DescribeTable("should detect injected faults",
		func(fault regfile.Fault, name, phase string, index int) {
			runner := newRunner(regfile.MakeBuilder().WithFault(fault))

			result := runner.Run(findTest(name))

			ae := assertionError(result.Err)
			Expect(ae.Phase).To(Equal(phase))
			Expect(ae.Index).To(Equal(index))
		},
		Entry("no reset, reset only", regfile.FaultNoReset,
			regfiletb.TestResetOnly, regfiletb.PhaseResetCheck, 1),
		Entry("stuck bit, directed", regfile.FaultStuckBit,
			regfiletb.TestDirectedWrites, regfiletb.PhaseDirected, 17),
		Entry("writable x0", regfile.FaultX0Writable,
			regfiletb.TestX0WriteIgnored, regfiletb.PhaseZeroCheck, 0),
		Entry("clocked read, combinational read", regfile.FaultClockedRead,
			regfiletb.TestCombinationalRead, regfiletb.PhaseDirected, 1),
		Entry("fading read, repeat read", regfile.FaultFadingRead,
			regfiletb.TestRepeatRead, regfiletb.PhaseRepeatRead, 0),
	)

	It("should pass the combinational read with a short clock period", func() {
		runner := newRunnerAt(500*sim.MHz, regfile.MakeBuilder())

		result := runner.Run(findTest(regfiletb.TestCombinationalRead))

		Expect(result.Err).NotTo(HaveOccurred())
		Expect(result.Passed).To(BeTrue())
	})

	It("should not be fooled by a writable x0 in the full sequence", func() {
		runner := newRunner(
			regfile.MakeBuilder().WithFault(regfile.FaultX0Writable))

		result := runner.Run(findTest(regfiletb.TestRegisterFile))

		Expect(result.Passed).To(BeTrue())
	})

	It("should register every scenario with documentation", func() {
		tests := regfiletb.Tests(regfiletb.DefaultConfig())

		Expect(tests).To(HaveLen(6))
		for _, t := range tests {
			Expect(t.Doc).NotTo(BeEmpty())
		}
	})
})
