package clock_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/regbench/clock"
	"github.com/sarchlab/regbench/signal"
	"github.com/sarchlab/regbench/sim"
)

type stopAt struct {
	*sim.EventBase
}

var _ = Describe("Generator", func() {
	var (
		engine *sim.SerialEngine
		gen    *clock.Generator
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		gen = clock.MakeBuilder().
			WithEngine(engine).
			WithFreq(100 * sim.MHz).
			Build("Clock")
	})

	stopLater := func(t sim.VTime) {
		engine.Schedule(stopAt{sim.NewEventBase(t,
			sim.HandlerFunc(func(sim.Event) error {
				gen.Stop()
				return nil
			}))})
	}

	It("should produce rising edges half a period after start", func() {
		var risingAt []sim.VTime
		gen.Signal().OnEdge(signal.Rising, func() {
			risingAt = append(risingAt, engine.CurrentTime())
		})

		gen.Start()
		stopLater(36 * sim.NS)

		Expect(engine.Run()).To(Succeed())

		Expect(risingAt).To(Equal([]sim.VTime{
			5 * sim.NS, 15 * sim.NS, 25 * sim.NS, 35 * sim.NS,
		}))
		Expect(gen.Cycles()).To(Equal(uint64(4)))
	})

	It("should drain the engine once stopped", func() {
		gen.Start()
		stopLater(100 * sim.NS)

		Expect(engine.Run()).To(Succeed())
		Expect(engine.Pending()).To(Equal(0))
		Expect(gen.Running()).To(BeFalse())
	})

	It("should not double schedule when started twice", func() {
		gen.Start()
		gen.Start()

		Expect(engine.Pending()).To(Equal(1))
	})

	It("should report edges through hooks", func() {
		var edges []signal.Edge
		gen.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
			Expect(ctx.Pos).To(Equal(clock.HookPosEdge))
			edges = append(edges, ctx.Item.(signal.Edge))
		}))

		gen.Start()
		stopLater(12 * sim.NS)
		Expect(engine.Run()).To(Succeed())

		Expect(edges).To(Equal([]signal.Edge{signal.Rising, signal.Falling}))
	})

	It("should start high when asked", func() {
		gen = clock.MakeBuilder().
			WithEngine(engine).
			WithStartHigh().
			Build("Clock")

		Expect(gen.Signal().High()).To(BeTrue())
	})

	It("should refuse to build without an engine", func() {
		Expect(func() { clock.MakeBuilder().Build("Clock") }).To(Panic())
	})
})
