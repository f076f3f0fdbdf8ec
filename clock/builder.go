package clock

import (
	"log"

	"github.com/sarchlab/regbench/signal"
	"github.com/sarchlab/regbench/sim"
)

// Builder can build clock generators.
type Builder struct {
	engine    sim.Engine
	freq      sim.Freq
	signal    *signal.Signal
	startHigh bool
}

// MakeBuilder creates a builder with a 100MHz clock.
func MakeBuilder() Builder {
	return Builder{
		freq: 100 * sim.MHz,
	}
}

// WithEngine sets the engine that schedules the toggles.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the clock frequency.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithSignal sets the signal to drive. By default a new 1-bit signal named
// "clk" is created.
func (b Builder) WithSignal(s *signal.Signal) Builder {
	b.signal = s
	return b
}

// WithStartHigh makes the clock start at level 1, so the first transition
// is a falling edge.
func (b Builder) WithStartHigh() Builder {
	b.startHigh = true
	return b
}

// Build creates a new Generator. The generator does not run until Start is
// called.
func (b Builder) Build(name string) *Generator {
	if b.engine == nil {
		log.Panic("clock: engine is not set")
	}

	if b.freq.Period() < 2 {
		log.Panic("clock: period must be at least 2ps")
	}

	clk := b.signal
	if clk == nil {
		clk = signal.New("clk", 1, signal.In)
	}

	if clk.Width() != 1 {
		log.Panicf("clock: signal %s must be 1 bit wide", clk.Name())
	}

	clk.SetBool(b.startHigh)

	return &Generator{
		ComponentBase: sim.NewComponentBase(name),
		engine:        b.engine,
		freq:          b.freq,
		clk:           clk,
	}
}
