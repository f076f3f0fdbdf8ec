package regfile

import (
	"log"

	"github.com/sarchlab/regbench/signal"
	"github.com/sarchlab/regbench/sim"
)

// Builder can build register files.
type Builder struct {
	engine       sim.Engine
	addressWidth int
	dataWidth    int
	propDelay    sim.VTime
	fault        Fault
}

// MakeBuilder creates a builder for a 32 x 32-bit register file.
func MakeBuilder() Builder {
	return Builder{
		addressWidth: 5,
		dataWidth:    32,
		propDelay:    100 * sim.PS,
	}
}

// WithEngine sets the engine that evaluates the model.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithAddressWidth sets the width of rs1 and rd. The register file has
// 2^width registers.
func (b Builder) WithAddressWidth(width int) Builder {
	b.addressWidth = width
	return b
}

// WithDataWidth sets the width of wd and rd1.
func (b Builder) WithDataWidth(width int) Builder {
	b.dataWidth = width
	return b
}

// WithPropagationDelay sets how long rd1 takes to follow a change.
func (b Builder) WithPropagationDelay(d sim.VTime) Builder {
	b.propDelay = d
	return b
}

// WithFault injects a defect.
func (b Builder) WithFault(f Fault) Builder {
	b.fault = f
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.engine == nil {
		log.Panic("regfile: engine is not set")
	}

	if b.addressWidth < 1 || b.addressWidth > 10 {
		log.Panicf("regfile: address width %d not supported", b.addressWidth)
	}

	if b.dataWidth < 1 || b.dataWidth > signal.MaxWidth {
		log.Panicf("regfile: data width %d not supported", b.dataWidth)
	}

	if b.fault == FaultStuckBit && b.dataWidth <= stuckBit {
		log.Panic("regfile: data width too narrow for the stuck bit fault")
	}
}

// Build creates a new RegFile.
func (b Builder) Build(name string) *RegFile {
	b.parametersMustBeValid()

	r := &RegFile{
		ComponentBase: sim.NewComponentBase(name),
		engine:        b.engine,
		propDelay:     b.propDelay,
		fault:         b.fault,
		reset:         signal.New(PinReset, 1, signal.In),
		clk:           signal.New(PinClk, 1, signal.In),
		rs1:           signal.New(PinRs1, b.addressWidth, signal.In),
		rd1:           signal.New(PinRd1, b.dataWidth, signal.Out),
		rd:            signal.New(PinRd, b.addressWidth, signal.In),
		wd:            signal.New(PinWd, b.dataWidth, signal.In),
		we:            signal.New(PinWe, 1, signal.In),
		regs:          make([]uint64, 1<<b.addressWidth),
	}

	r.pins = signal.NewPinSet(
		r.reset, r.clk, r.rs1, r.rd1, r.rd, r.wd, r.we)

	mask := r.wd.Mask()
	for i := range r.regs {
		r.regs[i] = powerUpPattern(i) & mask
	}

	r.connect()

	return r
}

// powerUpPattern fills the storage before the first reset so that a missing
// reset is observable.
func powerUpPattern(i int) uint64 {
	return 0xdeadbeef ^ uint64(i)*0x01010101
}
