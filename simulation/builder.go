package simulation

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/regbench/clock"
	"github.com/sarchlab/regbench/cosim"
	"github.com/sarchlab/regbench/datarecording"
	"github.com/sarchlab/regbench/monitoring"
	"github.com/sarchlab/regbench/regfile"
	"github.com/sarchlab/regbench/sim"
)

// Builder can be used to build the simulation of one register file test.
type Builder struct {
	freq      sim.Freq
	numRegs   int
	dataWidth int
	propDelay sim.VTime
	fault     regfile.Fault
	logger    logrus.FieldLogger
	logEvents bool
	recorder  *datarecording.BenchRecorder
	monitor   *monitoring.Monitor
}

// MakeBuilder creates a new builder with a 100MHz clock and a 32x32
// register file.
func MakeBuilder() Builder {
	return Builder{
		freq:      100 * sim.MHz,
		numRegs:   32,
		dataWidth: 32,
		propDelay: 100 * sim.PS,
		fault:     regfile.FaultNone,
		logger:    logrus.StandardLogger(),
	}
}

// WithFreq sets the clock frequency.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithNumRegs sets the number of registers. It must be a power of two.
func (b Builder) WithNumRegs(n int) Builder {
	b.numRegs = n
	return b
}

// WithDataWidth sets the width of the registers.
func (b Builder) WithDataWidth(width int) Builder {
	b.dataWidth = width
	return b
}

// WithPropagationDelay sets the delay of the read port.
func (b Builder) WithPropagationDelay(d sim.VTime) Builder {
	b.propDelay = d
	return b
}

// WithFault injects a fault into the register file.
func (b Builder) WithFault(f regfile.Fault) Builder {
	b.fault = f
	return b
}

// WithLogger sets the logger given to the runner.
func (b Builder) WithLogger(logger logrus.FieldLogger) Builder {
	b.logger = logger
	return b
}

// WithEventLogging logs every event handled by the engine at debug level.
func (b Builder) WithEventLogging() Builder {
	b.logEvents = true
	return b
}

// WithRecorder stores checkpoints, commits and results with the recorder.
func (b Builder) WithRecorder(r *datarecording.BenchRecorder) Builder {
	b.recorder = r
	return b
}

// WithMonitor shows the simulation on the monitor.
func (b Builder) WithMonitor(m *monitoring.Monitor) Builder {
	b.monitor = m
	return b
}

// Validate checks that Build can succeed.
func (b Builder) Validate() error {
	if b.freq <= 0 {
		return fmt.Errorf("clock frequency %.0fHz must be positive", b.freq)
	}

	if b.freq > 250*sim.GHz {
		return fmt.Errorf("clock frequency %.0fHz is too high", b.freq)
	}

	if b.numRegs < 2 || b.numRegs > 32 || b.numRegs&(b.numRegs-1) != 0 {
		return fmt.Errorf("number of registers %d must be a power of two "+
			"between 2 and 32", b.numRegs)
	}

	if b.dataWidth < 8 || b.dataWidth > 64 {
		return fmt.Errorf("data width %d must be between 8 and 64",
			b.dataWidth)
	}

	if b.logger == nil {
		return errors.New("logger is not set")
	}

	return nil
}

// Build builds the simulation for the named test. It panics if the builder
// is not valid.
func (b Builder) Build(testName string) *Simulation {
	if err := b.Validate(); err != nil {
		panic(err)
	}

	s := &Simulation{
		id:            xid.New().String(),
		testName:      testName,
		compNameIndex: make(map[string]int),
	}

	prefix := ComponentPrefix(testName)

	s.engine = sim.NewSerialEngine()
	if b.logEvents {
		s.engine.AcceptHook(sim.NewEventLogger(
			b.logger.WithField("test", testName)))
	}

	s.regFile = regfile.MakeBuilder().
		WithEngine(s.engine).
		WithAddressWidth(bits.Len(uint(b.numRegs - 1))).
		WithDataWidth(b.dataWidth).
		WithPropagationDelay(b.propDelay).
		WithFault(b.fault).
		Build(prefix + ".RegFile")

	s.clock = clock.MakeBuilder().
		WithEngine(s.engine).
		WithFreq(b.freq).
		WithSignal(s.regFile.Pins().Get(regfile.PinClk)).
		Build(prefix + ".Clock")

	s.runner = cosim.NewRunner(prefix+".Runner", s.engine,
		cosim.NewDUT(s.regFile.Name(), s.regFile.Pins()), b.logger)

	s.RegisterComponent(s.regFile)
	s.RegisterComponent(s.clock)
	s.RegisterComponent(s.runner)

	if b.recorder != nil {
		b.recorder.Bind(s.runner, s.regFile)
	}

	if b.monitor != nil {
		b.monitor.RegisterEngine(testName, s.engine)
		for _, c := range s.components {
			b.monitor.RegisterComponent(s.engine, c)
		}

		s.runner.AcceptHook(b.monitor.TrackTest(testName))
	}

	s.clock.Start()

	return s
}

// Factory returns a cosim.Factory that builds a fresh simulation for every
// test.
func (b Builder) Factory() cosim.Factory {
	return func(test cosim.Test) (*cosim.Runner, error) {
		if err := b.Validate(); err != nil {
			return nil, err
		}

		return b.Build(test.Name).Runner(), nil
	}
}
