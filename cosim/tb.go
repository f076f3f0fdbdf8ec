package cosim

import (
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/regbench/signal"
	"github.com/sarchlab/regbench/sim"
)

// TB is the handle a test body uses to talk to the simulation. It must only
// be used from the goroutine running the test body.
type TB struct {
	runner   *Runner
	fatalErr error
}

// Name returns the name of the running test.
func (tb *TB) Name() string {
	return tb.runner.test.Name
}

// DUT returns the device under test.
func (tb *TB) DUT() *DUT {
	return tb.runner.dut
}

// Now returns the current simulated time.
func (tb *TB) Now() sim.VTime {
	return tb.runner.engine.CurrentTime()
}

// Log returns a logger annotated with the test name and simulated time.
func (tb *TB) Log() *logrus.Entry {
	return tb.runner.logger.WithFields(logrus.Fields{
		"test":     tb.Name(),
		"sim_time": tb.Now().String(),
	})
}

// Timer suspends the test for d of simulated time.
func (tb *TB) Timer(d sim.VTime) {
	tb.runner.wakeAt(tb.Now() + d)
	tb.runner.suspend()
}

// RisingEdge suspends the test until the next 0 to 1 transition of a 1-bit
// pin.
func (tb *TB) RisingEdge(pin string) {
	tb.Edge(pin, signal.Rising)
}

// FallingEdge suspends the test until the next 1 to 0 transition of a 1-bit
// pin.
func (tb *TB) FallingEdge(pin string) {
	tb.Edge(pin, signal.Falling)
}

// Edge suspends the test until the given transition of a 1-bit pin. The
// test resumes in the same time step, after the device has reacted to the
// edge.
func (tb *TB) Edge(pin string, e signal.Edge) {
	s := tb.DUT().Signal(pin)

	s.OnceEdge(e, func() {
		tb.runner.wakeAt(tb.runner.engine.CurrentTime())
	})

	tb.runner.suspend()
}

// InvokeHook reports to the hooks attached to the runner.
func (tb *TB) InvokeHook(ctx sim.HookCtx) {
	tb.runner.InvokeHook(ctx)
}

// Fatal fails the test with err and stops the test body immediately.
func (tb *TB) Fatal(err error) {
	if err == nil {
		err = ErrFailed
	}

	tb.fatalErr = err
	runtime.Goexit()
}
