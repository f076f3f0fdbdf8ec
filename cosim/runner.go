package cosim

import (
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/regbench/sim"
)

// ErrStalled is reported when the engine runs out of events while a test is
// still waiting for something to happen.
var ErrStalled = errors.New("simulation stalled while the test was waiting")

// ErrFailed is reported when a test calls Fatal without a reason.
var ErrFailed = errors.New("test failed")

// ErrPanicked wraps a panic raised by a test body.
var ErrPanicked = errors.New("test panicked")

// HookPosTestStart is triggered before a test body starts. The item is the
// Test.
var HookPosTestStart = &sim.HookPos{Name: "TestStart"}

// HookPosTestEnd is triggered after a test finishes. The item is the Result.
var HookPosTestEnd = &sim.HookPos{Name: "TestEnd"}

// errTestDone stops the engine once the test body has returned. Clocks and
// other free-running components would otherwise keep it busy forever.
var errTestDone = errors.New("test done")

type startEvent struct {
	*sim.EventBase
}

type resumeEvent struct {
	*sim.EventBase
}

type yieldKind int

const (
	yieldWait yieldKind = iota
	yieldDone
)

type yieldMsg struct {
	kind yieldKind
	err  error
}

// A Runner executes one test against one device on one engine.
type Runner struct {
	*sim.ComponentBase

	engine sim.Engine
	dut    *DUT
	logger logrus.FieldLogger

	test     Test
	resume   chan struct{}
	yield    chan yieldMsg
	started  bool
	finished bool
	aborted  atomic.Bool
	testErr  error
}

// NewRunner creates a runner. The engine must not be shared with another
// runner.
func NewRunner(
	name string,
	engine sim.Engine,
	dut *DUT,
	logger logrus.FieldLogger,
) *Runner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Runner{
		ComponentBase: sim.NewComponentBase(name),
		engine:        engine,
		dut:           dut,
		logger:        logger,
	}
}

// DUT returns the device handle given to tests.
func (r *Runner) DUT() *DUT {
	return r.dut
}

// Engine returns the engine the runner drives.
func (r *Runner) Engine() sim.Engine {
	return r.engine
}

// Run executes the test and blocks until it passes, fails, or the
// simulation can no longer make progress. A Runner can only run one test.
func (r *Runner) Run(test Test) Result {
	if r.started {
		log.Panicf("%s: a runner can only run one test", r.Name())
	}

	r.started = true
	r.test = test
	r.resume = make(chan struct{})
	r.yield = make(chan yieldMsg)

	r.InvokeHook(sim.HookCtx{Domain: r, Pos: HookPosTestStart, Item: test})

	wallStart := time.Now()
	r.engine.Schedule(startEvent{
		sim.NewEventBase(r.engine.CurrentTime(), r)})

	err := r.collectError(r.engine.Run())
	r.engine.Finished()

	result := Result{
		Name:     test.Name,
		Passed:   err == nil,
		Err:      err,
		SimTime:  r.engine.CurrentTime(),
		WallTime: time.Since(wallStart),
	}

	r.InvokeHook(sim.HookCtx{Domain: r, Pos: HookPosTestEnd, Item: result})

	return result
}

func (r *Runner) collectError(engineErr error) error {
	switch {
	case r.finished:
		return r.testErr
	case engineErr != nil:
		r.abort()
		return engineErr
	default:
		r.abort()
		return fmt.Errorf("%w at %s", ErrStalled, r.engine.CurrentTime())
	}
}

func (r *Runner) abort() {
	if !r.aborted.CompareAndSwap(false, true) {
		return
	}

	close(r.resume)
}

// Handle starts or resumes the test body and waits until it yields again.
func (r *Runner) Handle(e sim.Event) error {
	switch e.(type) {
	case startEvent:
		go r.body()
	case resumeEvent:
		r.resume <- struct{}{}
	default:
		log.Panicf("%s: cannot handle event %T", r.Name(), e)
	}

	msg := <-r.yield
	if msg.kind == yieldWait {
		return nil
	}

	r.finished = true
	r.testErr = msg.err

	return errTestDone
}

func (r *Runner) body() {
	tb := &TB{runner: r}
	returned := false

	var err error

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrPanicked, rec)
		} else if !returned {
			err = tb.fatalErr
		}

		if r.aborted.Load() {
			return
		}

		r.yield <- yieldMsg{kind: yieldDone, err: err}
	}()

	err = r.test.Func(tb)
	returned = true
}

func (r *Runner) suspend() {
	r.yield <- yieldMsg{kind: yieldWait}

	if _, ok := <-r.resume; !ok {
		panic(errAborted{})
	}
}

// errAborted unwinds a test body whose simulation is gone.
type errAborted struct{}

func (r *Runner) wakeAt(t sim.VTime) {
	r.engine.Schedule(resumeEvent{sim.NewSecondaryEventBase(t, r)})
}
