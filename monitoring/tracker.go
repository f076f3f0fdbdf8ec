package monitoring

import (
	"github.com/sarchlab/regbench/cosim"
	"github.com/sarchlab/regbench/regfiletb"
	"github.com/sarchlab/regbench/sim"
)

// A TestTracker is a hook that shows the progress of one test on the
// monitor. The bar has one step in progress until the test has reported as
// many checkpoints as its Steps.
type TestTracker struct {
	monitor *Monitor
	name    string

	bar      *ProgressBar
	total    uint64
	done     uint64
	inFlight bool
}

// TrackTest creates a tracker for the named test.
func (m *Monitor) TrackTest(name string) *TestTracker {
	m.SetState(name, "Pending")

	return &TestTracker{
		monitor: m,
		name:    name,
	}
}

// Func updates the monitor.
func (t *TestTracker) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case cosim.HookPosTestStart:
		t.start(ctx.Item.(cosim.Test))
	case regfiletb.HookPosStateChange:
		t.monitor.SetState(t.name, ctx.Item.(regfiletb.State).String())
	case regfiletb.HookPosCheckpoint:
		t.stepDone()
	case cosim.HookPosTestEnd:
		if ctx.Item.(cosim.Result).Passed {
			t.monitor.SetState(t.name, "Passed")
		} else {
			t.monitor.SetState(t.name, "Failed")
		}

		if t.bar != nil {
			t.monitor.CompleteProgressBar(t.bar)
			t.bar = nil
		}
	}
}

func (t *TestTracker) start(test cosim.Test) {
	t.total = test.Steps
	t.done = 0
	t.inFlight = false
	t.bar = t.monitor.CreateProgressBar(t.name, t.total)
	t.monitor.SetState(t.name, "Running")

	t.nextStep()
}

func (t *TestTracker) stepDone() {
	if t.bar == nil {
		return
	}

	if t.inFlight {
		t.bar.MoveInProgressToFinished(1)
	} else {
		t.bar.IncrementFinished(1)
	}

	t.done++
	t.inFlight = false
	t.nextStep()
}

func (t *TestTracker) nextStep() {
	if t.done < t.total {
		t.bar.IncrementInProgress(1)
		t.inFlight = true
	}
}
