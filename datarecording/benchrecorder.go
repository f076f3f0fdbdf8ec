package datarecording

import (
	"sync"

	"github.com/sarchlab/regbench/cosim"
	"github.com/sarchlab/regbench/regfile"
	"github.com/sarchlab/regbench/regfiletb"
	"github.com/sarchlab/regbench/sim"
)

// Table names used by the BenchRecorder.
const (
	CheckpointTable = "checkpoints"
	ResultTable     = "results"
	CommitTable     = "commits"
)

// CheckpointRow is one register comparison.
type CheckpointRow struct {
	Test     string
	TimeNS   float64
	Phase    string
	Reg      int
	Expected uint64
	Actual   uint64
	Passed   bool
}

// ResultRow is the outcome of one test.
type ResultRow struct {
	Test      string
	Passed    bool
	Error     string
	SimTimeNS float64
	WallMS    float64
}

// CommitRow is one write that took effect in the register file.
type CommitRow struct {
	Test   string
	TimeNS float64
	Reg    int
	Value  uint64
}

// A BenchRecorder is a hook that stores checkpoints, commits and results.
// One BenchRecorder can serve several simulations running in parallel.
type BenchRecorder struct {
	recorder DataRecorder

	lock        sync.Mutex
	currentTest map[sim.Hookable]string
}

// NewBenchRecorder creates the tables on the recorder.
func NewBenchRecorder(recorder DataRecorder) *BenchRecorder {
	recorder.CreateTable(CheckpointTable, CheckpointRow{})
	recorder.CreateTable(ResultTable, ResultRow{})
	recorder.CreateTable(CommitTable, CommitRow{})

	return &BenchRecorder{
		recorder:    recorder,
		currentTest: make(map[sim.Hookable]string),
	}
}

// Bind makes commits reported by the register file count toward the test
// run by the runner.
func (r *BenchRecorder) Bind(runner *cosim.Runner, rf *regfile.RegFile) {
	runner.AcceptHook(r)
	rf.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
		if ctx.Pos != regfile.HookPosCommit {
			return
		}

		r.lock.Lock()
		test := r.currentTest[runner]
		r.lock.Unlock()

		c := ctx.Item.(regfile.Commit)
		r.recorder.InsertData(CommitTable, CommitRow{
			Test:   test,
			TimeNS: c.Time.InNS(),
			Reg:    c.Index,
			Value:  c.Value,
		})
	}))
}

// Func records what the hook reports.
func (r *BenchRecorder) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case cosim.HookPosTestStart:
		r.lock.Lock()
		r.currentTest[ctx.Domain] = ctx.Item.(cosim.Test).Name
		r.lock.Unlock()
	case regfiletb.HookPosCheckpoint:
		r.recordCheckpoint(ctx.Item.(regfiletb.Checkpoint))
	case cosim.HookPosTestEnd:
		r.recordResult(ctx.Item.(cosim.Result))

		r.lock.Lock()
		delete(r.currentTest, ctx.Domain)
		r.lock.Unlock()
	}
}

func (r *BenchRecorder) recordCheckpoint(cp regfiletb.Checkpoint) {
	r.recorder.InsertData(CheckpointTable, CheckpointRow{
		Test:     cp.Test,
		TimeNS:   cp.Time.InNS(),
		Phase:    cp.Phase,
		Reg:      cp.Index,
		Expected: cp.Expected,
		Actual:   cp.Actual,
		Passed:   cp.Passed,
	})
}

func (r *BenchRecorder) recordResult(res cosim.Result) {
	row := ResultRow{
		Test:      res.Name,
		Passed:    res.Passed,
		SimTimeNS: res.SimTime.InNS(),
		WallMS:    float64(res.WallTime.Microseconds()) / 1000,
	}

	if res.Err != nil {
		row.Error = res.Err.Error()
	}

	r.recorder.InsertData(ResultTable, row)
}
