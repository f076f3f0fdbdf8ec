// Package regfiletb holds the testbench for the RISC-V register file: the
// four-phase stimulus and checker sequence, and a few directed scenarios.
package regfiletb

import (
	"log"

	"github.com/sarchlab/regbench/cosim"
	"github.com/sarchlab/regbench/regfile"
	"github.com/sarchlab/regbench/sim"
)

// HookPosStateChange is triggered when the sequencer enters a new state.
// The item is the new State.
var HookPosStateChange = &sim.HookPos{Name: "SequencerStateChange"}

// HookPosCheckpoint is triggered every time a register value is checked.
// The item is a Checkpoint.
var HookPosCheckpoint = &sim.HookPos{Name: "SequencerCheckpoint"}

// A Checkpoint is one comparison between an expected and an observed value.
type Checkpoint struct {
	Time     sim.VTime
	Test     string
	Phase    string
	Index    int
	Expected uint64
	Actual   uint64
	Passed   bool
}

// A Sequencer drives the register file pins and checks what comes back.
//
// Hooks see state changes and checkpoints. They are reported both to the
// hooks of the sequencer and to the hooks of the runner executing the test.
type Sequencer struct {
	sim.HookableBase

	cfg   Config
	state State
}

// NewSequencer creates a sequencer. It panics on an invalid configuration.
func NewSequencer(cfg Config) *Sequencer {
	if err := cfg.Validate(); err != nil {
		log.Panic(err)
	}

	return &Sequencer{cfg: cfg, state: StateInit}
}

// State returns the current state.
func (s *Sequencer) State() State {
	return s.state
}

// Config returns the configuration.
func (s *Sequencer) Config() Config {
	return s.cfg
}

func (s *Sequencer) enter(tb *cosim.TB, next State) {
	if next != s.state+1 {
		log.Panicf("sequencer cannot move from %s to %s", s.state, next)
	}

	s.state = next

	tb.Log().WithField("state", next.String()).Debug("sequencer state")
	s.report(tb, HookPosStateChange, next)
}

func (s *Sequencer) report(tb *cosim.TB, pos *sim.HookPos, item any) {
	ctx := sim.HookCtx{
		Domain: s,
		Pos:    pos,
		Item:   item,
	}

	s.InvokeHook(ctx)
	tb.InvokeHook(ctx)
}

// Run performs reset, reset verification, the write sweep and the read-back
// verification. It returns the first failed check as an *AssertionError.
func (s *Sequencer) Run(tb *cosim.TB) error {
	s.Reset(tb)
	s.enter(tb, StateResetAsserted)

	for i := 0; i < s.cfg.NumRegs; i++ {
		if err := s.Check(tb, PhaseResetCheck, i, 0); err != nil {
			return err
		}
	}
	s.enter(tb, StateResetVerified)

	for i := 1; i < s.cfg.NumRegs; i++ {
		s.Write(tb, i, s.cfg.Value(i))
	}
	s.enter(tb, StateWritesIssued)

	for i := 1; i < s.cfg.NumRegs; i++ {
		if err := s.Check(tb, PhaseReadBack, i, s.cfg.Value(i)); err != nil {
			return err
		}
	}

	if err := s.Check(tb, PhaseZeroCheck, 0, 0); err != nil {
		return err
	}
	s.enter(tb, StateReadsVerified)

	s.enter(tb, StateDone)
	tb.Log().Info("register file test passed")

	return nil
}

// Reset pulses reset and lets the device settle.
func (s *Sequencer) Reset(tb *cosim.TB) {
	dut := tb.DUT()

	dut.Set(regfile.PinReset, 1)
	tb.Timer(s.cfg.ResetTime)
	dut.Set(regfile.PinReset, 0)
	tb.Timer(s.cfg.ResetTime)
}

// Write presents a write and holds write enable across one rising clock
// edge.
func (s *Sequencer) Write(tb *cosim.TB, index int, value uint64) {
	dut := tb.DUT()

	dut.Set(regfile.PinRd, uint64(index))
	dut.Set(regfile.PinWd, value)
	dut.Set(regfile.PinWe, 1)
	tb.RisingEdge(regfile.PinClk)
	dut.Set(regfile.PinWe, 0)
}

// Read selects a register on the read port and samples it after the
// settling time.
func (s *Sequencer) Read(tb *cosim.TB, index int) uint64 {
	dut := tb.DUT()

	dut.Set(regfile.PinRs1, uint64(index))
	tb.Timer(s.cfg.SettleTime)

	return dut.Get(regfile.PinRd1)
}

// Check reads a register and compares it with the expected value.
func (s *Sequencer) Check(
	tb *cosim.TB,
	phase string,
	index int,
	expected uint64,
) error {
	return s.compare(tb, phase, index, expected, s.Read(tb, index))
}

func (s *Sequencer) compare(
	tb *cosim.TB,
	phase string,
	index int,
	expected, actual uint64,
) error {
	cp := Checkpoint{
		Time:     tb.Now(),
		Test:     tb.Name(),
		Phase:    phase,
		Index:    index,
		Expected: expected,
		Actual:   actual,
		Passed:   expected == actual,
	}

	s.report(tb, HookPosCheckpoint, cp)

	if cp.Passed {
		return nil
	}

	return &AssertionError{
		Phase:    phase,
		Index:    index,
		Expected: expected,
		Actual:   actual,
	}
}
