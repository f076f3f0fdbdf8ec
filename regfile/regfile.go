// Package regfile provides a behavioural model of a RISC-V integer register
// file: one combinational read port, one synchronous write port and a
// register 0 that always reads as zero.
package regfile

import (
	"github.com/sarchlab/regbench/signal"
	"github.com/sarchlab/regbench/sim"
)

// Pin names exposed by the register file.
const (
	PinReset = "reset"
	PinClk   = "clk"
	PinRs1   = "rs1"
	PinRd1   = "rd1"
	PinRd    = "rd"
	PinWd    = "wd"
	PinWe    = "we"
)

// HookPosCommit is triggered after a write is committed. The hook item is a
// Commit.
var HookPosCommit = &sim.HookPos{Name: "RegFileCommit"}

// HookPosReset is triggered when the register file is cleared by reset.
var HookPosReset = &sim.HookPos{Name: "RegFileReset"}

// A Commit describes one write that took effect.
type Commit struct {
	Time  sim.VTime
	Index int
	Value uint64
}

// Fault selects a defect to inject into the model. Faults exist so that
// testbenches can prove they detect broken hardware.
type Fault int

// The supported faults.
const (
	FaultNone Fault = iota
	// FaultNoReset leaves the power-up contents in place on reset.
	FaultNoReset
	// FaultStuckBit forces bit 3 of every written value to 0.
	FaultStuckBit
	// FaultX0Writable turns register 0 into an ordinary register.
	FaultX0Writable
	// FaultClockedRead registers the read port: rd1 follows rs1 only on a
	// rising clock edge.
	FaultClockedRead
	// FaultFadingRead flips bit 0 of rd1 once the output has been stable
	// for fadeDelay.
	FaultFadingRead
)

const (
	stuckBit  = 3
	fadeDelay = 1500 * sim.PS
)

var faultNames = map[Fault]string{
	FaultNone:        "none",
	FaultNoReset:     "no-reset",
	FaultStuckBit:    "stuck-bit",
	FaultX0Writable:  "x0-writable",
	FaultClockedRead: "clocked-read",
	FaultFadingRead:  "fading-read",
}

func (f Fault) String() string {
	if n, ok := faultNames[f]; ok {
		return n
	}

	return "unknown"
}

// Faults returns every supported fault, FaultNone first.
func Faults() []Fault {
	return []Fault{
		FaultNone,
		FaultNoReset,
		FaultStuckBit,
		FaultX0Writable,
		FaultClockedRead,
		FaultFadingRead,
	}
}

// ParseFault returns the fault with the given name.
func ParseFault(name string) (Fault, bool) {
	for f, n := range faultNames {
		if n == name {
			return f, true
		}
	}

	return FaultNone, false
}

type readUpdateEvent struct {
	*sim.EventBase
}

type fadeEvent struct {
	*sim.EventBase
	generation uint64
}

// A RegFile is the register file model. All interaction goes through its
// pins.
type RegFile struct {
	*sim.ComponentBase

	engine    sim.Engine
	pins      *signal.PinSet
	propDelay sim.VTime
	fault     Fault

	reset, clk, rs1, rd1, rd, wd, we *signal.Signal

	regs    []uint64
	commits uint64

	readGeneration uint64
	latchedRs1     int
}

// Pins returns the pins of the register file.
func (r *RegFile) Pins() *signal.PinSet {
	return r.pins
}

// NumRegs returns the number of architectural registers.
func (r *RegFile) NumRegs() int {
	return len(r.regs)
}

// Registers returns a copy of the storage array, as seen through the read
// port.
func (r *RegFile) Registers() []uint64 {
	values := make([]uint64, len(r.regs))
	for i := range r.regs {
		values[i] = r.read(i)
	}

	return values
}

// Commits returns the number of writes that took effect.
func (r *RegFile) Commits() uint64 {
	return r.commits
}

// Fault returns the injected fault.
func (r *RegFile) Fault() Fault {
	return r.fault
}

func (r *RegFile) connect() {
	r.reset.OnEdge(signal.Rising, r.onReset)
	r.clk.OnEdge(signal.Rising, r.onClockRise)
	r.rs1.Subscribe(func(*signal.Signal, uint64, uint64) {
		if r.fault != FaultClockedRead {
			r.scheduleReadUpdate()
		}
	})
}

func (r *RegFile) onReset() {
	if r.fault != FaultNoReset {
		for i := range r.regs {
			r.regs[i] = 0
		}
	}

	r.InvokeHook(sim.HookCtx{
		Domain: r,
		Pos:    HookPosReset,
	})

	r.scheduleReadUpdate()
}

func (r *RegFile) onClockRise() {
	if r.fault == FaultClockedRead {
		r.latchedRs1 = int(r.rs1.Value())
	}

	if r.commit() || r.fault == FaultClockedRead {
		r.scheduleReadUpdate()
	}
}

func (r *RegFile) commit() bool {
	if !r.we.High() || r.reset.High() {
		return false
	}

	index := int(r.rd.Value())
	if index == 0 && r.fault != FaultX0Writable {
		return false
	}

	value := r.wd.Value()
	if r.fault == FaultStuckBit {
		value &^= 1 << stuckBit
	}

	r.regs[index] = value
	r.commits++

	r.InvokeHook(sim.HookCtx{
		Domain: r,
		Pos:    HookPosCommit,
		Item: Commit{
			Time:  r.engine.CurrentTime(),
			Index: index,
			Value: value,
		},
	})

	return true
}

func (r *RegFile) scheduleReadUpdate() {
	t := r.engine.CurrentTime() + r.propDelay
	r.engine.Schedule(readUpdateEvent{sim.NewEventBase(t, r)})
}

func (r *RegFile) read(index int) uint64 {
	if index == 0 && r.fault != FaultX0Writable {
		return 0
	}

	return r.regs[index]
}

func (r *RegFile) readAddress() int {
	if r.fault == FaultClockedRead {
		return r.latchedRs1
	}

	return int(r.rs1.Value())
}

// Handle drives the read data output from the current read address.
func (r *RegFile) Handle(e sim.Event) error {
	switch e := e.(type) {
	case readUpdateEvent:
		r.readGeneration++
		r.rd1.Set(r.read(r.readAddress()))

		if r.fault == FaultFadingRead {
			t := r.engine.CurrentTime() + fadeDelay
			r.engine.Schedule(fadeEvent{sim.NewEventBase(t, r), r.readGeneration})
		}
	case fadeEvent:
		if e.generation == r.readGeneration {
			r.rd1.Set(r.rd1.Value() ^ 1)
		}
	default:
		panic("regfile: cannot handle event")
	}

	return nil
}
