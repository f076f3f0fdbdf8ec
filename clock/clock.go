// Package clock provides a clock generator that drives a 1-bit signal.
package clock

import (
	"github.com/sarchlab/regbench/signal"
	"github.com/sarchlab/regbench/sim"
)

// HookPosEdge marks a clock transition. The hook item is the signal.Edge.
var HookPosEdge = &sim.HookPos{Name: "ClockEdge"}

type toggleEvent struct {
	*sim.EventBase
}

// A Generator toggles its signal every half period while it is running.
type Generator struct {
	*sim.ComponentBase

	engine sim.Engine
	freq   sim.Freq
	clk    *signal.Signal

	running   bool
	scheduled bool
	cycles    uint64
}

// Signal returns the driven clock signal.
func (g *Generator) Signal() *signal.Signal {
	return g.clk
}

// Freq returns the frequency of the clock.
func (g *Generator) Freq() sim.Freq {
	return g.freq
}

// Cycles returns the number of rising edges generated so far.
func (g *Generator) Cycles() uint64 {
	return g.cycles
}

// Running tells if the generator is toggling the clock.
func (g *Generator) Running() bool {
	return g.running
}

// Start begins toggling half a period from now.
func (g *Generator) Start() {
	if g.running {
		return
	}

	g.running = true
	g.scheduleNext()
}

// Stop stops toggling. The signal keeps its current level.
func (g *Generator) Stop() {
	g.running = false
}

func (g *Generator) scheduleNext() {
	if g.scheduled {
		return
	}

	next := g.engine.CurrentTime() + g.freq.HalfPeriod()
	g.engine.Schedule(toggleEvent{sim.NewEventBase(next, g)})
	g.scheduled = true
}

// Handle toggles the clock.
func (g *Generator) Handle(e sim.Event) error {
	g.scheduled = false

	if !g.running {
		return nil
	}

	edge := signal.Rising
	if g.clk.High() {
		edge = signal.Falling
	}

	if edge == signal.Rising {
		g.cycles++
	}

	g.clk.SetBool(edge == signal.Rising)

	g.InvokeHook(sim.HookCtx{
		Domain: g,
		Pos:    HookPosEdge,
		Item:   edge,
	})

	g.scheduleNext()

	return nil
}
