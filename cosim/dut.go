package cosim

import (
	"log"

	"github.com/sarchlab/regbench/signal"
)

// A DUT is the handle through which a test reaches the device under test.
// It only exposes pins. The device itself is owned by whoever built the
// simulation.
type DUT struct {
	name string
	pins *signal.PinSet
}

// NewDUT wraps the pins of a device.
func NewDUT(name string, pins *signal.PinSet) *DUT {
	return &DUT{name: name, pins: pins}
}

// Name returns the name of the device.
func (d *DUT) Name() string {
	return d.name
}

// Pins returns all the pins of the device.
func (d *DUT) Pins() *signal.PinSet {
	return d.pins
}

// Signal returns the named pin.
func (d *DUT) Signal(pin string) *signal.Signal {
	return d.pins.Get(pin)
}

// Get samples the value of a pin.
func (d *DUT) Get(pin string) uint64 {
	return d.pins.Get(pin).Value()
}

// Set drives an input pin. Driving an output of the device is a programming
// error and panics.
func (d *DUT) Set(pin string, v uint64) {
	s := d.pins.Get(pin)
	if s.Direction() != signal.In {
		log.Panicf("%s: cannot drive output pin %s", d.name, pin)
	}

	s.Set(v)
}
