package signal

import (
	"fmt"
	"log"
	"sort"
)

// A PinSet is the set of named signals exposed by a device.
type PinSet struct {
	byName map[string]*Signal
	order  []string
}

// NewPinSet creates a PinSet. Names must be unique.
func NewPinSet(signals ...*Signal) *PinSet {
	p := &PinSet{byName: make(map[string]*Signal)}

	for _, s := range signals {
		p.Add(s)
	}

	return p
}

// Add registers a signal with the PinSet.
func (p *PinSet) Add(s *Signal) {
	if _, found := p.byName[s.Name()]; found {
		log.Panicf("pin %s already exists", s.Name())
	}

	p.byName[s.Name()] = s
	p.order = append(p.order, s.Name())
}

// Lookup returns the signal with the given name.
func (p *PinSet) Lookup(name string) (*Signal, bool) {
	s, found := p.byName[name]
	return s, found
}

// Get returns the signal with the given name and panics if there is none.
func (p *PinSet) Get(name string) *Signal {
	s, found := p.byName[name]
	if !found {
		names := make([]string, 0, len(p.byName))
		for n := range p.byName {
			names = append(names, n)
		}
		sort.Strings(names)

		panic(fmt.Sprintf("pin %s not found, available pins: %v", name, names))
	}

	return s
}

// Names returns the pin names in the order they were added.
func (p *PinSet) Names() []string {
	names := make([]string, len(p.order))
	copy(names, p.order)

	return names
}

// Signals returns the signals in the order they were added.
func (p *PinSet) Signals() []*Signal {
	signals := make([]*Signal, 0, len(p.order))
	for _, n := range p.order {
		signals = append(signals, p.byName[n])
	}

	return signals
}

// Snapshot returns the current value of every pin.
func (p *PinSet) Snapshot() map[string]uint64 {
	values := make(map[string]uint64, len(p.byName))
	for n, s := range p.byName {
		values[n] = s.Value()
	}

	return values
}
