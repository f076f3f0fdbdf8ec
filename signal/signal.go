// Package signal models the named pins through which a testbench and a
// simulated device exchange values.
package signal

import (
	"fmt"
	"log"
	"sync"
)

// Direction tells which side drives a signal, seen from the device.
type Direction int

// The directions of a pin.
const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	switch d {
	case In:
		return "in"
	case Out:
		return "out"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// MaxWidth is the widest signal that can be represented.
const MaxWidth = 64

// A Listener is called synchronously every time the value of a signal
// changes.
type Listener func(s *Signal, old, new uint64)

type subscription struct {
	listener  Listener
	cancelled bool
}

// A Signal is a named bundle of wires carrying an unsigned value.
type Signal struct {
	name  string
	width int
	dir   Direction

	lock          sync.Mutex
	value         uint64
	subscriptions []*subscription
}

// New creates a signal of the given width, initialized to 0.
func New(name string, width int, dir Direction) *Signal {
	if width < 1 || width > MaxWidth {
		log.Panicf("signal %s: width %d out of range [1, %d]",
			name, width, MaxWidth)
	}

	return &Signal{
		name:  name,
		width: width,
		dir:   dir,
	}
}

// Name returns the name of the signal.
func (s *Signal) Name() string {
	return s.name
}

// Width returns the number of bits of the signal.
func (s *Signal) Width() int {
	return s.width
}

// Direction returns the direction of the signal.
func (s *Signal) Direction() Direction {
	return s.dir
}

// Mask returns the largest value the signal can carry.
func (s *Signal) Mask() uint64 {
	if s.width == MaxWidth {
		return ^uint64(0)
	}

	return (uint64(1) << s.width) - 1
}

// Value returns the current value.
func (s *Signal) Value() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.value
}

// High tells if a 1-bit signal is asserted.
func (s *Signal) High() bool {
	return s.Value() != 0
}

// Set drives a new value. It panics if the value does not fit the width.
// Listeners are only notified when the value actually changes.
func (s *Signal) Set(v uint64) {
	if v&^s.Mask() != 0 {
		log.Panicf("signal %s: value %#x does not fit in %d bits",
			s.name, v, s.width)
	}

	s.lock.Lock()
	old := s.value
	if old == v {
		s.lock.Unlock()
		return
	}

	s.value = v
	subs := make([]*subscription, len(s.subscriptions))
	copy(subs, s.subscriptions)
	s.lock.Unlock()

	for _, sub := range subs {
		if !sub.cancelled {
			sub.listener(s, old, v)
		}
	}
}

// SetBool drives 1 for true and 0 for false.
func (s *Signal) SetBool(b bool) {
	if b {
		s.Set(1)
		return
	}

	s.Set(0)
}

// Subscribe registers a listener. The returned function removes it.
func (s *Signal) Subscribe(l Listener) (cancel func()) {
	sub := &subscription{listener: l}

	s.lock.Lock()
	s.subscriptions = append(s.subscriptions, sub)
	s.lock.Unlock()

	return func() {
		s.lock.Lock()
		defer s.lock.Unlock()

		sub.cancelled = true

		for i, other := range s.subscriptions {
			if other == sub {
				s.subscriptions = append(
					s.subscriptions[:i], s.subscriptions[i+1:]...)
				break
			}
		}
	}
}

// NumListeners returns the number of active listeners.
func (s *Signal) NumListeners() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return len(s.subscriptions)
}

func (s *Signal) String() string {
	return fmt.Sprintf("%s[%d:0]=%#x", s.name, s.width-1, s.Value())
}
