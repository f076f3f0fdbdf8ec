package signal

import "log"

// Edge is a kind of transition on a 1-bit signal.
type Edge int

// Transitions of a 1-bit signal.
const (
	Rising Edge = iota
	Falling
)

func (e Edge) String() string {
	if e == Rising {
		return "rising"
	}

	return "falling"
}

// Matches tells if a change from old to new is this kind of edge.
func (e Edge) Matches(old, new uint64) bool {
	switch e {
	case Rising:
		return old == 0 && new == 1
	case Falling:
		return old == 1 && new == 0
	default:
		return false
	}
}

// OnEdge calls fn on every matching transition of a 1-bit signal. The
// returned function removes the listener.
func (s *Signal) OnEdge(e Edge, fn func()) (cancel func()) {
	if s.width != 1 {
		log.Panicf("signal %s: edges are only defined on 1-bit signals",
			s.name)
	}

	return s.Subscribe(func(_ *Signal, old, new uint64) {
		if e.Matches(old, new) {
			fn()
		}
	})
}

// OnceEdge is like OnEdge, but the listener removes itself after the first
// matching transition.
func (s *Signal) OnceEdge(e Edge, fn func()) (cancel func()) {
	var done bool

	var remove func()
	remove = s.OnEdge(e, func() {
		if done {
			return
		}

		done = true
		remove()
		fn()
	})

	return func() {
		done = true
		remove()
	}
}
