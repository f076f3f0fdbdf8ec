package sim

import (
	"log"
	"math"
)

// Freq defines the type of frequency.
type Freq float64

// Defines the unit of frequency.
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// Period returns the time between two consecutive ticks, rounded to the
// nearest picosecond.
func (f Freq) Period() VTime {
	if f <= 0 {
		log.Panic("frequency must be positive")
	}

	p := VTime(math.Round(float64(Sec) / float64(f)))
	if p == 0 {
		log.Panicf("frequency %.0fHz is too high for picosecond time", f)
	}

	return p
}

// HalfPeriod returns half of the period, rounded down.
func (f Freq) HalfPeriod() VTime {
	return f.Period() / 2
}

// Cycle converts a time to the number of whole cycles passed since time 0.
func (f Freq) Cycle(t VTime) uint64 {
	return uint64(t / f.Period())
}

// ThisTick returns the tick time at or right after now.
//
//	             Input
//	             (          ]
//	  |----------|----------|----------|----->
//	                        |
//	                        Output
func (f Freq) ThisTick(now VTime) VTime {
	p := f.Period()
	if now%p == 0 {
		return now
	}

	return (now/p + 1) * p
}

// NextTick returns the first tick time strictly after now.
//
//	             Input
//	             [          )
//	  |----------|----------|----------|----->
//	                        |
//	                        Output
func (f Freq) NextTick(now VTime) VTime {
	p := f.Period()
	return (now/p + 1) * p
}

// NCyclesLater returns the time after N cycles, aligned to a tick.
func (f Freq) NCyclesLater(n int, now VTime) VTime {
	if n < 0 {
		log.Panic("cannot go back in time")
	}

	return f.ThisTick(now + VTime(n)*f.Period())
}
