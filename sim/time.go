package sim

import "fmt"

// VTime is a point in simulated time, counted in picoseconds.
//
// Integer time keeps repeated nanosecond waits and clock edges exactly
// comparable, which a floating point second counter cannot guarantee.
type VTime uint64

// Units of simulated time.
const (
	PS  VTime = 1
	NS        = 1000 * PS
	US        = 1000 * NS
	MS        = 1000 * US
	Sec       = 1000 * MS
)

// InSec converts the time to seconds.
func (t VTime) InSec() float64 {
	return float64(t) / float64(Sec)
}

// InNS converts the time to nanoseconds.
func (t VTime) InNS() float64 {
	return float64(t) / float64(NS)
}

// String prints the time in nanoseconds.
func (t VTime) String() string {
	return fmt.Sprintf("%.3fns", t.InNS())
}
