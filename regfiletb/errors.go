package regfiletb

import "fmt"

// Phases in which values are checked.
const (
	PhaseResetCheck = "reset-check"
	PhaseReadBack   = "read-back"
	PhaseZeroCheck  = "zero-check"
	PhaseDirected   = "directed"
	PhaseRepeatRead = "repeat-read"
)

// An AssertionError reports a register that did not read as expected. It is
// the only way a testbench check fails.
type AssertionError struct {
	Phase    string
	Index    int
	Expected uint64
	Actual   uint64
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: register x%d read incorrect, expected %d, got %d",
		e.Phase, e.Index, e.Expected, e.Actual)
}
