package cosim

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/sarchlab/regbench/sim"
)

// ErrUnknownTest is returned when a test name is not registered.
var ErrUnknownTest = errors.New("unknown test")

// A Func is the body of a test. Returning a non-nil error fails the test.
type Func func(tb *TB) error

// A Test is a named test body.
type Test struct {
	Name string
	Doc  string
	Func Func

	// Steps is how many progress steps a passing run reports, 0 if unknown.
	Steps uint64
}

// A Result is the outcome of running one test.
type Result struct {
	Name     string
	Passed   bool
	Err      error
	SimTime  sim.VTime
	WallTime time.Duration
}

func (r Result) String() string {
	if r.Passed {
		return fmt.Sprintf("PASS %s (%s sim, %s wall)",
			r.Name, r.SimTime, r.WallTime.Round(time.Microsecond))
	}

	return fmt.Sprintf("FAIL %s @ %s: %v", r.Name, r.SimTime, r.Err)
}

// A Registry holds the tests that can be selected by name.
type Registry struct {
	tests map[string]Test
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tests: make(map[string]Test)}
}

// Register adds a test. Names must be unique and non-empty.
func (r *Registry) Register(t Test) {
	if t.Name == "" || t.Func == nil {
		log.Panic("cosim: a test needs a name and a body")
	}

	if _, found := r.tests[t.Name]; found {
		log.Panicf("cosim: test %s already registered", t.Name)
	}

	r.tests[t.Name] = t
}

// Lookup finds a test by name.
func (r *Registry) Lookup(name string) (Test, error) {
	t, found := r.tests[name]
	if !found {
		return Test{}, fmt.Errorf("%w: %s", ErrUnknownTest, name)
	}

	return t, nil
}

// All returns every registered test ordered by name.
func (r *Registry) All() []Test {
	tests := make([]Test, 0, len(r.tests))
	for _, t := range r.tests {
		tests = append(tests, t)
	}

	sort.Slice(tests, func(i, j int) bool {
		return tests[i].Name < tests[j].Name
	})

	return tests
}

// Select returns the named tests in the given order. An empty list selects
// all tests.
func (r *Registry) Select(names []string) ([]Test, error) {
	if len(names) == 0 {
		return r.All(), nil
	}

	tests := make([]Test, 0, len(names))
	for _, n := range names {
		t, err := r.Lookup(n)
		if err != nil {
			return nil, err
		}

		tests = append(tests, t)
	}

	return tests, nil
}
