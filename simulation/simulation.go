// Package simulation assembles the engine, the clock, the register file and
// the runner that a test needs.
package simulation

import (
	"strings"
	"unicode"

	"github.com/sarchlab/regbench/clock"
	"github.com/sarchlab/regbench/cosim"
	"github.com/sarchlab/regbench/regfile"
	"github.com/sarchlab/regbench/sim"
)

// A Simulation holds everything needed to run one test.
type Simulation struct {
	id       string
	testName string

	engine  *sim.SerialEngine
	clock   *clock.Generator
	regFile *regfile.RegFile
	runner  *cosim.Runner

	components    []sim.Component
	compNameIndex map[string]int
}

// ID returns the unique id of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// TestName returns the name of the test the simulation was built for.
func (s *Simulation) TestName() string {
	return s.testName
}

// GetEngine returns the engine used in the simulation.
func (s *Simulation) GetEngine() sim.Engine {
	return s.engine
}

// GetClock returns the clock driving the register file.
func (s *Simulation) GetClock() *clock.Generator {
	return s.clock
}

// GetRegFile returns the register file under test.
func (s *Simulation) GetRegFile() *regfile.RegFile {
	return s.regFile
}

// Runner returns the runner that executes the test.
func (s *Simulation) Runner() *cosim.Runner {
	return s.runner
}

// RegisterComponent registers a component with the simulation.
func (s *Simulation) RegisterComponent(c sim.Component) {
	compName := c.Name()
	if _, found := s.compNameIndex[compName]; found {
		panic("component " + compName + " already registered")
	}

	s.components = append(s.components, c)
	s.compNameIndex[compName] = len(s.components) - 1
}

// GetComponentByName returns the component with the given name, or nil.
func (s *Simulation) GetComponentByName(name string) sim.Component {
	i, found := s.compNameIndex[name]
	if !found {
		return nil
	}

	return s.components[i]
}

// Components returns all the registered components.
func (s *Simulation) Components() []sim.Component {
	comps := make([]sim.Component, len(s.components))
	copy(comps, s.components)

	return comps
}

// Run runs the test. A simulation can only run one test.
func (s *Simulation) Run(test cosim.Test) cosim.Result {
	return s.runner.Run(test)
}

// ComponentPrefix turns a test name such as "x0_write_ignored" into the
// component name level "X0WriteIgnored".
func ComponentPrefix(testName string) string {
	var sb strings.Builder

	upper := true
	for _, r := range testName {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}

		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}

		sb.WriteRune(r)
	}

	prefix := sb.String()
	if prefix == "" || !unicode.IsUpper([]rune(prefix)[0]) {
		prefix = "T" + prefix
	}

	return prefix
}
