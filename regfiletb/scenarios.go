package regfiletb

import (
	"fmt"

	"github.com/sarchlab/regbench/cosim"
	"github.com/sarchlab/regbench/regfile"
	"github.com/sarchlab/regbench/signal"
)

// Names of the registered tests.
const (
	TestRegisterFile      = "register_file"
	TestResetOnly         = "reset_only"
	TestDirectedWrites    = "directed_writes"
	TestRepeatRead        = "repeat_read"
	TestX0WriteIgnored    = "x0_write_ignored"
	TestCombinationalRead = "combinational_read"
)

// Tests returns every register file test built on cfg.
func Tests(cfg Config) []cosim.Test {
	return []cosim.Test{
		{
			Name:  TestRegisterFile,
			Steps: uint64(2 * cfg.NumRegs),
			Doc: "Reset, check every register reads 0, write index*10 to " +
				"x1..x31, read them back, and check x0 is still 0.",
			Func: func(tb *cosim.TB) error {
				return NewSequencer(cfg).Run(tb)
			},
		},
		{
			Name:  TestResetOnly,
			Steps: uint64(cfg.NumRegs),
			Doc:   "Reset and read every register without writing anything.",
			Func: func(tb *cosim.TB) error {
				return resetOnly(tb, cfg)
			},
		},
		{
			Name:  TestDirectedWrites,
			Steps: 3,
			Doc:   "Write x5=50 and x17=170, then read x5, x17 and x0.",
			Func: func(tb *cosim.TB) error {
				return directedWrites(tb, cfg)
			},
		},
		{
			Name:  TestRepeatRead,
			Steps: uint64(cfg.NumRegs),
			Doc: "Write every register, then read each one twice in a row " +
				"and expect the same value.",
			Func: func(tb *cosim.TB) error {
				return repeatRead(tb, cfg)
			},
		},
		{
			Name:  TestX0WriteIgnored,
			Steps: 1,
			Doc:   "Try to write all ones to x0 and check it still reads 0.",
			Func: func(tb *cosim.TB) error {
				return x0WriteIgnored(tb, cfg)
			},
		},
		{
			Name:  TestCombinationalRead,
			Steps: 3,
			Doc: "Switch the read address between two written registers " +
				"right after a clock edge and check the data follows " +
				"before the next edge.",
			Func: func(tb *cosim.TB) error {
				return combinationalRead(tb, cfg)
			},
		},
	}
}

// Register adds all the register file tests to the registry.
func Register(reg *cosim.Registry, cfg Config) {
	for _, t := range Tests(cfg) {
		reg.Register(t)
	}
}

func resetOnly(tb *cosim.TB, cfg Config) error {
	s := NewSequencer(cfg)
	s.Reset(tb)

	for i := 0; i < cfg.NumRegs; i++ {
		if err := s.Check(tb, PhaseResetCheck, i, 0); err != nil {
			return err
		}
	}

	return nil
}

func directedWrites(tb *cosim.TB, cfg Config) error {
	s := NewSequencer(cfg)
	s.Reset(tb)

	vectors := []struct {
		index int
		value uint64
	}{
		{5, 50},
		{17, 170},
	}

	for _, v := range vectors {
		if v.index >= cfg.NumRegs {
			return fmt.Errorf("register x%d does not exist", v.index)
		}

		s.Write(tb, v.index, v.value)
	}

	for _, v := range vectors {
		if err := s.Check(tb, PhaseDirected, v.index, v.value); err != nil {
			return err
		}
	}

	return s.Check(tb, PhaseZeroCheck, 0, 0)
}

func repeatRead(tb *cosim.TB, cfg Config) error {
	s := NewSequencer(cfg)
	s.Reset(tb)

	for i := 1; i < cfg.NumRegs; i++ {
		s.Write(tb, i, cfg.Value(i))
	}

	for i := 0; i < cfg.NumRegs; i++ {
		first := s.Read(tb, i)
		second := s.Read(tb, i)

		if err := s.compare(tb, PhaseRepeatRead, i, first, second); err != nil {
			return err
		}
	}

	return nil
}

func x0WriteIgnored(tb *cosim.TB, cfg Config) error {
	s := NewSequencer(cfg)
	s.Reset(tb)

	s.Write(tb, 0, tb.DUT().Signal(regfile.PinWd).Mask())

	return s.Check(tb, PhaseZeroCheck, 0, 0)
}

func combinationalRead(tb *cosim.TB, cfg Config) error {
	s := NewSequencer(cfg)
	s.Reset(tb)

	a, b := 1, cfg.NumRegs-1
	s.Write(tb, a, cfg.Value(a))
	s.Write(tb, b, cfg.Value(b))

	edges := 0
	stop := tb.DUT().Signal(regfile.PinClk).OnEdge(signal.Rising, func() {
		edges++
	})
	defer stop()

	for _, i := range []int{a, b, a} {
		tb.RisingEdge(regfile.PinClk)
		edges = 0

		if err := s.Check(tb, PhaseDirected, i, cfg.Value(i)); err != nil {
			return err
		}

		if edges != 0 {
			return fmt.Errorf("a clock edge happened while reading x%d, "+
				"the settle time must be shorter than the clock period", i)
		}
	}

	return nil
}
