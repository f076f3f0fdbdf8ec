package regfiletb

import (
	"errors"
	"fmt"

	"github.com/sarchlab/regbench/sim"
)

// Config sets the constants of the register file tests.
type Config struct {
	// NumRegs is the number of registers, including register 0.
	NumRegs int

	// ResetTime is how long reset is held, and how long the bench waits
	// after releasing it.
	ResetTime sim.VTime

	// SettleTime is how long the bench waits after changing the read
	// address before sampling the read data.
	SettleTime sim.VTime

	// Value gives the test value written to a register.
	Value func(index int) uint64
}

// DefaultConfig returns the configuration for a 32-entry register file.
func DefaultConfig() Config {
	return Config{
		NumRegs:    32,
		ResetTime:  10 * sim.NS,
		SettleTime: 1 * sim.NS,
		Value:      func(index int) uint64 { return uint64(index) * 10 },
	}
}

// Validate checks that the configuration describes a usable test.
func (c Config) Validate() error {
	if c.NumRegs < 2 || c.NumRegs > 32 || c.NumRegs&(c.NumRegs-1) != 0 {
		return fmt.Errorf("number of registers %d must be a power of two "+
			"between 2 and 32", c.NumRegs)
	}

	if c.SettleTime == 0 {
		return errors.New("settle time must be positive")
	}

	if c.ResetTime == 0 {
		return errors.New("reset time must be positive")
	}

	if c.Value == nil {
		return errors.New("value function is not set")
	}

	return nil
}
