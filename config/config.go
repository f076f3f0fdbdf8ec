// Package config loads the settings of a regbench run from regbench.toml and
// from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/regbench/regfile"
	"github.com/sarchlab/regbench/regfiletb"
	"github.com/sarchlab/regbench/sim"
)

// DefaultFile is the config file looked up when no file is given.
const DefaultFile = "regbench.toml"

// DefaultEnvFile is the file holding environment overrides.
const DefaultEnvFile = ".env"

// Environment variables that override the config file.
const (
	EnvLogLevel    = "REGBENCH_LOG_LEVEL"
	EnvRecord      = "REGBENCH_RECORD"
	EnvMonitorPort = "REGBENCH_MONITOR_PORT"
)

// Config holds every setting of a run.
type Config struct {
	Clock   ClockConfig   `toml:"clock"`
	Bench   BenchConfig   `toml:"bench"`
	Record  RecordConfig  `toml:"record"`
	Monitor MonitorConfig `toml:"monitor"`
	Log     LogConfig     `toml:"log"`
}

// ClockConfig sets the clock driving the register file.
type ClockConfig struct {
	FreqMHz float64 `toml:"freq_mhz"`
}

// BenchConfig sets the timing of the testbench and the device.
type BenchConfig struct {
	SettleNS uint64 `toml:"settle_ns"`
	ResetNS  uint64 `toml:"reset_ns"`
	Fault    string `toml:"fault"`
}

// RecordConfig sets where results are recorded. An empty path disables
// recording.
type RecordConfig struct {
	Path string `toml:"path"`
}

// MonitorConfig sets the monitoring server.
type MonitorConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// LogConfig sets the logging level.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Clock: ClockConfig{FreqMHz: 100},
		Bench: BenchConfig{
			SettleNS: 1,
			ResetNS:  10,
			Fault:    regfile.FaultNone.String(),
		},
		Log: LogConfig{Level: logrus.InfoLevel.String()},
	}
}

// Load reads the config file on top of the defaults. An empty path reads
// DefaultFile if it exists.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}

		return cfg, fmt.Errorf("loading config %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}

		return cfg, fmt.Errorf("loading config %s: unknown keys %s",
			path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("loading config %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overrides the settings with the variables found in envFile and
// in the process environment. The process environment wins. A missing
// envFile is not an error.
func (c *Config) ApplyEnv(envFile string) error {
	vars := make(map[string]string)

	if envFile != "" {
		fileVars, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reading %s: %w", envFile, err)
		}

		for k, v := range fileVars {
			vars[k] = v
		}
	}

	for _, k := range []string{EnvLogLevel, EnvRecord, EnvMonitorPort} {
		if v, found := os.LookupEnv(k); found {
			vars[k] = v
		}
	}

	return c.applyVars(vars)
}

func (c *Config) applyVars(vars map[string]string) error {
	if v, found := vars[EnvLogLevel]; found {
		c.Log.Level = v
	}

	if v, found := vars[EnvRecord]; found {
		c.Record.Path = v
	}

	if v, found := vars[EnvMonitorPort]; found {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMonitorPort, err)
		}

		c.Monitor.Port = port
		c.Monitor.Enabled = true
	}

	return c.Validate()
}

const maxFreq = 250 * sim.GHz

// Validate checks that every setting can be used.
func (c Config) Validate() error {
	if c.Clock.FreqMHz <= 0 {
		return fmt.Errorf("clock frequency %gMHz must be positive",
			c.Clock.FreqMHz)
	}

	if c.Freq() > maxFreq {
		return fmt.Errorf("clock frequency %gMHz is above %gMHz",
			c.Clock.FreqMHz, float64(maxFreq/sim.MHz))
	}

	if c.Bench.SettleNS == 0 {
		return errors.New("settle time must be positive")
	}

	settle := c.BenchConfig().SettleTime
	if period := c.Freq().Period(); settle >= period {
		return fmt.Errorf("settle time %s must be shorter than the clock "+
			"period %s", settle, period)
	}

	if c.Bench.ResetNS == 0 {
		return errors.New("reset time must be positive")
	}

	if _, err := c.Fault(); err != nil {
		return err
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}

	if c.Monitor.Port < 0 || c.Monitor.Port > 65535 {
		return fmt.Errorf("monitor port %d is out of range", c.Monitor.Port)
	}

	return nil
}

// Freq returns the clock frequency.
func (c Config) Freq() sim.Freq {
	return sim.Freq(c.Clock.FreqMHz) * sim.MHz
}

// Fault returns the fault to inject into the register file.
func (c Config) Fault() (regfile.Fault, error) {
	if c.Bench.Fault == "" {
		return regfile.FaultNone, nil
	}

	f, ok := regfile.ParseFault(c.Bench.Fault)
	if !ok {
		return f, fmt.Errorf("unknown fault %q, use one of %s",
			c.Bench.Fault, strings.Join(faultNames(), ", "))
	}

	return f, nil
}

// LogLevel returns the logging level.
func (c Config) LogLevel() (logrus.Level, error) {
	return logrus.ParseLevel(c.Log.Level)
}

// BenchConfig returns the configuration of the register file tests.
func (c Config) BenchConfig() regfiletb.Config {
	cfg := regfiletb.DefaultConfig()
	cfg.SettleTime = sim.VTime(c.Bench.SettleNS) * sim.NS
	cfg.ResetTime = sim.VTime(c.Bench.ResetNS) * sim.NS

	return cfg
}

func faultNames() []string {
	names := []string{}
	for _, f := range regfile.Faults() {
		names = append(names, f.String())
	}

	sort.Strings(names)

	return names
}
