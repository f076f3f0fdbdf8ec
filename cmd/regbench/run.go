package main

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/regbench/config"
	"github.com/sarchlab/regbench/cosim"
	"github.com/sarchlab/regbench/datarecording"
	"github.com/sarchlab/regbench/monitoring"
	"github.com/sarchlab/regbench/regfile"
	"github.com/sarchlab/regbench/sim"
	"github.com/sarchlab/regbench/simulation"
)

var errTestsFailed = errors.New("tests failed")

type runOptions struct {
	*rootOptions

	tests       []string
	freqMHz     float64
	record      string
	monitor     bool
	monitorPort int
	openBrowser bool
	parallel    bool
	logLevel    string
	fault       string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: root}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run tests against the register file.",
		Long: "Run the selected tests, all of them if none is selected. " +
			"The command fails if any test fails.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			if err := opts.override(cmd, &cfg); err != nil {
				return err
			}

			return opts.run(cmd, cfg)
		},
	}

	f := runCmd.Flags()
	f.StringArrayVarP(&opts.tests, "test", "t", nil,
		"Test to run, can be repeated")
	f.Float64Var(&opts.freqMHz, "freq", 0, "Clock frequency in MHz")
	f.StringVar(&opts.record, "record", "",
		"Record results into this SQLite file or clickhouse:// server")
	f.BoolVar(&opts.monitor, "monitor", false,
		"Start the monitoring server")
	f.IntVar(&opts.monitorPort, "monitor-port", 0,
		"Port of the monitoring server, random if 0")
	f.BoolVar(&opts.openBrowser, "open-browser", false,
		"Open the monitoring page in a browser")
	f.BoolVar(&opts.parallel, "parallel", false,
		"Run the tests in parallel")
	f.StringVar(&opts.logLevel, "log-level", "",
		"Log level (trace, debug, info, warn, error)")
	f.StringVar(&opts.fault, "fault", "",
		"Inject a fault into the register file ("+faultNames()+")")

	return runCmd
}

func (o *runOptions) override(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()

	if f.Changed("freq") {
		cfg.Clock.FreqMHz = o.freqMHz
	}

	if f.Changed("record") {
		cfg.Record.Path = o.record
	}

	if f.Changed("monitor") {
		cfg.Monitor.Enabled = o.monitor
	}

	if f.Changed("monitor-port") {
		cfg.Monitor.Enabled = true
		cfg.Monitor.Port = o.monitorPort
	}

	if f.Changed("open-browser") && o.openBrowser {
		cfg.Monitor.Enabled = true
	}

	if f.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}

	if f.Changed("fault") {
		cfg.Bench.Fault = o.fault
	}

	return cfg.Validate()
}

func (o *runOptions) newLogger(cmd *cobra.Command, cfg config.Config) *logrus.Logger {
	level, _ := cfg.LogLevel()

	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})

	return logger
}

func (o *runOptions) run(cmd *cobra.Command, cfg config.Config) error {
	tests, err := newRegistry(cfg).Select(o.tests)
	if err != nil {
		return err
	}

	fault, _ := cfg.Fault()
	logger := o.newLogger(cmd, cfg)

	builder := simulation.MakeBuilder().
		WithFreq(cfg.Freq()).
		WithNumRegs(cfg.BenchConfig().NumRegs).
		WithFault(fault).
		WithLogger(logger)

	if logger.IsLevelEnabled(logrus.TraceLevel) {
		builder = builder.WithEventLogging()
	}

	if cfg.Record.Path != "" {
		recorder, err := datarecording.Open(cfg.Record.Path)
		if err != nil {
			return err
		}
		defer recorder.Close()

		execRecorder := datarecording.NewExecRecorder(recorder)
		execRecorder.Start()
		execRecorder.Note("Tests", testNames(tests))
		execRecorder.Note("Fault", fault.String())
		defer execRecorder.End()

		builder = builder.WithRecorder(
			datarecording.NewBenchRecorder(recorder))
	}

	if cfg.Monitor.Enabled {
		monitor := monitoring.NewMonitor().WithPortNumber(cfg.Monitor.Port)
		monitor.StartServer()
		defer monitor.StopServer()

		if o.openBrowser {
			if err := monitor.OpenBrowser(); err != nil {
				logger.WithError(err).Warn("cannot open the browser")
			}
		}

		builder = builder.WithMonitor(monitor)
	}

	parallelism := 1
	if o.parallel {
		sim.UseParallelIDGenerator()
		parallelism = runtime.NumCPU()
	}

	results, err := cosim.RunAll(
		cmd.Context(), tests, builder.Factory(), parallelism)
	if err != nil {
		return err
	}

	return report(cmd, results)
}

func report(cmd *cobra.Command, results []cosim.Result) error {
	out := cmd.OutOrStdout()

	failed := 0
	for _, r := range results {
		fmt.Fprintln(out, r)

		if !r.Passed {
			failed++
		}
	}

	fmt.Fprintf(out, "%d passed, %d failed\n", len(results)-failed, failed)

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errTestsFailed, failed, len(results))
	}

	return nil
}

func faultNames() string {
	names := []string{}
	for _, f := range regfile.Faults() {
		names = append(names, f.String())
	}

	return strings.Join(names, ", ")
}

func testNames(tests []cosim.Test) string {
	names := make([]string, len(tests))
	for i, t := range tests {
		names[i] = t.Name
	}

	return strings.Join(names, ",")
}
