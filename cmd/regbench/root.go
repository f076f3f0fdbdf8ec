package main

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/regbench/config"
	"github.com/sarchlab/regbench/cosim"
	"github.com/sarchlab/regbench/regfiletb"
)

type rootOptions struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "regbench",
		Short: "regbench verifies a register file model in simulation.",
		Long: `regbench resets a 32-entry register file, checks that every ` +
			`register reads 0, writes a value to every register, and reads ` +
			`the values back. Extra scenarios check the zero register, ` +
			`repeated reads and the combinational read port.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "",
		"Config file, "+config.DefaultFile+" if it exists")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env",
		config.DefaultEnvFile, "File holding environment overrides")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newListCmd(opts))

	return rootCmd
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return cfg, err
	}

	if err := cfg.ApplyEnv(o.envFile); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func newRegistry(cfg config.Config) *cosim.Registry {
	reg := cosim.NewRegistry()
	regfiletb.Register(reg, cfg.BenchConfig())

	return reg
}
