package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/config"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/logging"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "psiscan",
	Short: "Prime number fluctuation scanner",
	Long: `psiscan evaluates the weighted mean-square error functional

  I(T, σ) = ∫₀^∞ (ψ(x) − x)²·x^{-(1+σ)}·e^{-(x/T)²} dx

over a grid of T and σ and fits the growth law I ~ C(σ)·T^{1−2σ}.
Without a subcommand it runs the configured sweep.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSweep,
}

// Global flags
var (
	v = config.New()

	configPath  string
	verbose     bool
	logLevel    string
	outputDir   string
	workers     int
	metricsAddr string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", config.DefaultPath, "Configuration file path")
	flags.BoolVar(&verbose, "verbose", false, "Verbose output (debug logging)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	flags.StringVar(&outputDir, "output-dir", "", "Output directory (overrides config)")
	flags.IntVar(&workers, "workers", 0, "Concurrent sweep points (0 = one per CPU)")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")

	// Bind flags to viper
	mustBind("output.verbose", "verbose")
	mustBind("output.log_level", "log-level")
	mustBind("output.output_directory", "output-dir")
	mustBind("performance.workers", "workers")
	mustBind("performance.metrics_addr", "metrics-addr")

	registerSweepFlags(rootCmd)
	rootCmd.AddCommand(sweepCmd, psiCmd, integralCmd, fitCmd, zerosCmd, configCmd)
}

func mustBind(key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind %s: %v", flag, err))
	}
}

// setup loads the configuration and builds the logger for a command.
func setup(cmd *cobra.Command) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(v, configPath)
	if err != nil {
		return nil, nil, err
	}

	logger := logging.Setup(logging.Options{
		Level:   cfg.Output.LogLevel,
		Format:  cfg.Output.LogFormat,
		Verbose: cfg.Output.Verbose,
		Output:  cmd.ErrOrStderr(),
	})
	if from := cfg.LoadedFrom(); from != "" {
		logger.WithField("path", from).Debug("Loaded configuration")
	} else {
		logger.WithField("path", configPath).Debug("Config file not found, using defaults")
	}
	return cfg, logger, nil
}
