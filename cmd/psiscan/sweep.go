package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/config"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/metrics"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/storage"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/sweep"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Evaluate I(T, σ) over the configured grid and fit C(σ)",
	Args:  cobra.NoArgs,
	RunE:  runSweep,
}

// Sweep flags, shared by the root command and sweep.
var (
	sweepSigmas []float64
	sweepTs     []float64
	sweepLimit  float64
	sweepPolicy string
	sweepResume bool
)

func registerSweepFlags(cmd *cobra.Command) {
	cmd.Flags().Float64SliceVar(&sweepSigmas, "sigma", nil, "Sigma values (overrides config)")
	cmd.Flags().Float64SliceVar(&sweepTs, "t", nil, "T values (overrides config)")
	cmd.Flags().Float64Var(&sweepLimit, "limit", 0, "Integration limit (0 = limit_factor·T)")
	cmd.Flags().StringVar(&sweepPolicy, "policy", "", "Convergence policy: accept, retry, strict")
	cmd.Flags().BoolVar(&sweepResume, "resume", false, "Reuse samples already in the output CSV")
}

func init() {
	registerSweepFlags(sweepCmd)
}

// applySweepOverrides copies explicitly set flags into cfg and revalidates.
func applySweepOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("sigma") {
		cfg.Calculation.Sigmas = sweepSigmas
	}
	if flags.Changed("t") {
		cfg.Calculation.Ts = sweepTs
	}
	if flags.Changed("limit") {
		cfg.Calculation.Limit = sweepLimit
	}
	if flags.Changed("policy") {
		cfg.Calculation.ConvergencePolicy = sweepPolicy
	}
	if flags.Changed("resume") {
		cfg.Performance.Resume = sweepResume
	}
	return cfg.Validate()
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := applySweepOverrides(cmd, cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	if cfg.Performance.MetricsAddr != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		wait := metrics.Serve(metricsCtx, cfg.Performance.MetricsAddr, logger)
		defer func() {
			cancel()
			wait()
		}()
	}

	calc, err := buildCalculator(cfg, logger)
	if err != nil {
		return err
	}

	out := cfg.Output
	var resume map[storage.Key]storage.Record
	if cfg.Performance.Resume {
		resume, err = storage.LoadSamples(storage.SamplesPath(out.OutputDirectory, out.FilenamePrefix))
		if err != nil {
			return err
		}
		logger.WithField("samples", len(resume)).Info("Resuming from saved samples")
	}

	store, err := storage.NewManager(storage.Options{
		Directory:   out.OutputDirectory,
		Prefix:      out.FilenamePrefix,
		SaveSamples: out.SaveSamples,
		SaveSummary: out.SaveSummary,
	}, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	printStartupBanner(cmd.OutOrStdout(), cfg)

	report, err := sweep.NewRunner(calc, sweep.Options{
		Sigmas:      cfg.Calculation.Sigmas,
		Ts:          cfg.Calculation.Ts,
		Limit:       cfg.Calculation.Limit,
		LimitFactor: cfg.Calculation.LimitFactor,
		Workers:     cfg.Performance.Workers,
		Resume:      resume,
		Sink:        store,
		Logger:      logger,
	}).Run(ctx)
	if err != nil {
		return err
	}

	summary := storage.Summary{GeneratedAt: time.Now().UTC()}
	for _, fit := range report.Fits {
		summary.Fits = append(summary.Fits, storage.NewFitSummary(fit))
	}
	if err := store.SaveSummary(summary); err != nil {
		return err
	}
	if err := store.Close(); err != nil {
		return err
	}

	printSweepReport(cmd.OutOrStdout(), cfg, report, store)
	return nil
}
