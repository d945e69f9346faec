package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/asymptotic"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/config"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/fluctuation"
)

// ==================== psi ====================

var psiCmd = &cobra.Command{
	Use:   "psi <x>...",
	Short: "Print ψ(x) and how it was evaluated",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		xs := make([]float64, len(args))
		for i, a := range args {
			x, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return fmt.Errorf("invalid x %q: %w", a, err)
			}
			xs[i] = x
		}

		approx, err := buildApproximator(cfg, logger)
		if err != nil {
			return err
		}
		for _, x := range xs {
			printEstimate(cmd.OutOrStdout(), x, approx.Evaluate(x))
		}
		return nil
	},
}

// ==================== integral ====================

var (
	integralT     float64
	integralSigma float64
	integralLimit float64
)

var integralCmd = &cobra.Command{
	Use:   "integral",
	Short: "Compute I(T, σ) and show per-segment quadrature status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		calc, err := buildCalculator(cfg, logger)
		if err != nil {
			return err
		}

		res, err := calc.Calculate(cmd.Context(), integralT, integralSigma, integralLimit)
		if err != nil {
			if errors.Is(err, fluctuation.ErrNotConverged) && len(res.Segments) > 0 {
				printIntegral(cmd.OutOrStdout(), res)
			}
			return err
		}
		printIntegral(cmd.OutOrStdout(), res)
		return nil
	},
}

// ==================== fit ====================

var (
	fitSigma float64
	fitTs    []float64
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit C(σ) over T values and report oscillation ratios",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		calc, err := buildCalculator(cfg, logger)
		if err != nil {
			return err
		}

		res, err := asymptotic.NewFitter(calc, logger).Fit(cmd.Context(), fitSigma, fitTs)
		if err != nil {
			return err
		}
		printFit(cmd.OutOrStdout(), res)
		return nil
	},
}

// ==================== zeros ====================

var (
	zerosRefined bool
	zerosCount   int
)

var zerosCmd = &cobra.Command{
	Use:   "zeros",
	Short: "Print the zero ordinates used by the explicit formula",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		zc := cfg.Zeros
		if zerosRefined {
			zc.Source = config.ZeroSourceRefined
		}
		if zerosCount > 0 {
			zc.Count = zerosCount
		}

		provider, err := buildProvider(zc, logger)
		if err != nil {
			return err
		}
		printZeros(cmd.OutOrStdout(), provider.ZeroSet())
		return nil
	},
}

// ==================== config ====================

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration as YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) == 1 {
			path = args[0]
		}
		if !configForce {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if !errors.Is(err, fs.ErrNotExist) {
				return err
			}
		}
		if err := config.SaveDefault(path, Version); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
		return nil
	},
}

func init() {
	integralCmd.Flags().Float64Var(&integralT, "t", 0, "Cutoff scale T (> 0)")
	integralCmd.Flags().Float64Var(&integralSigma, "sigma", 0, "Weight exponent σ (1+σ > 0)")
	integralCmd.Flags().Float64Var(&integralLimit, "limit", 0, "Integration limit (0 = limit_factor·T)")
	_ = integralCmd.MarkFlagRequired("t")
	_ = integralCmd.MarkFlagRequired("sigma")

	fitCmd.Flags().Float64Var(&fitSigma, "sigma", 0, "Weight exponent σ")
	fitCmd.Flags().Float64SliceVar(&fitTs, "t", nil, "T values, comma separated or repeated")
	_ = fitCmd.MarkFlagRequired("sigma")
	_ = fitCmd.MarkFlagRequired("t")

	zerosCmd.Flags().BoolVar(&zerosRefined, "refined", false, "Locate zeros from Riemann-Siegel Z instead of the density estimate")
	zerosCmd.Flags().IntVar(&zerosCount, "count", 0, "Number of zeros (overrides config)")

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}
