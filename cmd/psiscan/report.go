package main

import (
	"fmt"
	"io"
	"math"
	"runtime"
	"strings"
	"time"

	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/asymptotic"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/chebyshev"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/config"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/fluctuation"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/storage"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/sweep"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/zeros"
)

const rule = "================================================================================"

func printStartupBanner(w io.Writer, cfg *config.Config) {
	calc := cfg.Calculation
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "psiscan %s | Go: %s | CPUs: %d\n", Version, runtime.Version(), runtime.NumCPU())
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  Sigma values:     %s\n", joinFloats(calc.Sigmas))
	fmt.Fprintf(w, "  T values:         %s\n", joinFloats(calc.Ts))
	if calc.Limit > 0 {
		fmt.Fprintf(w, "  Limit:            %g\n", calc.Limit)
	} else {
		fmt.Fprintf(w, "  Limit:            %g·T\n", calc.LimitFactor)
	}
	fmt.Fprintf(w, "  Quadrature:       %d segments, tol %.0e/%.0e, %d subdivisions, policy %s\n",
		calc.Segments, calc.AbsTol, calc.RelTol, calc.MaxSubdivisions, calc.ConvergencePolicy)
	fmt.Fprintf(w, "  Zeros:            %s (%d)\n", cfg.Zeros.Source, cfg.Zeros.Count)
	fmt.Fprintf(w, "  Output Directory: %s\n", cfg.Output.OutputDirectory)
	fmt.Fprintln(w)
}

func printSweepReport(w io.Writer, cfg *config.Config, report sweep.Report, store *storage.Manager) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "                            SWEEP COMPLETE - SUMMARY")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total Calculation Time:   %s\n", formatDurationDetailed(report.Duration))
	fmt.Fprintf(w, "Samples Computed:         %d\n", report.Computed)
	fmt.Fprintf(w, "Samples Resumed:          %d\n", report.Resumed)

	notConverged, truncated := 0, 0
	for _, s := range report.Samples {
		if !s.Converged {
			notConverged++
		}
		truncated += s.Truncations
	}
	fmt.Fprintf(w, "Not Converged:            %d\n", notConverged)
	fmt.Fprintf(w, "Truncated ψ Evaluations:  %d\n", truncated)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%8s %14s %10s %10s %12s\n", "sigma", "C", "slope", "empirical", "max osc")
	for _, fit := range report.Fits {
		fmt.Fprintf(w, "%8.3f %14.6e %10.4f %10s %12.4f\n",
			fit.Sigma, fit.C, fit.Slope, formatSlope(fit.EmpiricalSlope), fit.MaxOscillation())
	}
	fmt.Fprintln(w)

	if cfg.Output.SaveSamples || cfg.Output.SaveSummary {
		fmt.Fprintln(w, "Output Files:")
		if cfg.Output.SaveSamples {
			fmt.Fprintf(w, "  - Samples CSV:   %s\n", store.SamplesPath())
		}
		if cfg.Output.SaveSummary {
			fmt.Fprintf(w, "  - Summary JSON:  %s\n", store.SummaryPath())
		}
		fmt.Fprintln(w)
	}
	if cfg.Output.SaveSamples {
		fmt.Fprintln(w, "To Resume:")
		fmt.Fprintf(w, "  psiscan sweep --resume --output-dir %s\n", cfg.Output.OutputDirectory)
		fmt.Fprintln(w)
	}
}

func printEstimate(w io.Writer, x float64, est chebyshev.Estimate) {
	fmt.Fprintf(w, "psi(%g) = %.10f  delta=%+.6f  regime=%s", x, est.Value, est.Value-x, est.Regime)
	if est.Regime == chebyshev.RegimeExplicitFormula {
		fmt.Fprintf(w, "  zeros=%d", est.ZerosSummed)
	}
	if est.Truncated {
		fmt.Fprint(w, "  TRUNCATED")
	}
	fmt.Fprintln(w)
}

func printIntegral(w io.Writer, res fluctuation.Result) {
	fmt.Fprintf(w, "I(T=%g, sigma=%g) over [0, %g] = %.12e\n", res.T, res.Sigma, res.Limit, res.Value)
	fmt.Fprintf(w, "  abs_err=%.3e  converged=%t  truncations=%d  time=%s\n",
		res.AbsErr, res.Converged, res.Truncations, formatDurationDetailed(res.Duration))
	fmt.Fprintf(w, "  %4s %14s %14s %16s %10s %6s %s\n", "seg", "lower", "upper", "value", "abs_err", "subdiv", "status")
	for i, s := range res.Segments {
		fmt.Fprintf(w, "  %4d %14.4f %14.4f %16.8e %10.2e %6d %s\n",
			i, s.Lower, s.Upper, s.Value, s.AbsErr, s.Subdivisions, segmentStatus(s))
	}
}

func segmentStatus(s fluctuation.SegmentResult) string {
	var parts []string
	switch {
	case s.Converged:
		parts = append(parts, "converged")
	case s.TimedOut:
		parts = append(parts, "timed out")
	default:
		parts = append(parts, "not converged")
	}
	if s.Retried {
		parts = append(parts, "retried")
	}
	return strings.Join(parts, ", ")
}

func printFit(w io.Writer, res asymptotic.FitResult) {
	fmt.Fprintf(w, "sigma=%g  C=%.8e  slope=%.4f  empirical slope=%s\n",
		res.Sigma, res.C, res.Slope, formatSlope(res.EmpiricalSlope))
	fmt.Fprintf(w, "  %12s %16s %16s %12s\n", "T", "I", "C·T^slope", "oscillation")
	for _, s := range res.Samples {
		fmt.Fprintf(w, "  %12g %16.8e %16.8e %12.4f\n", s.T, s.I, s.Expected, s.Oscillation)
	}
}

func printZeros(w io.Writer, set zeros.ZeroSet) {
	fmt.Fprintf(w, "%d zeros, first %d exact\n", set.Len(), set.Exact())
	for i := 0; i < set.Len(); i++ {
		kind := "estimate"
		if i < set.Exact() {
			kind = "exact"
		}
		fmt.Fprintf(w, "  %4d %22.15f  %s\n", i+1, set.At(i), kind)
	}
}

func formatSlope(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}

func joinFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return strings.Join(parts, ", ")
}

func formatDurationDetailed(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %02dh %02dm %02ds", days, hours, minutes, seconds)
	} else if hours > 0 {
		return fmt.Sprintf("%02dh %02dm %02ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%02dm %02ds", minutes, seconds)
	} else if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
