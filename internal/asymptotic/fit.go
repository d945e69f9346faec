// Package asymptotic fits the conjectured law I(T, σ) ~ C(σ)·T^{1−2σ} and
// measures how far individual samples deviate from it.
package asymptotic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// ErrInvalidFitInput rejects inputs for which the log-log fit is undefined.
var ErrInvalidFitInput = errors.New("invalid fit input")

// Source computes I(T, σ).
type Source interface {
	Integral(ctx context.Context, T, sigma float64) (float64, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, T, sigma float64) (float64, error)

// Integral calls f.
func (f SourceFunc) Integral(ctx context.Context, T, sigma float64) (float64, error) {
	return f(ctx, T, sigma)
}

// Sample is one (T, I) pair and its deviation from the fitted curve.
type Sample struct {
	T           float64 `json:"t"`
	I           float64 `json:"i"`
	Expected    float64 `json:"expected"`
	Oscillation float64 `json:"oscillation"`
}

// FitResult is a fixed-slope power-law fit.
type FitResult struct {
	Sigma float64 `json:"sigma"`
	// Slope is the theoretical exponent 1 − 2σ.
	Slope float64 `json:"slope"`
	C     float64 `json:"c"`
	// EmpiricalSlope is the least-squares slope of ln I on ln T, NaN with
	// fewer than two distinct T.
	EmpiricalSlope float64  `json:"empirical_slope"`
	Samples        []Sample `json:"samples"`
}

// Oscillations returns the per-sample oscillation ratios in input order.
func (r FitResult) Oscillations() []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.Oscillation
	}
	return out
}

// MaxOscillation returns the largest oscillation ratio.
func (r FitResult) MaxOscillation() float64 {
	m := 0.0
	for _, s := range r.Samples {
		m = math.Max(m, s.Oscillation)
	}
	return m
}

// TheoreticalSlope returns 1 − 2σ.
func TheoreticalSlope(sigma float64) float64 {
	return 1 - 2*sigma
}

// FitSamples fits C for already computed integrals. ts and is must have the
// same non-zero length and hold positive finite values.
func FitSamples(sigma float64, ts, is []float64) (FitResult, error) {
	if err := validate(sigma, ts, is); err != nil {
		return FitResult{}, err
	}

	lnT := make([]float64, len(ts))
	lnI := make([]float64, len(ts))
	resid := make([]float64, len(ts))
	slope := TheoreticalSlope(sigma)
	for i := range ts {
		lnT[i] = math.Log(ts[i])
		lnI[i] = math.Log(is[i])
		resid[i] = lnI[i] - slope*lnT[i]
	}
	// With the slope fixed the least-squares intercept is the mean residual.
	intercept := stat.Mean(resid, nil)
	c := math.Exp(intercept)

	res := FitResult{
		Sigma:          sigma,
		Slope:          slope,
		C:              c,
		EmpiricalSlope: empiricalSlope(lnT, lnI),
		Samples:        make([]Sample, len(ts)),
	}
	for i, t := range ts {
		expected := c * math.Pow(t, slope)
		if expected == 0 || math.IsNaN(expected) || math.IsInf(expected, 0) {
			return FitResult{}, fmt.Errorf("%w: expected value %v at T=%v", ErrInvalidFitInput, expected, t)
		}
		res.Samples[i] = Sample{
			T:           t,
			I:           is[i],
			Expected:    expected,
			Oscillation: math.Abs(is[i]-expected) / expected,
		}
	}
	return res, nil
}

func validate(sigma float64, ts, is []float64) error {
	switch {
	case math.IsNaN(sigma) || math.IsInf(sigma, 0):
		return fmt.Errorf("%w: sigma %v", ErrInvalidFitInput, sigma)
	case len(ts) == 0:
		return fmt.Errorf("%w: no samples", ErrInvalidFitInput)
	case len(ts) != len(is):
		return fmt.Errorf("%w: %d T values but %d integrals", ErrInvalidFitInput, len(ts), len(is))
	}
	for i := range ts {
		if !(ts[i] > 0) || math.IsInf(ts[i], 0) {
			return fmt.Errorf("%w: T[%d] = %v must be positive and finite", ErrInvalidFitInput, i, ts[i])
		}
		if !(is[i] > 0) || math.IsInf(is[i], 0) {
			return fmt.Errorf("%w: I(T=%v) = %v must be positive and finite", ErrInvalidFitInput, ts[i], is[i])
		}
	}
	return nil
}

// empiricalSlope is the ordinary least-squares slope of lnI against lnT, NaN
// unless lnT holds at least two distinct values.
func empiricalSlope(lnT, lnI []float64) float64 {
	distinct := false
	for _, x := range lnT[1:] {
		if x != lnT[0] {
			distinct = true
			break
		}
	}
	if !distinct {
		return math.NaN()
	}
	_, beta := stat.LinearRegression(lnT, lnI, nil, false)
	return beta
}

// ==================== FITTER ====================

// Fitter drives a Source over a set of T values.
type Fitter struct {
	source Source
	logger logrus.FieldLogger
}

// NewFitter wraps a Source. A nil logger discards output.
func NewFitter(source Source, logger logrus.FieldLogger) *Fitter {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Fitter{source: source, logger: logger}
}

// Fit computes I for each T and fits C with the slope fixed at 1 − 2σ.
func (f *Fitter) Fit(ctx context.Context, sigma float64, ts []float64) (FitResult, error) {
	if len(ts) == 0 {
		return FitResult{}, fmt.Errorf("%w: no T values", ErrInvalidFitInput)
	}

	is := make([]float64, len(ts))
	for i, t := range ts {
		if !(t > 0) || math.IsInf(t, 0) {
			return FitResult{}, fmt.Errorf("%w: T[%d] = %v must be positive and finite", ErrInvalidFitInput, i, t)
		}
		v, err := f.source.Integral(ctx, t, sigma)
		if err != nil {
			return FitResult{}, fmt.Errorf("I(T=%g, sigma=%g): %w", t, sigma, err)
		}
		is[i] = v
		f.logger.WithFields(logrus.Fields{"T": t, "sigma": sigma, "I": v}).Info("Calculated weighted integral")
	}

	res, err := FitSamples(sigma, ts, is)
	if err != nil {
		return FitResult{}, err
	}
	f.logger.WithFields(logrus.Fields{
		"sigma":           sigma,
		"C":               res.C,
		"slope":           res.Slope,
		"empirical_slope": res.EmpiricalSlope,
	}).Info("Fitted asymptotic constant")
	return res, nil
}

// FitC returns C(σ) from I(T, σ) ~ C·T^{1−2σ}.
func (f *Fitter) FitC(ctx context.Context, sigma float64, ts []float64) (float64, error) {
	res, err := f.Fit(ctx, sigma, ts)
	if err != nil {
		return 0, err
	}
	return res.C, nil
}

// AnalyzeOscillation returns |I − C·T^{1−2σ}| / (C·T^{1−2σ}) for each T,
// in input order, with C fitted over the same T values.
func (f *Fitter) AnalyzeOscillation(ctx context.Context, ts []float64, sigma float64) ([]float64, error) {
	res, err := f.Fit(ctx, sigma, ts)
	if err != nil {
		return nil, err
	}
	for _, s := range res.Samples {
		f.logger.WithFields(logrus.Fields{"T": s.T, "sigma": sigma, "oscillation": s.Oscillation}).Info("Oscillation")
	}
	return res.Oscillations(), nil
}
