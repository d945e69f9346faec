// Package sweep evaluates I(T, σ) over a σ×T grid with a bounded worker pool
// and fits the asymptotic constant for each σ.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/asymptotic"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/fluctuation"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/metrics"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/storage"
)

// ErrEmptyGrid is returned when no σ or no T values are given.
var ErrEmptyGrid = errors.New("empty sweep grid")

// Calculator computes one grid point.
type Calculator interface {
	Calculate(ctx context.Context, T, sigma, limit float64) (fluctuation.Result, error)
}

// Sink receives each newly computed record. It is called from worker
// goroutines and must be safe for concurrent use.
type Sink interface {
	SaveSample(storage.Record) error
}

// Options configures a Runner.
type Options struct {
	Sigmas []float64
	Ts     []float64
	// Limit is passed to Calculate; 0 selects the calculator's default.
	Limit float64
	// LimitFactor must match the calculator's so resumed records can be
	// checked against the limit a fresh evaluation would use. 0 means
	// fluctuation.DefaultLimitFactor.
	LimitFactor float64
	// Workers bounds concurrent evaluations; 0 means runtime.NumCPU().
	Workers int
	// Resume holds already computed points. A point is reused only when its
	// stored limit equals the effective limit of this run.
	Resume map[storage.Key]storage.Record
	Sink   Sink
	Logger logrus.FieldLogger
}

// Report is the outcome of a sweep.
type Report struct {
	// Samples are in grid order, σ-major.
	Samples []storage.Record
	// Fits has one entry per σ in input order.
	Fits     []asymptotic.FitResult
	Computed int
	Resumed  int
	Duration time.Duration
}

// Runner executes sweeps.
type Runner struct {
	calc   Calculator
	opts   Options
	logger logrus.FieldLogger
}

// NewRunner builds a Runner.
func NewRunner(calc Calculator, opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.LimitFactor <= 0 {
		opts.LimitFactor = fluctuation.DefaultLimitFactor
	}
	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Runner{calc: calc, opts: opts, logger: logger}
}

// effectiveLimit is the upper bound Calculate will integrate to for T.
func (r *Runner) effectiveLimit(T float64) float64 {
	if r.opts.Limit > 0 {
		return r.opts.Limit
	}
	return r.opts.LimitFactor * T
}

// Run evaluates the grid and fits each σ. The first failing point cancels
// the remaining work and its error is returned.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	if len(r.opts.Sigmas) == 0 || len(r.opts.Ts) == 0 {
		return Report{}, fmt.Errorf("%w: %d sigma and %d T values", ErrEmptyGrid, len(r.opts.Sigmas), len(r.opts.Ts))
	}

	start := time.Now()
	total := len(r.opts.Sigmas) * len(r.opts.Ts)
	samples := make([]storage.Record, total)

	var computed, resumed int64

	r.logger.WithFields(logrus.Fields{
		"sigmas":  len(r.opts.Sigmas),
		"t":       len(r.opts.Ts),
		"points":  total,
		"workers": r.opts.Workers,
		"resumed": len(r.opts.Resume),
	}).Info("Starting sweep")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	for si, sigma := range r.opts.Sigmas {
		for ti, T := range r.opts.Ts {
			idx := si*len(r.opts.Ts) + ti

			if rec, ok := r.opts.Resume[storage.Key{Sigma: sigma, T: T}]; ok {
				want := r.effectiveLimit(T)
				if rec.Limit == want {
					samples[idx] = rec
					atomic.AddInt64(&resumed, 1)
					metrics.SweepSamples.WithLabelValues(metrics.StatusResumed).Inc()
					continue
				}
				r.logger.WithFields(logrus.Fields{
					"sigma":        sigma,
					"T":            T,
					"stored_limit": rec.Limit,
					"limit":        want,
				}).Warn("Saved sample used a different integration limit, recomputing")
			}

			sigma, T := sigma, T
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}

				res, err := r.calc.Calculate(gctx, T, sigma, r.opts.Limit)
				if err != nil {
					metrics.SweepSamples.WithLabelValues(metrics.StatusFailed).Inc()
					return fmt.Errorf("sweep point sigma=%g T=%g: %w", sigma, T, err)
				}

				rec := storage.Record{
					Sigma:       sigma,
					T:           T,
					Limit:       res.Limit,
					Value:       res.Value,
					AbsErr:      res.AbsErr,
					Converged:   res.Converged,
					Truncations: res.Truncations,
					Duration:    res.Duration,
				}
				samples[idx] = rec

				if r.opts.Sink != nil {
					if err := r.opts.Sink.SaveSample(rec); err != nil {
						return fmt.Errorf("save sample sigma=%g T=%g: %w", sigma, T, err)
					}
				}

				done := atomic.AddInt64(&computed, 1)
				metrics.SweepSamples.WithLabelValues(metrics.StatusComputed).Inc()
				r.logger.WithFields(logrus.Fields{
					"sigma":     sigma,
					"T":         T,
					"I":         res.Value,
					"converged": res.Converged,
					"progress":  fmt.Sprintf("%d/%d", done+atomic.LoadInt64(&resumed), total),
				}).Info("Sample computed")
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report := Report{
		Samples:  samples,
		Fits:     make([]asymptotic.FitResult, 0, len(r.opts.Sigmas)),
		Computed: int(computed),
		Resumed:  int(resumed),
	}

	for si, sigma := range r.opts.Sigmas {
		row := samples[si*len(r.opts.Ts) : (si+1)*len(r.opts.Ts)]
		ts := make([]float64, len(row))
		is := make([]float64, len(row))
		for i, rec := range row {
			ts[i] = rec.T
			is[i] = rec.Value
		}

		fit, err := asymptotic.FitSamples(sigma, ts, is)
		if err != nil {
			return report, fmt.Errorf("fit sigma=%g: %w", sigma, err)
		}
		report.Fits = append(report.Fits, fit)

		r.logger.WithFields(logrus.Fields{
			"sigma":           sigma,
			"C":               fit.C,
			"slope":           fit.Slope,
			"empirical_slope": fit.EmpiricalSlope,
			"max_oscillation": fit.MaxOscillation(),
		}).Info("Fitted asymptotic constant")
	}

	report.Duration = time.Since(start)
	return report, nil
}
