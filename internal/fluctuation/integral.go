package fluctuation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/metrics"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/quadrature"
)

var (
	// ErrDomain rejects T <= 0, 1+σ <= 0, a non-positive limit or non-finite input.
	ErrDomain = errors.New("domain error")
	// ErrNotConverged is returned when a segment misses its tolerance under
	// the retry or strict policies.
	ErrNotConverged = errors.New("quadrature did not converge")
	// ErrNonFinite is returned when the integral evaluates to NaN or ±Inf.
	ErrNonFinite = errors.New("integral is not finite")
)

// ConvergencePolicy decides what happens when a segment misses its tolerance.
type ConvergencePolicy string

const (
	// PolicyAccept keeps the best estimate and logs a warning.
	PolicyAccept ConvergencePolicy = "accept"
	// PolicyRetry re-integrates with relaxed tolerances and fails if that misses too.
	PolicyRetry ConvergencePolicy = "retry"
	// PolicyStrict fails immediately.
	PolicyStrict ConvergencePolicy = "strict"
)

// ParsePolicy validates a policy name. The empty string selects PolicyAccept.
func ParsePolicy(s string) (ConvergencePolicy, error) {
	switch p := ConvergencePolicy(s); p {
	case "":
		return PolicyAccept, nil
	case PolicyAccept, PolicyRetry, PolicyStrict:
		return p, nil
	default:
		return "", fmt.Errorf("unknown convergence policy %q (want accept, retry or strict)", s)
	}
}

// Defaults used when Options fields are zero.
const (
	DefaultSegments    = 5
	DefaultLimitFactor = 5.0
	DefaultRelaxFactor = 1000.0
)

// Options configures a Calculator.
type Options struct {
	// Segments is the number of equal-width pieces of [0, limit].
	Segments int
	// LimitFactor gives the default limit LimitFactor·T.
	LimitFactor float64
	Quadrature  quadrature.Options
	Policy      ConvergencePolicy
	// RelaxFactor multiplies both tolerances on retry.
	RelaxFactor float64
	// SegmentTimeout bounds each segment's wall time; 0 disables it. A timed
	// out segment counts as not converged.
	SegmentTimeout time.Duration
	Logger         logrus.FieldLogger
}

// SegmentResult is the quadrature outcome on one piece of [0, limit].
type SegmentResult struct {
	Lower, Upper float64
	quadrature.Result
	Retried  bool
	TimedOut bool
}

// Result is one evaluation of I(T, σ).
type Result struct {
	T, Sigma, Limit float64
	Value           float64
	AbsErr          float64
	Segments        []SegmentResult
	// Truncations counts integrand points whose ψ came from a truncated zero sum.
	Truncations int
	// Converged is true when every segment met its tolerance.
	Converged bool
	Duration  time.Duration
}

// Calculator evaluates I(T, σ).
type Calculator struct {
	eval   *Evaluator
	opts   Options
	logger logrus.FieldLogger
}

// NewCalculator builds a Calculator over a ψ evaluator.
func NewCalculator(psi PsiEvaluator, opts Options) *Calculator {
	if opts.Segments <= 0 {
		opts.Segments = DefaultSegments
	}
	if opts.LimitFactor <= 0 {
		opts.LimitFactor = DefaultLimitFactor
	}
	if opts.Policy == "" {
		opts.Policy = PolicyAccept
	}
	if opts.RelaxFactor <= 1 {
		opts.RelaxFactor = DefaultRelaxFactor
	}
	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Calculator{eval: NewEvaluator(psi), opts: opts, logger: logger}
}

// ValidateDomain rejects parameters for which the integral is undefined.
func ValidateDomain(T, sigma, limit float64) error {
	switch {
	case math.IsNaN(T) || math.IsInf(T, 0) || T <= 0:
		return fmt.Errorf("%w: T must be positive and finite, got %v", ErrDomain, T)
	case math.IsNaN(sigma) || math.IsInf(sigma, 0):
		return fmt.Errorf("%w: sigma must be finite, got %v", ErrDomain, sigma)
	case 1+sigma <= 0:
		return fmt.Errorf("%w: 1+sigma must be positive, got sigma=%v", ErrDomain, sigma)
	case math.IsNaN(limit) || math.IsInf(limit, 0) || limit <= 0:
		return fmt.Errorf("%w: integration limit must be positive and finite, got %v", ErrDomain, limit)
	}
	return nil
}

// Integral returns I(T, σ) with the default limit.
func (c *Calculator) Integral(ctx context.Context, T, sigma float64) (float64, error) {
	res, err := c.Calculate(ctx, T, sigma, 0)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// Calculate returns I(T, σ) over [0, limit]. A zero limit selects LimitFactor·T;
// a negative one is a domain error.
func (c *Calculator) Calculate(ctx context.Context, T, sigma, limit float64) (Result, error) {
	if limit == 0 && T > 0 {
		limit = c.opts.LimitFactor * T
	}
	if err := ValidateDomain(T, sigma, limit); err != nil {
		return Result{}, err
	}

	start := time.Now()
	res := Result{
		T:         T,
		Sigma:     sigma,
		Limit:     limit,
		Segments:  make([]SegmentResult, 0, c.opts.Segments),
		Converged: true,
	}

	f := func(x float64) float64 {
		v, truncated := c.eval.Integrand(x, T, sigma)
		if truncated {
			res.Truncations++
		}
		return v
	}

	n := c.opts.Segments
	for i := 0; i < n; i++ {
		lo := limit * float64(i) / float64(n)
		hi := limit * float64(i+1) / float64(n)
		if i == n-1 {
			hi = limit
		}

		seg, err := c.integrateSegment(ctx, f, lo, hi)
		if err != nil {
			// Keep the failing segment so callers can report how far it got.
			if errors.Is(err, ErrNotConverged) {
				res.Segments = append(res.Segments, seg)
				res.Converged = false
			}
			return res, fmt.Errorf("I(T=%g, sigma=%g) segment %d [%g, %g]: %w", T, sigma, i, lo, hi, err)
		}

		res.Segments = append(res.Segments, seg)
		res.Value += seg.Value
		res.AbsErr += seg.AbsErr
		res.Converged = res.Converged && seg.Converged
	}

	res.Duration = time.Since(start)
	metrics.IntegralDuration.Observe(res.Duration.Seconds())

	if math.IsNaN(res.Value) || math.IsInf(res.Value, 0) {
		return res, fmt.Errorf("I(T=%g, sigma=%g) = %v: %w", T, sigma, res.Value, ErrNonFinite)
	}

	entry := c.logger.WithFields(logrus.Fields{
		"T":           T,
		"sigma":       sigma,
		"limit":       limit,
		"value":       res.Value,
		"abs_err":     res.AbsErr,
		"converged":   res.Converged,
		"truncations": res.Truncations,
		"duration":    res.Duration,
	})
	entry.Debug("Weighted integral computed")

	return res, nil
}

func (c *Calculator) integrateSegment(ctx context.Context, f quadrature.Func, lo, hi float64) (SegmentResult, error) {
	seg, err := c.runSegment(ctx, f, lo, hi, c.opts.Quadrature)
	if err != nil {
		return seg, err
	}
	if seg.Converged {
		metrics.QuadratureSegments.WithLabelValues(metrics.OutcomeConverged).Inc()
		return seg, nil
	}

	fields := logrus.Fields{
		"lower":        lo,
		"upper":        hi,
		"abs_err":      seg.AbsErr,
		"subdivisions": seg.Subdivisions,
		"timed_out":    seg.TimedOut,
	}

	switch c.opts.Policy {
	case PolicyStrict:
		metrics.QuadratureSegments.WithLabelValues(metrics.OutcomeNotConverged).Inc()
		return seg, fmt.Errorf("abs_err %.3e after %d subdivisions: %w", seg.AbsErr, seg.Subdivisions, ErrNotConverged)

	case PolicyRetry:
		relaxed := c.opts.Quadrature
		if relaxed.AbsTol <= 0 {
			relaxed.AbsTol = quadrature.DefaultAbsTol
		}
		if relaxed.RelTol <= 0 {
			relaxed.RelTol = quadrature.DefaultRelTol
		}
		relaxed.AbsTol *= c.opts.RelaxFactor
		relaxed.RelTol *= c.opts.RelaxFactor

		c.logger.WithFields(fields).Debug("Segment missed tolerance, retrying relaxed")
		retry, err := c.runSegment(ctx, f, lo, hi, relaxed)
		retry.Retried = true
		if err != nil {
			return retry, err
		}
		if !retry.Converged {
			metrics.QuadratureSegments.WithLabelValues(metrics.OutcomeNotConverged).Inc()
			return retry, fmt.Errorf("abs_err %.3e after relaxed retry: %w", retry.AbsErr, ErrNotConverged)
		}
		metrics.QuadratureSegments.WithLabelValues(metrics.OutcomeRetried).Inc()
		return retry, nil

	default:
		metrics.QuadratureSegments.WithLabelValues(metrics.OutcomeNotConverged).Inc()
		c.logger.WithFields(fields).Warn("Segment missed tolerance, keeping best estimate")
		return seg, nil
	}
}

// runSegment integrates one segment. A per-segment timeout yields a
// non-converged result; cancellation of ctx itself is an error.
func (c *Calculator) runSegment(ctx context.Context, f quadrature.Func, lo, hi float64, opts quadrature.Options) (SegmentResult, error) {
	segCtx := ctx
	if c.opts.SegmentTimeout > 0 {
		var cancel context.CancelFunc
		segCtx, cancel = context.WithTimeout(ctx, c.opts.SegmentTimeout)
		defer cancel()
	}

	qr, err := quadrature.Integrate(segCtx, f, lo, hi, opts)
	seg := SegmentResult{Lower: lo, Upper: hi, Result: qr}
	if err != nil {
		if ctx.Err() != nil {
			return seg, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			seg.TimedOut = true
			seg.Converged = false
			return seg, nil
		}
		return seg, err
	}
	return seg, nil
}
