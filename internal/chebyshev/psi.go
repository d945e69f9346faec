// Package chebyshev evaluates the second Chebyshev function
//
//	ψ(x) = Σ_{p^k ≤ x} ln p
//
// exactly for small x and through the truncated explicit formula
//
//	ψ(x) ≈ x − Σ_{γ ≤ T'} (x^ρ/ρ + conj) − b₀,  ρ = 1/2 + iγ
//
// for large x.
package chebyshev

import (
	"io"
	"math"
	"math/cmplx"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/metrics"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/primes"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/zeros"
)

const (
	// DefaultSmallXThreshold separates the exact and explicit-formula regimes.
	DefaultSmallXThreshold = 1000.0
	// DefaultMaxHeight caps T' = min(x, MaxHeight) in the zero sum.
	DefaultMaxHeight = 1000.0
	// DefaultConstantTerm is b₀ = −ζ′(0)/ζ(0) as used by the explicit formula here.
	DefaultConstantTerm = 0.0461914179
)

// Regime names the evaluation path taken for x.
type Regime string

const (
	RegimeBelowTwo        Regime = "below-two"
	RegimeExact           Regime = "exact"
	RegimeExplicitFormula Regime = "explicit-formula"
)

// Estimate is a ψ value with quality information.
type Estimate struct {
	Value  float64
	Regime Regime
	// ZerosSummed is the number of zero terms accumulated (explicit formula only).
	ZerosSummed int
	// Truncated reports the zero sum stopped early because a term overflowed.
	Truncated bool
}

// Options configures an Approximator. Zero values select defaults.
type Options struct {
	SmallXThreshold float64
	MaxHeight       float64
	ConstantTerm    *float64
	Primes          *primes.Cache
	Logger          logrus.FieldLogger
}

// Approximator computes ψ(x). It is safe for concurrent use; the zero set is
// read-only and the prime cache is synchronized.
type Approximator struct {
	zeros     zeros.ZeroSet
	primes    *primes.Cache
	threshold float64
	maxHeight float64
	b0        float64
	logger    logrus.FieldLogger

	belowTwo, exact, explicit prometheus.Counter
}

// New builds an Approximator over the provider's zero set.
func New(provider zeros.Provider, opts Options) *Approximator {
	a := &Approximator{
		zeros:     provider.ZeroSet(),
		primes:    opts.Primes,
		threshold: opts.SmallXThreshold,
		maxHeight: opts.MaxHeight,
		b0:        DefaultConstantTerm,
		logger:    opts.Logger,
		belowTwo:  metrics.PsiEvaluations.WithLabelValues(string(RegimeBelowTwo)),
		exact:     metrics.PsiEvaluations.WithLabelValues(string(RegimeExact)),
		explicit:  metrics.PsiEvaluations.WithLabelValues(string(RegimeExplicitFormula)),
	}
	if a.primes == nil {
		a.primes = primes.NewCache(0)
	}
	if a.threshold <= 0 {
		a.threshold = DefaultSmallXThreshold
	}
	if a.maxHeight <= 0 {
		a.maxHeight = DefaultMaxHeight
	}
	if opts.ConstantTerm != nil {
		a.b0 = *opts.ConstantTerm
	}
	if a.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		a.logger = l
	}
	return a
}

// ZeroSet returns the zero set the approximator sums over.
func (a *Approximator) ZeroSet() zeros.ZeroSet { return a.zeros }

// Psi returns ψ(x).
func (a *Approximator) Psi(x float64) float64 {
	return a.Evaluate(x).Value
}

// Evaluate returns ψ(x) with the regime and truncation status.
func (a *Approximator) Evaluate(x float64) Estimate {
	switch {
	case x < 2:
		a.belowTwo.Inc()
		return Estimate{Value: 0, Regime: RegimeBelowTwo}
	case x < a.threshold:
		a.exact.Inc()
		return Estimate{Value: a.exactPsi(x), Regime: RegimeExact}
	default:
		a.explicit.Inc()
		return a.explicitPsi(x)
	}
}

// exactPsi adds ln p once for every prime power p^k <= x.
func (a *Approximator) exactPsi(x float64) float64 {
	result := 0.0
	for _, p := range a.primes.Primes(int(x)) {
		fp := float64(p)
		logP := math.Log(fp)
		for pk := fp; pk <= x; pk *= fp {
			result += logP
		}
	}
	return result
}

// explicitPsi sums x^ρ/ρ over ordinates γ <= min(x, maxHeight) in ascending
// order, then adds the conjugate of the accumulated sum once.
func (a *Approximator) explicitPsi(x float64) Estimate {
	height := math.Min(x, a.maxHeight)
	logX := complex(math.Log(x), 0)

	est := Estimate{Regime: RegimeExplicitFormula}
	var sum complex128
	a.zeros.Each(height, func(gamma float64) bool {
		rho := complex(0.5, gamma)
		term := cmplx.Exp(rho*logX) / rho
		next := sum + term
		if !finite(term) || !finite(next) {
			est.Truncated = true
			return false
		}
		sum = next
		est.ZerosSummed++
		return true
	})

	if est.Truncated {
		metrics.PsiTruncations.Inc()
		a.logger.WithFields(logrus.Fields{
			"x":            x,
			"zeros_summed": est.ZerosSummed,
		}).Debug("Explicit formula sum truncated on overflow")
	}

	sum += cmplx.Conj(sum)
	est.Value = x - real(sum) - a.b0
	return est
}

func finite(c complex128) bool {
	return !cmplx.IsInf(c) && !cmplx.IsNaN(c)
}
