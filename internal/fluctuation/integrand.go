// Package fluctuation computes the weighted mean-square error functional
//
//	I(T, σ) = ∫₀^∞ Δ(x)²·x^{-(1+σ)}·e^{-(x/T)²} dx,  Δ(x) = ψ(x) − x
//
// by segmented adaptive quadrature over [0, limit].
package fluctuation

import (
	"math"

	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/chebyshev"
)

// PsiEvaluator is the part of chebyshev.Approximator the integrand needs.
type PsiEvaluator interface {
	Evaluate(x float64) chebyshev.Estimate
}

// Evaluator computes integrand values.
type Evaluator struct {
	psi PsiEvaluator
}

// NewEvaluator wraps a ψ evaluator.
func NewEvaluator(psi PsiEvaluator) *Evaluator {
	return &Evaluator{psi: psi}
}

// Delta returns Δ(x) = ψ(x) − x.
func (e *Evaluator) Delta(x float64) float64 {
	return e.psi.Evaluate(x).Value - x
}

// Integrand returns Δ(x)²·e^{-(x/T)²}/x^{1+σ}, or 0 for x <= 0. T must be
// positive. truncated reports that ψ(x) came from a truncated zero sum.
func (e *Evaluator) Integrand(x, T, sigma float64) (value float64, truncated bool) {
	if x <= 0 {
		return 0, false
	}

	est := e.psi.Evaluate(x)
	delta := est.Value - x
	weight := math.Exp(-(x / T) * (x / T))
	return delta * delta * weight / math.Pow(x, 1+sigma), est.Truncated
}
