// Package metrics holds the Prometheus instruments shared by the numerical
// pipeline. All instruments register with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "psiscan"

var (
	// PsiEvaluations counts ψ(x) evaluations by regime.
	PsiEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "psi_evaluations_total",
		Help:      "Chebyshev psi evaluations by regime",
	}, []string{"regime"})

	// PsiTruncations counts explicit-formula sums cut short by overflow.
	PsiTruncations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "psi_truncations_total",
		Help:      "Explicit formula sums truncated because a term overflowed",
	})

	// QuadratureSegments counts integrated segments by outcome.
	QuadratureSegments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quadrature_segments_total",
		Help:      "Adaptive quadrature segments by outcome",
	}, []string{"outcome"})

	// IntegralDuration observes wall time per I(T, sigma) evaluation.
	IntegralDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "integral_duration_seconds",
		Help:      "Wall time of one weighted integral evaluation",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	// PrimeCacheLookups counts prime cache lookups by result.
	PrimeCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "prime_cache_lookups_total",
		Help:      "Prime table cache lookups by result",
	}, []string{"result"})

	// SweepSamples counts completed sweep samples.
	SweepSamples = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_samples_total",
		Help:      "Sweep grid samples by status",
	}, []string{"status"})
)

// Label values.
const (
	OutcomeConverged    = "converged"
	OutcomeNotConverged = "not_converged"
	OutcomeRetried      = "retried"

	LookupHit  = "hit"
	LookupMiss = "miss"

	StatusComputed = "computed"
	StatusResumed  = "resumed"
	StatusFailed   = "failed"
)
