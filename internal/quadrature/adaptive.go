// Package quadrature integrates real functions over finite intervals with
// globally adaptive Gauss–Kronrod (G10/K21) bisection.
package quadrature

import (
	"container/heap"
	"context"
	"math"
)

// Defaults used when Options fields are zero.
const (
	DefaultAbsTol          = 1e-10
	DefaultRelTol          = 1e-10
	DefaultMaxSubdivisions = 200
)

// Func is an integrand.
type Func func(x float64) float64

// Options bounds the work of one integration.
type Options struct {
	AbsTol float64
	RelTol float64
	// MaxSubdivisions caps the number of subintervals.
	MaxSubdivisions int
}

func (o Options) withDefaults() Options {
	if o.AbsTol <= 0 {
		o.AbsTol = DefaultAbsTol
	}
	if o.RelTol <= 0 {
		o.RelTol = DefaultRelTol
	}
	if o.MaxSubdivisions <= 0 {
		o.MaxSubdivisions = DefaultMaxSubdivisions
	}
	return o
}

// Tolerance returns the error target max(AbsTol, RelTol·|value|).
func (o Options) Tolerance(value float64) float64 {
	return math.Max(o.AbsTol, o.RelTol*math.Abs(value))
}

// Result is the outcome of one integration.
type Result struct {
	Value        float64
	AbsErr       float64
	Subdivisions int
	Evaluations  int
	// Converged reports AbsErr <= max(AbsTol, RelTol·|Value|).
	Converged bool
}

// Integrate computes ∫_a^b f(x) dx. The subinterval with the largest error
// estimate is bisected until the total error meets the tolerance or the
// subdivision budget is spent; either way the best estimate is returned.
// On context cancellation the partial result is returned with ctx.Err().
func Integrate(ctx context.Context, f Func, a, b float64, opts Options) (Result, error) {
	opts = opts.withDefaults()

	if a == b {
		return Result{Converged: true}, nil
	}
	if a > b {
		res, err := Integrate(ctx, f, b, a, opts)
		res.Value = -res.Value
		return res, err
	}

	evals := 0
	counted := func(x float64) float64 {
		evals++
		return f(x)
	}

	v, e := gk21(counted, a, b)
	h := &intervalHeap{{lo: a, hi: b, value: v, err: e}}
	total, totalErr := v, e

	var ctxErr error
	for totalErr > opts.Tolerance(total) && h.Len() < opts.MaxSubdivisions {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}

		worst := heap.Pop(h).(interval)
		mid := (worst.lo + worst.hi) / 2
		lv, le := gk21(counted, worst.lo, mid)
		rv, re := gk21(counted, mid, worst.hi)

		total += lv + rv - worst.value
		totalErr += le + re - worst.err

		heap.Push(h, interval{lo: worst.lo, hi: mid, value: lv, err: le})
		heap.Push(h, interval{lo: mid, hi: worst.hi, value: rv, err: re})
	}

	// Re-sum to shed the drift of the running totals.
	total, totalErr = 0, 0
	for _, iv := range *h {
		total += iv.value
		totalErr += iv.err
	}

	return Result{
		Value:        total,
		AbsErr:       totalErr,
		Subdivisions: h.Len(),
		Evaluations:  evals,
		Converged:    totalErr <= opts.Tolerance(total),
	}, ctxErr
}

type interval struct {
	lo, hi     float64
	value, err float64
}

// intervalHeap is a max-heap on error estimate.
type intervalHeap []interval

func (h intervalHeap) Len() int            { return len(h) }
func (h intervalHeap) Less(i, j int) bool  { return h[i].err > h[j].err }
func (h intervalHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *intervalHeap) Push(x interface{}) { *h = append(*h, x.(interval)) }
func (h *intervalHeap) Pop() interface{} {
	old := *h
	n := len(old)
	iv := old[n-1]
	*h = old[:n-1]
	return iv
}
