package quadrature

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIntegrate_PolynomialExact verifies one K21 panel integrates low-degree polynomials.
func TestIntegrate_PolynomialExact(t *testing.T) {
	res, err := Integrate(context.Background(), func(x float64) float64 {
		return x*x*x*x*x - 2*x + 1
	}, 0, 1, Options{})
	require.NoError(t, err)

	assert.InDelta(t, 1.0/6.0, res.Value, 1e-14)
	assert.True(t, res.Converged)
	assert.Equal(t, 1, res.Subdivisions)
	assert.Equal(t, kronrodPoints, res.Evaluations)
}

// TestIntegrate_Smooth verifies transcendental integrands.
func TestIntegrate_Smooth(t *testing.T) {
	ctx := context.Background()

	res, err := Integrate(ctx, math.Sin, 0, math.Pi, Options{})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, res.Value, 1e-12)
	assert.True(t, res.Converged)

	res, err = Integrate(ctx, func(x float64) float64 { return math.Exp(-x * x) }, -10, 10, Options{})
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(math.Pi), res.Value, 1e-10)
	assert.True(t, res.Converged)
}

// TestIntegrate_EndpointSingularity verifies bisection resolves √x at the origin.
func TestIntegrate_EndpointSingularity(t *testing.T) {
	res, err := Integrate(context.Background(), math.Sqrt, 0, 1, Options{})
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, res.Value, 1e-10)
	assert.True(t, res.Converged)
	assert.Greater(t, res.Subdivisions, 1)
}

// TestIntegrate_ReversedAndEmpty verifies orientation and empty intervals.
func TestIntegrate_ReversedAndEmpty(t *testing.T) {
	ctx := context.Background()

	res, err := Integrate(ctx, math.Sin, math.Pi, 0, Options{})
	require.NoError(t, err)
	assert.InDelta(t, -2.0, res.Value, 1e-12)

	res, err = Integrate(ctx, math.Sin, 1, 1, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Value)
	assert.True(t, res.Converged)
	assert.Equal(t, 0, res.Evaluations)
}

// TestIntegrate_BudgetExhausted verifies a staircase with more jumps than the
// budget can resolve stops at MaxSubdivisions and reports non-convergence.
func TestIntegrate_BudgetExhausted(t *testing.T) {
	c := 100 * math.Pi
	staircase := func(x float64) float64 { return math.Floor(c * x) }
	// ∫₀¹ ⌊cx⌋ dx = Σ_{k=1}^{⌊c⌋} (1 − k/c)
	n := math.Floor(c)
	want := n - n*(n+1)/(2*c)

	res, err := Integrate(context.Background(), staircase, 0, 1, Options{})
	require.NoError(t, err)
	assert.False(t, res.Converged)
	assert.Equal(t, DefaultMaxSubdivisions, res.Subdivisions)
	assert.Equal(t, kronrodPoints*(2*DefaultMaxSubdivisions-1), res.Evaluations)
	assert.Greater(t, res.AbsErr, DefaultAbsTol)
	assert.InDelta(t, want, res.Value, 0.1)
}

// TestIntegrate_RelaxedToleranceConverges verifies looser tolerances stop earlier.
func TestIntegrate_RelaxedToleranceConverges(t *testing.T) {
	f := func(x float64) float64 { return 1 / (1 + 25*x*x) }
	want := 2 * math.Atan(5) / 5

	tight, err := Integrate(context.Background(), f, -1, 1, Options{})
	require.NoError(t, err)
	loose, err := Integrate(context.Background(), f, -1, 1, Options{AbsTol: 1e-4, RelTol: 1e-4})
	require.NoError(t, err)

	assert.True(t, tight.Converged)
	assert.True(t, loose.Converged)
	assert.InDelta(t, want, tight.Value, 1e-10)
	assert.InDelta(t, want, loose.Value, 1e-4)
	assert.LessOrEqual(t, loose.Evaluations, tight.Evaluations)
}

// TestIntegrate_Cancelled verifies a cancelled context stops bisection.
func TestIntegrate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Integrate(ctx, func(x float64) float64 { return math.Floor(100 * math.Pi * x) }, 0, 1, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Subdivisions)
	assert.Equal(t, kronrodPoints, res.Evaluations)
	assert.False(t, res.Converged)
}

// TestOptions_Tolerance verifies the mixed absolute/relative target.
func TestOptions_Tolerance(t *testing.T) {
	o := Options{AbsTol: 1e-6, RelTol: 1e-3}
	assert.Equal(t, 1e-6, o.Tolerance(0))
	assert.InDelta(t, 1.0, o.Tolerance(-1000), 1e-12)
}
