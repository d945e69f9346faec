package chebyshev

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/primes"
	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/zeros"
)

func newDefault(t *testing.T) *Approximator {
	t.Helper()
	p, err := zeros.NewAsymptoticProvider(zeros.DefaultCount)
	require.NoError(t, err)
	return New(p, Options{})
}

// TestPsi_BelowTwo verifies ψ vanishes on [0, 2).
func TestPsi_BelowTwo(t *testing.T) {
	a := newDefault(t)
	for _, x := range []float64{0, 0.5, 1, 1.5, 1.999999} {
		est := a.Evaluate(x)
		assert.Equal(t, 0.0, est.Value, "ψ(%v)", x)
		assert.Equal(t, RegimeBelowTwo, est.Regime)
	}
}

// TestPsi_Ten verifies ψ(10) = 3ln2 + 2ln3 + ln5 + ln7.
func TestPsi_Ten(t *testing.T) {
	a := newDefault(t)
	want := 3*math.Ln2 + 2*math.Log(3) + math.Log(5) + math.Log(7)
	assert.InDelta(t, want, a.Psi(10), 1e-12)
	assert.InDelta(t, 7.8319, a.Psi(10), 1e-4)
}

// TestPsi_SmallValues verifies ψ at prime powers and between them.
func TestPsi_SmallValues(t *testing.T) {
	a := newDefault(t)
	assert.InDelta(t, math.Ln2, a.Psi(2), 1e-12)
	assert.InDelta(t, math.Ln2, a.Psi(2.9), 1e-12)
	assert.InDelta(t, math.Ln2+math.Log(3), a.Psi(3), 1e-12)
	assert.InDelta(t, 2*math.Ln2+math.Log(3), a.Psi(4), 1e-12)
}

// TestPsi_NonDecreasing verifies monotonicity across the exact regime.
func TestPsi_NonDecreasing(t *testing.T) {
	a := newDefault(t)
	prev := a.Psi(0)
	for x := 0.25; x < DefaultSmallXThreshold; x += 0.25 {
		cur := a.Psi(x)
		require.GreaterOrEqual(t, cur, prev, "ψ(%v) < ψ(%v)", x, x-0.25)
		prev = cur
	}
}

// TestPsi_ExactRegimeUpperEdge verifies ψ(999) against its known value.
func TestPsi_ExactRegimeUpperEdge(t *testing.T) {
	a := newDefault(t)
	est := a.Evaluate(999)
	assert.Equal(t, RegimeExact, est.Regime)
	// ψ(999) = ψ(1000) = 996.6809...
	assert.InDelta(t, 996.680912247, est.Value, 1e-6)
}

// TestPsi_ExplicitFormulaSingleZero verifies the large-x path against a hand
// computed one-zero explicit formula.
func TestPsi_ExplicitFormulaSingleZero(t *testing.T) {
	gamma := zeros.Known[0]
	p, err := zeros.NewStaticProvider(gamma)
	require.NoError(t, err)
	a := New(p, Options{})

	x := 2000.0
	lx := math.Log(x)
	// x^ρ/ρ = √x·e^{iγ ln x}/(1/2 + iγ)
	num := complex(math.Sqrt(x)*math.Cos(gamma*lx), math.Sqrt(x)*math.Sin(gamma*lx))
	term := num / complex(0.5, gamma)
	want := x - 2*real(term) - DefaultConstantTerm

	est := a.Evaluate(x)
	assert.Equal(t, RegimeExplicitFormula, est.Regime)
	assert.Equal(t, 1, est.ZerosSummed)
	assert.False(t, est.Truncated)
	assert.InDelta(t, want, est.Value, 1e-9)
}

// TestPsi_ExplicitFormulaHeightCap verifies only zeros below min(x, MaxHeight) are summed.
func TestPsi_ExplicitFormulaHeightCap(t *testing.T) {
	p, err := zeros.NewStaticProvider(10, 20, 1500, 2500)
	require.NoError(t, err)

	a := New(p, Options{})
	assert.Equal(t, 2, a.Evaluate(5000).ZerosSummed, "default height caps at 1000")

	b := New(p, Options{MaxHeight: 3000})
	assert.Equal(t, 3, b.Evaluate(2000).ZerosSummed, "height is min(x, cap)")
	assert.Equal(t, 4, b.Evaluate(5000).ZerosSummed)
}

// TestPsi_DefaultZeroSetLargeX verifies the default set is fully summed and finite.
func TestPsi_DefaultZeroSetLargeX(t *testing.T) {
	a := newDefault(t)
	for _, x := range []float64{1000, 1234.5, 1e4, 1e6} {
		est := a.Evaluate(x)
		assert.Equal(t, RegimeExplicitFormula, est.Regime)
		assert.Equal(t, zeros.DefaultCount, est.ZerosSummed)
		assert.False(t, est.Truncated)
		assert.False(t, math.IsNaN(est.Value) || math.IsInf(est.Value, 0), "ψ(%v) = %v", x, est.Value)
	}
}

// TestPsi_TruncatesOnOverflow verifies an overflowing term stops the sum
// and keeps the finite partial result.
func TestPsi_TruncatesOnOverflow(t *testing.T) {
	gamma := zeros.Known[0]
	p, err := zeros.NewStaticProvider(gamma, 1e307, 2e307)
	require.NoError(t, err)
	a := New(p, Options{MaxHeight: math.Inf(1)})

	one, err := zeros.NewStaticProvider(gamma)
	require.NoError(t, err)
	ref := New(one, Options{MaxHeight: math.Inf(1)})

	// The height cap is min(x, ∞) = x, so x must exceed the huge ordinates.
	x := 1e308
	est := a.Evaluate(x)
	assert.True(t, est.Truncated)
	assert.Equal(t, 1, est.ZerosSummed)
	assert.Equal(t, ref.Psi(x), est.Value)
}

// TestPsi_ConstantTermOverride verifies b₀ is configurable.
func TestPsi_ConstantTermOverride(t *testing.T) {
	p, err := zeros.NewStaticProvider(zeros.Known[0])
	require.NoError(t, err)

	zero := 0.0
	a := New(p, Options{})
	b := New(p, Options{ConstantTerm: &zero})
	assert.InDelta(t, DefaultConstantTerm, b.Psi(5000)-a.Psi(5000), 1e-9)
}

// TestPsi_SharedPrimeCache verifies evaluations reuse an injected cache.
func TestPsi_SharedPrimeCache(t *testing.T) {
	cache := primes.NewCache(0)
	p, err := zeros.NewAsymptoticProvider(10)
	require.NoError(t, err)
	a := New(p, Options{Primes: cache})

	a.Psi(500)
	a.Psi(100)
	a.Psi(250.5)
	assert.Equal(t, 1, cache.Size())
	assert.Greater(t, cache.HitRate(), 0.5)
}
