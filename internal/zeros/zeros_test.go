package zeros

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAsymptoticProvider_DefaultSet verifies size, literal prefix and ordering.
func TestAsymptoticProvider_DefaultSet(t *testing.T) {
	p, err := NewAsymptoticProvider(0)
	require.NoError(t, err)

	set := p.ZeroSet()
	require.Equal(t, DefaultCount, set.Len())
	assert.Equal(t, len(Known), set.Exact())

	for i, g := range Known {
		assert.Equal(t, g, set.At(i), "literal ordinate %d", i)
	}
	for i := 1; i < set.Len(); i++ {
		assert.Greater(t, set.At(i), set.At(i-1), "ordinate %d must exceed its predecessor", i)
	}
}

// TestAsymptoticProvider_TailIsDensityEstimates verifies the tail holds the
// estimates for k = 11..n, reordered ascending.
func TestAsymptoticProvider_TailIsDensityEstimates(t *testing.T) {
	p, err := NewAsymptoticProvider(20)
	require.NoError(t, err)
	set := p.ZeroSet()

	want := map[float64]bool{}
	for k := 11; k <= 20; k++ {
		want[DensityEstimate(k)] = true
	}
	for i := len(Known); i < set.Len(); i++ {
		assert.True(t, want[set.At(i)], "ordinate %d (%v) is not a density estimate", i, set.At(i))
	}
	assert.InDelta(t, 107.31463588826301, set.At(len(Known)), 1e-9, "smallest estimate is at k=17")
}

// TestAsymptoticProvider_ShortSet verifies n below the literal prefix length.
func TestAsymptoticProvider_ShortSet(t *testing.T) {
	p, err := NewAsymptoticProvider(3)
	require.NoError(t, err)
	set := p.ZeroSet()
	assert.Equal(t, 3, set.Len())
	assert.Equal(t, 3, set.Exact())
}

// TestNewZeroSet_RejectsDisorder verifies the ascending invariant.
func TestNewZeroSet_RejectsDisorder(t *testing.T) {
	_, err := NewZeroSet([]float64{1, 3, 2}, 3)
	assert.ErrorIs(t, err, ErrNotAscending)

	_, err = NewZeroSet([]float64{1, 1}, 2)
	assert.ErrorIs(t, err, ErrNotAscending)

	_, err = NewZeroSet([]float64{1, math.NaN()}, 2)
	assert.ErrorIs(t, err, ErrNotAscending)
}

// TestZeroSet_Immutable verifies callers cannot mutate a set.
func TestZeroSet_Immutable(t *testing.T) {
	in := []float64{1, 2, 3}
	set, err := NewZeroSet(in, 3)
	require.NoError(t, err)

	in[0] = 100
	out := set.Ordinates()
	out[1] = 100

	assert.Equal(t, []float64{1, 2, 3}, set.Ordinates())
}

// TestZeroSet_EachStopsAtHeight verifies early stop on the first ordinate above height.
func TestZeroSet_EachStopsAtHeight(t *testing.T) {
	set, err := NewZeroSet([]float64{1, 2, 3, 4}, 4)
	require.NoError(t, err)

	var seen []float64
	set.Each(2.5, func(g float64) bool {
		seen = append(seen, g)
		return true
	})
	assert.Equal(t, []float64{1, 2}, seen)
	assert.Equal(t, 2, set.CountBelow(2.5))
	assert.Equal(t, 4, set.CountBelow(10))
	assert.Equal(t, 0, set.CountBelow(0.5))
}

// TestStaticProvider verifies injected ordinates are exact.
func TestStaticProvider(t *testing.T) {
	p, err := NewStaticProvider(5, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, p.ZeroSet().Exact())

	_, err = NewStaticProvider(7, 5)
	assert.ErrorIs(t, err, ErrNotAscending)
}

// TestRiemannSiegelZ_SignChangeAtFirstZero verifies Z changes sign around γ₁.
func TestRiemannSiegelZ_SignChangeAtFirstZero(t *testing.T) {
	lo := RiemannSiegelZ(Known[0] - 0.2)
	hi := RiemannSiegelZ(Known[0] + 0.2)
	assert.Less(t, lo*hi, 0.0)
}

// TestFindZeros_MatchesKnownZeros verifies the scan lands near the literal prefix.
func TestFindZeros_MatchesKnownZeros(t *testing.T) {
	found := FindZeros(scanStart, 60, DefaultRefineStep, len(Known))
	require.Len(t, found, len(Known))
	for i, g := range Known {
		assert.InDelta(t, g, found[i], 0.02, "zero %d", i+1)
	}
}

// TestRefinedProvider_KeepsKnownPrefix verifies the literal ordinates are
// used verbatim and are the only ones reported exact.
func TestRefinedProvider_KeepsKnownPrefix(t *testing.T) {
	p, err := NewRefinedProvider(len(Known)+2, DefaultRefineStep)
	require.NoError(t, err)

	set := p.ZeroSet()
	require.Equal(t, len(Known)+2, set.Len())
	assert.Equal(t, len(Known), set.Exact())
	for i, g := range Known {
		assert.Equal(t, g, set.At(i), "zero %d", i+1)
	}
	assert.InDelta(t, 52.970321478, set.At(10), 0.02)
	assert.InDelta(t, 56.446247697, set.At(11), 0.02)

	short, err := NewRefinedProvider(3, DefaultRefineStep)
	require.NoError(t, err)
	assert.Equal(t, 3, short.ZeroSet().Exact())
	assert.Equal(t, Known[2], short.ZeroSet().At(2))
}

// TestRefinedProvider_HundredthZero verifies the scan reaches γ₁₀₀ ≈ 236.524.
func TestRefinedProvider_HundredthZero(t *testing.T) {
	p, err := NewRefinedProvider(100, DefaultRefineStep)
	require.NoError(t, err)

	set := p.ZeroSet()
	assert.Equal(t, len(Known), set.Exact())
	assert.InDelta(t, 236.524229666, set.At(99), 0.05)
}
