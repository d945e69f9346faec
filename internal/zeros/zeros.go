// Package zeros supplies the ordinates γ of non-trivial Riemann zeta zeros
// ρ = 1/2 + iγ used by the explicit formula for ψ(x).
package zeros

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrNotAscending is returned when a zero set is not strictly increasing.
var ErrNotAscending = errors.New("zero ordinates must be finite and strictly increasing")

// DefaultCount is the size of the default zero set.
const DefaultCount = 100

// Known holds the ordinates of the first ten non-trivial zeros.
var Known = [...]float64{
	14.134725141734693,
	21.022039638771554,
	25.010857580145686,
	30.424876125859516,
	32.93506158773919,
	37.58617815882567,
	40.91871901214749,
	43.32707328091499,
	48.00515088116616,
	49.773832477672314,
}

// Provider supplies the zero set used by the explicit formula.
type Provider interface {
	ZeroSet() ZeroSet
}

// ZeroSet is an immutable, strictly increasing sequence of zero ordinates.
// The first Exact entries are precise; the rest are approximations.
type ZeroSet struct {
	gammas []float64
	exact  int
}

// NewZeroSet copies gammas and validates ordering. exact is clamped to len(gammas).
func NewZeroSet(gammas []float64, exact int) (ZeroSet, error) {
	out := make([]float64, len(gammas))
	copy(out, gammas)

	for i, g := range out {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return ZeroSet{}, fmt.Errorf("ordinate %d is %v: %w", i, g, ErrNotAscending)
		}
		if i > 0 && g <= out[i-1] {
			return ZeroSet{}, fmt.Errorf("ordinate %d (%v) <= ordinate %d (%v): %w",
				i, g, i-1, out[i-1], ErrNotAscending)
		}
	}

	if exact < 0 {
		exact = 0
	}
	if exact > len(out) {
		exact = len(out)
	}
	return ZeroSet{gammas: out, exact: exact}, nil
}

// Len returns the number of ordinates.
func (z ZeroSet) Len() int { return len(z.gammas) }

// Exact returns how many leading ordinates are precise values.
func (z ZeroSet) Exact() int { return z.exact }

// At returns the i-th ordinate.
func (z ZeroSet) At(i int) float64 { return z.gammas[i] }

// Ordinates returns a copy of all ordinates.
func (z ZeroSet) Ordinates() []float64 {
	out := make([]float64, len(z.gammas))
	copy(out, z.gammas)
	return out
}

// CountBelow returns how many ordinates are <= height.
func (z ZeroSet) CountBelow(height float64) int {
	return sort.Search(len(z.gammas), func(i int) bool { return z.gammas[i] > height })
}

// Each calls fn with ordinates in ascending order and stops at the first
// ordinate above height or when fn returns false.
func (z ZeroSet) Each(height float64, fn func(gamma float64) bool) {
	for _, g := range z.gammas {
		if g > height {
			return
		}
		if !fn(g) {
			return
		}
	}
}

// ==================== STATIC PROVIDER ====================

type staticProvider struct {
	set ZeroSet
}

// NewStaticProvider wraps caller-supplied ordinates, all treated as exact.
func NewStaticProvider(gammas ...float64) (Provider, error) {
	set, err := NewZeroSet(gammas, len(gammas))
	if err != nil {
		return nil, err
	}
	return staticProvider{set: set}, nil
}

func (p staticProvider) ZeroSet() ZeroSet { return p.set }

// ==================== ASYMPTOTIC PROVIDER ====================

type asymptoticProvider struct {
	set ZeroSet
}

// NewAsymptoticProvider returns the literal ten known ordinates followed by
// density estimates 2πk/ln(k/2π) for k = 11..n. The tail only reproduces the
// zero counting density, not individual zeros.
//
// The estimate decreases for k < 2πe (about 17), so the tail is sorted to keep
// the set ascending. Every estimate exceeds the last literal ordinate.
func NewAsymptoticProvider(n int) (Provider, error) {
	if n <= 0 {
		n = DefaultCount
	}

	gammas := make([]float64, 0, n)
	for i := 0; i < n && i < len(Known); i++ {
		gammas = append(gammas, Known[i])
	}
	tail := make([]float64, 0, n)
	for k := len(Known) + 1; k <= n; k++ {
		tail = append(tail, DensityEstimate(k))
	}
	sort.Float64s(tail)
	gammas = append(gammas, tail...)

	set, err := NewZeroSet(gammas, len(Known))
	if err != nil {
		return nil, fmt.Errorf("asymptotic zero set: %w", err)
	}
	return asymptoticProvider{set: set}, nil
}

func (p asymptoticProvider) ZeroSet() ZeroSet { return p.set }

// DensityEstimate approximates the k-th ordinate from the zero counting law.
func DensityEstimate(k int) float64 {
	n := float64(k)
	return 2 * math.Pi * n / math.Log(n/(2*math.Pi))
}
