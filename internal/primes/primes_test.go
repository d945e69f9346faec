package primes

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSieve_SmallBounds verifies the degenerate and small cases.
func TestSieve_SmallBounds(t *testing.T) {
	assert.Empty(t, Sieve(-5))
	assert.Empty(t, Sieve(0))
	assert.Empty(t, Sieve(1))
	assert.Equal(t, []int{2}, Sieve(2))
	assert.Equal(t, []int{2, 3, 5, 7}, Sieve(10))
	assert.Equal(t, []int{2, 3, 5, 7, 11}, Sieve(11))
}

// TestSieve_Counts verifies π(n) at a few reference points.
func TestSieve_Counts(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{100, 25},
		{999, 168},
		{1000, 168},
		{10000, 1229},
	}
	for _, tt := range tests {
		assert.Len(t, Sieve(tt.n), tt.want, "π(%d)", tt.n)
	}
}

// TestCache_MatchesSieve verifies cached tables equal fresh sieves in any request order.
func TestCache_MatchesSieve(t *testing.T) {
	c := NewCache(0)
	for _, n := range []int{500, 10, 999, 2, 501, 1, 37} {
		assert.Equal(t, Sieve(n), c.Primes(n), "bound %d", n)
	}
}

// TestCache_PrefixHit verifies a smaller bound is served from a larger table.
func TestCache_PrefixHit(t *testing.T) {
	c := NewCache(0)
	c.Primes(1000)
	require.Equal(t, 1, c.Size())

	ps := c.Primes(30)
	assert.Equal(t, []int{2, 3, 5, 7, 11, 13, 17, 19, 23, 29}, ps)
	assert.Equal(t, 1, c.Size(), "prefix hits must not add tables")
	assert.InDelta(t, 0.5, c.HitRate(), 1e-12)

	// Appending to a returned prefix must not clobber the shared table.
	_ = append(ps, -1)
	assert.Equal(t, 31, c.Primes(31)[10])
}

// TestCache_Eviction verifies the entry bound drops smallest tables first.
func TestCache_Eviction(t *testing.T) {
	c := NewCache(2)
	c.Primes(10)
	c.Primes(20)
	c.Primes(5) // prefix hit on 10
	assert.Equal(t, 2, c.Size())

	c.Primes(50) // miss: evicts 10
	assert.Equal(t, 2, c.Size())
	assert.Equal(t, []int{2, 3, 5, 7}, c.Primes(10), "evicted bound is still served by prefix")
}

// TestCache_Concurrent verifies concurrent readers get consistent tables.
func TestCache_Concurrent(t *testing.T) {
	c := NewCache(8)
	want := Sieve(997)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n := 900 + i*6
			got := c.Primes(n)
			assert.Equal(t, Sieve(n), got)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, want, c.Primes(997))
}
