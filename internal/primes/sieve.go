// Package primes enumerates primes with the sieve of Eratosthenes and caches
// the resulting tables by upper bound.
package primes

import "math"

// Sieve returns all primes <= n in ascending order. It returns nil for n < 2.
func Sieve(n int) []int {
	if n < 2 {
		return nil
	}

	composite := make([]bool, n+1)
	composite[0], composite[1] = true, true

	root := int(math.Sqrt(float64(n)))
	for i := 2; i <= root; i++ {
		if composite[i] {
			continue
		}
		for j := i * i; j <= n; j += i {
			composite[j] = true
		}
	}

	primes := make([]int, 0, estimateCount(n))
	for i, c := range composite {
		if !c {
			primes = append(primes, i)
		}
	}
	return primes
}

// estimateCount bounds π(n) from above for slice preallocation.
func estimateCount(n int) int {
	if n < 17 {
		return 7
	}
	fn := float64(n)
	return int(1.26*fn/math.Log(fn)) + 1
}
