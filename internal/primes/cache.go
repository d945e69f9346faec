package primes

import (
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/Roetd/PrimeNumberFluctuationStationarity/internal/metrics"
)

// DefaultMaxEntries bounds how many prime tables a Cache keeps.
const DefaultMaxEntries = 64

// Cache serves prime tables keyed by upper bound. A request for bound n is
// answered from any cached table with bound >= n by slicing its prefix.
// Tables never go stale, so entries are only dropped to respect MaxEntries.
//
// Returned slices are shared and must not be modified.
//
// Cache is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	tables     map[int][]int
	bounds     []int // ascending keys of tables
	maxEntries int
	flight     singleflight.Group

	hits   int64
	misses int64
}

// NewCache creates a cache holding at most maxEntries tables.
// maxEntries <= 0 selects DefaultMaxEntries.
func NewCache(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		tables:     make(map[int][]int),
		maxEntries: maxEntries,
	}
}

// Primes returns all primes <= n.
func (c *Cache) Primes(n int) []int {
	if n < 2 {
		return nil
	}

	if ps, ok := c.lookup(n); ok {
		atomic.AddInt64(&c.hits, 1)
		metrics.PrimeCacheLookups.WithLabelValues(metrics.LookupHit).Inc()
		return ps
	}
	atomic.AddInt64(&c.misses, 1)
	metrics.PrimeCacheLookups.WithLabelValues(metrics.LookupMiss).Inc()

	v, _, _ := c.flight.Do(strconv.Itoa(n), func() (interface{}, error) {
		if ps, ok := c.lookup(n); ok {
			return ps, nil
		}
		ps := Sieve(n)
		c.store(n, ps)
		return ps, nil
	})
	return v.([]int)
}

func (c *Cache) lookup(n int) ([]int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := sort.SearchInts(c.bounds, n)
	if i == len(c.bounds) {
		return nil, false
	}
	table := c.tables[c.bounds[i]]
	if c.bounds[i] == n {
		return table, true
	}
	end := sort.SearchInts(table, n+1)
	return table[:end:end], true
}

func (c *Cache) store(n int, ps []int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tables[n]; ok {
		return
	}
	c.tables[n] = ps
	i := sort.SearchInts(c.bounds, n)
	c.bounds = append(c.bounds, 0)
	copy(c.bounds[i+1:], c.bounds[i:])
	c.bounds[i] = n

	c.cleanIfNeeded()
}

// cleanIfNeeded drops the smallest bounds first; the largest table can
// still answer those requests by prefix.
func (c *Cache) cleanIfNeeded() {
	for len(c.bounds) > c.maxEntries {
		delete(c.tables, c.bounds[0])
		c.bounds = c.bounds[1:]
	}
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (c *Cache) HitRate() float64 {
	hits := float64(atomic.LoadInt64(&c.hits))
	misses := float64(atomic.LoadInt64(&c.misses))

	total := hits + misses
	if total == 0 {
		return 0
	}
	return hits / total
}

// Size returns the number of cached tables.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}
