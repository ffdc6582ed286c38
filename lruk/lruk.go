// Package lruk implements LRU-K: an LRU cache that only admits a key to
// its main list after the key has been observed K times, shielding the
// main cache from one-shot accesses.
package lruk

import (
	"sync"

	"github.com/IvanBrykalov/cachekit/lru"
	"github.com/IvanBrykalov/cachekit/policy"
)

// LRUK wraps a main LRU cache with a promotion gate: a secondary history
// LRU tracking per-key observation counts, and a pending map holding the
// value of a key that has been observed but not yet promoted.
type LRUK[K comparable, V any] struct {
	mu sync.Mutex

	k       int
	main    *lru.LRU[K, V]
	history *lru.LRU[K, int]
	pending map[K]V

	metrics policy.Metrics
}

// Option configures ambient behavior.
type Option[K comparable, V any] func(*LRUK[K, V])

// WithMetrics wires an observability sink onto the outer LRU-K contract
// (Get/Put here, not the inner main/history caches individually).
func WithMetrics[K comparable, V any](m policy.Metrics) Option[K, V] {
	return func(l *LRUK[K, V]) { l.metrics = m }
}

// New constructs an LRU-K cache: capacity is the main cache's size,
// historyCapacity bounds the observation-count tracker, and k is the
// number of cumulative references required before a key is promoted.
// k < 1 is normalized to 1 (promote on first observation, degenerating
// to plain LRU admission).
func New[K comparable, V any](capacity, historyCapacity, k int, opts ...Option[K, V]) *LRUK[K, V] {
	if k < 1 {
		k = 1
	}
	l := &LRUK[K, V]{
		k:       k,
		main:    lru.New[K, V](capacity),
		pending: make(map[K]V),
		metrics: policy.NoopMetrics{},
	}
	// The pending map's lifetime is tied to the history cache: when the
	// history LRU evicts a key under its own capacity pressure, drop the
	// matching pending value too, so the two never drift out of sync.
	l.history = lru.New[K, int](historyCapacity, lru.WithOnEvict[K, int](func(hk K, _ int) {
		delete(l.pending, hk)
	}))
	for _, o := range opts {
		o(l)
	}
	if l.metrics == nil {
		l.metrics = policy.NoopMetrics{}
	}
	return l
}

// Get returns the value for k and whether k is resident in main. A miss
// in main counts as an observation and bumps k's observation count; if
// that reaches k and a pending value exists, the key is promoted into
// main and the call reports a hit with the promoted value.
func (l *LRUK[K, V]) Get(k K) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.main.Get(k); ok {
		l.metrics.Hit()
		return v, true
	}

	count := l.history.GetOrZero(k) + 1
	l.history.Put(k, count)

	if count >= l.k {
		if v, ok := l.pending[k]; ok {
			l.main.Put(k, v)
			l.history.Remove(k)
			delete(l.pending, k)
			l.metrics.Hit()
			return v, true
		}
	}
	l.metrics.Miss()
	var zero V
	return zero, false
}

// GetOrZero returns the value on a hit, or the zero value of V on a miss.
func (l *LRUK[K, V]) GetOrZero(k K) V {
	v, _ := l.Get(k)
	return v
}

// Put records an observation of k→v. If k is already resident in main,
// it is overwritten there directly (no history bookkeeping). Otherwise
// the observation count is bumped and v is staged in pending; once the
// count reaches k, the key is promoted into main immediately.
func (l *LRUK[K, V]) Put(k K, v V) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.main.Get(k); ok {
		l.main.Put(k, v)
		return
	}

	count := l.history.GetOrZero(k) + 1
	l.history.Put(k, count)
	l.pending[k] = v

	if count >= l.k {
		l.main.Put(k, v)
		l.history.Remove(k)
		delete(l.pending, k)
	}
}

// Remove deletes k from every internal structure (main, history, and
// pending) and reports whether it was resident in main.
func (l *LRUK[K, V]) Remove(k K) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	wasMain := l.main.Remove(k)
	l.history.Remove(k)
	delete(l.pending, k)
	return wasMain
}

// Len returns the number of entries resident in the main cache (pending,
// not-yet-promoted observations are not counted as resident).
func (l *LRUK[K, V]) Len() int {
	return l.main.Len()
}
