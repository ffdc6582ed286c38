// Package lru implements the baseline Least-Recently-Used replacement
// policy: a recency-ordered doubly linked list plus an index map.
//
// An LRU is a complete, independently lockable cache: every Get/Put/Remove
// acquires the instance's own mutex for its full duration, and no lock is
// ever held across a call into user code.
package lru

import (
	"sync"

	"github.com/IvanBrykalov/cachekit/internal/dlist"
	"github.com/IvanBrykalov/cachekit/policy"
)

type entry[K comparable, V any] struct {
	key K
	val V
}

// LRU is a fixed-capacity, recency-ordered cache. The zero value is not
// usable; construct with New.
type LRU[K comparable, V any] struct {
	mu  sync.Mutex
	cap int
	idx map[K]*dlist.Elem[entry[K, V]]
	ord *dlist.List[entry[K, V]]

	metrics policy.Metrics
	onEvict func(k K, v V)
}

// Option configures ambient (non-semantic) behavior of an LRU.
type Option[K comparable, V any] func(*LRU[K, V])

// WithMetrics wires an observability sink; Hit/Miss are reported on every
// Get, and Size whenever Put inserts or Remove deletes an entry. Nil
// disables reporting (the default).
func WithMetrics[K comparable, V any](m policy.Metrics) Option[K, V] {
	return func(l *LRU[K, V]) { l.metrics = m }
}

// WithOnEvict registers a callback invoked synchronously, under the
// instance lock, whenever Put's capacity pressure discards an entry.
// Used internally by LRU-K to keep its pending map coherent with its
// history cache (see package lruk); exported because it is generally
// useful ambient plumbing, not an eviction-policy semantic.
func WithOnEvict[K comparable, V any](fn func(k K, v V)) Option[K, V] {
	return func(l *LRU[K, V]) { l.onEvict = fn }
}

// New constructs an LRU of the given capacity. capacity <= 0 is normalized
// to 0: a zero-capacity LRU accepts Put as a no-op and Get always misses.
func New[K comparable, V any](capacity int, opts ...Option[K, V]) *LRU[K, V] {
	if capacity < 0 {
		capacity = 0
	}
	l := &LRU[K, V]{
		cap:     capacity,
		idx:     make(map[K]*dlist.Elem[entry[K, V]], capacity),
		ord:     dlist.New[entry[K, V]](),
		metrics: policy.NoopMetrics{},
	}
	for _, o := range opts {
		o(l)
	}
	if l.metrics == nil {
		l.metrics = policy.NoopMetrics{}
	}
	return l
}

// Get returns the value for k and whether it was resident. A hit moves k
// to the MRU end.
func (l *LRU[K, V]) Get(k K) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.idx[k]
	if !ok {
		l.metrics.Miss()
		var zero V
		return zero, false
	}
	l.ord.MoveToFront(e)
	l.metrics.Hit()
	return e.Value.val, true
}

// GetOrZero returns the value on a hit, or the zero value of V on a miss.
func (l *LRU[K, V]) GetOrZero(k K) V {
	v, _ := l.Get(k)
	return v
}

// Put inserts or overwrites k→v, promoting it to MRU. If k is new and the
// cache is at capacity, the LRU-end entry is evicted first. A capacity of
// 0 makes Put a permanent no-op.
func (l *LRU[K, V]) Put(k K, v V) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.putLocked(k, v)
}

func (l *LRU[K, V]) putLocked(k K, v V) {
	if l.cap == 0 {
		return
	}
	if e, ok := l.idx[k]; ok {
		e.Value.val = v
		l.ord.MoveToFront(e)
		return
	}
	if l.ord.Len() >= l.cap {
		l.evictOldestLocked()
	}
	e := &dlist.Elem[entry[K, V]]{Value: entry[K, V]{key: k, val: v}}
	l.ord.PushFront(e)
	l.idx[k] = e
	l.metrics.Size(l.ord.Len())
}

// Remove deletes k if present and reports whether it was.
func (l *LRU[K, V]) Remove(k K) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.idx[k]
	if !ok {
		return false
	}
	l.ord.Remove(e)
	delete(l.idx, k)
	l.metrics.Size(l.ord.Len())
	return true
}

// Len returns the number of resident entries.
func (l *LRU[K, V]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ord.Len()
}

// Cap returns the configured capacity.
func (l *LRU[K, V]) Cap() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cap
}

// evictOldestLocked drops the LRU-end entry. Callers must hold mu.
func (l *LRU[K, V]) evictOldestLocked() {
	back := l.ord.Back()
	if back == nil {
		return
	}
	k, v := back.Value.key, back.Value.val
	l.ord.Remove(back)
	delete(l.idx, k)
	if l.onEvict != nil {
		l.onEvict(k, v)
	}
}
