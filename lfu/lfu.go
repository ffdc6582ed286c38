// Package lfu implements a Least-Frequently-Used replacement policy with
// per-frequency buckets and an average-frequency decay governor.
package lfu

import (
	"container/list"
	"math"
	"sync"

	"github.com/IvanBrykalov/cachekit/policy"
)

type entry[K comparable, V any] struct {
	key  K
	val  V
	freq int
}

// LFU is a fixed-capacity, frequency-ordered cache. The zero value is not
// usable; construct with New.
type LFU[K comparable, V any] struct {
	mu sync.Mutex

	cap        int
	maxAverage int // soft ceiling on totalFreq/size; always >= 1 (see New)

	idx     map[K]*list.Element // element.Value is *entry[K,V]
	buckets map[int]*list.List  // freq -> ordered list of *entry, front = oldest in that bucket
	minFreq int

	totalFreq int

	metrics policy.Metrics
}

// Option configures ambient behavior.
type Option[K comparable, V any] func(*LFU[K, V])

// WithMetrics wires an observability sink; Hit/Miss are reported on every
// Get, and Size whenever Put inserts or Remove deletes an entry.
func WithMetrics[K comparable, V any](m policy.Metrics) Option[K, V] {
	return func(l *LFU[K, V]) { l.metrics = m }
}

// New constructs an LFU cache of the given capacity with maxAverage as the
// soft ceiling on the running average access frequency. capacity < 0 is
// normalized to 0; maxAverage < 1 is normalized to 1.
func New[K comparable, V any](capacity, maxAverage int, opts ...Option[K, V]) *LFU[K, V] {
	if capacity < 0 {
		capacity = 0
	}
	if maxAverage < 1 {
		maxAverage = 1
	}
	l := &LFU[K, V]{
		cap:        capacity,
		maxAverage: maxAverage,
		idx:        make(map[K]*list.Element, capacity),
		buckets:    make(map[int]*list.List),
		minFreq:    math.MaxInt,
		metrics:    policy.NoopMetrics{},
	}
	for _, o := range opts {
		o(l)
	}
	if l.metrics == nil {
		l.metrics = policy.NoopMetrics{}
	}
	return l
}

// Get returns the value for k and whether it was resident, bumping k's
// access frequency and possibly triggering decay on a hit.
func (l *LFU[K, V]) Get(k K) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	el, ok := l.idx[k]
	if !ok {
		l.metrics.Miss()
		var zero V
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	l.touch(el, e)
	l.metrics.Hit()
	return e.val, true
}

// GetOrZero returns the value on a hit, or the zero value of V on a miss.
func (l *LFU[K, V]) GetOrZero(k K) V {
	v, _ := l.Get(k)
	return v
}

// Put inserts or overwrites k→v. An overwrite counts as an access (bumps
// frequency); a new insertion starts at frequency 1, evicting the
// minFreq-bucket front entry first if the cache is already full.
// A capacity of 0 makes Put a permanent no-op.
func (l *LFU[K, V]) Put(k K, v V) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cap == 0 {
		return
	}
	if el, ok := l.idx[k]; ok {
		e := el.Value.(*entry[K, V])
		e.val = v
		l.touch(el, e)
		return
	}
	if len(l.idx) >= l.cap {
		l.evictLocked()
	}
	e := &entry[K, V]{key: k, val: v, freq: 1}
	bucket := l.bucketFor(1)
	el := bucket.PushBack(e)
	l.idx[k] = el
	l.minFreq = 1
	l.totalFreq++
	l.metrics.Size(len(l.idx))
}

// Remove deletes k if present and reports whether it was.
func (l *LFU[K, V]) Remove(k K) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	el, ok := l.idx[k]
	if !ok {
		return false
	}
	e := el.Value.(*entry[K, V])
	if emptied := l.unlinkFromBucket(el, e.freq); emptied && e.freq == l.minFreq {
		l.updateMinFreqLocked()
	}
	l.totalFreq -= e.freq
	delete(l.idx, k)
	l.metrics.Size(len(l.idx))
	return true
}

// Len returns the number of resident entries.
func (l *LFU[K, V]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.idx)
}

// avgFreq is always recomputed on demand; it is never cached, so it is
// always consistent with totalFreq and the current entry count.
func (l *LFU[K, V]) avgFreq() int {
	if len(l.idx) == 0 {
		return 0
	}
	return l.totalFreq / len(l.idx)
}

// touch moves e to its next frequency bucket, capped at 2*maxAverage, and
// runs decay if the new average exceeds maxAverage.
func (l *LFU[K, V]) touch(el *list.Element, e *entry[K, V]) {
	oldFreq := e.freq
	emptiedOld := l.unlinkFromBucket(el, oldFreq)

	newFreq := oldFreq + 1
	if cap := 2 * l.maxAverage; newFreq > cap {
		newFreq = cap
	}
	e.freq = newFreq
	l.totalFreq += newFreq - oldFreq

	bucket := l.bucketFor(newFreq)
	l.idx[e.key] = bucket.PushBack(e)

	// The new bucket now exists, so minFreq can only need to move down (the
	// entry's own new bucket) or be rescanned (its old bucket just emptied).
	// Rescanning before the PushBack above would miss the bucket newFreq
	// just landed in.
	if newFreq < l.minFreq {
		l.minFreq = newFreq
	} else if emptiedOld && oldFreq == l.minFreq {
		l.updateMinFreqLocked()
	}

	if l.avgFreq() > l.maxAverage {
		l.decayLocked()
	}
}

// bucketFor returns (creating if absent) the list for the given frequency.
func (l *LFU[K, V]) bucketFor(freq int) *list.List {
	b, ok := l.buckets[freq]
	if !ok {
		b = list.New()
		l.buckets[freq] = b
	}
	return b
}

// unlinkFromBucket removes el from bucket freq, dropping the bucket if it
// becomes empty, and reports whether that happened. It does not touch
// minFreq itself: callers that relink el elsewhere must wait until after
// the relink to decide whether minFreq needs rescanning, since the bucket
// el is about to join may not exist yet.
func (l *LFU[K, V]) unlinkFromBucket(el *list.Element, freq int) bool {
	b := l.buckets[freq]
	b.Remove(el)
	if b.Len() == 0 {
		delete(l.buckets, freq)
		return true
	}
	return false
}

// updateMinFreqLocked rescans the bucket map for the smallest non-empty
// key. Called only when the current minFreq bucket has just emptied.
func (l *LFU[K, V]) updateMinFreqLocked() {
	min := math.MaxInt
	for f := range l.buckets {
		if f < min {
			min = f
		}
	}
	if min == math.MaxInt {
		min = 1
	}
	l.minFreq = min
}

// evictLocked drops the front (oldest) entry of the minFreq bucket.
func (l *LFU[K, V]) evictLocked() {
	b, ok := l.buckets[l.minFreq]
	if !ok || b.Len() == 0 {
		return
	}
	front := b.Front()
	e := front.Value.(*entry[K, V])
	if emptied := l.unlinkFromBucket(front, l.minFreq); emptied {
		l.updateMinFreqLocked()
	}
	l.totalFreq -= e.freq
	delete(l.idx, e.key)
}

// decayLocked halves the frequency (minimum 1) of every resident entry
// whose frequency exceeds maxAverage/2, then recomputes minFreq by
// rescanning the bucket map. Entries at or below the threshold are left
// untouched. This is the mechanism that prevents long-lived hot entries
// from becoming immortal.
func (l *LFU[K, V]) decayLocked() {
	threshold := l.maxAverage / 2

	type move struct {
		e       *entry[K, V]
		oldFreq int
	}
	var moves []move
	for freq, b := range l.buckets {
		if freq <= threshold {
			continue
		}
		for el := b.Front(); el != nil; {
			next := el.Next()
			e := el.Value.(*entry[K, V])
			b.Remove(el)
			moves = append(moves, move{e: e, oldFreq: freq})
			el = next
		}
		if b.Len() == 0 {
			delete(l.buckets, freq)
		}
	}

	for _, m := range moves {
		newFreq := m.oldFreq / 2
		if newFreq < 1 {
			newFreq = 1
		}
		l.totalFreq -= m.oldFreq - newFreq
		m.e.freq = newFreq
		bucket := l.bucketFor(newFreq)
		l.idx[m.e.key] = bucket.PushBack(m.e)
	}

	min := math.MaxInt
	for f, b := range l.buckets {
		if b.Len() > 0 && f < min {
			min = f
		}
	}
	if min == math.MaxInt {
		min = 1
	}
	l.minFreq = min
}
