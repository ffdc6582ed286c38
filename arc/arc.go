// Package arc implements the Adaptive Replacement Cache: two coupled
// sub-caches — a recency half and a frequency half, each owning its own
// ghost list — whose capacities adapt based on ghost hits.
package arc

import "github.com/IvanBrykalov/cachekit/policy"

// ARC is a fixed-initial-capacity cache that adapts the balance between
// recency and frequency based on which half's ghost list absorbs hits.
//
// The coordinator performs no locking of its own: it serially delegates
// to lruPart and lfuPart, each of which locks itself, and the two
// halves' locks are never held simultaneously.
type ARC[K comparable, V any] struct {
	lruPart *lruPart[K, V]
	lfuPart *lfuPart[K, V]

	metrics policy.Metrics
}

// Option configures ambient behavior.
type Option[K comparable, V any] func(*ARC[K, V])

// WithMetrics wires an observability sink.
func WithMetrics[K comparable, V any](m policy.Metrics) Option[K, V] {
	return func(a *ARC[K, V]) { a.metrics = m }
}

// New constructs an ARC cache: both halves start at capacity, and
// transformThreshold is the LRU-half access count at which a hit signals
// promotion into the LFU half. capacity < 0 is normalized to 0;
// transformThreshold < 1 is normalized to 1 (promote on first re-access).
func New[K comparable, V any](capacity, transformThreshold int, opts ...Option[K, V]) *ARC[K, V] {
	if capacity < 0 {
		capacity = 0
	}
	if transformThreshold < 1 {
		transformThreshold = 1
	}
	a := &ARC[K, V]{
		lruPart: newLRUPart[K, V](capacity, transformThreshold),
		lfuPart: newLFUPart[K, V](capacity),
		metrics: policy.NoopMetrics{},
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = policy.NoopMetrics{}
	}
	return a
}

// Put inserts or overwrites k→v. checkGhosts runs first (may reallocate
// capacity between the halves); the LFU half's pre-update membership is
// observed before lruPart.put, and only re-written in lfuPart if it was
// already resident there.
func (a *ARC[K, V]) Put(k K, v V) {
	a.checkGhosts(k)
	inLFU := a.lfuPart.contain(k)
	a.lruPart.put(k, v)
	if inLFU {
		a.lfuPart.put(k, v)
	}
}

// Get returns the value for k and whether it was resident in either
// half. A hit in the LRU half that crosses the promotion threshold also
// writes the entry into the LFU half.
func (a *ARC[K, V]) Get(k K) (V, bool) {
	a.checkGhosts(k)

	if v, ok, shouldPromote := a.lruPart.get(k); ok {
		if shouldPromote {
			a.lfuPart.put(k, v)
		}
		a.metrics.Hit()
		return v, true
	}
	v, ok := a.lfuPart.get(k)
	if ok {
		a.metrics.Hit()
	} else {
		a.metrics.Miss()
	}
	return v, ok
}

// GetOrZero returns the value on a hit, or the zero value of V on a miss.
func (a *ARC[K, V]) GetOrZero(k K) V {
	v, _ := a.Get(k)
	return v
}

// Remove deletes k from both halves' main caches (not their ghosts) and
// reports whether it was resident in either.
func (a *ARC[K, V]) Remove(k K) bool {
	removedLRU := a.lruPart.remove(k)
	removedLFU := a.lfuPart.remove(k)
	return removedLRU || removedLFU
}

// Len returns the combined number of entries resident across both
// halves' main caches.
func (a *ARC[K, V]) Len() int {
	return a.lruPart.len() + a.lfuPart.len()
}

// checkGhosts implements the ghost-hit adaptation protocol: a hit in one
// half's ghost list shifts one unit of capacity from the other half to
// this one, provided the other half can give one up. The sum of the two
// halves' capacities is therefore not invariant.
func (a *ARC[K, V]) checkGhosts(k K) {
	if a.lruPart.checkGhost(k) {
		if a.lfuPart.decreaseCapacity() {
			a.lruPart.increaseCapacity()
		}
		return
	}
	if a.lfuPart.checkGhost(k) {
		if a.lruPart.decreaseCapacity() {
			a.lfuPart.increaseCapacity()
		}
	}
}

var (
	_ policy.Policy[int, int] = (*ARC[int, int])(nil)
)
