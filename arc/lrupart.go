package arc

import (
	"sync"

	"github.com/IvanBrykalov/cachekit/internal/dlist"
)

type lruEntry[K comparable, V any] struct {
	key    K
	val    V
	access int
}

// lruPart is the recency half of ARC: a plain LRU main cache whose every
// eviction demotes the key into a fixed-capacity ghost list.
type lruPart[K comparable, V any] struct {
	mu sync.Mutex

	cap       int
	ghostCap  int // fixed at construction time; never adapted
	threshold int // transformThreshold: access count at which a hit signals promotion

	idx      map[K]*dlist.Elem[lruEntry[K, V]]
	main     *dlist.List[lruEntry[K, V]]
	ghostIdx map[K]*dlist.Elem[K]
	ghost    *dlist.List[K]
}

func newLRUPart[K comparable, V any](capacity, threshold int) *lruPart[K, V] {
	return &lruPart[K, V]{
		cap:       capacity,
		ghostCap:  capacity,
		threshold: threshold,
		idx:       make(map[K]*dlist.Elem[lruEntry[K, V]]),
		main:      dlist.New[lruEntry[K, V]](),
		ghostIdx:  make(map[K]*dlist.Elem[K]),
		ghost:     dlist.New[K](),
	}
}

// put inserts or overwrites k→v in the main list, evicting the LRU entry
// into the ghost list first if the cache is at capacity. Reports false
// only when capacity is 0 (permanent no-op).
func (p *lruPart[K, V]) put(k K, v V) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cap == 0 {
		return false
	}
	if e, ok := p.idx[k]; ok {
		e.Value.val = v
		p.main.MoveToFront(e)
		return true
	}
	if p.main.Len() >= p.cap {
		p.evictLocked()
	}
	e := &dlist.Elem[lruEntry[K, V]]{Value: lruEntry[K, V]{key: k, val: v, access: 1}}
	p.main.PushFront(e)
	p.idx[k] = e
	return true
}

// get reports whether k is resident, its value, and whether this hit's
// access count has reached the promotion threshold (shouldPromote).
func (p *lruPart[K, V]) get(k K) (v V, ok bool, shouldPromote bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.idx[k]
	if !ok {
		return v, false, false
	}
	e.Value.access++
	p.main.MoveToFront(e)
	return e.Value.val, true, e.Value.access >= p.threshold
}

// contain is a pure lookup with no access-count change.
func (p *lruPart[K, V]) contain(k K) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.idx[k]
	return ok
}

// checkGhost reports whether k is in the ghost list, removing it as a
// side effect if so.
func (p *lruPart[K, V]) checkGhost(k K) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	ge, ok := p.ghostIdx[k]
	if !ok {
		return false
	}
	p.ghost.Remove(ge)
	delete(p.ghostIdx, k)
	return true
}

// remove deletes k from the main list (not the ghost list) and reports
// whether it was resident.
func (p *lruPart[K, V]) remove(k K) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.idx[k]
	if !ok {
		return false
	}
	p.main.Remove(e)
	delete(p.idx, k)
	return true
}

// increaseCapacity always succeeds.
func (p *lruPart[K, V]) increaseCapacity() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cap++
}

// decreaseCapacity evicts one entry into the ghost list if main is
// already at capacity, then decrements. Fails only if capacity is
// already 0.
func (p *lruPart[K, V]) decreaseCapacity() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cap <= 0 {
		return false
	}
	if p.main.Len() >= p.cap {
		p.evictLocked()
	}
	p.cap--
	return true
}

func (p *lruPart[K, V]) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.main.Len()
}

// evictLocked drops the main LRU-end entry into the ghost list, dropping
// the oldest ghost first if the (fixed-size) ghost list is full. Callers
// must hold mu.
func (p *lruPart[K, V]) evictLocked() {
	back := p.main.Back()
	if back == nil {
		return
	}
	k := back.Value.key
	p.main.Remove(back)
	delete(p.idx, k)
	p.addGhostLocked(k)
}

func (p *lruPart[K, V]) addGhostLocked(k K) {
	if ge, ok := p.ghostIdx[k]; ok {
		p.ghost.Remove(ge)
	}
	ge := &dlist.Elem[K]{Value: k}
	p.ghost.PushFront(ge)
	p.ghostIdx[k] = ge

	for p.ghost.Len() > p.ghostCap {
		tail := p.ghost.Back()
		if tail == nil {
			break
		}
		delete(p.ghostIdx, tail.Value)
		p.ghost.Remove(tail)
	}
}
