// Package sharded implements the hash-partitioned wrappers ShardedLRU and
// ShardedLFU: an array of independent policy instances, each owning a
// disjoint slice of the key space, with no cross-shard coordination.
// Sharding exists purely to reduce lock contention — it changes nothing
// about either policy's eviction semantics within a shard.
package sharded

import (
	"github.com/IvanBrykalov/cachekit/internal/util"
	"github.com/IvanBrykalov/cachekit/lfu"
	"github.com/IvanBrykalov/cachekit/lru"
	"github.com/IvanBrykalov/cachekit/policy"
)

// shardStats holds per-shard hit/miss counters on their own cache line,
// so that concurrent updates from different shards never false-share.
type shardStats struct {
	_      util.CacheLinePad
	hits   util.PaddedAtomicInt64
	misses util.PaddedAtomicInt64
}

// ShardedLRU partitions a key space across N independent LRU instances.
type ShardedLRU[K comparable, V any] struct {
	shards []*lru.LRU[K, V]
	stats  []shardStats
	hash   func(K) uint64
}

// NewLRU constructs a sharded LRU: totalCapacity is split evenly (ceil)
// across shardCount independent LRU instances. shardCount <= 0 falls
// back to ReasonableShardCount (a CPU-parallelism heuristic, floor 1).
func NewLRU[K comparable, V any](totalCapacity, shardCount int) *ShardedLRU[K, V] {
	n := normalizeShardCount(shardCount)
	perShard := ceilDiv(totalCapacity, n)

	s := &ShardedLRU[K, V]{
		shards: make([]*lru.LRU[K, V], n),
		stats:  make([]shardStats, n),
		hash:   util.Fnv64a[K],
	}
	for i := range s.shards {
		s.shards[i] = lru.New[K, V](perShard)
	}
	return s
}

func (s *ShardedLRU[K, V]) shardFor(k K) (int, *lru.LRU[K, V]) {
	idx := util.ShardIndex(s.hash(k), len(s.shards))
	return idx, s.shards[idx]
}

// Get forwards to the shard k hashes to.
func (s *ShardedLRU[K, V]) Get(k K) (V, bool) {
	idx, shard := s.shardFor(k)
	v, ok := shard.Get(k)
	if ok {
		s.stats[idx].hits.Add(1)
	} else {
		s.stats[idx].misses.Add(1)
	}
	return v, ok
}

// GetOrZero returns the value on a hit, or the zero value of V on a miss.
func (s *ShardedLRU[K, V]) GetOrZero(k K) V {
	v, _ := s.Get(k)
	return v
}

// Put forwards to the shard k hashes to.
func (s *ShardedLRU[K, V]) Put(k K, v V) {
	_, shard := s.shardFor(k)
	shard.Put(k, v)
}

// Remove forwards to the shard k hashes to.
func (s *ShardedLRU[K, V]) Remove(k K) bool {
	_, shard := s.shardFor(k)
	return shard.Remove(k)
}

// Len returns the total number of resident entries across all shards.
func (s *ShardedLRU[K, V]) Len() int {
	total := 0
	for _, shard := range s.shards {
		total += shard.Len()
	}
	return total
}

// Stats returns the aggregate hit/miss counters across all shards.
func (s *ShardedLRU[K, V]) Stats() (hits, misses int64) {
	for i := range s.stats {
		hits += s.stats[i].hits.Load()
		misses += s.stats[i].misses.Load()
	}
	return hits, misses
}

// ShardCount returns the number of independent shard instances.
func (s *ShardedLRU[K, V]) ShardCount() int { return len(s.shards) }

// ShardedLFU partitions a key space across N independent LFU instances.
type ShardedLFU[K comparable, V any] struct {
	shards []*lfu.LFU[K, V]
	stats  []shardStats
	hash   func(K) uint64
}

// NewLFU constructs a sharded LFU: totalCapacity is split evenly (ceil)
// across shardCount independent LFU instances, each governed by the same
// maxAverage ceiling. shardCount <= 0 falls back to ReasonableShardCount.
func NewLFU[K comparable, V any](totalCapacity, shardCount, maxAverage int) *ShardedLFU[K, V] {
	n := normalizeShardCount(shardCount)
	perShard := ceilDiv(totalCapacity, n)

	s := &ShardedLFU[K, V]{
		shards: make([]*lfu.LFU[K, V], n),
		stats:  make([]shardStats, n),
		hash:   util.Fnv64a[K],
	}
	for i := range s.shards {
		s.shards[i] = lfu.New[K, V](perShard, maxAverage)
	}
	return s
}

func (s *ShardedLFU[K, V]) shardFor(k K) (int, *lfu.LFU[K, V]) {
	idx := util.ShardIndex(s.hash(k), len(s.shards))
	return idx, s.shards[idx]
}

// Get forwards to the shard k hashes to.
func (s *ShardedLFU[K, V]) Get(k K) (V, bool) {
	idx, shard := s.shardFor(k)
	v, ok := shard.Get(k)
	if ok {
		s.stats[idx].hits.Add(1)
	} else {
		s.stats[idx].misses.Add(1)
	}
	return v, ok
}

// GetOrZero returns the value on a hit, or the zero value of V on a miss.
func (s *ShardedLFU[K, V]) GetOrZero(k K) V {
	v, _ := s.Get(k)
	return v
}

// Put forwards to the shard k hashes to.
func (s *ShardedLFU[K, V]) Put(k K, v V) {
	_, shard := s.shardFor(k)
	shard.Put(k, v)
}

// Remove forwards to the shard k hashes to.
func (s *ShardedLFU[K, V]) Remove(k K) bool {
	_, shard := s.shardFor(k)
	return shard.Remove(k)
}

// Len returns the total number of resident entries across all shards.
func (s *ShardedLFU[K, V]) Len() int {
	total := 0
	for _, shard := range s.shards {
		total += shard.Len()
	}
	return total
}

// Stats returns the aggregate hit/miss counters across all shards.
func (s *ShardedLFU[K, V]) Stats() (hits, misses int64) {
	for i := range s.stats {
		hits += s.stats[i].hits.Load()
		misses += s.stats[i].misses.Load()
	}
	return hits, misses
}

// ShardCount returns the number of independent shard instances.
func (s *ShardedLFU[K, V]) ShardCount() int { return len(s.shards) }

// normalizeShardCount applies the default fallback: shardCount <= 0
// defaults to the platform's concurrency hint, with a floor of 1.
func normalizeShardCount(shardCount int) int {
	if shardCount <= 0 {
		return util.ReasonableShardCount()
	}
	return shardCount
}

func ceilDiv(total, n int) int {
	if n <= 0 {
		n = 1
	}
	if total <= 0 {
		return 0
	}
	return (total + n - 1) / n
}

var (
	_ policy.Policy[int, int] = (*ShardedLRU[int, int])(nil)
	_ policy.Policy[int, int] = (*ShardedLFU[int, int])(nil)
	_ policy.Remover[int]     = (*ShardedLRU[int, int])(nil)
	_ policy.Remover[int]     = (*ShardedLFU[int, int])(nil)
)
