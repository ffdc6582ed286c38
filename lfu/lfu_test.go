package lfu

import (
	"strconv"
	"strings"
	"testing"

	"golang.org/x/sync/errgroup"
)

// Basic Get/Put/Remove semantics.
func TestLFU_BasicGetPutRemove(t *testing.T) {
	t.Parallel()

	l := New[string, int](8, 8)
	l.Put("a", 1)
	if v, ok := l.Get("a"); !ok || v != 1 {
		t.Fatalf("Get a want 1, got %v ok=%v", v, ok)
	}
	if !l.Remove("a") {
		t.Fatal("Remove a must be true")
	}
	if _, ok := l.Get("a"); ok {
		t.Fatal("a must be absent after Remove")
	}
}

// The entry with the lowest access frequency is evicted first.
func TestLFU_EvictsLowestFrequency(t *testing.T) {
	t.Parallel()

	l := New[string, int](2, 8)
	l.Put("a", 1)
	l.Put("b", 2)
	l.Get("a") // a: freq 2, b: freq 1

	l.Put("c", 3) // evicts b, the lowest-frequency entry
	if _, ok := l.Get("b"); ok {
		t.Fatal("b must be evicted")
	}
	if v, ok := l.Get("a"); !ok || v != 1 {
		t.Fatal("a must survive")
	}
	if v, ok := l.Get("c"); !ok || v != 3 {
		t.Fatal("c must be present")
	}
}

// Among entries tied on frequency, the oldest (FIFO within the bucket) is
// evicted first.
func TestLFU_TiesBrokenByInsertionOrder(t *testing.T) {
	t.Parallel()

	l := New[string, int](2, 8)
	l.Put("a", 1) // both at freq 1
	l.Put("b", 2)

	l.Put("c", 3) // evicts a, the older of the two freq-1 entries
	if _, ok := l.Get("a"); ok {
		t.Fatal("a must be evicted")
	}
	if _, ok := l.Get("b"); !ok {
		t.Fatal("b must survive")
	}
}

// A capacity-0 LFU accepts Put as a permanent no-op and always misses.
func TestLFU_ZeroCapacity(t *testing.T) {
	t.Parallel()

	l := New[string, int](0, 8)
	l.Put("a", 1)
	if _, ok := l.Get("a"); ok {
		t.Fatal("zero-capacity LFU must never hit")
	}
}

// Repeatedly accessing the same key past the average-frequency ceiling
// triggers decay, which must not destroy the entry or corrupt minFreq:
// a cold entry inserted afterward must still be the first eviction
// candidate when capacity pressure returns.
func TestLFU_DecayPreservesRelativeColdness(t *testing.T) {
	t.Parallel()

	l := New[string, int](3, 4) // maxAverage=4
	l.Put("hot", 1)
	for i := 0; i < 40; i++ {
		l.Get("hot") // drives totalFreq/avgFreq well past maxAverage, forcing decay
	}

	l.Put("warm", 2)
	l.Get("warm")    // warm: freq 2
	l.Put("cold", 3) // freshly inserted, freq=1 — the global minimum

	if _, ok := l.Get("hot"); !ok {
		t.Fatal("hot must survive decay")
	}

	l.Put("overflow", 4) // forces one eviction; must take the coldest entry
	if _, ok := l.Get("cold"); ok {
		t.Fatal("cold (freq=1) must be evicted ahead of warm or hot")
	}
	if _, ok := l.Get("warm"); !ok {
		t.Fatal("warm must survive")
	}
	if _, ok := l.Get("hot"); !ok {
		t.Fatal("hot must survive")
	}
}

func TestLFU_Race(t *testing.T) {
	l := New[string, int](256, 8)

	const goroutines = 32
	var g errgroup.Group
	for i := 0; i < goroutines; i++ {
		i := i
		g.Go(func() error {
			for j := 0; j < 2000; j++ {
				k := "k:" + strconv.Itoa((i*2000+j)%500)
				switch j % 3 {
				case 0:
					l.Put(k, j)
				case 1:
					l.Get(k)
				default:
					l.Remove(k)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}

func FuzzLFU_PutGetRemove(f *testing.F) {
	f.Add("", "")
	f.Add("a", "1")
	f.Add("long", strings.Repeat("x", 1024))

	f.Fuzz(func(t *testing.T, k, v string) {
		const limit = 1 << 12
		if len(k) > limit {
			k = k[:limit]
		}
		if len(v) > limit {
			v = v[:limit]
		}

		l := New[string, string](16, 8)
		l.Put(k, v)
		got, ok := l.Get(k)
		if !ok || got != v {
			t.Fatalf("after Put/Get: want %q, got %q ok=%v", v, got, ok)
		}
		if !l.Remove(k) {
			t.Fatalf("Remove must return true")
		}
		if _, ok := l.Get(k); ok {
			t.Fatalf("key must be absent after Remove")
		}
	})
}

func BenchmarkLFU_ParallelGetPut(b *testing.B) {
	l := New[int, int](4096, 8)
	for i := 0; i < 4096; i++ {
		l.Put(i, i)
	}

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			k := i % 8192
			if i%5 == 0 {
				l.Put(k, i)
			} else {
				l.Get(k)
			}
			i++
		}
	})
}
