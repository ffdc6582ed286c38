package lruk

import (
	"strconv"
	"testing"

	"golang.org/x/sync/errgroup"
)

// A key must be observed k times before it is promoted into main; fewer
// observations never produce a hit.
func TestLRUK_PromotionGate(t *testing.T) {
	t.Parallel()

	l := New[string, int](4, 8, 5)

	l.Put("a", 1)                // observation 1
	if _, ok := l.Get("a"); ok { // observation 2 (a missed Get counts too)
		t.Fatal("must miss before k observations")
	}
	l.Put("a", 1)                // observation 3
	if _, ok := l.Get("a"); ok { // observation 4 = k-1
		t.Fatal("must still miss at k-1 observations")
	}
	l.Put("a", 1) // observation 5: reaches k, promotes
	if v, ok := l.Get("a"); !ok || v != 1 {
		t.Fatalf("must hit after k observations, got %v ok=%v", v, ok)
	}
}

// Once resident in main, a key behaves like plain LRU: a further Put
// overwrites directly without touching the history/pending bookkeeping.
func TestLRUK_MainOverwriteBypassesHistory(t *testing.T) {
	t.Parallel()

	l := New[string, int](4, 8, 1) // k=1: promote on first observation
	l.Put("a", 1)
	if v, ok := l.Get("a"); !ok || v != 1 {
		t.Fatalf("want hit 1, got %v ok=%v", v, ok)
	}
	l.Put("a", 2)
	if v, ok := l.Get("a"); !ok || v != 2 {
		t.Fatalf("want hit 2 after overwrite, got %v ok=%v", v, ok)
	}
	if l.Len() != 1 {
		t.Fatalf("Len() want 1, got %d", l.Len())
	}
}

// When the history cache evicts a key under its own capacity pressure,
// the matching pending value must be dropped too, so a subsequent
// observation starts the promotion count over from scratch.
func TestLRUK_HistoryEvictionClearsPending(t *testing.T) {
	t.Parallel()

	l := New[string, int](8, 2, 2) // history capacity 2, k=2

	l.Put("a", 1) // a: count=1, pending
	l.Put("b", 1) // b: count=1, pending
	l.Put("c", 1) // c: count=1, pending; history at cap 2 evicts "a" (LRU of history)

	l.Get("a") // a re-observed: history has no memory of it, starts at count=1
	// Second observation reaches k, but no pending value is left to promote.
	if _, ok := l.Get("a"); ok {
		t.Fatal("a must not be promoted after its pending value was cleared")
	}
}

// Remove deletes a key from every internal structure.
func TestLRUK_Remove(t *testing.T) {
	t.Parallel()

	l := New[string, int](4, 8, 1)
	l.Put("a", 1)
	if !l.Remove("a") {
		t.Fatal("Remove must report true for a resident key")
	}
	if _, ok := l.Get("a"); ok {
		t.Fatal("a must be absent after Remove")
	}
}

func TestLRUK_Race(t *testing.T) {
	l := New[string, int](256, 256, 2)

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

func BenchmarkLRUK_ParallelGetPut(b *testing.B) {
	l := New[int, int](2048, 2048, 2)
	for i := 0; i < 2048; i++ {
		l.Put(i, i)
		l.Put(i, i) // promote into main so the benchmark exercises steady state
	}

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			k := i % 4096
			if i%5 == 0 {
				l.Put(k, i)
			} else {
				l.Get(k)
			}
			i++
		}
	})
}
