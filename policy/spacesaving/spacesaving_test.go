package spacesaving

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/IvanBrykalov/hotkeys/internal/policytest"
	"github.com/IvanBrykalov/hotkeys/policy"
)

// access mimics the tracker's lookup-then-dispatch sequence.
func access(h *policytest.Hooks, p policy.ShardPolicy, key string) policy.Handle {
	p.Observe([]byte(key))
	if n, ok := h.Lookup(key); ok {
		p.OnHit(n)
		return n
	}
	n, err := p.OnMiss([]byte(key))
	if err != nil {
		panic(err)
	}
	return n
}

// capacity=2: a, b, then c substitutes a minimum and inherits its count.
func TestSpaceSaving_Substitution(t *testing.T) {
	t.Parallel()

	h := policytest.New(2)
	p := New().New(h)

	access(h, p, "a")
	access(h, p, "b")
	c := access(h, p, "c")

	if len(h.Evicted) != 1 || h.Evicted[0].Reason != policy.EvictReplace {
		t.Fatalf("expected one replacement, got %+v", h.Evicted)
	}
	if ev := h.Evicted[0].Key; ev != "a" && ev != "b" {
		t.Fatalf("victim must be a or b, got %q", ev)
	}
	if h.Counter(c) != 2 || h.Error(c) != 1 {
		t.Fatalf("c want counter=2 error=1, got counter=%d error=%d", h.Counter(c), h.Error(c))
	}
	if h.Back() != c {
		t.Fatalf("c must sit at the tail (highest counter)")
	}
}

// Hits keep the list ascending.
func TestSpaceSaving_HitRepositions(t *testing.T) {
	t.Parallel()

	h := policytest.New(3)
	p := New().New(h)

	a := access(h, p, "a")
	access(h, p, "b")
	access(h, p, "a")
	access(h, p, "a")

	if h.Back() != a || h.Counter(a) != 3 {
		t.Fatalf("a must be tail with counter 3, got counter=%d", h.Counter(a))
	}
	if !h.Sorted() {
		t.Fatalf("list must stay ascending: %v", h.Counters())
	}
	if h.Repositions != 2 {
		t.Fatalf("want 2 repositions, got %d", h.Repositions)
	}
}

// For every tracked key: true <= counter <= true + error.
func TestSpaceSaving_ErrorBound(t *testing.T) {
	t.Parallel()

	h := policytest.New(8)
	p := New().New(h)
	r := rand.New(rand.NewSource(42))
	zipf := rand.NewZipf(r, 1.2, 1, 63)
	truth := map[string]uint64{}

	for i := 0; i < 5_000; i++ {
		k := "k" + strconv.FormatUint(zipf.Uint64(), 10)
		truth[k]++
		access(h, p, k)
		if h.Len() > h.Capacity() {
			t.Fatalf("len %d exceeds capacity", h.Len())
		}
	}
	if !h.Sorted() {
		t.Fatal("list must stay ascending")
	}
	for _, k := range h.Keys() {
		n, _ := h.Lookup(k)
		c, e := h.Counter(n), h.Error(n)
		if c < truth[k] || c > truth[k]+e {
			t.Fatalf("%s: counter=%d error=%d true=%d", k, c, e, truth[k])
		}
	}
}

// A failed allocation at capacity must not evict the minimum.
func TestSpaceSaving_OutOfMemoryKeepsVictim(t *testing.T) {
	t.Parallel()

	h := policytest.New(1)
	p := New().New(h)
	access(h, p, "a")

	h.FailCreate = true
	if _, err := p.OnMiss([]byte("b")); err != policy.ErrOutOfMemory {
		t.Fatalf("want ErrOutOfMemory, got %v", err)
	}
	if len(h.Evicted) != 0 || h.Len() != 1 {
		t.Fatalf("victim must survive, evicted=%v", h.Evicted)
	}
}
