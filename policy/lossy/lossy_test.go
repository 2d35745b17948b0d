package lossy

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/IvanBrykalov/hotkeys/internal/policytest"
	"github.com/IvanBrykalov/hotkeys/policy"
)

func access(h *policytest.Hooks, p policy.ShardPolicy, key string) (policy.Handle, bool) {
	p.Observe([]byte(key))
	if n, ok := h.Lookup(key); ok {
		p.OnHit(n)
		return n, true
	}
	n, err := p.OnMiss([]byte(key))
	if err != nil {
		panic(err)
	}
	return n, n != policy.Nil
}

// A new key starts at delta+1 and counts up on hits.
func TestLossy_NewKeyStartsAboveDelta(t *testing.T) {
	t.Parallel()

	h := policytest.New(4)
	p := New().New(h).(*lossy)

	a, ok := access(h, p, "a")
	if !ok || h.Counter(a) != 1 {
		t.Fatalf("a want counter 1, got %d", h.Counter(a))
	}
	access(h, p, "a")
	if h.Counter(a) != 2 {
		t.Fatalf("a want counter 2 after hit, got %d", h.Counter(a))
	}
	if p.Delta() != 0 {
		t.Fatalf("delta must stay 0 before n reaches capacity, got %d", p.Delta())
	}
}

// When n/capacity reaches a new integer the prefix below delta is swept;
// counters equal to delta survive.
func TestLossy_SweepStrictlyBelowDelta(t *testing.T) {
	t.Parallel()

	h := policytest.New(2)
	p := New().New(h).(*lossy)

	// n=1: a=1. n=2: a=2, bucket 1 -> delta=1; a is above delta.
	access(h, p, "a")
	access(h, p, "a")
	if p.Delta() != 1 {
		t.Fatalf("delta want 1, got %d", p.Delta())
	}
	if h.Len() != 1 || len(h.Evicted) != 0 {
		t.Fatalf("a must survive the sweep, evicted=%v", h.Evicted)
	}

	// n=3: b enters at delta+1=2. n=4: b=3, delta=2; a (2 == delta) survives.
	access(h, p, "b")
	access(h, p, "b")
	if p.Delta() != 2 || h.Len() != 2 {
		t.Fatalf("delta=2 len=2 expected, got delta=%d len=%d", p.Delta(), h.Len())
	}
	// n=5: a=3. n=6: b=4, delta=3; a (3 == delta) survives again.
	access(h, p, "a")
	access(h, p, "b")
	if p.Delta() != 3 {
		t.Fatalf("delta want 3, got %d", p.Delta())
	}
	if n, ok := h.Lookup("a"); !ok || h.Counter(n) != p.Delta() {
		t.Fatal("a with counter == delta must survive the sweep")
	}
	for _, ev := range h.Evicted {
		if ev.Reason == policy.EvictThreshold && ev.Counter >= p.Delta() {
			t.Fatalf("swept %q with counter %d >= delta", ev.Key, ev.Counter)
		}
	}
}

// Overflow evicts the minimum and raises delta to its counter.
func TestLossy_OverflowRaisesDelta(t *testing.T) {
	t.Parallel()

	h := policytest.New(2)
	p := New().New(h).(*lossy)

	access(h, p, "a") // n=1 a=1
	access(h, p, "b") // n=2 b=1, delta=1
	access(h, p, "b") // n=3 b=2
	// n=4 -> delta=2 sweeps a(1); c enters at 2.
	access(h, p, "c")
	if _, ok := h.Lookup("a"); ok {
		t.Fatal("a must be swept below delta")
	}
	// x enters at delta+1 = 3 and overflows: the head (counter 2) goes.
	if _, ok := access(h, p, "x"); !ok {
		t.Fatal("x must be tracked")
	}
	if h.Len() > h.Capacity() {
		t.Fatalf("len %d exceeds capacity", h.Len())
	}
	last := h.Evicted[len(h.Evicted)-1]
	if last.Reason != policy.EvictCapacity || last.Counter != 2 || p.Delta() != 2 {
		t.Fatalf("want capacity eviction of a counter-2 item with delta 2, got %+v delta=%d", last, p.Delta())
	}
	if !h.Sorted() {
		t.Fatal("list must stay ascending")
	}
}

// For every tracked key: true <= counter <= true + delta.
func TestLossy_ErrorBound(t *testing.T) {
	t.Parallel()

	h := policytest.New(16)
	p := New().New(h).(*lossy)
	r := rand.New(rand.NewSource(7))
	zipf := rand.NewZipf(r, 1.1, 1, 255)
	truth := map[string]uint64{}

	for i := 0; i < 20_000; i++ {
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
	for k, c := range h.Counters() {
		if c < truth[k] || c > truth[k]+p.Delta() {
			t.Fatalf("%s: counter=%d true=%d delta=%d", k, c, truth[k], p.Delta())
		}
	}
}
