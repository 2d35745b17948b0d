package topkeys

import (
	"math/rand"
	"runtime"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/hotkeys/policy"
)

// Concurrent accesses, updates and stats walks on every policy.
// Must pass under -race and leave the structure consistent.
func TestRace_AllKinds(t *testing.T) {
	for _, kind := range allKinds {
		for _, shards := range []int{1, 8} {
			t.Run(kind.String()+"/shards="+strconv.Itoa(shards), func(t *testing.T) {
				t.Parallel()

				tr, err := New(Options{
					Capacity: 256,
					Kind:     kind,
					Sketch:   SketchDims{Depth: 4, Width: 1024},
					Shards:   shards,
				})
				if err != nil {
					t.Fatal(err)
				}
				t.Cleanup(func() { _ = tr.Close() })

				var clock atomic.Uint32
				deadline := time.Now().Add(300 * time.Millisecond)
				var g errgroup.Group
				for w := 0; w < 2*runtime.GOMAXPROCS(0); w++ {
					seed := int64(w) * 9973
					g.Go(func() error {
						r := rand.New(rand.NewSource(seed))
						z := rand.NewZipf(r, 1.2, 1, 10_000)
						for time.Now().Before(deadline) {
							k := []byte("k:" + strconv.FormatUint(z.Uint64(), 10))
							now := RelTime(clock.Add(1) / 1000)
							var err error
							switch r.Intn(10) {
							case 0:
								_, _, err = tr.Update(k, now, CmdSet)
							case 1:
								err = tr.Stats(now, func(string, []byte) error { return nil })
							default:
								_, _, err = tr.Update(k, now, GetHits)
							}
							if err != nil {
								return err
							}
						}
						return nil
					})
				}
				if err := g.Wait(); err != nil {
					t.Fatal(err)
				}
				if n := tr.Len(); n > 256+8 {
					t.Fatalf("Len %d", n)
				}
				switch v := tr.(type) {
				case *tracker:
					checkStructure(t, v)
				case *sharded:
					for _, sh := range v.shards {
						checkStructure(t, sh)
					}
				}
			})
		}
	}
}

// Counters are read without the lock while writers run.
func TestRace_CountersLockFree(t *testing.T) {
	t.Parallel()

	tr := newTestTracker(t, policy.SpaceSaving, 64)
	var g errgroup.Group
	for w := 0; w < 4; w++ {
		g.Go(func() error {
			for i := 0; i < 2_000; i++ {
				if _, _, err := tr.GetOrCreate([]byte(strconv.Itoa(w*i%300)), 1); err != nil {
					return err
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		for i := 0; i < 1_000; i++ {
			_ = tr.Counters()
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	c := tr.Counters()
	if c.Hits+c.Misses != 8_000 {
		t.Fatalf("counters %+v", c)
	}
}
