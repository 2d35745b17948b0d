package topkeys

import (
	"cmp"
	"errors"
	"slices"

	"github.com/IvanBrykalov/hotkeys/internal/util"
)

// sharded spreads keys over independent trackers by FNV-1a hash. Each
// shard has its own lock, policy state and sketch, so eviction and ranking
// decisions are local to a shard.
type sharded struct {
	shards []*tracker
	opt    *Options
}

// newSharded splits Capacity and MaxKeyBytes exactly, so the shard
// capacities sum to Capacity. n must not exceed Capacity.
func newSharded(n int, opt *Options, ignore *prefixSet) *sharded {
	s := &sharded{shards: make([]*tracker, n), opt: opt}
	for i := range s.shards {
		perCap := int(util.Share(int64(opt.Capacity), int64(n), i))
		perBytes := util.Share(opt.MaxKeyBytes, int64(n), i)
		s.shards[i] = newTracker(perCap, perBytes, opt, ignore)
	}
	return s
}

func (s *sharded) shard(key []byte) *tracker {
	return s.shards[util.ShardIndex(util.Fnv64a(key), len(s.shards))]
}

func (s *sharded) GetOrCreate(key []byte, now RelTime) (Item, bool, error) {
	return s.shard(key).GetOrCreate(key, now)
}

func (s *sharded) Update(key []byte, now RelTime, ops ...Op) (Item, bool, error) {
	return s.shard(key).Update(key, now, ops...)
}

// Stats visits shards in order, each under its own lock. The walk is not a
// single atomic view of the whole tracker.
func (s *sharded) Stats(now RelTime, sink Sink) error {
	for _, sh := range s.shards {
		stopped, err := sh.stats(now, sink)
		if err != nil || stopped {
			return err
		}
	}
	return nil
}

// Snapshot merges the shard snapshots. Counting policies are ranked by
// counter, Recency by last access time.
func (s *sharded) Snapshot() []Item {
	var items []Item
	for _, sh := range s.shards {
		items = append(items, sh.Snapshot()...)
	}
	if s.opt.Policy.Kind().Ascending() {
		slices.SortStableFunc(items, func(a, b Item) int { return cmp.Compare(b.Counter, a.Counter) })
	} else {
		slices.SortStableFunc(items, func(a, b Item) int { return cmp.Compare(b.AccessedAt, a.AccessedAt) })
	}
	return items
}

func (s *sharded) Len() int {
	n := 0
	for _, sh := range s.shards {
		n += sh.Len()
	}
	return n
}

func (s *sharded) Counters() Counters {
	var c Counters
	for _, sh := range s.shards {
		sc := sh.Counters()
		c.Hits += sc.Hits
		c.Misses += sc.Misses
		c.Evictions += sc.Evictions
		c.Rejections += sc.Rejections
	}
	return c
}

func (s *sharded) Close() error {
	var errs []error
	for _, sh := range s.shards {
		errs = append(errs, sh.Close())
	}
	return errors.Join(errs...)
}
