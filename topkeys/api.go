package topkeys

import (
	"github.com/jedisct1/dlog"

	"github.com/IvanBrykalov/hotkeys/internal/util"
)

// Tracker records key accesses and keeps a bounded set of hot keys.
// All methods are safe for concurrent use by multiple goroutines.
type Tracker interface {
	// GetOrCreate records an access to key at now. It returns a copy of the
	// key's item and true when the key is tracked after the call; false with
	// a nil error means the policy declined the key (Count-Min-Sketch
	// rejection, Lossy Counting self-eviction) or the key is ignored.
	GetOrCreate(key []byte, now RelTime) (Item, bool, error)

	// Update is GetOrCreate that also increments the named operation
	// counters of the item, in the same critical section.
	Update(key []byte, now RelTime, ops ...Op) (Item, bool, error)

	// Stats calls sink once per tracked key, head to tail, with the key
	// and its stat value (see Item.AppendValue). The value buffer is reused
	// between calls. The sink runs under the tracker lock and must not call
	// back into the tracker.
	Stats(now RelTime, sink Sink) error

	// Snapshot returns copies of all tracked items, hottest first.
	Snapshot() []Item

	// Len returns the number of tracked keys.
	Len() int

	// Counters returns lifetime event counters. It does not take the lock.
	Counters() Counters

	// Close releases all memory. Later calls fail with ErrClosed.
	Close() error
}

// Sink receives one stat line per tracked key. Returning ErrStop ends the
// walk without error; any other error ends it and is returned by Stats.
type Sink func(key string, value []byte) error

// Counters are lifetime tracker events.
type Counters struct {
	Hits       int64
	Misses     int64
	Evictions  uint64
	Rejections uint64
}

// New builds a tracker from opt. It fails with ErrInvalidConfiguration when
// Capacity is not positive, the policy is unknown, or Count-Min-Sketch
// dimensions are missing or out of range.
func New(opt Options) (Tracker, error) {
	opt, err := opt.withDefaults()
	if err != nil {
		return nil, err
	}
	ignore, err := newPrefixSet(opt.IgnorePrefixes)
	if err != nil {
		return nil, err
	}

	shards := 1
	if opt.Shards > 1 || opt.Shards < 0 {
		shards = shardsFor(util.ShardCount(max(opt.Shards, 0)), &opt)
	}
	dlog.Debugf("topkeys: new tracker capacity=%d policy=%v shards=%d", opt.Capacity, opt.Policy.Kind(), shards)

	if shards == 1 {
		return newTracker(opt.Capacity, opt.MaxKeyBytes, &opt, ignore), nil
	}
	return newSharded(shards, &opt, ignore), nil
}

// shardsFor caps n so that every shard owns at least one slot and, when
// MaxKeyBytes is set, at least one byte. A zero byte share would read as
// unlimited.
func shardsFor(n int, opt *Options) int {
	n = min(n, opt.Capacity)
	if opt.MaxKeyBytes > 0 {
		n = int(min(int64(n), opt.MaxKeyBytes))
	}
	return max(n, 1)
}
