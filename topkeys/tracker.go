package topkeys

import (
	"errors"
	"fmt"
	"sync"

	"github.com/IvanBrykalov/hotkeys/internal/util"
	"github.com/IvanBrykalov/hotkeys/policy"
)

// tracker is one lock, one index, one order list and one policy instance.
type tracker struct {
	// ---- guarded by mu ----
	mu sync.Mutex
	arena
	index       map[string]policy.Handle
	cap         int
	keyBytes    int64
	maxKeyBytes int64 // 0 = unlimited
	now         RelTime
	closed      bool

	pol    policy.ShardPolicy
	kind   policy.Kind
	opt    *Options
	ignore *prefixSet

	// ---- hot counters (own cache lines, read without mu) ----
	_       util.CacheLinePad
	hits    util.PaddedAtomicInt64
	misses  util.PaddedAtomicInt64
	evicts  util.PaddedAtomicUint64
	rejects util.PaddedAtomicUint64
}

func newTracker(capacity int, maxKeyBytes int64, opt *Options, ignore *prefixSet) *tracker {
	t := &tracker{
		index:       make(map[string]policy.Handle, min(capacity, 1024)),
		cap:         capacity,
		maxKeyBytes: maxKeyBytes,
		kind:        opt.Policy.Kind(),
		opt:         opt,
		ignore:      ignore,
	}
	t.arena.init(capacity)
	t.pol = opt.Policy.New(trackerHooks{t: t})
	return t
}

func (t *tracker) GetOrCreate(key []byte, now RelTime) (Item, bool, error) {
	return t.access(key, now, nil)
}

func (t *tracker) Update(key []byte, now RelTime, ops ...Op) (Item, bool, error) {
	for _, op := range ops {
		if !op.Valid() {
			return Item{}, false, fmt.Errorf("%w: %v", ErrInvalidOp, op)
		}
	}
	return t.access(key, now, ops)
}

// access is the single path for both GetOrCreate and Update.
func (t *tracker) access(key []byte, now RelTime, ops []Op) (Item, bool, error) {
	if err := validKey(key, t.opt.MaxKeyLen); err != nil {
		return Item{}, false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return Item{}, false, ErrClosed
	}
	if t.ignore.match(key) {
		return Item{}, false, nil
	}
	t.now = now
	defer t.verify()

	t.pol.Observe(key)
	if h, ok := t.index[string(key)]; ok {
		t.hits.Add(1)
		t.opt.Metrics.Hit()
		t.pol.OnHit(h)
		return t.touch(h, now, ops), true, nil
	}

	t.misses.Add(1)
	t.opt.Metrics.Miss()
	h, err := t.pol.OnMiss(key)
	if err != nil {
		return Item{}, false, err
	}
	if h == policy.Nil {
		t.rejects.Add(1)
		t.opt.Metrics.Reject()
		return Item{}, false, nil
	}
	return t.touch(h, now, ops), true, nil
}

// touch stamps the access time, bumps op counters and returns a copy.
func (t *tracker) touch(h policy.Handle, now RelTime, ops []Op) Item {
	s := &t.slots[h]
	s.atime = now
	for _, op := range ops {
		s.ops[op]++
	}
	return s.view()
}

func (t *tracker) Stats(now RelTime, sink Sink) error {
	_, err := t.stats(now, sink)
	return err
}

// stats walks the list head to tail. stopped reports that the sink
// returned ErrStop.
func (t *tracker) stats(now RelTime, sink Sink) (stopped bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false, ErrClosed
	}

	withError := t.kind == policy.SpaceSaving
	buf := make([]byte, 0, 320)
	for h := range t.forward() {
		it := t.slots[h].view()
		buf = it.AppendValue(buf[:0], now, withError)
		if err := sink(it.Key, buf); err != nil {
			if errors.Is(err, ErrStop) {
				return true, nil
			}
			return false, fmt.Errorf("topkeys: stats sink for %q: %w", it.Key, err)
		}
	}
	return false, nil
}

func (t *tracker) Snapshot() []Item {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}

	seq := t.forward()
	if t.kind.Ascending() {
		seq = t.backward()
	}
	items := make([]Item, 0, t.count)
	for h := range seq {
		items = append(items, t.slots[h].view())
	}
	return items
}

func (t *tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

func (t *tracker) Counters() Counters {
	return Counters{
		Hits:       t.hits.Load(),
		Misses:     t.misses.Load(),
		Evictions:  t.evicts.Load(),
		Rejections: t.rejects.Load(),
	}
}

// Close releases the arena, the index and the policy (and its sketch).
// Closing twice is a no-op.
func (t *tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.slots, t.free, t.count = nil, nil, 0
	t.index = nil
	t.pol = nil
	t.keyBytes = 0
	return nil
}

// verify runs the full structure check in topkeys_debug builds.
func (t *tracker) verify() {
	if !debugging {
		return
	}
	if err := t.checkLocked(); err != nil {
		invariantf("verify", policy.Nil, "%v", err)
	}
}

// checkLocked verifies the list, the index/list bijection and the bounds.
func (t *tracker) checkLocked() error {
	if err := t.arena.check(); err != nil {
		return err
	}
	if len(t.index) != t.count {
		return fmt.Errorf("index has %d keys, list has %d items", len(t.index), t.count)
	}
	if t.count > t.cap {
		return fmt.Errorf("%d items exceed capacity %d", t.count, t.cap)
	}
	var bytes int64
	var last uint64
	first := true
	for h := range t.forward() {
		s := &t.slots[h]
		if got, ok := t.index[s.key]; !ok || got != h {
			return fmt.Errorf("key %q indexed at %d, linked at %d", s.key, got, h)
		}
		if t.kind.Ascending() {
			if !first && s.counter < last {
				return fmt.Errorf("key %q counter %d below predecessor %d", s.key, s.counter, last)
			}
			last, first = s.counter, false
		}
		bytes += int64(len(s.key))
	}
	if bytes != t.keyBytes {
		return fmt.Errorf("key bytes %d, accounted %d", bytes, t.keyBytes)
	}
	return nil
}

func validKey(key []byte, maxLen int) error {
	switch {
	case len(key) == 0:
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	case len(key) > maxLen:
		return fmt.Errorf("%w: length %d exceeds %d", ErrInvalidKey, len(key), maxLen)
	}
	return nil
}
