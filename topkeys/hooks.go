package topkeys

import "github.com/IvanBrykalov/hotkeys/policy"

// trackerHooks adapts the tracker's arena, index and list to policy.Hooks.
// Every method runs with t.mu held.
type trackerHooks struct{ t *tracker }

var _ policy.Hooks = trackerHooks{}

func (h trackerHooks) Len() int             { return h.t.count }
func (h trackerHooks) Capacity() int        { return h.t.cap }
func (h trackerHooks) Front() policy.Handle { return h.t.front() }
func (h trackerHooks) Back() policy.Handle  { return h.t.back() }

func (h trackerHooks) Counter(n policy.Handle) uint64       { return h.t.slots[n].counter }
func (h trackerHooks) SetCounter(n policy.Handle, c uint64) { h.t.slots[n].counter = c }
func (h trackerHooks) SetError(n policy.Handle, e uint64)   { h.t.slots[n].err = e }

// Create checks the key budget and the arena before touching either.
func (h trackerHooks) Create(key []byte) (policy.Handle, error) {
	t := h.t
	if t.maxKeyBytes > 0 && t.keyBytes+int64(len(key)) > t.maxKeyBytes {
		return policy.Nil, ErrOutOfMemory
	}
	n, ok := t.alloc()
	if !ok {
		return policy.Nil, ErrOutOfMemory
	}
	s := &t.slots[n]
	s.key = string(key)
	s.ctime, s.atime = t.now, t.now
	t.keyBytes += int64(len(key))
	return n, nil
}

func (h trackerHooks) PushFront(n policy.Handle) {
	h.admit(n)
	h.t.insertAfter(policy.Nil, n)
}

func (h trackerHooks) MoveToFront(n policy.Handle) {
	if h.t.front() == n {
		return
	}
	h.t.unlink(n)
	h.t.insertAfter(policy.Nil, n)
}

func (h trackerHooks) InsertSorted(n policy.Handle) {
	h.admit(n)
	h.t.insertSorted(n)
}

func (h trackerHooks) Reposition(n policy.Handle) {
	t := h.t
	// Counters only grow, so an item already at or past its place stays.
	if next := t.slots[n].next; next == policy.Nil || t.slots[next].counter >= t.slots[n].counter {
		return
	}
	t.unlink(n)
	t.insertSorted(n)
}

func (h trackerHooks) Evict(n policy.Handle, reason policy.EvictReason) {
	t := h.t
	s := &t.slots[n]
	if got, ok := t.index[s.key]; !ok || got != n {
		invariantf("evict", n, "key %q not indexed at this handle", s.key)
	}
	delete(t.index, s.key)
	t.unlink(n)
	t.keyBytes -= int64(len(s.key))
	t.release(n)
	t.evicts.Add(1)
	t.opt.Metrics.Evict(reason)
}

func (h trackerHooks) admit(n policy.Handle) {
	t := h.t
	key := t.slots[n].key
	if _, dup := t.index[key]; dup {
		invariantf("admit", n, "key %q already indexed", key)
	}
	t.index[key] = n
	t.opt.Metrics.Admit()
}
