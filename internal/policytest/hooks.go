// Package policytest provides a slice-backed policy.Hooks implementation for
// exercising policies without a tracker.
package policytest

import (
	"fmt"
	"slices"

	"github.com/IvanBrykalov/hotkeys/policy"
)

type entry struct {
	key     string
	counter uint64
	err     uint64
	linked  bool
}

// Eviction records one Evict call.
type Eviction struct {
	Key     string
	Counter uint64
	Reason  policy.EvictReason
}

// Hooks keeps the order as a plain slice (head first) and counts calls.
// It is not safe for concurrent use.
type Hooks struct {
	Cap int
	// FailCreate makes Create return policy.ErrOutOfMemory.
	FailCreate bool

	items   map[policy.Handle]*entry
	index   map[string]policy.Handle
	order   []policy.Handle
	next    policy.Handle
	Evicted []Eviction

	Creates, PushFronts, MoveToFronts, InsertSorteds, Repositions int
}

var _ policy.Hooks = (*Hooks)(nil)

// New returns empty hooks with the given capacity.
func New(capacity int) *Hooks {
	return &Hooks{
		Cap:   capacity,
		items: make(map[policy.Handle]*entry),
		index: make(map[string]policy.Handle),
	}
}

func (h *Hooks) Len() int      { return len(h.order) }
func (h *Hooks) Capacity() int { return h.Cap }

func (h *Hooks) Front() policy.Handle {
	if len(h.order) == 0 {
		return policy.Nil
	}
	return h.order[0]
}

func (h *Hooks) Back() policy.Handle {
	if len(h.order) == 0 {
		return policy.Nil
	}
	return h.order[len(h.order)-1]
}

func (h *Hooks) Counter(n policy.Handle) uint64       { return h.must(n).counter }
func (h *Hooks) SetCounter(n policy.Handle, c uint64) { h.must(n).counter = c }
func (h *Hooks) SetError(n policy.Handle, e uint64)   { h.must(n).err = e }
func (h *Hooks) Error(n policy.Handle) uint64         { return h.must(n).err }
func (h *Hooks) Key(n policy.Handle) string           { return h.must(n).key }

// Lookup returns the handle indexed under key.
func (h *Hooks) Lookup(key string) (policy.Handle, bool) {
	n, ok := h.index[key]
	return n, ok
}

func (h *Hooks) Create(key []byte) (policy.Handle, error) {
	if h.FailCreate {
		return policy.Nil, policy.ErrOutOfMemory
	}
	h.Creates++
	h.next++
	h.items[h.next] = &entry{key: string(key)}
	return h.next, nil
}

func (h *Hooks) PushFront(n policy.Handle) {
	h.PushFronts++
	h.link(n)
	h.order = slices.Insert(h.order, 0, n)
}

func (h *Hooks) MoveToFront(n policy.Handle) {
	h.MoveToFronts++
	h.unlink(n)
	h.order = slices.Insert(h.order, 0, n)
}

func (h *Hooks) InsertSorted(n policy.Handle) {
	h.InsertSorteds++
	h.link(n)
	h.insertSorted(n)
}

func (h *Hooks) Reposition(n policy.Handle) {
	h.Repositions++
	h.unlink(n)
	h.insertSorted(n)
}

func (h *Hooks) Evict(n policy.Handle, reason policy.EvictReason) {
	e := h.must(n)
	h.unlink(n)
	delete(h.index, e.key)
	delete(h.items, n)
	h.Evicted = append(h.Evicted, Eviction{Key: e.key, Counter: e.counter, Reason: reason})
}

// Keys returns tracked keys head first.
func (h *Hooks) Keys() []string {
	keys := make([]string, 0, len(h.order))
	for _, n := range h.order {
		keys = append(keys, h.items[n].key)
	}
	return keys
}

// Counters returns key -> counter for every tracked key.
func (h *Hooks) Counters() map[string]uint64 {
	m := make(map[string]uint64, len(h.order))
	for _, n := range h.order {
		m[h.items[n].key] = h.items[n].counter
	}
	return m
}

// Sorted reports whether counters are ascending head to tail.
func (h *Hooks) Sorted() bool {
	return slices.IsSortedFunc(h.order, func(a, b policy.Handle) int {
		ca, cb := h.items[a].counter, h.items[b].counter
		switch {
		case ca < cb:
			return -1
		case ca > cb:
			return 1
		}
		return 0
	})
}

func (h *Hooks) insertSorted(n policy.Handle) {
	c := h.items[n].counter
	i := 0
	for i < len(h.order) && h.items[h.order[i]].counter < c {
		i++
	}
	h.order = slices.Insert(h.order, i, n)
}

func (h *Hooks) link(n policy.Handle) {
	e := h.must(n)
	if e.linked {
		panic(fmt.Sprintf("policytest: handle %d linked twice", n))
	}
	e.linked = true
	h.index[e.key] = n
}

func (h *Hooks) unlink(n policy.Handle) {
	i := slices.Index(h.order, n)
	if i < 0 {
		panic(fmt.Sprintf("policytest: handle %d not linked", n))
	}
	h.order = slices.Delete(h.order, i, i+1)
}

func (h *Hooks) must(n policy.Handle) *entry {
	e, ok := h.items[n]
	if !ok {
		panic(fmt.Sprintf("policytest: unknown handle %d", n))
	}
	return e
}
