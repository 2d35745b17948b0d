package topkeys

import (
	"fmt"
	"iter"

	"github.com/IvanBrykalov/hotkeys/policy"
)

// arena owns every item of a tracker. Items are addressed by handle and
// threaded on a circular doubly linked list through the sentinel slot 0.
// Head is sentinel.next, tail is sentinel.prev.
type arena struct {
	slots []slot
	free  []policy.Handle
	limit int // max len(slots), sentinel included
	count int // linked items
}

func (a *arena) init(capacity int) {
	// sentinel + capacity + one transient slot for create-then-evict.
	a.limit = capacity + 2
	a.slots = make([]slot, 1, min(a.limit, 1024))
	a.free = nil
	a.count = 0
}

// alloc returns a zeroed detached slot, or false when the arena is full.
func (a *arena) alloc() (policy.Handle, bool) {
	if n := len(a.free); n > 0 {
		h := a.free[n-1]
		a.free = a.free[:n-1]
		return h, true
	}
	if len(a.slots) >= a.limit {
		return policy.Nil, false
	}
	a.slots = append(a.slots, slot{})
	return policy.Handle(len(a.slots) - 1), true
}

func (a *arena) release(h policy.Handle) {
	a.slots[h] = slot{}
	a.free = append(a.free, h)
}

func (a *arena) front() policy.Handle { return a.slots[0].next }
func (a *arena) back() policy.Handle  { return a.slots[0].prev }

// insertAfter links the detached item h right after anchor.
func (a *arena) insertAfter(anchor, h policy.Handle) {
	s := &a.slots[h]
	if h == policy.Nil || s.linked {
		invariantf("insert", h, "item already linked")
	}
	next := a.slots[anchor].next
	s.prev, s.next = anchor, next
	s.linked = true
	a.slots[next].prev = h
	a.slots[anchor].next = h
	a.count++
}

// unlink detaches h, checking that both neighbours point back at it.
func (a *arena) unlink(h policy.Handle) {
	s := &a.slots[h]
	if h == policy.Nil || !s.linked {
		invariantf("unlink", h, "item not linked")
	}
	if a.slots[s.prev].next != h || a.slots[s.next].prev != h {
		invariantf("unlink", h, "neighbours disagree: prev=%d prev.next=%d next=%d next.prev=%d",
			s.prev, a.slots[s.prev].next, s.next, a.slots[s.next].prev)
	}
	a.slots[s.prev].next = s.next
	a.slots[s.next].prev = s.prev
	s.prev, s.next = policy.Nil, policy.Nil
	s.linked = false
	a.count--
}

// insertSorted links h before the first item whose counter is >= h's,
// keeping the list ascending from head to tail.
func (a *arena) insertSorted(h policy.Handle) {
	c := a.slots[h].counter
	at := a.slots[0].next
	for at != policy.Nil && a.slots[at].counter < c {
		at = a.slots[at].next
	}
	a.insertAfter(a.slots[at].prev, h)
}

// forward yields linked items head to tail.
func (a *arena) forward() iter.Seq[policy.Handle] {
	return func(yield func(policy.Handle) bool) {
		for h := a.slots[0].next; h != policy.Nil; h = a.slots[h].next {
			if !yield(h) {
				return
			}
		}
	}
}

// backward yields linked items tail to head.
func (a *arena) backward() iter.Seq[policy.Handle] {
	return func(yield func(policy.Handle) bool) {
		for h := a.slots[0].prev; h != policy.Nil; h = a.slots[h].prev {
			if !yield(h) {
				return
			}
		}
	}
}

// check walks the whole list and verifies link symmetry and count.
func (a *arena) check() error {
	n := 0
	prev := policy.Nil
	for h := a.slots[0].next; h != policy.Nil; h = a.slots[h].next {
		s := &a.slots[h]
		if !s.linked {
			return fmt.Errorf("handle %d reachable but not marked linked", h)
		}
		if s.prev != prev {
			return fmt.Errorf("handle %d: prev=%d, want %d", h, s.prev, prev)
		}
		if n++; n > a.count {
			return fmt.Errorf("list longer than count %d", a.count)
		}
		prev = h
	}
	if a.slots[0].prev != prev {
		return fmt.Errorf("sentinel prev=%d, want tail %d", a.slots[0].prev, prev)
	}
	if n != a.count {
		return fmt.Errorf("list has %d items, count is %d", n, a.count)
	}
	return nil
}
