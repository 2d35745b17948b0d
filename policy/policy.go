// Package policy defines the contract between a tracker and its key-tracking
// strategy. A strategy decides where an item sits in the tracker's order list,
// how its counter evolves, and which item leaves when the tracker is full.
package policy

import (
	"fmt"
	"strings"
)

// Handle addresses an item slot in the tracker's arena.
// Handles are stable for the lifetime of the item; a slot may be reused
// after the item it held was evicted.
type Handle int32

// Nil is the order-list sentinel. It never refers to a real item and is
// returned by Front/Back on an empty list and by OnMiss on rejection.
const Nil Handle = 0

type constError string

func (e constError) Error() string { return string(e) }

// ErrOutOfMemory is returned by Hooks.Create when no item can be allocated.
// Nothing has been mutated when it is returned.
const ErrOutOfMemory = constError("out of memory")

// EvictReason explains why a tracked key was dropped.
type EvictReason int

const (
	// EvictCapacity: the tracker exceeded its capacity (LRU tail, Lossy overflow).
	EvictCapacity EvictReason = iota
	// EvictThreshold: a Lossy Counting sweep found the counter below delta.
	EvictThreshold
	// EvictReplace: a new key took over the minimum slot (Space-Saving, Count-Min-Sketch).
	EvictReplace
)

func (r EvictReason) String() string {
	switch r {
	case EvictThreshold:
		return "threshold"
	case EvictReplace:
		return "replace"
	default:
		return "capacity"
	}
}

// Kind names one of the built-in strategies.
type Kind int

const (
	// Recency keeps exact LRU order, most recent at the head.
	Recency Kind = iota
	// LossyCounting keeps approximate counts bounded by a global delta.
	LossyCounting
	// SpaceSaving substitutes the minimum counter on overflow.
	SpaceSaving
	// CountMinSketch admits keys by their sketch estimate.
	CountMinSketch
)

var kindNames = [...]string{
	Recency:        "lru",
	LossyCounting:  "lossy",
	SpaceSaving:    "spacesaving",
	CountMinSketch: "cms",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Ascending reports whether the strategy keeps the order list sorted by
// ascending counter (hottest at the tail). Recency keeps the hottest at the head.
func (k Kind) Ascending() bool { return k != Recency }

// ParseKind accepts the names produced by Kind.String plus a few aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lru", "recency", "":
		return Recency, nil
	case "lossy", "lc", "lossycounting":
		return LossyCounting, nil
	case "spacesaving", "ss", "space-saving":
		return SpaceSaving, nil
	case "cms", "countminsketch", "count-min-sketch":
		return CountMinSketch, nil
	}
	return 0, fmt.Errorf("unknown policy %q (use lru, lossy, spacesaving or cms)", s)
}

// Hooks expose the tracker's arena, index and order list to a strategy.
// Implementations are provided by the tracker.
//
// Concurrency: all hook calls happen under the tracker lock.
// Items created by Create are detached until PushFront or InsertSorted
// links them; those two calls also register the key in the index, so the
// index and the list never disagree once a hook returns.
type Hooks interface {
	// Len returns the number of linked items.
	Len() int
	// Capacity returns the configured maximum number of tracked keys.
	Capacity() int
	// Front returns the head of the order list (or Nil if empty).
	Front() Handle
	// Back returns the tail of the order list (or Nil if empty).
	Back() Handle

	Counter(Handle) uint64
	SetCounter(Handle, uint64)
	// SetError records the overestimation bound of the item.
	SetError(Handle, uint64)

	// Create allocates a detached item holding a copy of key. It fails with
	// ErrOutOfMemory without mutating anything.
	Create(key []byte) (Handle, error)
	// PushFront links a new item at the head and indexes it.
	PushFront(Handle)
	// MoveToFront moves a linked item to the head.
	MoveToFront(Handle)
	// InsertSorted links a new item at its ascending-counter position and indexes it.
	InsertSorted(Handle)
	// Reposition moves a linked item to its ascending-counter position.
	Reposition(Handle)
	// Evict unindexes, unlinks and frees a linked item.
	Evict(Handle, EvictReason)
}

// ShardPolicy is a tracker-local strategy instance bound to tracker hooks.
// All methods are invoked under the tracker lock.
//
// Semantics:
//   - Observe is called for every access before the index lookup.
//   - OnHit is called when the key is already tracked.
//   - OnMiss is called when the key is not tracked. It returns the handle of
//     the new item, Nil if the strategy declines to track the key, or an error
//     from Hooks.Create.
type ShardPolicy interface {
	Kind() Kind
	Observe(key []byte)
	OnHit(Handle)
	OnMiss(key []byte) (Handle, error)
}

// Policy is a factory that creates tracker-local policy instances
// bound to a particular tracker's hooks.
type Policy interface {
	Kind() Kind
	New(Hooks) ShardPolicy
}
