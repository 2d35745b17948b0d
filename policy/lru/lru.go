// Package lru implements the Recency tracking policy.
package lru

import "github.com/IvanBrykalov/hotkeys/policy"

// lru is a classic "move-to-front" Least-Recently-Used policy.
// It delegates list manipulation to policy.Hooks provided by the tracker.
// Counters are left untouched: recency order is the only signal.
type lru struct {
	h policy.Hooks
}

type lruPolicy struct{}

// New returns a Policy factory that constructs tracker-local LRU instances.
func New() policy.Policy { return lruPolicy{} }

func (lruPolicy) Kind() policy.Kind { return policy.Recency }

// New implements policy.Policy by binding tracker hooks.
func (lruPolicy) New(h policy.Hooks) policy.ShardPolicy {
	return &lru{h: h}
}

func (p *lru) Kind() policy.Kind { return policy.Recency }

// Observe is a no-op: LRU keeps no per-access state beyond list order.
func (p *lru) Observe([]byte) {}

// OnHit promotes the item to MRU.
func (p *lru) OnHit(n policy.Handle) { p.h.MoveToFront(n) }

// OnMiss admits the key at MRU and drops the LRU item once over capacity.
func (p *lru) OnMiss(key []byte) (policy.Handle, error) {
	n, err := p.h.Create(key)
	if err != nil {
		return policy.Nil, err
	}
	p.h.PushFront(n)
	if p.h.Len() > p.h.Capacity() {
		p.h.Evict(p.h.Back(), policy.EvictCapacity)
	}
	return n, nil
}
