// Package spacesaving implements the Space-Saving tracking policy.
//
// Counters are kept sorted ascending (head = minimum). When the tracker is
// full, a new key replaces the minimum item and inherits its counter as the
// error bound, so for every tracked key:
//
//	true frequency <= counter <= true frequency + error
package spacesaving

import "github.com/IvanBrykalov/hotkeys/policy"

type spaceSaving struct {
	h policy.Hooks
}

type spaceSavingPolicy struct{}

// New returns a Policy factory for Space-Saving.
func New() policy.Policy { return spaceSavingPolicy{} }

func (spaceSavingPolicy) Kind() policy.Kind { return policy.SpaceSaving }

func (spaceSavingPolicy) New(h policy.Hooks) policy.ShardPolicy {
	return &spaceSaving{h: h}
}

func (p *spaceSaving) Kind() policy.Kind { return policy.SpaceSaving }

func (p *spaceSaving) Observe([]byte) {}

// OnHit bumps the counter and restores ascending order.
func (p *spaceSaving) OnHit(n policy.Handle) {
	p.h.SetCounter(n, p.h.Counter(n)+1)
	p.h.Reposition(n)
}

// OnMiss admits the key with counter 1, or substitutes the minimum item
// once the tracker is full.
func (p *spaceSaving) OnMiss(key []byte) (policy.Handle, error) {
	// Allocate first so a failure leaves the victim in place.
	n, err := p.h.Create(key)
	if err != nil {
		return policy.Nil, err
	}
	if p.h.Len() < p.h.Capacity() {
		p.h.SetCounter(n, 1)
		p.h.InsertSorted(n)
		return n, nil
	}
	victim := p.h.Front()
	inherited := p.h.Counter(victim)
	p.h.Evict(victim, policy.EvictReplace)
	p.h.SetError(n, inherited)
	p.h.SetCounter(n, inherited+1)
	p.h.InsertSorted(n)
	return n, nil
}
