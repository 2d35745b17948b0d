// Package lossy implements the Lossy Counting tracking policy.
//
// Every access advances the observation count n. The error bound delta is
// raised to n/capacity whenever that quotient reaches a new integer, and the
// head of the ascending list is swept of every item whose counter fell below
// delta. New keys start at delta+1, so for every tracked key:
//
//	true frequency <= counter <= true frequency + delta
package lossy

import "github.com/IvanBrykalov/hotkeys/policy"

type lossy struct {
	h     policy.Hooks
	n     uint64 // observations
	delta uint64 // current error bound
}

type lossyPolicy struct{}

// New returns a Policy factory for Lossy Counting.
func New() policy.Policy { return lossyPolicy{} }

func (lossyPolicy) Kind() policy.Kind { return policy.LossyCounting }

func (lossyPolicy) New(h policy.Hooks) policy.ShardPolicy {
	return &lossy{h: h}
}

func (p *lossy) Kind() policy.Kind { return policy.LossyCounting }

// Delta returns the current error bound.
func (p *lossy) Delta() uint64 { return p.delta }

// Observe advances the observation count.
func (p *lossy) Observe([]byte) { p.n++ }

// OnHit bumps the counter, restores ascending order and sweeps.
func (p *lossy) OnHit(n policy.Handle) {
	p.h.SetCounter(n, p.h.Counter(n)+1)
	p.h.Reposition(n)
	p.sweep()
}

// OnMiss admits the key at delta+1. Lossy Counting alone does not bound the
// number of tracked keys by capacity; overflow evicts the minimum and raises
// delta to its counter so re-admitted keys cannot be undercounted.
func (p *lossy) OnMiss(key []byte) (policy.Handle, error) {
	n, err := p.h.Create(key)
	if err != nil {
		return policy.Nil, err
	}
	p.h.SetCounter(n, p.delta+1)
	p.h.InsertSorted(n)
	p.sweep()

	tracked := true
	for p.h.Len() > p.h.Capacity() {
		victim := p.h.Front()
		p.delta = max(p.delta, p.h.Counter(victim))
		if victim == n {
			tracked = false
		}
		p.h.Evict(victim, policy.EvictCapacity)
	}
	if !tracked {
		return policy.Nil, nil
	}
	return n, nil
}

// sweep raises delta when n/capacity reaches a new value and drops the
// prefix of items below it. Items equal to delta survive.
func (p *lossy) sweep() {
	bucket := p.n / uint64(p.h.Capacity())
	if bucket <= p.delta {
		return
	}
	p.delta = bucket
	for {
		head := p.h.Front()
		if head == policy.Nil || p.h.Counter(head) >= p.delta {
			return
		}
		p.h.Evict(head, policy.EvictThreshold)
	}
}
