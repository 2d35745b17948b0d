// Package cms implements the Count-Min-Sketch-assisted tracking policy.
//
// Every access is counted in a fixed-size sketch independent of the tracked
// set. A new key enters with its sketch estimate as counter; once the tracker
// is full it only displaces the minimum item if its estimate is strictly
// greater than that item's counter.
package cms

import (
	"github.com/IvanBrykalov/hotkeys/internal/sketch"
	"github.com/IvanBrykalov/hotkeys/policy"
)

type cms struct {
	h  policy.Hooks
	sk *sketch.Sketch
}

type cmsPolicy struct {
	depth, width int
}

// New returns a Policy factory for a depth×width sketch.
// Dimensions are validated here so a bad configuration fails at construction;
// width is rounded up to the next power of two.
func New(depth, width int) (policy.Policy, error) {
	if _, err := sketch.New(depth, width); err != nil {
		return nil, err
	}
	return cmsPolicy{depth: depth, width: width}, nil
}

func (cmsPolicy) Kind() policy.Kind { return policy.CountMinSketch }

// New binds a fresh sketch to the tracker hooks. Each tracker (or shard)
// owns its own sketch.
func (p cmsPolicy) New(h policy.Hooks) policy.ShardPolicy {
	sk, err := sketch.New(p.depth, p.width)
	if err != nil {
		// dimensions were validated by the package-level New
		panic(err)
	}
	return &cms{h: h, sk: sk}
}

func (p *cms) Kind() policy.Kind { return policy.CountMinSketch }

// Estimate returns the sketch estimate for key.
func (p *cms) Estimate(key []byte) uint64 { return uint64(p.sk.Estimate(key)) }

// Observe counts the access in the sketch, hit or miss.
func (p *cms) Observe(key []byte) { p.sk.Add(key) }

// OnHit bumps the counter and restores ascending order.
func (p *cms) OnHit(n policy.Handle) {
	p.h.SetCounter(n, p.h.Counter(n)+1)
	p.h.Reposition(n)
}

// OnMiss admits the key with its sketch estimate. At capacity, a key whose
// estimate does not exceed the minimum counter is rejected without allocating.
func (p *cms) OnMiss(key []byte) (policy.Handle, error) {
	est := p.Estimate(key)
	if p.h.Len() < p.h.Capacity() {
		n, err := p.h.Create(key)
		if err != nil {
			return policy.Nil, err
		}
		p.h.SetCounter(n, est)
		p.h.InsertSorted(n)
		return n, nil
	}
	victim := p.h.Front()
	if est <= p.h.Counter(victim) {
		return policy.Nil, nil
	}
	n, err := p.h.Create(key)
	if err != nil {
		return policy.Nil, err
	}
	p.h.Evict(victim, policy.EvictReplace)
	p.h.SetCounter(n, est)
	p.h.InsertSorted(n)
	return n, nil
}
