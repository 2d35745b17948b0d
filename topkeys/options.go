package topkeys

import (
	"fmt"
	"math"

	"github.com/IvanBrykalov/hotkeys/policy"
	"github.com/IvanBrykalov/hotkeys/policy/cms"
	"github.com/IvanBrykalov/hotkeys/policy/lossy"
	"github.com/IvanBrykalov/hotkeys/policy/lru"
	"github.com/IvanBrykalov/hotkeys/policy/spacesaving"
)

const (
	// DefaultMaxKeyLen matches the longest key a memcached-style server accepts.
	DefaultMaxKeyLen = 250
	// MaxCapacity bounds Capacity so that handles fit in an int32.
	MaxCapacity = math.MaxInt32 - 2
)

// Metrics receives tracker events. Implementations must be safe for
// concurrent use; calls are made with a tracker lock held, so keep them cheap.
//
// Admit and Evict pair up: Admit minus Evict is the number of tracked keys.
type Metrics interface {
	Hit()
	Miss()
	// Admit is called when a new key starts being tracked.
	Admit()
	Evict(reason policy.EvictReason)
	// Reject is called when the policy declines to track a missed key.
	Reject()
}

// SketchDims are the Count-Min sketch dimensions. Width is rounded up to a
// power of two.
type SketchDims struct {
	Depth int
	Width int
}

// Options configures a tracker.
//
// Zero values are safe except for Capacity:
//   - Kind zero         => Recency (LRU)
//   - MaxKeyLen <= 0    => DefaultMaxKeyLen
//   - MaxKeyBytes == 0  => unlimited
//   - Shards <= 1       => one tracker, one lock, exact global order
//   - nil Metrics       => NoopMetrics
type Options struct {
	// Capacity is the maximum number of tracked keys. Required.
	Capacity int

	// Kind selects a built-in policy. Ignored when Policy is set.
	Kind policy.Kind
	// Sketch is required for policy.CountMinSketch.
	Sketch SketchDims
	// Policy overrides Kind with a custom strategy.
	Policy policy.Policy

	// Shards > 1 splits the tracker into NextPow2(Shards) independent
	// trackers, never more than Capacity. Capacity is divided exactly, so
	// Len never exceeds Capacity. Shards < 0 picks a count from
	// GOMAXPROCS. Ranking is then per shard.
	Shards int

	// MaxKeyLen rejects longer keys with ErrInvalidKey.
	MaxKeyLen int
	// MaxKeyBytes caps the total bytes of tracked keys. A new key that does
	// not fit fails with ErrOutOfMemory.
	MaxKeyBytes int64

	// IgnorePrefixes lists key prefixes that are never tracked.
	IgnorePrefixes []string

	Metrics Metrics
}

// withDefaults validates opt and fills zero values.
func (opt Options) withDefaults() (Options, error) {
	if opt.Capacity <= 0 || opt.Capacity > MaxCapacity {
		return opt, fmt.Errorf("%w: capacity %d", ErrInvalidConfiguration, opt.Capacity)
	}
	if opt.MaxKeyLen <= 0 {
		opt.MaxKeyLen = DefaultMaxKeyLen
	}
	if opt.MaxKeyBytes < 0 {
		return opt, fmt.Errorf("%w: max key bytes %d", ErrInvalidConfiguration, opt.MaxKeyBytes)
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Policy == nil {
		p, err := builtin(opt.Kind, opt.Sketch)
		if err != nil {
			return opt, err
		}
		opt.Policy = p
	}
	return opt, nil
}

func builtin(kind policy.Kind, dims SketchDims) (policy.Policy, error) {
	switch kind {
	case policy.Recency:
		return lru.New(), nil
	case policy.LossyCounting:
		return lossy.New(), nil
	case policy.SpaceSaving:
		return spacesaving.New(), nil
	case policy.CountMinSketch:
		p, err := cms.New(dims.Depth, dims.Width)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: unknown policy %v", ErrInvalidConfiguration, kind)
}
