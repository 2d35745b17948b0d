// Package sketch implements a Count-Min sketch over byte-string keys.
package sketch

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/cespare/xxhash/v2"

	"github.com/IvanBrykalov/hotkeys/internal/util"
)

// Limits accepted by New.
const (
	MaxDepth = 16
	MaxWidth = 1 << 24
)

type constError string

func (e constError) Error() string { return string(e) }

// ErrInvalidDimensions is returned by New for out-of-range depth or width.
const ErrInvalidDimensions = constError("invalid sketch dimensions")

// Sketch is a depth×width matrix of saturating uint32 counters.
// Row i maps a key to a column by multiply-shift hashing of the key's xxhash
// with the odd seed i. The width is a power of two so the top bits of the
// product select the column.
//
// Sketch is not safe for concurrent use; the tracker serializes access.
type Sketch struct {
	depth int
	width int
	shift uint
	tab   []uint32 // flattened depth*width
	seeds []uint64
}

// New creates a sketch. width is rounded up to the next power of two.
func New(depth, width int) (*Sketch, error) {
	if depth < 1 || depth > MaxDepth {
		return nil, fmt.Errorf("%w: depth must be in [1,%d], got %d", ErrInvalidDimensions, MaxDepth, depth)
	}
	if width < 1 || width > MaxWidth {
		return nil, fmt.Errorf("%w: width must be in [1,%d], got %d", ErrInvalidDimensions, MaxWidth, width)
	}
	w := util.NextPow2(uint64(width))
	s := &Sketch{
		depth: depth,
		width: int(w),
		shift: uint(64 - bits.TrailingZeros64(w)),
		tab:   make([]uint32, depth*int(w)),
		seeds: make([]uint64, depth),
	}
	// fill seeds deterministically; multiply-shift needs odd multipliers
	for i := range s.seeds {
		s.seeds[i] = (0x9e3779b97f4a7c15 + uint64(i)*0xbf58476d1ce4e5b9) | 1
	}
	return s, nil
}

// Depth returns the number of rows.
func (s *Sketch) Depth() int { return s.depth }

// Width returns the number of columns (a power of two).
func (s *Sketch) Width() int { return s.width }

// Add counts one occurrence of key and returns its new estimate.
func (s *Sketch) Add(key []byte) uint32 {
	h := xxhash.Sum64(key)
	est := uint32(math.MaxUint32)
	for d := 0; d < s.depth; d++ {
		pos := s.pos(h, d)
		if s.tab[pos] != math.MaxUint32 {
			s.tab[pos]++
		}
		est = min(est, s.tab[pos])
	}
	return est
}

// Estimate returns the minimum over the key's cells. It never undercounts.
func (s *Sketch) Estimate(key []byte) uint32 {
	h := xxhash.Sum64(key)
	est := uint32(math.MaxUint32)
	for d := 0; d < s.depth; d++ {
		est = min(est, s.tab[s.pos(h, d)])
	}
	return est
}

// Reset zeroes every counter.
func (s *Sketch) Reset() { clear(s.tab) }

func (s *Sketch) pos(h uint64, row int) int {
	// x >> 64 is 0 in Go, so a width of 1 maps every key to column 0.
	return row*s.width + int((h*s.seeds[row])>>s.shift)
}
