package topkeys

import (
	"fmt"
	"strings"
)

// Op names one of the per-key operation counters a cache server reports for
// its hot keys.
type Op uint8

const (
	GetHits Op = iota
	GetMisses
	CmdSet
	IncrHits
	IncrMisses
	DecrHits
	DecrMisses
	DeleteHits
	DeleteMisses
	Evictions
	CasHits
	CasBadval
	CasMisses

	// NumOps is the number of operation counters.
	NumOps = int(CasMisses) + 1
)

var opNames = [NumOps]string{
	GetHits:      "get_hits",
	GetMisses:    "get_misses",
	CmdSet:       "cmd_set",
	IncrHits:     "incr_hits",
	IncrMisses:   "incr_misses",
	DecrHits:     "decr_hits",
	DecrMisses:   "decr_misses",
	DeleteHits:   "delete_hits",
	DeleteMisses: "delete_misses",
	Evictions:    "evictions",
	CasHits:      "cas_hits",
	CasBadval:    "cas_badval",
	CasMisses:    "cas_misses",
}

func (o Op) String() string {
	if int(o) >= NumOps {
		return fmt.Sprintf("Op(%d)", uint8(o))
	}
	return opNames[o]
}

// Valid reports whether o names a known counter.
func (o Op) Valid() bool { return int(o) < NumOps }

// ParseOp returns the Op whose stat name is s.
func ParseOp(s string) (Op, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range opNames {
		if name == s {
			return Op(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidOp, s)
}

// OpCounts holds one counter per Op, indexed by Op.
type OpCounts [NumOps]uint64

// Get returns the counter for o (0 for unknown ops).
func (c *OpCounts) Get(o Op) uint64 {
	if !o.Valid() {
		return 0
	}
	return c[o]
}

// Total sums all counters.
func (c *OpCounts) Total() uint64 {
	var n uint64
	for _, v := range c {
		n += v
	}
	return n
}
