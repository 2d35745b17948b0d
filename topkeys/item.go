package topkeys

import (
	"strconv"

	"github.com/IvanBrykalov/hotkeys/policy"
)

// RelTime is the host server's relative clock: seconds since the server
// started, never decreasing. Every call that records an access carries one.
type RelTime uint32

// Since returns now - t, or 0 when t lies in the future.
func (t RelTime) Since(now RelTime) uint32 {
	if now < t {
		return 0
	}
	return uint32(now - t)
}

// slot is an arena cell. Slot 0 is the order-list sentinel.
type slot struct {
	key     string
	counter uint64
	err     uint64
	ctime   RelTime
	atime   RelTime

	// Order list links (circular through slot 0).
	prev, next policy.Handle
	linked     bool

	ops OpCounts
}

// Item is a copy of one tracked key's record. It does not alias tracker
// memory and stays valid after the tracker changes or is closed.
type Item struct {
	Key string
	// Counter is the policy's count: accesses for the counting policies,
	// zero for Recency.
	Counter uint64
	// Error bounds Counter's overestimation (Space-Saving only).
	Error      uint64
	CreatedAt  RelTime
	AccessedAt RelTime
	Ops        OpCounts
}

func (s *slot) view() Item {
	return Item{
		Key:        s.key,
		Counter:    s.counter,
		Error:      s.err,
		CreatedAt:  s.ctime,
		AccessedAt: s.atime,
		Ops:        s.ops,
	}
}

// AppendValue appends the item's stat value, as produced by Tracker.Stats,
// to dst:
//
//	get_hits=N,...,cas_misses=N,counter=N[,error=E],ctime=AGE,atime=AGE
//
// The error field is written only when withError is set (Space-Saving).
func (it *Item) AppendValue(dst []byte, now RelTime, withError bool) []byte {
	for i, name := range opNames {
		dst = append(dst, name...)
		dst = append(dst, '=')
		dst = strconv.AppendUint(dst, it.Ops[i], 10)
		dst = append(dst, ',')
	}
	dst = append(dst, "counter="...)
	dst = strconv.AppendUint(dst, it.Counter, 10)
	if withError {
		dst = append(dst, ",error="...)
		dst = strconv.AppendUint(dst, it.Error, 10)
	}
	dst = append(dst, ",ctime="...)
	dst = strconv.AppendUint(dst, uint64(it.CreatedAt.Since(now)), 10)
	dst = append(dst, ",atime="...)
	dst = strconv.AppendUint(dst, uint64(it.AccessedAt.Since(now)), 10)
	return dst
}
