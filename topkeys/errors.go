package topkeys

import (
	"fmt"

	"github.com/jedisct1/dlog"

	"github.com/IvanBrykalov/hotkeys/policy"
)

type constError string

func (e constError) Error() string { return string(e) }

const (
	// ErrInvalidConfiguration is returned by New for unusable Options.
	ErrInvalidConfiguration = constError("invalid configuration")
	// ErrInvalidKey is returned for empty or over-long keys.
	ErrInvalidKey = constError("invalid key")
	// ErrInvalidOp is returned by Update for an unknown operation counter.
	ErrInvalidOp = constError("invalid operation")
	// ErrClosed is returned by every call made after Close.
	ErrClosed = constError("tracker closed")
	// ErrStop may be returned by a Sink to end a Stats walk early.
	// Stats then returns nil.
	ErrStop = constError("stop")
)

// ErrOutOfMemory is returned when a new item cannot be allocated. The index
// and the order list are untouched. The access itself is still counted: the
// miss counter, Metrics.Miss and the policy's Observe state (Lossy stream
// length, Count-Min sketch) already include it.
const ErrOutOfMemory = policy.ErrOutOfMemory

// InvariantViolation is the panic value raised when the order list or the
// index is found corrupted. It is never returned as an error.
type InvariantViolation struct {
	Op     string
	Handle policy.Handle
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("topkeys: invariant violated in %s (handle %d): %s", e.Op, e.Handle, e.Detail)
}

func invariantf(op string, h policy.Handle, format string, args ...any) {
	v := &InvariantViolation{Op: op, Handle: h, Detail: fmt.Sprintf(format, args...)}
	dlog.Critical(v.Error())
	panic(v)
}
