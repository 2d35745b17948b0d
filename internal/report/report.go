// Package report renders a tracker's hot keys for humans and tools:
// memcached-style STAT lines, a JSON view, and a periodic dumper.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/IvanBrykalov/hotkeys/topkeys"
)

// WriteStats writes one "STAT <key> <value>" line per tracked key followed
// by "END", the way a memcached server answers "stats topkeys".
func WriteStats(w io.Writer, tr topkeys.Tracker, now topkeys.RelTime) error {
	bw := bufio.NewWriter(w)
	err := tr.Stats(now, func(key string, value []byte) error {
		bw.WriteString("STAT ")
		bw.WriteString(key)
		bw.WriteByte(' ')
		bw.Write(value)
		_, err := bw.WriteString("\r\n")
		return err
	})
	if err != nil {
		return err
	}
	bw.WriteString("END\r\n")
	return bw.Flush()
}

// Entry is the JSON form of a tracked key.
type Entry struct {
	Rank        int               `json:"rank"`
	Key         string            `json:"key"`
	Counter     uint64            `json:"counter"`
	Error       uint64            `json:"error,omitempty"`
	CreatedAge  uint32            `json:"ctime"`
	AccessedAge uint32            `json:"atime"`
	Ops         map[string]uint64 `json:"ops,omitempty"`
}

// Top is a ranked view of a tracker at one instant.
type Top struct {
	Now      topkeys.RelTime  `json:"now"`
	Tracked  int              `json:"tracked"`
	Counters topkeys.Counters `json:"counters"`
	Keys     []Entry          `json:"keys"`
}

// Snapshot ranks the tracked keys, hottest first, keeping at most limit
// entries (limit <= 0 keeps all). Zero op counters are omitted.
func Snapshot(tr topkeys.Tracker, now topkeys.RelTime, limit int) Top {
	items := tr.Snapshot()
	top := Top{Now: now, Tracked: len(items), Counters: tr.Counters()}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	top.Keys = make([]Entry, len(items))
	for i := range items {
		it := &items[i]
		e := Entry{
			Rank:        i + 1,
			Key:         it.Key,
			Counter:     it.Counter,
			Error:       it.Error,
			CreatedAge:  it.CreatedAt.Since(now),
			AccessedAge: it.AccessedAt.Since(now),
		}
		for op := topkeys.Op(0); int(op) < topkeys.NumOps; op++ {
			if n := it.Ops.Get(op); n > 0 {
				if e.Ops == nil {
					e.Ops = make(map[string]uint64)
				}
				e.Ops[op.String()] = n
			}
		}
		top.Keys[i] = e
	}
	return top
}

// WriteJSON encodes top as indented JSON.
func WriteJSON(w io.Writer, top Top) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(top); err != nil {
		return fmt.Errorf("report: encode: %w", err)
	}
	return nil
}
