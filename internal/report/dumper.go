package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jedisct1/dlog"

	"github.com/IvanBrykalov/hotkeys/topkeys"
)

// Dumper periodically appends the STAT view of a tracker to a writer,
// typically a rotating log file.
type Dumper struct {
	Tracker  topkeys.Tracker
	Out      io.Writer
	Interval time.Duration
	// Clock returns the tracker's relative time.
	Clock func() topkeys.RelTime
}

// Run dumps every Interval until ctx is done. Write errors are logged and
// the next tick tries again.
func (d *Dumper) Run(ctx context.Context) error {
	if d.Interval <= 0 {
		return fmt.Errorf("report: dump interval must be > 0, got %v", d.Interval)
	}
	tick := time.NewTicker(d.Interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ts := <-tick.C:
			if err := d.DumpOnce(ts); err != nil {
				dlog.Warnf("topkeys dump failed: %v", err)
			}
		}
	}
}

// DumpOnce writes a timestamp header and the current STAT lines.
func (d *Dumper) DumpOnce(ts time.Time) error {
	if _, err := fmt.Fprintf(d.Out, "# %s tracked=%d\r\n", ts.UTC().Format(time.RFC3339), d.Tracker.Len()); err != nil {
		return err
	}
	return WriteStats(d.Out, d.Tracker, d.Clock())
}
