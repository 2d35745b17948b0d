// Package topkeys tracks the hottest keys of a key-value server in bounded
// memory, whatever the key cardinality, and reports them with per-key
// statistics.
//
// Design
//
//   - Storage: a tracker owns an arena of item slots addressed by
//     policy.Handle, a map from key to handle, and a circular doubly linked
//     order list threaded through the arena. The map and the list always
//     hold the same keys; the number of tracked keys never exceeds Capacity.
//
//   - Policies: exactly one strategy per tracker, chosen at construction.
//     Recency (exact LRU, the default), Lossy Counting, Space-Saving and
//     Count-Min-Sketch-assisted tracking are built in (see the policy
//     subpackages). The counting policies keep the list sorted by
//     ascending counter, so the coldest item is always at the head.
//
//   - Concurrency: one mutex per tracker guards the map, the list and the
//     policy state. Options.Shards > 1 splits keys over independent
//     trackers; ranking is then per shard.
//
//   - Time: callers pass the server's relative clock (RelTime) on every
//     call. Ages are computed against it and never go negative.
//
//   - Stats: Tracker.Stats emits one memcached-style stat value per key,
//     head to tail; Tracker.Snapshot returns copies ranked hottest first.
//
// Basic usage
//
//	t, err := topkeys.New(topkeys.Options{Capacity: 100, Kind: policy.SpaceSaving})
//	if err != nil {
//	    return err
//	}
//	defer t.Close()
//	t.Update([]byte("user:42"), now, topkeys.GetHits)
//	for _, it := range t.Snapshot() {
//	    fmt.Println(it.Key, it.Counter, it.Error)
//	}
//
// Count-Min-Sketch needs sketch dimensions:
//
//	t, err := topkeys.New(topkeys.Options{
//	    Capacity: 100,
//	    Kind:     policy.CountMinSketch,
//	    Sketch:   topkeys.SketchDims{Depth: 4, Width: 1024},
//	})
//
// Build with -tags topkeys_debug to verify the whole structure after every
// mutating call.
package topkeys
