package prober

import "time"

// tracker is the in-flight probe set for strict correlation. Entries map a
// sequence number to its send time and are dropped either when a matching
// ack arrives or when the probe's wait window closes. The prober has one
// probe outstanding per cycle, so the map stays tiny; it is a map rather
// than a single slot so a late ack can still be distinguished from noise.
type tracker struct {
	pending map[uint64]time.Time
}

func newTracker() *tracker {
	return &tracker{pending: make(map[uint64]time.Time)}
}

// add records a probe's send time.
func (t *tracker) add(seq uint64, sent time.Time) {
	t.pending[seq] = sent
}

// match consumes the entry for seq and returns the elapsed round-trip time.
// A sequence number with no pending entry reports ok=false.
func (t *tracker) match(seq uint64, now time.Time) (time.Duration, bool) {
	sent, ok := t.pending[seq]
	if !ok {
		return 0, false
	}
	delete(t.pending, seq)
	return now.Sub(sent), true
}

// drop discards the entry for seq, if any. Called when the wait window
// closes without an ack.
func (t *tracker) drop(seq uint64) {
	delete(t.pending, seq)
}

// size returns the number of in-flight entries.
func (t *tracker) size() int {
	return len(t.pending)
}
