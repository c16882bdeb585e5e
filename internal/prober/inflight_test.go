package prober

import (
	"testing"
	"time"
)

func TestTrackerMatch(t *testing.T) {
	tr := newTracker()
	sent := time.Now()

	tr.add(5, sent)

	rtt, ok := tr.match(5, sent.Add(3*time.Millisecond))
	if !ok {
		t.Fatal("match(5) = false, want true")
	}
	if rtt != 3*time.Millisecond {
		t.Errorf("rtt = %v, want 3ms", rtt)
	}
	if tr.size() != 0 {
		t.Errorf("size = %d after match, want 0", tr.size())
	}
}

func TestTrackerMatchConsumesEntry(t *testing.T) {
	tr := newTracker()
	tr.add(1, time.Now())

	if _, ok := tr.match(1, time.Now()); !ok {
		t.Fatal("first match failed")
	}
	if _, ok := tr.match(1, time.Now()); ok {
		t.Error("second match succeeded, entry should be consumed")
	}
}

func TestTrackerUnknownSeq(t *testing.T) {
	tr := newTracker()
	tr.add(1, time.Now())

	if _, ok := tr.match(2, time.Now()); ok {
		t.Error("match(2) = true for unknown sequence")
	}
	if tr.size() != 1 {
		t.Errorf("size = %d, want 1 (entry untouched)", tr.size())
	}
}

func TestTrackerDrop(t *testing.T) {
	tr := newTracker()
	tr.add(7, time.Now())

	tr.drop(7)
	if tr.size() != 0 {
		t.Errorf("size = %d after drop, want 0", tr.size())
	}
	if _, ok := tr.match(7, time.Now()); ok {
		t.Error("match succeeded after drop")
	}

	// Dropping an absent entry is a no-op.
	tr.drop(99)
}
