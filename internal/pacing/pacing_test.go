package pacing

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Initial != 2*time.Second {
		t.Errorf("Initial = %v, want 2s", cfg.Initial)
	}
	if cfg.Floor != 1*time.Second {
		t.Errorf("Floor = %v, want 1s", cfg.Floor)
	}
	if cfg.Ceiling != 10*time.Second {
		t.Errorf("Ceiling = %v, want 10s", cfg.Ceiling)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Initial: time.Second, Floor: time.Second, Ceiling: 10 * time.Second}, false},
		{"zero initial", Config{Initial: 0, Floor: time.Second, Ceiling: 10 * time.Second}, true},
		{"negative initial", Config{Initial: -time.Second, Floor: time.Second, Ceiling: 10 * time.Second}, true},
		{"zero floor", Config{Initial: time.Second, Floor: 0, Ceiling: 10 * time.Second}, true},
		{"ceiling below floor", Config{Initial: time.Second, Floor: 2 * time.Second, Ceiling: time.Second}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tc.wantErr)
			}
		})
	}
}

func TestSuccessHalvesWithoutFloor(t *testing.T) {
	c := NewController(DefaultConfig())

	prev := c.Delay()
	for i := 0; i < 20; i++ {
		got := c.Success()
		if got != prev/2 {
			t.Fatalf("success %d: delay = %v, want %v", i, got, prev/2)
		}
		if got < 0 {
			t.Fatalf("success %d: delay went negative: %v", i, got)
		}
		prev = got
	}

	// Halving is allowed to pass below the backoff floor.
	if c.Delay() >= time.Second {
		t.Errorf("delay = %v, expected shrink below 1s after 20 successes", c.Delay())
	}
}

func TestFailureDoublesWithClamp(t *testing.T) {
	c := NewController(DefaultConfig())

	// 2s -> 4s -> 8s -> 10s -> 10s ...
	want := []time.Duration{4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}
	for i, w := range want {
		if got := c.Failure(); got != w {
			t.Errorf("failure %d: delay = %v, want %v", i, got, w)
		}
	}
}

func TestFailureCeilingHolds(t *testing.T) {
	c := NewController(DefaultConfig())

	for i := 0; i < 50; i++ {
		if got := c.Failure(); got > 10*time.Second {
			t.Fatalf("failure %d: delay = %v exceeds ceiling", i, got)
		}
	}
	if c.Delay() != 10*time.Second {
		t.Errorf("delay = %v, want pinned at ceiling", c.Delay())
	}
}

func TestFailureAfterSuccessesSnapsToFloor(t *testing.T) {
	c := NewController(DefaultConfig())

	// Shrink far below the floor, then fail once.
	for i := 0; i < 10; i++ {
		c.Success()
	}
	if c.Delay() >= time.Second {
		t.Fatalf("setup: delay = %v, expected below floor", c.Delay())
	}

	if got := c.Failure(); got != time.Second {
		t.Errorf("first failure after successes: delay = %v, want floor 1s", got)
	}
}

func TestFailuresMonotonicallyNonDecreasing(t *testing.T) {
	c := NewController(DefaultConfig())

	prev := c.Delay()
	for i := 0; i < 10; i++ {
		got := c.Failure()
		if got < prev {
			t.Fatalf("failure %d: delay decreased from %v to %v", i, prev, got)
		}
		prev = got
	}
}

func TestMixedOutcomes(t *testing.T) {
	c := NewController(DefaultConfig())

	c.Success() // 1s
	c.Success() // 500ms
	c.Failure() // max(1s, 1s) = 1s
	c.Failure() // 2s
	c.Success() // 1s

	if c.Delay() != time.Second {
		t.Errorf("delay = %v, want 1s", c.Delay())
	}
}
