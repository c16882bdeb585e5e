// Package pacing implements the adaptive inter-probe delay for the prober.
//
// The delay reacts asymmetrically to cycle outcomes: a success halves it
// with no lower bound, so the prober recovers to fast probing after a single
// reply, while a failure doubles it, clamped into [Floor, Ceiling]. The
// floor applies only on the failure branch: once acks stop arriving the
// delay snaps back to at least Floor even if successes had shrunk it far
// below, and the ceiling keeps sustained loss from stalling the loop.
package pacing

import (
	"fmt"
	"time"
)

// Config contains the pacing parameters.
type Config struct {
	// Initial is the delay before the first adjustment.
	Initial time.Duration

	// Floor is the minimum delay while backing off.
	Floor time.Duration

	// Ceiling is the maximum delay while backing off.
	Ceiling time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Initial: 2 * time.Second,
		Floor:   1 * time.Second,
		Ceiling: 10 * time.Second,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Initial <= 0 {
		return fmt.Errorf("pacing: initial delay must be positive, got %v", c.Initial)
	}
	if c.Floor <= 0 {
		return fmt.Errorf("pacing: floor must be positive, got %v", c.Floor)
	}
	if c.Ceiling < c.Floor {
		return fmt.Errorf("pacing: ceiling %v must be >= floor %v", c.Ceiling, c.Floor)
	}
	return nil
}

// Controller owns the current delay. It is mutated once per pacing cycle by
// a single loop and is not safe for concurrent use.
type Controller struct {
	cfg   Config
	delay time.Duration
}

// NewController creates a controller starting at the configured initial delay.
func NewController(cfg Config) *Controller {
	return &Controller{cfg: cfg, delay: cfg.Initial}
}

// Delay returns the current inter-probe delay.
func (c *Controller) Delay() time.Duration {
	return c.delay
}

// Success records an acknowledged cycle and halves the delay. There is no
// floor on this branch; repeated successes shrink the delay toward zero.
func (c *Controller) Success() time.Duration {
	c.delay /= 2
	return c.delay
}

// Failure records an unacknowledged cycle and doubles the delay, clamped
// into [Floor, Ceiling]. Clamping to the floor also pulls the delay back up
// after a run of successes, so a loss streak never leaves the loop spinning
// without sleeping.
func (c *Controller) Failure() time.Duration {
	d := c.delay * 2
	if d < c.cfg.Floor {
		d = c.cfg.Floor
	}
	if d > c.cfg.Ceiling {
		d = c.cfg.Ceiling
	}
	c.delay = d
	return c.delay
}
