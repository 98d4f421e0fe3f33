package session

import (
	"fmt"
	"time"
)

// Config holds simulation parameters.
type Config struct {
	// TickIntervalMS is the wall-clock duration of one progress second,
	// in milliseconds. Tests shrink it to keep runs fast.
	TickIntervalMS int `json:"tick_interval_ms"`
	// DefaultDurationSec is the total session length when the caller does
	// not supply one.
	DefaultDurationSec int `json:"default_duration_sec"`
}

// SetDefaults applies sane defaults: 1s ticks, 60s sessions.
func (c *Config) SetDefaults() {
	if c.TickIntervalMS <= 0 {
		c.TickIntervalMS = 1000
	}
	if c.DefaultDurationSec <= 0 {
		c.DefaultDurationSec = 60
	}
}

// Validate checks configuration sanity.
func (c Config) Validate() error {
	if c.TickIntervalMS < 0 {
		return fmt.Errorf("tick_interval_ms must not be negative")
	}
	if c.DefaultDurationSec < 0 {
		return fmt.Errorf("default_duration_sec must not be negative")
	}
	return nil
}

// TickInterval returns the tick cadence as a duration.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}
