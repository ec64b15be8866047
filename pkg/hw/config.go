package hw

import (
	"fmt"
	"os"
	"strconv"
)

// SimConfig holds tunable parameters for the simulated counter pair.
// Values can be set via:
//  1. Code (programmatic configuration)
//  2. Environment variables (TIMEBASE_*)
//
// Precedence: Code > Env Vars > Defaults
type SimConfig struct {
	// TickHz is the nominal tick rate the simulation stands in for. It only
	// affects reporting (tick<->time conversion); the simulation itself is
	// driven tick by tick.
	TickHz uint32 `env:"TIMEBASE_TICK_HZ" default:"32768"`

	// StartCount positions the low counter at startup. Useful for
	// exercising the rollover path early.
	StartCount uint16 `env:"TIMEBASE_START_COUNT" default:"0"`

	// AdvanceBatch is how many ticks a driver loop advances per iteration.
	AdvanceBatch uint32 `env:"TIMEBASE_ADVANCE_BATCH" default:"64"`
}

// DefaultSimConfig returns a configuration with sensible defaults.
// 32768 Hz matches the usual low-speed crystal feeding this class of timer.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		TickHz:       32768,
		StartCount:   0,
		AdvanceBatch: 64,
	}
}

// LoadSimConfigFromEnv loads configuration from environment variables.
// Returns a SimConfig with defaults, overridden by any TIMEBASE_* vars found.
func LoadSimConfigFromEnv() (SimConfig, error) {
	cfg := DefaultSimConfig()

	if v := os.Getenv("TIMEBASE_TICK_HZ"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil && n > 0 {
			cfg.TickHz = uint32(n)
		}
	}
	if v := os.Getenv("TIMEBASE_START_COUNT"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 16); err == nil {
			cfg.StartCount = uint16(n)
		}
	}
	if v := os.Getenv("TIMEBASE_ADVANCE_BATCH"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil && n > 0 {
			cfg.AdvanceBatch = uint32(n)
		}
	}

	return cfg, cfg.Validate()
}

// Validate checks that configuration values are sensible.
func (c *SimConfig) Validate() error {
	if c.TickHz == 0 {
		return fmt.Errorf("tick rate must be > 0")
	}
	if c.AdvanceBatch == 0 {
		return fmt.Errorf("advance batch must be > 0")
	}
	return nil
}

// String returns a human-readable summary of the configuration.
func (c *SimConfig) String() string {
	return fmt.Sprintf("SimConfig{TickHz: %d, StartCount: %d, AdvanceBatch: %d}",
		c.TickHz, c.StartCount, c.AdvanceBatch)
}
