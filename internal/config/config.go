// Package config holds runtime settings and the TOML file that feeds them.
package config

import (
	"fmt"
	"time"
)

// Defaults.
const (
	DefaultMinutes        = 25
	DefaultPollInterval   = 100 * time.Millisecond
	DefaultCommandTimeout = 2 * time.Second
	DefaultFinishGrace    = time.Second
	MaxPresets            = 4
)

// DefaultPresets are the quick-pick lengths, in minutes.
var DefaultPresets = []int{5, 15, 25, 45}

// Config is the resolved runtime configuration.
type Config struct {
	Minutes        int
	Presets        []int
	PollInterval   time.Duration
	CommandTimeout time.Duration
	FinishGrace    time.Duration
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Minutes:        DefaultMinutes,
		Presets:        append([]int(nil), DefaultPresets...),
		PollInterval:   DefaultPollInterval,
		CommandTimeout: DefaultCommandTimeout,
		FinishGrace:    DefaultFinishGrace,
	}
}

// Merge overlays the values present in the file onto cfg.
func (cfg *Config) Merge(file FileConfig) error {
	if file.Timer.DefaultMinutes != nil {
		cfg.Minutes = *file.Timer.DefaultMinutes
	}
	if len(file.Timer.Presets) > 0 {
		cfg.Presets = append([]int(nil), file.Timer.Presets...)
	}

	durations := []struct {
		key    string
		value  *string
		target *time.Duration
	}{
		{"client.poll-interval", file.Client.PollInterval, &cfg.PollInterval},
		{"client.command-timeout", file.Client.CommandTimeout, &cfg.CommandTimeout},
		{"client.finish-grace", file.Client.FinishGrace, &cfg.FinishGrace},
	}
	for _, d := range durations {
		if d.value == nil {
			continue
		}
		v, err := time.ParseDuration(*d.value)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.target = v
	}
	return nil
}

// Validate checks the resolved values.
func (cfg Config) Validate() error {
	if cfg.Minutes <= 0 {
		return fmt.Errorf("minutes must be positive, got %d", cfg.Minutes)
	}
	if len(cfg.Presets) == 0 || len(cfg.Presets) > MaxPresets {
		return fmt.Errorf("expected 1 to %d presets, got %d", MaxPresets, len(cfg.Presets))
	}
	for _, p := range cfg.Presets {
		if p <= 0 {
			return fmt.Errorf("preset must be positive, got %d", p)
		}
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", cfg.PollInterval)
	}
	if cfg.CommandTimeout <= 0 {
		return fmt.Errorf("command timeout must be positive, got %s", cfg.CommandTimeout)
	}
	if cfg.FinishGrace < 0 {
		return fmt.Errorf("finish grace must not be negative, got %s", cfg.FinishGrace)
	}
	return nil
}

// Template is written by `pomo config` when no file exists yet.
func Template() string {
	return fmt.Sprintf(`# pomo configuration
# Uncomment a value to enable it. CLI flags override config values.

[timer]
# default-minutes = %d       # Session length on startup
# presets = [5, 15, 25, 45]  # Quick-pick lengths bound to keys 1-4

[client]
# poll-interval = %q      # How often a running timer is refreshed
# command-timeout = %q       # Per backend call
# finish-grace = %q          # Wait for the completion signal before alerting from a poll
`,
		DefaultMinutes,
		DefaultPollInterval.String(),
		DefaultCommandTimeout.String(),
		DefaultFinishGrace.String(),
	)
}
