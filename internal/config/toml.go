package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file. Every field is a
// pointer so an absent key can be told apart from a zero value.
type FileConfig struct {
	Timer  TimerConfig  `toml:"timer"`
	Client ClientConfig `toml:"client"`
}

// TimerConfig maps the [timer] section.
type TimerConfig struct {
	DefaultMinutes *int  `toml:"default-minutes"`
	Presets        []int `toml:"presets"`
}

// ClientConfig maps the [client] section. Durations use Go syntax ("250ms").
type ClientConfig struct {
	PollInterval   *string `toml:"poll-interval"`
	CommandTimeout *string `toml:"command-timeout"`
	FinishGrace    *string `toml:"finish-grace"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
