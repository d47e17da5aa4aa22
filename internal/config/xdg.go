package config

import (
	"os"
	"path/filepath"
)

// EnvConfigPath overrides the config file location. It may come from a
// .env file loaded at startup.
const EnvConfigPath = "POMO_CONFIG"

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// DefaultConfigPath returns the TOML config path, honouring POMO_CONFIG.
func DefaultConfigPath() string {
	if v := os.Getenv(EnvConfigPath); v != "" {
		return v
	}
	return filepath.Join(XDGConfigHome(), "pomo", "config.toml")
}
