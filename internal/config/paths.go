package config

import (
	"os"
	"path/filepath"
)

// VigilPath returns the root directory for Vigil data.
// It uses $VIGIL_PATH if set, otherwise defaults to ~/.vigil.
func VigilPath() string {
	if v := os.Getenv("VIGIL_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".vigil")
	}
	return filepath.Join(home, ".vigil")
}

// ConfigPath returns the path to the Vigil config file.
func ConfigPath() string {
	return filepath.Join(VigilPath(), "config.jsonc")
}

// HeartbeatPath returns the path to the daemon heartbeat file.
func HeartbeatPath() string {
	return filepath.Join(VigilPath(), "heartbeat.json")
}
