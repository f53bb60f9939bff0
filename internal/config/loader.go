package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/marcozac/go-jsonc"
	"gopkg.in/yaml.v3"
)

var envTemplateRe = regexp.MustCompile(`\$\{\{\s*\.Env\.(\w+)\s*\}\}`)

// Load reads a JSONC config file, strips comments, expands ${{ .Env.VAR }}
// templates, unmarshals it into Config, applies defaults, and merges any
// standalone mode documents from modes_dir.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variable templates (before stripping, since templates are in strings)
	expanded := expandEnvTemplates(string(data))

	var cfg Config
	if err := jsonc.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if cfg.ModesDir != "" {
		if err := loadModesDir(&cfg, cfg.ModesDir); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// expandEnvTemplates replaces ${{ .Env.VAR }} with the env var value.
func expandEnvTemplates(s string) string {
	return envTemplateRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envTemplateRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
}

// applyDefaults fills in zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = "127.0.0.1"
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 18530
	}
	if cfg.Events.BufferSize == 0 {
		cfg.Events.BufferSize = 1024
	}
	if cfg.Events.LogDir == "" {
		cfg.Events.LogDir = filepath.Join(VigilPath(), "logs")
	}
	if cfg.ModeMemory.Path == "" {
		cfg.ModeMemory.Path = filepath.Join(VigilPath(), "mode-memory.db")
	}
	if cfg.Modes == nil {
		cfg.Modes = make(map[string]ModeConfig)
	}
}

// modeDocument is a standalone mode definition in modes_dir: one YAML file
// per mode, the ModeConfig fields plus a required name.
type modeDocument struct {
	Name       string `yaml:"name"`
	ModeConfig `yaml:",inline"`
}

// loadModesDir scans dir for *.yaml/*.yml mode documents and merges them
// into the mode map. A mode already defined inline is a config error, not a
// silent override.
func loadModesDir(cfg *Config, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("modes directory not found, skipping", "dir", dir)
			return nil
		}
		return fmt.Errorf("read modes dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read mode file %s: %w", path, err)
		}

		var doc modeDocument
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("unmarshal mode file %s: %w", path, err)
		}
		if doc.Name == "" {
			return fmt.Errorf("mode file %s: missing name", path)
		}
		if _, exists := cfg.Modes[doc.Name]; exists {
			return fmt.Errorf("mode file %s: mode %q already defined", path, doc.Name)
		}

		cfg.Modes[doc.Name] = doc.ModeConfig
	}

	return nil
}
