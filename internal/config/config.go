package config

import (
	"time"

	"github.com/vigil-agent/vigil/internal/mode"
)

// Config is the root configuration for Vigil.
type Config struct {
	DefaultMode          string                `json:"default_mode"`
	Modes                map[string]ModeConfig `json:"modes"`
	ModesDir             string                `json:"modes_dir,omitempty"`
	TransitionRules      []RuleConfig          `json:"transition_rules"`
	GlobalHooks          []string              `json:"global_hooks,omitempty"`
	AllowManualSwitching bool                  `json:"allow_manual_switching"`
	ModeMemory           ModeMemoryConfig      `json:"mode_memory"`
	Watchdog             WatchdogConfig        `json:"watchdog"`
	Events               EventsConfig          `json:"events"`
	Gateway              GatewayConfig         `json:"gateway"`
	Schedules            []ScheduleConfig      `json:"schedules,omitempty"`
}

// ModeConfig describes a single operating mode. Modes can live inline in the
// main config or as standalone YAML documents in modes_dir.
type ModeConfig struct {
	DisplayName      string   `json:"display_name" yaml:"display_name"`
	Description      string   `json:"description" yaml:"description"`
	Hertz            float64  `json:"hertz" yaml:"hertz"`
	TimeoutSeconds   int      `json:"timeout_seconds,omitempty" yaml:"timeout_seconds"`
	Inputs           []string `json:"inputs,omitempty" yaml:"inputs"`
	Actions          []string `json:"actions,omitempty" yaml:"actions"`
	OnEnter          []string `json:"on_enter,omitempty" yaml:"on_enter"`
	OnExit           []string `json:"on_exit,omitempty" yaml:"on_exit"`
	SystemPromptBase string   `json:"system_prompt_base,omitempty" yaml:"system_prompt_base"`
}

// RuleConfig describes one transition rule, in declaration order.
type RuleConfig struct {
	FromMode        string   `json:"from_mode"`
	ToMode          string   `json:"to_mode"`
	TransitionType  string   `json:"transition_type"`
	TriggerKeywords []string `json:"trigger_keywords,omitempty"`
	Priority        int      `json:"priority"`
	CooldownSeconds int      `json:"cooldown_seconds,omitempty"`
}

// ModeMemoryConfig configures last-mode persistence.
type ModeMemoryConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"` // default: $VIGIL_PATH/mode-memory.db
}

// WatchdogConfig configures the timeout watchdog.
type WatchdogConfig struct {
	Interval Duration `json:"interval,omitempty"`
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize int    `json:"buffer_size"`
	LogDir     string `json:"log_dir,omitempty"` // default: $VIGIL_PATH/logs
}

// GatewayConfig holds the operator HTTP server settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// ScheduleConfig describes a cron-scheduled mode switch.
type ScheduleConfig struct {
	Cron   string `json:"cron"`
	ToMode string `json:"to_mode"`
}

// ModeSystem converts the loaded config into the immutable mode system
// descriptor consumed by the manager.
func (c *Config) ModeSystem() *mode.SystemConfig {
	modes := make(map[string]*mode.Mode, len(c.Modes))
	for name, mc := range c.Modes {
		modes[name] = &mode.Mode{
			Name:             name,
			DisplayName:      mc.DisplayName,
			Description:      mc.Description,
			Hertz:            mc.Hertz,
			TimeoutSeconds:   mc.TimeoutSeconds,
			Inputs:           mc.Inputs,
			Actions:          mc.Actions,
			OnEnter:          mc.OnEnter,
			OnExit:           mc.OnExit,
			SystemPromptBase: mc.SystemPromptBase,
		}
	}

	rules := make([]mode.TransitionRule, 0, len(c.TransitionRules))
	for _, rc := range c.TransitionRules {
		rules = append(rules, mode.TransitionRule{
			From:            rc.FromMode,
			To:              rc.ToMode,
			Type:            mode.TransitionType(rc.TransitionType),
			Keywords:        rc.TriggerKeywords,
			Priority:        rc.Priority,
			CooldownSeconds: rc.CooldownSeconds,
		})
	}

	return &mode.SystemConfig{
		DefaultMode:          c.DefaultMode,
		Modes:                modes,
		Rules:                rules,
		GlobalHooks:          c.GlobalHooks,
		AllowManualSwitching: c.AllowManualSwitching,
		MemoryEnabled:        c.ModeMemory.Enabled,
	}
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
