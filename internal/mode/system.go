package mode

import (
	"context"
	"fmt"
	"time"
)

// SystemConfig is the loaded mode-system configuration: the mode map, the
// ordered rule list, global hooks, and feature flags. It is treated as
// immutable; hot reload swaps in a whole new value.
type SystemConfig struct {
	DefaultMode          string
	Modes                map[string]*Mode
	Rules                []TransitionRule
	GlobalHooks          []string
	AllowManualSwitching bool
	MemoryEnabled        bool
}

// Validate checks internal consistency and resolves every referenced hook
// name against the registry, so a bad config fails at load time instead of
// mid-transition.
func (c *SystemConfig) Validate(hooks *HookRegistry) error {
	if len(c.Modes) == 0 {
		return fmt.Errorf("no modes defined")
	}
	if _, ok := c.Modes[c.DefaultMode]; !ok {
		return fmt.Errorf("default mode %q: %w", c.DefaultMode, ErrUnknownMode)
	}

	for name, m := range c.Modes {
		if m.Name != name {
			return fmt.Errorf("mode map key %q does not match mode name %q", name, m.Name)
		}
		if _, err := hooks.Resolve(m.OnEnter); err != nil {
			return fmt.Errorf("mode %q enter hooks: %w", name, err)
		}
		if _, err := hooks.Resolve(m.OnExit); err != nil {
			return fmt.Errorf("mode %q exit hooks: %w", name, err)
		}
	}

	for i, r := range c.Rules {
		if r.From != Wildcard {
			if _, ok := c.Modes[r.From]; !ok {
				return fmt.Errorf("rule %d from_mode %q: %w", i, r.From, ErrUnknownMode)
			}
		}
		if _, ok := c.Modes[r.To]; !ok {
			return fmt.Errorf("rule %d to_mode %q: %w", i, r.To, ErrUnknownMode)
		}
		switch r.Type {
		case TransitionManual, TransitionInputTriggered, TransitionTimeout:
		default:
			return fmt.Errorf("rule %d: invalid transition type %q", i, r.Type)
		}
		if r.Type == TransitionInputTriggered && len(r.Keywords) == 0 {
			return fmt.Errorf("rule %d: input_triggered rule has no trigger keywords", i)
		}
	}

	if _, err := hooks.Resolve(c.GlobalHooks); err != nil {
		return fmt.Errorf("global hooks: %w", err)
	}

	return nil
}

// MemoryStore persists the last active mode so the agent can resume it
// after a restart. Persistence is best-effort; errors are logged, not fatal.
type MemoryStore interface {
	Save(ctx context.Context, mode string, at time.Time) error
	Load(ctx context.Context) (string, time.Time, error)
}
