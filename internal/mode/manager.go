package mode

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vigil-agent/vigil/internal/events"
)

// ManagerConfig holds dependencies for the mode manager.
type ManagerConfig struct {
	System *SystemConfig
	Hooks  *HookRegistry // nil means an empty registry
	Store  MemoryStore   // nil disables persistence
	Bus    *events.Bus   // nil disables event emission
}

// Manager is the public facade over the mode system. It exclusively owns the
// mutable state; everything else observes through lock-free snapshots.
type Manager struct {
	guard guard
	hooks *HookRegistry
	store MemoryStore
	bus   *events.Bus

	// mu protects the fields below. They are mutated only while the guard
	// is also held (transitions and hot reload are the only writers).
	mu        sync.RWMutex
	sys       *SystemConfig
	engine    *Engine
	current   *Mode
	previous  string
	enteredAt time.Time
	lastFired map[int]time.Time

	status atomic.Pointer[Status]
}

// NewManager validates the config against the hook registry and builds a
// manager. When mode memory is enabled and a persisted last mode still
// exists in the config, the manager resumes it instead of the default mode.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.System == nil {
		return nil, fmt.Errorf("nil system config")
	}

	hooks := cfg.Hooks
	if hooks == nil {
		hooks = NewHookRegistry()
	}
	if err := cfg.System.Validate(hooks); err != nil {
		return nil, fmt.Errorf("validate mode config: %w", err)
	}

	m := &Manager{
		hooks:     hooks,
		store:     cfg.Store,
		bus:       cfg.Bus,
		sys:       cfg.System,
		engine:    NewEngine(cfg.System.Rules),
		lastFired: make(map[int]time.Time),
	}

	initial := cfg.System.DefaultMode
	if cfg.System.MemoryEnabled && m.store != nil {
		last, at, err := m.store.Load(context.Background())
		switch {
		case err != nil:
			slog.Warn("load mode memory", "error", err)
		case last != "":
			if _, ok := cfg.System.Modes[last]; ok {
				initial = last
				slog.Info("resuming last mode", "mode", last, "saved_at", at)
			}
		}
	}

	m.current = cfg.System.Modes[initial]
	m.enteredAt = time.Now()

	m.mu.Lock()
	m.publishStatusLocked(false)
	m.mu.Unlock()

	return m, nil
}

// HandleEvent routes a trigger event through the rule engine and, on a
// match, executes the transition under the guard. Returns (nil, nil) when
// no rule matches (including cooldown suppression), and
// ErrTransitionInProgress when another transition holds the guard.
func (m *Manager) HandleEvent(ctx context.Context, ev events.Event) (*Result, error) {
	switch ev.Type {
	case events.EventTriggerManual:
		return m.directSwitch(ctx, ev, true)
	case events.EventTriggerSchedule:
		// Schedule entries are config-authored, so they bypass the manual
		// switching gate the same way rule-driven transitions do.
		return m.directSwitch(ctx, ev, false)
	case events.EventTriggerKeyword, events.EventTriggerTimeout:
	default:
		return nil, nil
	}

	// Lock-free fast path: selection is pure, so a non-matching event never
	// touches the guard.
	m.mu.RLock()
	rule, _ := m.engine.SelectRule(m.current.Name, ev, m.lastFired, time.Now())
	m.mu.RUnlock()
	if rule == nil {
		return nil, nil
	}

	if !m.guard.tryAcquire() {
		return nil, ErrTransitionInProgress
	}
	defer m.guard.release()

	// Re-select under the guard: the mode or cooldowns may have changed
	// between the fast-path match and acquisition.
	m.mu.RLock()
	rule, idx := m.engine.SelectRule(m.current.Name, ev, m.lastFired, time.Now())
	m.mu.RUnlock()
	if rule == nil {
		return nil, nil
	}

	return m.transition(ctx, rule.To, rule, idx, ev)
}

// RequestManualSwitch forces a switch to the named mode, bypassing keyword
// and cooldown matching. Honored only when manual switching is enabled;
// still serialized through the guard.
func (m *Manager) RequestManualSwitch(ctx context.Context, to string) (*Result, error) {
	ev := events.NewEvent(events.EventTriggerManual, events.SourceOperator, map[string]any{"to_mode": to})
	return m.directSwitch(ctx, ev, true)
}

func (m *Manager) directSwitch(ctx context.Context, ev events.Event, gated bool) (*Result, error) {
	to := ev.TargetMode()
	if to == "" {
		return nil, fmt.Errorf("%w: no target mode in %s event", ErrInvalidTarget, ev.Type)
	}

	if gated {
		m.mu.RLock()
		allowed := m.sys.AllowManualSwitching
		m.mu.RUnlock()
		if !allowed {
			return nil, ErrManualSwitchingDisabled
		}
	}

	if !m.guard.tryAcquire() {
		return nil, ErrTransitionInProgress
	}
	defer m.guard.release()

	return m.transition(ctx, to, nil, -1, ev)
}

// Status returns a lock-free snapshot of the mode system. It never blocks
// on the transition guard, so it is safe to poll at high frequency.
func (m *Manager) Status() Status {
	return *m.status.Load()
}

// HotReload swaps in a new config. The current mode is preserved when it
// still exists in the new config; otherwise the manager falls back to the
// new default mode. Reload is a guarded writer: it fails with
// ErrReloadConflict while a transition is in flight.
func (m *Manager) HotReload(sys *SystemConfig) error {
	if sys == nil {
		return fmt.Errorf("nil system config")
	}
	if err := sys.Validate(m.hooks); err != nil {
		return fmt.Errorf("validate mode config: %w", err)
	}

	if !m.guard.tryAcquire() {
		return ErrReloadConflict
	}
	defer m.guard.release()

	m.mu.Lock()
	currentName := m.current.Name
	m.sys = sys
	m.engine = NewEngine(sys.Rules)
	// Rule identity is the declaration index, which is not stable across
	// configs, so cooldown bookkeeping starts fresh.
	m.lastFired = make(map[int]time.Time)

	if kept, ok := sys.Modes[currentName]; ok {
		m.current = kept
	} else {
		m.previous = currentName
		m.current = sys.Modes[sys.DefaultMode]
		m.enteredAt = time.Now()
	}
	m.publishStatusLocked(false)
	m.mu.Unlock()

	slog.Info("mode config reloaded", "modes", len(sys.Modes), "rules", len(sys.Rules))
	if m.bus != nil {
		m.bus.Publish(events.NewEvent(events.EventConfigReloaded, events.SourceManager, map[string]any{
			"current_mode": m.Status().CurrentMode,
		}))
	}
	return nil
}

// CurrentMode returns the active mode descriptor.
func (m *Manager) CurrentMode() *Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Modes returns all configured modes sorted by name, for operator tooling.
func (m *Manager) Modes() []*Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Mode, 0, len(m.sys.Modes))
	for _, md := range m.sys.Modes {
		result = append(result, md)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Rules returns the active ordered rule table, for operator tooling.
func (m *Manager) Rules() []TransitionRule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.engine.Rules()
}

// publishStatusLocked refreshes the atomic status snapshot. Callers must
// hold m.mu.
func (m *Manager) publishStatusLocked(transitioning bool) {
	st := Status{
		CurrentMode:    m.current.Name,
		DisplayName:    m.current.DisplayName,
		PreviousMode:   m.previous,
		EnteredAt:      m.enteredAt,
		TimeoutSeconds: m.current.TimeoutSeconds,
		Transitioning:  transitioning,
	}
	m.status.Store(&st)
}
