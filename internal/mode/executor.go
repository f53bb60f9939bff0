package mode

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vigil-agent/vigil/internal/events"
)

// guard is the single-flight mutual exclusion covering a whole transition.
// It is acquired before the transitioning flag is raised and released only
// after the flag is cleared, so hook execution, the pointer swap, and
// persistence all happen inside one critical section. Contenders fail fast
// instead of queueing.
type guard struct {
	mu sync.Mutex
}

func (g *guard) tryAcquire() bool {
	return g.mu.TryLock()
}

func (g *guard) release() {
	g.mu.Unlock()
}

// Result reports the outcome of a committed transition. HookErr is set when
// an enter or global hook failed after the mode swap was already committed;
// the swap is not rolled back in that case.
type Result struct {
	Transitioned bool            `json:"transitioned"`
	From         string          `json:"from"`
	To           string          `json:"to"`
	Rule         *TransitionRule `json:"rule,omitempty"`
	HookErr      error           `json:"-"`
}

// transition performs one mode switch. The caller must hold the guard for
// the entire call.
//
// Exit hooks run first; any failure aborts with the current mode unchanged.
// The pointer swap happens only after all exit hooks succeed. Enter and
// global hooks run after the swap and their failures are surfaced without
// rolling it back. The rule's last-fired timestamp updates only at the end,
// after the transition committed.
func (m *Manager) transition(ctx context.Context, to string, rule *TransitionRule, ruleIdx int, trigger events.Event) (*Result, error) {
	m.mu.RLock()
	target, ok := m.sys.Modes[to]
	from := m.current
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTarget, to)
	}
	if target.Name == from.Name {
		// Self-transition: still runs hooks and resets the mode clock.
		slog.Debug("self transition", "mode", to)
	}

	m.setTransitioning(true)

	hctx := HookContext{From: from.Name, To: to, Trigger: trigger}

	if err := m.runHooks(ctx, PhaseExit, from.OnExit, from.Name, hctx); err != nil {
		// Abort: no partial swap. The transitioning flag is cleared inside
		// the same critical section.
		m.setTransitioning(false)
		m.publishFailure(from.Name, to, err)
		return nil, err
	}

	now := time.Now()
	m.mu.Lock()
	m.previous = from.Name
	m.current = target
	m.enteredAt = now
	m.publishStatusLocked(true)
	m.mu.Unlock()

	var hookErr error
	if err := m.runHooks(ctx, PhaseEnter, target.OnEnter, target.Name, hctx); err != nil {
		// The swap is already committed and stands; see Result.HookErr for
		// the enter-hook asymmetry.
		hookErr = err
		slog.Error("enter hook failed, mode change stands", "mode", target.Name, "error", err)
	}

	m.mu.RLock()
	globals := m.sys.GlobalHooks
	memory := m.sys.MemoryEnabled
	m.mu.RUnlock()

	if err := m.runHooks(ctx, PhaseGlobal, globals, target.Name, hctx); err != nil {
		if hookErr == nil {
			hookErr = err
		}
		slog.Error("global transition hook failed", "mode", target.Name, "error", err)
	}

	if memory && m.store != nil {
		if err := m.store.Save(ctx, target.Name, now); err != nil {
			slog.Warn("persist mode memory", "mode", target.Name, "error", err)
		}
	}

	m.mu.Lock()
	if rule != nil {
		m.lastFired[ruleIdx] = now
	}
	// Clearing the transitioning flag is the final state change before the
	// guard is released.
	m.publishStatusLocked(false)
	m.mu.Unlock()

	slog.Info("mode changed", "from", from.Name, "to", target.Name, "trigger", trigger.Type)
	if m.bus != nil {
		m.bus.Publish(events.NewEvent(events.EventModeChanged, events.SourceManager, map[string]any{
			"from":    from.Name,
			"to":      target.Name,
			"trigger": string(trigger.Type),
		}))
	}

	return &Result{
		Transitioned: true,
		From:         from.Name,
		To:           target.Name,
		Rule:         rule,
		HookErr:      hookErr,
	}, nil
}

func (m *Manager) setTransitioning(v bool) {
	m.mu.Lock()
	m.publishStatusLocked(v)
	m.mu.Unlock()
}

func (m *Manager) publishFailure(from, to string, err error) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(events.NewEvent(events.EventTransitionFailed, events.SourceManager, map[string]any{
		"from":  from,
		"to":    to,
		"error": err.Error(),
	}))
}

func (m *Manager) runHooks(ctx context.Context, phase HookPhase, names []string, modeName string, hctx HookContext) error {
	for _, name := range names {
		h := m.hooks.Get(name)
		if h == nil {
			// Names are validated at load time; a miss here means the
			// registry changed underneath the active config.
			return &HookError{Phase: phase, Hook: name, Mode: modeName, Err: fmt.Errorf("hook not registered")}
		}
		if err := runHook(ctx, h, modeName, hctx); err != nil {
			return &HookError{Phase: phase, Hook: name, Mode: modeName, Err: err}
		}
	}
	return nil
}

// runHook invokes a single hook, converting panics into errors so a
// misbehaving hook cannot crash the manager.
func runHook(ctx context.Context, h Hook, modeName string, hctx HookContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panicked: %v", r)
		}
	}()
	return h.Execute(ctx, modeName, hctx)
}
