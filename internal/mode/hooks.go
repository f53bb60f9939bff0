package mode

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vigil-agent/vigil/internal/events"
)

// HookContext carries transition details into a lifecycle hook.
type HookContext struct {
	From    string
	To      string
	Trigger events.Event
}

// Hook is a lifecycle callback run on entering or leaving a mode, or
// globally on every transition. Implementations may block on I/O and may
// fail; failures never crash the manager.
type Hook interface {
	Name() string
	Execute(ctx context.Context, mode string, hctx HookContext) error
}

// HookFunc adapts a function to the Hook interface.
type HookFunc struct {
	HookName string
	Fn       func(ctx context.Context, mode string, hctx HookContext) error
}

func (h HookFunc) Name() string { return h.HookName }

func (h HookFunc) Execute(ctx context.Context, mode string, hctx HookContext) error {
	return h.Fn(ctx, mode, hctx)
}

// HookRegistry resolves hook identifiers to executable hooks. Hook names
// referenced by config are validated against the registry at load time so
// unknown names fail fast rather than at transition time.
type HookRegistry struct {
	mu    sync.RWMutex
	hooks map[string]Hook
}

// NewHookRegistry creates an empty hook registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{hooks: make(map[string]Hook)}
}

// Register adds a hook to the registry.
func (r *HookRegistry) Register(h Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.hooks[h.Name()]; exists {
		return fmt.Errorf("hook %q already registered", h.Name())
	}
	r.hooks[h.Name()] = h
	return nil
}

// Get returns the hook with the given name, or nil.
func (r *HookRegistry) Get(name string) Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hooks[name]
}

// Resolve maps hook names to hooks, failing on the first unknown name.
func (r *HookRegistry) Resolve(names []string) ([]Hook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Hook, 0, len(names))
	for _, name := range names {
		h, ok := r.hooks[name]
		if !ok {
			return nil, fmt.Errorf("unknown hook %q", name)
		}
		result = append(result, h)
	}
	return result, nil
}

// Names returns all registered hook names sorted alphabetically.
func (r *HookRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.hooks))
	for name := range r.hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
