// pkg/hook/manager.go
// Package hook provides a lightweight lifecycle extension mechanism.
// Hooks are registered for named lifecycle points and triggered by the AppManager.
package hook

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// Lifecycle points triggered by core.AppManager.
const (
	OnStart    = "onStart"
	OnStop     = "onStop"
	OnShutdown = "onShutdown"
)

// HookFunc represents a function that can be triggered by a hook event.
type HookFunc func(ctx context.Context)

// Manager stores and manages hooks for different named events.
type Manager struct {
	mu        sync.RWMutex
	hooks     map[string][]HookFunc
	triggered map[string]int
	logger    zerolog.Logger
}

// NewManager creates and returns a new hook manager.
func NewManager() *Manager {
	return NewManagerWithLogger(zerolog.Nop())
}

// NewManagerWithLogger creates a hook manager that reports recovered panics to logger.
func NewManagerWithLogger(logger zerolog.Logger) *Manager {
	return &Manager{
		hooks:     make(map[string][]HookFunc),
		triggered: make(map[string]int),
		logger:    logger,
	}
}

// Register adds a hook function to a named event. Nil functions are ignored.
func (m *Manager) Register(event string, fn HookFunc) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks[event] = append(m.hooks[event], fn)
}

// Trigger calls all hooks registered to a named event in registration order
// and returns once they have finished. A panicking hook is logged and does not
// stop the remaining hooks. Hooks may register further hooks; those run on
// the next Trigger.
func (m *Manager) Trigger(ctx context.Context, event string) {
	m.mu.Lock()
	m.triggered[event]++
	hooks := slices.Clone(m.hooks[event])
	m.mu.Unlock()

	for _, fn := range hooks {
		m.run(ctx, event, fn)
	}
}

func (m *Manager) run(ctx context.Context, event string, fn HookFunc) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().
				Str("hook", event).
				Interface("panic", r).
				Msg("Lifecycle hook panicked")
		}
	}()
	fn(ctx)
}

// IsTriggered checks if a specific event has been triggered.
func (m *Manager) IsTriggered(event string) bool {
	return m.TriggerCount(event) > 0
}

// TriggerCount reports how many times event has been triggered.
func (m *Manager) TriggerCount(event string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.triggered[event]
}
