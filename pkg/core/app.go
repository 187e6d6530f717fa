// pkg/core/app.go

// Package core holds the AppManager, the single point where the event stack
// and its collaborators (configuration, hooks, event logging, tracing) are
// constructed and torn down.
package core

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vulntor/eventstack/pkg/config"
	"github.com/vulntor/eventstack/pkg/event"
	"github.com/vulntor/eventstack/pkg/eventlog"
	"github.com/vulntor/eventstack/pkg/hook"
	"github.com/vulntor/eventstack/pkg/logging"
	"github.com/vulntor/eventstack/pkg/scenario"
	"github.com/vulntor/eventstack/pkg/telemetry"
	"github.com/vulntor/eventstack/pkg/version"
)

// ErrNotInitialized is returned by operations that need Init to have run.
var ErrNotInitialized = errors.New("core: app manager not initialized")

// AppManager is the central controller for the application's lifecycle.
type AppManager struct {
	ctx    context.Context    // shared context for all subsystems
	cancel context.CancelFunc // cancellation for graceful shutdown

	Config      *config.Manager               // configuration subsystem
	HookManager *hook.Manager                 // lifecycle hooks
	Bus         *event.Stack[string, any]     // the process-wide event stack
	EventLog    *eventlog.Logger[string, any] // log-every-event toggle
	Version     version.Struct                // build metadata

	logger      zerolog.Logger
	shutdownTel func(ctx context.Context) error // flushes publish spans

	mu      sync.Mutex
	running bool

	once    sync.Once // ensures single initialization
	initErr error
}

// NewAppManager creates a new AppManager instance with an isolated context.
// A nil config manager is replaced by one holding the defaults.
func NewAppManager(cfg *config.Manager) *AppManager {
	if cfg == nil {
		cfg = config.NewManager()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &AppManager{
		ctx:    ctx,
		cancel: cancel,
		Config: cfg,
		logger: logging.Component("core"),
	}
}

// Init initializes all subsystems. It runs once; later calls return the
// result of the first.
func (a *AppManager) Init() error {
	a.once.Do(func() {
		a.initErr = a.init()
	})
	return a.initErr
}

func (a *AppManager) init() error {
	cfg := a.Config.Get()

	tp, shutdown, err := telemetry.Setup(a.ctx, cfg.Bus.Tracing)
	if err != nil {
		return err
	}
	a.shutdownTel = shutdown

	a.HookManager = hook.NewManagerWithLogger(logging.Component("hook"))
	a.Bus = event.NewStack[string, any](
		event.WithLogger(logging.Component("event")),
		event.WithTracer(tp.Tracer(event.TracerName)),
	)

	// Subscribe the event logger on the base scope so Push and Pop never drop it.
	styled := cfg.Log.Format != "json" && !cfg.Log.NoColor
	a.EventLog = eventlog.New[string, any](a.Bus.Base(), logging.Component("eventlog"), styled)
	a.EventLog.SetEnabled(cfg.Bus.LogEvents)

	a.Config.OnChange(a.onConfigChange)
	a.Version = version.Get()

	a.logger.Debug().
		Bool("log_events", cfg.Bus.LogEvents).
		Bool("clear_on_stop", cfg.Bus.ClearOnStop).
		Bool("tracing", cfg.Bus.Tracing.Enabled).
		Msg("App manager initialized")
	return nil
}

func (a *AppManager) onConfigChange(old, updated config.Config) {
	if old.Bus.LogEvents != updated.Bus.LogEvents {
		a.EventLog.SetEnabled(updated.Bus.LogEvents)
	}
	if old.Log.Level != updated.Log.Level {
		if level, err := zerolog.ParseLevel(updated.Log.Level); err == nil {
			logging.ConfigureGlobal(level)
		}
	}
}

// Context returns the shared application context.
func (a *AppManager) Context() context.Context {
	return a.ctx
}

// Start marks the beginning of a run: event logging is restored if a previous
// Stop cleared it, then the onStart hooks fire.
func (a *AppManager) Start() error {
	if a.Bus == nil {
		return ErrNotInitialized
	}

	a.mu.Lock()
	a.running = true
	a.mu.Unlock()

	a.EventLog.Resubscribe()
	a.HookManager.Trigger(a.ctx, hook.OnStart)
	return nil
}

// Stop ends a run. The onStop hooks fire first, then every scope is cleared
// when bus.clear_on_stop is set. The stack depth is left untouched.
func (a *AppManager) Stop() error {
	if a.Bus == nil {
		return ErrNotInitialized
	}

	a.mu.Lock()
	wasRunning := a.running
	a.running = false
	a.mu.Unlock()
	if !wasRunning {
		return nil
	}

	a.HookManager.Trigger(a.ctx, hook.OnStop)
	if a.Config.Get().Bus.ClearOnStop {
		a.Bus.Clear()
		a.logger.Debug().Msg("Cleared event scopes on stop")
	}
	return nil
}

// Running reports whether Start was called without a matching Stop.
func (a *AppManager) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// Runner returns a scenario runner bound to the bus and event log.
func (a *AppManager) Runner() (*scenario.Runner, error) {
	if a.Bus == nil {
		return nil, ErrNotInitialized
	}
	return scenario.NewRunner(a.Bus,
		scenario.WithLogger(logging.Component("scenario")),
		scenario.WithEventLog(a.EventLog),
		scenario.WithMaxDepth(a.Config.Get().Bus.MaxDepth),
	), nil
}

// WatchConfig reloads the configuration whenever its file changes, until the
// application context is canceled. It returns immediately; without a config
// file it does nothing.
func (a *AppManager) WatchConfig() error {
	if a.Config.FilePath() == "" {
		return nil
	}
	w, err := config.NewWatcher(a.Config, logging.Component("config"))
	if err != nil {
		return err
	}
	go func() {
		if err := w.Start(a.ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn().Err(err).Msg("Config watcher stopped")
		}
	}()
	return nil
}

// Shutdown stops a running session, fires the onShutdown hooks, cancels the
// shared context and flushes tracing. Only the first call does any work.
func (a *AppManager) Shutdown(ctx context.Context) error {
	if a.Bus != nil {
		if a.HookManager.IsTriggered(hook.OnShutdown) {
			return nil
		}
		_ = a.Stop()
		a.HookManager.Trigger(a.ctx, hook.OnShutdown)
	}
	a.cancel()

	if a.shutdownTel != nil {
		return a.shutdownTel(ctx)
	}
	return nil
}
