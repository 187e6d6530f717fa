// pkg/config/config.go
package config

import (
	"fmt"
	"slices"
	"sync"

	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ChangeFunc is notified after a successful Reload.
type ChangeFunc func(old, updated Config)

// Manager handles loading and accessing application configuration.
type Manager struct {
	mu            sync.RWMutex // protects everything below during runtime reloads
	koanfInstance *koanf.Koanf
	currentConfig Config
	sources       []ConfigSource
	listeners     []ChangeFunc
}

// NewManager creates a Manager holding the default configuration.
func NewManager() *Manager {
	return &Manager{
		koanfInstance: koanf.New("."),
		currentConfig: DefaultConfig(),
	}
}

// DefaultConfig returns a new Config struct populated with hardcoded default values.
// These serve as the baseline configuration if no other sources override them.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Bus: BusConfig{
			LogEvents:   false,
			ClearOnStop: true,
		},
	}
}

// Load loads configuration from defaults, the optional YAML file, EVENTSTACK_
// environment variables and flags, in that order of precedence.
func (m *Manager) Load(flags *pflag.FlagSet, customConfigFilePath string) error {
	debug := false
	if flags != nil {
		if f := flags.Lookup("debug"); f != nil && f.Value.String() == "true" {
			debug = true
		}
	}
	return m.LoadWithSources(DefaultSources(customConfigFilePath, flags, debug))
}

// LoadWithSources loads every source in priority order into a fresh koanf
// instance, then unmarshals and validates the result. The sources are kept
// for Reload.
func (m *Manager) LoadWithSources(sources []ConfigSource) error {
	cfg, k, err := loadSources(sources)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.koanfInstance = k
	m.currentConfig = cfg
	m.sources = sources
	return nil
}

// Reload re-reads the sources given to the last Load and notifies the change
// listeners. On error the current configuration is kept.
func (m *Manager) Reload() error {
	m.mu.RLock()
	sources := m.sources
	m.mu.RUnlock()

	cfg, k, err := loadSources(sources)
	if err != nil {
		return err
	}

	m.mu.Lock()
	old := m.currentConfig
	m.koanfInstance = k
	m.currentConfig = cfg
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(old, cfg)
	}
	return nil
}

// OnChange registers fn to be called after every successful Reload.
func (m *Manager) OnChange(fn ChangeFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentConfig
}

// FilePath returns the path of the file source used by the last Load, if any.
func (m *Manager) FilePath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, src := range m.sources {
		if fs, ok := src.(*FileSource); ok && fs.Path != "" {
			return fs.Path
		}
	}
	return ""
}

func loadSources(sources []ConfigSource) (Config, *koanf.Koanf, error) {
	ordered := slices.Clone(sources)
	slices.SortStableFunc(ordered, func(a, b ConfigSource) int {
		return a.Priority() - b.Priority()
	})

	k := koanf.New(".")
	for _, src := range ordered {
		if err := src.Load(k); err != nil {
			return Config{}, nil, fmt.Errorf("config source %s: %w", src.Name(), err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, nil, fmt.Errorf("error unmarshaling final config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, nil, err
	}
	return cfg, k, nil
}

// DefaultConfigAsMap converts the DefaultConfig struct to a map[string]interface{}
// for Koanf's confmap.Provider.
func DefaultConfigAsMap() map[string]interface{} {
	def := DefaultConfig()
	return map[string]interface{}{
		"log.level":    def.Log.Level,
		"log.format":   def.Log.Format,
		"log.no_color": def.Log.NoColor,

		"bus.log_events":       def.Bus.LogEvents,
		"bus.clear_on_stop":    def.Bus.ClearOnStop,
		"bus.max_depth":        def.Bus.MaxDepth,
		"bus.tracing.enabled":  def.Bus.Tracing.Enabled,
		"bus.tracing.endpoint": def.Bus.Tracing.Endpoint,
	}
}

// BindFlags defines command-line flags corresponding to configuration settings.
// Flag names match koanf keys so the posflag provider maps them directly.
func BindFlags(flags *pflag.FlagSet) {
	var debug bool
	flags.BoolVar(&debug, "debug", false, "Enable debug logging")
	flags.String("log.level", "", "Log level (trace, debug, info, warn, error)")
	flags.String("log.format", "", "Log format (text, json)")
	flags.Bool("bus.log_events", false, "Log every published event")
}
