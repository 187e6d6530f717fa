// pkg/config/types.go
package config

// Config is the root configuration structure for eventstack.
type Config struct {
	Log LogConfig `description:"Logging configuration" koanf:"log"`
	Bus BusConfig `description:"Event bus configuration" koanf:"bus"`
}

// LogConfig holds logging related configuration.
type LogConfig struct {
	Level   string `description:"Log level" koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format  string `description:"Log format: json | text" koanf:"format" validate:"oneof=text json"`
	NoColor bool   `description:"Disable colored console output" koanf:"no_color"`
}

// BusConfig holds the host-side switches around the event stack.
type BusConfig struct {
	// LogEvents subscribes the event logger to every published event.
	LogEvents bool `description:"Log every published event" koanf:"log_events"`
	// ClearOnStop clears every scope when the host stops a run.
	ClearOnStop bool `description:"Clear all scopes when a run stops" koanf:"clear_on_stop"`
	// MaxDepth caps the scopes a scenario may push above the base scope (0 = unlimited).
	MaxDepth int `description:"Maximum scope depth, 0 for unlimited" koanf:"max_depth" validate:"gte=0"`

	Tracing TracingConfig `description:"Publish tracing" koanf:"tracing"`
}

// TracingConfig controls OpenTelemetry spans for PublishEvent.
type TracingConfig struct {
	Enabled  bool   `description:"Export publish spans" koanf:"enabled"`
	Endpoint string `description:"OTLP/HTTP endpoint URL" koanf:"endpoint" validate:"omitempty,url"`
}
