package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var errTracingEndpoint = errors.New("bus.tracing.endpoint is required when tracing is enabled")

// Validate checks a configuration against its field constraints.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Bus.Tracing.Enabled && cfg.Bus.Tracing.Endpoint == "" {
		return fmt.Errorf("invalid configuration: %w", errTracingEndpoint)
	}
	return nil
}
