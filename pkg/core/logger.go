// pkg/core/logger.go
package core

import (
	"github.com/vulntor/eventstack/pkg/config"
	"github.com/vulntor/eventstack/pkg/logging"
)

// SetupLogger configures global logging from the loaded configuration.
// It should run before Init so subsystem loggers inherit the settings.
func SetupLogger(cfg config.LogConfig) {
	logging.ConfigureGlobalLogging(cfg.Level, cfg.Format, cfg.NoColor)
}
