// Package paths resolves per-user locations used by the CLI.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// ConfigFileName is the name of the default configuration file.
const ConfigFileName = "config.yaml"

// ConfigDir returns the config directory for eventstack.
// Order: XDG_CONFIG_HOME/eventstack, platform-specific fallback.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "eventstack")
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("AppData"); appData != "" {
			return filepath.Join(appData, "eventstack")
		}
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "eventstack")
}

// DefaultConfigFile returns the config file loaded when --config is not given.
func DefaultConfigFile() string {
	return filepath.Join(ConfigDir(), ConfigFileName)
}
