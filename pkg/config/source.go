package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultEnvPrefix prefixes every environment variable read by EnvSource.
const DefaultEnvPrefix = "EVENTSTACK_"

// Load priorities of the built-in sources. A custom source slotted between
// two of them overrides the lower one and is overridden by the higher one.
const (
	PriorityDefaults = 10
	PriorityFile     = 20
	PriorityEnv      = 30
	PriorityFlags    = 40
)

// ConfigSource feeds values into the koanf instance built by Load and Reload.
// Sources are applied in ascending Priority order, so a later source wins on
// conflicting keys.
type ConfigSource interface {
	// Name identifies the source in error messages.
	Name() string
	Priority() int
	Load(k *koanf.Koanf) error
}

// DefaultSource contributes DefaultConfig.
type DefaultSource struct{}

func (*DefaultSource) Name() string  { return "defaults" }
func (*DefaultSource) Priority() int { return PriorityDefaults }

func (*DefaultSource) Load(k *koanf.Koanf) error {
	return wrapLoad("defaults", k.Load(confmap.Provider(DefaultConfigAsMap(), "."), nil))
}

// FileSource reads a YAML config file. An empty Path or a missing file
// contributes nothing.
type FileSource struct {
	Path string
}

func (s *FileSource) Name() string { return "file:" + s.Path }
func (*FileSource) Priority() int  { return PriorityFile }

func (s *FileSource) Load(k *koanf.Koanf) error {
	if s.Path == "" {
		return nil
	}
	if _, err := os.Stat(s.Path); errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("stat config file %s: %w", s.Path, err)
	}
	return wrapLoad("config file "+s.Path, k.Load(file.Provider(s.Path), yaml.Parser()))
}

// EnvSource maps prefixed environment variables onto config keys. A double
// underscore starts a nested key; single underscores are part of the name:
//
//	EVENTSTACK_LOG__LEVEL=debug         -> log.level
//	EVENTSTACK_BUS__LOG_EVENTS=true     -> bus.log_events
//	EVENTSTACK_BUS__TRACING__ENABLED=1  -> bus.tracing.enabled
type EnvSource struct {
	Prefix string // defaults to DefaultEnvPrefix
}

func (*EnvSource) Name() string  { return "env" }
func (*EnvSource) Priority() int { return PriorityEnv }

func (s *EnvSource) Load(k *koanf.Koanf) error {
	prefix := s.Prefix
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	keyOf := func(name string) string {
		name = strings.ToLower(strings.TrimPrefix(name, prefix))
		return strings.ReplaceAll(name, "__", ".")
	}
	return wrapLoad("environment", k.Load(env.Provider(prefix, ".", keyOf), nil))
}

// FlagSource applies command-line flags whose names match config keys.
// Unchanged flags only fill keys no lower source has set.
type FlagSource struct {
	Flags *pflag.FlagSet
	// Debug forces log.level to debug.
	Debug bool
}

func (*FlagSource) Name() string  { return "flags" }
func (*FlagSource) Priority() int { return PriorityFlags }

func (s *FlagSource) Load(k *koanf.Koanf) error {
	if s.Flags != nil {
		if err := k.Load(posflag.Provider(s.Flags, ".", k), nil); err != nil {
			return wrapLoad("flags", err)
		}
	}
	if s.Debug {
		return k.Set("log.level", "debug")
	}
	return nil
}

// DefaultSources returns defaults, file, env and flags sources.
func DefaultSources(configPath string, flags *pflag.FlagSet, debug bool) []ConfigSource {
	return []ConfigSource{
		&DefaultSource{},
		&FileSource{Path: configPath},
		&EnvSource{Prefix: DefaultEnvPrefix},
		&FlagSource{Flags: flags, Debug: debug},
	}
}

func wrapLoad(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("load %s: %w", what, err)
}
