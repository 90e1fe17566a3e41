// Package config holds process configuration for the acrex binaries. Values
// come from an optional YAML file, then ACREX_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "console"
	DefaultListenAddress    = "127.0.0.1:8080"
	DefaultShutdownTimeout  = 10 * time.Second
	DefaultMetricsNamespace = "acrex"
)

// Config is the full process configuration.
type Config struct {
	Rules   RulesConfig   `yaml:"rules"`
	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// RulesConfig selects the rule set. An empty File means the embedded
// reference rules.
type RulesConfig struct {
	File string `yaml:"file" envconfig:"FILE"`
}

type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

type ServerConfig struct {
	ListenAddress   string        `yaml:"listen_address" envconfig:"LISTEN_ADDRESS"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" envconfig:"ENABLED"`
	Namespace string `yaml:"namespace" envconfig:"NAMESPACE"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
}

// Load reads path (skipped when empty), applies defaults and environment
// overrides, then validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(cfg)

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	sections := []struct {
		prefix string
		spec   interface{}
	}{
		{"ACREX_RULES", &cfg.Rules},
		{"ACREX_LOG", &cfg.Log},
		{"ACREX_SERVER", &cfg.Server},
		{"ACREX_METRICS", &cfg.Metrics},
	}
	for _, s := range sections {
		if err := envconfig.Process(s.prefix, s.spec); err != nil {
			return fmt.Errorf("environment overrides for %s: %w", s.prefix, err)
		}
	}
	return nil
}

// FieldError is a validation failure for one configuration field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every FieldError found.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Error()
	}
	return fmt.Sprintf("configuration validation failed with %d errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Validate returns a ValidationError when any field is invalid.
func Validate(cfg *Config) error {
	var errs []FieldError

	switch strings.ToLower(cfg.Log.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		errs = append(errs, FieldError{Field: "log.level", Message: fmt.Sprintf("unknown level %q", cfg.Log.Level)})
	}
	switch cfg.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, FieldError{Field: "log.format", Message: fmt.Sprintf("must be console or json, got %q", cfg.Log.Format)})
	}
	if cfg.Server.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "cannot be empty"})
	}
	if cfg.Server.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "cannot be negative"})
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Namespace == "" {
		errs = append(errs, FieldError{Field: "metrics.namespace", Message: "cannot be empty when metrics are enabled"})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
