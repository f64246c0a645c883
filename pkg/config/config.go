// Package config loads the service configuration from YAML with
// environment-variable overrides for deployment-specific values.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/utterly-ai/utterly/pkg/trace"
	"github.com/utterly-ai/utterly/pkg/vad"
)

// Environment overrides, applied after the YAML file is parsed.
const (
	EnvAddr          = "UTTERLY_ADDR"
	EnvLogLevel      = "UTTERLY_LOG_LEVEL"
	EnvTraceExporter = "UTTERLY_TRACE_EXPORTER"
)

// Config is the top-level service configuration.
type Config struct {
	// Addr is the listen address of the websocket server.
	Addr string `yaml:"addr"`

	// LogLevel is a zerolog level name (trace, debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// Device is the preferred capture device ID; empty selects the default.
	Device string `yaml:"device"`

	// Trace configures span export.
	Trace trace.Config `yaml:"trace"`

	// VAD is the initial capture configuration; clients can replace it at
	// runtime.
	VAD vad.Config `yaml:"vad"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Addr:     "127.0.0.1:8098",
		LogLevel: "info",
		Trace:    trace.DefaultConfig(),
		VAD:      vad.DefaultConfig(),
	}
}

// Load reads the YAML configuration at path, applies environment
// overrides and validates the result. A missing file is not an error;
// defaults are used.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		applyEnv(cfg)
		return cfg, cfg.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment
// overrides and validates the result. Useful in tests where configs are
// built from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvTraceExporter); v != "" {
		cfg.Trace.ExporterType = v
	}
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("config: addr must not be empty"))
	}

	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: unknown log_level %q", c.LogLevel))
	}

	switch c.Trace.ExporterType {
	case "none", "stdout", "otlp", "":
	default:
		errs = append(errs, fmt.Errorf("config: unknown trace exporter %q", c.Trace.ExporterType))
	}

	if err := c.VAD.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
