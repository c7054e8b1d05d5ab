// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the configuration file for Load.
const EnvironmentVariable = "SIMPLON_CONFIG"

// Config is the complete tool configuration.
type Config struct {
	Detector DetectorConfig `yaml:"detector"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DetectorConfig addresses the detector's control server.
type DetectorConfig struct {
	// Host is the control server's host name or address. Required.
	Host string `yaml:"host"`

	// Port of the control server. Default: 80.
	Port int `yaml:"port"`

	// APIVersion selects the REST API version. Default: 1.8.0.
	APIVersion string `yaml:"api_version"`

	// PoolSize is the number of pooled connections. Default: 4.
	PoolSize int `yaml:"pool_size"`

	ConnectTimeout Duration `yaml:"connect_timeout"`
	RequestTimeout Duration `yaml:"request_timeout"`

	// PollInterval is the pause between file existence probes.
	PollInterval Duration `yaml:"poll_interval"`

	// AcceptGzip requests gzip-encoded file downloads.
	AcceptGzip bool `yaml:"accept_gzip"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string `yaml:"level"`

	// Format is text, json, or auto. Auto writes text to a terminal
	// and JSON otherwise. Default: auto.
	Format string `yaml:"format"`
}

// Duration is a time.Duration read from a Go duration string.
type Duration time.Duration

// UnmarshalYAML parses strings such as "1s" or "250ms".
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return fmt.Errorf("line %d: duration must be a string such as \"1s\"", node.Line)
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration used for fields a file omits.
func Default() *Config {
	return &Config{
		Detector: DetectorConfig{
			Port:           80,
			APIVersion:     "1.8.0",
			PoolSize:       4,
			ConnectTimeout: Duration(time.Second),
			RequestTimeout: Duration(20 * time.Second),
			PollInterval:   Duration(10 * time.Millisecond),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load reads the file named by SIMPLON_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your simplon.yaml, or use --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile reads the configuration at path over the defaults and
// expands variables. Callers apply their overrides and then call
// Validate.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse reads YAML configuration over the defaults. The result is not
// validated.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Detector.Host = expandVars(cfg.Detector.Host)
	return cfg, nil
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces ${VAR} and ${VAR:-default} with environment
// values.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"auto", "text", "json"}
)

// Validate reports every inconsistent value.
func (c *Config) Validate() error {
	var errs []error

	if c.Detector.Host == "" {
		errs = append(errs, errors.New("detector.host is required"))
	}
	if c.Detector.Port <= 0 || c.Detector.Port > 65535 {
		errs = append(errs, fmt.Errorf("detector.port %d out of range", c.Detector.Port))
	}
	if c.Detector.APIVersion == "" {
		errs = append(errs, errors.New("detector.api_version is required"))
	}
	if c.Detector.PoolSize <= 0 {
		errs = append(errs, fmt.Errorf("detector.pool_size must be positive, got %d", c.Detector.PoolSize))
	}
	durations := []struct {
		name  string
		value Duration
	}{
		{"detector.connect_timeout", c.Detector.ConnectTimeout},
		{"detector.request_timeout", c.Detector.RequestTimeout},
		{"detector.poll_interval", c.Detector.PollInterval},
	}
	for _, duration := range durations {
		if duration.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", duration.name, duration.value.Std()))
		}
	}

	if !slices.Contains(logLevels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: %v", logLevels))
	}
	if !slices.Contains(logFormats, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of: %v", logFormats))
	}

	return errors.Join(errs...)
}

// SlogLevel returns the configured level for log/slog.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
