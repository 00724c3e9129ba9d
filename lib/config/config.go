// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Mictronics/mesh-observer/lib/cron"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "MESH_OBSERVER_CONFIG"

// Config is the observer configuration shared by all binaries.
type Config struct {
	// Database is the SQLite file path.
	Database string `yaml:"database"`

	// Source selects the daemon's line input. Exactly one of its
	// fields may be set; all empty means stdin.
	Source SourceConfig `yaml:"source"`

	// Socket is the control socket path the daemon listens on.
	Socket string `yaml:"socket"`

	// CaptureDir enables raw-line capture into the given directory
	// when non-empty.
	CaptureDir string `yaml:"capture_dir"`

	// Report configures scheduled report generation.
	Report ReportConfig `yaml:"report"`

	// Timezone is an IANA zone name for report bucketing and the
	// schedule evaluation, or "Local". Empty means UTC.
	Timezone string `yaml:"timezone"`

	// Catalog is an optional JSONC file adding packet-type names.
	Catalog string `yaml:"catalog"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// SourceConfig selects the daemon's line input.
type SourceConfig struct {
	// Serial is a tty device path, e.g. /dev/ttyACM0.
	Serial string `yaml:"serial"`

	// Journal is a systemd unit name to follow, e.g. meshtasticd.
	Journal string `yaml:"journal"`

	// File is a log file to read to EOF.
	File string `yaml:"file"`

	// Stdin reads standard input.
	Stdin bool `yaml:"stdin"`
}

// ReportConfig configures scheduled report generation.
type ReportConfig struct {
	// Dir receives the generated report files. Empty disables the
	// scheduler.
	Dir string `yaml:"dir"`

	// Hourly is the cron expression for the summary run.
	Hourly string `yaml:"hourly"`

	// Daily is the cron expression for the full report run.
	Daily string `yaml:"daily"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: "network.sqlite3",
		Socket:   "/run/mesh-observer.sock",
		Report: ReportConfig{
			Hourly: "10 * * * *",
			Daily:  "59 23 * * *",
		},
		Timezone: "Local",
		LogLevel: "info",
	}
}

// Load reads the file named by MESH_OBSERVER_CONFIG. An unset
// variable yields the defaults, not an error; the daemon can run
// entirely from flags.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads one YAML file over the defaults. Unknown keys are
// errors.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database path is required")
	}

	selected := 0
	if c.Source.Serial != "" {
		selected++
	}
	if c.Source.Journal != "" {
		selected++
	}
	if c.Source.File != "" {
		selected++
	}
	if c.Source.Stdin {
		selected++
	}
	if selected > 1 {
		return fmt.Errorf("source: at most one of serial, journal, file, stdin")
	}

	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	for name, expression := range map[string]string{
		"report.hourly": c.Report.Hourly,
		"report.daily":  c.Report.Daily,
	} {
		if expression == "" {
			continue
		}
		if _, err := cron.Parse(expression); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Level parses the configured log level.
func (c *Config) Level() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", c.LogLevel)
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "":
		return time.UTC, nil
	case "Local":
		return time.Local, nil
	}
	location, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return location, nil
}
