// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads typebind configuration.
//
// Configuration is layered: the embedded default.yaml, then an optional
// YAML file, then environment variables. The result is validated before it
// is returned.
//
// Thread Safety:
//
//	Load has no shared state. A returned Config must not be mutated while
//	other goroutines read it.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gopkg.in/yaml.v3"
)

// MaxYAMLFileSize is the largest accepted configuration file (1MB).
const MaxYAMLFileSize = 1024 * 1024

// Environment variables that override file settings.
const (
	EnvPort      = "TYPEBIND_PORT"
	EnvHost      = "TYPEBIND_HOST"
	EnvLogLevel  = "TYPEBIND_LOG_LEVEL"
	EnvCacheDir  = "TYPEBIND_CACHE_DIR"
	EnvTraces    = "TYPEBIND_TRACES"
	EnvAllowRoot = "TYPEBIND_ALLOWED_ROOTS"
)

//go:embed default.yaml
var defaultYAML []byte

var configLoadErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "typebind_config_load_errors_total",
	Help: "Total configuration load errors",
})

// ErrConfigTooLarge is returned for configuration files above MaxYAMLFileSize.
var ErrConfigTooLarge = errors.New("config file too large")

// ErrInvalidConfig wraps validation failures.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Service   ServiceConfig   `yaml:"service"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host" validate:"required"`
	Port         int           `yaml:"port" validate:"min=1,max=65535"`
	RateLimit    float64       `yaml:"rate_limit" validate:"gte=0"`
	RateBurst    int           `yaml:"rate_burst" validate:"gte=0"`
	ReadTimeout  time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// ServiceConfig configures universe building and caching.
type ServiceConfig struct {
	MaxInitDuration    time.Duration `yaml:"max_init_duration" validate:"gt=0"`
	MaxProjectFiles    int           `yaml:"max_project_files" validate:"min=1"`
	MaxProjectSize     int64         `yaml:"max_project_size" validate:"min=1"`
	MaxCachedUniverses int           `yaml:"max_cached_universes" validate:"min=1"`
	UniverseTTL        time.Duration `yaml:"universe_ttl" validate:"gte=0"`
	ParseWorkers       int           `yaml:"parse_workers" validate:"gte=0"`
	MemoCapacity       int           `yaml:"memo_capacity" validate:"min=1"`
	IncludeStubs       bool          `yaml:"include_stubs"`
	AllowedRoots       []string      `yaml:"allowed_roots" validate:"dive,required"`
	Excludes           []string      `yaml:"excludes" validate:"dive,required"`
}

// StorageConfig configures the parse result store.
type StorageConfig struct {
	// CacheDir holds the on-disk store. Empty disables persistence unless
	// InMemory is set.
	CacheDir string `yaml:"cache_dir"`
	InMemory bool   `yaml:"in_memory"`
}

// Enabled reports whether a store should be opened.
func (s StorageConfig) Enabled() bool {
	return s.CacheDir != "" || s.InMemory
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json auto"`
	Dir    string `yaml:"dir"`
}

// TelemetryConfig selects OpenTelemetry exporters.
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name" validate:"required"`
	Traces      string `yaml:"traces" validate:"oneof=none stdout otlp"`
	Metrics     string `yaml:"metrics" validate:"oneof=none stdout prometheus"`
}

// WatchConfig configures source watching.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
}

// Default returns the embedded default configuration.
func Default() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultYAML, cfg); err != nil {
		panic(fmt.Sprintf("embedded default.yaml is invalid: %v", err))
	}
	return cfg
}

// Load builds the effective configuration.
//
// Description:
//
//	Starts from the embedded defaults, overlays path when non-empty, applies
//	environment overrides and validates the result.
//
// Inputs:
//   - path: Optional YAML file. Keys absent from the file keep their defaults.
//
// Outputs:
//   - *Config: The validated configuration.
//   - error: ErrConfigTooLarge, a read or YAML error, or ErrInvalidConfig.
func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		configLoadErrors.Inc()
		return nil, err
	}
	return cfg, nil
}

func load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat config: %w", err)
		}
		if info.Size() > MaxYAMLFileSize {
			return nil, fmt.Errorf("%w: %s is %d bytes (max %d)", ErrConfigTooLarge, path, info.Size(), MaxYAMLFileSize)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables read through lookup.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, EnvPort, v)
		}
		cfg.Server.Port = port
	}
	if v, ok := lookup(EnvHost); ok && v != "" {
		cfg.Server.Host = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v, ok := lookup(EnvCacheDir); ok {
		cfg.Storage.CacheDir = v
	}
	if v, ok := lookup(EnvTraces); ok && v != "" {
		cfg.Telemetry.Traces = strings.ToLower(v)
	}
	if v, ok := lookup(EnvAllowRoot); ok && v != "" {
		cfg.Service.AllowedRoots = strings.Split(v, string(os.PathListSeparator))
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
