// Package config provides configuration management for lattice.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultHost                = "127.0.0.1"
	DefaultPort                = 8650
	DefaultSessionTTLMinutes   = 30
	DefaultSweepSeconds        = 60
	DefaultTessellationQuality = 0.1
	DefaultLogLevel            = "info"
)

// Config holds every runtime setting. Values come from defaults, overridden
// by a yaml file, overridden by LATTICE_* environment variables.
type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Session lifecycle. TTL of 0 disables idle expiry.
	SessionTTLMinutes int `yaml:"session_ttl_minutes"`
	SweepSeconds      int `yaml:"sweep_seconds"`

	// Kernel deflection tolerance used when a request omits quality.
	TessellationQuality float64 `yaml:"tessellation_quality"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:                DefaultHost,
		Port:                DefaultPort,
		SessionTTLMinutes:   DefaultSessionTTLMinutes,
		SweepSeconds:        DefaultSweepSeconds,
		TessellationQuality: DefaultTessellationQuality,
		LogLevel:            DefaultLogLevel,
	}
}

// Load reads configuration from the given yaml file, then applies
// environment overrides. A missing file is not an error; a malformed file
// is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Defaults + env only.
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from LATTICE_* environment variables. Malformed
// numeric values are ignored.
func (c *Config) applyEnv() {
	if v := os.Getenv("LATTICE_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("LATTICE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Port = port
		}
	}
	if v := os.Getenv("LATTICE_SESSION_TTL_MINUTES"); v != "" {
		if ttl, err := strconv.Atoi(v); err == nil && ttl >= 0 {
			c.SessionTTLMinutes = ttl
		}
	}
	if v := os.Getenv("LATTICE_SWEEP_SECONDS"); v != "" {
		if s, err := strconv.Atoi(v); err == nil && s > 0 {
			c.SweepSeconds = s
		}
	}
	if v := os.Getenv("LATTICE_TESSELLATION_QUALITY"); v != "" {
		if q, err := strconv.ParseFloat(v, 64); err == nil && q > 0 {
			c.TessellationQuality = q
		}
	}
	if v := os.Getenv("LATTICE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.SessionTTLMinutes < 0 {
		return fmt.Errorf("invalid session ttl %d", c.SessionTTLMinutes)
	}
	if c.SweepSeconds <= 0 {
		return fmt.Errorf("invalid sweep interval %d", c.SweepSeconds)
	}
	if c.TessellationQuality <= 0 {
		return fmt.Errorf("invalid tessellation quality %g", c.TessellationQuality)
	}
	return nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SessionTTL returns the idle session TTL as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// SweepInterval returns the reaper sweep interval as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepSeconds) * time.Second
}
