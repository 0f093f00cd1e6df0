// Package config provides configuration management for lattice.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// ConfigSuite is a test suite for config operations.
type ConfigSuite struct {
	suite.Suite
	tempDir string
}

func (s *ConfigSuite) SetupTest() {
	s.tempDir = s.T().TempDir()
	for _, key := range []string{
		"LATTICE_HOST", "LATTICE_PORT", "LATTICE_SESSION_TTL_MINUTES",
		"LATTICE_SWEEP_SECONDS", "LATTICE_TESSELLATION_QUALITY", "LATTICE_LOG_LEVEL",
	} {
		os.Unsetenv(key)
	}
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

// TestDefault tests default configuration values.
func (s *ConfigSuite) TestDefault() {
	cfg := Default()

	s.Equal(DefaultHost, cfg.Host)
	s.Equal(DefaultPort, cfg.Port)
	s.Equal(DefaultSessionTTLMinutes, cfg.SessionTTLMinutes)
	s.Equal(DefaultSweepSeconds, cfg.SweepSeconds)
	s.Equal(DefaultTessellationQuality, cfg.TessellationQuality)
	s.Equal(DefaultLogLevel, cfg.LogLevel)
}

// TestLoad_TableDriven tests configuration loading with various scenarios.
func (s *ConfigSuite) TestLoad_TableDriven() {
	tests := []struct {
		name        string
		yaml        string
		env         map[string]string
		expectedErr bool
		check       func(cfg *Config)
	}{
		{
			name: "no config file",
			check: func(cfg *Config) {
				s.Equal(DefaultPort, cfg.Port)
			},
		},
		{
			name: "custom port from file",
			yaml: "port: 9100\n",
			check: func(cfg *Config) {
				s.Equal(9100, cfg.Port)
				s.Equal(DefaultHost, cfg.Host)
			},
		},
		{
			name: "ttl disabled",
			yaml: "session_ttl_minutes: 0\n",
			check: func(cfg *Config) {
				s.Equal(time.Duration(0), cfg.SessionTTL())
			},
		},
		{
			name: "env overrides file",
			yaml: "port: 9100\nhost: 10.0.0.1\n",
			env:  map[string]string{"LATTICE_PORT": "9200"},
			check: func(cfg *Config) {
				s.Equal(9200, cfg.Port)
				s.Equal("10.0.0.1", cfg.Host)
			},
		},
		{
			name: "malformed env ignored",
			env:  map[string]string{"LATTICE_PORT": "not-a-number"},
			check: func(cfg *Config) {
				s.Equal(DefaultPort, cfg.Port)
			},
		},
		{
			name:        "invalid yaml",
			yaml:        "port: [broken\n",
			expectedErr: true,
		},
		{
			name:        "invalid port rejected",
			yaml:        "port: -1\n",
			expectedErr: true,
		},
		{
			name:        "invalid quality rejected",
			yaml:        "tessellation_quality: -0.5\n",
			expectedErr: true,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			path := ""
			if tt.yaml != "" {
				path = filepath.Join(s.tempDir, tt.name+".yaml")
				s.Require().NoError(os.WriteFile(path, []byte(tt.yaml), 0600))
			}
			for k, v := range tt.env {
				s.T().Setenv(k, v)
			}

			cfg, err := Load(path)
			if tt.expectedErr {
				s.Error(err)
				return
			}
			s.Require().NoError(err)
			tt.check(cfg)

			for k := range tt.env {
				os.Unsetenv(k)
			}
		})
	}
}

// TestLoad_MissingFile tests that a nonexistent path falls back to defaults.
func (s *ConfigSuite) TestLoad_MissingFile() {
	cfg, err := Load(filepath.Join(s.tempDir, "does-not-exist.yaml"))
	s.Require().NoError(err)
	s.Equal(DefaultPort, cfg.Port)
}

// TestDurations tests duration accessors.
func TestDurations(t *testing.T) {
	cfg := &Config{SessionTTLMinutes: 5, SweepSeconds: 30}
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL())
	assert.Equal(t, 30*time.Second, cfg.SweepInterval())
}

// TestAddr tests the listen address format.
func TestAddr(t *testing.T) {
	cfg := &Config{Host: "0.0.0.0", Port: 8650}
	assert.Equal(t, "0.0.0.0:8650", cfg.Addr())
}
