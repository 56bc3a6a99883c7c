package config

import (
	"testing"
	"time"

	"github.com/marmos91/remotefs/internal/bytesize"
	"github.com/marmos91/remotefs/pkg/remote"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_LevelNormalized(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "debug"}}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level 'DEBUG', got %q", cfg.Logging.Level)
	}
}

func TestApplyDefaults_Server(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.Network != "tcp" {
		t.Errorf("Expected default network 'tcp', got %q", cfg.Server.Network)
	}
	if cfg.Server.Address != DefaultAddress {
		t.Errorf("Expected default address %q, got %q", DefaultAddress, cfg.Server.Address)
	}
	if cfg.Server.MaxRequests != remote.DefaultMaxRequests {
		t.Errorf("Expected default max requests %d, got %d", remote.DefaultMaxRequests, cfg.Server.MaxRequests)
	}
	if cfg.Server.MaxFrameSize != 4*bytesize.MiB {
		t.Errorf("Expected default max frame size 4Mi, got %v", cfg.Server.MaxFrameSize)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
}

func TestApplyDefaults_UnixHasNoDefaultAddress(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Network: "unix"}}
	ApplyDefaults(cfg)

	if cfg.Server.Address != "" {
		t.Errorf("Expected no default address for unix sockets, got %q", cfg.Server.Address)
	}
}

func TestApplyDefaults_Provider(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Provider.Type != "memory" {
		t.Errorf("Expected default provider 'memory', got %q", cfg.Provider.Type)
	}
	if cfg.Provider.StoreName != "memfs" {
		t.Errorf("Expected default store name 'memfs', got %q", cfg.Provider.StoreName)
	}
	if cfg.Provider.Capacity != bytesize.GiB {
		t.Errorf("Expected default capacity 1Gi, got %v", cfg.Provider.Capacity)
	}
}

func TestApplyDefaults_MetricsPortOnlyWhenEnabled(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 0 {
		t.Errorf("Expected no metrics port when disabled, got %d", cfg.Metrics.Port)
	}

	cfg = &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Expected metrics port %d, got %d", DefaultMetricsPort, cfg.Metrics.Port)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Level: "ERROR", Format: "json", Output: "stderr"},
		Server: ServerConfig{
			Address:         "0.0.0.0:1",
			MaxRequests:     3,
			MaxFrameSize:    bytesize.KiB,
			ShutdownTimeout: time.Second,
		},
		Provider: ProviderConfig{Type: "memory", StoreName: "custom", Capacity: bytesize.MiB},
	}
	ApplyDefaults(cfg)

	if cfg.Logging.Format != "json" || cfg.Logging.Output != "stderr" {
		t.Errorf("Expected logging to be preserved, got %+v", cfg.Logging)
	}
	if cfg.Server.Address != "0.0.0.0:1" || cfg.Server.MaxRequests != 3 {
		t.Errorf("Expected server to be preserved, got %+v", cfg.Server)
	}
	if cfg.Server.MaxFrameSize != bytesize.KiB || cfg.Server.ShutdownTimeout != time.Second {
		t.Errorf("Expected server limits to be preserved, got %+v", cfg.Server)
	}
	if cfg.Provider.StoreName != "custom" || cfg.Provider.Capacity != bytesize.MiB {
		t.Errorf("Expected provider to be preserved, got %+v", cfg.Provider)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Errorf("Expected default config to validate, got: %v", err)
	}
}
