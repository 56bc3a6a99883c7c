package config

import (
	"strings"
	"time"

	"github.com/marmos91/remotefs/internal/bytesize"
	"github.com/marmos91/remotefs/pkg/remote"
)

// Defaults that are not zero values.
const (
	DefaultNetwork         = "tcp"
	DefaultAddress         = "127.0.0.1:7049"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsPort     = 9090
	DefaultMaxFrameSize    = 4 * bytesize.MiB
)

// ApplyDefaults fills every unset field. Explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyServerDefaults(&cfg.Server)
	applyProviderDefaults(&cfg.Provider)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = DefaultMetricsPort
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Network == "" {
		cfg.Network = DefaultNetwork
	}
	if cfg.Address == "" && cfg.Network == DefaultNetwork {
		cfg.Address = DefaultAddress
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = remote.DefaultMaxRequests
	}
	if cfg.MaxFrameSize == 0 {
		cfg.MaxFrameSize = DefaultMaxFrameSize
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
}

func applyProviderDefaults(cfg *ProviderConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	if cfg.Type == "memory" {
		if cfg.StoreName == "" {
			cfg.StoreName = "memfs"
		}
		if cfg.Capacity == 0 {
			cfg.Capacity = bytesize.GiB
		}
	}
}

// GetDefaultConfig returns a Config with every default applied. It serves
// an in-memory filesystem on the loopback interface.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
