package config

import (
	"strings"
	"testing"

	"github.com/marmos91/remotefs/internal/bytesize"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"Defaults", func(*Config) {}, ""},
		{"InvalidLogLevel", func(c *Config) { c.Logging.Level = "INVALID" }, "oneof"},
		{"InvalidLogFormat", func(c *Config) { c.Logging.Format = "xml" }, "oneof"},
		{"SampleRateAboveOne", func(c *Config) { c.Telemetry.SampleRate = 1.5 }, "lte"},
		{"TelemetryWithoutEndpoint", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = ""
		}, "endpoint is required"},
		{"ProfilingWithoutEndpoint", func(c *Config) {
			c.Telemetry.Profiling.Enabled = true
			c.Telemetry.Profiling.Endpoint = ""
		}, "endpoint is required"},
		{"MetricsPortOutOfRange", func(c *Config) { c.Metrics.Port = 70000 }, "max"},
		{"UnknownNetwork", func(c *Config) { c.Server.Network = "udp" }, "oneof"},
		{"MissingAddress", func(c *Config) { c.Server.Address = "" }, "required"},
		{"RelativeUnixSocket", func(c *Config) {
			c.Server.Network = "unix"
			c.Server.Address = "rfsd.sock"
		}, "must be absolute"},
		{"AbsoluteUnixSocket", func(c *Config) {
			c.Server.Network = "unix"
			c.Server.Address = "/run/rfsd.sock"
		}, ""},
		{"NegativeMaxRequests", func(c *Config) { c.Server.MaxRequests = -1 }, "gte"},
		{"FrameSizeTooLarge", func(c *Config) { c.Server.MaxFrameSize = 4 * bytesize.GiB }, "record limit"},
		{"ZeroShutdownTimeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }, "required"},
		{"UnknownProvider", func(c *Config) { c.Provider.Type = "s3" }, "oneof"},
		{"LocalWithoutRoot", func(c *Config) { c.Provider = ProviderConfig{Type: "local"} }, "required for the local provider"},
		{"LocalRelativeRoot", func(c *Config) { c.Provider = ProviderConfig{Type: "local", Root: "data"} }, "absolute path"},
		{"LocalAbsoluteRoot", func(c *Config) { c.Provider = ProviderConfig{Type: "local", Root: "/srv/export"} }, ""},
		{"MemoryWithRoot", func(c *Config) { c.Provider.Root = "/srv" }, "not used"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected config to validate, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected validation error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_ErrorNamesField(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Network = "udp"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if !strings.Contains(err.Error(), "Config.Server.Network") {
		t.Errorf("Expected error to name the field, got: %v", err)
	}
}
