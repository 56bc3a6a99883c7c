package telemetry

// Config holds the tracing settings of one rfsd process.
type Config struct {
	Enabled bool

	// ServiceName and ServiceVersion identify the process in the trace backend.
	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP gRPC collector address (host:port).
	Endpoint string

	// Insecure disables TLS towards the collector.
	Insecure bool

	// SampleRate is the fraction of root spans kept, clamped to [0, 1].
	SampleRate float64

	// Provider and Store describe the file store being served. They are
	// attached to every span as resource attributes.
	Provider string
	Store    string
}

// ProfilingConfig holds the Pyroscope settings of one rfsd process.
type ProfilingConfig struct {
	Enabled bool

	ServiceName    string
	ServiceVersion string

	// Endpoint is the Pyroscope server URL.
	Endpoint string

	// ProfileTypes names the profiles to collect. See profileTypes for the
	// accepted names.
	ProfileTypes []string

	// Provider and Store become profile tags.
	Provider string
	Store    string
}

// DefaultConfig returns tracing disabled with a local collector endpoint.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "rfsd",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}
