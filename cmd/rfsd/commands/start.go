package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/internal/telemetry"
	"github.com/marmos91/remotefs/pkg/config"
	"github.com/marmos91/remotefs/pkg/metrics"
	"github.com/marmos91/remotefs/pkg/metrics/prometheus"
	"github.com/marmos91/remotefs/pkg/remote"
)

var pidFile string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start serving the configured provider",
	Long: `Start rfsd in the foreground with the specified configuration.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/rfsd/config.yaml. While running, edits
to the configuration file are picked up and the log level is reapplied.

Examples:
  # Start with the default config
  rfsd start

  # Start with a custom config file and a PID file
  rfsd start --config /etc/rfsd/config.yaml --pid-file /run/rfsd.pid

  # Start with environment variable overrides
  RFSD_LOGGING_LEVEL=DEBUG RFSD_PROVIDER_TYPE=local RFSD_PROVIDER_ROOT=/srv rfsd start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: none)")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "rfsd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
		Provider:       cfg.Provider.Type,
		Store:          cfg.Provider.StoreName,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("Telemetry shutdown error", logger.KeyError, err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "rfsd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
		Provider:       cfg.Provider.Type,
		Store:          cfg.Provider.StoreName,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("Profiling shutdown error", logger.KeyError, err)
		}
	}()

	configPath := resolveConfigPath(GetConfigFile())
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", configSource(configPath))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	// The registry must exist before NewRemoteMetrics, which returns nil
	// otherwise.
	var remoteMetrics metrics.RemoteMetrics
	var metricsDone chan error
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		remoteMetrics = prometheus.NewRemoteMetrics()

		metricsServer := metrics.NewServer(metrics.ServerConfig{Port: cfg.Metrics.Port})
		metricsDone = make(chan error, 1)
		go func() { metricsDone <- metricsServer.Start(ctx) }()
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}

	provider, closer, err := config.CreateProvider(cfg.Provider)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Error("Provider close error", logger.KeyError, err)
		}
	}()
	logger.Info("Provider ready",
		"type", cfg.Provider.Type, "root", cfg.Provider.Root, "read_only", cfg.Provider.ReadOnly)

	server := remote.NewServer(provider, remote.ServerConfig{
		Network:            cfg.Server.Network,
		Address:            cfg.Server.Address,
		MaxConnections:     cfg.Server.MaxConnections,
		ShutdownTimeout:    cfg.Server.ShutdownTimeout,
		MetricsLogInterval: cfg.Server.MetricsLogInterval,
		Conn: remote.Options{
			MaxRecordSize: uint32(cfg.Server.MaxFrameSize),
			MaxRequests:   cfg.Server.MaxRequests,
			IdleTimeout:   cfg.Server.IdleTimeout,
			Metrics:       remoteMetrics,
		},
	})

	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, func(next *config.Config) {
				logger.SetLevel(next.Logging.Level)
				logger.Info("Log level reapplied", "level", next.Logging.Level)
			})
			if err != nil {
				logger.Warn("Configuration watch stopped", logger.KeyError, err)
			}
		}()
	}

	if pidFile != "" {
		remove, err := writePidFile(pidFile)
		if err != nil {
			return err
		}
		defer remove()
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	var serveErr error
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()
		serveErr = <-serverDone

	case serveErr = <-serverDone:
		cancel()

	case err := <-metricsDone:
		logger.Error("Metrics server stopped", logger.KeyError, err)
		cancel()
		serveErr = <-serverDone
	}

	if serveErr != nil {
		logger.Error("Server shutdown error", logger.KeyError, serveErr)
		return serveErr
	}
	logger.Info("Server stopped gracefully")
	return nil
}

func configSource(path string) string {
	if path == "" {
		return "defaults"
	}
	return path
}
