// Package prometheus implements the metrics interfaces on top of the global
// Prometheus registry.
package prometheus

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/remotefs/pkg/metrics"
)

// remoteMetrics is the Prometheus implementation of metrics.RemoteMetrics.
type remoteMetrics struct {
	reg *prometheus.Registry

	requestsTotal          *prometheus.CounterVec
	requestDuration        *prometheus.HistogramVec
	requestsInFlight       *prometheus.GaugeVec
	recordSize             *prometheus.HistogramVec
	activeConnections      prometheus.Gauge
	connectionsAccepted    prometheus.Counter
	connectionsClosed      prometheus.Counter
	connectionsForceClosed prometheus.Counter
}

// NewRemoteMetrics creates a Prometheus-backed RemoteMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewRemoteMetrics() metrics.RemoteMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &remoteMetrics{
		reg: reg,
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "remotefs_requests_total",
				Help: "Total number of remote calls by side, procedure and outcome",
			},
			[]string{"side", "procedure", "outcome"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "remotefs_request_duration_milliseconds",
				Help: "Duration of remote calls in milliseconds",
				Buckets: []float64{
					0.1,  // 100us - loopback metadata calls
					0.5,  // 500us
					1,    // 1ms
					5,    // 5ms
					10,   // 10ms
					50,   // 50ms
					100,  // 100ms
					1000, // 1s - large directory listings
				},
			},
			[]string{"side", "procedure"},
		),
		requestsInFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "remotefs_requests_in_flight",
				Help: "Current number of remote calls being processed",
			},
			[]string{"side", "procedure"},
		),
		recordSize: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "remotefs_record_size_bytes",
				Help: "Distribution of RPC record sizes",
				Buckets: []float64{
					64,      // bare header
					512,     // typical path call
					4096,    // 4KB
					65536,   // 64KB - large directory batch
					1048576, // 1MB
				},
			},
			[]string{"direction"},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "remotefs_active_connections",
				Help: "Current number of active connections",
			},
		),
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "remotefs_connections_accepted_total",
				Help: "Total number of connections accepted",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "remotefs_connections_closed_total",
				Help: "Total number of connections closed",
			},
		),
		connectionsForceClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "remotefs_connections_force_closed_total",
				Help: "Total number of connections force-closed during shutdown timeout",
			},
		),
	}
}

func (m *remoteMetrics) RecordRequest(side, procedure string, duration time.Duration, outcome string) {
	m.requestsTotal.WithLabelValues(side, procedure, outcome).Inc()
	m.requestDuration.WithLabelValues(side, procedure).Observe(duration.Seconds() * 1000) // Convert to milliseconds
}

func (m *remoteMetrics) RecordRequestStart(side, procedure string) {
	m.requestsInFlight.WithLabelValues(side, procedure).Inc()
}

func (m *remoteMetrics) RecordRequestEnd(side, procedure string) {
	m.requestsInFlight.WithLabelValues(side, procedure).Dec()
}

func (m *remoteMetrics) RecordRecordSize(direction string, bytes int) {
	m.recordSize.WithLabelValues(direction).Observe(float64(bytes))
}

func (m *remoteMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}

func (m *remoteMetrics) RecordConnectionAccepted() {
	m.connectionsAccepted.Inc()
}

func (m *remoteMetrics) RecordConnectionClosed() {
	m.connectionsClosed.Inc()
}

func (m *remoteMetrics) RecordConnectionForceClosed() {
	m.connectionsForceClosed.Inc()
}

// ObserveLiveHandles exports fn as the live handle gauge. Only the first
// registration takes effect.
func (m *remoteMetrics) ObserveLiveHandles(fn func() int) {
	err := m.reg.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "remotefs_live_handles",
			Help: "Number of objects currently exported by handle",
		},
		func() float64 { return float64(fn()) },
	))
	var already prometheus.AlreadyRegisteredError
	if err != nil && !errors.As(err, &already) {
		panic(err)
	}
}
