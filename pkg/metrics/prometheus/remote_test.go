package prometheus

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/remotefs/pkg/metrics"
)

func TestRemoteMetrics(t *testing.T) {
	metrics.InitRegistry()
	m := NewRemoteMetrics()
	require.NotNil(t, m)

	m.RecordRequestStart(metrics.SideServer, "DELETE")
	m.RecordRequest(metrics.SideServer, "DELETE", 2*time.Millisecond, "failed")
	m.RecordRequestEnd(metrics.SideServer, "DELETE")
	m.RecordRecordSize("in", 128)
	m.SetActiveConnections(3)
	m.RecordConnectionAccepted()
	m.RecordConnectionClosed()
	m.RecordConnectionForceClosed()

	live := 5
	m.ObserveLiveHandles(func() int { return live })

	families, err := metrics.GetRegistry().Gather()
	require.NoError(t, err)
	byName := make(map[string]*dto.MetricFamily)
	for _, f := range families {
		byName[f.GetName()] = f
	}

	require.Contains(t, byName, "remotefs_requests_total")
	req := byName["remotefs_requests_total"].GetMetric()[0]
	assert.Equal(t, 1.0, req.GetCounter().GetValue())

	require.Contains(t, byName, "remotefs_requests_in_flight")
	assert.Equal(t, 0.0, byName["remotefs_requests_in_flight"].GetMetric()[0].GetGauge().GetValue())

	require.Contains(t, byName, "remotefs_active_connections")
	assert.Equal(t, 3.0, byName["remotefs_active_connections"].GetMetric()[0].GetGauge().GetValue())

	require.Contains(t, byName, "remotefs_live_handles")
	assert.Equal(t, 5.0, byName["remotefs_live_handles"].GetMetric()[0].GetGauge().GetValue())
}
