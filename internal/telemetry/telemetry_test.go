package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "rfsd", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Should be able to call shutdown without error
	err = shutdown(ctx)
	assert.NoError(t, err)

	// Should not be enabled
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	tr := Tracer()
	require.NotNil(t, tr)

	_, span := tr.Start(context.Background(), "rfs.PING")
	defer span.End()
	assert.False(t, span.SpanContext().IsValid())
}

func TestStartSpan(t *testing.T) {
	newCtx, span := StartSpan(context.Background(), "rfs.READ_ATTRIBUTES")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestSetAttributes(t *testing.T) {
	require.NotPanics(t, func() {
		SetAttributes(context.Background(), ClientAddr("192.168.1.1:4000"), StoreName("memfs"))
	})
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, newSampler(tt.rate).Description())
	}
}

func TestProfiling(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		shutdown, err := InitProfiling(ProfilingConfig{})
		require.NoError(t, err)
		assert.NoError(t, shutdown())
		assert.False(t, IsProfilingEnabled())
	})

	t.Run("UnknownProfileType", func(t *testing.T) {
		_, err := InitProfiling(ProfilingConfig{
			Enabled:      true,
			Endpoint:     "http://localhost:4040",
			ProfileTypes: []string{"cpu", "heap"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"heap"`)
		assert.False(t, IsProfilingEnabled())
	})

	t.Run("Tags", func(t *testing.T) {
		tags := profileTags(ProfilingConfig{ServiceVersion: "v1", Provider: "local", Store: "home"})
		assert.Equal(t, map[string]string{"version": "v1", "provider": "local", "store": "home"}, tags)

		assert.Equal(t, map[string]string{"version": "dev"}, profileTags(ProfilingConfig{ServiceVersion: "dev"}))
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	traceID := TraceID(ctx)
	assert.Equal(t, "", traceID)
}

func TestSpanID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	spanID := SpanID(ctx)
	assert.Equal(t, "", spanID)
}

func TestAttributeHelpers(t *testing.T) {
	tests := []struct {
		name  string
		attr  attribute.KeyValue
		key   string
		value any
	}{
		{"ClientAddr", ClientAddr("192.168.1.100:12345"), AttrClientAddr, "192.168.1.100:12345"},
		{"ConnectionID", ConnectionID("c-1"), AttrConnectionID, "c-1"},
		{"RPCXID", RPCXID(0x12345678), AttrRPCXID, int64(0x12345678)},
		{"Procedure", Procedure("LIST_DIRECTORY"), AttrProcedure, "LIST_DIRECTORY"},
		{"Outcome", Outcome("stale"), AttrOutcome, "stale"},
		{"Handle", Handle("0f/3"), AttrHandle, "0f/3"},
		{"Entries", Entries(7), AttrEntries, int64(7)},
		{"FSPath", FSPath("/a/b"), AttrPath, "/a/b"},
		{"FSOtherPath", FSOtherPath("/c"), AttrOtherPath, "/c"},
		{"ErrorCode", ErrorCode("NotFound"), AttrErrorCode, "NotFound"},
		{"StoreName", StoreName("memfs"), AttrStoreName, "memfs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, string(tt.attr.Key))
			assert.Equal(t, tt.value, tt.attr.Value.AsInterface())
		})
	}
}

func TestCallSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartCallSpan(ctx, SideClient, "READ_ATTRIBUTES", 42, FSPath("/x"))
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	EndCallSpan(span, "ok", nil)

	_, span = StartCallSpan(ctx, SideServer, "DELETE", 7)
	EndCallSpan(span, "failed", errors.New("NotFound"))
}
