package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/locket-ai/locket/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

func TestIsLocalEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
	}{
		{"localhost:4317", true},
		{"127.0.0.1:4317", true},
		{"http://localhost:4318", true},
		{"[::1]:4317", true},
		{"::1", true},
		{"collector.example.com:4317", false},
		{"https://otel.example.com", false},
		{"10.0.0.5:4317", false},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			assert.Equal(t, tt.want, isLocalEndpoint(tt.endpoint))
		})
	}
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "otel.example.com:443", stripScheme("https://otel.example.com:443"))
	assert.Equal(t, "localhost:4318", stripScheme("http://localhost:4318"))
	assert.Equal(t, "localhost:4317", stripScheme("localhost:4317"))
}

func TestNew_Disabled(t *testing.T) {
	before := otel.GetTracerProvider()
	tel, err := New(context.Background(), config.Default().Telemetry, "dev", nil)
	require.NoError(t, err)
	assert.False(t, tel.Degraded())
	assert.Same(t, before, otel.GetTracerProvider())
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_RejectsInsecureRemote(t *testing.T) {
	cfg := config.Default().Telemetry
	cfg.Enabled = true
	cfg.Insecure = true
	cfg.Endpoint = "collector.example.com:4317"

	_, err := New(context.Background(), cfg, "dev", nil)
	require.ErrorContains(t, err, "insecure export")
}

func TestNew_EnabledInstallsProviders(t *testing.T) {
	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	})

	cfg := config.Default().Telemetry
	cfg.Enabled = true
	cfg.Insecure = true
	cfg.Metrics = true
	cfg.ShutdownTimeout = config.Duration(100 * time.Millisecond)

	// Exporters connect lazily, so no collector is needed to start.
	tel, err := New(context.Background(), cfg, "dev", nil)
	require.NoError(t, err)
	assert.False(t, tel.Degraded())
	assert.NotSame(t, prevTP, otel.GetTracerProvider())

	_ = tel.Shutdown(context.Background())
}

func TestRecorder(t *testing.T) {
	rec := Install(t)

	_, span := otel.Tracer("test").Start(context.Background(), "unit.work")
	span.SetAttributes(attribute.Int("items", 3))
	span.End()

	assert.Equal(t, []string{"unit.work"}, rec.SpanNames())
	v, ok := rec.Attribute("unit.work", "items")
	require.True(t, ok)
	assert.Equal(t, int64(3), v.AsInt64())

	counter, err := otel.Meter("test").Int64Counter("unit.count")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)
	_, found := rec.Metric(t, "unit.count")
	assert.True(t, found)
}

func TestShutdown_NilSafe(t *testing.T) {
	var tel *Telemetry
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.False(t, tel.Degraded())
}
