package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/locket-ai/locket/internal/config"
	"github.com/locket-ai/locket/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// Telemetry owns the SDK providers installed as the otel globals.
type Telemetry struct {
	shutdownTimeout config.Duration
	tracerProvider  *trace.TracerProvider
	meterProvider   *sdkmetric.MeterProvider
	degraded        bool
}

// New installs OTLP trace and metric providers when cfg.Enabled is set.
// Exporter failures degrade to the no-op globals and are logged, so a
// missing collector never fails a command.
func New(ctx context.Context, cfg config.TelemetryConfig, version string, logger *logging.Logger) (*Telemetry, error) {
	t := &Telemetry{shutdownTimeout: cfg.ShutdownTimeout}
	if !cfg.Enabled {
		return t, nil
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	logger = logging.OrNop(logger).Named("telemetry")
	res := newResource(cfg, version)

	if exp, err := newSpanExporter(ctx, cfg); err != nil {
		t.degraded = true
		logger.Warn(ctx, "trace export disabled", zap.Error(err))
	} else {
		t.tracerProvider = newTracerProvider(exp, cfg.SampleRate, res)
		otel.SetTracerProvider(t.tracerProvider)
	}

	if cfg.Metrics {
		if exp, err := newMetricExporter(ctx, cfg); err != nil {
			t.degraded = true
			logger.Warn(ctx, "metric export disabled", zap.Error(err))
		} else {
			t.meterProvider = newMeterProvider(exp, cfg, res)
			otel.SetMeterProvider(t.meterProvider)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Debug(ctx, "telemetry started",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("protocol", cfg.Protocol),
		zap.Bool("metrics", t.meterProvider != nil))
	return t, nil
}

// Degraded reports whether an exporter failed to start.
func (t *Telemetry) Degraded() bool {
	return t != nil && t.degraded
}

// Shutdown flushes pending spans and metrics. Without a deadline on ctx the
// configured shutdown timeout applies.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok && t.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.shutdownTimeout.Duration())
		defer cancel()
	}

	var errs []error
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace provider shutdown: %w", err))
		}
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}
