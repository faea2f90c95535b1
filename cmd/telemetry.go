package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	serviceName       = "copicake-flow"
	telemetryShutdown = 5 * time.Second
)

// telemetry owns the OTLP trace, metric and log pipelines of one process.
type telemetry struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
	lp *sdklog.LoggerProvider
}

// otlpEnabled reports whether export is configured, either by flag or by
// the standard OTEL_EXPORTER_OTLP_ENDPOINT variable.
func otlpEnabled(endpoint string) bool {
	return endpoint != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// setupTelemetry installs the global tracer and meter providers, exporting
// over OTLP/gRPC to endpoint (or the OTEL_EXPORTER_OTLP_* environment when
// endpoint is empty). It returns nil when export is not configured.
func setupTelemetry(ctx context.Context, endpoint string) (*telemetry, error) {
	if !otlpEnabled(endpoint) {
		return nil, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(attribute.String("service.name", serviceName)),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}

	var (
		traceOpts  []otlptracegrpc.Option
		metricOpts []otlpmetricgrpc.Option
		logOpts    []otlploggrpc.Option
	)
	if endpoint != "" {
		traceOpts = append(traceOpts, otlptracegrpc.WithEndpointURL(endpoint))
		metricOpts = append(metricOpts, otlpmetricgrpc.WithEndpointURL(endpoint))
		logOpts = append(logOpts, otlploggrpc.WithEndpointURL(endpoint))
	}

	traceExp, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	metricExp, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create metric exporter: %w", err), traceExp.Shutdown(ctx))
	}
	logExp, err := otlploggrpc.New(ctx, logOpts...)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create log exporter: %w", err), traceExp.Shutdown(ctx), metricExp.Shutdown(ctx))
	}

	t := &telemetry{
		tp: sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExp),
			sdktrace.WithResource(res),
		),
		mp: sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
			sdkmetric.WithResource(res),
		),
		lp: sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
			sdklog.WithResource(res),
		),
	}

	otel.SetTracerProvider(t.tp)
	otel.SetMeterProvider(t.mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return t, nil
}

// handler bridges slog records into the OTLP log pipeline.
func (t *telemetry) handler() slog.Handler {
	return otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(t.lp))
}

// Shutdown flushes and stops every pipeline. It is a no-op on nil.
func (t *telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return errors.Join(
		t.tp.Shutdown(ctx),
		t.mp.Shutdown(ctx),
		t.lp.Shutdown(ctx),
	)
}

// mirrorHandler passes every record the primary handler accepts to the
// mirrors too, so all sinks share the primary's level.
type mirrorHandler struct {
	primary slog.Handler
	mirrors []slog.Handler
}

func newMirrorHandler(primary slog.Handler, mirrors ...slog.Handler) *mirrorHandler {
	return &mirrorHandler{primary: primary, mirrors: mirrors}
}

func (h *mirrorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.primary.Enabled(ctx, level)
}

func (h *mirrorHandler) Handle(ctx context.Context, r slog.Record) error {
	errs := []error{h.primary.Handle(ctx, r)}
	for _, m := range h.mirrors {
		if m.Enabled(ctx, r.Level) {
			errs = append(errs, m.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (h *mirrorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (h *mirrorHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (h *mirrorHandler) derive(fn func(slog.Handler) slog.Handler) slog.Handler {
	mirrors := make([]slog.Handler, len(h.mirrors))
	for i, m := range h.mirrors {
		mirrors[i] = fn(m)
	}
	return &mirrorHandler{primary: fn(h.primary), mirrors: mirrors}
}
