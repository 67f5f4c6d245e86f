package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ExportTarget identifies the service in exported telemetry and where OTLP data goes.
type ExportTarget struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Insecure       bool
}

func (t ExportTarget) withDefaults() ExportTarget {
	if t.ServiceName == "" {
		t.ServiceName = DefaultServiceName
	}
	if t.ServiceVersion == "" {
		t.ServiceVersion = "unknown"
	}
	if t.Endpoint == "" {
		t.Endpoint = DefaultEndpoint
	}
	return t
}

// NewTracerProvider builds an SDK TracerProvider exporting over OTLP/HTTP and
// installs it, with the W3C propagator, as the global provider.
// A nil or disabled tracing section yields a no-op provider.
func NewTracerProvider(ctx context.Context, target ExportTarget, tracing *TracingConfig) (trace.TracerProvider, error) {
	if tracing == nil || !tracing.Enabled {
		slog.Info("Tracing disabled, using no-op tracer provider")
		return noop.NewTracerProvider(), nil
	}

	target = target.withDefaults()
	res, err := newResource(ctx, target)
	if err != nil {
		return nil, err
	}

	exportOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(target.Endpoint)}
	if target.Insecure {
		exportOpts = append(exportOpts, otlptracehttp.WithInsecure())
		slog.Warn("Tracing exports over unencrypted HTTP")
	}
	exporter, err := otlptracehttp.New(ctx, exportOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(tracing.GetSampling())),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	slog.Info("Tracing initialized",
		"endpoint", target.Endpoint,
		"sampling_ratio", tracing.GetSampling(),
	)

	return tp, nil
}
