package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer names used across the bot.
const (
	TracerPresence = "playtime/presence"
	TracerCommands = "playtime/commands"
	TracerHTTP     = "playtime/http"
)

var (
	tracerProvider   *sdktrace.TracerProvider
	isTracingEnabled = false
)

// InitTracing initializes OpenTelemetry tracing with an OTLP/gRPC exporter.
// An empty endpoint disables tracing; spans then go to the global no-op provider.
func InitTracing(endpoint, serviceName, serviceVersion string) (func(), error) {
	if endpoint == "" {
		slog.Info("tracing disabled: OTEL_EXPORTER_OTLP_ENDPOINT not set", slog.String("component", "telemetry"))
		return func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithInsecure(), // Use insecure for local development
		otlptracegrpc.WithEndpoint(endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)

	otel.SetTracerProvider(tracerProvider)
	isTracingEnabled = true
	slog.Info("tracing initialized", slog.String("service", serviceName), slog.String("endpoint", endpoint), slog.String("component", "telemetry"))

	return func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown tracer provider", slog.Any("err", err))
		}
	}, nil
}

// IsTracingEnabled returns whether tracing is active.
func IsTracingEnabled() bool {
	return isTracingEnabled
}

// StartSpan is a helper to start a span with common attributes and correlation ID.
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	if corr := GetCorrelation(ctx); corr != "" {
		attrs = append(attrs, attribute.String("correlation_id", corr))
	}
	return tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError records an error on the span and sets error status.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// EndSpan records err (if any) or marks the span OK, then ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		RecordError(span, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// HTTPMethodAttr is the span attribute for the request method.
func HTTPMethodAttr(method string) attribute.KeyValue {
	return attribute.String("http.method", method)
}

// HTTPRouteAttr is the span attribute for the matched route pattern.
func HTTPRouteAttr(route string) attribute.KeyValue {
	return attribute.String("http.route", route)
}

// SetSpanHTTPStatus records the response code and flags server errors.
func SetSpanHTTPStatus(span trace.Span, code int) {
	span.SetAttributes(attribute.Int("http.status_code", code))
	if code >= 500 {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", code))
	}
}
