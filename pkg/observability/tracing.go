// Package observability wires OpenTelemetry tracing around extraction runs.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/syphon-data/syphon/pkg/errors"
)

const tracerName = "github.com/syphon-data/syphon"

// InitTracing installs a stdout trace exporter and returns a shutdown
// function. When tracing is disabled the returned shutdown is a no-op and
// the global tracer provider stays untouched.
func InitTracing(enabled bool) (func(context.Context) error, error) {
	if !enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create trace exporter")
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}

// Tracer returns the tracer used for extraction spans.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartStreamSpan opens a span covering one stream's extraction.
func StartStreamSpan(ctx context.Context, stream string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "stream.extract",
		trace.WithAttributes(attribute.String("stream", stream)))
}

// StartPipelineSpan opens a span covering a full pipeline run.
func StartPipelineSpan(ctx context.Context, pipeline string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("pipeline", pipeline)))
}
