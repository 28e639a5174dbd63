package ghostalloc

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracing covers only slow paths (slab creation, region mapping, buddy
// compaction); the per-allocation fast path is never instrumented.

const tracerName = "github.com/joeycumines/go-ghostcell/ghostalloc"

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// startSpan opens a slow-path span against the global tracer provider. When
// no provider is registered this is a cheap no-op span.
func startSpan(name string, attrs ...attribute.KeyValue) trace.Span {
	_, span := tracer().Start(context.Background(), name, trace.WithAttributes(attrs...))
	return span
}
