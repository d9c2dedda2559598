package observability

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// InitTracing installs the global tracer provider. exporter "none" (or "")
// installs a no-op provider; "stdout" writes spans to w as JSON.
// The returned function flushes and shuts the provider down.
func InitTracing(service, exporter string, w io.Writer) (func(context.Context) error, error) {
	switch strings.ToLower(strings.TrimSpace(exporter)) {
	case "", "none":
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	case "stdout":
		opts := []stdouttrace.Option{}
		if w != nil {
			opts = append(opts, stdouttrace.WithWriter(w))
		}
		exp, err := stdouttrace.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("stdout exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", service))),
		)
		otel.SetTracerProvider(tp)
		return tp.Shutdown, nil
	default:
		return nil, fmt.Errorf("unsupported trace exporter %q", exporter)
	}
}
