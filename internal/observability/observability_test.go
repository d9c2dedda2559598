package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger("debug", "json", &buf)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	log.Debug().Str("job_id", "j1").Msg("hello")
	out := buf.String()
	if !strings.Contains(out, `"job_id":"j1"`) || !strings.Contains(out, `"service":"vistora"`) {
		t.Fatalf("unexpected log line: %s", out)
	}
}

func TestNewLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger("warn", "console", &buf)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	log.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %s", buf.String())
	}
	if _, err := NewLogger("loud", "json", &buf); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestInitTracingStdout(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracing("vistora-test", "stdout", &buf)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := otel.Tracer("test").Start(context.Background(), "job.execute")
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !strings.Contains(buf.String(), "job.execute") {
		t.Fatalf("span not exported: %s", buf.String())
	}

	if _, err := InitTracing("x", "zipkin", nil); err == nil {
		t.Fatalf("expected unsupported exporter error")
	}
	shutdown, err = InitTracing("x", "none", nil)
	if err != nil || shutdown(context.Background()) != nil {
		t.Fatalf("none exporter: %v", err)
	}
}
