package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/kkgkaundal/sas/internal/config"
	"github.com/kkgkaundal/sas/internal/logging"
)

// TestInitTracingDisabled verifies the noop path never fails.
func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), config.TracingConfig{}, nil, logging.Discard())
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := Tracer().Start(context.Background(), "noop")
	if span.SpanContext().IsSampled() {
		t.Error("noop span should not be sampled")
	}
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

// TestInitTracingStdout checks spans reach the writer on shutdown.
func TestInitTracingStdout(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.TracingConfig{Enabled: true, Exporter: "stdout", SampleRatio: 1, ServiceName: "sas-test"}
	shutdown, err := InitTracing(context.Background(), cfg, &buf, logging.Discard())
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := Tracer().Start(context.Background(), "refresh.cycle")
	span.End()
	ShutdownWithTimeout(context.Background(), shutdown, logging.Discard())

	if !strings.Contains(buf.String(), "refresh.cycle") {
		t.Errorf("exported spans missing refresh.cycle: %q", buf.String())
	}
}

// TestInitTracingUnknownExporter rejects unsupported exporters.
func TestInitTracingUnknownExporter(t *testing.T) {
	cfg := config.TracingConfig{Enabled: true, Exporter: "zipkin", SampleRatio: 1}
	if _, err := InitTracing(context.Background(), cfg, nil, logging.Discard()); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}
