package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitTracer_WritesSpans(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	shutdown, err := InitTracer(ctx, "cameio-cli", "test", dir)
	if err != nil {
		t.Fatalf("InitTracer() error = %v", err)
	}

	_, span := otel.Tracer("test").Start(ctx, "dashboard.upload")
	span.End()

	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, TraceFile))
	if err != nil {
		t.Fatalf("read trace file: %v", err)
	}
	if !strings.Contains(string(data), "dashboard.upload") {
		t.Errorf("trace file does not contain span name: %s", data)
	}
}
