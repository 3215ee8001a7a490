package telemetry

import (
	"context"
	"testing"

	"ChartSense/pkg/logger"
)

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), Config{}, logger.Nop())
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if Tracer() == nil {
		t.Fatalf("expected a tracer")
	}
}

func TestInitTracerRequiresEndpoint(t *testing.T) {
	if _, err := InitTracer(context.Background(), Config{Enabled: true}, logger.Nop()); err == nil {
		t.Fatalf("expected error without endpoint")
	}
}
