package telemetry

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatal(err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	if id := TraceID(context.Background()); id != "" {
		t.Errorf("TraceID without span = %q, want empty", id)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, sdktrace.AlwaysSample().Description()},
		{0, sdktrace.NeverSample().Description()},
		{0.5, sdktrace.TraceIDRatioBased(0.5).Description()},
	}
	for _, tt := range tests {
		if got := sampler(tt.rate).Description(); got != tt.want {
			t.Errorf("sampler(%v) = %s, want %s", tt.rate, got, tt.want)
		}
	}
}

func TestTraceID_WithSpan(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	if TraceID(ctx) == "" {
		t.Error("expected trace id for recording span")
	}
}
