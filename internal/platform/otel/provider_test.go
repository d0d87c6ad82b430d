package otel

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSetupNoopWhenEndpointEmpty(t *testing.T) {
	t.Setenv("EWM_OTEL_ENDPOINT", "")
	t.Setenv("EWM_OTEL_ENABLED", "")

	shutdown, err := Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetupNoopWhenExplicitlyDisabled(t *testing.T) {
	t.Setenv("EWM_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("EWM_OTEL_ENABLED", "false")

	shutdown, err := Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetupCreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address so nothing is exported.
	t.Setenv("EWM_OTEL_ENDPOINT", "http://192.0.2.1:4318")
	t.Setenv("EWM_OTEL_ENABLED", "")

	shutdown, err := Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetupRejectsInvalidSampleRatio(t *testing.T) {
	t.Setenv("EWM_OTEL_SAMPLE_RATIO", "lots")

	if _, err := Setup(context.Background(), "test-service"); err == nil {
		t.Fatal("expected sample ratio parse error")
	}
}

func TestSamplerRatioBounds(t *testing.T) {
	t.Parallel()

	always := sdktrace.AlwaysSample().Description()
	if got := sampler(1).Description(); got != always {
		t.Fatalf("sampler(1) = %q, want %q", got, always)
	}
	if got := sampler(0).Description(); got != always {
		t.Fatalf("sampler(0) = %q, want %q", got, always)
	}
	if got := sampler(0.5).Description(); got == always {
		t.Fatalf("sampler(0.5) should not always sample")
	}
}
