package telemetry

import (
	"context"
	"testing"
)

func TestInitOtel_Disabled(t *testing.T) {
	p, err := InitOtel(context.Background(), OtelConfig{Enabled: false})
	if err != nil {
		t.Fatalf("InitOtel disabled: %v", err)
	}
	defer p.Shutdown(context.Background())

	if p.Tracer == nil {
		t.Fatal("expected non-nil tracer (noop)")
	}
}

func TestInitOtel_Disabled_ShutdownNoop(t *testing.T) {
	p, err := InitOtel(context.Background(), OtelConfig{Enabled: false})
	if err != nil {
		t.Fatalf("InitOtel: %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestInitOtel_NoneExporter(t *testing.T) {
	p, err := InitOtel(context.Background(), OtelConfig{Enabled: true, Exporter: "none"})
	if err != nil {
		t.Fatalf("InitOtel with none exporter: %v", err)
	}
	defer p.Shutdown(context.Background())

	if p.TracerProvider == nil {
		t.Fatal("expected non-nil TracerProvider")
	}
	if p.Tracer == nil {
		t.Fatal("expected non-nil Tracer")
	}
}

func TestInitOtel_UnknownExporter(t *testing.T) {
	_, err := InitOtel(context.Background(), OtelConfig{Enabled: true, Exporter: "magic-pixie-dust"})
	if err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}

func TestInitOtel_CustomServiceName(t *testing.T) {
	p, err := InitOtel(context.Background(), OtelConfig{Enabled: true, Exporter: "none", ServiceName: "murmur-test"})
	if err != nil {
		t.Fatalf("InitOtel: %v", err)
	}
	defer p.Shutdown(context.Background())
}

func TestInitOtel_TracerCreatesSpans(t *testing.T) {
	p, err := InitOtel(context.Background(), OtelConfig{Enabled: true, Exporter: "none"})
	if err != nil {
		t.Fatalf("InitOtel: %v", err)
	}
	defer p.Shutdown(context.Background())

	_, span := p.Tracer.Start(context.Background(), "test.span")
	if span == nil {
		t.Fatal("expected non-nil span")
	}
	span.End()
}

func TestStartSpan(t *testing.T) {
	p, err := InitOtel(context.Background(), OtelConfig{Enabled: true, Exporter: "none"})
	if err != nil {
		t.Fatalf("InitOtel: %v", err)
	}
	defer p.Shutdown(context.Background())

	_, span := StartSpan(context.Background(), p.Tracer, "test.internal",
		AttrIssueNumber.Int64(42),
		AttrBackend.String("claude"),
	)
	span.End()
}
