package telemetry

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/sweetpotato0/ai-triage/pkg/logging"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Disable: true})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestInitStdoutExporter(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	shutdown, err := Init(context.Background(), Config{
		ServiceVersion: "test",
		Environment:    "ci",
		Logger:         logging.Discard(),
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Errorf("global provider is %T, want *sdktrace.TracerProvider", otel.GetTracerProvider())
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestEnd(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tracer := tp.Tracer(InstrumentationName)

	_, ok := tracer.Start(context.Background(), "ok")
	End(ok, nil)
	_, failed := tracer.Start(context.Background(), "failed")
	End(failed, stderrors.New("nlp unavailable"))
	End(nil, nil)

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(spans))
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("ok span status = %v, want Ok", spans[0].Status().Code)
	}
	if spans[1].Status().Code != codes.Error || spans[1].Status().Description != "nlp unavailable" {
		t.Errorf("failed span status = %+v", spans[1].Status())
	}
	if len(spans[1].Events()) == 0 {
		t.Error("failed span should carry the recorded error event")
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource(context.Background(), Config{
		ServiceName: "ai-triage",
		Environment: "staging",
		Attributes: map[string]string{
			"triage.generator.provider": "ollama",
			"triage.index.provider":     "",
		},
	})
	if err != nil {
		t.Fatalf("newResource() error = %v", err)
	}
	set := res.Set()

	tests := []struct {
		key  attribute.Key
		want string
	}{
		{"service.name", "ai-triage"},
		{"deployment.environment", "staging"},
		{"triage.generator.provider", "ollama"},
	}
	for _, tt := range tests {
		if v, ok := set.Value(tt.key); !ok || v.AsString() != tt.want {
			t.Errorf("%s = %q (present %v), want %q", tt.key, v.AsString(), ok, tt.want)
		}
	}
	if _, ok := set.Value("triage.index.provider"); ok {
		t.Error("empty attributes should be skipped")
	}
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0, "root:AlwaysOnSampler"},
		{1, "root:AlwaysOnSampler"},
		{0.25, "root:TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		if got := newSampler(tt.ratio).Description(); !strings.Contains(got, tt.want) {
			t.Errorf("newSampler(%v) = %s, want it to contain %s", tt.ratio, got, tt.want)
		}
	}
}
