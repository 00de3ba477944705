package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type captureTracer struct {
	noop.Tracer
	started []string
}

func (t *captureTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	t.started = append(t.started, name)
	return t.Tracer.Start(ctx, name, opts...)
}

type captureTracerProvider struct {
	noop.TracerProvider
	tracer *captureTracer
}

func (p *captureTracerProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return p.tracer
}

func installCaptureTracer(t *testing.T) *captureTracer {
	t.Helper()
	previous := otel.GetTracerProvider()
	tracer := &captureTracer{}
	otel.SetTracerProvider(&captureTracerProvider{tracer: tracer})
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return tracer
}

func TestMiddlewareStartsSpanPerRequest(t *testing.T) {
	tracer := installCaptureTracer(t)
	obs := NewObservability(ObservabilityConfig{ServiceName: "test-gateway", Enabled: true}, nil)
	handler := obs.Middleware("oracle")(okHandler())

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/oracle/prices", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if len(tracer.started) != 1 || tracer.started[0] != "oracle" {
		t.Fatalf("expected one span named oracle, got %v", tracer.started)
	}
}

func TestMiddlewareSkipsSpanWhenDisabled(t *testing.T) {
	tracer := installCaptureTracer(t)
	obs := NewObservability(ObservabilityConfig{ServiceName: "test-gateway", Enabled: false}, nil)
	handler := obs.Middleware("oracle")(okHandler())

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/oracle/prices", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if len(tracer.started) != 0 {
		t.Fatalf("expected no spans while disabled, got %v", tracer.started)
	}
}
