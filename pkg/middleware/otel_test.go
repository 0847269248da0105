package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func TestOpenTelemetryMiddleware_AttachesSpan(t *testing.T) {
	var sawSpan bool
	r := chi.NewRouter()
	r.Use(OpenTelemetry(
		WithIncludeUserID(true),
		WithTenant(func(r *http.Request) (string, string) {
			return r.Header.Get("X-Store-ID"), r.Header.Get("X-User-ID")
		}),
		WithAttributeExtractor(func(*http.Request) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	))
	r.Get("/v1/documents/{kind}", func(w http.ResponseWriter, r *http.Request) {
		sawSpan = trace.SpanFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/PAGE", nil)
	req.Header.Set("X-Store-ID", "s1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if !sawSpan {
		t.Fatal("expected a span on the request context")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestOpenTelemetryMiddleware_FilterSkipsTracing(t *testing.T) {
	nextCalled := false
	h := OpenTelemetry(
		WithRequestFilter(func(r *http.Request) bool { return r.URL.Path != "/healthz" }),
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		if trace.SpanContextFromContext(r.Context()).IsValid() {
			t.Fatal("expected no span when filter skips tracing")
		}
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if !nextCalled {
		t.Fatal("expected next to be called")
	}
}
