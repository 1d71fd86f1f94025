package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObservabilityCountsByStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewObservability(ObservabilityConfig{}, nil, reg)
	missing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	ok := obs.Middleware("v1")(okHandler())
	notFound := obs.Middleware("v1")(missing)
	for i := 0; i < 2; i++ {
		ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/pool", nil))
	}
	res := httptest.NewRecorder()
	notFound.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/votes/x", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("status not propagated: %d", res.Code)
	}

	if got := testutil.ToFloat64(obs.requests.WithLabelValues("v1", http.MethodGet, "200")); got != 2 {
		t.Fatalf("expected 2 ok requests, got %v", got)
	}
	if got := testutil.ToFloat64(obs.requests.WithLabelValues("v1", http.MethodGet, "404")); got != 1 {
		t.Fatalf("expected 1 not found request, got %v", got)
	}
}

func TestCORSShortCircuitsPreflight(t *testing.T) {
	called := false
	handler := CORS(CORSConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodOptions, "/v1/pool", nil))
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", res.Code)
	}
	if called {
		t.Fatalf("preflight must not reach the handler")
	}
	if origin := res.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Fatalf("unexpected origin header %q", origin)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/pool", nil))
	if !called {
		t.Fatalf("GET should reach the handler")
	}
	if methods := res.Header().Get("Access-Control-Allow-Methods"); methods != "GET, HEAD, OPTIONS" {
		t.Fatalf("unexpected methods header %q", methods)
	}
}
