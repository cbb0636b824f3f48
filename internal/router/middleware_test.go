package router

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/pointrelais/internal/domain"
	"github.com/dukerupert/pointrelais/internal/telemetry"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestID(t *testing.T) {
	existing := uuid.NewString()

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generates when absent", "", false},
		{"keeps valid incoming ID", existing, true},
		{"replaces malformed ID", "not a uuid\nSet-Cookie: x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = domain.RequestIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if _, err := uuid.Parse(seen); err != nil {
				t.Fatalf("context request ID %q is not a UUID", seen)
			}
			if got := w.Header().Get(RequestIDHeader); got != seen {
				t.Errorf("response header %q, context %q", got, seen)
			}
			if tt.keep && seen != tt.incoming {
				t.Errorf("expected incoming ID %q to be kept, got %q", tt.incoming, seen)
			}
			if !tt.keep && seen == tt.incoming {
				t.Errorf("expected a new ID, got the incoming one")
			}
		})
	}
}

func TestMetrics_RecordsRoutePattern(t *testing.T) {
	metrics := telemetry.NewBusinessMetrics("test", prometheus.NewRegistry())

	r := New(Metrics(metrics))
	r.Get("/api/order-details", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/order-details?session_id=cs_"+uuid.NewString(), nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	got := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/api/order-details", "404"))
	if got != 2 {
		t.Errorf("expected 2 requests recorded, got %v", got)
	}
}

func TestMetrics_NilPassesThrough(t *testing.T) {
	called := false
	h := Metrics(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("handler was not called")
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := CORS([]string{"https://mina.example/"})(next)

	tests := []struct {
		name        string
		method      string
		origin      string
		wantStatus  int
		wantAllowed bool
	}{
		{"allowed origin", http.MethodPost, "https://mina.example", http.StatusOK, true},
		{"preflight", http.MethodOptions, "https://mina.example", http.StatusNoContent, true},
		{"other origin", http.MethodPost, "https://evil.example", http.StatusOK, false},
		{"no origin", http.MethodGet, "", http.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/payment-intents", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			got := w.Header().Get("Access-Control-Allow-Origin")
			if tt.wantAllowed && got != tt.origin {
				t.Errorf("expected allow-origin %q, got %q", tt.origin, got)
			}
			if !tt.wantAllowed && got != "" {
				t.Errorf("expected no allow-origin header, got %q", got)
			}
		})
	}
}
