package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBusinessMetrics_IsolatedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBusinessMetrics("test", reg)

	m.ParcelsCreated.WithLabelValues("mondial_relay", "webhook").Inc()
	m.ParcelsCreated.WithLabelValues("mondial_relay", "webhook").Inc()
	m.TotalMismatch.Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ParcelsCreated.WithLabelValues("mondial_relay", "webhook")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TotalMismatch))

	// A second instance on its own registry does not collide.
	assert.NotPanics(t, func() { NewBusinessMetrics("test", prometheus.NewRegistry()) })
}

func TestInitSentry_Disabled(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cleanup, err := InitSentry(SentryConfig{Enabled: false}, logger)
	require.NoError(t, err)
	cleanup()

	assert.False(t, IsEnabled())
	assert.Contains(t, buf.String(), "Sentry disabled")

	// Capture helpers are no-ops while disabled.
	CaptureError(errors.New("boom"))
	CaptureOrderError(context.Background(), errors.New("boom"), "MINA-1", "pi_1", nil)
}

func TestInitSentry_MissingDSN(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	_, err := InitSentry(SentryConfig{Enabled: true}, logger)
	require.NoError(t, err)
	assert.False(t, IsEnabled())
	assert.Contains(t, buf.String(), "Sentry DSN not configured")
}

func TestScrubEvent(t *testing.T) {
	event := &sentry.Event{Request: &sentry.Request{
		Data:    `{"customer":{"phone":"+33612345678"}}`,
		Cookies: "session=abc",
		Headers: map[string]string{
			"Authorization":    "Bearer x",
			"Stripe-Signature": "t=1,v1=abc",
			"User-Agent":       "curl",
		},
	}}

	out := scrubEvent(event, nil)

	assert.Empty(t, out.Request.Data)
	assert.Empty(t, out.Request.Cookies)
	assert.NotContains(t, out.Request.Headers, "Authorization")
	assert.NotContains(t, out.Request.Headers, "Stripe-Signature")
	assert.Equal(t, "curl", out.Request.Headers["User-Agent"])

	assert.NotNil(t, scrubEvent(&sentry.Event{}, nil))
}

func TestSentryMiddleware_PassThroughWhenDisabled(t *testing.T) {
	_, err := InitSentry(SentryConfig{Enabled: false}, slog.Default())
	require.NoError(t, err)

	called := false
	h := SentryContextMiddleware()(SentryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHTTPTransport_PassThroughWhenDisabled(t *testing.T) {
	_, err := InitSentry(SentryConfig{Enabled: false}, slog.Default())
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := &http.Client{Transport: &HTTPTransport{Transport: http.DefaultTransport}}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}
