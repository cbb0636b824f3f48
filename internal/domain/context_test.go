package domain

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestRequestIDContext(t *testing.T) {
	t.Run("RequestIDFromContext returns empty string when no request ID", func(t *testing.T) {
		ctx := context.Background()
		requestID := RequestIDFromContext(ctx)
		if requestID != "" {
			t.Errorf("expected empty string, got %q", requestID)
		}
	})

	t.Run("RequestIDFromContext returns request ID when set", func(t *testing.T) {
		ctx := context.Background()
		expected := "req-12345"
		ctx = NewContextWithRequestID(ctx, expected)

		requestID := RequestIDFromContext(ctx)
		if requestID != expected {
			t.Errorf("expected %q, got %q", expected, requestID)
		}
	})
}

func TestOrderRefContext(t *testing.T) {
	ctx := context.Background()
	if got := OrderRefFromContext(ctx); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}

	ctx = NewContextWithOrderRef(ctx, "pi_3MtwBwLkdIwHu7ix28a3tqPa")
	if got := OrderRefFromContext(ctx); got != "pi_3MtwBwLkdIwHu7ix28a3tqPa" {
		t.Errorf("expected order ref, got %q", got)
	}
}

func TestMultipleContextValues(t *testing.T) {
	ctx := context.Background()
	ctx = NewContextWithRequestID(ctx, "req-abc123")
	ctx = NewContextWithOrderRef(ctx, "cs_test_123")

	if got := RequestIDFromContext(ctx); got != "req-abc123" {
		t.Errorf("expected request ID %q, got %q", "req-abc123", got)
	}
	if got := OrderRefFromContext(ctx); got != "cs_test_123" {
		t.Errorf("expected order ref %q, got %q", "cs_test_123", got)
	}
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := NewContextWithRequestID(context.Background(), "req-1")
	ctx = NewContextWithOrderRef(ctx, "pi_123")

	LoggerFromContext(ctx, base).Info("hello")

	out := buf.String()
	if !strings.Contains(out, "request_id=req-1") {
		t.Errorf("log line missing request_id: %s", out)
	}
	if !strings.Contains(out, "order_ref=pi_123") {
		t.Errorf("log line missing order_ref: %s", out)
	}
}
