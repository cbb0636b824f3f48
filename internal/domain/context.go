// Package domain provides the core order types, service interfaces, errors and
// context helpers shared by the checkout and fulfillment flows.
package domain

import (
	"context"
	"log/slog"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	// requestIDContextKey stores the request ID for tracing.
	requestIDContextKey contextKey = iota

	// orderRefContextKey stores the payment reference an operation works on.
	orderRefContextKey
)

// --- Request ID Context Helpers ---

// NewContextWithRequestID returns a new context with the request ID attached.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if no request ID is present.
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey).(string)
	return requestID
}

// --- Order Reference Context Helpers ---

// NewContextWithOrderRef attaches the Stripe object ID (payment intent or
// checkout session) being fulfilled.
func NewContextWithOrderRef(ctx context.Context, ref string) context.Context {
	return context.WithValue(ctx, orderRefContextKey, ref)
}

// OrderRefFromContext retrieves the order reference from context.
func OrderRefFromContext(ctx context.Context) string {
	ref, _ := ctx.Value(orderRefContextKey).(string)
	return ref
}

// LoggerFromContext decorates logger with the request ID and order reference
// found in ctx.
func LoggerFromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if id := RequestIDFromContext(ctx); id != "" {
		logger = logger.With("request_id", id)
	}
	if ref := OrderRefFromContext(ctx); ref != "" {
		logger = logger.With("order_ref", ref)
	}
	return logger
}
