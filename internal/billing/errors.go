package billing

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v83"
)

var (
	// ErrInvalidAPIKey is returned when the Stripe API key is invalid or missing.
	ErrInvalidAPIKey = errors.New("billing: invalid or missing API key")

	// ErrInvalidWebhookSignature is returned when webhook signature verification fails.
	ErrInvalidWebhookSignature = errors.New("billing: invalid webhook signature")

	// ErrAmountTooSmall is returned when the payment amount is below Stripe's minimum.
	ErrAmountTooSmall = errors.New("billing: amount too small (minimum 0.50)")

	// ErrNoLineItems is returned when a checkout session has nothing to sell.
	ErrNoLineItems = errors.New("billing: checkout session needs at least one line item")

	// ErrPaymentIntentNotFound is returned when a payment intent does not exist.
	ErrPaymentIntentNotFound = errors.New("billing: payment intent not found")

	// ErrCheckoutSessionNotFound is returned when a checkout session does not exist.
	ErrCheckoutSessionNotFound = errors.New("billing: checkout session not found")
)

// MinimumAmountCents is Stripe's minimum charge in EUR and USD.
const MinimumAmountCents = 50

// StripeError wraps a Stripe API error with additional context.
type StripeError struct {
	Message        string // Human-readable error message
	Code           string // Stripe error code (e.g., "card_declined")
	Type           string // Stripe error type (e.g., "card_error")
	DeclineCode    string // Card decline reason (if applicable)
	HTTPStatusCode int
	RequestID      string // Stripe request ID for debugging
	OriginalError  error
}

func (e *StripeError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stripe: %s (code: %s)", e.Message, e.Code)
	}
	return fmt.Sprintf("stripe: %s", e.Message)
}

func (e *StripeError) Unwrap() error {
	return e.OriginalError
}

// IsDeclined returns true if error is due to card decline.
func (e *StripeError) IsDeclined() bool {
	return e.Code == "card_declined" || e.DeclineCode != ""
}

// IsTemporary returns true if error is likely transient and retryable.
func (e *StripeError) IsTemporary() bool {
	return e.Code == "rate_limit" || e.Type == "api_connection_error" ||
		e.HTTPStatusCode == http.StatusTooManyRequests || e.HTTPStatusCode >= http.StatusInternalServerError
}

// ErrorCode maps the failure onto the application error codes.
func (e *StripeError) ErrorCode() string {
	switch {
	case e.Type == "card_error" || e.IsDeclined():
		return "payment_required"
	case e.HTTPStatusCode == http.StatusUnauthorized:
		return "unauthorized"
	case e.HTTPStatusCode == http.StatusNotFound:
		return "not_found"
	case e.IsTemporary():
		return "unavailable"
	case e.Type == "invalid_request_error" || e.HTTPStatusCode == http.StatusBadRequest:
		return "invalid"
	default:
		return "internal"
	}
}

// ErrorMessage is the message shown to the customer.
func (e *StripeError) ErrorMessage() string {
	switch e.ErrorCode() {
	case "payment_required":
		if e.Message != "" {
			return e.Message
		}
		return "Payment was declined"
	case "unauthorized":
		return "Stripe authentication failed"
	case "not_found":
		return "Payment not found"
	case "unavailable":
		return "Payment service is temporarily unavailable"
	case "invalid":
		return "Payment request was rejected"
	default:
		return "Payment error"
	}
}

// wrapStripeError converts an error returned by stripe-go into a StripeError.
// Non-Stripe errors (transport, context) are wrapped with op.
func wrapStripeError(op string, err error) error {
	if err == nil {
		return nil
	}

	var se *stripe.Error
	if !errors.As(err, &se) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return &StripeError{
		Message:        se.Msg,
		Code:           string(se.Code),
		Type:           string(se.Type),
		DeclineCode:    string(se.DeclineCode),
		HTTPStatusCode: se.HTTPStatusCode,
		RequestID:      se.RequestID,
		OriginalError:  err,
	}
}
