package billing

import (
	"context"
	"encoding/json"
	"time"
)

// Provider defines the payment operations needed to take and verify payment
// for an order.
type Provider interface {
	// CreatePaymentIntent creates a payment intent for a one-time charge.
	// Returns the payment intent with client_secret for frontend confirmation.
	CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error)

	// GetPaymentIntent retrieves an existing payment intent.
	// Used to verify payment before creating the parcel.
	GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error)

	// CreateCheckoutSession opens a hosted checkout page in payment mode.
	CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error)

	// GetCheckoutSession retrieves an existing checkout session.
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)

	// ConstructWebhookEvent verifies the signature header against the
	// configured webhook secret and decodes the event.
	ConstructWebhookEvent(payload []byte, signature string) (*WebhookEvent, error)
}

// CreatePaymentIntentParams contains parameters for creating a payment intent.
type CreatePaymentIntentParams struct {
	// AmountCents is the amount in the smallest currency unit.
	AmountCents int64

	// Currency code (lowercase ISO 4217). Defaults to the provider currency.
	Currency string

	// CustomerEmail receives the Stripe receipt.
	CustomerEmail string

	// Description appears in the Stripe dashboard.
	Description string

	// Metadata is attached to the payment intent and read back at fulfillment.
	Metadata map[string]string

	// IdempotencyKey prevents duplicate charges on retried requests.
	IdempotencyKey string
}

// CreateCheckoutSessionParams contains parameters for creating a hosted
// checkout session.
type CreateCheckoutSessionParams struct {
	LineItems     []LineItem
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Currency      string

	// Metadata is set on the session and copied onto its payment intent.
	Metadata map[string]string
}

// LineItem is one priced line of a checkout session.
type LineItem struct {
	Name            string
	Description     string
	UnitAmountCents int64
	Quantity        int64
}

// PaymentIntent represents a payment intent.
type PaymentIntent struct {
	// ID is the Stripe payment intent ID (pi_...)
	ID string

	// ClientSecret is used by Stripe.js on frontend to confirm payment
	ClientSecret string

	AmountCents int64
	Currency    string

	// Status: requires_payment_method, requires_confirmation, succeeded, etc.
	Status string

	Metadata     map[string]string
	ReceiptEmail string
	CreatedAt    time.Time

	// LastPaymentError contains details if payment failed
	LastPaymentError *PaymentError
}

// Succeeded reports whether the payment has been captured.
func (pi *PaymentIntent) Succeeded() bool {
	return pi.Status == PaymentIntentSucceeded
}

// PaymentError contains details about a failed payment attempt.
type PaymentError struct {
	Code        string
	Message     string
	DeclineCode string
}

// CheckoutSession represents a hosted checkout session.
type CheckoutSession struct {
	ID              string
	URL             string
	PaymentStatus   string
	AmountTotal     int64
	Currency        string
	CustomerEmail   string
	PaymentIntentID string
	Metadata        map[string]string
}

// Paid reports whether the session's payment has been collected.
func (s *CheckoutSession) Paid() bool {
	return s.PaymentStatus == SessionPaid
}

// WebhookEvent is a verified Stripe event.
type WebhookEvent struct {
	ID   string
	Type string

	// Object is the raw JSON of event.data.object.
	Object json.RawMessage
}

// Stripe status and event names used by the service.
const (
	PaymentIntentSucceeded = "succeeded"
	SessionPaid            = "paid"

	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventPaymentIntentSucceeded   = "payment_intent.succeeded"
	EventPaymentIntentFailed      = "payment_intent.payment_failed"
)
