package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"
)

var _ Provider = (*StripeProvider)(nil)

// StripeProvider implements Provider using the Stripe API.
type StripeProvider struct {
	client        *stripe.Client
	webhookSecret string
	currency      string
	logger        *slog.Logger
}

// NewStripeProvider creates a new Stripe billing provider.
func NewStripeProvider(config StripeConfig) (*StripeProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAPIKey, err)
	}
	return newStripeProvider(config, nil), nil
}

// newStripeProvider builds the provider. A non-empty backendURL points every
// Stripe backend at that address.
func newStripeProvider(config StripeConfig, backendURL *string) *StripeProvider {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxRetries := config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}
	backends := stripe.NewBackendsWithConfig(&stripe.BackendConfig{
		URL:               backendURL,
		MaxNetworkRetries: stripe.Int64(maxRetries),
		HTTPClient:        &http.Client{Timeout: 30 * time.Second},
	})

	return &StripeProvider{
		client:        stripe.NewClient(config.APIKey, stripe.WithBackends(backends)),
		webhookSecret: config.WebhookSecret,
		currency:      config.currency(),
		logger:        logger,
	}
}

// CreatePaymentIntent creates a Stripe payment intent with automatic payment
// methods enabled.
func (s *StripeProvider) CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error) {
	if params.AmountCents < MinimumAmountCents {
		return nil, ErrAmountTooSmall
	}

	currency := s.currency
	if params.Currency != "" {
		currency = strings.ToLower(params.Currency)
	}

	piParams := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(params.AmountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: params.Metadata,
	}
	if params.Description != "" {
		piParams.Description = stripe.String(params.Description)
	}
	if params.CustomerEmail != "" {
		piParams.ReceiptEmail = stripe.String(params.CustomerEmail)
	}
	if params.IdempotencyKey != "" {
		piParams.SetIdempotencyKey(params.IdempotencyKey)
	}

	pi, err := s.client.V1PaymentIntents.Create(ctx, piParams)
	if err != nil {
		return nil, wrapStripeError("create payment intent", err)
	}

	s.logger.Info("payment intent created",
		"payment_intent_id", pi.ID,
		"amount_cents", pi.Amount,
		"currency", pi.Currency,
	)
	return paymentIntentFromStripe(pi), nil
}

// GetPaymentIntent retrieves a Stripe payment intent.
func (s *StripeProvider) GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error) {
	pi, err := s.client.V1PaymentIntents.Retrieve(ctx, paymentIntentID, nil)
	if err != nil {
		if isResourceMissing(err) {
			return nil, fmt.Errorf("%w: %s", ErrPaymentIntentNotFound, paymentIntentID)
		}
		return nil, wrapStripeError("retrieve payment intent", err)
	}
	return paymentIntentFromStripe(pi), nil
}

// CreateCheckoutSession creates a Stripe Checkout Session in payment mode.
// Metadata is set on the session and on its payment intent.
func (s *StripeProvider) CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error) {
	if len(params.LineItems) == 0 {
		return nil, ErrNoLineItems
	}

	currency := s.currency
	if params.Currency != "" {
		currency = strings.ToLower(params.Currency)
	}

	lineItems := make([]*stripe.CheckoutSessionCreateLineItemParams, 0, len(params.LineItems))
	for _, item := range params.LineItems {
		productData := &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			productData.Description = stripe.String(item.Description)
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				ProductData: productData,
				UnitAmount:  stripe.Int64(item.UnitAmountCents),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	sessionParams := &stripe.CheckoutSessionCreateParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		Metadata:   params.Metadata,
		PaymentIntentData: &stripe.CheckoutSessionCreatePaymentIntentDataParams{
			Metadata: params.Metadata,
		},
	}
	if params.CustomerEmail != "" {
		sessionParams.CustomerEmail = stripe.String(params.CustomerEmail)
	}

	cs, err := s.client.V1CheckoutSessions.Create(ctx, sessionParams)
	if err != nil {
		return nil, wrapStripeError("create checkout session", err)
	}

	s.logger.Info("checkout session created",
		"session_id", cs.ID,
		"amount_total", cs.AmountTotal,
	)
	return checkoutSessionFromStripe(cs), nil
}

// GetCheckoutSession retrieves a Stripe Checkout Session.
func (s *StripeProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	cs, err := s.client.V1CheckoutSessions.Retrieve(ctx, sessionID, nil)
	if err != nil {
		if isResourceMissing(err) {
			return nil, fmt.Errorf("%w: %s", ErrCheckoutSessionNotFound, sessionID)
		}
		return nil, wrapStripeError("retrieve checkout session", err)
	}
	return checkoutSessionFromStripe(cs), nil
}

// ConstructWebhookEvent verifies a Stripe-Signature header and decodes the event.
// API version mismatches are tolerated: only data.object is consumed.
func (s *StripeProvider) ConstructWebhookEvent(payload []byte, signature string) (*WebhookEvent, error) {
	return constructWebhookEvent(payload, signature, s.webhookSecret)
}

func constructWebhookEvent(payload []byte, signature, secret string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhookSignature, err)
	}

	we := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if event.Data != nil {
		we.Object = event.Data.Raw
	}
	return we, nil
}

// CheckoutSession decodes the event object as a checkout session.
func (e *WebhookEvent) CheckoutSession() (*CheckoutSession, error) {
	var cs stripe.CheckoutSession
	if err := e.decodeObject(&cs); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return checkoutSessionFromStripe(&cs), nil
}

// PaymentIntent decodes the event object as a payment intent.
func (e *WebhookEvent) PaymentIntent() (*PaymentIntent, error) {
	var pi stripe.PaymentIntent
	if err := e.decodeObject(&pi); err != nil {
		return nil, fmt.Errorf("decode payment intent: %w", err)
	}
	return paymentIntentFromStripe(&pi), nil
}

// decodeObject unmarshals the event object into v. stripe-go accepts a bare
// JSON string as an unexpanded ID, which is never a valid event payload.
func (e *WebhookEvent) decodeObject(v any) error {
	trimmed := bytes.TrimSpace(e.Object)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errors.New("event object is not a JSON object")
	}
	return json.Unmarshal(trimmed, v)
}

func paymentIntentFromStripe(pi *stripe.PaymentIntent) *PaymentIntent {
	out := &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
		Metadata:     pi.Metadata,
		ReceiptEmail: pi.ReceiptEmail,
		CreatedAt:    time.Unix(pi.Created, 0),
	}
	if pi.LastPaymentError != nil {
		out.LastPaymentError = &PaymentError{
			Code:        string(pi.LastPaymentError.Code),
			Message:     pi.LastPaymentError.Msg,
			DeclineCode: string(pi.LastPaymentError.DeclineCode),
		}
	}
	return out
}

func checkoutSessionFromStripe(cs *stripe.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:            cs.ID,
		URL:           cs.URL,
		PaymentStatus: string(cs.PaymentStatus),
		AmountTotal:   cs.AmountTotal,
		Currency:      string(cs.Currency),
		CustomerEmail: cs.CustomerEmail,
		Metadata:      cs.Metadata,
	}
	if out.CustomerEmail == "" && cs.CustomerDetails != nil {
		out.CustomerEmail = cs.CustomerDetails.Email
	}
	if cs.PaymentIntent != nil {
		out.PaymentIntentID = cs.PaymentIntent.ID
	}
	return out
}

func isResourceMissing(err error) bool {
	var se *stripe.Error
	return errors.As(err, &se) && se.Code == stripe.ErrorCodeResourceMissing
}
