package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var _ Provider = (*MockProvider)(nil)

// MockProvider is a mock billing provider for testing.
// Simulates successful payment flows without calling Stripe API.
type MockProvider struct {
	// CreatePaymentIntentFunc allows customizing payment intent creation behavior
	CreatePaymentIntentFunc func(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error)

	// GetPaymentIntentFunc allows customizing payment intent retrieval behavior
	GetPaymentIntentFunc func(ctx context.Context, paymentIntentID string) (*PaymentIntent, error)

	// CreateCheckoutSessionFunc allows customizing checkout session creation behavior
	CreateCheckoutSessionFunc func(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error)

	// GetCheckoutSessionFunc allows customizing checkout session retrieval behavior
	GetCheckoutSessionFunc func(ctx context.Context, sessionID string) (*CheckoutSession, error)

	// ConstructWebhookEventFunc allows customizing webhook verification behavior
	ConstructWebhookEventFunc func(payload []byte, signature string) (*WebhookEvent, error)

	// PaymentIntents stores created payment intents for retrieval
	PaymentIntents map[string]*PaymentIntent

	// CheckoutSessions stores created checkout sessions for retrieval
	CheckoutSessions map[string]*CheckoutSession

	// CallLog tracks method calls for test assertions
	CallLog []string

	mu sync.Mutex
}

// NewMockProvider creates a new mock billing provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		PaymentIntents:   make(map[string]*PaymentIntent),
		CheckoutSessions: make(map[string]*CheckoutSession),
		CallLog:          []string{},
	}
}

func (m *MockProvider) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallLog = append(m.CallLog, call)
}

// CreatePaymentIntent creates a mock payment intent.
func (m *MockProvider) CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error) {
	m.record(fmt.Sprintf("CreatePaymentIntent(%d, %s)", params.AmountCents, params.Currency))

	if m.CreatePaymentIntentFunc != nil {
		return m.CreatePaymentIntentFunc(ctx, params)
	}
	if params.AmountCents < MinimumAmountCents {
		return nil, ErrAmountTooSmall
	}

	id := "pi_" + uuid.New().String()
	pi := &PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret_" + uuid.New().String(),
		AmountCents:  params.AmountCents,
		Currency:     params.Currency,
		Status:       "requires_payment_method",
		Metadata:     params.Metadata,
		ReceiptEmail: params.CustomerEmail,
		CreatedAt:    time.Now(),
	}

	m.mu.Lock()
	m.PaymentIntents[pi.ID] = pi
	m.mu.Unlock()
	return pi, nil
}

// GetPaymentIntent retrieves a mock payment intent.
func (m *MockProvider) GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error) {
	m.record(fmt.Sprintf("GetPaymentIntent(%s)", paymentIntentID))

	if m.GetPaymentIntentFunc != nil {
		return m.GetPaymentIntentFunc(ctx, paymentIntentID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	pi, exists := m.PaymentIntents[paymentIntentID]
	if !exists {
		return nil, ErrPaymentIntentNotFound
	}
	return pi, nil
}

// CreateCheckoutSession creates a mock checkout session.
func (m *MockProvider) CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error) {
	m.record(fmt.Sprintf("CreateCheckoutSession(%d items)", len(params.LineItems)))

	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, params)
	}
	if len(params.LineItems) == 0 {
		return nil, ErrNoLineItems
	}

	var total int64
	for _, item := range params.LineItems {
		total += item.UnitAmountCents * item.Quantity
	}

	id := "cs_test_" + uuid.New().String()
	cs := &CheckoutSession{
		ID:            id,
		URL:           "https://checkout.stripe.com/c/pay/" + id,
		PaymentStatus: "unpaid",
		AmountTotal:   total,
		Currency:      params.Currency,
		CustomerEmail: params.CustomerEmail,
		Metadata:      params.Metadata,
	}

	m.mu.Lock()
	m.CheckoutSessions[cs.ID] = cs
	m.mu.Unlock()
	return cs, nil
}

// GetCheckoutSession retrieves a mock checkout session.
func (m *MockProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	m.record(fmt.Sprintf("GetCheckoutSession(%s)", sessionID))

	if m.GetCheckoutSessionFunc != nil {
		return m.GetCheckoutSessionFunc(ctx, sessionID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cs, exists := m.CheckoutSessions[sessionID]
	if !exists {
		return nil, ErrCheckoutSessionNotFound
	}
	return cs, nil
}

// ConstructWebhookEvent decodes payload without checking the signature.
// An empty signature is rejected.
func (m *MockProvider) ConstructWebhookEvent(payload []byte, signature string) (*WebhookEvent, error) {
	m.record("ConstructWebhookEvent")

	if m.ConstructWebhookEventFunc != nil {
		return m.ConstructWebhookEventFunc(payload, signature)
	}
	if signature == "" {
		return nil, ErrInvalidWebhookSignature
	}

	var raw struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhookSignature, err)
	}
	return &WebhookEvent{ID: raw.ID, Type: raw.Type, Object: raw.Data.Object}, nil
}

// SimulateSucceededPayment updates a payment intent to succeeded status.
// Used in tests to simulate successful payment confirmation.
func (m *MockProvider) SimulateSucceededPayment(paymentIntentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pi, exists := m.PaymentIntents[paymentIntentID]
	if !exists {
		return ErrPaymentIntentNotFound
	}
	pi.Status = PaymentIntentSucceeded
	return nil
}

// SimulateFailedPayment updates a payment intent to failed status.
func (m *MockProvider) SimulateFailedPayment(paymentIntentID string, errorCode string, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pi, exists := m.PaymentIntents[paymentIntentID]
	if !exists {
		return ErrPaymentIntentNotFound
	}
	pi.Status = "requires_payment_method"
	pi.LastPaymentError = &PaymentError{Code: errorCode, Message: errorMessage}
	return nil
}

// SimulatePaidSession marks a checkout session as paid.
func (m *MockProvider) SimulatePaidSession(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cs, exists := m.CheckoutSessions[sessionID]
	if !exists {
		return ErrCheckoutSessionNotFound
	}
	cs.PaymentStatus = SessionPaid
	return nil
}

// Calls returns a copy of the call log.
func (m *MockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.CallLog...)
}
