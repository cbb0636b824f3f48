package shipping

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider is a test implementation of Provider.
// Set the *Func fields to control behavior; otherwise it records every
// payload and returns a parcel echoing it.
type MockProvider struct {
	CreateParcelFunc        func(ctx context.Context, payload *Payload) (*Parcel, error)
	ListShippingMethodsFunc func(ctx context.Context) ([]ShippingMethod, error)

	mu       sync.Mutex
	payloads []*Payload
	nextID   int

	// CallLog records method names in call order.
	CallLog []string
}

// NewMockProvider creates a new mock shipping provider for testing.
func NewMockProvider() *MockProvider {
	return &MockProvider{nextID: 1000}
}

// CreateParcel delegates to the configured function or returns a default parcel.
func (m *MockProvider) CreateParcel(ctx context.Context, payload *Payload) (*Parcel, error) {
	m.mu.Lock()
	m.CallLog = append(m.CallLog, "CreateParcel")
	m.payloads = append(m.payloads, payload)
	m.nextID++
	id := m.nextID
	m.mu.Unlock()

	if m.CreateParcelFunc != nil {
		return m.CreateParcelFunc(ctx, payload)
	}
	if payload == nil {
		return nil, ErrNilPayload
	}

	return &Parcel{
		ID:               fmt.Sprintf("%d", id),
		TrackingNumber:   fmt.Sprintf("MOCK%08d", id),
		OrderNumber:      payload.OrderNumber,
		Carrier:          "mock",
		WeightGrams:      payload.TotalWeightGrams,
		ShipmentMethodID: payload.ShipmentMethodID,
		ServicePointID:   payload.PickupPointID,
		ItemCount:        len(payload.Items),
	}, nil
}

// ListShippingMethods delegates to the configured function or returns one
// pickup point method.
func (m *MockProvider) ListShippingMethods(ctx context.Context) ([]ShippingMethod, error) {
	m.mu.Lock()
	m.CallLog = append(m.CallLog, "ListShippingMethods")
	m.mu.Unlock()

	if m.ListShippingMethodsFunc != nil {
		return m.ListShippingMethodsFunc(ctx)
	}
	return []ShippingMethod{{
		ID:                155,
		Name:              "Mondial Relay Point Relais 0-0.5kg",
		Carrier:           "mondial_relay",
		MinWeightGrams:    1,
		MaxWeightGrams:    500,
		ServicePointInput: "required",
		Countries:         []string{"FR", "BE"},
	}}, nil
}

// Payloads returns the payloads passed to CreateParcel.
func (m *MockProvider) Payloads() []*Payload {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Payload, len(m.payloads))
	copy(out, m.payloads)
	return out
}

// Reset clears recorded calls.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = nil
	m.CallLog = nil
}
