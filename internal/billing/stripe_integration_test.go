//go:build integration
// +build integration

package billing

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadTestConfig loads Stripe test credentials from .env.test
func loadTestConfig(t *testing.T) StripeConfig {
	t.Helper()

	if err := godotenv.Load("../../.env.test"); err != nil {
		t.Skipf("Skipping integration test: .env.test not found (%v)", err)
	}

	apiKey := os.Getenv("STRIPE_SECRET_KEY")
	if apiKey == "" || apiKey == "sk_test_your_key_here" {
		t.Skip("Skipping integration test: STRIPE_SECRET_KEY not set in .env.test")
	}

	webhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	if webhookSecret == "" {
		webhookSecret = "whsec_placeholder_for_cli"
	}

	config := StripeConfig{
		APIKey:        apiKey,
		WebhookSecret: webhookSecret,
		Currency:      "eur",
	}

	if !config.IsTestMode() {
		t.Fatal("DANGER: Live Stripe key detected! Integration tests must use test mode keys (sk_test_...)")
	}

	return config
}

func TestStripeIntegration_PaymentIntentRoundTrip(t *testing.T) {
	provider, err := NewStripeProvider(loadTestConfig(t))
	require.NoError(t, err, "Failed to create Stripe provider")

	ctx := context.Background()
	orderID := "CMD-integration-" + time.Now().Format("20060102150405")

	created, err := provider.CreatePaymentIntent(ctx, CreatePaymentIntentParams{
		AmountCents:    2500,
		Description:    "Integration test payment",
		CustomerEmail:  "test@example.com",
		Metadata:       map[string]string{"order_id": orderID},
		IdempotencyKey: orderID,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ClientSecret)
	assert.Equal(t, "requires_payment_method", created.Status)

	fetched, err := provider.GetPaymentIntent(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, orderID, fetched.Metadata["order_id"])
	assert.Equal(t, int64(2500), fetched.AmountCents)
}

func TestStripeIntegration_CheckoutSession(t *testing.T) {
	provider, err := NewStripeProvider(loadTestConfig(t))
	require.NoError(t, err)

	ctx := context.Background()
	cs, err := provider.CreateCheckoutSession(ctx, CreateCheckoutSessionParams{
		LineItems: []LineItem{
			{Name: "Integration item", UnitAmountCents: 1500, Quantity: 1},
			{Name: "Frais de livraison - Mondial Relay", UnitAmountCents: 500, Quantity: 1},
		},
		SuccessURL: "https://example.com/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  "https://example.com/",
		Metadata:   map[string]string{"order_id": "CMD-integration"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, cs.URL)

	fetched, err := provider.GetCheckoutSession(ctx, cs.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), fetched.AmountTotal)
	assert.False(t, fetched.Paid())
}
