package billing

import (
	"errors"
	"log/slog"
	"strings"
)

// StripeConfig contains configuration for Stripe provider.
type StripeConfig struct {
	// APIKey is the Stripe secret key (sk_test_... or sk_live_...)
	APIKey string

	// WebhookSecret is the webhook signing secret (whsec_...)
	// Used to verify webhook signatures from Stripe
	WebhookSecret string

	// Currency is the default charge currency. Default: eur
	Currency string

	// MaxRetries is the maximum number of retries for transient failures
	// Default: 2
	MaxRetries int64

	Logger *slog.Logger
}

// Validate checks that required configuration is present.
func (c *StripeConfig) Validate() error {
	if c.APIKey == "" {
		return errors.New("stripe: API key is required")
	}
	if c.WebhookSecret == "" {
		return errors.New("stripe: webhook secret is required")
	}
	return nil
}

// IsTestMode returns true if using test mode API keys.
func (c *StripeConfig) IsTestMode() bool {
	return strings.HasPrefix(c.APIKey, "sk_test_") || strings.HasPrefix(c.APIKey, "rk_test_")
}

func (c *StripeConfig) currency() string {
	if c.Currency == "" {
		return "eur"
	}
	return strings.ToLower(c.Currency)
}
