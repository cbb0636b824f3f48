package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Env             string
	LogLevel        string
	Port            int
	BaseURL         string
	ShopName        string
	AllowedOrigins  []string
	ShutdownSeconds int
	Stripe          StripeConfig
	Sendcloud       SendcloudConfig
	EasyPost        EasyPostConfig
	Shipping        ShippingConfig
	Sentry          SentryConfig
	Metrics         MetricsConfig
	RateLimit       RateLimitConfig
}

// RateLimitConfig throttles the public checkout endpoints per client IP.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
	TrustProxyHeaders bool
}

// SentryConfig holds configuration for Sentry error tracking
type SentryConfig struct {
	DSN              string
	Enabled          bool
	Environment      string
	Release          string
	SampleRate       float64
	TracesSampleRate float64
	Debug            bool
}

type StripeConfig struct {
	SecretKey      string
	PublishableKey string
	WebhookSecret  string
	Currency       string
}

type SendcloudConfig struct {
	APIKey         string
	APISecret      string
	BaseURL        string
	TimeoutSeconds int
	RequestLabel   bool
}

type EasyPostConfig struct {
	APIKey string

	// Sender address printed on EasyPost labels.
	FromName       string
	FromStreet     string
	FromCity       string
	FromPostalCode string
	FromCountry    string
	FromPhone      string
	FromEmail      string
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool
	Path      string
	Namespace string
}

// Shipping providers.
const (
	ShippingProviderSendcloud = "sendcloud"
	ShippingProviderEasyPost  = "easypost"
	ShippingProviderMock      = "mock"
)

// ShippingProfile is a named pair of per-item weight and carrier method.
type ShippingProfile struct {
	ItemWeightGrams  int
	ShipmentMethodID int
}

// ShippingProfiles lists the supported SHIPPING_PROFILE values.
var ShippingProfiles = map[string]ShippingProfile{
	"relay_small": {ItemWeightGrams: 25, ShipmentMethodID: 155},
	"standard":    {ItemWeightGrams: 20, ShipmentMethodID: 8},
}

// DefaultShippingProfile applies when SHIPPING_PROFILE is unset.
const DefaultShippingProfile = "relay_small"

type ShippingConfig struct {
	Provider string
	Profile  string

	// Resolved from Profile unless overridden by SHIPPING_ITEM_WEIGHT_GRAMS or
	// SHIPPING_METHOD_ID.
	ItemWeightGrams  int
	ShipmentMethodID int

	CompanyName   string
	OrderPrefix   string
	HSCode        string
	OriginCountry string

	ServiceName string
	Cost        decimal.Decimal
}

func NewConfig() (*Config, error) {
	// Try to load .env from current directory, then walk up to find it (max 2 levels)
	err := godotenv.Load()
	if err != nil {
		// Walk up directories to find .env (max 2 parent directories)
		dir, _ := os.Getwd()
		found := false
		for i := 0; i < 2; i++ {
			dir = filepath.Join(dir, "..")
			if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
				found = true
				break
			}
		}
		if !found {
			slog.Default().Warn("Warning: .env file not found, using environment variables and defaults")
		}
	}

	baseURL := strings.TrimRight(getEnv("BASE_URL", "http://localhost:3000"), "/")

	cfg := &Config{
		Env:             getEnv("ENV", "dev"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Port:            getEnvInt("PORT", 3000),
		BaseURL:         baseURL,
		ShopName:        getEnv("SHOP_NAME", "Mina"),
		AllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", []string{baseURL}),
		ShutdownSeconds: getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 15),
		Stripe: StripeConfig{
			SecretKey:      getEnv("STRIPE_SECRET_KEY", "sk_test_your_key_here"),
			PublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", "pk_test_your_key_here"),
			WebhookSecret:  getEnv("STRIPE_WEBHOOK_SECRET", "whsec_your_webhook_secret_here"),
			Currency:       strings.ToLower(getEnv("STRIPE_CURRENCY", "eur")),
		},
		Sendcloud: SendcloudConfig{
			APIKey:         getEnv("SENDCLOUD_API_KEY", ""),
			APISecret:      getEnv("SENDCLOUD_API_SECRET", ""),
			BaseURL:        getEnv("SENDCLOUD_BASE_URL", ""),
			TimeoutSeconds: getEnvInt("SENDCLOUD_TIMEOUT_SECONDS", 15),
			RequestLabel:   getEnvBool("SENDCLOUD_REQUEST_LABEL", false),
		},
		EasyPost: EasyPostConfig{
			APIKey:         getEnv("EASYPOST_API_KEY", ""),
			FromName:       getEnv("SENDER_NAME", ""),
			FromStreet:     getEnv("SENDER_STREET", ""),
			FromCity:       getEnv("SENDER_CITY", ""),
			FromPostalCode: getEnv("SENDER_POSTAL_CODE", ""),
			FromCountry:    getEnv("SENDER_COUNTRY", "FR"),
			FromPhone:      getEnv("SENDER_PHONE", ""),
			FromEmail:      getEnv("SENDER_EMAIL", ""),
		},
		Shipping: ShippingConfig{
			Provider:      strings.ToLower(getEnv("SHIPPING_PROVIDER", ShippingProviderSendcloud)),
			Profile:       strings.ToLower(getEnv("SHIPPING_PROFILE", DefaultShippingProfile)),
			CompanyName:   getEnv("SHIPPING_COMPANY_NAME", "Mina Paris"),
			OrderPrefix:   getEnv("ORDER_NUMBER_PREFIX", "MINA"),
			HSCode:        getEnv("SHIPPING_HS_CODE", ""),
			OriginCountry: getEnv("SHIPPING_ORIGIN_COUNTRY", "FR"),
			ServiceName:   getEnv("SHIPPING_SERVICE_NAME", "Frais de livraison - Mondial Relay"),
			Cost:          getEnvDecimal("SHIPPING_COST", decimal.RequireFromString("5.00")),
		},
		Sentry: SentryConfig{
			DSN:              getEnv("SENTRY_DSN", ""),
			Enabled:          getEnvBool("SENTRY_ENABLED", false), // Disabled by default for development
			Environment:      getEnv("SENTRY_ENVIRONMENT", "development"),
			Release:          getEnv("SENTRY_RELEASE", ""),
			SampleRate:       getEnvFloat("SENTRY_SAMPLE_RATE", 1.0),
			TracesSampleRate: getEnvFloat("SENTRY_TRACES_SAMPLE_RATE", 0.0), // Disabled by default
			Debug:            getEnvBool("SENTRY_DEBUG", false),
		},
		Metrics: MetricsConfig{
			Enabled:   getEnvBool("METRICS_ENABLED", true),
			Path:      getEnv("METRICS_PATH", "/metrics"),
			Namespace: getEnv("METRICS_NAMESPACE", "pointrelais"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnvBool("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getEnvFloat("RATE_LIMIT_RPS", 2),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 10),
			TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),
		},
	}

	// Validate env
	validEnv := cfg.Env == "dev" || cfg.Env == "prod"
	if !validEnv {
		slog.Default().Warn("Invalid environment. Using default: prod", slog.String("env", cfg.Env))
		cfg.Env = "prod"
	}

	// Validate log level
	validLevel := cfg.LogLevel == "info" || cfg.LogLevel == "debug" || cfg.LogLevel == "warn" || cfg.LogLevel == "error"
	if !validLevel {
		slog.Default().Warn("Invalid log level. Using default: info", slog.String("value", cfg.LogLevel))
		cfg.LogLevel = "info"
	}

	if err := cfg.Shipping.resolve(getEnvInt("SHIPPING_ITEM_WEIGHT_GRAMS", 0), getEnvInt("SHIPPING_METHOD_ID", 0)); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolve applies the named profile, then the explicit overrides.
func (s *ShippingConfig) resolve(weightOverride, methodOverride int) error {
	profile, ok := ShippingProfiles[s.Profile]
	if !ok {
		return fmt.Errorf("unknown SHIPPING_PROFILE %q (expected relay_small or standard)", s.Profile)
	}
	s.ItemWeightGrams = profile.ItemWeightGrams
	s.ShipmentMethodID = profile.ShipmentMethodID

	if weightOverride > 0 {
		s.ItemWeightGrams = weightOverride
	}
	if methodOverride > 0 {
		s.ShipmentMethodID = methodOverride
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Shipping.Provider {
	case ShippingProviderSendcloud:
		if c.Env == "prod" && (c.Sendcloud.APIKey == "" || c.Sendcloud.APISecret == "") {
			return fmt.Errorf("SENDCLOUD_API_KEY and SENDCLOUD_API_SECRET required in production")
		}
	case ShippingProviderEasyPost:
		if c.EasyPost.APIKey == "" {
			return fmt.Errorf("EASYPOST_API_KEY required when SHIPPING_PROVIDER=easypost")
		}
	case ShippingProviderMock:
		if c.Env == "prod" {
			return fmt.Errorf("SHIPPING_PROVIDER=mock is not allowed in production")
		}
	default:
		return fmt.Errorf("unknown SHIPPING_PROVIDER %q", c.Shipping.Provider)
	}

	if c.Env == "prod" {
		if strings.HasSuffix(c.Stripe.SecretKey, "your_key_here") {
			return fmt.Errorf("STRIPE_SECRET_KEY must be set in production environment")
		}
		if strings.HasSuffix(c.Stripe.WebhookSecret, "your_webhook_secret_here") {
			return fmt.Errorf("STRIPE_WEBHOOK_SECRET must be set in production environment")
		}
	}

	if c.Shipping.Cost.IsNegative() {
		return fmt.Errorf("SHIPPING_COST must not be negative, got %s", c.Shipping.Cost)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
		slog.Default().Warn("Invalid integer in environment. Using default", slog.String("key", key), slog.String("value", value))
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var floatValue float64
		if _, err := fmt.Sscanf(value, "%f", &floatValue); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(strings.TrimSpace(value)); err == nil {
			return d
		}
		slog.Default().Warn("Invalid decimal in environment. Using default", slog.String("key", key), slog.String("value", value))
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimRight(strings.TrimSpace(part), "/"); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
