package internal

import (
	"testing"

	"github.com/shopspring/decimal"
)

// clearConfigEnv pins every variable NewConfig reads so a developer's .env
// cannot leak into the assertions.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENV", "LOG_LEVEL", "PORT", "BASE_URL", "SHOP_NAME", "CORS_ALLOWED_ORIGINS",
		"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "STRIPE_CURRENCY",
		"SENDCLOUD_API_KEY", "SENDCLOUD_API_SECRET", "EASYPOST_API_KEY",
		"SHIPPING_PROVIDER", "SHIPPING_PROFILE", "SHIPPING_ITEM_WEIGHT_GRAMS",
		"SHIPPING_METHOD_ID", "SHIPPING_COST", "ORDER_NUMBER_PREFIX",
	} {
		t.Setenv(key, "")
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}

	if cfg.Env != "dev" {
		t.Errorf("Env = %q, want dev", cfg.Env)
	}
	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.Stripe.Currency != "eur" {
		t.Errorf("Currency = %q, want eur", cfg.Stripe.Currency)
	}
	if cfg.Shipping.Profile != DefaultShippingProfile {
		t.Errorf("Profile = %q, want %q", cfg.Shipping.Profile, DefaultShippingProfile)
	}
	if cfg.Shipping.ItemWeightGrams != 25 || cfg.Shipping.ShipmentMethodID != 155 {
		t.Errorf("shipping = %dg/method %d, want 25g/method 155", cfg.Shipping.ItemWeightGrams, cfg.Shipping.ShipmentMethodID)
	}
	if !cfg.Shipping.Cost.Equal(decimal.RequireFromString("5.00")) {
		t.Errorf("Cost = %s, want 5.00", cfg.Shipping.Cost)
	}
	if cfg.Shipping.OrderPrefix != "MINA" {
		t.Errorf("OrderPrefix = %q, want MINA", cfg.Shipping.OrderPrefix)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("AllowedOrigins = %v, want [http://localhost:3000]", cfg.AllowedOrigins)
	}
}

func TestNewConfig_ShippingProfile(t *testing.T) {
	tests := []struct {
		name       string
		profile    string
		weight     string
		method     string
		wantWeight int
		wantMethod int
		wantErr    bool
	}{
		{name: "relay small", profile: "relay_small", wantWeight: 25, wantMethod: 155},
		{name: "standard", profile: "standard", wantWeight: 20, wantMethod: 8},
		{name: "case insensitive", profile: "STANDARD", wantWeight: 20, wantMethod: 8},
		{name: "weight override", profile: "standard", weight: "40", wantWeight: 40, wantMethod: 8},
		{name: "method override", profile: "relay_small", method: "1234", wantWeight: 25, wantMethod: 1234},
		{name: "non-numeric override ignored", profile: "relay_small", weight: "heavy", wantWeight: 25, wantMethod: 155},
		{name: "unknown profile", profile: "express", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv("SHIPPING_PROFILE", tt.profile)
			t.Setenv("SHIPPING_ITEM_WEIGHT_GRAMS", tt.weight)
			t.Setenv("SHIPPING_METHOD_ID", tt.method)

			cfg, err := NewConfig()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error for unknown profile")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewConfig() error = %v", err)
			}
			if cfg.Shipping.ItemWeightGrams != tt.wantWeight {
				t.Errorf("ItemWeightGrams = %d, want %d", cfg.Shipping.ItemWeightGrams, tt.wantWeight)
			}
			if cfg.Shipping.ShipmentMethodID != tt.wantMethod {
				t.Errorf("ShipmentMethodID = %d, want %d", cfg.Shipping.ShipmentMethodID, tt.wantMethod)
			}
		})
	}
}

func TestNewConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{
			name: "prod without stripe key",
			env: map[string]string{
				"ENV":                  "prod",
				"SENDCLOUD_API_KEY":    "key",
				"SENDCLOUD_API_SECRET": "secret",
			},
			wantErr: true,
		},
		{
			name: "prod without sendcloud credentials",
			env: map[string]string{
				"ENV":                   "prod",
				"STRIPE_SECRET_KEY":     "sk_live_x",
				"STRIPE_WEBHOOK_SECRET": "whsec_live",
			},
			wantErr: true,
		},
		{
			name: "prod fully configured",
			env: map[string]string{
				"ENV":                   "prod",
				"STRIPE_SECRET_KEY":     "sk_live_x",
				"STRIPE_WEBHOOK_SECRET": "whsec_live",
				"SENDCLOUD_API_KEY":     "key",
				"SENDCLOUD_API_SECRET":  "secret",
			},
		},
		{
			name: "mock carrier refused in prod",
			env: map[string]string{
				"ENV":                   "prod",
				"STRIPE_SECRET_KEY":     "sk_live_x",
				"STRIPE_WEBHOOK_SECRET": "whsec_live",
				"SHIPPING_PROVIDER":     "mock",
			},
			wantErr: true,
		},
		{
			name:    "easypost without key",
			env:     map[string]string{"SHIPPING_PROVIDER": "easypost"},
			wantErr: true,
		},
		{
			name: "easypost with key",
			env:  map[string]string{"SHIPPING_PROVIDER": "easypost", "EASYPOST_API_KEY": "EZTK_test"},
		},
		{
			name:    "unknown carrier",
			env:     map[string]string{"SHIPPING_PROVIDER": "colissimo"},
			wantErr: true,
		},
		{
			name:    "negative shipping cost",
			env:     map[string]string{"SHIPPING_COST": "-1.00"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := NewConfig()
			if (err != nil) != tt.wantErr {
				t.Errorf("NewConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://mina.example/ , ,https://preview.mina.example")

	got := getEnvList("CORS_ALLOWED_ORIGINS", nil)
	want := []string{"https://mina.example", "https://preview.mina.example"}
	if len(got) != len(want) {
		t.Fatalf("getEnvList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("getEnvList()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
