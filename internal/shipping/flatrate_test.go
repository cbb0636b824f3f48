package shipping_test

import (
	"testing"

	"github.com/dukerupert/pointrelais/internal/shipping"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFlatRate(t *testing.T) {
	rate := shipping.DefaultFlatRate

	assert.NoError(t, rate.Validate())
	assert.Equal(t, "Frais de livraison - Mondial Relay", rate.ServiceName)
	assert.Equal(t, int64(500), rate.CostCents)
	assert.Equal(t, "5.00", rate.Cost().StringFixed(2))
}

func TestFlatRate_OrderTotal(t *testing.T) {
	tests := []struct {
		name     string
		subtotal string
		want     string
	}{
		{"single item", "20.00", "25.00"},
		{"cents preserved", "31.90", "36.90"},
		{"empty cart", "0", "5.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shipping.DefaultFlatRate.OrderTotal(decimal.RequireFromString(tt.subtotal))
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestNewFlatRate(t *testing.T) {
	rate, err := shipping.NewFlatRate("Colissimo", "colissimo", decimal.RequireFromString("6.955"))
	require.NoError(t, err)
	assert.Equal(t, int64(696), rate.CostCents, "rounds half away from zero")
	assert.Equal(t, "colissimo", rate.ServiceCode)

	_, err = shipping.NewFlatRate("Colissimo", "colissimo", decimal.NewFromInt(-1))
	assert.Error(t, err)

	_, err = shipping.NewFlatRate("", "colissimo", decimal.NewFromInt(5))
	assert.Error(t, err)
}

func TestFlatRate_Validate_InvertedWindow(t *testing.T) {
	rate := shipping.FlatRate{ServiceName: "Express", CostCents: 900, DaysMin: 4, DaysMax: 2}

	err := rate.Validate()

	var sErr *shipping.ShippingError
	require.ErrorAs(t, err, &sErr)
	assert.Equal(t, "invalid", sErr.ErrorCode())
}
