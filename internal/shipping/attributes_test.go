package shipping_test

import (
	"testing"
	"unicode/utf8"

	"github.com/dukerupert/pointrelais/internal/shipping"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAttributes(t *testing.T) {
	meta := map[string]string{
		shipping.MetaCustomerName:       "Jeanne Dupont",
		shipping.MetaCustomerEmail:      "jeanne@example.com",
		shipping.MetaCustomerPhone:      "0612345678",
		shipping.MetaCountry:            "FR",
		shipping.MetaServicePointID:     "10452",
		shipping.MetaServicePointStreet: "3 place du Marché",
		shipping.MetaServicePointCity:   "Lyon",
		shipping.MetaServicePointPostal: "69002",
		shipping.MetaPostNumber:         "A12",
		shipping.MetaProducts:           `[{"reference":"TSHIRT-01","quantity":2,"price":20},{"reference":"TOTE-02","price":"15.50"}]`,
	}

	attrs := shipping.DecodeAttributes(meta)

	assert.Equal(t, "Jeanne Dupont", attrs.CustomerName)
	assert.Equal(t, "3 place du Marché", attrs.Street, "falls back to the service point street")
	assert.Equal(t, "Lyon", attrs.City)
	assert.Equal(t, "69002", attrs.PostalCode)
	assert.Equal(t, "10452", attrs.PickupPointID)
	assert.Equal(t, "A12", attrs.PickupPointNumber)

	require.Len(t, attrs.LineItems, 2)
	assert.Equal(t, 2, attrs.LineItems[0].Quantity)
	assert.Equal(t, 1, attrs.LineItems[1].Quantity, "missing quantity defaults to one")
	assert.True(t, decimal.RequireFromString("15.5").Equal(attrs.LineItems[1].UnitPrice))

	assert.Equal(t, 3, attrs.TotalQuantity())
	assert.True(t, decimal.RequireFromString("55.5").Equal(attrs.Subtotal()))
}

func TestDecodeAttributes_PrefersCustomerAddress(t *testing.T) {
	attrs := shipping.DecodeAttributes(map[string]string{
		shipping.MetaStreet:             "12 rue de Rivoli",
		shipping.MetaServicePointStreet: "3 place du Marché",
		shipping.MetaCity:               "Paris",
		shipping.MetaServicePointCity:   "Lyon",
	})
	assert.Equal(t, "12 rue de Rivoli", attrs.Street)
	assert.Equal(t, "Paris", attrs.City)
}

func TestDecodeAttributes_NoProducts(t *testing.T) {
	attrs := shipping.DecodeAttributes(map[string]string{})
	assert.Empty(t, attrs.LineItems)
	assert.Equal(t, 0, attrs.TotalQuantity())
	assert.True(t, attrs.Subtotal().IsZero())
}

func TestEncodeAttributes_DecodesBack(t *testing.T) {
	in := shipping.OrderAttributes{
		CustomerName:      "Jeanne Dupont",
		CustomerEmail:     "jeanne@example.com",
		CompanyName:       "Atelier Dupont",
		Street:            "12 rue de Rivoli",
		City:              "Paris",
		PostalCode:        "75001",
		CountryCode:       "FR",
		PickupPointID:     "10452",
		PickupPointNumber: "A12",
		LineItems: []shipping.LineItem{
			{Reference: "TSHIRT-01", Quantity: 3, UnitPrice: decimal.RequireFromString("19.90")},
		},
	}

	meta, err := shipping.EncodeAttributes(in)
	require.NoError(t, err)
	assert.Equal(t, "Atelier Dupont", meta[shipping.MetaCompanyName])

	out := shipping.DecodeAttributes(meta)
	assert.Equal(t, in.CustomerName, out.CustomerName)
	assert.Equal(t, in.CompanyName, out.CompanyName)
	assert.Equal(t, in.PickupPointID, out.PickupPointID)
	require.Len(t, out.LineItems, 1)
	assert.Equal(t, 3, out.LineItems[0].Quantity)
	assert.True(t, in.LineItems[0].UnitPrice.Equal(out.LineItems[0].UnitPrice))
}

func TestOrderNumber(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		seed   string
		want   string
	}{
		{"payment intent", "MINA", "pi_3MtwBwLkdIwHu7ix28a3tqPa", "MINA-ix28a3tqPa"},
		{"checkout session", "MINA", "cs_test_a1B2c3D4e5F6g7H8i9J0", "MINA-F6g7H8i9J0"},
		{"short seed kept whole", "MINA", "abc", "MINA-abc"},
		{"no prefix", "", "pi_3MtwBwLkdIwHu7ix28a3tqPa", "ix28a3tqPa"},
		{"empty seed", "MINA", "  ", ""},
		{"multibyte seed cut on characters", "MINA", "réf-éèàçùô1234", "MINA-éèàçùô1234"},
		{"long prefix truncated", "MINA-BOUTIQUE-PARIS-ONZIEME-ARR", "pi_3MtwBwLkdIwHu7ix28a3tqPa", "MINA-BOUTIQUE-PARIS-ONZIEME-ARR-ix2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shipping.OrderNumber(tt.prefix, tt.seed)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), shipping.MaxOrderNumberLength)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
