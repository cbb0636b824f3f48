package shipping_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/pointrelais/internal/shipping"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload() *shipping.Payload {
	return &shipping.Payload{
		Name:             "Jeanne Dupont",
		CompanyName:      "Mina Paris",
		Address:          "12 rue de Rivoli",
		City:             "Paris",
		PostalCode:       "75001",
		CountryCode:      "FR",
		Email:            "jeanne@example.com",
		Phone:            "+33612345678",
		PickupPointID:    10452,
		OrderNumber:      "MINA-ix28a3tqPa",
		TotalWeightGrams: 75,
		ShipmentMethodID: 155,
		Items: []shipping.ItemDescriptor{
			{Description: "Réf : TSHIRT-01", Reference: "TSHIRT-01", Quantity: 1, WeightGrams: 25, Value: decimal.NewFromInt(20), HSCode: "6109", OriginCountry: "FR"},
			{Description: "Réf : TOTE-02", Reference: "TOTE-02", Quantity: 2, WeightGrams: 25, Value: decimal.RequireFromString("15.5"), HSCode: "6109", OriginCountry: "FR"},
		},
	}
}

func newSendcloud(t *testing.T, srv *httptest.Server, requestLabel bool) *shipping.SendcloudProvider {
	t.Helper()
	p, err := shipping.NewSendcloudProvider(shipping.SendcloudConfig{
		APIKey:       "public-key",
		APISecret:    "secret-key",
		BaseURL:      srv.URL,
		HTTPClient:   srv.Client(),
		RequestLabel: requestLabel,
	})
	require.NoError(t, err)
	return p
}

func TestNewSendcloudProvider_RequiresCredentials(t *testing.T) {
	_, err := shipping.NewSendcloudProvider(shipping.SendcloudConfig{APIKey: "only-key"})
	assert.ErrorIs(t, err, shipping.ErrMissingAPIKey)
}

func TestSendcloudProvider_CreateParcel(t *testing.T) {
	var got map[string]map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/parcels", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "public-key", user)
		assert.Equal(t, "secret-key", pass)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"parcel":{
			"id": 987654,
			"tracking_number": "3SMINA0001",
			"order_number": "MINA-ix28a3tqPa",
			"weight": "0.075",
			"to_service_point": 10452,
			"shipment": {"id": 155, "name": "Mondial Relay Point Relais"},
			"carrier": {"code": "mondial_relay"},
			"label": {"label_printer": "https://panel.sendcloud.sc/label/987654", "normal_printer": []},
			"parcel_items": [{}, {}]
		}}`)
	}))
	defer srv.Close()

	p := newSendcloud(t, srv, true)
	parcel, err := p.CreateParcel(context.Background(), testPayload())
	require.NoError(t, err)

	assert.Equal(t, "987654", parcel.ID)
	assert.Equal(t, "3SMINA0001", parcel.TrackingNumber)
	assert.Equal(t, "MINA-ix28a3tqPa", parcel.OrderNumber)
	assert.Equal(t, "mondial_relay", parcel.Carrier)
	assert.Equal(t, "https://panel.sendcloud.sc/label/987654", parcel.LabelURL)
	assert.Equal(t, 75, parcel.WeightGrams)
	assert.True(t, parcel.WeightMatches(75))
	assert.Equal(t, 155, parcel.ShipmentMethodID)
	assert.Equal(t, 10452, parcel.ServicePointID)
	assert.Equal(t, 2, parcel.ItemCount)

	sent := got["parcel"]
	require.NotNil(t, sent)
	assert.Equal(t, "Jeanne Dupont", sent["name"])
	assert.Equal(t, "Mina Paris", sent["company_name"])
	assert.Equal(t, "FR", sent["country"])
	assert.Equal(t, float64(10452), sent["to_service_point"])
	assert.Equal(t, "MINA-ix28a3tqPa", sent["order_number"])
	assert.Equal(t, "0.075", sent["weight"])
	assert.Equal(t, true, sent["request_label"])
	assert.Equal(t, map[string]any{"id": float64(155)}, sent["shipment"])

	items, ok := sent["parcel_items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	second := items[1].(map[string]any)
	assert.Equal(t, "Réf : TOTE-02", second["description"])
	assert.Equal(t, float64(2), second["quantity"])
	assert.Equal(t, "0.025", second["weight"])
	assert.Equal(t, "15.50", second["value"])
	assert.Equal(t, "6109", second["hs_code"])
	assert.Equal(t, "FR", second["origin_country"])
}

func TestSendcloudProvider_CreateParcel_NilPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer srv.Close()

	_, err := newSendcloud(t, srv, false).CreateParcel(context.Background(), nil)
	assert.ErrorIs(t, err, shipping.ErrNilPayload)
}

func TestSendcloudProvider_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
		wantCode   string
	}{
		{
			name:       "error envelope",
			status:     http.StatusBadRequest,
			body:       `{"error":{"code":400,"message":"Service point is not valid","request":"api/v2/parcels"}}`,
			wantDetail: "Sendcloud API error (400): Service point is not valid",
			wantCode:   "invalid",
		},
		{
			name:       "field errors",
			status:     http.StatusBadRequest,
			body:       `{"postal_code":["This field is required."],"name":["Too long.","Invalid."]}`,
			wantDetail: "Sendcloud API error (400): Details: name: Too long., Invalid.; postal_code: This field is required.",
			wantCode:   "invalid",
		},
		{
			name:       "plain text",
			status:     http.StatusBadGateway,
			body:       "upstream unavailable",
			wantDetail: "Sendcloud API error (502): upstream unavailable",
			wantCode:   "unavailable",
		},
		{
			name:       "unauthorized",
			status:     http.StatusUnauthorized,
			body:       `{"error":{"code":401,"message":"Invalid username/password."}}`,
			wantDetail: "Sendcloud API error (401): Invalid username/password.",
			wantCode:   "unauthorized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newSendcloud(t, srv, false).CreateParcel(context.Background(), testPayload())

			var cErr *shipping.CarrierError
			require.True(t, errors.As(err, &cErr))
			assert.Equal(t, tt.status, cErr.StatusCode)
			assert.Equal(t, tt.wantDetail, cErr.Error())
			assert.Equal(t, tt.wantCode, cErr.ErrorCode())
		})
	}
}

func TestSendcloudProvider_UnauthorizedMessage(t *testing.T) {
	err := &shipping.CarrierError{Carrier: "Sendcloud", StatusCode: http.StatusUnauthorized}
	assert.Equal(t, "Sendcloud authentication failed (401)", err.ErrorMessage())
}

func TestSendcloudProvider_ListShippingMethods(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/shipping_methods", r.URL.Path)
		_, _ = io.WriteString(w, `{"shipping_methods":[
			{"id":8,"name":"Unstamped letter","carrier":"sendcloud","min_weight":"0.001","max_weight":"20.001","service_point_input":"none","countries":[{"iso_2":"FR"},{"iso_2":"BE"}]},
			{"id":155,"name":"Mondial Relay Point Relais 0-0.5kg","carrier":"mondial_relay","min_weight":"0.001","max_weight":"0.501","service_point_input":"required","countries":[{"iso_2":"FR"}]}
		]}`)
	}))
	defer srv.Close()

	methods, err := newSendcloud(t, srv, false).ListShippingMethods(context.Background())
	require.NoError(t, err)
	require.Len(t, methods, 2)

	assert.Equal(t, 8, methods[0].ID)
	assert.Equal(t, []string{"FR", "BE"}, methods[0].Countries)
	assert.False(t, methods[0].RequiresServicePoint())

	relay := methods[1]
	assert.Equal(t, 155, relay.ID)
	assert.Equal(t, "mondial_relay", relay.Carrier)
	assert.Equal(t, 1, relay.MinWeightGrams)
	assert.Equal(t, 501, relay.MaxWeightGrams)
	assert.True(t, relay.RequiresServicePoint())
}

func TestSendcloudProvider_InvalidResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>maintenance</html>")
	}))
	defer srv.Close()

	_, err := newSendcloud(t, srv, false).ListShippingMethods(context.Background())

	var sErr *shipping.ShippingError
	require.True(t, errors.As(err, &sErr))
	assert.Equal(t, "unavailable", sErr.ErrorCode())
}
