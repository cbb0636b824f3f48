package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultSendcloudBaseURL is the Sendcloud v2 panel API.
	DefaultSendcloudBaseURL = "https://panel.sendcloud.sc/api/v2"

	sendcloudCarrierName     = "Sendcloud"
	defaultSendcloudTimeout  = 15 * time.Second
	maxSendcloudResponseSize = 1 << 20
)

// SendcloudConfig contains configuration for the Sendcloud provider.
type SendcloudConfig struct {
	APIKey    string
	APISecret string

	// BaseURL defaults to DefaultSendcloudBaseURL.
	BaseURL string

	// HTTPClient defaults to a client with a 15 second timeout.
	HTTPClient *http.Client

	// RequestLabel asks Sendcloud to announce the parcel and generate its label
	// immediately instead of leaving it as a draft.
	RequestLabel bool

	Logger *slog.Logger // Optional: defaults to slog.Default()
}

// SendcloudProvider implements Provider against the Sendcloud parcels API.
type SendcloudProvider struct {
	apiKey       string
	apiSecret    string
	baseURL      string
	httpClient   *http.Client
	requestLabel bool
	logger       *slog.Logger
}

// NewSendcloudProvider creates a new Sendcloud shipping provider.
func NewSendcloudProvider(cfg SendcloudConfig) (*SendcloudProvider, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, ErrMissingAPIKey
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultSendcloudBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultSendcloudTimeout}
	}

	return &SendcloudProvider{
		apiKey:       cfg.APIKey,
		apiSecret:    cfg.APISecret,
		baseURL:      baseURL,
		httpClient:   httpClient,
		requestLabel: cfg.RequestLabel,
		logger:       logger,
	}, nil
}

// Sendcloud wire types. Weights travel as kilogram strings.

type sendcloudParcelRequest struct {
	Parcel sendcloudParcelIn `json:"parcel"`
}

type sendcloudParcelIn struct {
	Name           string                `json:"name"`
	CompanyName    string                `json:"company_name,omitempty"`
	Address        string                `json:"address"`
	City           string                `json:"city"`
	PostalCode     string                `json:"postal_code"`
	Country        string                `json:"country"`
	Email          string                `json:"email"`
	Telephone      string                `json:"telephone,omitempty"`
	ToServicePoint int                   `json:"to_service_point"`
	ToPostNumber   string                `json:"to_post_number,omitempty"`
	OrderNumber    string                `json:"order_number"`
	Weight         string                `json:"weight"`
	Shipment       sendcloudShipmentRef  `json:"shipment"`
	RequestLabel   bool                  `json:"request_label"`
	ParcelItems    []sendcloudParcelItem `json:"parcel_items"`
}

type sendcloudShipmentRef struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

type sendcloudParcelItem struct {
	Description   string `json:"description"`
	Quantity      int    `json:"quantity"`
	Weight        string `json:"weight"`
	Value         string `json:"value"`
	HSCode        string `json:"hs_code,omitempty"`
	OriginCountry string `json:"origin_country,omitempty"`
	SKU           string `json:"sku,omitempty"`
}

type sendcloudParcelResponse struct {
	Parcel sendcloudParcelOut `json:"parcel"`
}

type sendcloudParcelOut struct {
	ID             int64                 `json:"id"`
	TrackingNumber string                `json:"tracking_number"`
	OrderNumber    string                `json:"order_number"`
	Weight         decimal.Decimal       `json:"weight"`
	ToServicePoint int                   `json:"to_service_point"`
	Shipment       *sendcloudShipmentRef `json:"shipment"`
	Carrier        *struct {
		Code string `json:"code"`
	} `json:"carrier"`
	Label *struct {
		NormalPrinter []string `json:"normal_printer"`
		LabelPrinter  string   `json:"label_printer"`
	} `json:"label"`
	ParcelItems []json.RawMessage `json:"parcel_items"`
}

type sendcloudMethodsResponse struct {
	ShippingMethods []struct {
		ID                int             `json:"id"`
		Name              string          `json:"name"`
		Carrier           string          `json:"carrier"`
		MinWeight         decimal.Decimal `json:"min_weight"`
		MaxWeight         decimal.Decimal `json:"max_weight"`
		ServicePointInput string          `json:"service_point_input"`
		Countries         []struct {
			ISO2 string `json:"iso_2"`
		} `json:"countries"`
	} `json:"shipping_methods"`
}

// CreateParcel announces the parcel to Sendcloud.
func (p *SendcloudProvider) CreateParcel(ctx context.Context, payload *Payload) (*Parcel, error) {
	if payload == nil {
		return nil, ErrNilPayload
	}

	logger := p.logger.With(
		"order_number", payload.OrderNumber,
		"service_point", payload.PickupPointID,
		"shipment_method", payload.ShipmentMethodID,
	)
	logger.Info("creating sendcloud parcel", "weight_grams", payload.TotalWeightGrams)

	req := sendcloudParcelRequest{Parcel: p.toSendcloudParcel(payload)}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode parcel: %w", err)
	}

	var resp sendcloudParcelResponse
	if err := p.do(ctx, http.MethodPost, "/parcels", body, &resp); err != nil {
		logger.Error("failed to create parcel", "error", err)
		return nil, err
	}

	parcel := p.fromSendcloudParcel(resp.Parcel)
	if parcel.OrderNumber == "" {
		parcel.OrderNumber = payload.OrderNumber
	}

	if !parcel.WeightMatches(payload.TotalWeightGrams) {
		logger.Warn("sendcloud stored a different weight",
			"requested_grams", payload.TotalWeightGrams,
			"stored_grams", parcel.WeightGrams,
		)
	}

	logger.Info("sendcloud parcel created",
		"parcel_id", parcel.ID,
		"tracking_number", parcel.TrackingNumber,
		"items", parcel.ItemCount,
	)
	return parcel, nil
}

// ListShippingMethods returns the shipping methods enabled on the account.
func (p *SendcloudProvider) ListShippingMethods(ctx context.Context) ([]ShippingMethod, error) {
	var resp sendcloudMethodsResponse
	if err := p.do(ctx, http.MethodGet, "/shipping_methods", nil, &resp); err != nil {
		p.logger.Error("failed to list shipping methods", "error", err)
		return nil, err
	}

	methods := make([]ShippingMethod, 0, len(resp.ShippingMethods))
	for _, m := range resp.ShippingMethods {
		method := ShippingMethod{
			ID:                m.ID,
			Name:              m.Name,
			Carrier:           m.Carrier,
			MinWeightGrams:    kilogramsToGrams(m.MinWeight),
			MaxWeightGrams:    kilogramsToGrams(m.MaxWeight),
			ServicePointInput: m.ServicePointInput,
		}
		for _, c := range m.Countries {
			method.Countries = append(method.Countries, c.ISO2)
		}
		methods = append(methods, method)
	}

	p.logger.Info("sendcloud shipping methods listed", "count", len(methods))
	return methods, nil
}

// do sends an authenticated request and decodes a 2xx JSON response into out.
func (p *SendcloudProvider) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build sendcloud request: %w", err)
	}
	req.SetBasicAuth(p.apiKey, p.apiSecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return &ShippingError{Code: codeUnavailable, Message: fmt.Sprintf("Sendcloud request failed: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxSendcloudResponseSize))
	if err != nil {
		return &ShippingError{Code: codeUnavailable, Message: fmt.Sprintf("Failed to read Sendcloud response: %v", err)}
	}

	p.logger.Debug("sendcloud response", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &CarrierError{
			Carrier:    sendcloudCarrierName,
			StatusCode: resp.StatusCode,
			Detail:     sendcloudErrorDetail(respBody),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &ShippingError{Code: codeUnavailable, Message: fmt.Sprintf("Invalid Sendcloud response: %v", err)}
	}
	return nil
}

// sendcloudErrorDetail extracts a readable message from an error body.
// Sendcloud answers either {"error":{"message":...}} or a map of field to
// messages; anything else is returned as-is.
func sendcloudErrorDetail(body []byte) string {
	raw := strings.TrimSpace(string(body))

	var envelope struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || len(fields) == 0 {
		return raw
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+flattenErrorValue(fields[k]))
	}
	return "Details: " + strings.Join(parts, "; ")
}

func flattenErrorValue(v json.RawMessage) string {
	var list []any
	if err := json.Unmarshal(v, &list); err == nil {
		vals := make([]string, len(list))
		for i, item := range list {
			vals[i] = fmt.Sprint(item)
		}
		return strings.Join(vals, ", ")
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(v)
}

func (p *SendcloudProvider) toSendcloudParcel(payload *Payload) sendcloudParcelIn {
	items := make([]sendcloudParcelItem, len(payload.Items))
	for i, it := range payload.Items {
		items[i] = sendcloudParcelItem{
			Description:   it.Description,
			Quantity:      it.Quantity,
			Weight:        gramsToKilograms(it.WeightGrams),
			Value:         it.Value.StringFixed(2),
			HSCode:        it.HSCode,
			OriginCountry: it.OriginCountry,
			SKU:           it.Reference,
		}
	}

	return sendcloudParcelIn{
		Name:           payload.Name,
		CompanyName:    payload.CompanyName,
		Address:        payload.Address,
		City:           payload.City,
		PostalCode:     payload.PostalCode,
		Country:        payload.CountryCode,
		Email:          payload.Email,
		Telephone:      payload.Phone,
		ToServicePoint: payload.PickupPointID,
		ToPostNumber:   payload.PickupPointNumber,
		OrderNumber:    payload.OrderNumber,
		Weight:         gramsToKilograms(payload.TotalWeightGrams),
		Shipment:       sendcloudShipmentRef{ID: payload.ShipmentMethodID},
		RequestLabel:   p.requestLabel,
		ParcelItems:    items,
	}
}

func (p *SendcloudProvider) fromSendcloudParcel(out sendcloudParcelOut) *Parcel {
	parcel := &Parcel{
		ID:             strconv.FormatInt(out.ID, 10),
		TrackingNumber: out.TrackingNumber,
		OrderNumber:    out.OrderNumber,
		Carrier:        sendcloudCarrierName,
		WeightGrams:    kilogramsToGrams(out.Weight),
		ServicePointID: out.ToServicePoint,
		ItemCount:      len(out.ParcelItems),
	}
	if out.Shipment != nil {
		parcel.ShipmentMethodID = out.Shipment.ID
	}
	if out.Carrier != nil && out.Carrier.Code != "" {
		parcel.Carrier = out.Carrier.Code
	}
	if out.Label != nil {
		parcel.LabelURL = out.Label.LabelPrinter
		if parcel.LabelURL == "" && len(out.Label.NormalPrinter) > 0 {
			parcel.LabelURL = out.Label.NormalPrinter[0]
		}
	}
	return parcel
}

// gramsToKilograms formats a gram weight as a three-decimal kilogram string.
func gramsToKilograms(grams int) string {
	return decimal.New(int64(grams), -3).StringFixed(3)
}

// kilogramsToGrams converts a kilogram decimal back to whole grams.
func kilogramsToGrams(kg decimal.Decimal) int {
	return int(kg.Shift(3).Round(0).IntPart())
}
