package shipping

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/EasyPost/easypost-go/v5"
	"github.com/shopspring/decimal"
)

// gramsToOzRatio converts grams to the ounces EasyPost expects.
const gramsToOzRatio = 0.035274

// EasyPostProvider implements Provider using the EasyPost API. It buys the
// cheapest rate offered for the parcel.
//
// EasyPost has no pickup-point booking, so parcels are addressed to the
// payload's street address. The pickup point ID and post number are only
// printed on the second address line for the driver.
type EasyPostProvider struct {
	client *easypost.Client
	origin ShippingAddress
	logger *slog.Logger
}

// EasyPostConfig contains configuration for the EasyPost provider.
type EasyPostConfig struct {
	APIKey string

	// Origin is the sender address printed on labels.
	Origin ShippingAddress

	Logger *slog.Logger // Optional: defaults to slog.Default()
}

// NewEasyPostProvider creates a new EasyPost shipping provider.
func NewEasyPostProvider(cfg EasyPostConfig) (*EasyPostProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &EasyPostProvider{
		client: easypost.New(cfg.APIKey),
		origin: cfg.Origin,
		logger: logger,
	}, nil
}

// CreateParcel creates an EasyPost shipment for the payload and buys its
// lowest rate.
func (p *EasyPostProvider) CreateParcel(ctx context.Context, payload *Payload) (*Parcel, error) {
	if payload == nil {
		return nil, ErrNilPayload
	}

	logger := p.logger.With(
		"order_number", payload.OrderNumber,
		"destination_country", payload.CountryCode,
	)
	logger.Info("creating easypost shipment", "weight_grams", payload.TotalWeightGrams)

	shipment, err := p.client.CreateShipment(&easypost.Shipment{
		FromAddress: p.toEasyPostAddress(p.origin),
		ToAddress:   p.toEasyPostAddress(destinationAddress(payload)),
		Parcel:      &easypost.Parcel{Weight: gramsToOunces(payload.TotalWeightGrams)},
		CustomsInfo: p.toCustomsInfo(payload.Items),
		Reference:   payload.OrderNumber,
	})
	if err != nil {
		logger.Error("failed to create shipment", "error", err)
		return nil, fmt.Errorf("failed to create shipment: %w", err)
	}

	rate, err := lowestRate(shipment.Rates)
	if err != nil {
		logger.Warn("no usable rate for shipment", "shipment_id", shipment.ID, "error", err)
		return nil, err
	}

	bought, err := p.client.BuyShipment(shipment.ID, rate, "")
	if err != nil {
		logger.Error("failed to purchase label", "error", err)
		return nil, fmt.Errorf("failed to purchase label: %w", err)
	}

	parcel := &Parcel{
		ID:               bought.ID,
		TrackingNumber:   bought.TrackingCode,
		OrderNumber:      payload.OrderNumber,
		Carrier:          rate.Carrier,
		WeightGrams:      payload.TotalWeightGrams,
		ShipmentMethodID: payload.ShipmentMethodID,
		ServicePointID:   payload.PickupPointID,
		ItemCount:        len(payload.Items),
	}
	if bought.PostageLabel != nil {
		parcel.LabelURL = bought.PostageLabel.LabelURL
	}

	logger.Info("label purchased successfully",
		"tracking_number", parcel.TrackingNumber,
		"carrier", rate.Carrier,
		"rate", rate.Rate,
	)
	return parcel, nil
}

// ListShippingMethods is not supported: EasyPost prices per shipment.
func (p *EasyPostProvider) ListShippingMethods(ctx context.Context) ([]ShippingMethod, error) {
	return nil, ErrNotImplemented
}

func destinationAddress(payload *Payload) ShippingAddress {
	var line2 string
	if payload.PickupPointID > 0 {
		line2 = fmt.Sprintf("Pickup point %d", payload.PickupPointID)
		if payload.PickupPointNumber != "" {
			line2 += " / " + payload.PickupPointNumber
		}
	}
	return ShippingAddress{
		Name:       payload.Name,
		Company:    payload.CompanyName,
		Line1:      payload.Address,
		Line2:      line2,
		City:       payload.City,
		PostalCode: payload.PostalCode,
		Country:    payload.CountryCode,
		Phone:      payload.Phone,
		Email:      payload.Email,
	}
}

// toEasyPostAddress converts our ShippingAddress to EasyPost Address.
func (p *EasyPostProvider) toEasyPostAddress(addr ShippingAddress) *easypost.Address {
	return &easypost.Address{
		Name:    addr.Name,
		Company: addr.Company,
		Street1: addr.Line1,
		Street2: addr.Line2,
		City:    addr.City,
		State:   addr.State,
		Zip:     addr.PostalCode,
		Country: addr.Country,
		Phone:   addr.Phone,
		Email:   addr.Email,
	}
}

func (p *EasyPostProvider) toCustomsInfo(items []ItemDescriptor) *easypost.CustomsInfo {
	if len(items) == 0 {
		return nil
	}
	customs := make([]*easypost.CustomsItem, len(items))
	for i, it := range items {
		customs[i] = &easypost.CustomsItem{
			Description:    it.Description,
			Quantity:       float64(it.Quantity),
			Value:          it.Value.Mul(decimal.NewFromInt(int64(it.Quantity))).InexactFloat64(),
			Weight:         gramsToOunces(it.WeightGrams * it.Quantity),
			HSTariffNumber: it.HSCode,
			OriginCountry:  it.OriginCountry,
		}
	}
	return &easypost.CustomsInfo{
		ContentsType: "merchandise",
		CustomsItems: customs,
	}
}

// lowestRate picks the cheapest rate, skipping rates whose amount cannot be parsed.
func lowestRate(rates []*easypost.Rate) (*easypost.Rate, error) {
	var best *easypost.Rate
	var bestCents int64
	for _, r := range rates {
		cents, err := dollarsToCents(r.Rate)
		if err != nil {
			continue
		}
		if best == nil || cents < bestCents {
			best, bestCents = r, cents
		}
	}
	if best == nil {
		return nil, ErrNoRates
	}
	return best, nil
}

func gramsToOunces(grams int) float64 {
	return float64(grams) * gramsToOzRatio
}

// dollarsToCents converts a dollar amount string to cents.
// Handles formats like "5.25", "5", "5.1", "5.05".
func dollarsToCents(dollars string) (int64, error) {
	dollars = strings.TrimSpace(dollars)
	if dollars == "" {
		return 0, ErrInvalidAmount("", nil)
	}

	amount, err := decimal.NewFromString(dollars)
	if err != nil {
		return 0, ErrInvalidAmount(dollars, err)
	}

	return amount.Shift(2).Round(0).IntPart(), nil
}
