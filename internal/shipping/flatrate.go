package shipping

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FlatRate defines the fixed delivery fee charged at checkout.
type FlatRate struct {
	ServiceName string
	ServiceCode string
	CostCents   int64
	DaysMin     int
	DaysMax     int
}

// DefaultFlatRate is the pickup point delivery fee: 5.00 EUR.
var DefaultFlatRate = FlatRate{
	ServiceName: "Frais de livraison - Mondial Relay",
	ServiceCode: "mondial_relay",
	CostCents:   500,
	DaysMin:     3,
	DaysMax:     5,
}

// NewFlatRate creates a flat rate from a decimal amount in the currency unit.
func NewFlatRate(serviceName, serviceCode string, cost decimal.Decimal) (FlatRate, error) {
	rate := FlatRate{
		ServiceName: serviceName,
		ServiceCode: serviceCode,
		CostCents:   cost.Shift(2).Round(0).IntPart(),
		DaysMin:     DefaultFlatRate.DaysMin,
		DaysMax:     DefaultFlatRate.DaysMax,
	}
	if err := rate.Validate(); err != nil {
		return FlatRate{}, err
	}
	return rate, nil
}

// Validate checks the rate has a name, a non-negative cost and a sane
// delivery window.
func (r FlatRate) Validate() error {
	if r.ServiceName == "" {
		return newShippingError(codeInvalid, "Flat rate service name is required")
	}
	if r.CostCents < 0 {
		return ErrInvalidAmount(r.Cost().String(), fmt.Errorf("cost must not be negative"))
	}
	if r.DaysMin > r.DaysMax {
		return newShippingError(codeInvalid, fmt.Sprintf("Flat rate delivery window %d-%d is inverted", r.DaysMin, r.DaysMax))
	}
	return nil
}

// Cost returns the fee in currency units.
func (r FlatRate) Cost() decimal.Decimal {
	return decimal.New(r.CostCents, -2)
}

// OrderTotal adds the fee to a subtotal.
func (r FlatRate) OrderTotal(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Add(r.Cost())
}
