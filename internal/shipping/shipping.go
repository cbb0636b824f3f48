package shipping

import (
	"context"
)

// Provider defines the interface for parcel carriers.
// Implementations receive a payload that has already passed the Builder,
// so they only translate it to the carrier's wire format.
type Provider interface {
	// CreateParcel announces a parcel to the carrier and returns its identifiers.
	CreateParcel(ctx context.Context, payload *Payload) (*Parcel, error)

	// ListShippingMethods returns the shipping methods enabled on the carrier account.
	ListShippingMethods(ctx context.Context) ([]ShippingMethod, error)
}

// Parcel is the carrier's view of a created parcel.
type Parcel struct {
	ID               string
	TrackingNumber   string
	OrderNumber      string
	LabelURL         string
	Carrier          string
	WeightGrams      int
	ShipmentMethodID int
	ServicePointID   int
	ItemCount        int
}

// WeightMatches reports whether the carrier stored the weight that was requested.
func (p *Parcel) WeightMatches(requestedGrams int) bool {
	return p.WeightGrams == requestedGrams
}

// ShippingMethod describes one carrier service available to the account.
type ShippingMethod struct {
	ID                int
	Name              string
	Carrier           string
	MinWeightGrams    int
	MaxWeightGrams    int
	ServicePointInput string // "none", "optional" or "required"
	Countries         []string
}

// RequiresServicePoint reports whether the method delivers to pickup points.
func (m ShippingMethod) RequiresServicePoint() bool {
	return m.ServicePointInput == "required"
}

// ShippingAddress represents a complete postal address, used as the sender
// address by carriers that need one.
type ShippingAddress struct {
	Name       string
	Company    string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
	Phone      string
	Email      string
}

// Package holds the physical dimensions used when a carrier rates by size.
type Package struct {
	WeightGrams int32
	LengthCm    int32
	WidthCm     int32
	HeightCm    int32
}
