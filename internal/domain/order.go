package domain

import (
	"context"
)

// Order-related domain errors.
var (
	ErrPaymentNotSucceeded    = &Error{Code: EPAYMENT, Message: "Payment has not succeeded"}
	ErrSessionNotPaid         = &Error{Code: EPAYMENT, Message: "Checkout session is not paid"}
	ErrMissingPaymentIntentID = &Error{Code: EINVALID, Message: "paymentIntentId is required"}
	ErrMissingSessionID       = &Error{Code: EINVALID, Message: "session_id is required"}
	ErrMissingMetadata        = &Error{Code: EINVALID, Message: "Payment metadata is missing"}
	ErrMetadataTooLarge       = &Error{Code: EINVALID, Message: "Too many products for a single order"}
)

// FulfillmentService turns paid orders into carrier parcels.
type FulfillmentService interface {
	// ProcessPaymentIntent creates the parcel for a succeeded Payment Intent.
	ProcessPaymentIntent(ctx context.Context, paymentIntentID string) (*ParcelResult, error)

	// FulfillCheckoutSession creates the parcel for a paid Checkout Session.
	FulfillCheckoutSession(ctx context.Context, session PaidSession) (*ParcelResult, error)

	// ShippingMethods lists the carrier methods available to the account.
	ShippingMethods(ctx context.Context) ([]ShippingMethodInfo, error)
}

// PaidSession is the part of a completed checkout session needed for fulfillment.
type PaidSession struct {
	ID            string
	PaymentStatus string
	Metadata      map[string]string
}

// ParcelResult describes the parcel created for an order.
type ParcelResult struct {
	ParcelID       string `json:"parcelId"`
	TrackingNumber string `json:"trackingNumber"`
	OrderNumber    string `json:"orderNumber"`
	LabelURL       string `json:"labelUrl,omitempty"`
	Carrier        string `json:"carrier"`
	WeightGrams    int    `json:"weightGrams"`
	ItemCount      int    `json:"itemCount"`
}

// ShippingMethodInfo is a carrier shipping method as exposed by the API.
type ShippingMethodInfo struct {
	ID                   int      `json:"id"`
	Name                 string   `json:"name"`
	Carrier              string   `json:"carrier"`
	MinWeightGrams       int      `json:"minWeightGrams"`
	MaxWeightGrams       int      `json:"maxWeightGrams"`
	RequiresServicePoint bool     `json:"requiresServicePoint"`
	Countries            []string `json:"countries"`
}
