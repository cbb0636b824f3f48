package domain

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// CheckoutService provides business logic for taking payment on an order.
type CheckoutService interface {
	// CreatePaymentIntent validates the request and opens a Stripe Payment Intent
	// carrying the order's attribute bag as metadata.
	CreatePaymentIntent(ctx context.Context, req CheckoutRequest) (*PaymentIntentResult, error)

	// CreateCheckoutSession opens a hosted Stripe Checkout Session for the order.
	// origin is the site base URL used for the success and cancel redirects.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest, origin string) (*CheckoutSessionResult, error)

	// GetOrderDetails summarizes a checkout session for the confirmation page.
	GetOrderDetails(ctx context.Context, sessionID string) (*OrderSummary, error)
}

// CheckoutRequest is the order submitted by the storefront.
type CheckoutRequest struct {
	Products     []CheckoutProduct `json:"products" validate:"required,min=1,max=50,dive"`
	Customer     CheckoutCustomer  `json:"customer"`
	Address      CheckoutAddress   `json:"address"`
	ServicePoint *ServicePoint     `json:"servicePoint" validate:"required"`
	PostNumber   string            `json:"postNumber" validate:"max=35"`
	SocialHandle string            `json:"tiktokName" validate:"max=100"`

	// Client-computed amounts. The server recomputes the totals and only logs
	// a mismatch.
	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
	Total        decimal.Decimal `json:"total"`
}

// ItemCount returns the number of product lines.
func (r CheckoutRequest) ItemCount() int {
	return len(r.Products)
}

// CheckoutProduct is one line of the cart.
type CheckoutProduct struct {
	Reference string          `json:"reference" validate:"required,max=100"`
	Name      string          `json:"name" validate:"max=200"`
	Quantity  int             `json:"quantity" validate:"required,min=1,max=99"`
	Price     decimal.Decimal `json:"price" validate:"gte=0"`
}

// DisplayName is the label shown on the Stripe checkout page.
func (p CheckoutProduct) DisplayName() string {
	if strings.TrimSpace(p.Name) != "" {
		return p.Name
	}
	return p.Reference
}

// CheckoutCustomer holds the buyer's contact details.
type CheckoutCustomer struct {
	FirstName   string `json:"firstName" validate:"required,max=35"`
	LastName    string `json:"lastName" validate:"required,max=35"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"max=35"`
	CompanyName string `json:"companyName" validate:"max=35"`
}

// FullName joins first and last name.
func (c CheckoutCustomer) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// CheckoutAddress is the customer's own postal address.
type CheckoutAddress struct {
	Street     string `json:"street" validate:"max=70"`
	City       string `json:"city" validate:"max=35"`
	PostalCode string `json:"postalCode" validate:"max=12"`
	Country    string `json:"country" validate:"omitempty,len=2,alpha"`
}

// OneLine formats the address as "street, city postal".
func (a CheckoutAddress) OneLine() string {
	return strings.TrimSpace(strings.Trim(a.Street+", "+a.City+" "+a.PostalCode, ", "))
}

// ServicePoint is the pickup point selected by the customer.
type ServicePoint struct {
	ID         json.Number `json:"id" validate:"required"`
	Name       string      `json:"name" validate:"max=100"`
	Street     string      `json:"street" validate:"max=70"`
	City       string      `json:"city" validate:"max=35"`
	PostalCode string      `json:"postal_code" validate:"max=12"`
	Country    string      `json:"country" validate:"omitempty,len=2,alpha"`
}

// OneLine formats the pickup point address as "street, city".
func (s ServicePoint) OneLine() string {
	return strings.Trim(s.Street+", "+s.City, ", ")
}

// PaymentIntentResult is returned to the storefront to confirm the card payment.
type PaymentIntentResult struct {
	ClientSecret    string          `json:"clientSecret"`
	PaymentIntentID string          `json:"paymentIntentId"`
	OrderID         string          `json:"orderId"`
	Total           decimal.Decimal `json:"total"`
}

// CheckoutSessionResult carries the hosted checkout URL.
type CheckoutSessionResult struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
	OrderID   string `json:"orderId"`
}

// OrderSummary is the confirmation page view of a checkout session.
type OrderSummary struct {
	SessionID           string `json:"sessionId"`
	OrderID             string `json:"orderId,omitempty"`
	CustomerName        string `json:"customerName"`
	CustomerPhone       string `json:"customerPhone"`
	DeliveryAddress     string `json:"deliveryAddress"`
	ServicePointID      string `json:"servicePointId"`
	ServicePointName    string `json:"servicePointName"`
	ServicePointAddress string `json:"servicePointAddress"`
	PostNumber          string `json:"postNumber"`
	PaymentStatus       string `json:"paymentStatus"`
	AmountCents         int64  `json:"amount"`
	Currency            string `json:"currency"`
}
