package shipping

import (
	"encoding/json"
	"strings"

	"github.com/dukerupert/pointrelais/internal/validate"
	"github.com/shopspring/decimal"
)

// Metadata keys of the attribute bag stored on Stripe payment intents and
// checkout sessions.
const (
	MetaOrderID             = "order_id"
	MetaProducts            = "products"
	MetaCustomerName        = "customerName"
	MetaCustomerEmail       = "customerEmail"
	MetaCustomerPhone       = "customerPhone"
	MetaCompanyName         = "customerCompanyName"
	MetaStreet              = "street"
	MetaCity                = "city"
	MetaPostalCode          = "postalCode"
	MetaCountry             = "country"
	MetaServicePointID      = "servicePointId"
	MetaServicePointName    = "servicePointName"
	MetaServicePointStreet  = "servicePointStreet"
	MetaServicePointCity    = "servicePointCity"
	MetaServicePointPostal  = "servicePointPostalCode"
	MetaPostNumber          = "postNumber"
	MetaSocialHandle        = "tiktokName"
	MetaSubtotal            = "subtotal"
	MetaShippingCost        = "shippingCost"
	MetaTotal               = "total"
	MetaCurrency            = "currency"
	MetaOrderDate           = "orderDate"
	MetaPaymentMethod       = "paymentMethod"
	MetaDeliveryAddress     = "deliveryAddress"
	MetaServicePointAddress = "servicePointAddress"
)

// LineItem is one product line of an order.
type LineItem struct {
	Reference string          `json:"reference"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
}

// Total returns unit price times quantity.
func (li LineItem) Total() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// OrderAttributes is the untrusted order data handed to the Builder.
// String fields hold raw values; blank means absent.
type OrderAttributes struct {
	CustomerName      string
	CustomerEmail     string
	CustomerPhone     string
	CompanyName       string
	Street            string
	City              string
	PostalCode        string
	CountryCode       string
	PickupPointID     string
	PickupPointNumber string
	OrderReference    string
	LineItems         []LineItem

	// decodeErrs holds problems found by DecodeAttributes, keyed by field.
	decodeErrs map[string]*validate.FieldError
}

// TotalQuantity sums the quantities of all line items.
func (a OrderAttributes) TotalQuantity() int {
	total := 0
	for _, li := range a.LineItems {
		total += li.Quantity
	}
	return total
}

// Subtotal sums the line totals.
func (a OrderAttributes) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range a.LineItems {
		total = total.Add(li.Total())
	}
	return total
}

// productJSON mirrors the products entry of the attribute bag. Quantity is a
// pointer so that an omitted quantity can default to one.
type productJSON struct {
	Reference string          `json:"reference"`
	Quantity  *int            `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// DecodeAttributes reads an attribute bag into OrderAttributes. Address fields
// fall back to the pickup point's address keys. Decoding problems are not
// returned here; Builder.Build reports them alongside the other field errors.
func DecodeAttributes(meta map[string]string) OrderAttributes {
	attrs := OrderAttributes{
		CustomerName:      meta[MetaCustomerName],
		CustomerEmail:     meta[MetaCustomerEmail],
		CustomerPhone:     meta[MetaCustomerPhone],
		CompanyName:       meta[MetaCompanyName],
		Street:            firstNonBlank(meta[MetaStreet], meta[MetaServicePointStreet]),
		City:              firstNonBlank(meta[MetaCity], meta[MetaServicePointCity]),
		PostalCode:        firstNonBlank(meta[MetaPostalCode], meta[MetaServicePointPostal]),
		CountryCode:       meta[MetaCountry],
		PickupPointID:     meta[MetaServicePointID],
		PickupPointNumber: meta[MetaPostNumber],
	}

	raw := strings.TrimSpace(meta[MetaProducts])
	if raw == "" {
		return attrs
	}

	var products []productJSON
	if err := json.Unmarshal([]byte(raw), &products); err != nil {
		attrs.decodeErrs = map[string]*validate.FieldError{
			FieldLineItems: {
				Field:   FieldLineItems,
				Kind:    validate.KindInvalidFormat,
				Value:   raw,
				Message: "products metadata is not a valid JSON list: " + err.Error(),
			},
		}
		return attrs
	}

	attrs.LineItems = make([]LineItem, 0, len(products))
	for _, p := range products {
		qty := 1
		if p.Quantity != nil {
			qty = *p.Quantity
		}
		attrs.LineItems = append(attrs.LineItems, LineItem{
			Reference: p.Reference,
			Quantity:  qty,
			UnitPrice: p.Price,
		})
	}
	return attrs
}

// EncodeAttributes writes the order data into an attribute bag understood by
// DecodeAttributes.
func EncodeAttributes(a OrderAttributes) (map[string]string, error) {
	products := make([]productJSON, len(a.LineItems))
	for i, li := range a.LineItems {
		qty := li.Quantity
		products[i] = productJSON{Reference: li.Reference, Quantity: &qty, Price: li.UnitPrice}
	}
	encoded, err := json.Marshal(products)
	if err != nil {
		return nil, err
	}

	meta := map[string]string{
		MetaProducts:       string(encoded),
		MetaCustomerName:   a.CustomerName,
		MetaCustomerEmail:  a.CustomerEmail,
		MetaCustomerPhone:  a.CustomerPhone,
		MetaStreet:         a.Street,
		MetaCity:           a.City,
		MetaPostalCode:     a.PostalCode,
		MetaCountry:        a.CountryCode,
		MetaServicePointID: a.PickupPointID,
		MetaPostNumber:     a.PickupPointNumber,
	}
	if a.CompanyName != "" {
		meta[MetaCompanyName] = a.CompanyName
	}
	return meta, nil
}

// OrderNumber derives the carrier order number from an external seed such as a
// payment intent or checkout session ID: prefix, a dash and the seed's last ten
// characters.
func OrderNumber(prefix, seed string) string {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return ""
	}
	if r := []rune(seed); len(r) > 10 {
		seed = string(r[len(r)-10:])
	}
	if prefix == "" {
		return validate.SanitizeText(seed, MaxOrderNumberLength)
	}
	return validate.SanitizeText(prefix+"-"+seed, MaxOrderNumberLength)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
