package shipping

import (
	"fmt"
	"log/slog"

	"github.com/dukerupert/pointrelais/internal/validate"
	"github.com/shopspring/decimal"
)

// Field names reported in validation errors, matching the carrier's parcel fields.
const (
	FieldCountry      = "country"
	FieldName         = "name"
	FieldCompanyName  = "company_name"
	FieldAddress      = "address"
	FieldCity         = "city"
	FieldPostalCode   = "postal_code"
	FieldEmail        = "email"
	FieldTelephone    = "telephone"
	FieldServicePoint = "to_service_point"
	FieldPostNumber   = "to_post_number"
	FieldOrderNumber  = "order_number"
	FieldLineItems    = "line_items"
)

// Carrier field limits.
const (
	MaxNameLength        = 70
	MaxCompanyLength     = 35
	MaxAddressLength     = 70
	MaxCityLength        = 35
	MaxPostNumberLength  = 35
	MaxOrderNumberLength = 35
)

// Payload is a carrier-ready parcel request. It only exists once every field
// has been validated.
type Payload struct {
	Name              string
	CompanyName       string
	Address           string
	City              string
	PostalCode        string
	CountryCode       string
	Email             string
	Phone             string
	PickupPointID     int
	PickupPointNumber string
	OrderNumber       string
	TotalWeightGrams  int
	ShipmentMethodID  int
	Items             []ItemDescriptor
}

// ItemDescriptor describes one line item for the carrier's customs data.
type ItemDescriptor struct {
	Description   string
	Reference     string
	Quantity      int
	WeightGrams   int
	Value         decimal.Decimal
	HSCode        string
	OriginCountry string
}

// BuilderOptions holds the fixed shipping constants applied to every payload.
type BuilderOptions struct {
	// ItemWeightGrams is the weight assumed for every unit ordered.
	ItemWeightGrams int

	// ShipmentMethodID is the carrier shipping method the parcel is booked on.
	ShipmentMethodID int

	// CompanyName is used when the order carries no company of its own.
	CompanyName string

	// HSCode and OriginCountry are copied to every item descriptor.
	HSCode        string
	OriginCountry string

	// DefaultCountry applies when the order has no country code.
	DefaultCountry string
}

// Validate checks that the options can produce a meaningful payload.
func (o BuilderOptions) Validate() error {
	if o.ItemWeightGrams <= 0 {
		return fmt.Errorf("%w: item weight must be positive, got %d", ErrInvalidOptions, o.ItemWeightGrams)
	}
	if o.ShipmentMethodID <= 0 {
		return fmt.Errorf("%w: shipment method ID must be positive, got %d", ErrInvalidOptions, o.ShipmentMethodID)
	}
	return nil
}

// Builder turns untrusted order attributes into a carrier payload.
// It holds no mutable state and is safe for concurrent use.
type Builder struct {
	opts   BuilderOptions
	logger *slog.Logger
}

// NewBuilder creates a payload builder. logger is optional.
func NewBuilder(opts BuilderOptions, logger *slog.Logger) (*Builder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.DefaultCountry == "" {
		opts.DefaultCountry = validate.DefaultCountry
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{opts: opts, logger: logger}, nil
}

// Options returns the constants the builder applies.
func (b *Builder) Options() BuilderOptions {
	return b.opts
}

// Build validates every field of attrs and assembles the payload.
//
// The country is resolved first because postal code and phone rules depend on
// it; an invalid country is reported alone. All other fields are checked
// independently so the returned *ValidationFailedError lists every problem.
func (b *Builder) Build(attrs OrderAttributes) (*Payload, error) {
	rawCountry := attrs.CountryCode
	if validate.SanitizeText(rawCountry, 0) == "" {
		rawCountry = b.opts.DefaultCountry
	}
	country, err := validate.CountryCode(rawCountry)
	if err != nil {
		b.logger.Warn("halting payload build on invalid country", "country", attrs.CountryCode)
		return nil, &ValidationFailedError{
			Errors: []*validate.FieldError{validate.AsFieldError(err, FieldCountry, attrs.CountryCode)},
		}
	}

	var errs []*validate.FieldError
	collect := func(field, raw string, err error) {
		if err == nil {
			return
		}
		fe := validate.AsFieldError(err, field, raw)
		b.logger.Debug("field validation failed", "field", field, "raw", raw, "error", fe.Message)
		errs = append(errs, fe)
	}

	name := validate.SanitizeText(attrs.CustomerName, MaxNameLength)
	if name == "" {
		collect(FieldName, attrs.CustomerName, &validate.FieldError{
			Kind:    validate.KindRequired,
			Message: "customer name is required",
		})
	}

	company := validate.SanitizeText(attrs.CompanyName, MaxCompanyLength)
	if company == "" {
		company = validate.SanitizeText(b.opts.CompanyName, MaxCompanyLength)
	}

	address := validate.SanitizeText(attrs.Street, MaxAddressLength)
	city := validate.SanitizeText(attrs.City, MaxCityLength)
	if address == "" {
		collect(FieldAddress, attrs.Street, &validate.FieldError{
			Kind:    validate.KindRequired,
			Message: "street address is required",
		})
	}
	if city == "" {
		collect(FieldCity, attrs.City, &validate.FieldError{
			Kind:    validate.KindRequired,
			Message: "city is required",
		})
	}

	postal, err := validate.PostalCode(attrs.PostalCode, country)
	collect(FieldPostalCode, attrs.PostalCode, err)

	email, err := validate.Email(attrs.CustomerEmail)
	collect(FieldEmail, attrs.CustomerEmail, err)

	phone := validate.PhoneNumber(attrs.CustomerPhone, country)

	pointID, err := validate.ServicePointID(attrs.PickupPointID)
	collect(FieldServicePoint, attrs.PickupPointID, err)

	postNumber := validate.SanitizeText(attrs.PickupPointNumber, MaxPostNumberLength)

	orderNumber := validate.SanitizeText(attrs.OrderReference, MaxOrderNumberLength)
	if orderNumber == "" {
		collect(FieldOrderNumber, attrs.OrderReference, &validate.FieldError{
			Kind:    validate.KindRequired,
			Message: "order number is required",
		})
	}

	if decodeErr, ok := attrs.decodeErrs[FieldLineItems]; ok {
		collect(FieldLineItems, decodeErr.Value, decodeErr)
	} else {
		collect(FieldLineItems, "", checkLineItems(attrs.LineItems))
	}

	if len(errs) > 0 {
		b.logger.Warn("shipping payload rejected", "error_count", len(errs))
		return nil, &ValidationFailedError{Errors: errs}
	}

	items := make([]ItemDescriptor, len(attrs.LineItems))
	totalQty := 0
	for i, li := range attrs.LineItems {
		totalQty += li.Quantity
		items[i] = ItemDescriptor{
			Description:   "Réf : " + validate.SanitizeText(li.Reference, 0),
			Reference:     validate.SanitizeText(li.Reference, 0),
			Quantity:      li.Quantity,
			WeightGrams:   b.opts.ItemWeightGrams,
			Value:         li.UnitPrice,
			HSCode:        b.opts.HSCode,
			OriginCountry: b.opts.OriginCountry,
		}
	}

	payload := &Payload{
		Name:              name,
		CompanyName:       company,
		Address:           address,
		City:              city,
		PostalCode:        postal,
		CountryCode:       country,
		Email:             email,
		Phone:             phone,
		PickupPointID:     pointID,
		PickupPointNumber: postNumber,
		OrderNumber:       orderNumber,
		TotalWeightGrams:  b.opts.ItemWeightGrams * totalQty,
		ShipmentMethodID:  b.opts.ShipmentMethodID,
		Items:             items,
	}

	b.logger.Info("shipping payload built",
		"order_number", payload.OrderNumber,
		"service_point", payload.PickupPointID,
		"item_lines", len(items),
		"quantity", totalQty,
		"weight_grams", payload.TotalWeightGrams,
	)

	return payload, nil
}

// checkLineItems requires at least one line, every quantity >= 1, every unit
// price >= 0. Only the first offending line is reported.
func checkLineItems(items []LineItem) error {
	if len(items) == 0 {
		return &validate.FieldError{Kind: validate.KindRequired, Message: "at least one line item is required"}
	}
	for i, li := range items {
		if validate.SanitizeText(li.Reference, 0) == "" {
			return &validate.FieldError{
				Kind:    validate.KindRequired,
				Message: fmt.Sprintf("line item %d has no reference", i+1),
			}
		}
		if li.Quantity < 1 {
			return &validate.FieldError{
				Kind:    validate.KindInvalidFormat,
				Value:   li.Reference,
				Message: fmt.Sprintf("line item %d (%s) quantity must be at least 1, got %d", i+1, li.Reference, li.Quantity),
			}
		}
		if li.UnitPrice.IsNegative() {
			return &validate.FieldError{
				Kind:    validate.KindInvalidFormat,
				Value:   li.Reference,
				Message: fmt.Sprintf("line item %d (%s) price must not be negative", i+1, li.Reference),
			}
		}
	}
	return nil
}
