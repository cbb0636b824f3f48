package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/pointrelais/internal/billing"
	"github.com/dukerupert/pointrelais/internal/domain"
	"github.com/dukerupert/pointrelais/internal/shipping"
	"github.com/dukerupert/pointrelais/internal/telemetry"
	"github.com/dukerupert/pointrelais/internal/validate"
	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxMetadataValueLength is Stripe's limit on a single metadata value.
const MaxMetadataValueLength = 500

// CheckoutConfig holds the shop-wide settings applied to every checkout.
type CheckoutConfig struct {
	// ShopName appears in the payment description.
	ShopName string

	// Currency is the lowercase ISO 4217 charge currency.
	Currency string

	// ShippingRate is added to the product subtotal.
	ShippingRate shipping.FlatRate

	// BaseURL is used for redirects when the request has no usable origin.
	BaseURL string

	// AllowedOrigins restricts the redirect origins accepted from clients.
	// Empty accepts any origin.
	AllowedOrigins []string
}

// checkoutService implements domain.CheckoutService.
type checkoutService struct {
	billingProvider billing.Provider
	config          CheckoutConfig
	validator       *validator.Validate
	metrics         *telemetry.BusinessMetrics
	logger          *slog.Logger
	now             func() time.Time
	newOrderID      func() string
}

// NewCheckoutService creates a new CheckoutService instance. metrics may be nil.
func NewCheckoutService(
	billingProvider billing.Provider,
	config CheckoutConfig,
	metrics *telemetry.BusinessMetrics,
	logger *slog.Logger,
) (domain.CheckoutService, error) {
	if billingProvider == nil {
		return nil, fmt.Errorf("checkout service: billing provider is required")
	}
	if err := config.ShippingRate.Validate(); err != nil {
		return nil, fmt.Errorf("checkout service: %w", err)
	}
	if config.Currency == "" {
		config.Currency = "eur"
	}
	config.Currency = strings.ToLower(config.Currency)
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if logger == nil {
		logger = slog.Default()
	}

	return &checkoutService{
		billingProvider: billingProvider,
		config:          config,
		validator:       newRequestValidator(),
		metrics:         metrics,
		logger:          logger,
		now:             time.Now,
		newOrderID:      func() string { return "CMD-" + uuid.NewString() },
	}, nil
}

// preparedOrder is a validated request with server-side totals and the
// metadata bag that travels with the payment.
type preparedOrder struct {
	orderID    string
	attrs      shipping.OrderAttributes
	total      decimal.Decimal
	totalCents int64
	metadata   map[string]string
}

// CreatePaymentIntent validates the request and opens a Stripe Payment Intent.
func (s *checkoutService) CreatePaymentIntent(ctx context.Context, req domain.CheckoutRequest) (*domain.PaymentIntentResult, error) {
	const op = "checkout.payment_intent"

	order, err := s.prepare(ctx, op, req, "card")
	if err != nil {
		return nil, err
	}
	logger := domain.LoggerFromContext(domain.NewContextWithOrderRef(ctx, order.orderID), s.logger)

	start := time.Now()
	pi, err := s.billingProvider.CreatePaymentIntent(ctx, billing.CreatePaymentIntentParams{
		AmountCents:    order.totalCents,
		Currency:       s.config.Currency,
		CustomerEmail:  order.attrs.CustomerEmail,
		Description:    s.description(req),
		Metadata:       order.metadata,
		IdempotencyKey: order.orderID,
	})
	s.observeStripe("create_payment_intent", start)
	if err != nil {
		logger.Error("failed to create payment intent", "error", err)
		return nil, paymentError(op, err)
	}

	if s.metrics != nil {
		s.metrics.CheckoutStarted.WithLabelValues("payment_intent").Inc()
		s.metrics.OrderValue.WithLabelValues(s.config.Currency).Observe(order.total.InexactFloat64())
		s.metrics.OrderItemCount.Observe(float64(order.attrs.TotalQuantity()))
	}
	logger.Info("payment intent opened",
		"payment_intent_id", pi.ID,
		"amount_cents", order.totalCents,
		"items", order.attrs.TotalQuantity(),
	)

	return &domain.PaymentIntentResult{
		ClientSecret:    pi.ClientSecret,
		PaymentIntentID: pi.ID,
		OrderID:         order.orderID,
		Total:           order.total,
	}, nil
}

// CreateCheckoutSession opens a hosted Stripe Checkout page: one line per
// product plus the shipping line.
func (s *checkoutService) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest, origin string) (*domain.CheckoutSessionResult, error) {
	const op = "checkout.session"

	base, err := s.resolveOrigin(origin)
	if err != nil {
		return nil, err
	}

	order, err := s.prepare(ctx, op, req, "checkout_session")
	if err != nil {
		return nil, err
	}
	logger := domain.LoggerFromContext(domain.NewContextWithOrderRef(ctx, order.orderID), s.logger)

	lineItems := make([]billing.LineItem, 0, len(req.Products)+1)
	for _, p := range req.Products {
		lineItems = append(lineItems, billing.LineItem{
			Name:            validate.SanitizeText(p.DisplayName(), 250),
			Description:     "Réf : " + validate.SanitizeText(p.Reference, 0),
			UnitAmountCents: toCents(p.Price),
			Quantity:        int64(p.Quantity),
		})
	}
	lineItems = append(lineItems, billing.LineItem{
		Name:            s.config.ShippingRate.ServiceName,
		UnitAmountCents: s.config.ShippingRate.CostCents,
		Quantity:        1,
	})

	start := time.Now()
	cs, err := s.billingProvider.CreateCheckoutSession(ctx, billing.CreateCheckoutSessionParams{
		LineItems:     lineItems,
		CustomerEmail: order.attrs.CustomerEmail,
		SuccessURL:    base + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     base + "/",
		Currency:      s.config.Currency,
		Metadata:      order.metadata,
	})
	s.observeStripe("create_checkout_session", start)
	if err != nil {
		logger.Error("failed to create checkout session", "error", err)
		return nil, paymentError(op, err)
	}

	if s.metrics != nil {
		s.metrics.CheckoutStarted.WithLabelValues("checkout_session").Inc()
		s.metrics.OrderValue.WithLabelValues(s.config.Currency).Observe(order.total.InexactFloat64())
		s.metrics.OrderItemCount.Observe(float64(order.attrs.TotalQuantity()))
	}
	logger.Info("checkout session opened", "session_id", cs.ID, "amount_cents", order.totalCents)

	return &domain.CheckoutSessionResult{
		SessionID: cs.ID,
		URL:       cs.URL,
		OrderID:   order.orderID,
	}, nil
}

// GetOrderDetails summarizes a checkout session for the confirmation page.
func (s *checkoutService) GetOrderDetails(ctx context.Context, sessionID string) (*domain.OrderSummary, error) {
	const op = "checkout.details"

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, domain.ErrMissingSessionID
	}

	start := time.Now()
	cs, err := s.billingProvider.GetCheckoutSession(ctx, sessionID)
	s.observeStripe("get_checkout_session", start)
	if err != nil {
		return nil, paymentError(op, err)
	}

	meta := cs.Metadata
	return &domain.OrderSummary{
		SessionID:           cs.ID,
		OrderID:             meta[shipping.MetaOrderID],
		CustomerName:        meta[shipping.MetaCustomerName],
		CustomerPhone:       meta[shipping.MetaCustomerPhone],
		DeliveryAddress:     meta[shipping.MetaDeliveryAddress],
		ServicePointID:      meta[shipping.MetaServicePointID],
		ServicePointName:    meta[shipping.MetaServicePointName],
		ServicePointAddress: meta[shipping.MetaServicePointAddress],
		PostNumber:          meta[shipping.MetaPostNumber],
		PaymentStatus:       cs.PaymentStatus,
		AmountCents:         cs.AmountTotal,
		Currency:            cs.Currency,
	}, nil
}

// prepare validates req, computes the totals and encodes the metadata bag.
func (s *checkoutService) prepare(ctx context.Context, op string, req domain.CheckoutRequest, paymentMethod string) (*preparedOrder, error) {
	logger := domain.LoggerFromContext(ctx, s.logger)

	if err := validateRequest(s.validator, op, req); err != nil {
		s.reject("request_invalid")
		return nil, err
	}

	country := strings.ToUpper(strings.TrimSpace(req.Address.Country))
	if country == "" {
		country = validate.DefaultCountry
	}
	if country == validate.DefaultCountry && strings.TrimSpace(req.Address.PostalCode) != "" {
		if _, err := validate.PostalCode(req.Address.PostalCode, country); err != nil {
			s.reject("postal_code")
			return nil, domain.FromFieldErrors(op, []*validate.FieldError{
				validate.AsFieldError(err, "address.postalCode", req.Address.PostalCode),
			})
		}
	}

	sp := req.ServicePoint
	lineItems := make([]shipping.LineItem, len(req.Products))
	for i, p := range req.Products {
		lineItems[i] = shipping.LineItem{
			Reference: strings.TrimSpace(p.Reference),
			Quantity:  p.Quantity,
			UnitPrice: p.Price,
		}
	}

	attrs := shipping.OrderAttributes{
		CustomerName:      req.Customer.FullName(),
		CustomerEmail:     strings.TrimSpace(req.Customer.Email),
		CustomerPhone:     strings.TrimSpace(req.Customer.Phone),
		CompanyName:       strings.TrimSpace(req.Customer.CompanyName),
		Street:            firstNonEmpty(req.Address.Street, sp.Street),
		City:              firstNonEmpty(req.Address.City, sp.City),
		PostalCode:        firstNonEmpty(req.Address.PostalCode, sp.PostalCode),
		CountryCode:       country,
		PickupPointID:     sp.ID.String(),
		PickupPointNumber: strings.TrimSpace(req.PostNumber),
		LineItems:         lineItems,
	}

	meta, err := shipping.EncodeAttributes(attrs)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to encode order metadata")
	}
	if len(meta[shipping.MetaProducts]) > MaxMetadataValueLength {
		s.reject("metadata_too_large")
		logger.Warn("products metadata exceeds Stripe limit",
			"length", len(meta[shipping.MetaProducts]),
			"lines", len(lineItems),
		)
		return nil, domain.ErrMetadataTooLarge
	}

	subtotal := attrs.Subtotal()
	total := s.config.ShippingRate.OrderTotal(subtotal)
	if !req.Total.IsZero() && !req.Total.Equal(total) {
		logger.Warn("client total differs from server total",
			"client_total", req.Total.StringFixed(2),
			"server_total", total.StringFixed(2),
			"client_shipping", req.ShippingCost.StringFixed(2),
		)
		if s.metrics != nil {
			s.metrics.TotalMismatch.Inc()
		}
		telemetry.CaptureMessage("client total mismatch", sentry.LevelWarning, map[string]interface{}{
			"client_total": req.Total.StringFixed(2),
			"server_total": total.StringFixed(2),
		})
	}

	orderID := s.newOrderID()
	meta[shipping.MetaOrderID] = orderID
	meta[shipping.MetaServicePointName] = strings.TrimSpace(sp.Name)
	meta[shipping.MetaServicePointStreet] = strings.TrimSpace(sp.Street)
	meta[shipping.MetaServicePointCity] = strings.TrimSpace(sp.City)
	meta[shipping.MetaServicePointPostal] = strings.TrimSpace(sp.PostalCode)
	meta[shipping.MetaServicePointAddress] = sp.OneLine()
	meta[shipping.MetaDeliveryAddress] = req.Address.OneLine()
	meta[shipping.MetaSubtotal] = subtotal.StringFixed(2)
	meta[shipping.MetaShippingCost] = s.config.ShippingRate.Cost().StringFixed(2)
	meta[shipping.MetaTotal] = total.StringFixed(2)
	meta[shipping.MetaCurrency] = s.config.Currency
	meta[shipping.MetaOrderDate] = s.now().UTC().Format(time.RFC3339)
	meta[shipping.MetaPaymentMethod] = paymentMethod
	if handle := strings.TrimSpace(req.SocialHandle); handle != "" {
		meta[shipping.MetaSocialHandle] = handle
	}

	return &preparedOrder{
		orderID:    orderID,
		attrs:      attrs,
		total:      total,
		totalCents: toCents(total),
		metadata:   meta,
	}, nil
}

// description formats "Commande <shop> - N produit(s) - <customer>".
func (s *checkoutService) description(req domain.CheckoutRequest) string {
	desc := "Commande"
	if s.config.ShopName != "" {
		desc += " " + s.config.ShopName
	}
	return desc + " - " + strconv.Itoa(req.ItemCount()) + " produit(s) - " + req.Customer.FullName()
}

// resolveOrigin picks the base URL for the checkout redirects.
func (s *checkoutService) resolveOrigin(origin string) (string, error) {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin == "" || origin == s.config.BaseURL {
		if s.config.BaseURL == "" {
			return "", ErrInvalidOrigin
		}
		return s.config.BaseURL, nil
	}
	if !strings.HasPrefix(origin, "https://") && !strings.HasPrefix(origin, "http://") {
		return "", ErrInvalidOrigin
	}
	if len(s.config.AllowedOrigins) == 0 {
		return origin, nil
	}
	for _, allowed := range s.config.AllowedOrigins {
		if strings.TrimRight(allowed, "/") == origin {
			return origin, nil
		}
	}
	return "", ErrInvalidOrigin
}

func (s *checkoutService) reject(reason string) {
	if s.metrics != nil {
		s.metrics.CheckoutRejected.WithLabelValues(reason).Inc()
	}
}

func (s *checkoutService) observeStripe(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.StripeAPILatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// toCents converts a decimal amount to integer cents, rounding half away from zero.
func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
