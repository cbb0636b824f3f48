package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/pointrelais/internal/billing"
	"github.com/dukerupert/pointrelais/internal/domain"
	"github.com/dukerupert/pointrelais/internal/shipping"
	"github.com/dukerupert/pointrelais/internal/telemetry"
)

// Parcel sources, used as metric labels.
const (
	SourcePaymentIntent = "payment_intent"
	SourceWebhook       = "webhook"
)

// FulfillmentConfig holds the order-number settings.
type FulfillmentConfig struct {
	// OrderPrefix is prepended to the last characters of the payment ID.
	OrderPrefix string
}

// fulfillmentService implements domain.FulfillmentService.
type fulfillmentService struct {
	billingProvider billing.Provider
	carrier         shipping.Provider
	builder         *shipping.Builder
	config          FulfillmentConfig
	metrics         *telemetry.BusinessMetrics
	logger          *slog.Logger
}

// NewFulfillmentService creates a new FulfillmentService instance. metrics may be nil.
func NewFulfillmentService(
	billingProvider billing.Provider,
	carrier shipping.Provider,
	builder *shipping.Builder,
	config FulfillmentConfig,
	metrics *telemetry.BusinessMetrics,
	logger *slog.Logger,
) (domain.FulfillmentService, error) {
	if billingProvider == nil || carrier == nil || builder == nil {
		return nil, fmt.Errorf("fulfillment service: billing provider, carrier and builder are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &fulfillmentService{
		billingProvider: billingProvider,
		carrier:         carrier,
		builder:         builder,
		config:          config,
		metrics:         metrics,
		logger:          logger,
	}, nil
}

// ProcessPaymentIntent creates the parcel for a succeeded Payment Intent.
func (s *fulfillmentService) ProcessPaymentIntent(ctx context.Context, paymentIntentID string) (*domain.ParcelResult, error) {
	const op = "fulfillment.payment_intent"

	paymentIntentID = strings.TrimSpace(paymentIntentID)
	if paymentIntentID == "" {
		return nil, domain.ErrMissingPaymentIntentID
	}

	pi, err := s.billingProvider.GetPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, paymentError(op, err)
	}
	if !pi.Succeeded() {
		domain.LoggerFromContext(ctx, s.logger).Warn("payment intent not succeeded",
			"payment_intent_id", pi.ID,
			"status", pi.Status,
		)
		return nil, fmt.Errorf("%s: status %q: %w", op, pi.Status, domain.ErrPaymentNotSucceeded)
	}
	if len(pi.Metadata) == 0 {
		return nil, domain.ErrMissingMetadata
	}

	return s.createParcel(ctx, op, SourcePaymentIntent, pi.ID, pi.Metadata)
}

// FulfillCheckoutSession creates the parcel for a paid Checkout Session.
func (s *fulfillmentService) FulfillCheckoutSession(ctx context.Context, session domain.PaidSession) (*domain.ParcelResult, error) {
	const op = "fulfillment.checkout_session"

	if strings.TrimSpace(session.ID) == "" {
		return nil, domain.ErrMissingSessionID
	}
	if session.PaymentStatus != billing.SessionPaid {
		return nil, fmt.Errorf("%s: payment_status %q: %w", op, session.PaymentStatus, domain.ErrSessionNotPaid)
	}
	if len(session.Metadata) == 0 {
		return nil, domain.ErrMissingMetadata
	}

	return s.createParcel(ctx, op, SourceWebhook, session.ID, session.Metadata)
}

// ShippingMethods lists the carrier methods available to the account.
func (s *fulfillmentService) ShippingMethods(ctx context.Context) ([]domain.ShippingMethodInfo, error) {
	const op = "fulfillment.shipping_methods"

	start := time.Now()
	methods, err := s.carrier.ListShippingMethods(ctx)
	s.observeCarrier("list_shipping_methods", start)
	if err != nil {
		return nil, carrierError(op, err)
	}

	out := make([]domain.ShippingMethodInfo, len(methods))
	for i, m := range methods {
		out[i] = domain.ShippingMethodInfo{
			ID:                   m.ID,
			Name:                 m.Name,
			Carrier:              m.Carrier,
			MinWeightGrams:       m.MinWeightGrams,
			MaxWeightGrams:       m.MaxWeightGrams,
			RequiresServicePoint: m.RequiresServicePoint(),
			Countries:            m.Countries,
		}
	}
	return out, nil
}

// createParcel decodes the attribute bag, builds the carrier payload and
// creates the parcel. paymentRef seeds the order number.
func (s *fulfillmentService) createParcel(ctx context.Context, op, source, paymentRef string, meta map[string]string) (*domain.ParcelResult, error) {
	attrs := shipping.DecodeAttributes(meta)
	attrs.OrderReference = shipping.OrderNumber(s.config.OrderPrefix, paymentRef)

	ctx = domain.NewContextWithOrderRef(ctx, attrs.OrderReference)
	logger := domain.LoggerFromContext(ctx, s.logger)

	payload, err := s.builder.Build(attrs)
	if err != nil {
		var vf *shipping.ValidationFailedError
		if errors.As(err, &vf) {
			logger.Warn("order attributes rejected",
				"source", source,
				"payment_ref", paymentRef,
				"fields", vf.Fields(),
			)
			if s.metrics != nil && len(vf.Errors) > 0 {
				s.metrics.PayloadRejected.WithLabelValues(vf.Errors[0].Field).Inc()
			}
			return nil, domain.FromFieldErrors(op, vf.Errors)
		}
		return nil, domain.Internal(err, op, "failed to build shipping payload")
	}

	telemetry.AddBreadcrumb("fulfillment", "creating parcel", map[string]interface{}{
		"order_number": payload.OrderNumber,
		"weight_grams": payload.TotalWeightGrams,
		"source":       source,
	})

	spanCtx, finish := telemetry.StartSpan(ctx, "carrier.create_parcel", payload.OrderNumber)
	start := time.Now()
	parcel, err := s.carrier.CreateParcel(spanCtx, payload)
	s.observeCarrier("create_parcel", start)
	finish()
	if err != nil {
		code := domain.EINTERNAL
		var ce interface{ ErrorCode() string }
		if errors.As(err, &ce) {
			code = ce.ErrorCode()
		}
		if s.metrics != nil {
			s.metrics.ParcelsFailed.WithLabelValues(code, source).Inc()
		}
		logger.Error("parcel creation failed",
			"source", source,
			"payment_ref", paymentRef,
			"error", err,
		)
		telemetry.CaptureOrderError(ctx, err, payload.OrderNumber, paymentRef, map[string]interface{}{
			"source":       source,
			"weight_grams": payload.TotalWeightGrams,
		})
		return nil, carrierError(op, err)
	}

	itemCount := parcel.ItemCount
	if itemCount == 0 {
		itemCount = len(payload.Items)
	}
	weight := parcel.WeightGrams
	if weight == 0 {
		weight = payload.TotalWeightGrams
	}
	orderNumber := parcel.OrderNumber
	if orderNumber == "" {
		orderNumber = payload.OrderNumber
	}

	if s.metrics != nil {
		carrierLabel := parcel.Carrier
		if carrierLabel == "" {
			carrierLabel = "unknown"
		}
		s.metrics.ParcelsCreated.WithLabelValues(carrierLabel, source).Inc()
		s.metrics.ParcelWeight.Observe(float64(weight))
	}
	logger.Info("parcel created",
		"source", source,
		"payment_ref", paymentRef,
		"parcel_id", parcel.ID,
		"tracking_number", parcel.TrackingNumber,
		"weight_grams", weight,
	)

	return &domain.ParcelResult{
		ParcelID:       parcel.ID,
		TrackingNumber: parcel.TrackingNumber,
		OrderNumber:    orderNumber,
		LabelURL:       parcel.LabelURL,
		Carrier:        parcel.Carrier,
		WeightGrams:    weight,
		ItemCount:      itemCount,
	}, nil
}

func (s *fulfillmentService) observeCarrier(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.CarrierAPILatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// carrierError keeps the carrier's own error code visible to the handler.
// Context cancellation and other uncoded failures become EUNAVAILABLE.
func carrierError(op string, err error) error {
	var ce interface{ ErrorCode() string }
	if errors.As(err, &ce) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return domain.Unavailable(err, op, "Carrier service is unavailable")
}
