package webhook

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/pointrelais/internal/billing"
	"github.com/dukerupert/pointrelais/internal/domain"
	"github.com/dukerupert/pointrelais/internal/handler"
	"github.com/dukerupert/pointrelais/internal/telemetry"
)

// MaxPayloadBytes caps the webhook body read before signature verification.
const MaxPayloadBytes = 1 << 20

// StripeHandler handles Stripe webhook events
type StripeHandler struct {
	provider           billing.Provider
	fulfillmentService domain.FulfillmentService
	metrics            *telemetry.BusinessMetrics
	logger             *slog.Logger
}

// NewStripeHandler creates a new Stripe webhook handler. metrics may be nil.
func NewStripeHandler(
	provider billing.Provider,
	fulfillmentService domain.FulfillmentService,
	metrics *telemetry.BusinessMetrics,
	logger *slog.Logger,
) *StripeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StripeHandler{
		provider:           provider,
		fulfillmentService: fulfillmentService,
		metrics:            metrics,
		logger:             logger,
	}
}

// webhookResponse acknowledges an event. CarrierError is set when the parcel
// could not be created; the payment itself was still received.
type webhookResponse struct {
	Received     bool                 `json:"received"`
	Parcel       *domain.ParcelResult `json:"parcel,omitempty"`
	CarrierError string               `json:"sendcloud_error,omitempty"`
}

// HandleWebhook processes incoming Stripe webhook events
//
// Stripe CLI testing:
//
//	stripe listen --forward-to localhost:3000/webhooks/stripe
//	stripe trigger checkout.session.completed
//
// Once the signature is verified the handler always answers 200, even when
// the parcel fails, so Stripe does not redeliver an event that was paid for.
func (h *StripeHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	logger := domain.LoggerFromContext(r.Context(), h.logger)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxPayloadBytes))
	if err != nil {
		logger.Warn("failed to read webhook payload", "error", err)
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "webhook.stripe", "Error reading request body"))
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		logger.Warn("webhook rejected: missing Stripe-Signature header")
		h.recordFailure("unknown", "missing_signature")
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "webhook.stripe", "Missing signature"))
		return
	}

	event, err := h.provider.ConstructWebhookEvent(payload, signature)
	if err != nil {
		logger.Warn("webhook signature verification failed", "error", err, "payload_bytes", len(payload))
		h.recordFailure("unknown", "invalid_signature")
		handler.ErrorResponse(w, r, domain.WrapError(err, domain.EINVALID, "webhook.stripe", "Invalid signature"))
		return
	}

	logger = logger.With("event_id", event.ID, "event_type", event.Type)
	if h.metrics != nil {
		h.metrics.WebhookReceived.WithLabelValues(event.Type).Inc()
		defer func() {
			h.metrics.WebhookLatency.WithLabelValues(event.Type).Observe(time.Since(startTime).Seconds())
		}()
	}

	resp := webhookResponse{Received: true}

	switch event.Type {
	case billing.EventCheckoutSessionCompleted:
		resp.Parcel, resp.CarrierError = h.handleCheckoutSessionCompleted(r, logger, event)

	case billing.EventPaymentIntentSucceeded:
		// Card payments are fulfilled by POST /api/orders/process.
		if pi, err := event.PaymentIntent(); err == nil {
			logger.Info("payment intent succeeded",
				"payment_intent_id", pi.ID,
				"amount_cents", pi.AmountCents,
				"order_id", pi.Metadata["order_id"],
			)
		}

	case billing.EventPaymentIntentFailed:
		if pi, err := event.PaymentIntent(); err == nil {
			attrs := []any{"payment_intent_id", pi.ID, "order_id", pi.Metadata["order_id"]}
			if pi.LastPaymentError != nil {
				attrs = append(attrs, "decline_code", pi.LastPaymentError.DeclineCode, "reason", pi.LastPaymentError.Message)
			}
			logger.Warn("payment intent failed", attrs...)
		}

	default:
		logger.Debug("unhandled webhook event type")
	}

	if h.metrics != nil && resp.CarrierError == "" {
		h.metrics.WebhookProcessed.WithLabelValues(event.Type).Inc()
	}
	handler.WriteJSON(w, http.StatusOK, resp)
}

// handleCheckoutSessionCompleted creates the parcel for a paid session. It
// returns either the parcel or the message reported back to Stripe.
func (h *StripeHandler) handleCheckoutSessionCompleted(r *http.Request, logger *slog.Logger, event *billing.WebhookEvent) (*domain.ParcelResult, string) {
	session, err := event.CheckoutSession()
	if err != nil {
		logger.Error("failed to decode checkout session", "error", err)
		h.recordFailure(event.Type, "decode")
		return nil, "invalid checkout session payload"
	}

	logger = logger.With("session_id", session.ID, "order_id", session.Metadata["order_id"])
	if !session.Paid() {
		logger.Info("checkout session completed without payment", "payment_status", session.PaymentStatus)
		return nil, ""
	}

	parcel, err := h.fulfillmentService.FulfillCheckoutSession(r.Context(), domain.PaidSession{
		ID:            session.ID,
		PaymentStatus: session.PaymentStatus,
		Metadata:      session.Metadata,
	})
	if err != nil {
		reason := failureReason(err)
		h.recordFailure(event.Type, reason)
		logger.Error("parcel creation failed for paid session", "error", err, "reason", reason)
		telemetry.CaptureErrorFromContext(r.Context(), err, map[string]interface{}{
			"event_type": event.Type,
			"session_id": session.ID,
			"reason":     reason,
		})
		return nil, err.Error()
	}

	logger.Info("parcel created from checkout session",
		"parcel_id", parcel.ParcelID,
		"tracking_number", parcel.TrackingNumber,
		"order_number", parcel.OrderNumber,
	)
	return parcel, ""
}

// failureReason is the error code used as the webhook failure metric label.
func failureReason(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	if domain.IsValidationError(err) {
		return domain.EINVALID
	}
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	return domain.EINTERNAL
}

func (h *StripeHandler) recordFailure(eventType, reason string) {
	if h.metrics != nil {
		h.metrics.WebhookFailed.WithLabelValues(eventType, reason).Inc()
	}
}
