package api

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/pointrelais/internal/domain"
	"github.com/dukerupert/pointrelais/internal/handler"
)

// CheckoutHandler serves the payment endpoints called by the storefront.
type CheckoutHandler struct {
	checkoutService domain.CheckoutService
	logger          *slog.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService domain.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutHandler{
		checkoutService: checkoutService,
		logger:          logger,
	}
}

// CreatePaymentIntent handles POST /api/payment-intents
func (h *CheckoutHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	logger := domain.LoggerFromContext(r.Context(), h.logger)

	var req domain.CheckoutRequest
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	result, err := h.checkoutService.CreatePaymentIntent(r.Context(), req)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	logger.Debug("payment intent returned to client", "order_id", result.OrderID)
	handler.WriteJSON(w, http.StatusOK, result)
}

// CreateCheckoutSession handles POST /api/checkout-sessions
//
// The Origin header, when present, decides where Stripe redirects after payment.
func (h *CheckoutHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckoutRequest
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	result, err := h.checkoutService.CreateCheckoutSession(r.Context(), req, r.Header.Get("Origin"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, result)
}

// OrderDetails handles GET /api/order-details?session_id=cs_...
func (h *CheckoutHandler) OrderDetails(w http.ResponseWriter, r *http.Request) {
	summary, err := h.checkoutService.GetOrderDetails(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, summary)
}
