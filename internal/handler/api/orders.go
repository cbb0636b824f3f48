package api

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/pointrelais/internal/domain"
	"github.com/dukerupert/pointrelais/internal/handler"
)

// OrderHandler turns confirmed payments into parcels.
type OrderHandler struct {
	fulfillmentService domain.FulfillmentService
	logger             *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(fulfillmentService domain.FulfillmentService, logger *slog.Logger) *OrderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderHandler{
		fulfillmentService: fulfillmentService,
		logger:             logger,
	}
}

type processOrderRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
}

type processOrderResponse struct {
	Success bool                 `json:"success"`
	Parcel  *domain.ParcelResult `json:"parcel"`
}

// Process handles POST /api/orders/process
//
// Called by the storefront once stripe.js reports the Payment Intent as
// succeeded. The intent is fetched again server-side before anything ships.
func (h *OrderHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req processOrderRequest
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	parcel, err := h.fulfillmentService.ProcessPaymentIntent(r.Context(), req.PaymentIntentID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	domain.LoggerFromContext(r.Context(), h.logger).Info("order processed",
		"payment_intent_id", req.PaymentIntentID,
		"parcel_id", parcel.ParcelID,
		"order_number", parcel.OrderNumber,
	)
	handler.WriteJSON(w, http.StatusOK, processOrderResponse{Success: true, Parcel: parcel})
}

// ShippingMethods handles GET /api/shipping-methods
func (h *OrderHandler) ShippingMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.fulfillmentService.ShippingMethods(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, struct {
		ShippingMethods []domain.ShippingMethodInfo `json:"shippingMethods"`
	}{ShippingMethods: methods})
}
