package routes

import (
	"net/http"

	"github.com/dukerupert/pointrelais/internal/handler"
	"github.com/dukerupert/pointrelais/internal/router"
)

// RegisterAPIRoutes registers the checkout, order and health routes.
// The storefront calls these directly; none require authentication.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	limited := r
	if deps.RateLimit != nil {
		limited = r.Group(deps.RateLimit)
	}

	// Checkout
	limited.Post("/api/payment-intents", deps.CheckoutHandler.CreatePaymentIntent)
	limited.Post("/api/checkout-sessions", deps.CheckoutHandler.CreateCheckoutSession)
	r.Get("/api/order-details", deps.CheckoutHandler.OrderDetails)

	// Orders
	limited.Post("/api/orders/process", deps.OrderHandler.Process)
	r.Get("/api/shipping-methods", deps.OrderHandler.ShippingMethods)

	r.Handle(http.MethodGet, "/healthz", deps.HealthHandler)

	r.NotFound(handler.NotFoundResponse)
	r.MethodNotAllowed(handler.MethodNotAllowedResponse)
}

// RegisterOpsRoutes registers operational endpoints such as /metrics.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	if deps.MetricsPath != "" && deps.MetricsHandler != nil {
		r.Handle(http.MethodGet, deps.MetricsPath, deps.MetricsHandler)
	}
}
