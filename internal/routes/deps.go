package routes

import (
	"net/http"

	"github.com/dukerupert/pointrelais/internal/handler/api"
	"github.com/dukerupert/pointrelais/internal/router"
)

// APIDeps contains dependencies for the JSON API consumed by the storefront.
type APIDeps struct {
	CheckoutHandler *api.CheckoutHandler
	OrderHandler    *api.OrderHandler
	HealthHandler   http.Handler

	// RateLimit guards the POST endpoints that reach Stripe or the carrier.
	// Nil disables it.
	RateLimit router.Middleware
}

// WebhookDeps contains dependencies for webhook routes
type WebhookDeps struct {
	StripeHandler http.HandlerFunc
}

// OpsDeps contains dependencies for operational endpoints.
type OpsDeps struct {
	// MetricsPath is empty when the metrics endpoint is disabled.
	MetricsPath    string
	MetricsHandler http.Handler
}
