package api

import (
	"net/http"
	"time"

	"github.com/dukerupert/pointrelais/internal/handler"
)

// HealthHandler reports liveness and the active integrations.
type HealthHandler struct {
	carrier  string
	testMode bool
	started  time.Time
}

// NewHealthHandler creates a health handler. carrier names the shipping
// provider; testMode reports whether Stripe runs with test keys.
func NewHealthHandler(carrier string, testMode bool) *HealthHandler {
	return &HealthHandler{carrier: carrier, testMode: testMode, started: time.Now()}
}

// ServeHTTP handles GET /healthz
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler.WriteJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"carrier":        h.carrier,
		"stripeTestMode": h.testMode,
		"uptimeSeconds":  int(time.Since(h.started).Seconds()),
	})
}
