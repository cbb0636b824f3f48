package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for the checkout and parcel pipeline.
type BusinessMetrics struct {
	// HTTP
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Checkout funnel
	CheckoutStarted  *prometheus.CounterVec
	CheckoutRejected *prometheus.CounterVec
	OrderValue       *prometheus.HistogramVec
	OrderItemCount   prometheus.Histogram
	TotalMismatch    prometheus.Counter

	// Parcels
	ParcelsCreated  *prometheus.CounterVec
	ParcelsFailed   *prometheus.CounterVec
	ParcelWeight    prometheus.Histogram
	PayloadRejected *prometheus.CounterVec

	// Webhooks
	WebhookReceived  *prometheus.CounterVec
	WebhookProcessed *prometheus.CounterVec
	WebhookFailed    *prometheus.CounterVec
	WebhookLatency   *prometheus.HistogramVec

	// External API performance
	StripeAPILatency  *prometheus.HistogramVec
	CarrierAPILatency *prometheus.HistogramVec
}

// NewBusinessMetrics creates all metrics and registers them with reg.
// A nil reg uses the default registerer.
func NewBusinessMetrics(namespace string, reg prometheus.Registerer) *BusinessMetrics {
	if namespace == "" {
		namespace = "pointrelais"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &BusinessMetrics{
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		CheckoutStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "started_total",
				Help:      "Payment intents and checkout sessions opened",
			},
			[]string{"kind"}, // payment_intent, checkout_session
		),
		CheckoutRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "rejected_total",
				Help:      "Checkout requests rejected before reaching Stripe",
			},
			[]string{"reason"},
		),
		OrderValue: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "order_value_euros",
				Help:      "Server-computed order totals",
				Buckets:   []float64{10, 20, 30, 50, 75, 100, 150, 250, 500},
			},
			[]string{"currency"},
		),
		OrderItemCount: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "order_item_count",
				Help:      "Total item quantity per order",
				Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
			},
		),
		TotalMismatch: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "client_total_mismatch_total",
				Help:      "Orders whose client-computed total differs from the server total",
			},
		),

		ParcelsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "parcel",
				Name:      "created_total",
				Help:      "Parcels created with the carrier",
			},
			[]string{"carrier", "source"}, // source: payment_intent, webhook
		),
		ParcelsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "parcel",
				Name:      "failed_total",
				Help:      "Parcel creation failures by error code",
			},
			[]string{"code", "source"},
		),
		ParcelWeight: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "parcel",
				Name:      "weight_grams",
				Help:      "Declared parcel weight",
				Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2000},
			},
		),
		PayloadRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "parcel",
				Name:      "payload_rejected_total",
				Help:      "Shipping payloads rejected by validation, by first failing field",
			},
			[]string{"field"},
		),

		WebhookReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "webhook",
				Name:      "received_total",
				Help:      "Verified webhook events received",
			},
			[]string{"event_type"},
		),
		WebhookProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "webhook",
				Name:      "processed_total",
				Help:      "Webhook events that completed their side effects",
			},
			[]string{"event_type"},
		),
		WebhookFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "webhook",
				Name:      "failed_total",
				Help:      "Webhook events rejected or failed",
			},
			[]string{"event_type", "reason"},
		),
		WebhookLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "webhook",
				Name:      "duration_seconds",
				Help:      "Webhook handling latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"event_type"},
		),

		StripeAPILatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "external",
				Name:      "stripe_duration_seconds",
				Help:      "Stripe API call latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		CarrierAPILatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "external",
				Name:      "carrier_duration_seconds",
				Help:      "Carrier API call latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}
