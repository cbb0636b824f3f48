package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/pointrelais/internal"
	"github.com/dukerupert/pointrelais/internal/billing"
	"github.com/dukerupert/pointrelais/internal/handler/api"
	"github.com/dukerupert/pointrelais/internal/handler/webhook"
	"github.com/dukerupert/pointrelais/internal/router"
	"github.com/dukerupert/pointrelais/internal/routes"
	"github.com/dukerupert/pointrelais/internal/service"
	"github.com/dukerupert/pointrelais/internal/shipping"
	"github.com/dukerupert/pointrelais/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() error {
	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	// Error tracking
	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer flushSentry()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewBusinessMetrics(cfg.Metrics.Namespace, registry)

	// Payments
	stripeConfig := billing.StripeConfig{
		APIKey:        cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Currency:      cfg.Stripe.Currency,
		Logger:        logger,
	}
	billingProvider, err := billing.NewStripeProvider(stripeConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize billing provider: %w", err)
	}
	if stripeConfig.IsTestMode() {
		logger.Warn("Stripe is running in test mode")
	}

	// Carrier
	carrier, err := newCarrier(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize shipping provider: %w", err)
	}
	logger.Info("Shipping provider configured",
		"provider", cfg.Shipping.Provider,
		"profile", cfg.Shipping.Profile,
		"item_weight_grams", cfg.Shipping.ItemWeightGrams,
		"shipment_method_id", cfg.Shipping.ShipmentMethodID,
	)

	builder, err := shipping.NewBuilder(shipping.BuilderOptions{
		ItemWeightGrams:  cfg.Shipping.ItemWeightGrams,
		ShipmentMethodID: cfg.Shipping.ShipmentMethodID,
		CompanyName:      cfg.Shipping.CompanyName,
		HSCode:           cfg.Shipping.HSCode,
		OriginCountry:    cfg.Shipping.OriginCountry,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize payload builder: %w", err)
	}

	shippingRate, err := shipping.NewFlatRate(cfg.Shipping.ServiceName, shipping.DefaultFlatRate.ServiceCode, cfg.Shipping.Cost)
	if err != nil {
		return fmt.Errorf("invalid shipping rate: %w", err)
	}

	// Initialize services
	checkoutService, err := service.NewCheckoutService(billingProvider, service.CheckoutConfig{
		ShopName:       cfg.ShopName,
		Currency:       cfg.Stripe.Currency,
		ShippingRate:   shippingRate,
		BaseURL:        cfg.BaseURL,
		AllowedOrigins: cfg.AllowedOrigins,
	}, metrics, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize checkout service: %w", err)
	}

	fulfillmentService, err := service.NewFulfillmentService(billingProvider, carrier, builder, service.FulfillmentConfig{
		OrderPrefix: cfg.Shipping.OrderPrefix,
	}, metrics, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize fulfillment service: %w", err)
	}

	// Handlers
	apiDeps := routes.APIDeps{
		CheckoutHandler: api.NewCheckoutHandler(checkoutService, logger),
		OrderHandler:    api.NewOrderHandler(fulfillmentService, logger),
		HealthHandler:   api.NewHealthHandler(cfg.Shipping.Provider, stripeConfig.IsTestMode()),
	}
	if cfg.RateLimit.Enabled {
		trustProxy := cfg.RateLimit.TrustProxyHeaders
		apiDeps.RateLimit = router.NewRateLimiter(router.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			KeyFunc:           func(r *http.Request) string { return router.ClientIP(r, trustProxy) },
		}).Middleware
	}
	webhookDeps := routes.WebhookDeps{
		StripeHandler: webhook.NewStripeHandler(billingProvider, fulfillmentService, metrics, logger).HandleWebhook,
	}
	opsDeps := routes.OpsDeps{}
	if cfg.Metrics.Enabled {
		opsDeps.MetricsPath = cfg.Metrics.Path
		opsDeps.MetricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	}

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	securityConfig := router.SecurityHeadersConfig{}
	if cfg.Env == "prod" {
		securityConfig.HSTSMaxAge = 31536000 // 1 year
	}

	r := router.New(
		router.Recovery(logger),
		router.RequestID,
		router.SecurityHeaders(securityConfig),
		telemetry.SentryMiddleware(),
		telemetry.SentryContextMiddleware(),
		router.Metrics(metrics),
		router.Logger(logger),
	)
	routes.RegisterAPIRoutes(r, apiDeps)
	routes.RegisterWebhookRoutes(r, webhookDeps)
	routes.RegisterOpsRoutes(r, opsDeps)

	// CORS wraps the whole mux so preflight requests never reach method routes.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router.CORS(cfg.AllowedOrigins)(r),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server", "timeout_seconds", cfg.ShutdownSeconds)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownSeconds)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// newCarrier builds the shipping provider selected by SHIPPING_PROVIDER.
func newCarrier(cfg *internal.Config, logger *slog.Logger) (shipping.Provider, error) {
	switch cfg.Shipping.Provider {
	case internal.ShippingProviderSendcloud:
		return shipping.NewSendcloudProvider(shipping.SendcloudConfig{
			APIKey:    cfg.Sendcloud.APIKey,
			APISecret: cfg.Sendcloud.APISecret,
			BaseURL:   cfg.Sendcloud.BaseURL,
			HTTPClient: &http.Client{
				Timeout:   time.Duration(cfg.Sendcloud.TimeoutSeconds) * time.Second,
				Transport: &telemetry.HTTPTransport{Transport: http.DefaultTransport},
			},
			RequestLabel: cfg.Sendcloud.RequestLabel,
			Logger:       logger,
		})
	case internal.ShippingProviderEasyPost:
		return shipping.NewEasyPostProvider(shipping.EasyPostConfig{
			APIKey: cfg.EasyPost.APIKey,
			Origin: shipping.ShippingAddress{
				Name:       cfg.EasyPost.FromName,
				Company:    cfg.Shipping.CompanyName,
				Line1:      cfg.EasyPost.FromStreet,
				City:       cfg.EasyPost.FromCity,
				PostalCode: cfg.EasyPost.FromPostalCode,
				Country:    cfg.EasyPost.FromCountry,
				Phone:      cfg.EasyPost.FromPhone,
				Email:      cfg.EasyPost.FromEmail,
			},
			Logger: logger,
		})
	case internal.ShippingProviderMock:
		logger.Warn("Using mock shipping provider; no parcels will reach a carrier")
		return shipping.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown shipping provider %q", cfg.Shipping.Provider)
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
