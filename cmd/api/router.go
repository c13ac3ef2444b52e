package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/fincra-gateway/internal/auth"
	"github.com/noah-isme/fincra-gateway/internal/gateway"
	"github.com/noah-isme/fincra-gateway/internal/health"
	"github.com/noah-isme/fincra-gateway/internal/obs"
	"github.com/noah-isme/fincra-gateway/internal/ratelimit"
	"github.com/noah-isme/fincra-gateway/internal/security"
	"github.com/noah-isme/fincra-gateway/internal/settings"
)

type routerDeps struct {
	Logger         zerolog.Logger
	Tracing        bool
	Metrics        *obs.HTTPMetrics
	AllowedOrigins []string
	EnablePprof    bool
	PprofUser      string
	PprofPass      string

	Health        health.Handler
	Storefront    *gateway.Handler
	Webhook       *gateway.Webhook
	WebhookLimit  int64
	Settings      *settings.Handler
	Admin         auth.Middleware
	CheckoutLimit ratelimit.Handler
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if d.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if d.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.Metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(d.AllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(security.Headers{EnableHSTS: true}.Middleware)

	if d.Metrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}
	if d.EnablePprof {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), d.PprofUser, d.PprofPass))
	}

	r.Get("/health/live", d.Health.Live)
	r.Get("/health/ready", d.Health.Ready)

	webhookLimit := security.BodyLimit{Max: d.WebhookLimit}.Middleware
	r.With(webhookLimit).Post("/wc-api/fincra_webhook", d.Webhook.Handle)
	r.With(security.Headers{NoStore: true}.Middleware).Get("/checkout/order-received/{orderId}", d.Storefront.OrderReceived)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/payment-methods", d.Storefront.PaymentMethods)
		v.With(d.CheckoutLimit.Middleware).Post("/checkout/{orderId}/fincra", d.Storefront.Checkout)
		v.With(webhookLimit).Post("/webhooks/fincra", d.Webhook.Handle)

		v.Route("/admin/gateway/fincra", func(admin chi.Router) {
			admin.Use(d.Admin.RequireAdmin)
			admin.Get("/", d.Settings.Get)
			admin.Put("/", d.Settings.Put)
		})
	})
	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
