package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CheckoutTotal counts checkout attempts routed through the Fincra gateway.
	CheckoutTotal *prometheus.CounterVec
	// WebhookTotal counts inbound Fincra webhook deliveries by event and outcome.
	WebhookTotal *prometheus.CounterVec
	// FincraRequestDuration records the latency of outbound checkout calls in milliseconds.
	FincraRequestDuration *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers gateway-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CheckoutTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fincra_checkout_total",
			Help:      "Count of Fincra checkout attempts by mode and result.",
		}, []string{"mode", "result"})
		WebhookTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fincra_webhook_total",
			Help:      "Count of processed Fincra webhooks by event and result.",
		}, []string{"event", "result"})
		FincraRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fincra_request_duration_ms",
			Help:      "Latency of outbound Fincra checkout requests in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 45000},
		}, []string{"mode", "outcome"})

		registerOrReuse(reg, CheckoutTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutTotal = v
			}
		})
		registerOrReuse(reg, WebhookTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				WebhookTotal = v
			}
		})
		registerOrReuse(reg, FincraRequestDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				FincraRequestDuration = v
			}
		})
	})
}

// ObserveCheckout increments the checkout counter when metrics are registered.
func ObserveCheckout(mode, result string) {
	if CheckoutTotal != nil {
		CheckoutTotal.WithLabelValues(Label(mode), Label(result)).Inc()
	}
}

// ObserveWebhook increments the webhook counter when metrics are registered.
func ObserveWebhook(event, result string) {
	if WebhookTotal != nil {
		WebhookTotal.WithLabelValues(Label(event), Label(result)).Inc()
	}
}

func registerOrReuse(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
}
