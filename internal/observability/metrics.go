package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the business counters exported on /metrics.
type Metrics struct {
	OrdersCreated      prometheus.Counter
	PaymentTransitions *prometheus.CounterVec
	PaymentIntents     *prometheus.CounterVec
	WebhookOutcomes    *prometheus.CounterVec
	GatewayDuration    *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderpay_orders_created_total",
			Help: "Total number of orders created",
		}),
		PaymentTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderpay_payment_transitions_total",
			Help: "Order payment status transitions by resulting status",
		}, []string{"status"}),
		PaymentIntents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderpay_payment_intents_total",
			Help: "Payment intent requests by provider and result",
		}, []string{"provider", "result"}),
		WebhookOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderpay_webhook_outcomes_total",
			Help: "Webhook deliveries by provider and outcome",
		}, []string{"provider", "outcome"}),
		GatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orderpay_gateway_request_duration_seconds",
			Help:    "Outbound payment gateway call duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.OrdersCreated,
			m.PaymentTransitions,
			m.PaymentIntents,
			m.WebhookOutcomes,
			m.GatewayDuration,
		)
	}
	return m
}

// NewNopMetrics returns unregistered collectors for tests.
func NewNopMetrics() *Metrics {
	return NewMetrics(nil)
}
