package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Domain counters for the payment funnel. Registered on the default
// registry so they ride the same /metrics listener as the HTTP metrics.
var (
	TransactionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "pixpay",
		Name:      "transactions_created_total",
		Help:      "PIX charge creations, partitioned by gateway and outcome.",
	}, []string{"provider", "outcome"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "pixpay",
		Name:      "webhook_events_total",
		Help:      "Inbound gateway webhook deliveries, partitioned by gateway and canonical status.",
	}, []string{"provider", "status"})

	ConversionsForwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "pixpay",
		Name:      "conversions_forwarded_total",
		Help:      "Conversion forwards to the attribution sink, partitioned by outcome.",
	}, []string{"outcome"})
)
