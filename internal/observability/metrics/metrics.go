package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	PaymentEvents    *prometheus.CounterVec
	WebhookRejected  prometheus.Counter
	DeletionBatches  *prometheus.CounterVec
	DeletedRecords   *prometheus.CounterVec
	CounterDeltas    prometheus.Counter
	RateLimitDenied  prometheus.Counter
	GatewayRequests  *prometheus.CounterVec
}

// New registers the instruments with the given registerer. Passing nil
// uses the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		PaymentEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "akada_payment_events_total",
			Help: "Payment status applications by channel and resulting status.",
		}, []string{"channel", "status"}),
		WebhookRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "akada_webhook_rejected_total",
			Help: "Webhook deliveries rejected for signature mismatch.",
		}),
		DeletionBatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "akada_deletion_batches_total",
			Help: "Delete batches committed per collection.",
		}, []string{"collection"}),
		DeletedRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "akada_deleted_records_total",
			Help: "Records removed per collection during tenant deletion.",
		}, []string{"collection"}),
		CounterDeltas: factory.NewCounter(prometheus.CounterOpts{
			Name: "akada_usage_counter_deltas_total",
			Help: "Usage counter read-modify-write transactions applied.",
		}),
		RateLimitDenied: factory.NewCounter(prometheus.CounterOpts{
			Name: "akada_rate_limit_denied_total",
			Help: "Requests denied by the rate limiter.",
		}),
		GatewayRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "akada_gateway_requests_total",
			Help: "Outbound payment gateway calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}
}
