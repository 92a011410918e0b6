package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CheckoutValidationTotal counts wizard step validations by outcome.
	CheckoutValidationTotal *prometheus.CounterVec
	// OrderSubmissionTotal counts order processor submissions by outcome.
	OrderSubmissionTotal *prometheus.CounterVec
	// OrderSubmissionLatency records processor round trips in milliseconds.
	OrderSubmissionLatency prometheus.Histogram
	// CardNetworkTotal counts validated payment cards per network.
	CardNetworkTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers checkout collectors.
// Later calls are no-ops.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CheckoutValidationTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_validation_total",
			Help:      "Checkout step validations by step and result.",
		}, []string{"step", "result"}))
		OrderSubmissionTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_submission_total",
			Help:      "Order submissions to the processor by result.",
		}, []string{"result"}))
		OrderSubmissionLatency = registerOrReuse(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_submission_duration_ms",
			Help:      "Order processor round trip latency in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}))
		CardNetworkTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "card_network_total",
			Help:      "Validated payment cards by network.",
		}, []string{"network"}))
	})
}

// ObserveValidation records a step validation; nil collectors are skipped so
// packages stay usable before registration.
func ObserveValidation(step string, ok bool) {
	if CheckoutValidationTotal == nil {
		return
	}
	CheckoutValidationTotal.WithLabelValues(step, resultLabel(ok)).Inc()
}

// ObserveSubmission records an order submission outcome and its latency.
func ObserveSubmission(result string, millis float64) {
	if OrderSubmissionTotal != nil {
		OrderSubmissionTotal.WithLabelValues(result).Inc()
	}
	if OrderSubmissionLatency != nil {
		OrderSubmissionLatency.Observe(millis)
	}
}

// ObserveCardNetwork records the network of a card that passed validation.
func ObserveCardNetwork(network string) {
	if CardNetworkTotal == nil {
		return
	}
	if network == "" {
		network = "unknown"
	}
	CardNetworkTotal.WithLabelValues(network).Inc()
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "invalid"
}
