package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		verifyRequests,
		verifyDuration,
		gatewayLookups,
	)
}

var (
	// Count of verify calls grouped by result and bounded reason.
	// result: ok|rejected|failed
	// reason: mapped status when ok; bad_body|missing_payment_id|gateway|configuration|internal otherwise
	verifyRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_verify_requests_total",
			Help: "Count of /api/v1/payment/verify calls by result and reason.",
		},
		[]string{"result", "reason"},
	)

	// Latency of the verify handler grouped by result.
	verifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_verify_duration_seconds",
			Help:    "Duration of /api/v1/payment/verify handler in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"result"},
	)

	// Gateway payment lookups by mapped local status (completed/failed/pending) or "error".
	gatewayLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_payment_lookups_total",
			Help: "Mercado Pago payment lookups by mapped outcome.",
		},
		[]string{"status"},
	)
)

func VerifyRequest(result, reason string) {
	verifyRequests.WithLabelValues(result, reason).Inc()
}

func ObserveVerifyDuration(result string, seconds float64) {
	verifyDuration.WithLabelValues(result).Observe(seconds)
}

func GatewayLookup(status string) {
	gatewayLookups.WithLabelValues(status).Inc()
}
