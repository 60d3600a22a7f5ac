package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		provisionSteps,
		emailDispatches,
	)
}

var (
	// Provisioning step outcomes.
	// step: resolve_context|resolve_buyer|create_order|grant_access|send_email
	// outcome: ok|skipped|error
	provisionSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioning_steps_total",
			Help: "Post-approval provisioning step outcomes by step and outcome.",
		},
		[]string{"step", "outcome"},
	)

	// Delivery email attempts. status: sent|error|no_recipient
	emailDispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_emails_total",
			Help: "Transactional delivery email attempts by status.",
		},
		[]string{"status"},
	)
)

func ProvisionStep(step, outcome string) {
	provisionSteps.WithLabelValues(step, outcome).Inc()
}

func EmailDispatch(status string) {
	emailDispatches.WithLabelValues(status).Inc()
}
