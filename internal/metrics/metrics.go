package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration tracks request latency per route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "givepool_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	// AuthzDecisions counts access-control outcomes. The reason label keeps
	// the denial taxonomy visible internally even though the API collapses
	// membership denials into one status code.
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "givepool_authz_decisions_total",
			Help: "Access control decisions by outcome",
		},
		[]string{"outcome"},
	)

	// ReconcilePasses counts milestone reconciliation passes per result.
	ReconcilePasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "givepool_reconcile_passes_total",
			Help: "Milestone reconciliation passes by result",
		},
		[]string{"result"},
	)

	// MilestoneTransitions counts applied achieved-flag flips by direction.
	MilestoneTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "givepool_milestone_transitions_total",
			Help: "Milestone achieved transitions by direction",
		},
		[]string{"direction"},
	)

	// DonationsSettled counts donation status settlements seen by the webhook.
	DonationsSettled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "givepool_donations_settled_total",
			Help: "Donation status settlements by resulting status",
		},
		[]string{"status"},
	)
)

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

// RecordAuthzDecision records one engine decision outcome.
func RecordAuthzDecision(outcome string) {
	AuthzDecisions.WithLabelValues(outcome).Inc()
}

// RecordReconcilePass records the result of one reconciliation pass.
func RecordReconcilePass(result string) {
	ReconcilePasses.WithLabelValues(result).Inc()
}

// RecordMilestoneTransition records one applied transition.
func RecordMilestoneTransition(achieved bool) {
	direction := "achieved"
	if !achieved {
		direction = "reversed"
	}
	MilestoneTransitions.WithLabelValues(direction).Inc()
}

// RecordDonationSettled records one donation settlement.
func RecordDonationSettled(status string) {
	DonationsSettled.WithLabelValues(status).Inc()
}
