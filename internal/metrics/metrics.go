package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Triage outcomes.
const (
	OutcomeModel        = "model"
	OutcomeFallback     = "fallback"
	OutcomeDisconnected = "disconnected"
	OutcomeRejected     = "rejected"
)

var (
	TriageRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "madipath_triage_requests_total",
			Help: "Total number of triage requests by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	TriageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "madipath_triage_duration_seconds",
			Help:    "Duration of triage requests in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"provider"},
	)

	EmergencyEscalations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "madipath_emergency_escalations_total",
			Help: "Fallback assessments escalated to High risk by an emergency keyword",
		},
	)

	ConnectionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "madipath_connection_state",
			Help: "1 for the current connection gate state, 0 otherwise",
		},
		[]string{"state"},
	)

	ConcurrentRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "madipath_concurrent_submissions_rejected_total",
			Help: "Submissions rejected because one was already pending for the same session",
		},
		[]string{"surface"},
	)
)

// ObserveTriage records one finished triage request.
func ObserveTriage(provider, outcome string, elapsed time.Duration) {
	TriageRequests.WithLabelValues(provider, outcome).Inc()
	TriageDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// SetConnectionState marks state as the only active gate state.
func SetConnectionState(state string, all ...string) {
	for _, s := range all {
		ConnectionState.WithLabelValues(s).Set(0)
	}
	ConnectionState.WithLabelValues(state).Set(1)
}
