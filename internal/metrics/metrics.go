package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Expiry lifecycle
	ExpiryScheduledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tempaccess_expiry_scheduled_total",
			Help: "Total number of expiry declarations persisted and scheduled",
		},
	)

	ExpiryClearedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tempaccess_expiry_cleared_total",
			Help: "Total number of expiry declarations cleared (permanent or protected accounts)",
		},
	)

	EventsCancelledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tempaccess_expiry_events_cancelled_total",
			Help: "Total number of pending fire-events cancelled before rescheduling",
		},
	)

	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempaccess_transitions_total",
			Help: "Fire-event handler outcomes",
		},
		[]string{"outcome"}, // malformed, not_found, protected, stale, committed, failed
	)

	// Dispatcher
	DispatchClaimedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempaccess_dispatch_claimed_total",
			Help: "Total number of events claimed for delivery by kind",
		},
		[]string{"kind"},
	)

	DispatchRequeuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempaccess_dispatch_requeued_total",
			Help: "Total number of unacknowledged events re-delivered by kind",
		},
		[]string{"kind"},
	)
)

// RecordScheduled records a persisted and scheduled expiry.
func RecordScheduled() {
	ExpiryScheduledTotal.Inc()
}

// RecordCleared records a cleared expiry.
func RecordCleared() {
	ExpiryClearedTotal.Inc()
}

// RecordCancelled records cancelled fire-events.
func RecordCancelled(n int) {
	if n > 0 {
		EventsCancelledTotal.Add(float64(n))
	}
}

// RecordTransition records a fire-event handler outcome.
func RecordTransition(outcome string) {
	TransitionsTotal.WithLabelValues(outcome).Inc()
}

// RecordClaimed records events claimed by the dispatcher.
func RecordClaimed(kind string, n int) {
	DispatchClaimedTotal.WithLabelValues(kind).Add(float64(n))
}

// RecordRequeued records stuck events made due again.
func RecordRequeued(kind string, n int) {
	DispatchRequeuedTotal.WithLabelValues(kind).Add(float64(n))
}
