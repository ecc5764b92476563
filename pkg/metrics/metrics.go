package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EntityCreatedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entity_created_count",
			Help: "Entities created, by kind",
		},
		[]string{"kind"},
	)

	EntityDeletedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entity_deleted_count",
			Help: "Entities deleted, by kind",
		},
		[]string{"kind"},
	)

	TaskTransitionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_transition_count",
			Help: "Accepted task status transitions, by edge",
		},
		[]string{"from", "to"},
	)

	TaskTransitionRejectedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_transition_rejected_count",
			Help: "Rejected task status transitions, by edge",
		},
		[]string{"from", "to"},
	)

	AuthorizationDeniedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authorization_denied_count",
			Help: "Mutations denied by the authorization policy, by operation",
		},
		[]string{"operation"},
	)

	LoginFailureCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "login_failure_count",
			Help: "Failed authentication attempts",
		},
	)
)

// IncrementEntityCreated records a successful entity creation.
func IncrementEntityCreated(kind string) {
	EntityCreatedCount.WithLabelValues(kind).Inc()
}

// IncrementEntityDeleted records a successful entity deletion.
func IncrementEntityDeleted(kind string) {
	EntityDeletedCount.WithLabelValues(kind).Inc()
}

// IncrementTaskTransition records an accepted status transition.
func IncrementTaskTransition(from, to string) {
	TaskTransitionCount.WithLabelValues(from, to).Inc()
}

// IncrementTaskTransitionRejected records a rejected status transition.
func IncrementTaskTransitionRejected(from, to string) {
	TaskTransitionRejectedCount.WithLabelValues(from, to).Inc()
}

// IncrementAuthorizationDenied records a policy denial.
func IncrementAuthorizationDenied(operation string) {
	AuthorizationDeniedCount.WithLabelValues(operation).Inc()
}

// IncrementLoginFailure records a failed authentication attempt.
func IncrementLoginFailure() {
	LoginFailureCount.Inc()
}
