// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package content

import "github.com/prometheus/client_golang/prometheus"

// Result labels for integrity operations.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// IntegrityOperations counts Manager operations by name and result.
var IntegrityOperations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quill_integrity_operations_total",
		Help: "Total number of relationship integrity operations",
	},
	[]string{"operation", "result"},
)

// CascadeLikes counts likes removed while deleting a post.
var CascadeLikes = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "quill_integrity_cascade_likes_total",
	Help: "Total number of likes removed by post delete cascades",
})

// ConflictRetries counts version-conflict retries of single document updates.
var ConflictRetries = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "quill_integrity_conflict_retries_total",
	Help: "Total number of document updates retried after a version conflict",
})

// MissingReferents counts dangling ids skipped during delete cascades.
var MissingReferents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quill_integrity_missing_referents_total",
		Help: "Total number of dangling references skipped during cascades",
	},
	[]string{"collection"},
)

// RegisterMetrics registers content metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(IntegrityOperations)
	reg.MustRegister(CascadeLikes)
	reg.MustRegister(ConflictRetries)
	reg.MustRegister(MissingReferents)
}

func recordOperation(operation string, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	IntegrityOperations.WithLabelValues(operation, result).Inc()
}
