// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package auth

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/quillhq/quill/pkg/errutil"
)

// Outcomes counts authentication attempts by operation and outcome.
var Outcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quill_auth_outcomes_total",
		Help: "Authentication operations by outcome",
	},
	[]string{"operation", "outcome"},
)

// RegisterMetrics registers the auth collectors with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Outcomes)
}

func recordOutcome(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(errutil.KindOf(err))
	}
	Outcomes.WithLabelValues(operation, outcome).Inc()
}
