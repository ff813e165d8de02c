// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package cache

import "github.com/prometheus/client_golang/prometheus"

const (
	resultHit    = "hit"
	resultMiss   = "miss"
	resultShared = "shared"
)

var requests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quill_cache_requests_total",
		Help: "Cache lookups by result",
	},
	[]string{"result"},
)

// RegisterMetrics registers cache metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(requests)
}
