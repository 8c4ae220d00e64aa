// Copyright 2024 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package partition

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	partitionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pipeplan",
			Subsystem: "partition",
			Name:      "run_total",
			Help:      "The total number of partition runs",
		}, []string{"strategy", "result"})
	fallbackCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pipeplan",
			Subsystem: "partition",
			Name:      "fallback_total",
			Help:      "The total number of fallbacks from the external solver to the heuristic",
		}, []string{"reason"})
	cacheCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pipeplan",
			Subsystem: "partition",
			Name:      "cache_total",
			Help:      "The total number of partition cache lookups",
		}, []string{"result"})
	cutWeightHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pipeplan",
			Subsystem: "partition",
			Name:      "cut_weight",
			Help:      "Cut weight of the produced partitions",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 24),
		})
	refineMovesHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pipeplan",
			Subsystem: "partition",
			Name:      "refine_moves",
			Help:      "Number of nodes moved by the local search",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 16),
		})
	durationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pipeplan",
			Subsystem: "partition",
			Name:      "duration_seconds",
			Help:      "Bucketed histogram of partition duration",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 20),
		}, []string{"strategy"})
)

// InitMetrics registers all metrics in this file
func InitMetrics(registry *prometheus.Registry) {
	registry.MustRegister(partitionCounter)
	registry.MustRegister(fallbackCounter)
	registry.MustRegister(cacheCounter)
	registry.MustRegister(cutWeightHistogram)
	registry.MustRegister(refineMovesHistogram)
	registry.MustRegister(durationHistogram)
}
