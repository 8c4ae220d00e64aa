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

package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	scheduleCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pipeplan",
			Subsystem: "scheduler",
			Name:      "schedule_total",
			Help:      "Total number of schedules produced, by policy and path.",
		}, []string{"policy", "path"})

	makespanHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pipeplan",
			Subsystem: "scheduler",
			Name:      "makespan_steps",
			Help:      "Makespan of produced schedules in steps.",
			Buckets:   prometheus.ExponentialBuckets(2, 2, 12),
		}, []string{"policy"})

	bubbleRatioHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pipeplan",
			Subsystem: "scheduler",
			Name:      "bubble_ratio",
			Help:      "Fraction of idle stage steps in produced schedules.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}, []string{"policy"})
)

// InitMetrics registers all metrics in this package.
func InitMetrics(registry *prometheus.Registry) {
	registry.MustRegister(scheduleCounter)
	registry.MustRegister(makespanHistogram)
	registry.MustRegister(bubbleRatioHistogram)
}
