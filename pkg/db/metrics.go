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

package db

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	dbWriteBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pipeplan",
		Subsystem: "db",
		Name:      "write_bytes_total",
		Help:      "The total number of write bytes by the db",
	}, []string{"backend"})

	dbReadBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pipeplan",
		Subsystem: "db",
		Name:      "read_bytes_total",
		Help:      "The total number of read bytes by the db",
	}, []string{"backend"})

	dbOperationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pipeplan",
		Subsystem: "db",
		Name:      "operation_total",
		Help:      "The total number of db operations",
	}, []string{"backend", "op"})
)

// InitMetrics registers all metrics in this file
func InitMetrics(registry *prometheus.Registry) {
	registry.MustRegister(dbWriteBytes)
	registry.MustRegister(dbReadBytes)
	registry.MustRegister(dbOperationCounter)
}
