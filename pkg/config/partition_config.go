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

package config

import (
	"math"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/pipeplan/pkg/partition"
)

const defaultExternalTimeout = partition.DefaultExecTimeout

// PartitionConfig configures the partitioner.
type PartitionConfig struct {
	// Stages is the number of pipeline stages.
	//
	// The default value is 1.
	Stages int `toml:"stages" json:"stages"`
	// Tolerance is the allowed fractional deviation of every stage weight
	// from the ideal total/stages.
	//
	// The default value is 0.1.
	Tolerance float64 `toml:"tolerance" json:"tolerance"`
	// Strategy is "heuristic" or "external".
	Strategy string `toml:"strategy" json:"strategy"`
	Seed     int64  `toml:"seed" json:"seed"`
	// RefinePasses bounds the cut refinement, 0 disables it.
	//
	// The default value is 8.
	RefinePasses int `toml:"refine-passes" json:"refine-passes"`
	// ExternalCommand is run by the external strategy. It reads the graph
	// as JSON on stdin and writes the stage of every node on stdout.
	ExternalCommand string `toml:"external-command" json:"external-command"`
	// ExternalTimeout bounds one run of ExternalCommand.
	//
	// The default value is 30s.
	ExternalTimeout TomlDuration `toml:"external-timeout" json:"external-timeout"`
	// ExternalTries is the number of runs of ExternalCommand before giving
	// up on it.
	//
	// The default value is 1.
	ExternalTries int `toml:"external-tries" json:"external-tries"`
	// CoarsenDepth groups nodes sharing the first CoarsenDepth components of
	// their scope before partitioning, 0 disables coarsening.
	CoarsenDepth int `toml:"coarsen-depth" json:"coarsen-depth"`
	// Devices are assigned to stages in pipeline order when set.
	Devices []string `toml:"devices" json:"devices"`
}

// ValidateAndAdjust verifies that each parameter is valid.
func (c *PartitionConfig) ValidateAndAdjust() error {
	if c.Stages < 1 {
		return invalid("partition.stages must be at least 1, got %d", c.Stages)
	}
	if c.Tolerance < 0 || math.IsNaN(c.Tolerance) || math.IsInf(c.Tolerance, 0) {
		return invalid("partition.tolerance must be a non-negative number, got %v", c.Tolerance)
	}
	if c.Strategy == "" {
		c.Strategy = string(partition.StrategyHeuristic)
	}
	strategy, err := partition.ParseStrategy(c.Strategy)
	if err != nil {
		return errors.Trace(err)
	}
	c.Strategy = string(strategy)
	if strategy == partition.StrategyExternal && c.ExternalCommand == "" {
		return invalid("partition.external-command is required by the external strategy")
	}
	if c.RefinePasses < 0 {
		return invalid("partition.refine-passes must not be negative, got %d", c.RefinePasses)
	}
	if c.ExternalTimeout <= 0 {
		c.ExternalTimeout = TomlDuration(defaultExternalTimeout)
	}
	if c.ExternalTries < 0 {
		return invalid("partition.external-tries must not be negative, got %d", c.ExternalTries)
	}
	if c.ExternalTries == 0 {
		c.ExternalTries = 1
	}
	if c.CoarsenDepth < 0 {
		return invalid("partition.coarsen-depth must not be negative, got %d", c.CoarsenDepth)
	}
	if len(c.Devices) > 0 && len(c.Devices) < c.Stages {
		return invalid("partition.devices lists %d devices for %d stages", len(c.Devices), c.Stages)
	}
	return nil
}

// Options converts the section into partitioner options.
func (c *PartitionConfig) Options() partition.Options {
	return partition.Options{
		Stages:       c.Stages,
		Tolerance:    c.Tolerance,
		Strategy:     partition.Strategy(c.Strategy),
		Seed:         c.Seed,
		RefinePasses: c.RefinePasses,
	}
}

// Timeout returns ExternalTimeout as a time.Duration.
func (c *PartitionConfig) Timeout() time.Duration {
	return time.Duration(c.ExternalTimeout)
}
