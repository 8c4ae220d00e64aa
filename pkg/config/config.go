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
	"fmt"

	"github.com/goccy/go-json"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/pingcap/pipeplan/pkg/logutil"
	"go.uber.org/zap"
)

// PlannerConfig is the configuration of the pipeplan command line tool.
type PlannerConfig struct {
	Log       *logutil.Config  `toml:"log" json:"log"`
	Partition *PartitionConfig `toml:"partition" json:"partition"`
	Schedule  *ScheduleConfig  `toml:"schedule" json:"schedule"`
	Cache     *CacheConfig     `toml:"cache" json:"cache"`
	Output    *OutputConfig    `toml:"output" json:"output"`
	Compare   *CompareConfig   `toml:"compare" json:"compare"`
}

// read only
var defaultPlannerConfig = &PlannerConfig{
	Log: logutil.NewDefaultConfig(),
	Partition: &PartitionConfig{
		Stages:          1,
		Tolerance:       0.1,
		Strategy:        "heuristic",
		RefinePasses:    8,
		ExternalTimeout: TomlDuration(defaultExternalTimeout),
		ExternalTries:   1,
	},
	Schedule: &ScheduleConfig{
		MicroBatches: 4,
		Policy:       "one_forward_one_backward",
	},
	Cache: &CacheConfig{
		Backend:     CacheBackendMemory,
		Size:        128,
		Compression: "snappy",
	},
	Output: &OutputConfig{
		Format:      "json",
		Compression: "none",
	},
	Compare: &CompareConfig{
		Concurrency: 4,
	},
}

// NewDefaultConfig returns a copy of the default configuration.
func NewDefaultConfig() *PlannerConfig {
	return defaultPlannerConfig.Clone()
}

// Clone returns a deep copy of the configuration.
func (c *PlannerConfig) Clone() *PlannerConfig {
	data, err := json.Marshal(c)
	if err != nil {
		log.Panic("failed to marshal planner config", zap.Error(err))
	}
	clone := new(PlannerConfig)
	if err := json.Unmarshal(data, clone); err != nil {
		log.Panic("failed to unmarshal planner config", zap.Error(err))
	}
	return clone
}

// ValidateAndAdjust validates every section and fills in defaults for the
// sections and fields left empty.
func (c *PlannerConfig) ValidateAndAdjust() error {
	if c.Log == nil {
		c.Log = logutil.NewDefaultConfig()
	}
	c.Log.Adjust()
	if c.Partition == nil {
		c.Partition = defaultPlannerConfig.Clone().Partition
	}
	if c.Schedule == nil {
		c.Schedule = defaultPlannerConfig.Clone().Schedule
	}
	if c.Cache == nil {
		c.Cache = defaultPlannerConfig.Clone().Cache
	}
	if c.Output == nil {
		c.Output = defaultPlannerConfig.Clone().Output
	}
	if c.Compare == nil {
		c.Compare = defaultPlannerConfig.Clone().Compare
	}
	if err := c.Partition.ValidateAndAdjust(); err != nil {
		return errors.Trace(err)
	}
	if err := c.Schedule.ValidateAndAdjust(); err != nil {
		return errors.Trace(err)
	}
	if err := c.Cache.ValidateAndAdjust(); err != nil {
		return errors.Trace(err)
	}
	if err := c.Output.ValidateAndAdjust(); err != nil {
		return errors.Trace(err)
	}
	return c.Compare.ValidateAndAdjust()
}

func invalid(format string, args ...interface{}) error {
	return cerror.ErrInvalidConfig.GenWithStackByArgs(fmt.Sprintf(format, args...))
}
