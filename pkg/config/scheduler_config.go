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
	"github.com/pingcap/errors"
	"github.com/pingcap/pipeplan/pkg/model"
)

// ScheduleConfig configures the pipeline scheduler.
type ScheduleConfig struct {
	// MicroBatches is the number of micro-batches per training step.
	//
	// The default value is 4.
	MicroBatches int `toml:"micro-batches" json:"micro-batches"`
	// Policy is "fill_drain" or "one_forward_one_backward", "1f1b" is
	// accepted as well.
	Policy string `toml:"policy" json:"policy"`
}

// ValidateAndAdjust verifies that each parameter is valid.
func (c *ScheduleConfig) ValidateAndAdjust() error {
	if c.MicroBatches < 1 {
		return invalid("schedule.micro-batches must be at least 1, got %d", c.MicroBatches)
	}
	if c.Policy == "" {
		c.Policy = string(model.PolicyOneFOneB)
	}
	policy, err := model.ParsePolicy(c.Policy)
	if err != nil {
		return errors.Trace(err)
	}
	c.Policy = string(policy)
	return nil
}
