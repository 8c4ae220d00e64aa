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

package model

import (
	"fmt"
	"sort"
	"strings"

	cerror "github.com/pingcap/pipeplan/pkg/errors"
)

// Direction is the pass a unit of work belongs to.
type Direction string

// Directions
const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// Policy selects how the scheduler orders units of work.
type Policy string

// Policies
const (
	// PolicyFillDrain runs every forward before any backward.
	PolicyFillDrain Policy = "fill_drain"
	// PolicyOneFOneB alternates forwards and backwards once the pipeline
	// is full.
	PolicyOneFOneB Policy = "one_forward_one_backward"
)

// ParsePolicy parses a policy name, "1f1b" is accepted as an alias of
// one_forward_one_backward.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(PolicyFillDrain), "fill-drain", "gpipe":
		return PolicyFillDrain, nil
	case string(PolicyOneFOneB), "one-forward-one-backward", "1f1b":
		return PolicyOneFOneB, nil
	default:
		return "", cerror.ErrUnknownPolicy.GenWithStackByArgs(s)
	}
}

// Unit identifies one piece of work of the pipeline.
type Unit struct {
	Stage      int       `json:"stage" msgpack:"stage"`
	MicroBatch int       `json:"micro_batch" msgpack:"micro_batch"`
	Direction  Direction `json:"direction" msgpack:"direction"`
}

// String implements fmt.Stringer.
func (u Unit) String() string {
	d := "F"
	if u.Direction == Backward {
		d = "B"
	}
	return fmt.Sprintf("%s(stage=%d,mb=%d)", d, u.Stage, u.MicroBatch)
}

// Slot places a unit at a time step.
type Slot struct {
	Step int `json:"step" msgpack:"step"`
	Unit `msgpack:",inline"`
}

// StageStats summarizes the utilization of one stage.
type StageStats struct {
	Stage int `json:"stage" msgpack:"stage"`
	Busy  int `json:"busy" msgpack:"busy"`
	Idle  int `json:"idle" msgpack:"idle"`
}

// Schedule is a time indexed plan of units. Slots are sorted by step and
// then by stage.
type Schedule struct {
	Stages       int          `json:"stages" msgpack:"stages"`
	MicroBatches int          `json:"micro_batches" msgpack:"micro_batches"`
	Policy       Policy       `json:"policy" msgpack:"policy"`
	Slots        []Slot       `json:"slots" msgpack:"slots"`
	Makespan     int          `json:"makespan" msgpack:"makespan"`
	StageStats   []StageStats `json:"stage_stats,omitempty" msgpack:"stage_stats,omitempty"`
	BubbleRatio  float64      `json:"bubble_ratio" msgpack:"bubble_ratio"`
}

// SortSlots orders the slots by (step, stage, direction, micro-batch).
func SortSlots(slots []Slot) {
	sort.Slice(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.Step != b.Step {
			return a.Step < b.Step
		}
		if a.Stage != b.Stage {
			return a.Stage < b.Stage
		}
		if a.Direction != b.Direction {
			return a.Direction == Forward
		}
		return a.MicroBatch < b.MicroBatch
	})
}

// ComputeMakespan returns the number of steps from step 0 to the end of the
// last slot.
func ComputeMakespan(slots []Slot) int {
	makespan := 0
	for _, s := range slots {
		if s.Step+1 > makespan {
			makespan = s.Step + 1
		}
	}
	return makespan
}

// Finalize sorts the slots and fills in the makespan and the utilization
// statistics of a schedule over the given number of stages.
func (s *Schedule) Finalize() {
	SortSlots(s.Slots)
	s.Makespan = ComputeMakespan(s.Slots)
	s.StageStats = make([]StageStats, s.Stages)
	for i := range s.StageStats {
		s.StageStats[i].Stage = i
	}
	busy := 0
	for _, slot := range s.Slots {
		if slot.Stage >= 0 && slot.Stage < s.Stages {
			s.StageStats[slot.Stage].Busy++
			busy++
		}
	}
	for i := range s.StageStats {
		s.StageStats[i].Idle = s.Makespan - s.StageStats[i].Busy
	}
	s.BubbleRatio = 0
	if total := s.Makespan * s.Stages; total > 0 {
		s.BubbleRatio = float64(total-busy) / float64(total)
	}
}
