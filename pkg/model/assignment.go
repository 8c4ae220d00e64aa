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
	"sort"
)

// Assignment maps every node of a graph to a stage index in [0, Stages).
type Assignment struct {
	Stages    int            `json:"stages" msgpack:"stages"`
	NodeStage map[string]int `json:"node_stage" msgpack:"node_stage"`
}

// NewAssignment creates an empty assignment into k stages.
func NewAssignment(k int) *Assignment {
	return &Assignment{
		Stages:    k,
		NodeStage: make(map[string]int),
	}
}

// Set assigns node id to stage.
func (a *Assignment) Set(id string, stage int) {
	a.NodeStage[id] = stage
}

// Stage returns the stage of node id.
func (a *Assignment) Stage(id string) (int, bool) {
	s, ok := a.NodeStage[id]
	return s, ok
}

// Len returns the number of assigned nodes.
func (a *Assignment) Len() int {
	return len(a.NodeStage)
}

// StageNodes returns the node ids of every stage, each list sorted. Nodes
// assigned outside [0, Stages) are ignored.
func (a *Assignment) StageNodes() [][]string {
	out := make([][]string, a.Stages)
	for id, s := range a.NodeStage {
		if s < 0 || s >= a.Stages {
			continue
		}
		out[s] = append(out[s], id)
	}
	for _, ids := range out {
		sort.Strings(ids)
	}
	return out
}

// Clone returns a deep copy of the assignment.
func (a *Assignment) Clone() *Assignment {
	cp := NewAssignment(a.Stages)
	for id, s := range a.NodeStage {
		cp.NodeStage[id] = s
	}
	return cp
}

// Equal returns whether both assignments map the same nodes to the same
// stages.
func (a *Assignment) Equal(other *Assignment) bool {
	if a.Stages != other.Stages || len(a.NodeStage) != len(other.NodeStage) {
		return false
	}
	for id, s := range a.NodeStage {
		if os, ok := other.NodeStage[id]; !ok || os != s {
			return false
		}
	}
	return true
}
