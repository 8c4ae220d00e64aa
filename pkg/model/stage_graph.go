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

// Stage is a group of nodes executed as one pipeline unit.
type Stage struct {
	Index int `json:"index" msgpack:"index"`
	// Rank is the position of the stage in a topological order of the stage
	// graph. It is not necessarily equal to Index.
	Rank   int     `json:"rank" msgpack:"rank"`
	Weight float64 `json:"weight" msgpack:"weight"`
	// Nodes are sorted.
	Nodes []string `json:"nodes" msgpack:"nodes"`
	// BoundaryInputs are the nodes of the stage that have no input at all
	// or consume the output of another stage, sorted.
	BoundaryInputs []string `json:"boundary_inputs,omitempty" msgpack:"boundary_inputs,omitempty"`
	// Device is set once the stage has been placed.
	Device string `json:"device,omitempty" msgpack:"device,omitempty"`
}

// StageEdge is the aggregated dependency between two different stages.
type StageEdge struct {
	Src    int     `json:"src" msgpack:"src"`
	Dst    int     `json:"dst" msgpack:"dst"`
	Weight float64 `json:"weight" msgpack:"weight"`
}

// StageGraph is the condensation of a partitioned graph. Stages are indexed
// by stage index and edges are sorted by (Src, Dst).
type StageGraph struct {
	Stages []Stage     `json:"stages" msgpack:"stages"`
	Edges  []StageEdge `json:"edges" msgpack:"edges"`
}

// NumStages returns the number of stages.
func (sg *StageGraph) NumStages() int {
	return len(sg.Stages)
}

// Predecessors returns, for every stage, the sorted indices of the stages it
// depends on. Edges with an endpoint out of range are ignored.
func (sg *StageGraph) Predecessors() [][]int {
	preds := make([][]int, len(sg.Stages))
	for _, e := range sg.Edges {
		if !sg.ValidStage(e.Src) || !sg.ValidStage(e.Dst) {
			continue
		}
		preds[e.Dst] = append(preds[e.Dst], e.Src)
	}
	for _, p := range preds {
		sort.Ints(p)
	}
	return preds
}

// Successors returns, for every stage, the sorted indices of the stages
// depending on it. Edges with an endpoint out of range are ignored.
func (sg *StageGraph) Successors() [][]int {
	succs := make([][]int, len(sg.Stages))
	for _, e := range sg.Edges {
		if !sg.ValidStage(e.Src) || !sg.ValidStage(e.Dst) {
			continue
		}
		succs[e.Src] = append(succs[e.Src], e.Dst)
	}
	for _, s := range succs {
		sort.Ints(s)
	}
	return succs
}

// RankOrder returns stage indices ordered by rank.
func (sg *StageGraph) RankOrder() []int {
	order := make([]int, len(sg.Stages))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return sg.Stages[order[i]].Rank < sg.Stages[order[j]].Rank
	})
	return order
}

// CutWeight returns the total weight of the stage edges.
func (sg *StageGraph) CutWeight() float64 {
	var w float64
	for _, e := range sg.Edges {
		w += e.Weight
	}
	return w
}

// ValidStage returns whether s is a stage index of the graph.
func (sg *StageGraph) ValidStage(s int) bool {
	return s >= 0 && s < len(sg.Stages)
}

// Check verifies a stage graph that did not come from the builder, such as
// one read from a file: at least one stage, Stages[i].Index == i, edge
// endpoints in range, no self edges and no cycle. Every failure is
// ErrInvalidStageGraph.
func (sg *StageGraph) Check() error {
	if len(sg.Stages) == 0 {
		return cerror.ErrInvalidStageGraph.GenWithStackByArgs("no stages")
	}
	for i, st := range sg.Stages {
		if st.Index != i {
			return cerror.ErrInvalidStageGraph.GenWithStackByArgs(
				fmt.Sprintf("stage at position %d has index %d", i, st.Index))
		}
	}
	for _, e := range sg.Edges {
		if !sg.ValidStage(e.Src) || !sg.ValidStage(e.Dst) {
			return cerror.ErrInvalidStageGraph.GenWithStackByArgs(
				fmt.Sprintf("edge %d -> %d references a stage out of [0, %d)", e.Src, e.Dst, len(sg.Stages)))
		}
		if e.Src == e.Dst {
			return cerror.ErrInvalidStageGraph.GenWithStackByArgs(
				fmt.Sprintf("edge %d -> %d is a self edge", e.Src, e.Dst))
		}
	}

	succs := sg.Successors()
	indegree := make([]int, len(sg.Stages))
	for _, ss := range succs {
		for _, d := range ss {
			indegree[d]++
		}
	}
	var queue []int
	for s, d := range indegree {
		if d == 0 {
			queue = append(queue, s)
		}
	}
	visited := 0
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		visited++
		for _, d := range succs[s] {
			indegree[d]--
			if indegree[d] == 0 {
				queue = append(queue, d)
			}
		}
	}
	if visited == len(sg.Stages) {
		return nil
	}
	var left []string
	for s, d := range indegree {
		if d > 0 {
			left = append(left, fmt.Sprint(s))
		}
	}
	return cerror.ErrInvalidStageGraph.GenWithStackByArgs(
		"cycle through stages " + strings.Join(left, ", "))
}
