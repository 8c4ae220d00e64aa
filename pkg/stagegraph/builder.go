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

package stagegraph

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/btree"
	"github.com/pingcap/errors"
	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/pingcap/pipeplan/pkg/graph"
	"github.com/pingcap/pipeplan/pkg/model"
)

// Build condenses g into a stage graph according to a. Stage weights are
// the sums of node weights, cross-stage edge weights are aggregated per
// ordered pair of stages and intra-stage edges are dropped.
//
// The assignment must cover every node of g exactly, use only stages in
// [0, a.Stages) and use every one of them, otherwise ErrInvalidAssignment is
// returned. ErrCyclicStages is returned if the stage graph has a cycle.
func Build(g *graph.Graph, a *model.Assignment) (*model.StageGraph, error) {
	stageOf, err := resolve(g, a)
	if err != nil {
		return nil, errors.Trace(err)
	}

	k := a.Stages
	sg := &model.StageGraph{Stages: make([]model.Stage, k)}
	for s := range sg.Stages {
		sg.Stages[s].Index = s
	}
	for i := 0; i < g.NumNodes(); i++ {
		n := g.Node(i)
		st := &sg.Stages[stageOf[i]]
		st.Weight += n.Weight
		st.Nodes = append(st.Nodes, n.ID)
		if isBoundaryInput(g, stageOf, i) {
			st.BoundaryInputs = append(st.BoundaryInputs, n.ID)
		}
	}

	type pair struct{ src, dst int }
	weights := make(map[pair]float64)
	for j := 0; j < g.NumEdges(); j++ {
		u, v := g.Endpoints(j)
		p := pair{stageOf[u], stageOf[v]}
		if p.src == p.dst {
			continue
		}
		weights[p] += g.Edge(j).Weight
	}
	for p, w := range weights {
		sg.Edges = append(sg.Edges, model.StageEdge{Src: p.src, Dst: p.dst, Weight: w})
	}
	sort.Slice(sg.Edges, func(i, j int) bool {
		if sg.Edges[i].Src != sg.Edges[j].Src {
			return sg.Edges[i].Src < sg.Edges[j].Src
		}
		return sg.Edges[i].Dst < sg.Edges[j].Dst
	})

	if err := assignRanks(sg); err != nil {
		return nil, errors.Trace(err)
	}
	return sg, nil
}

// resolve maps every node index of g to its stage.
func resolve(g *graph.Graph, a *model.Assignment) ([]int, error) {
	if a == nil || a.Stages < 1 {
		return nil, cerror.ErrInvalidAssignment.GenWithStackByArgs("stage count must be at least 1")
	}
	stageOf := make([]int, g.NumNodes())
	used := make([]bool, a.Stages)
	for i := 0; i < g.NumNodes(); i++ {
		id := g.Node(i).ID
		s, ok := a.Stage(id)
		if !ok {
			return nil, cerror.ErrInvalidAssignment.GenWithStackByArgs(
				fmt.Sprintf("node %s is not assigned", id))
		}
		if s < 0 || s >= a.Stages {
			return nil, cerror.ErrInvalidAssignment.GenWithStackByArgs(
				fmt.Sprintf("node %s is assigned to stage %d out of [0, %d)", id, s, a.Stages))
		}
		stageOf[i] = s
		used[s] = true
	}
	if a.Len() != g.NumNodes() {
		var unknown []string
		for id := range a.NodeStage {
			if _, ok := g.NodeIndex(id); !ok {
				unknown = append(unknown, id)
			}
		}
		sort.Strings(unknown)
		return nil, cerror.ErrInvalidAssignment.GenWithStackByArgs(
			fmt.Sprintf("unknown nodes %s", strings.Join(unknown, ",")))
	}
	for s, ok := range used {
		if !ok {
			return nil, cerror.ErrInvalidAssignment.GenWithStackByArgs(
				fmt.Sprintf("stage %d is empty", s))
		}
	}
	return stageOf, nil
}

func isBoundaryInput(g *graph.Graph, stageOf []int, i int) bool {
	in := g.InEdges(i)
	if len(in) == 0 {
		return true
	}
	for _, j := range in {
		if src, _ := g.Endpoints(j); stageOf[src] != stageOf[i] {
			return true
		}
	}
	return false
}

// assignRanks orders the stages topologically, lower index first among
// stages that are ready together.
func assignRanks(sg *model.StageGraph) error {
	k := sg.NumStages()
	succs := sg.Successors()
	indegree := make([]int, k)
	for _, e := range sg.Edges {
		indegree[e.Dst]++
	}
	ready := btree.NewG(8, func(a, b int) bool { return a < b })
	for s := 0; s < k; s++ {
		if indegree[s] == 0 {
			ready.ReplaceOrInsert(s)
		}
	}
	rank := 0
	for ready.Len() > 0 {
		s, _ := ready.DeleteMin()
		sg.Stages[s].Rank = rank
		rank++
		for _, d := range succs[s] {
			indegree[d]--
			if indegree[d] == 0 {
				ready.ReplaceOrInsert(d)
			}
		}
	}
	if rank < k {
		return cerror.ErrCyclicStages.GenWithStackByArgs(describeCycle(sg.Predecessors(), indegree))
	}
	return nil
}

// describeCycle walks predecessors among the stages left with a positive
// in-degree until one repeats.
func describeCycle(preds [][]int, indegree []int) string {
	cur := -1
	for s, d := range indegree {
		if d > 0 {
			cur = s
			break
		}
	}
	seenAt := make(map[int]int)
	var walk []int
	for {
		if at, ok := seenAt[cur]; ok {
			walk = walk[at:]
			break
		}
		seenAt[cur] = len(walk)
		walk = append(walk, cur)
		next := -1
		for _, p := range preds[cur] {
			if indegree[p] > 0 {
				next = p
				break
			}
		}
		cur = next
	}
	parts := make([]string, 0, len(walk)+1)
	for i := len(walk) - 1; i >= 0; i-- {
		parts = append(parts, strconv.Itoa(walk[i]))
	}
	parts = append(parts, parts[0])
	return strings.Join(parts, " -> ")
}
