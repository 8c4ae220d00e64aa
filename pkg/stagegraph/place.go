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

	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/pingcap/pipeplan/pkg/graph"
	"github.com/pingcap/pipeplan/pkg/model"
)

// Place assigns a device to every stage and returns the placed copy of sg.
//
// Stages are ordered by a breadth first walk over the undirected node graph
// starting from the nodes tagged as input, or from the nodes without inputs
// when no node is tagged. Stages the walk never reaches follow in rank
// order. The i-th stage in that order runs on devices[i].
func Place(g *graph.Graph, sg *model.StageGraph, devices []string) (*model.StageGraph, error) {
	k := sg.NumStages()
	if len(devices) < k {
		return nil, cerror.ErrInvalidConfig.GenWithStackByArgs(
			fmt.Sprintf("%d devices for %d stages", len(devices), k))
	}
	stageOf := make(map[string]int, g.NumNodes())
	for _, st := range sg.Stages {
		for _, id := range st.Nodes {
			stageOf[id] = st.Index
		}
	}

	order := make([]int, 0, k)
	placed := make([]bool, k)
	visit := func(i int) {
		s, ok := stageOf[g.Node(i).ID]
		if ok && !placed[s] {
			placed[s] = true
			order = append(order, s)
		}
	}

	visited := make([]bool, g.NumNodes())
	var queue []int
	for i := 0; i < g.NumNodes(); i++ {
		if g.Node(i).HasTag(graph.TagInput) {
			queue = append(queue, i)
			visited[i] = true
		}
	}
	if len(queue) == 0 {
		for i := 0; i < g.NumNodes(); i++ {
			if len(g.InEdges(i)) == 0 {
				queue = append(queue, i)
				visited[i] = true
			}
		}
	}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		visit(i)
		for _, j := range g.OutEdges(i) {
			if _, dst := g.Endpoints(j); !visited[dst] {
				visited[dst] = true
				queue = append(queue, dst)
			}
		}
		for _, j := range g.InEdges(i) {
			if src, _ := g.Endpoints(j); !visited[src] {
				visited[src] = true
				queue = append(queue, src)
			}
		}
	}
	for _, s := range sg.RankOrder() {
		if !placed[s] {
			placed[s] = true
			order = append(order, s)
		}
	}

	out := &model.StageGraph{
		Stages: make([]model.Stage, k),
		Edges:  append([]model.StageEdge(nil), sg.Edges...),
	}
	copy(out.Stages, sg.Stages)
	for pos, s := range order {
		out.Stages[s].Device = devices[pos]
	}
	return out, nil
}
