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

package graph

import (
	"strings"

	"github.com/google/btree"
	"github.com/pingcap/errors"
	cerror "github.com/pingcap/pipeplan/pkg/errors"
)

// Well known node tags.
const (
	TagInput    = "input"
	TagOutput   = "output"
	TagStateful = "stateful"
)

// Node is an operation in the computation graph.
type Node struct {
	ID string
	// Weight is the estimated compute cost of the operation.
	Weight float64
	// Tags are sorted and unique.
	Tags []string
	// Scope is the optional hierarchical name of the module the operation
	// belongs to, with components separated by ".".
	Scope string
	// Inputs and Outputs hold edge ids, sorted.
	Inputs  []string
	Outputs []string
}

// HasTag returns whether the node carries the tag.
func (n *Node) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Edge is a data dependency between two operations.
type Edge struct {
	ID  string
	Src string
	Dst string
	// Weight is the estimated communication cost paid when Src and Dst are
	// placed in different stages.
	Weight float64
}

// Graph is a validated, immutable DAG. Nodes and edges are indexed in
// ascending id order, so every index based result only depends on the ids
// and never on the order in which the graph was built.
//
// Slices returned by accessors are shared and must not be modified.
type Graph struct {
	nodes []*Node
	edges []*Edge

	nodeIndex map[string]int
	edgeIndex map[string]int

	// srcOf and dstOf are the node indices of each edge's endpoints.
	srcOf []int
	dstOf []int
	// in and out hold edge indices per node, ascending.
	in  [][]int
	out [][]int

	order       []int
	position    []int
	totalWeight float64
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

// NumEdges returns the number of edges.
func (g *Graph) NumEdges() int {
	return len(g.edges)
}

// Node returns the node at index i.
func (g *Graph) Node(i int) *Node {
	return g.nodes[i]
}

// Edge returns the edge at index j.
func (g *Graph) Edge(j int) *Edge {
	return g.edges[j]
}

// NodeIndex returns the index of the node with the given id.
func (g *Graph) NodeIndex(id string) (int, bool) {
	i, ok := g.nodeIndex[id]
	return i, ok
}

// EdgeIndex returns the index of the edge with the given id.
func (g *Graph) EdgeIndex(id string) (int, bool) {
	j, ok := g.edgeIndex[id]
	return j, ok
}

// Endpoints returns the node indices of edge j.
func (g *Graph) Endpoints(j int) (src, dst int) {
	return g.srcOf[j], g.dstOf[j]
}

// InEdges returns the indices of the edges entering node i.
func (g *Graph) InEdges(i int) []int {
	return g.in[i]
}

// OutEdges returns the indices of the edges leaving node i.
func (g *Graph) OutEdges(i int) []int {
	return g.out[i]
}

// TopologicalOrder returns node indices in topological order. Among nodes
// that are ready at the same time the one with the smallest id comes first.
func (g *Graph) TopologicalOrder() []int {
	return g.order
}

// Position returns the position of node i in TopologicalOrder.
func (g *Graph) Position(i int) int {
	return g.position[i]
}

// TotalWeight returns the sum of all node weights.
func (g *Graph) TotalWeight() float64 {
	return g.totalWeight
}

// NodeIDs returns all node ids in ascending order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		ids[i] = n.ID
	}
	return ids
}

// newGraph indexes the sorted nodes and edges and checks that they form a
// DAG.
func newGraph(nodes []*Node, edges []*Edge) (*Graph, error) {
	g := &Graph{
		nodes:     nodes,
		edges:     edges,
		nodeIndex: make(map[string]int, len(nodes)),
		edgeIndex: make(map[string]int, len(edges)),
		srcOf:     make([]int, len(edges)),
		dstOf:     make([]int, len(edges)),
		in:        make([][]int, len(nodes)),
		out:       make([][]int, len(nodes)),
	}
	for i, n := range nodes {
		g.nodeIndex[n.ID] = i
		g.totalWeight += n.Weight
	}
	for j, e := range edges {
		g.edgeIndex[e.ID] = j
		src, dst := g.nodeIndex[e.Src], g.nodeIndex[e.Dst]
		g.srcOf[j], g.dstOf[j] = src, dst
		g.out[src] = append(g.out[src], j)
		g.in[dst] = append(g.in[dst], j)
	}
	for i, n := range nodes {
		n.Inputs = edgeIDs(edges, g.in[i])
		n.Outputs = edgeIDs(edges, g.out[i])
	}

	if err := g.computeOrder(); err != nil {
		return nil, errors.Trace(err)
	}
	return g, nil
}

func edgeIDs(edges []*Edge, indices []int) []string {
	if len(indices) == 0 {
		return nil
	}
	ids := make([]string, len(indices))
	for k, j := range indices {
		ids[k] = edges[j].ID
	}
	return ids
}

// computeOrder runs Kahn's algorithm with a ready set ordered by node index.
func (g *Graph) computeOrder() error {
	n := len(g.nodes)
	indegree := make([]int, n)
	for j := range g.edges {
		indegree[g.dstOf[j]]++
	}
	ready := btree.NewG(8, func(a, b int) bool { return a < b })
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			ready.ReplaceOrInsert(i)
		}
	}
	order := make([]int, 0, n)
	for ready.Len() > 0 {
		i, _ := ready.DeleteMin()
		order = append(order, i)
		for _, j := range g.out[i] {
			dst := g.dstOf[j]
			indegree[dst]--
			if indegree[dst] == 0 {
				ready.ReplaceOrInsert(dst)
			}
		}
	}
	if len(order) < n {
		return cerror.ErrGraphCycle.GenWithStackByArgs(g.describeCycle(indegree))
	}
	g.order = order
	g.position = make([]int, n)
	for pos, i := range order {
		g.position[i] = pos
	}
	return nil
}

// describeCycle returns one concrete cycle among the nodes Kahn's algorithm
// could not release. Every such node has a predecessor that is also left,
// so walking predecessors from the smallest one must revisit a node.
func (g *Graph) describeCycle(indegree []int) string {
	start := -1
	for i, d := range indegree {
		if d > 0 {
			start = i
			break
		}
	}
	seenAt := make(map[int]int)
	var walk []int
	cur := start
	for {
		if at, ok := seenAt[cur]; ok {
			walk = walk[at:]
			break
		}
		seenAt[cur] = len(walk)
		walk = append(walk, cur)
		next := -1
		for _, j := range g.in[cur] {
			if src := g.srcOf[j]; indegree[src] > 0 && (next < 0 || src < next) {
				next = src
			}
		}
		cur = next
	}
	// walk follows edges backwards, print it forwards and closed.
	ids := make([]string, 0, len(walk)+1)
	for k := len(walk) - 1; k >= 0; k-- {
		ids = append(ids, g.nodes[walk[k]].ID)
	}
	ids = append(ids, ids[0])
	return strings.Join(ids, " -> ")
}
