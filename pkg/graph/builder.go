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
	"math"
	"sort"

	"github.com/pingcap/errors"
	cerror "github.com/pingcap/pipeplan/pkg/errors"
)

// NodeOption configures a node added to a Builder.
type NodeOption func(*Node)

// WithTags adds tags to the node.
func WithTags(tags ...string) NodeOption {
	return func(n *Node) {
		n.Tags = append(n.Tags, tags...)
	}
}

// WithScope sets the hierarchical scope of the node.
func WithScope(scope string) NodeOption {
	return func(n *Node) {
		n.Scope = scope
	}
}

// Builder collects nodes and edges and validates them into a Graph.
// A Builder is not safe for concurrent use.
type Builder struct {
	nodes []*Node
	edges []*Edge
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddNode adds a node with the given id and compute weight.
func (b *Builder) AddNode(id string, weight float64, opts ...NodeOption) *Builder {
	n := &Node{ID: id, Weight: weight}
	for _, opt := range opts {
		opt(n)
	}
	b.nodes = append(b.nodes, n)
	return b
}

// AddEdge adds an edge from src to dst. Its id is "<src>-><dst>".
func (b *Builder) AddEdge(src, dst string, weight float64) *Builder {
	return b.AddEdgeWithID(DefaultEdgeID(src, dst), src, dst, weight)
}

// AddEdgeWithID adds an edge with an explicit id, which allows parallel
// edges between the same pair of nodes.
func (b *Builder) AddEdgeWithID(id, src, dst string, weight float64) *Builder {
	b.edges = append(b.edges, &Edge{ID: id, Src: src, Dst: dst, Weight: weight})
	return b
}

// DefaultEdgeID returns the id given to edges added without an explicit id.
func DefaultEdgeID(src, dst string) string {
	return src + "->" + dst
}

// Build validates the collected nodes and edges and returns the Graph.
// The Builder may keep being used afterwards, the Graph does not share
// memory with it.
func (b *Builder) Build() (*Graph, error) {
	nodes := make([]*Node, len(b.nodes))
	for i, n := range b.nodes {
		cp := *n
		cp.Tags = normalizeTags(n.Tags)
		cp.Inputs, cp.Outputs = nil, nil
		nodes[i] = &cp
	}
	edges := make([]*Edge, len(b.edges))
	for i, e := range b.edges {
		cp := *e
		edges[i] = &cp
	}
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })

	if err := validate(nodes, edges); err != nil {
		return nil, errors.Trace(err)
	}
	return newGraph(nodes, edges)
}

// validate checks everything but acyclicity on id sorted nodes and edges.
func validate(nodes []*Node, edges []*Edge) error {
	if len(nodes) == 0 {
		return cerror.ErrGraphEmpty.GenWithStackByArgs()
	}
	known := make(map[string]struct{}, len(nodes))
	for i, n := range nodes {
		if n.ID == "" {
			return cerror.ErrGraphInvalidID.GenWithStackByArgs("node", n.ID)
		}
		if i > 0 && nodes[i-1].ID == n.ID {
			return cerror.ErrGraphDuplicateID.GenWithStackByArgs("node", n.ID)
		}
		if !validWeight(n.Weight) {
			return cerror.ErrGraphInvalidWeight.GenWithStackByArgs("node", n.ID, n.Weight)
		}
		known[n.ID] = struct{}{}
	}
	for i, e := range edges {
		if e.ID == "" {
			return cerror.ErrGraphInvalidID.GenWithStackByArgs("edge", e.ID)
		}
		if i > 0 && edges[i-1].ID == e.ID {
			return cerror.ErrGraphDuplicateID.GenWithStackByArgs("edge", e.ID)
		}
		if _, ok := known[e.Src]; !ok {
			return cerror.ErrGraphDanglingEdge.GenWithStackByArgs(e.ID, e.Src)
		}
		if _, ok := known[e.Dst]; !ok {
			return cerror.ErrGraphDanglingEdge.GenWithStackByArgs(e.ID, e.Dst)
		}
		if e.Src == e.Dst {
			return cerror.ErrGraphSelfLoop.GenWithStackByArgs(e.ID, e.Src)
		}
		if !validWeight(e.Weight) {
			return cerror.ErrGraphInvalidWeight.GenWithStackByArgs("edge", e.ID, e.Weight)
		}
	}
	return nil
}

func validWeight(w float64) bool {
	return w >= 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok || t == "" {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}
