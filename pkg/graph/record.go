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
	"github.com/pingcap/errors"
)

// NodeRecord is the persisted form of a node.
type NodeRecord struct {
	ID     string   `json:"id" msgpack:"id"`
	Weight float64  `json:"weight" msgpack:"weight"`
	Tags   []string `json:"tags,omitempty" msgpack:"tags,omitempty"`
	Scope  string   `json:"scope,omitempty" msgpack:"scope,omitempty"`
}

// EdgeRecord is the persisted form of an edge. An empty ID stands for the
// default "<src>-><dst>" id.
type EdgeRecord struct {
	ID     string  `json:"id,omitempty" msgpack:"id,omitempty"`
	Src    string  `json:"src" msgpack:"src"`
	Dst    string  `json:"dst" msgpack:"dst"`
	Weight float64 `json:"weight" msgpack:"weight"`
}

// Record is the on-disk representation of a Graph.
type Record struct {
	Nodes []NodeRecord `json:"nodes" msgpack:"nodes"`
	Edges []EdgeRecord `json:"edges" msgpack:"edges"`
}

// ToRecord converts the graph into its persisted form, nodes and edges in
// id order.
func (g *Graph) ToRecord() *Record {
	rec := &Record{
		Nodes: make([]NodeRecord, len(g.nodes)),
		Edges: make([]EdgeRecord, len(g.edges)),
	}
	for i, n := range g.nodes {
		rec.Nodes[i] = NodeRecord{
			ID:     n.ID,
			Weight: n.Weight,
			Tags:   append([]string(nil), n.Tags...),
			Scope:  n.Scope,
		}
	}
	for j, e := range g.edges {
		rec.Edges[j] = EdgeRecord{ID: e.ID, Src: e.Src, Dst: e.Dst, Weight: e.Weight}
		if e.ID == DefaultEdgeID(e.Src, e.Dst) {
			rec.Edges[j].ID = ""
		}
	}
	return rec
}

// FromRecord builds and validates a Graph from its persisted form.
func FromRecord(rec *Record) (*Graph, error) {
	b := NewBuilder()
	for _, n := range rec.Nodes {
		b.AddNode(n.ID, n.Weight, WithTags(n.Tags...), WithScope(n.Scope))
	}
	for _, e := range rec.Edges {
		if e.ID == "" {
			b.AddEdge(e.Src, e.Dst, e.Weight)
		} else {
			b.AddEdgeWithID(e.ID, e.Src, e.Dst, e.Weight)
		}
	}
	g, err := b.Build()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return g, nil
}
