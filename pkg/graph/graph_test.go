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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pingcap/errors"
	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/stretchr/testify/require"
)

func orderIDs(g *Graph) []string {
	ids := make([]string, 0, g.NumNodes())
	for _, i := range g.TopologicalOrder() {
		ids = append(ids, g.Node(i).ID)
	}
	return ids
}

func TestBuildDiamond(t *testing.T) {
	t.Parallel()

	g, err := NewBuilder().
		AddNode("d", 4).
		AddNode("c", 3).
		AddNode("b", 2, WithTags(TagStateful)).
		AddNode("a", 1, WithTags(TagInput, TagInput)).
		AddEdge("a", "c", 0.5).
		AddEdge("a", "b", 1).
		AddEdge("b", "d", 1).
		AddEdge("c", "d", 2).
		Build()
	require.NoError(t, err)

	require.Equal(t, 4, g.NumNodes())
	require.Equal(t, 4, g.NumEdges())
	require.Equal(t, []string{"a", "b", "c", "d"}, g.NodeIDs())
	require.Equal(t, []string{"a", "b", "c", "d"}, orderIDs(g))
	require.InDelta(t, 10, g.TotalWeight(), 1e-9)

	a, ok := g.NodeIndex("a")
	require.True(t, ok)
	require.Equal(t, []string{TagInput}, g.Node(a).Tags)
	require.True(t, g.Node(a).HasTag(TagInput))
	require.False(t, g.Node(a).HasTag(TagOutput))
	require.Equal(t, []string{"a->b", "a->c"}, g.Node(a).Outputs)
	require.Empty(t, g.Node(a).Inputs)

	d, _ := g.NodeIndex("d")
	require.Equal(t, []string{"b->d", "c->d"}, g.Node(d).Inputs)
	require.Len(t, g.InEdges(d), 2)
	require.Equal(t, 3, g.Position(d))

	j, ok := g.EdgeIndex("c->d")
	require.True(t, ok)
	src, dst := g.Endpoints(j)
	require.Equal(t, "c", g.Node(src).ID)
	require.Equal(t, "d", g.Node(dst).ID)
	require.Equal(t, 2.0, g.Edge(j).Weight)
}

func TestBuildIndependentOfCallOrder(t *testing.T) {
	t.Parallel()

	g1, err := NewBuilder().
		AddNode("x", 1).AddNode("y", 2).AddNode("z", 3).AddNode("w", 1).
		AddEdge("x", "z", 1).AddEdge("y", "z", 2).AddEdge("z", "w", 3).
		Build()
	require.NoError(t, err)
	g2, err := NewBuilder().
		AddNode("w", 1).AddNode("z", 3).AddNode("y", 2).AddNode("x", 1).
		AddEdge("z", "w", 3).AddEdge("y", "z", 2).AddEdge("x", "z", 1).
		Build()
	require.NoError(t, err)

	require.Empty(t, cmp.Diff(g1.ToRecord(), g2.ToRecord()))
	require.Equal(t, orderIDs(g1), orderIDs(g2))
	require.Equal(t, []string{"x", "y", "z", "w"}, orderIDs(g1))
}

func TestBuildErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		builder *Builder
		err     *errors.Error
		msg     string
	}{
		{
			name:    "empty",
			builder: NewBuilder(),
			err:     cerror.ErrGraphEmpty,
		},
		{
			name:    "duplicate node",
			builder: NewBuilder().AddNode("a", 1).AddNode("b", 1).AddNode("a", 2),
			err:     cerror.ErrGraphDuplicateID,
			msg:     "node id a",
		},
		{
			name: "duplicate edge",
			builder: NewBuilder().AddNode("a", 1).AddNode("b", 1).
				AddEdge("a", "b", 1).AddEdge("a", "b", 2),
			err: cerror.ErrGraphDuplicateID,
			msg: "edge id a->b",
		},
		{
			name:    "dangling edge",
			builder: NewBuilder().AddNode("a", 1).AddEdge("a", "ghost", 1),
			err:     cerror.ErrGraphDanglingEdge,
			msg:     "ghost",
		},
		{
			name:    "self loop",
			builder: NewBuilder().AddNode("a", 1).AddEdge("a", "a", 1),
			err:     cerror.ErrGraphSelfLoop,
		},
		{
			name:    "negative node weight",
			builder: NewBuilder().AddNode("a", -1),
			err:     cerror.ErrGraphInvalidWeight,
		},
		{
			name:    "negative edge weight",
			builder: NewBuilder().AddNode("a", 1).AddNode("b", 1).AddEdge("a", "b", -3),
			err:     cerror.ErrGraphInvalidWeight,
		},
		{
			name:    "empty id",
			builder: NewBuilder().AddNode("", 1),
			err:     cerror.ErrGraphInvalidID,
		},
		{
			name: "cycle",
			builder: NewBuilder().AddNode("a", 1).AddNode("b", 1).AddNode("c", 1).AddNode("d", 1).
				AddEdge("a", "b", 1).AddEdge("b", "c", 1).AddEdge("c", "a", 1).AddEdge("d", "a", 1),
			err: cerror.ErrGraphCycle,
			msg: "b -> c -> a -> b",
		},
	}
	for _, c := range cases {
		_, err := c.builder.Build()
		require.Error(t, err, c.name)
		require.True(t, cerror.Is(err, c.err), "%s: %v", c.name, err)
		require.Contains(t, err.Error(), c.msg, c.name)
	}
}

func TestParallelEdgesWithExplicitIDs(t *testing.T) {
	t.Parallel()

	g, err := NewBuilder().AddNode("a", 1).AddNode("b", 1).
		AddEdgeWithID("e1", "a", "b", 1).
		AddEdgeWithID("e2", "a", "b", 2).
		Build()
	require.NoError(t, err)
	a, _ := g.NodeIndex("a")
	require.Equal(t, []string{"e1", "e2"}, g.Node(a).Outputs)
}

func TestBuilderReuse(t *testing.T) {
	t.Parallel()

	b := NewBuilder().AddNode("a", 1)
	g1, err := b.Build()
	require.NoError(t, err)
	b.AddNode("b", 2).AddEdge("a", "b", 1)
	g2, err := b.Build()
	require.NoError(t, err)

	require.Equal(t, 1, g1.NumNodes())
	require.Empty(t, g1.Node(0).Outputs)
	require.Equal(t, 2, g2.NumNodes())
}

func TestRecordRoundTrip(t *testing.T) {
	t.Parallel()

	g, err := NewBuilder().
		AddNode("in", 1, WithTags(TagInput), WithScope("embed")).
		AddNode("l0", 5, WithScope("layers.0")).
		AddNode("out", 2, WithTags(TagOutput)).
		AddEdge("in", "l0", 3).
		AddEdgeWithID("skip", "in", "out", 1).
		AddEdge("l0", "out", 2).
		Build()
	require.NoError(t, err)

	rec := g.ToRecord()
	require.Equal(t, "", rec.Edges[0].ID) // "in->l0" uses the default id
	require.Equal(t, "skip", rec.Edges[2].ID)

	g2, err := FromRecord(rec)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(rec, g2.ToRecord()))
	require.Empty(t, cmp.Diff(g.nodes, g2.nodes))
	require.Empty(t, cmp.Diff(g.edges, g2.edges))
}
