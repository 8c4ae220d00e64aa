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
	"sort"
	"strings"

	"github.com/pingcap/errors"
	cerror "github.com/pingcap/pipeplan/pkg/errors"
)

// ScopeSeparator separates the components of a node scope.
const ScopeSeparator = "."

// TruncateScope keeps the first depth components of scope. A non-positive
// depth keeps the whole scope.
func TruncateScope(scope string, depth int) string {
	if depth <= 0 || scope == "" {
		return scope
	}
	parts := strings.SplitN(scope, ScopeSeparator, depth+1)
	if len(parts) <= depth {
		return scope
	}
	return strings.Join(parts[:depth], ScopeSeparator)
}

// CoarsenByScope merges nodes whose scopes, truncated to depth components,
// are equal into a single node named after the truncated scope. Nodes
// without a scope are kept as they are. Merged nodes carry the summed
// weight and the union of tags; edges inside a merged node are dropped and
// parallel edges between merged nodes are aggregated.
//
// It returns the coarse graph and the mapping from every original node id
// to its coarse node id. Merging can make the graph cyclic, in which case
// ErrGraphCycle is returned.
func CoarsenByScope(g *Graph, depth int) (*Graph, map[string]string, error) {
	mapping := make(map[string]string, g.NumNodes())
	type group struct {
		weight float64
		tags   []string
		scope  string
		scoped bool
	}
	groups := make(map[string]*group)
	var ids []string
	for _, n := range g.nodes {
		id, scope, scoped := n.ID, "", n.Scope != ""
		if scoped {
			scope = TruncateScope(n.Scope, depth)
			id = scope
		}
		mapping[n.ID] = id
		grp, ok := groups[id]
		if !ok {
			grp = &group{scope: scope, scoped: scoped}
			groups[id] = grp
			ids = append(ids, id)
		} else if grp.scoped != scoped {
			// An unscoped node is named like a merged scope.
			return nil, nil, cerror.ErrGraphDuplicateID.GenWithStackByArgs("coarse node", id)
		}
		grp.weight += n.Weight
		grp.tags = append(grp.tags, n.Tags...)
	}

	type pair struct{ src, dst string }
	weights := make(map[pair]float64)
	var pairs []pair
	for _, e := range g.edges {
		p := pair{mapping[e.Src], mapping[e.Dst]}
		if p.src == p.dst {
			continue
		}
		if _, ok := weights[p]; !ok {
			pairs = append(pairs, p)
		}
		weights[p] += e.Weight
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].src != pairs[j].src {
			return pairs[i].src < pairs[j].src
		}
		return pairs[i].dst < pairs[j].dst
	})

	b := NewBuilder()
	for _, id := range ids {
		grp := groups[id]
		b.AddNode(id, grp.weight, WithTags(grp.tags...), WithScope(grp.scope))
	}
	for _, p := range pairs {
		b.AddEdge(p.src, p.dst, weights[p])
	}
	coarse, err := b.Build()
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return coarse, mapping, nil
}
