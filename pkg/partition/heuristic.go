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

package partition

import (
	"math"

	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/pingcap/pipeplan/pkg/graph"
)

// splitTopological cuts the topological order of g into k contiguous,
// non-empty segments. Among the splits whose every stage lies in the band
// it returns the one with the smallest cut weight, as a stage per node
// index. Stage indices follow the topological order, so every edge goes
// from a stage to the same or a later one and the stage graph is acyclic.
//
// If no split fits in the band, ErrInfeasibleBalance reports the smallest
// achievable deviation over all splits.
func splitTopological(g *graph.Graph, k int, b band, tolerance float64) ([]int, error) {
	order := g.TopologicalOrder()
	n := len(order)
	prefix := make([]float64, n+1)
	for p, i := range order {
		prefix[p+1] = prefix[p] + g.Node(i).Weight
	}

	minDev := minimaxDeviation(prefix, k, b.ideal)
	if minDev > b.slack {
		return nil, cerror.ErrInfeasibleBalance.GenWithStackByArgs(
			k, tolerance, minDev/b.ideal)
	}

	inf := math.Inf(1)
	cost := newMatrix(k+1, n+1, inf)
	parent := make([][]int, k+1)
	for s := range parent {
		parent[s] = make([]int, n+1)
	}
	cost[0][0] = 0
	for j := 0; j < n; j++ {
		// seg is the weight of the edges entering [j, i) from before j.
		seg := 0.0
		for i := j + 1; i <= n; i++ {
			for _, e := range g.InEdges(order[i-1]) {
				if src, _ := g.Endpoints(e); g.Position(src) < j {
					seg += g.Edge(e).Weight
				}
			}
			w := prefix[i] - prefix[j]
			if w > b.upper() {
				break
			}
			if !b.contains(w) {
				continue
			}
			for s := 1; s <= k && s <= j+1; s++ {
				if cost[s-1][j] == inf {
					continue
				}
				if c := cost[s-1][j] + seg; c < cost[s][i] {
					cost[s][i] = c
					parent[s][i] = j
				}
			}
		}
	}
	if cost[k][n] == inf {
		// minimaxDeviation found a split inside the band, so does the
		// search above.
		return nil, cerror.ErrInfeasibleBalance.GenWithStackByArgs(
			k, tolerance, minDev/b.ideal)
	}

	stageOf := make([]int, g.NumNodes())
	for s, i := k, n; s > 0; s-- {
		j := parent[s][i]
		for p := j; p < i; p++ {
			stageOf[order[p]] = s - 1
		}
		i = j
	}
	return stageOf, nil
}

// minimaxDeviation returns the smallest achievable max |w - ideal| over all
// splits of the prefix sums into k non-empty segments.
func minimaxDeviation(prefix []float64, k int, ideal float64) float64 {
	n := len(prefix) - 1
	inf := math.Inf(1)
	best := newMatrix(k+1, n+1, inf)
	best[0][0] = 0
	for j := 0; j < n; j++ {
		for i := j + 1; i <= n; i++ {
			d := math.Abs(prefix[i] - prefix[j] - ideal)
			for s := 1; s <= k && s <= j+1; s++ {
				if best[s-1][j] == inf {
					continue
				}
				if v := math.Max(best[s-1][j], d); v < best[s][i] {
					best[s][i] = v
				}
			}
		}
	}
	return best[k][n]
}

func newMatrix(rows, cols int, fill float64) [][]float64 {
	m := make([][]float64, rows)
	for r := range m {
		m[r] = make([]float64, cols)
		for c := range m[r] {
			m[r][c] = fill
		}
	}
	return m
}
