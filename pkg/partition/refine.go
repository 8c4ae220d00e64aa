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
	"context"
	"math/rand"

	"github.com/google/btree"
	"github.com/pingcap/errors"
	"github.com/pingcap/pipeplan/pkg/graph"
)

const gainEpsilon = 1e-9

// move relocates a node to an adjacent stage.
type move struct {
	gain     float64
	tiebreak int64
	node     int
	target   int
}

func moveLess(a, b move) bool {
	if a.gain != b.gain {
		return a.gain > b.gain
	}
	if a.tiebreak != b.tiebreak {
		return a.tiebreak < b.tiebreak
	}
	if a.node != b.node {
		return a.node < b.node
	}
	return a.target < b.target
}

// refiner runs a bounded local search over a stage monotone assignment,
// i.e. one where stage(src) <= stage(dst) holds for every edge.
type refiner struct {
	g       *graph.Graph
	band    band
	stageOf []int
	weights []float64
	sizes   []int
	rnd     *rand.Rand
}

func newRefiner(g *graph.Graph, k int, b band, stageOf []int, seed int64) *refiner {
	r := &refiner{
		g:       g,
		band:    b,
		stageOf: stageOf,
		weights: make([]float64, k),
		sizes:   make([]int, k),
		rnd:     rand.New(rand.NewSource(seed)),
	}
	for i, s := range stageOf {
		r.weights[s] += g.Node(i).Weight
		r.sizes[s]++
	}
	return r
}

// run performs at most passes passes and returns the number of applied
// moves. Every applied move strictly lowers the cut weight and keeps the
// assignment stage monotone, non-empty and inside the band.
func (r *refiner) run(ctx context.Context, passes int) (int, error) {
	total := 0
	for pass := 0; pass < passes; pass++ {
		if err := ctx.Err(); err != nil {
			return total, errors.Trace(err)
		}
		moved := r.pass()
		total += moved
		if moved == 0 {
			break
		}
	}
	return total, nil
}

func (r *refiner) pass() int {
	queue := btree.NewG(8, moveLess)
	for i := 0; i < r.g.NumNodes(); i++ {
		s := r.stageOf[i]
		for _, t := range []int{s - 1, s + 1} {
			if gain, ok := r.evaluate(i, t); ok {
				queue.ReplaceOrInsert(move{
					gain:     gain,
					tiebreak: r.rnd.Int63(),
					node:     i,
					target:   t,
				})
			}
		}
	}

	locked := make(map[int]struct{})
	moved := 0
	for queue.Len() > 0 {
		m, _ := queue.DeleteMin()
		if _, ok := locked[m.node]; ok {
			continue
		}
		gain, ok := r.evaluate(m.node, m.target)
		if !ok {
			continue
		}
		if gain < m.gain-gainEpsilon {
			// Earlier moves made this one less attractive, requeue it.
			m.gain = gain
			queue.ReplaceOrInsert(m)
			continue
		}
		r.apply(m.node, m.target)
		locked[m.node] = struct{}{}
		moved++
	}
	return moved
}

// evaluate returns the cut weight reduction of moving node i to stage t and
// whether the move is admissible.
func (r *refiner) evaluate(i, t int) (float64, bool) {
	s := r.stageOf[i]
	if t < 0 || t >= len(r.weights) || t == s {
		return 0, false
	}
	if r.sizes[s] <= 1 {
		return 0, false
	}
	w := r.g.Node(i).Weight
	if !r.band.contains(r.weights[s]-w) || !r.band.contains(r.weights[t]+w) {
		return 0, false
	}

	gain := 0.0
	for _, e := range r.g.OutEdges(i) {
		_, dst := r.g.Endpoints(e)
		ds := r.stageOf[dst]
		// Moving forward past a successor would create a back edge.
		if t > s && ds < t {
			return 0, false
		}
		gain += cutDelta(s, t, ds, r.g.Edge(e).Weight)
	}
	for _, e := range r.g.InEdges(i) {
		src, _ := r.g.Endpoints(e)
		ss := r.stageOf[src]
		if t < s && ss > t {
			return 0, false
		}
		gain += cutDelta(s, t, ss, r.g.Edge(e).Weight)
	}
	if gain <= gainEpsilon {
		return 0, false
	}
	return gain, true
}

// cutDelta is the cut weight saved on an edge to a node in stage other when
// its endpoint moves from stage s to stage t.
func cutDelta(s, t, other int, w float64) float64 {
	delta := 0.0
	if other != s {
		delta += w
	}
	if other != t {
		delta -= w
	}
	return delta
}

func (r *refiner) apply(i, t int) {
	s := r.stageOf[i]
	w := r.g.Node(i).Weight
	r.weights[s] -= w
	r.weights[t] += w
	r.sizes[s]--
	r.sizes[t]++
	r.stageOf[i] = t
}
