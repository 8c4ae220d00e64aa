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

package scheduler

import (
	"fmt"

	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/pingcap/pipeplan/pkg/model"
)

// candidate is the next unit a stage could run at the current step.
type candidate struct {
	op
	readyAt int
}

func (c candidate) before(o candidate) bool {
	if c.readyAt != o.readyAt {
		return c.readyAt < o.readyAt
	}
	if c.mb != o.mb {
		return c.mb < o.mb
	}
	return c.dir == model.Forward && o.dir != model.Forward
}

// greedyState tracks list scheduling over a general stage DAG.
type greedyState struct {
	topo   *topology
	n      int
	policy model.Policy
	fwd    [][]int
	bwd    [][]int
	nextF  []int
	nextB  []int
	// limit caps the forwards a stage may hold without their backward under
	// one_forward_one_backward.
	limit []int
	// forwardsDone counts forwards placed at earlier steps.
	forwardsDone int
}

// scheduleGreedy assigns units step by step. At every step each stage runs
// at most one ready unit, choosing by earliest ready time, then lower
// micro-batch, then forward first. Forwards and backwards each run in
// micro-batch order on a stage.
func scheduleGreedy(topo *topology, n int, policy model.Policy) ([]model.Slot, error) {
	st := &greedyState{
		topo:   topo,
		n:      n,
		policy: policy,
		fwd:    newStepTable(topo.k, n),
		bwd:    newStepTable(topo.k, n),
		nextF:  make([]int, topo.k),
		nextB:  make([]int, topo.k),
		limit:  depthToSink(topo),
	}
	for i := range st.limit {
		st.limit[i]++
	}

	total := 2 * topo.k * n
	slots := make([]model.Slot, 0, total)
	for step := 0; len(slots) < total; step++ {
		placed := make([]model.Slot, 0, topo.k)
		for s := 0; s < topo.k; s++ {
			var best *candidate
			if c, ok := st.forwardCandidate(s, step); ok {
				best = &c
			}
			if c, ok := st.backwardCandidate(s, step); ok && (best == nil || c.before(*best)) {
				best = &c
			}
			if best == nil {
				continue
			}
			placed = append(placed, model.Slot{
				Step: step,
				Unit: model.Unit{Stage: s, MicroBatch: best.mb, Direction: best.dir},
			})
		}
		if len(placed) == 0 {
			return nil, cerror.ErrUnschedulable.GenWithStackByArgs(
				fmt.Sprintf("no unit can run at step %d with %d of %d units placed", step, len(slots), total))
		}
		for _, slot := range placed {
			u := slot.Unit
			if u.Direction == model.Forward {
				st.fwd[u.Stage][u.MicroBatch] = step
				st.nextF[u.Stage]++
				st.forwardsDone++
			} else {
				st.bwd[u.Stage][u.MicroBatch] = step
				st.nextB[u.Stage]++
			}
		}
		slots = append(slots, placed...)
	}
	return slots, nil
}

// finishedBefore reports whether every step in deps is set and earlier than
// step, and returns the step after the latest of them.
func finishedBefore(deps []int, step int) (int, bool) {
	readyAt := 0
	for _, d := range deps {
		if d < 0 || d >= step {
			return 0, false
		}
		if d+1 > readyAt {
			readyAt = d + 1
		}
	}
	return readyAt, true
}

func (st *greedyState) forwardCandidate(s, step int) (candidate, bool) {
	m := st.nextF[s]
	if m >= st.n {
		return candidate{}, false
	}
	if st.policy == model.PolicyOneFOneB && st.nextF[s]-st.nextB[s] >= st.limit[s] {
		return candidate{}, false
	}
	deps := make([]int, 0, len(st.topo.preds[s]))
	for _, p := range st.topo.preds[s] {
		deps = append(deps, st.fwd[p][m])
	}
	readyAt, ok := finishedBefore(deps, step)
	if !ok {
		return candidate{}, false
	}
	return candidate{op: op{model.Forward, m}, readyAt: readyAt}, true
}

func (st *greedyState) backwardCandidate(s, step int) (candidate, bool) {
	m := st.nextB[s]
	if m >= st.n {
		return candidate{}, false
	}
	if st.policy == model.PolicyFillDrain && st.forwardsDone < st.topo.k*st.n {
		return candidate{}, false
	}
	deps := make([]int, 0, len(st.topo.succs[s])+1)
	deps = append(deps, st.fwd[s][m])
	for _, q := range st.topo.succs[s] {
		deps = append(deps, st.bwd[q][m])
	}
	readyAt, ok := finishedBefore(deps, step)
	if !ok {
		return candidate{}, false
	}
	return candidate{op: op{model.Backward, m}, readyAt: readyAt}, true
}

// depthToSink is the longest path, in stage edges, from each stage to a sink.
func depthToSink(topo *topology) []int {
	depth := make([]int, topo.k)
	for i := len(topo.order) - 1; i >= 0; i-- {
		s := topo.order[i]
		for _, q := range topo.succs[s] {
			if depth[q]+1 > depth[s] {
				depth[s] = depth[q] + 1
			}
		}
	}
	return depth
}
