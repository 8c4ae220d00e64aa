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
	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/pingcap/pipeplan/pkg/model"
)

type op struct {
	dir model.Direction
	mb  int
}

// linearOrder is the per-stage unit order of a chain under policy. pos is
// the stage position in the chain and k the chain length.
func linearOrder(pos, k, n int, policy model.Policy) []op {
	ops := make([]op, 0, 2*n)
	if policy == model.PolicyFillDrain {
		for m := 0; m < n; m++ {
			ops = append(ops, op{model.Forward, m})
		}
		for m := 0; m < n; m++ {
			ops = append(ops, op{model.Backward, m})
		}
		return ops
	}
	warm := k - 1 - pos
	if warm > n {
		warm = n
	}
	for m := 0; m < warm; m++ {
		ops = append(ops, op{model.Forward, m})
	}
	for m := 0; m < n; m++ {
		if warm+m < n {
			ops = append(ops, op{model.Forward, warm + m})
		}
		ops = append(ops, op{model.Backward, m})
	}
	return ops
}

// scheduleLinear places every unit of a chain as soon as its stage is free
// and its dependencies have finished.
//
// Under fill_drain this gives F(r,m) at step r+m and B(r,m) at step
// (n+k-1)+(k-1-r)+m. Under one_forward_one_backward the stage at position r
// runs min(k-1-r, n) warm-up forwards and then alternates.
func scheduleLinear(chain []int, n int, policy model.Policy) ([]model.Slot, error) {
	k := len(chain)
	seqs := make([][]op, k)
	next := make([]int, k)
	free := make([]int, k)
	fwd := newStepTable(k, n)
	bwd := newStepTable(k, n)
	for r := range chain {
		seqs[r] = linearOrder(r, k, n, policy)
	}

	slots := make([]model.Slot, 0, 2*k*n)
	for remaining := 2 * k * n; remaining > 0; {
		progress := false
		for r := 0; r < k; r++ {
			for next[r] < len(seqs[r]) {
				o := seqs[r][next[r]]
				at := free[r]
				var deps []int
				if o.dir == model.Forward {
					if r > 0 {
						deps = append(deps, fwd[r-1][o.mb])
					}
				} else {
					deps = append(deps, fwd[r][o.mb])
					if r < k-1 {
						deps = append(deps, bwd[r+1][o.mb])
					}
				}
				ready := true
				for _, d := range deps {
					if d < 0 {
						ready = false
						break
					}
					if d+1 > at {
						at = d + 1
					}
				}
				if !ready {
					break
				}
				if o.dir == model.Forward {
					fwd[r][o.mb] = at
				} else {
					bwd[r][o.mb] = at
				}
				slots = append(slots, model.Slot{
					Step: at,
					Unit: model.Unit{Stage: chain[r], MicroBatch: o.mb, Direction: o.dir},
				})
				free[r] = at + 1
				next[r]++
				remaining--
				progress = true
			}
		}
		if !progress && remaining > 0 {
			return nil, cerror.ErrUnschedulable.GenWithStackByArgs("pipeline chain deadlocked")
		}
	}
	return slots, nil
}

// newStepTable returns a k by n table filled with -1.
func newStepTable(k, n int) [][]int {
	table := make([][]int, k)
	for i := range table {
		row := make([]int, n)
		for j := range row {
			row[j] = -1
		}
		table[i] = row
	}
	return table
}
