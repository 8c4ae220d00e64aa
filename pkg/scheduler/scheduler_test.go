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
	"testing"

	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/pingcap/pipeplan/pkg/leakutil"
	"github.com/pingcap/pipeplan/pkg/model"
	"github.com/pingcap/pipeplan/pkg/validator"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	leakutil.SetUpLeakTest(m)
}

func stageGraph(k int, edges ...[2]int) *model.StageGraph {
	sg := &model.StageGraph{Stages: make([]model.Stage, k)}
	for i := range sg.Stages {
		sg.Stages[i].Index = i
	}
	for _, e := range edges {
		sg.Edges = append(sg.Edges, model.StageEdge{Src: e[0], Dst: e[1], Weight: 1})
	}
	return sg
}

func linearStageGraph(k int) *model.StageGraph {
	edges := make([][2]int, 0, k)
	for i := 1; i < k; i++ {
		edges = append(edges, [2]int{i - 1, i})
	}
	return stageGraph(k, edges...)
}

func stepOf(t *testing.T, sched *model.Schedule, u model.Unit) int {
	for _, slot := range sched.Slots {
		if slot.Unit == u {
			return slot.Step
		}
	}
	require.FailNow(t, "unit not scheduled", u.String())
	return -1
}

func TestScheduleLinearChain(t *testing.T) {
	t.Parallel()

	s := New()
	for _, policy := range []model.Policy{model.PolicyFillDrain, model.PolicyOneFOneB} {
		sg := linearStageGraph(4)
		sched, err := s.Schedule(sg, 4, policy)
		require.NoError(t, err)
		require.Equal(t, 14, sched.Makespan, policy)
		require.Len(t, sched.Slots, 32)
		require.Empty(t, validator.Validate(sg, sched), policy)
		require.NoError(t, validator.Check(sg, sched))
		require.Equal(t, policy, sched.Policy)
		require.Len(t, sched.StageStats, 4)
		for _, st := range sched.StageStats {
			require.Equal(t, 8, st.Busy)
			require.Equal(t, 6, st.Idle)
		}
		require.InDelta(t, 24.0/56.0, sched.BubbleRatio, 1e-9)
	}
}

func TestScheduleFillDrainTimeline(t *testing.T) {
	t.Parallel()

	const k, n = 3, 5
	sched, err := New().Schedule(linearStageGraph(k), n, model.PolicyFillDrain)
	require.NoError(t, err)
	for r := 0; r < k; r++ {
		for m := 0; m < n; m++ {
			require.Equal(t, r+m, stepOf(t, sched, model.Unit{Stage: r, MicroBatch: m, Direction: model.Forward}))
			require.Equal(t, (n+k-1)+(k-1-r)+m, stepOf(t, sched, model.Unit{Stage: r, MicroBatch: m, Direction: model.Backward}))
		}
	}
	require.Equal(t, 2*(k+n-1), sched.Makespan)
}

func TestScheduleOneFOneBWarmUp(t *testing.T) {
	t.Parallel()

	const k, n = 4, 8
	sched, err := New().Schedule(linearStageGraph(k), n, model.PolicyOneFOneB)
	require.NoError(t, err)
	require.Equal(t, 2*(k+n-1), sched.Makespan)

	// Stage 0 holds at most k forwards without their backward.
	inflight, peak := 0, 0
	for _, slot := range sched.Slots {
		if slot.Stage != 0 {
			continue
		}
		if slot.Direction == model.Forward {
			inflight++
		} else {
			inflight--
		}
		if inflight > peak {
			peak = inflight
		}
	}
	require.Equal(t, k, peak)

	// The last stage alternates from the start.
	var dirs []model.Direction
	for _, slot := range sched.Slots {
		if slot.Stage == k-1 && len(dirs) < 4 {
			dirs = append(dirs, slot.Direction)
		}
	}
	require.Equal(t, []model.Direction{model.Forward, model.Backward, model.Forward, model.Backward}, dirs)
}

func TestScheduleChainWithShuffledIndices(t *testing.T) {
	t.Parallel()

	// Pipeline order is 2 -> 0 -> 1.
	sg := stageGraph(3, [2]int{2, 0}, [2]int{0, 1})
	sched, err := New().Schedule(sg, 2, model.PolicyOneFOneB)
	require.NoError(t, err)
	require.NoError(t, validator.Check(sg, sched))
	require.Equal(t, 2*(3+2-1), sched.Makespan)
	require.Equal(t, 0, stepOf(t, sched, model.Unit{Stage: 2, MicroBatch: 0, Direction: model.Forward}))
}

func TestScheduleSingleStage(t *testing.T) {
	t.Parallel()

	sg := stageGraph(1)
	for _, policy := range []model.Policy{model.PolicyFillDrain, model.PolicyOneFOneB} {
		sched, err := New().Schedule(sg, 3, policy)
		require.NoError(t, err)
		require.Equal(t, 6, sched.Makespan)
		require.Zero(t, sched.BubbleRatio)
		require.NoError(t, validator.Check(sg, sched))
	}
}

func TestScheduleBranching(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		sg   *model.StageGraph
	}{
		{"diamond", stageGraph(4, [2]int{0, 1}, [2]int{0, 2}, [2]int{1, 3}, [2]int{2, 3})},
		{"fork", stageGraph(3, [2]int{0, 1}, [2]int{0, 2})},
		{"join", stageGraph(3, [2]int{0, 2}, [2]int{1, 2})},
		{"skip", stageGraph(3, [2]int{0, 1}, [2]int{1, 2}, [2]int{0, 2})},
		{"disconnected", stageGraph(2)},
	}
	for _, tc := range cases {
		for _, policy := range []model.Policy{model.PolicyFillDrain, model.PolicyOneFOneB} {
			for _, n := range []int{1, 3, 6} {
				sched, err := New().Schedule(tc.sg, n, policy)
				require.NoError(t, err, tc.name)
				require.Empty(t, validator.Validate(tc.sg, sched), "%s %s n=%d", tc.name, policy, n)
				require.Len(t, sched.Slots, 2*tc.sg.NumStages()*n)
			}
		}
	}
}

func TestScheduleFillDrainBranchingOrder(t *testing.T) {
	t.Parallel()

	sg := stageGraph(3, [2]int{0, 1}, [2]int{0, 2})
	sched, err := New().Schedule(sg, 3, model.PolicyFillDrain)
	require.NoError(t, err)
	lastForward, firstBackward := -1, -1
	for _, slot := range sched.Slots {
		if slot.Direction == model.Forward && slot.Step > lastForward {
			lastForward = slot.Step
		}
		if slot.Direction == model.Backward && (firstBackward < 0 || slot.Step < firstBackward) {
			firstBackward = slot.Step
		}
	}
	require.Less(t, lastForward, firstBackward)
}

func TestScheduleDeterministic(t *testing.T) {
	t.Parallel()

	sg := stageGraph(4, [2]int{0, 1}, [2]int{0, 2}, [2]int{1, 3}, [2]int{2, 3})
	first, err := New().Schedule(sg, 5, model.PolicyOneFOneB)
	require.NoError(t, err)
	second, err := New().Schedule(sg, 5, model.PolicyOneFOneB)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestScheduleInvalidInput(t *testing.T) {
	t.Parallel()

	s := New()
	_, err := s.Schedule(linearStageGraph(2), 0, model.PolicyFillDrain)
	require.True(t, cerror.Is(err, cerror.ErrInvalidConfig), err)

	_, err = s.Schedule(linearStageGraph(2), 2, model.Policy("interleaved"))
	require.True(t, cerror.Is(err, cerror.ErrUnknownPolicy), err)

	_, err = s.Schedule(&model.StageGraph{}, 2, model.PolicyFillDrain)
	require.True(t, cerror.Is(err, cerror.ErrInvalidConfig), err)

	_, err = s.Schedule(stageGraph(2, [2]int{0, 1}, [2]int{1, 0}), 2, model.PolicyFillDrain)
	require.True(t, cerror.Is(err, cerror.ErrUnschedulable), err)

	_, err = s.Schedule(stageGraph(2, [2]int{0, 5}), 2, model.PolicyFillDrain)
	require.True(t, cerror.Is(err, cerror.ErrUnschedulable), err)
}
