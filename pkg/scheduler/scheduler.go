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
	"time"

	"github.com/google/btree"
	"github.com/pingcap/errors"
	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/pingcap/pipeplan/pkg/logutil"
	"github.com/pingcap/pipeplan/pkg/model"
	"go.uber.org/zap"
)

const (
	pathLinear = "linear"
	pathGreedy = "greedy"
)

// Scheduler turns a stage graph into a pipeline schedule.
type Scheduler struct {
	logger *zap.Logger
}

// New creates a Scheduler.
func New() *Scheduler {
	return &Scheduler{logger: logutil.NewLogger4Component("scheduler")}
}

// topology is the dependency structure of a stage graph.
type topology struct {
	k     int
	preds [][]int
	succs [][]int
	// order is a topological order of the stages, lower index first among
	// stages that are ready together.
	order []int
}

// Schedule produces a schedule of microBatches micro-batches over sg.
//
// Every stage runs exactly one forward and one backward per micro-batch,
// one unit per step. The forward of a stage runs after the forwards of all
// its predecessors and the backward after the backwards of all its
// successors and after its own forward, each at a strictly earlier step.
func (s *Scheduler) Schedule(sg *model.StageGraph, microBatches int, policy model.Policy) (*model.Schedule, error) {
	start := time.Now()
	if sg == nil || sg.NumStages() == 0 {
		return nil, cerror.ErrInvalidConfig.GenWithStackByArgs("stage graph has no stages")
	}
	if microBatches < 1 {
		return nil, cerror.ErrInvalidConfig.GenWithStackByArgs(
			fmt.Sprintf("micro-batch count must be at least 1, got %d", microBatches))
	}
	if policy != model.PolicyFillDrain && policy != model.PolicyOneFOneB {
		return nil, cerror.ErrUnknownPolicy.GenWithStackByArgs(string(policy))
	}
	topo, err := newTopology(sg)
	if err != nil {
		return nil, errors.Trace(err)
	}

	sched := &model.Schedule{
		Stages:       topo.k,
		MicroBatches: microBatches,
		Policy:       policy,
	}
	path := pathGreedy
	if chain, ok := topo.linearChain(); ok {
		path = pathLinear
		sched.Slots, err = scheduleLinear(chain, microBatches, policy)
	} else {
		sched.Slots, err = scheduleGreedy(topo, microBatches, policy)
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	sched.Finalize()

	scheduleCounter.WithLabelValues(string(policy), path).Inc()
	makespanHistogram.WithLabelValues(string(policy)).Observe(float64(sched.Makespan))
	bubbleRatioHistogram.WithLabelValues(string(policy)).Observe(sched.BubbleRatio)
	s.logger.Info("schedule finished",
		zap.Int("stages", topo.k),
		zap.Int("microBatches", microBatches),
		zap.String("policy", string(policy)),
		zap.String("path", path),
		zap.Int("makespan", sched.Makespan),
		zap.Float64("bubbleRatio", sched.BubbleRatio),
		zap.Duration("duration", time.Since(start)))
	return sched, nil
}

func newTopology(sg *model.StageGraph) (*topology, error) {
	k := sg.NumStages()
	t := &topology{
		k:     k,
		preds: make([][]int, k),
		succs: make([][]int, k),
	}
	type pair struct{ src, dst int }
	seen := make(map[pair]struct{}, len(sg.Edges))
	indegree := make([]int, k)
	for _, e := range sg.Edges {
		if !sg.ValidStage(e.Src) || !sg.ValidStage(e.Dst) || e.Src == e.Dst {
			return nil, cerror.ErrUnschedulable.GenWithStackByArgs(
				fmt.Sprintf("invalid stage edge %d -> %d", e.Src, e.Dst))
		}
		p := pair{e.Src, e.Dst}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		t.succs[e.Src] = append(t.succs[e.Src], e.Dst)
		t.preds[e.Dst] = append(t.preds[e.Dst], e.Src)
		indegree[e.Dst]++
	}

	ready := btree.NewG(8, func(a, b int) bool { return a < b })
	for st := 0; st < k; st++ {
		if indegree[st] == 0 {
			ready.ReplaceOrInsert(st)
		}
	}
	for ready.Len() > 0 {
		st, _ := ready.DeleteMin()
		t.order = append(t.order, st)
		for _, d := range t.succs[st] {
			indegree[d]--
			if indegree[d] == 0 {
				ready.ReplaceOrInsert(d)
			}
		}
	}
	if len(t.order) < k {
		return nil, cerror.ErrUnschedulable.GenWithStackByArgs("stage graph is cyclic")
	}
	return t, nil
}

// linearChain returns the stages in pipeline order if the stage graph is a
// single chain: connected, every stage with at most one predecessor and one
// successor.
func (t *topology) linearChain() ([]int, bool) {
	for i := 1; i < t.k; i++ {
		prev, cur := t.order[i-1], t.order[i]
		if len(t.succs[prev]) != 1 || t.succs[prev][0] != cur {
			return nil, false
		}
		if len(t.preds[cur]) != 1 {
			return nil, false
		}
	}
	if len(t.succs[t.order[t.k-1]]) != 0 {
		return nil, false
	}
	return t.order, true
}
