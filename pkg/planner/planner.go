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

package planner

import (
	"context"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/pipeplan/pkg/graph"
	"github.com/pingcap/pipeplan/pkg/logutil"
	"github.com/pingcap/pipeplan/pkg/model"
	"github.com/pingcap/pipeplan/pkg/partition"
	"github.com/pingcap/pipeplan/pkg/scheduler"
	"github.com/pingcap/pipeplan/pkg/stagegraph"
	"github.com/pingcap/pipeplan/pkg/validator"
	"go.uber.org/zap"
)

// Request describes one plan.
type Request struct {
	Partition    partition.Options
	MicroBatches int
	Policy       model.Policy
	// CoarsenDepth partitions a scope-coarsened graph when positive.
	CoarsenDepth int
	// Devices places the stages when set.
	Devices []string
}

// Plan bundles every artifact of a planning run.
type Plan struct {
	Partition  *partition.Result `json:"partition" msgpack:"partition"`
	StageGraph *model.StageGraph `json:"stage_graph" msgpack:"stage_graph"`
	Schedule   *model.Schedule   `json:"schedule,omitempty" msgpack:"schedule,omitempty"`
}

// Planner runs the partitioner, the stage graph builder, the scheduler and
// the validator in sequence.
type Planner struct {
	partitioner *partition.Partitioner
	scheduler   *scheduler.Scheduler
	logger      *zap.Logger
}

// New creates a Planner over p.
func New(p *partition.Partitioner) *Planner {
	return &Planner{
		partitioner: p,
		scheduler:   scheduler.New(),
		logger:      logutil.NewLogger4Component("planner"),
	}
}

// Partition partitions g, through its scope coarsening when coarsenDepth is
// positive, and builds the stage graph of the result over g.
func (p *Planner) Partition(
	ctx context.Context, g *graph.Graph, opts partition.Options, coarsenDepth int,
) (*partition.Result, *model.StageGraph, error) {
	if coarsenDepth <= 0 {
		res, err := p.partitioner.Partition(ctx, g, opts)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		sg, err := stagegraph.Build(g, res.Assignment)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		return res, sg, nil
	}

	coarse, mapping, err := graph.CoarsenByScope(g, coarsenDepth)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	p.logger.Info("graph coarsened",
		zap.Int("depth", coarsenDepth),
		zap.Int("nodes", g.NumNodes()),
		zap.Int("coarseNodes", coarse.NumNodes()))
	res, err := p.partitioner.Partition(ctx, coarse, opts)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	expanded, err := partition.Expand(res.Assignment, mapping)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	sg, err := stagegraph.Build(g, expanded)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	out := *res
	out.Assignment = expanded
	out.CutWeight = sg.CutWeight()
	return &out, sg, nil
}

// Schedule schedules sg and checks the result with the validator.
func (p *Planner) Schedule(sg *model.StageGraph, microBatches int, policy model.Policy) (*model.Schedule, error) {
	sched, err := p.scheduler.Schedule(sg, microBatches, policy)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := validator.Check(sg, sched); err != nil {
		p.logger.Error("scheduler produced an invalid schedule", zap.Error(err))
		return nil, errors.Trace(err)
	}
	return sched, nil
}

// Plan runs the whole pipeline for req.
func (p *Planner) Plan(ctx context.Context, g *graph.Graph, req Request) (*Plan, error) {
	start := time.Now()
	res, sg, err := p.Partition(ctx, g, req.Partition, req.CoarsenDepth)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(req.Devices) > 0 {
		if sg, err = stagegraph.Place(g, sg, req.Devices); err != nil {
			return nil, errors.Trace(err)
		}
	}
	sched, err := p.Schedule(sg, req.MicroBatches, req.Policy)
	if err != nil {
		return nil, errors.Trace(err)
	}
	p.logger.Info("plan finished",
		zap.Int("stages", sg.NumStages()),
		zap.Float64("cutWeight", res.CutWeight),
		zap.Int("makespan", sched.Makespan),
		zap.Duration("duration", time.Since(start)))
	return &Plan{Partition: res, StageGraph: sg, Schedule: sched}, nil
}
