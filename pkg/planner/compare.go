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

	"github.com/pingcap/errors"
	"github.com/pingcap/pipeplan/pkg/graph"
	"github.com/pingcap/pipeplan/pkg/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Summary is the outcome of one candidate of Compare.
type Summary struct {
	Stages       int          `json:"stages" msgpack:"stages"`
	Tolerance    float64      `json:"tolerance" msgpack:"tolerance"`
	MicroBatches int          `json:"micro_batches" msgpack:"micro_batches"`
	Policy       model.Policy `json:"policy" msgpack:"policy"`
	Strategy     string       `json:"strategy" msgpack:"strategy"`
	FellBack     bool         `json:"fell_back" msgpack:"fell_back"`
	CutWeight    float64      `json:"cut_weight" msgpack:"cut_weight"`
	MaxDeviation float64      `json:"max_deviation" msgpack:"max_deviation"`
	Makespan     int          `json:"makespan" msgpack:"makespan"`
	BubbleRatio  float64      `json:"bubble_ratio" msgpack:"bubble_ratio"`
}

// Compare plans every candidate with at most limit of them in flight and
// returns their summaries in candidate order. The first failure cancels the
// remaining candidates.
func (p *Planner) Compare(ctx context.Context, g *graph.Graph, candidates []Request, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 1
	}
	summaries := make([]Summary, len(candidates))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i := range candidates {
		i, req := i, candidates[i]
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return errors.Trace(err)
			}
			plan, err := p.Plan(ctx, g, req)
			if err != nil {
				return errors.Annotatef(err, "candidate %d (stages=%d, policy=%s)",
					i, req.Partition.Stages, req.Policy)
			}
			summaries[i] = Summary{
				Stages:       req.Partition.Stages,
				Tolerance:    req.Partition.Tolerance,
				MicroBatches: req.MicroBatches,
				Policy:       req.Policy,
				Strategy:     string(plan.Partition.Strategy),
				FellBack:     plan.Partition.FellBack,
				CutWeight:    plan.Partition.CutWeight,
				MaxDeviation: plan.Partition.MaxDeviation,
				Makespan:     plan.Schedule.Makespan,
				BubbleRatio:  plan.Schedule.BubbleRatio,
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, errors.Trace(err)
	}
	p.logger.Info("comparison finished", zap.Int("candidates", len(candidates)), zap.Int("limit", limit))
	return summaries, nil
}
