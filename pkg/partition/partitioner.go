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
	"fmt"
	"time"

	"github.com/pingcap/errors"
	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/pingcap/pipeplan/pkg/graph"
	"github.com/pingcap/pipeplan/pkg/logutil"
	"github.com/pingcap/pipeplan/pkg/model"
	"github.com/pingcap/pipeplan/pkg/stagegraph"
	"go.uber.org/zap"
)

// Partitioner splits graphs into balanced, low communication stages.
// It holds no per-run state and is safe for concurrent use as long as the
// configured solver and cache are.
type Partitioner struct {
	solver ExternalSolver
	cache  Cache
	logger *zap.Logger
}

// Option configures a Partitioner.
type Option func(*Partitioner)

// WithExternalSolver enables StrategyExternal.
func WithExternalSolver(solver ExternalSolver) Option {
	return func(p *Partitioner) {
		p.solver = solver
	}
}

// WithCache makes the Partitioner look results up in cache before
// computing them and store them afterwards.
func WithCache(cache Cache) Option {
	return func(p *Partitioner) {
		p.cache = cache
	}
}

// New creates a Partitioner.
func New(opts ...Option) *Partitioner {
	p := &Partitioner{
		logger: logutil.NewLogger4Component("partitioner"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Partition assigns every node of g to one of opts.Stages stages.
//
// The result covers every node exactly once, uses every stage, keeps every
// stage weight within opts.Tolerance of the mean and induces an acyclic
// stage graph. Identical inputs give identical results.
func (p *Partitioner) Partition(ctx context.Context, g *graph.Graph, opts Options) (*Result, error) {
	start := time.Now()
	if err := opts.validate(g.NumNodes()); err != nil {
		partitionCounter.WithLabelValues(string(opts.Strategy), "invalid").Inc()
		return nil, errors.Trace(err)
	}
	if opts.Strategy == StrategyExternal && p.solver == nil {
		return nil, cerror.ErrInvalidConfig.GenWithStackByArgs(
			"external strategy requested but no external solver is configured")
	}

	var key string
	if p.cache != nil {
		key = CacheKey(g, opts, p.solver)
		res, ok, err := p.cache.Get(key)
		if err != nil {
			p.logger.Warn("partition cache lookup failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			cacheCounter.WithLabelValues("hit").Inc()
			res.Cached = true
			p.logger.Info("partition served from cache", zap.String("key", key))
			return res, nil
		}
		cacheCounter.WithLabelValues("miss").Inc()
	}

	res, err := p.partition(ctx, g, opts)
	if err != nil {
		partitionCounter.WithLabelValues(string(opts.Strategy), "error").Inc()
		return nil, errors.Trace(err)
	}
	partitionCounter.WithLabelValues(string(opts.Strategy), "ok").Inc()
	cutWeightHistogram.Observe(res.CutWeight)
	refineMovesHistogram.Observe(float64(res.RefineMoves))
	durationHistogram.WithLabelValues(string(opts.Strategy)).Observe(time.Since(start).Seconds())

	// A fallback only says the solver failed this time.
	if p.cache != nil && !res.FellBack {
		if err := p.cache.Put(key, res); err != nil {
			p.logger.Warn("partition cache store failed", zap.String("key", key), zap.Error(err))
		}
	}
	p.logger.Info("partition finished",
		zap.Int("nodes", g.NumNodes()),
		zap.Int("stages", opts.Stages),
		zap.Float64("tolerance", opts.Tolerance),
		zap.String("strategy", string(res.Strategy)),
		zap.Bool("fellBack", res.FellBack),
		zap.Float64("cutWeight", res.CutWeight),
		zap.Float64("maxDeviation", res.MaxDeviation),
		zap.Int("refineMoves", res.RefineMoves),
		zap.Duration("duration", time.Since(start)))
	return res, nil
}

func (p *Partitioner) partition(ctx context.Context, g *graph.Graph, opts Options) (*Result, error) {
	b := newBand(g.TotalWeight(), opts.Stages, opts.Tolerance)
	if opts.Strategy != StrategyExternal {
		return p.heuristic(ctx, g, opts, b)
	}

	res, reason, err := p.external(ctx, g, opts, b)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if res != nil {
		return res, nil
	}
	fallbackCounter.WithLabelValues(reason).Inc()
	p.logger.Warn("external solver gave no usable assignment, fall back to heuristic",
		zap.String("reason", reason))
	res, err = p.heuristic(ctx, g, opts, b)
	if err != nil {
		return nil, errors.Trace(err)
	}
	res.FellBack = true
	return res, nil
}

// external asks the solver and checks its answer. A nil result comes with
// the reason the answer was rejected. Only context errors are returned.
func (p *Partitioner) external(
	ctx context.Context, g *graph.Graph, opts Options, b band,
) (*Result, string, error) {
	a, err := p.solver.Partition(ctx, g, opts.Stages)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, "", errors.Trace(ctxErr)
	}
	if err != nil {
		p.logger.Warn("external solver failed", zap.Error(err))
		return nil, "error", nil
	}
	if a == nil {
		return nil, "no_answer", nil
	}
	if a.Stages != opts.Stages {
		p.logger.Warn("external solver answered with a wrong stage count",
			zap.Int("expected", opts.Stages), zap.Int("actual", a.Stages))
		return nil, "invalid", nil
	}
	res, err := newResult(g, a, b, StrategyExternal)
	switch {
	case cerror.Is(err, cerror.ErrCyclicStages):
		p.logger.Warn("external solver assignment induces cyclic stages", zap.Error(err))
		return nil, "cyclic", nil
	case err != nil:
		p.logger.Warn("external solver assignment is invalid", zap.Error(err))
		return nil, "invalid", nil
	}
	for s, w := range res.StageWeights {
		if !b.contains(w) {
			p.logger.Warn("external solver assignment is unbalanced",
				zap.Int("stage", s), zap.Float64("weight", w), zap.Float64("ideal", b.ideal))
			return nil, "unbalanced", nil
		}
	}
	return res, "", nil
}

func (p *Partitioner) heuristic(
	ctx context.Context, g *graph.Graph, opts Options, b band,
) (*Result, error) {
	stageOf, err := splitTopological(g, opts.Stages, b, opts.Tolerance)
	if err != nil {
		return nil, errors.Trace(err)
	}
	moves := 0
	if opts.RefinePasses > 0 && opts.Stages > 1 {
		r := newRefiner(g, opts.Stages, b, stageOf, opts.Seed)
		if moves, err = r.run(ctx, opts.RefinePasses); err != nil {
			return nil, errors.Trace(err)
		}
	}

	a := model.NewAssignment(opts.Stages)
	for i, s := range stageOf {
		a.Set(g.Node(i).ID, s)
	}
	res, err := newResult(g, a, b, StrategyHeuristic)
	if err != nil {
		// The split and the refinement keep every edge stage monotone.
		return nil, errors.Annotate(err, "heuristic produced an unusable assignment")
	}
	res.RefineMoves = moves
	return res, nil
}

// newResult checks a through the stage graph builder and summarizes it.
func newResult(g *graph.Graph, a *model.Assignment, b band, strategy Strategy) (*Result, error) {
	sg, err := stagegraph.Build(g, a)
	if err != nil {
		return nil, errors.Trace(err)
	}
	res := &Result{
		Assignment:   a,
		StageWeights: make([]float64, sg.NumStages()),
		CutWeight:    sg.CutWeight(),
		Strategy:     strategy,
	}
	for s, st := range sg.Stages {
		res.StageWeights[s] = st.Weight
		if d := b.deviation(st.Weight); d > res.MaxDeviation {
			res.MaxDeviation = d
		}
	}
	return res, nil
}

// Expand maps an assignment of a coarse graph back to the original nodes.
// mapping is the original to coarse node id mapping of graph.CoarsenByScope.
func Expand(a *model.Assignment, mapping map[string]string) (*model.Assignment, error) {
	out := model.NewAssignment(a.Stages)
	for id, coarse := range mapping {
		s, ok := a.Stage(coarse)
		if !ok {
			return nil, cerror.ErrInvalidAssignment.GenWithStackByArgs(
				fmt.Sprintf("coarse node %s of node %s is not assigned", coarse, id))
		}
		out.Set(id, s)
	}
	return out, nil
}
