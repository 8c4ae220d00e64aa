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
	"fmt"
	"math"
	"strings"

	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/pingcap/pipeplan/pkg/model"
)

// Strategy selects how cut points are chosen.
type Strategy string

// Strategies
const (
	// StrategyHeuristic is the built-in topology respecting heuristic.
	StrategyHeuristic Strategy = "heuristic"
	// StrategyExternal delegates to the configured ExternalSolver and falls
	// back to the heuristic when the solver gives no usable answer.
	StrategyExternal Strategy = "external"
)

// ParseStrategy parses a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyHeuristic:
		return StrategyHeuristic, nil
	case StrategyExternal:
		return StrategyExternal, nil
	default:
		return "", cerror.ErrUnknownStrategy.GenWithStackByArgs(s)
	}
}

// DefaultRefinePasses is the number of local search passes used when
// Options.RefinePasses is not set.
const DefaultRefinePasses = 8

// Options are the parameters of a partition run.
type Options struct {
	// Stages is the number of stages K, at least 1 and at most the number
	// of nodes.
	Stages int
	// Tolerance is the allowed fractional deviation of every stage weight
	// from total/K.
	Tolerance float64
	Strategy  Strategy
	// Seed drives the tie-breaking of the refinement.
	Seed int64
	// RefinePasses bounds the local search, 0 disables it.
	RefinePasses int
}

// NewOptions returns options for k stages with the heuristic strategy and
// the default refinement.
func NewOptions(k int, tolerance float64) Options {
	return Options{
		Stages:       k,
		Tolerance:    tolerance,
		Strategy:     StrategyHeuristic,
		RefinePasses: DefaultRefinePasses,
	}
}

func (o *Options) validate(numNodes int) error {
	if o.Stages < 1 {
		return cerror.ErrInvalidConfig.GenWithStackByArgs(
			fmt.Sprintf("stage count must be at least 1, got %d", o.Stages))
	}
	if o.Stages > numNodes {
		return cerror.ErrInvalidConfig.GenWithStackByArgs(
			fmt.Sprintf("stage count %d exceeds node count %d, empty stages are not allowed",
				o.Stages, numNodes))
	}
	if o.Tolerance < 0 || math.IsNaN(o.Tolerance) || math.IsInf(o.Tolerance, 0) {
		return cerror.ErrInvalidConfig.GenWithStackByArgs(
			fmt.Sprintf("balance tolerance must be a finite non-negative number, got %v", o.Tolerance))
	}
	if o.RefinePasses < 0 {
		return cerror.ErrInvalidConfig.GenWithStackByArgs(
			fmt.Sprintf("refine passes must not be negative, got %d", o.RefinePasses))
	}
	switch o.Strategy {
	case StrategyHeuristic, StrategyExternal:
	case "":
		o.Strategy = StrategyHeuristic
	default:
		return cerror.ErrUnknownStrategy.GenWithStackByArgs(string(o.Strategy))
	}
	return nil
}

// Result is the outcome of a partition run.
type Result struct {
	Assignment   *model.Assignment `json:"assignment" msgpack:"assignment"`
	StageWeights []float64         `json:"stage_weights" msgpack:"stage_weights"`
	CutWeight    float64           `json:"cut_weight" msgpack:"cut_weight"`
	// MaxDeviation is the largest |w - ideal| / ideal over all stages.
	MaxDeviation float64  `json:"max_deviation" msgpack:"max_deviation"`
	Strategy     Strategy `json:"strategy" msgpack:"strategy"`
	// FellBack is set when the requested strategy gave no usable answer and
	// the heuristic was used instead.
	FellBack    bool `json:"fell_back" msgpack:"fell_back"`
	RefineMoves int  `json:"refine_moves" msgpack:"refine_moves"`
	// Cached is set when the result was served from the cache. It is not
	// persisted so that artifacts only depend on the inputs.
	Cached bool `json:"-" msgpack:"-"`
}

// band describes the admissible stage weights.
type band struct {
	ideal float64
	slack float64
}

func newBand(total float64, k int, tolerance float64) band {
	ideal := total / float64(k)
	return band{
		ideal: ideal,
		slack: tolerance*ideal + 1e-9*math.Max(1, ideal),
	}
}

func (b band) contains(w float64) bool {
	return math.Abs(w-b.ideal) <= b.slack
}

func (b band) upper() float64 {
	return b.ideal + b.slack
}

// deviation returns |w - ideal| / ideal, 0 for an all zero graph.
func (b band) deviation(w float64) float64 {
	if b.ideal == 0 {
		return 0
	}
	return math.Abs(w-b.ideal) / b.ideal
}
