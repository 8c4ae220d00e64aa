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
	"os"
	"path/filepath"
	"testing"
	"time"

	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/pingcap/pipeplan/pkg/graph"
	"github.com/pingcap/pipeplan/pkg/model"
	"github.com/stretchr/testify/require"
)

func fixedSolver(stages map[string]int, k int) ExternalFunc {
	return func(_ context.Context, _ *graph.Graph, _ int) (*model.Assignment, error) {
		a := model.NewAssignment(k)
		for id, s := range stages {
			a.Set(id, s)
		}
		return a, nil
	}
}

func TestExternalStrategy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := chain(t, 1, 1, 1, 1)
	opts := Options{Stages: 2, Strategy: StrategyExternal}

	heuristic, err := New().Partition(ctx, g, NewOptions(2, 0))
	require.NoError(t, err)

	good := fixedSolver(map[string]int{"l00": 0, "l01": 0, "l02": 1, "l03": 1}, 2)
	res, err := New(WithExternalSolver(good)).Partition(ctx, g, opts)
	require.NoError(t, err)
	require.Equal(t, StrategyExternal, res.Strategy)
	require.False(t, res.FellBack)
	require.InDelta(t, 1, res.CutWeight, 1e-9)

	rejected := map[string]ExternalSolver{
		"no answer": ExternalFunc(func(context.Context, *graph.Graph, int) (*model.Assignment, error) {
			return nil, nil
		}),
		"error": ExternalFunc(func(context.Context, *graph.Graph, int) (*model.Assignment, error) {
			return nil, cerror.ErrExternalSolver.GenWithStackByArgs("solver crashed")
		}),
		"cyclic":           fixedSolver(map[string]int{"l00": 0, "l01": 1, "l02": 0, "l03": 1}, 2),
		"unbalanced":       fixedSolver(map[string]int{"l00": 0, "l01": 1, "l02": 1, "l03": 1}, 2),
		"missing node":     fixedSolver(map[string]int{"l00": 0, "l01": 0, "l02": 1}, 2),
		"empty stage":      fixedSolver(map[string]int{"l00": 0, "l01": 0, "l02": 0, "l03": 0}, 2),
		"out of range":     fixedSolver(map[string]int{"l00": 0, "l01": 0, "l02": 1, "l03": 5}, 2),
		"wrong k":          fixedSolver(map[string]int{"l00": 0, "l01": 0, "l02": 1, "l03": 2}, 3),
		"foreign node ids": fixedSolver(map[string]int{"x": 0, "y": 1}, 2),
	}
	for name, solver := range rejected {
		res, err := New(WithExternalSolver(solver)).Partition(ctx, g, opts)
		require.NoError(t, err, name)
		require.True(t, res.FellBack, name)
		require.Equal(t, StrategyHeuristic, res.Strategy, name)
		require.True(t, heuristic.Assignment.Equal(res.Assignment), name)
		requireValidResult(t, g, opts, res)
	}
}

func TestExternalStrategyInfeasibleFallback(t *testing.T) {
	t.Parallel()

	// The solver answer is rejected and the heuristic cannot satisfy the
	// band either, so the infeasibility is reported.
	g := chain(t, 10, 1, 1, 1, 1)
	solver := fixedSolver(map[string]int{"l00": 0, "l01": 1, "l02": 1, "l03": 1, "l04": 1}, 2)
	_, err := New(WithExternalSolver(solver)).Partition(context.Background(), g,
		Options{Stages: 2, Tolerance: 0.1, Strategy: StrategyExternal})
	require.True(t, cerror.Is(err, cerror.ErrInfeasibleBalance), "%v", err)
}

func writeScript(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "solver.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestExecSolver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := chain(t, 1, 1, 1, 1)

	script := writeScript(t, `
input=$(cat)
case "$input" in
  *'"stages":2'*) ;;
  *) exit 3 ;;
esac
echo '{"stages":{"l00":0,"l01":0,"l02":1,"l03":1}}'
`)
	solver, err := NewExecSolver(script, time.Minute)
	require.NoError(t, err)
	a, err := solver.Partition(ctx, g, 2)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"l00", "l01"}, {"l02", "l03"}}, a.StageNodes())

	res, err := New(WithExternalSolver(solver)).Partition(ctx, g, Options{Stages: 2, Strategy: StrategyExternal})
	require.NoError(t, err)
	require.Equal(t, StrategyExternal, res.Strategy)

	silent, err := NewExecSolver(writeScript(t, "cat > /dev/null\n"), 0)
	require.NoError(t, err)
	a, err = silent.Partition(ctx, g, 2)
	require.NoError(t, err)
	require.Nil(t, a)

	failing, err := NewExecSolver(writeScript(t, "echo boom >&2\nexit 1\n"), 0)
	require.NoError(t, err)
	_, err = failing.Partition(ctx, g, 2)
	require.True(t, cerror.Is(err, cerror.ErrExternalSolver), "%v", err)

	garbage, err := NewExecSolver(writeScript(t, "cat > /dev/null\necho not-json\n"), 0)
	require.NoError(t, err)
	_, err = garbage.Partition(ctx, g, 2)
	require.True(t, cerror.Is(err, cerror.ErrExternalSolver), "%v", err)
}

func TestNewExecSolverInvalidCommand(t *testing.T) {
	t.Parallel()

	_, err := NewExecSolver("   ", 0)
	require.True(t, cerror.Is(err, cerror.ErrInvalidConfig))
	_, err = NewExecSolver(`solver "unterminated`, 0)
	require.True(t, cerror.Is(err, cerror.ErrInvalidConfig))
}

func TestExecSolverRetry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := chain(t, 1, 1, 1, 1)
	// flaky fails on its first run only.
	flaky := func() string {
		marker := filepath.Join(t.TempDir(), "failed-once")
		return writeScript(t, `
cat > /dev/null
if [ ! -f '`+marker+`' ]; then
  touch '`+marker+`'
  exit 1
fi
echo '{"stages":{"l00":0,"l01":0,"l02":1,"l03":1}}'
`)
	}

	once, err := NewExecSolver(flaky(), 0)
	require.NoError(t, err)
	_, err = once.Partition(ctx, g, 2)
	require.True(t, cerror.Is(err, cerror.ErrReachMaxTry), "%v", err)

	retried, err := NewExecSolver(flaky(), 0, WithExecTries(3))
	require.NoError(t, err)
	a, err := retried.Partition(ctx, g, 2)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"l00", "l01"}, {"l02", "l03"}}, a.StageNodes())
}
