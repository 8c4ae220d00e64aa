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
	"testing"
	"time"

	"github.com/pingcap/pipeplan/pkg/compression"
	"github.com/pingcap/pipeplan/pkg/db"
	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/pingcap/pipeplan/pkg/graph"
	"github.com/pingcap/pipeplan/pkg/model"
	"github.com/stretchr/testify/require"
)

func TestCacheKey(t *testing.T) {
	t.Parallel()

	g1 := randomDAG(t, 1, 20)
	g2 := randomDAG(t, 1, 20)
	opts := NewOptions(3, 0.2)
	require.Equal(t, CacheKey(g1, opts, nil), CacheKey(g2, opts, nil))
	require.Len(t, CacheKey(g1, opts, nil), 16)

	changed := []Options{opts, opts, opts, opts, opts}
	changed[0].Stages = 4
	changed[1].Tolerance = 0.3
	changed[2].Strategy = StrategyExternal
	changed[3].Seed = 9
	changed[4].RefinePasses = 1
	seen := map[string]struct{}{CacheKey(g1, opts, nil): {}}
	for _, o := range changed {
		key := CacheKey(g1, o, nil)
		require.NotContains(t, seen, key)
		seen[key] = struct{}{}
	}
	require.NotEqual(t, CacheKey(g1, opts, nil), CacheKey(randomDAG(t, 2, 20), opts, nil))

	// Only an edge weight differs.
	a, err := graph.NewBuilder().AddNode("x", 1).AddNode("y", 1).AddEdge("x", "y", 1).Build()
	require.NoError(t, err)
	b, err := graph.NewBuilder().AddNode("x", 1).AddNode("y", 1).AddEdge("x", "y", 2).Build()
	require.NoError(t, err)
	require.NotEqual(t, CacheKey(a, opts, nil), CacheKey(b, opts, nil))
}

func testCache(t *testing.T, cache Cache) {
	ctx := context.Background()
	g := randomDAG(t, 3, 30)
	opts := NewOptions(4, 0.5)
	p := New(WithCache(cache))

	first, err := p.Partition(ctx, g, opts)
	require.NoError(t, err)
	require.False(t, first.Cached)

	second, err := p.Partition(ctx, g, opts)
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.True(t, first.Assignment.Equal(second.Assignment))
	require.Equal(t, first.StageWeights, second.StageWeights)
	require.Equal(t, first.CutWeight, second.CutWeight)

	// Mutating a returned result must not leak into the cache.
	second.Assignment.Set(g.Node(0).ID, 3)
	third, ok, err := cache.Get(CacheKey(g, opts, nil))
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, first.Assignment.Equal(third.Assignment))

	key := CacheKey(g, opts, nil)
	require.NoError(t, cache.Invalidate(key))
	_, ok, err = cache.Get(key)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = p.Partition(ctx, g, opts)
	require.NoError(t, err)
	require.NoError(t, cache.Purge())
	_, ok, err = cache.Get(key)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryCache(t *testing.T) {
	t.Parallel()

	cache, err := NewMemoryCache(2)
	require.NoError(t, err)
	testCache(t, cache)

	for i := 0; i < 3; i++ {
		require.NoError(t, cache.Put(string(rune('a'+i)), &Result{Assignment: nil}))
	}
	require.Equal(t, 2, cache.Len())
	_, ok, _ := cache.Get("a")
	require.False(t, ok)

	_, err = NewMemoryCache(0)
	require.Error(t, err)
}

func TestStoreCache(t *testing.T) {
	t.Parallel()

	for _, backend := range []db.Backend{db.BackendLevelDB, db.BackendPebble} {
		store, err := db.Open(backend, t.TempDir())
		require.NoError(t, err)
		testCache(t, NewStoreCache(store, compression.Zstd))
		require.NoError(t, store.Close())
	}
}

func TestStoreCacheSurvivesReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	g := randomDAG(t, 5, 25)
	opts := NewOptions(3, 0.5)

	store, err := db.OpenLevelDB(dir)
	require.NoError(t, err)
	first, err := New(WithCache(NewStoreCache(store, compression.Snappy))).
		Partition(context.Background(), g, opts)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = db.OpenLevelDB(dir)
	require.NoError(t, err)
	defer store.Close()
	second, err := New(WithCache(NewStoreCache(store, compression.Snappy))).
		Partition(context.Background(), g, opts)
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.True(t, first.Assignment.Equal(second.Assignment))
}

func TestCacheKeySolverIdentity(t *testing.T) {
	t.Parallel()

	g := randomDAG(t, 1, 20)
	heuristic := NewOptions(3, 0.2)
	external := heuristic
	external.Strategy = StrategyExternal

	fast, err := NewExecSolver("solver --fast", 0)
	require.NoError(t, err)
	fastAgain, err := NewExecSolver(`solver "--fast"`, time.Minute)
	require.NoError(t, err)
	slow, err := NewExecSolver("solver --slow", 0)
	require.NoError(t, err)

	require.Equal(t, CacheKey(g, external, fast), CacheKey(g, external, fastAgain))
	require.NotEqual(t, CacheKey(g, external, fast), CacheKey(g, external, slow))
	// The solver is not consulted by the heuristic strategy.
	require.Equal(t, CacheKey(g, heuristic, fast), CacheKey(g, heuristic, slow))
}

func TestCacheSkipsFallback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := chain(t, 1, 1, 1, 1)
	opts := Options{Stages: 2, Strategy: StrategyExternal}
	calls := 0
	recovering := ExternalFunc(func(context.Context, *graph.Graph, int) (*model.Assignment, error) {
		calls++
		if calls == 1 {
			return nil, cerror.ErrExternalSolver.GenWithStackByArgs("solver unavailable")
		}
		a := model.NewAssignment(2)
		for id, s := range map[string]int{"l00": 0, "l01": 0, "l02": 1, "l03": 1} {
			a.Set(id, s)
		}
		return a, nil
	})
	cache, err := NewMemoryCache(8)
	require.NoError(t, err)
	p := New(WithExternalSolver(recovering), WithCache(cache))

	first, err := p.Partition(ctx, g, opts)
	require.NoError(t, err)
	require.True(t, first.FellBack)
	require.Zero(t, cache.Len())

	second, err := p.Partition(ctx, g, opts)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.False(t, second.Cached)
	require.False(t, second.FellBack)
	require.Equal(t, StrategyExternal, second.Strategy)

	third, err := p.Partition(ctx, g, opts)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.True(t, third.Cached)
	require.Equal(t, StrategyExternal, third.Strategy)
}
