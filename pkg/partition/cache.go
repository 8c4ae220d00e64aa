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
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pingcap/log"
	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/pingcap/pipeplan/pkg/graph"
	"go.uber.org/zap"
)

// Cache stores partition results by content key. Implementations must be
// safe for concurrent use.
type Cache interface {
	// Get returns the result stored under key, ok is false on a miss.
	Get(key string) (res *Result, ok bool, err error)
	Put(key string, res *Result) error
	// Invalidate drops the entry stored under key, if any.
	Invalidate(key string) error
	// Purge drops every entry.
	Purge() error
}

// CacheKey returns the content key of a partition run: a hash of the graph
// structure and weights, of every option that affects the result and, for
// StrategyExternal, of the solver identity.
func CacheKey(g *graph.Graph, opts Options, solver ExternalSolver) string {
	h := xxhash.New()
	var buf [8]byte
	writeUint := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	writeString := func(s string) {
		writeUint(uint64(len(s)))
		_, _ = h.WriteString(s)
	}
	writeFloat := func(f float64) {
		writeUint(math.Float64bits(f))
	}

	writeUint(uint64(g.NumNodes()))
	for i := 0; i < g.NumNodes(); i++ {
		n := g.Node(i)
		writeString(n.ID)
		writeFloat(n.Weight)
	}
	writeUint(uint64(g.NumEdges()))
	for j := 0; j < g.NumEdges(); j++ {
		e := g.Edge(j)
		writeString(e.Src)
		writeString(e.Dst)
		writeFloat(e.Weight)
	}
	writeUint(uint64(opts.Stages))
	writeFloat(opts.Tolerance)
	writeString(string(opts.Strategy))
	writeUint(uint64(opts.Seed))
	writeUint(uint64(opts.RefinePasses))
	if opts.Strategy == StrategyExternal {
		writeString(SolverIdentity(solver))
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// MemoryCache is an in-process LRU cache.
type MemoryCache struct {
	cache *lru.Cache
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates a MemoryCache holding at most size results.
func NewMemoryCache(size int) (*MemoryCache, error) {
	cache, err := lru.NewWithEvict(size, func(key, value interface{}) {
		log.Debug("partition result evicted", zap.Any("key", key))
	})
	if err != nil {
		return nil, cerror.WrapError(cerror.ErrInvalidConfig, err, "partition cache size")
	}
	return &MemoryCache{cache: cache}, nil
}

// Get implements Cache.
func (c *MemoryCache) Get(key string) (*Result, bool, error) {
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	return v.(*Result).clone(), true, nil
}

// Put implements Cache.
func (c *MemoryCache) Put(key string, res *Result) error {
	c.cache.Add(key, res.clone())
	return nil
}

// Invalidate implements Cache.
func (c *MemoryCache) Invalidate(key string) error {
	c.cache.Remove(key)
	return nil
}

// Purge implements Cache.
func (c *MemoryCache) Purge() error {
	c.cache.Purge()
	return nil
}

// Len returns the number of cached results.
func (c *MemoryCache) Len() int {
	return c.cache.Len()
}

func (r *Result) clone() *Result {
	cp := *r
	if r.Assignment != nil {
		cp.Assignment = r.Assignment.Clone()
	}
	cp.StageWeights = append([]float64(nil), r.StageWeights...)
	return &cp
}
