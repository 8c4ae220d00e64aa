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

package config

import (
	"strings"

	"github.com/pingcap/errors"
	"github.com/pingcap/pipeplan/pkg/compression"
	"github.com/pingcap/pipeplan/pkg/db"
)

// Cache backends
const (
	CacheBackendNone    = "none"
	CacheBackendMemory  = "memory"
	CacheBackendLevelDB = string(db.BackendLevelDB)
	CacheBackendPebble  = string(db.BackendPebble)
)

// CacheConfig configures the partition cache.
type CacheConfig struct {
	// Backend is one of "none", "memory", "leveldb" or "pebble".
	//
	// The default value is "memory".
	Backend string `toml:"backend" json:"backend"`
	// Dir is the directory of the on-disk backends.
	Dir string `toml:"dir" json:"dir"`
	// Size is the number of results kept by the memory backend.
	//
	// The default value is 128.
	Size int `toml:"size" json:"size"`
	// Compression is the codec applied to results stored on disk.
	//
	// The default value is "snappy".
	Compression string `toml:"compression" json:"compression"`
}

// ValidateAndAdjust validates and adjusts the cache configuration
func (c *CacheConfig) ValidateAndAdjust() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case "":
		c.Backend = CacheBackendMemory
	case CacheBackendNone, CacheBackendMemory:
	case CacheBackendLevelDB, CacheBackendPebble:
		if c.Dir == "" {
			return invalid("cache.dir is required by the %s backend", c.Backend)
		}
	default:
		return invalid("cache.backend must be one of none, memory, leveldb or pebble, got %q", c.Backend)
	}
	if c.Size <= 0 {
		c.Size = defaultPlannerConfig.Cache.Size
	}
	cc, err := compression.ParseCodec(c.Compression)
	if err != nil {
		return errors.Trace(err)
	}
	c.Compression = string(cc)
	return nil
}

// OnDisk returns whether the backend persists results.
func (c *CacheConfig) OnDisk() bool {
	return c.Backend == CacheBackendLevelDB || c.Backend == CacheBackendPebble
}
