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
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/pingcap/pipeplan/pkg/partition"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := NewDefaultConfig()
	require.NoError(t, cfg.ValidateAndAdjust())
	require.Equal(t, 1, cfg.Partition.Stages)
	require.Equal(t, "one_forward_one_backward", cfg.Schedule.Policy)
	require.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	require.Equal(t, 30*time.Second, cfg.Partition.Timeout())
	require.Equal(t, "info", cfg.Log.Level)

	opts := cfg.Partition.Options()
	require.Equal(t, partition.StrategyHeuristic, opts.Strategy)
	require.Equal(t, partition.DefaultRefinePasses, opts.RefinePasses)
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	cfg := NewDefaultConfig()
	cfg.Partition.Devices = []string{"gpu0"}
	clone := cfg.Clone()
	require.Equal(t, cfg, clone)
	clone.Partition.Devices[0] = "gpu1"
	clone.Schedule.MicroBatches = 99
	require.Equal(t, "gpu0", cfg.Partition.Devices[0])
	require.Equal(t, 4, NewDefaultConfig().Schedule.MicroBatches)
}

func TestDecodeToml(t *testing.T) {
	t.Parallel()

	const content = `
[log]
level = "debug"

[partition]
stages = 4
tolerance = 0.25
strategy = "External"
external-command = "solver --fast"
external-timeout = "1m30s"
external-tries = 3
devices = ["gpu0", "gpu1", "gpu2", "gpu3"]

[schedule]
micro-batches = 8
policy = "1f1b"

[cache]
backend = "pebble"
dir = "/tmp/pipeplan-cache"
`
	cfg := NewDefaultConfig()
	_, err := toml.Decode(content, cfg)
	require.NoError(t, err)
	require.NoError(t, cfg.ValidateAndAdjust())
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, 4, cfg.Partition.Stages)
	require.Equal(t, "external", cfg.Partition.Strategy)
	require.Equal(t, 90*time.Second, cfg.Partition.Timeout())
	require.Equal(t, 3, cfg.Partition.ExternalTries)
	require.Equal(t, "one_forward_one_backward", cfg.Schedule.Policy)
	require.Equal(t, 8, cfg.Schedule.MicroBatches)
	require.True(t, cfg.Cache.OnDisk())
	// Sections absent from the file keep their defaults.
	require.Equal(t, "snappy", cfg.Cache.Compression)
	require.Equal(t, "json", cfg.Output.Format)
}

func TestValidateAndAdjustFillsMissingSections(t *testing.T) {
	t.Parallel()

	cfg := &PlannerConfig{}
	require.NoError(t, cfg.ValidateAndAdjust())
	require.Equal(t, NewDefaultConfig().Partition, cfg.Partition)
	require.Equal(t, 4, cfg.Compare.Concurrency)
}

func TestValidateAndAdjustErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*PlannerConfig)
		target func(error) bool
	}{
		{"stages", func(c *PlannerConfig) { c.Partition.Stages = 0 }, isInvalidConfig},
		{"tolerance", func(c *PlannerConfig) { c.Partition.Tolerance = -0.5 }, isInvalidConfig},
		{"strategy", func(c *PlannerConfig) { c.Partition.Strategy = "ilp" }, func(err error) bool {
			return cerror.Is(err, cerror.ErrUnknownStrategy)
		}},
		{"external without command", func(c *PlannerConfig) { c.Partition.Strategy = "external" }, isInvalidConfig},
		{"refine passes", func(c *PlannerConfig) { c.Partition.RefinePasses = -1 }, isInvalidConfig},
		{"devices", func(c *PlannerConfig) {
			c.Partition.Stages = 3
			c.Partition.Devices = []string{"gpu0"}
		}, isInvalidConfig},
		{"micro-batches", func(c *PlannerConfig) { c.Schedule.MicroBatches = 0 }, isInvalidConfig},
		{"policy", func(c *PlannerConfig) { c.Schedule.Policy = "zero-bubble" }, func(err error) bool {
			return cerror.Is(err, cerror.ErrUnknownPolicy)
		}},
		{"cache backend", func(c *PlannerConfig) { c.Cache.Backend = "redis" }, isInvalidConfig},
		{"cache dir", func(c *PlannerConfig) { c.Cache.Backend = "leveldb" }, isInvalidConfig},
		{"output format", func(c *PlannerConfig) { c.Output.Format = "yaml" }, func(err error) bool {
			return cerror.Is(err, cerror.ErrUnknownFormat)
		}},
		{"output compression", func(c *PlannerConfig) { c.Output.Compression = "gzip" }, func(err error) bool {
			return cerror.Is(err, cerror.ErrUnknownFormat)
		}},
	}
	for _, tc := range cases {
		cfg := NewDefaultConfig()
		tc.mutate(cfg)
		err := cfg.ValidateAndAdjust()
		require.Error(t, err, tc.name)
		require.True(t, tc.target(err), "%s: %v", tc.name, err)
		require.Equal(t, cerror.ClassConfig, cerror.ClassOf(err), tc.name)
	}
}

func isInvalidConfig(err error) bool {
	return cerror.Is(err, cerror.ErrInvalidConfig)
}
