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

package cli

import (
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/pipeplan/pkg/cmd/factory"
	"github.com/pingcap/pipeplan/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
)

// partitionFlags are the partitioner flags shared by several commands.
type partitionFlags struct {
	stages          int
	tolerance       float64
	strategy        string
	externalCommand string
	externalTimeout time.Duration
	externalTries   int
	seed            int64
	refinePasses    int
	coarsenDepth    int
	cacheBackend    string
	cacheDir        string
	devices         []string

	withStages bool
}

// addFlags binds the partitioner flags, --stages only when withStages is
// set.
func (o *partitionFlags) addFlags(cmd *cobra.Command, withStages bool) {
	defaultConfig := config.NewDefaultConfig()
	pc := defaultConfig.Partition
	o.withStages = withStages
	if withStages {
		cmd.Flags().IntVarP(&o.stages, "stages", "k", pc.Stages, "number of pipeline stages")
	}
	cmd.Flags().Float64Var(&o.tolerance, "tolerance", pc.Tolerance, "allowed fractional deviation of a stage weight from total/stages")
	cmd.Flags().StringVar(&o.strategy, "strategy", pc.Strategy, "partition strategy (heuristic|external)")
	cmd.Flags().StringVar(&o.externalCommand, "external-cmd", "", "command run by the external strategy")
	cmd.Flags().DurationVar(&o.externalTimeout, "external-timeout", pc.Timeout(), "timeout of one external command run")
	cmd.Flags().IntVar(&o.externalTries, "external-tries", pc.ExternalTries, "runs of a failing external command before falling back")
	cmd.Flags().Int64Var(&o.seed, "seed", pc.Seed, "seed of the refinement tie-breaking")
	cmd.Flags().IntVar(&o.refinePasses, "refine-passes", pc.RefinePasses, "refinement passes, 0 disables refinement")
	cmd.Flags().IntVar(&o.coarsenDepth, "coarsen-depth", pc.CoarsenDepth, "partition nodes grouped by this many scope components, 0 disables coarsening")
	cmd.Flags().StringVar(&o.cacheBackend, "cache-backend", defaultConfig.Cache.Backend, "partition cache backend (none|memory|leveldb|pebble)")
	cmd.Flags().StringVar(&o.cacheDir, "cache-dir", "", "directory of an on-disk partition cache, implies --cache-backend=leveldb unless set")
	cmd.Flags().StringSliceVar(&o.devices, "devices", nil, "devices assigned to the stages in pipeline order")
}

// apply overrides cfg with the flags set on the command line.
func (o *partitionFlags) apply(cmd *cobra.Command, cfg *config.PlannerConfig) {
	backendSet := false
	cmd.Flags().Visit(func(flag *pflag.Flag) {
		switch flag.Name {
		case "stages":
			if o.withStages {
				cfg.Partition.Stages = o.stages
			}
		case "tolerance":
			cfg.Partition.Tolerance = o.tolerance
		case "strategy":
			cfg.Partition.Strategy = o.strategy
		case "external-cmd":
			cfg.Partition.ExternalCommand = o.externalCommand
		case "external-timeout":
			cfg.Partition.ExternalTimeout = config.TomlDuration(o.externalTimeout)
		case "external-tries":
			cfg.Partition.ExternalTries = o.externalTries
		case "seed":
			cfg.Partition.Seed = o.seed
		case "refine-passes":
			cfg.Partition.RefinePasses = o.refinePasses
		case "coarsen-depth":
			cfg.Partition.CoarsenDepth = o.coarsenDepth
		case "cache-backend":
			cfg.Cache.Backend = o.cacheBackend
			backendSet = true
		case "cache-dir":
			cfg.Cache.Dir = o.cacheDir
		case "devices":
			cfg.Partition.Devices = o.devices
		}
	})
	if o.cacheDir != "" && !backendSet && !cfg.Cache.OnDisk() {
		cfg.Cache.Backend = config.CacheBackendLevelDB
	}
}

// scheduleFlags are the scheduler flags shared by several commands.
type scheduleFlags struct {
	microBatches int
	policy       string
}

func (o *scheduleFlags) addFlags(cmd *cobra.Command, withPolicy bool) {
	sc := config.NewDefaultConfig().Schedule
	cmd.Flags().IntVarP(&o.microBatches, "microbatches", "n", sc.MicroBatches, "number of micro-batches")
	if withPolicy {
		cmd.Flags().StringVar(&o.policy, "policy", sc.Policy, "schedule policy (fill_drain|one_forward_one_backward|1f1b)")
	}
}

func (o *scheduleFlags) apply(cmd *cobra.Command, cfg *config.PlannerConfig) {
	cmd.Flags().Visit(func(flag *pflag.Flag) {
		switch flag.Name {
		case "microbatches":
			cfg.Schedule.MicroBatches = o.microBatches
		case "policy":
			cfg.Schedule.Policy = o.policy
		}
	})
}

// runWithFactory completes f with overrides, runs run and closes f.
func runWithFactory(
	cmd *cobra.Command, f factory.Factory, override func(*config.PlannerConfig), run func() error,
) (err error) {
	if err := f.Complete(cmd, override); err != nil {
		return errors.Trace(err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	return run()
}
