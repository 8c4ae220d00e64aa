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
	"github.com/pingcap/errors"
	"github.com/pingcap/pipeplan/pkg/artifact"
	"github.com/pingcap/pipeplan/pkg/cmd/factory"
	"github.com/pingcap/pipeplan/pkg/config"
	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/pingcap/pipeplan/pkg/model"
	"github.com/pingcap/pipeplan/pkg/planner"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// compareOptions defines flags for the `compare` command.
type compareOptions struct {
	partitionFlags
	scheduleFlags
	stageCounts []int
	policies    []string
	concurrency int
	output      string
}

// newCompareOptions creates new options for the `compare` command.
func newCompareOptions() *compareOptions {
	return &compareOptions{}
}

// addFlags receives a *cobra.Command reference and binds
// flags related to template printing to it.
func (o *compareOptions) addFlags(cmd *cobra.Command) {
	o.partitionFlags.addFlags(cmd, false)
	o.scheduleFlags.addFlags(cmd, false)
	cmd.Flags().IntSliceVarP(&o.stageCounts, "stages", "k", nil, "stage counts to compare")
	cmd.Flags().StringSliceVar(&o.policies, "policies",
		[]string{string(model.PolicyFillDrain), string(model.PolicyOneFOneB)}, "schedule policies to compare")
	cmd.Flags().IntVar(&o.concurrency, "concurrency", config.NewDefaultConfig().Compare.Concurrency, "candidates planned at the same time")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "report file, standard output when empty")
	// the possible error returned from MarkFlagRequired is `no such flag`
	cmd.MarkFlagRequired("stages") //nolint:errcheck
}

func (o *compareOptions) apply(cmd *cobra.Command, cfg *config.PlannerConfig) {
	o.partitionFlags.apply(cmd, cfg)
	o.scheduleFlags.apply(cmd, cfg)
	cmd.Flags().Visit(func(flag *pflag.Flag) {
		if flag.Name == "concurrency" {
			cfg.Compare.Concurrency = o.concurrency
		}
	})
}

// candidates expands the stage counts and policies into plan requests.
func (o *compareOptions) candidates(cfg *config.PlannerConfig) ([]planner.Request, error) {
	policies := make([]model.Policy, 0, len(o.policies))
	for _, name := range o.policies {
		policy, err := model.ParsePolicy(name)
		if err != nil {
			return nil, errors.Trace(err)
		}
		policies = append(policies, policy)
	}
	requests := make([]planner.Request, 0, len(o.stageCounts)*len(policies))
	for _, k := range o.stageCounts {
		if k < 1 {
			return nil, cerror.ErrInvalidConfig.GenWithStackByArgs("stage counts must be at least 1")
		}
		for _, policy := range policies {
			opts := cfg.Partition.Options()
			opts.Stages = k
			requests = append(requests, planner.Request{
				Partition:    opts,
				MicroBatches: cfg.Schedule.MicroBatches,
				Policy:       policy,
				CoarsenDepth: cfg.Partition.CoarsenDepth,
			})
		}
	}
	return requests, nil
}

// run runs the `compare` command.
func (o *compareOptions) run(cmd *cobra.Command, f factory.Factory, graphFile string) error {
	cfg := f.Config()
	candidates, err := o.candidates(cfg)
	if err != nil {
		return errors.Trace(err)
	}
	g, err := artifact.ReadGraph(graphFile)
	if err != nil {
		return errors.Trace(err)
	}
	p, err := f.Planner()
	if err != nil {
		return errors.Trace(err)
	}
	summaries, err := p.Compare(cmd.Context(), g, candidates, cfg.Compare.Concurrency)
	if err != nil {
		return errors.Trace(err)
	}
	_, err = f.WriteArtifact(cmd, o.output, summaries)
	return errors.Trace(err)
}

// newCmdCompare creates the `compare` command.
func newCmdCompare(f factory.Factory) *cobra.Command {
	o := newCompareOptions()

	command := &cobra.Command{
		Use:   "compare <graph-file>",
		Short: "Plan a graph for several stage counts and policies and report the results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			override := func(cfg *config.PlannerConfig) { o.apply(cmd, cfg) }
			return runWithFactory(cmd, f, override, func() error {
				return o.run(cmd, f, args[0])
			})
		},
	}
	o.addFlags(command)

	return command
}
