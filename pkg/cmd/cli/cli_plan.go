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
	"github.com/docker/go-units"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/pingcap/pipeplan/pkg/artifact"
	"github.com/pingcap/pipeplan/pkg/cmd/factory"
	"github.com/pingcap/pipeplan/pkg/config"
	"github.com/pingcap/pipeplan/pkg/model"
	"github.com/pingcap/pipeplan/pkg/planner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// planOptions defines flags for the `plan` command.
type planOptions struct {
	partitionFlags
	scheduleFlags
	output string
}

// newPlanOptions creates new options for the `plan` command.
func newPlanOptions() *planOptions {
	return &planOptions{}
}

// addFlags receives a *cobra.Command reference and binds
// flags related to template printing to it.
func (o *planOptions) addFlags(cmd *cobra.Command) {
	o.partitionFlags.addFlags(cmd, true)
	o.scheduleFlags.addFlags(cmd, true)
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "plan bundle file, standard output when empty")
}

func (o *planOptions) apply(cmd *cobra.Command, cfg *config.PlannerConfig) {
	o.partitionFlags.apply(cmd, cfg)
	o.scheduleFlags.apply(cmd, cfg)
}

// run runs the `plan` command.
func (o *planOptions) run(cmd *cobra.Command, f factory.Factory, graphFile string) error {
	cfg := f.Config()
	g, err := artifact.ReadGraph(graphFile)
	if err != nil {
		return errors.Trace(err)
	}
	p, err := f.Planner()
	if err != nil {
		return errors.Trace(err)
	}
	plan, err := p.Plan(cmd.Context(), g, planner.Request{
		Partition:    cfg.Partition.Options(),
		MicroBatches: cfg.Schedule.MicroBatches,
		Policy:       model.Policy(cfg.Schedule.Policy),
		CoarsenDepth: cfg.Partition.CoarsenDepth,
		Devices:      cfg.Partition.Devices,
	})
	if err != nil {
		return errors.Trace(err)
	}
	size, err := f.WriteArtifact(cmd, o.output, plan)
	if err != nil {
		return errors.Trace(err)
	}
	log.Info("plan finished",
		zap.String("graph", graphFile),
		zap.Int("stages", plan.StageGraph.NumStages()),
		zap.String("policy", string(plan.Schedule.Policy)),
		zap.Int("makespan", plan.Schedule.Makespan),
		zap.Float64("bubbleRatio", plan.Schedule.BubbleRatio),
		zap.Float64("cutWeight", plan.Partition.CutWeight),
		zap.String("written", units.HumanSize(float64(size))))
	return nil
}

// newCmdPlan creates the `plan` command.
func newCmdPlan(f factory.Factory) *cobra.Command {
	o := newPlanOptions()

	command := &cobra.Command{
		Use:   "plan <graph-file>",
		Short: "Partition a graph, schedule it and validate the schedule",
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
