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
	"github.com/pingcap/pipeplan/pkg/model"
	"github.com/spf13/cobra"
)

// scheduleOptions defines flags for the `schedule` command.
type scheduleOptions struct {
	scheduleFlags
	output string
}

// newScheduleOptions creates new options for the `schedule` command.
func newScheduleOptions() *scheduleOptions {
	return &scheduleOptions{}
}

// addFlags receives a *cobra.Command reference and binds
// flags related to template printing to it.
func (o *scheduleOptions) addFlags(cmd *cobra.Command) {
	o.scheduleFlags.addFlags(cmd, true)
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "schedule file, standard output when empty")
}

// run runs the `schedule` command.
func (o *scheduleOptions) run(cmd *cobra.Command, f factory.Factory, stageGraphFile string) error {
	cfg := f.Config()
	sg, err := artifact.ReadStageGraph(stageGraphFile)
	if err != nil {
		return errors.Trace(err)
	}
	p, err := f.Planner()
	if err != nil {
		return errors.Trace(err)
	}
	sched, err := p.Schedule(sg, cfg.Schedule.MicroBatches, model.Policy(cfg.Schedule.Policy))
	if err != nil {
		return errors.Trace(err)
	}
	_, err = f.WriteArtifact(cmd, o.output, sched)
	return errors.Trace(err)
}

// newCmdSchedule creates the `schedule` command.
func newCmdSchedule(f factory.Factory) *cobra.Command {
	o := newScheduleOptions()

	command := &cobra.Command{
		Use:   "schedule <stage-graph-file>",
		Short: "Schedule forward and backward passes of micro-batches over a stage graph",
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
