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
	"github.com/pingcap/pipeplan/pkg/validator"
	"github.com/spf13/cobra"
)

// validationReport is written by the `validate` command.
type validationReport struct {
	Valid      bool                  `json:"valid" msgpack:"valid"`
	Makespan   int                   `json:"makespan" msgpack:"makespan"`
	Violations []validator.Violation `json:"violations" msgpack:"violations"`
}

// validateOptions defines flags for the `validate` command.
type validateOptions struct {
	output string
}

// newValidateOptions creates new options for the `validate` command.
func newValidateOptions() *validateOptions {
	return &validateOptions{}
}

// addFlags receives a *cobra.Command reference and binds
// flags related to template printing to it.
func (o *validateOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "report file, standard output when empty")
}

// run runs the `validate` command. The report is written even when the
// schedule is invalid.
func (o *validateOptions) run(cmd *cobra.Command, f factory.Factory, stageGraphFile, scheduleFile string) error {
	sg, err := artifact.ReadStageGraph(stageGraphFile)
	if err != nil {
		return errors.Trace(err)
	}
	sched, err := artifact.ReadSchedule(scheduleFile)
	if err != nil {
		return errors.Trace(err)
	}
	violations := validator.Validate(sg, sched)
	report := &validationReport{
		Valid:      len(violations) == 0,
		Makespan:   sched.Makespan,
		Violations: violations,
	}
	if report.Violations == nil {
		report.Violations = []validator.Violation{}
	}
	if _, err := f.WriteArtifact(cmd, o.output, report); err != nil {
		return errors.Trace(err)
	}
	return validator.Check(sg, sched)
}

// newCmdValidate creates the `validate` command.
func newCmdValidate(f factory.Factory) *cobra.Command {
	o := newValidateOptions()

	command := &cobra.Command{
		Use:   "validate <stage-graph-file> <schedule-file>",
		Short: "Check a schedule against a stage graph",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithFactory(cmd, f, nil, func() error {
				return o.run(cmd, f, args[0], args[1])
			})
		},
	}
	o.addFlags(command)

	return command
}
