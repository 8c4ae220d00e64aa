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
	"github.com/pingcap/pipeplan/pkg/stagegraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// partitionOptions defines flags for the `partition` command.
type partitionOptions struct {
	partitionFlags
	output           string
	stageGraphOutput string
}

// newPartitionOptions creates new options for the `partition` command.
func newPartitionOptions() *partitionOptions {
	return &partitionOptions{}
}

// addFlags receives a *cobra.Command reference and binds
// flags related to template printing to it.
func (o *partitionOptions) addFlags(cmd *cobra.Command) {
	o.partitionFlags.addFlags(cmd, true)
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "partition result file, standard output when empty")
	cmd.Flags().StringVar(&o.stageGraphOutput, "stage-graph-output", "", "also write the stage graph to this file")
}

// run runs the `partition` command.
func (o *partitionOptions) run(cmd *cobra.Command, f factory.Factory, graphFile string) error {
	cfg := f.Config()
	g, err := artifact.ReadGraph(graphFile)
	if err != nil {
		return errors.Trace(err)
	}
	p, err := f.Planner()
	if err != nil {
		return errors.Trace(err)
	}
	res, sg, err := p.Partition(cmd.Context(), g, cfg.Partition.Options(), cfg.Partition.CoarsenDepth)
	if err != nil {
		return errors.Trace(err)
	}
	if len(cfg.Partition.Devices) > 0 {
		if sg, err = stagegraph.Place(g, sg, cfg.Partition.Devices); err != nil {
			return errors.Trace(err)
		}
	}
	size, err := f.WriteArtifact(cmd, o.output, res)
	if err != nil {
		return errors.Trace(err)
	}
	if o.stageGraphOutput != "" {
		n, err := f.WriteArtifact(cmd, o.stageGraphOutput, sg)
		if err != nil {
			return errors.Trace(err)
		}
		size += n
	}
	log.Info("partition finished",
		zap.String("graph", graphFile),
		zap.Int("stages", sg.NumStages()),
		zap.String("strategy", string(res.Strategy)),
		zap.Bool("fellBack", res.FellBack),
		zap.Bool("cached", res.Cached),
		zap.Float64("cutWeight", res.CutWeight),
		zap.Float64("maxDeviation", res.MaxDeviation),
		zap.String("written", units.HumanSize(float64(size))))
	return nil
}

// newCmdPartition creates the `partition` command.
func newCmdPartition(f factory.Factory) *cobra.Command {
	o := newPartitionOptions()

	command := &cobra.Command{
		Use:   "partition <graph-file>",
		Short: "Split a graph into balanced pipeline stages",
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
