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

package factory

import (
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/pingcap/pipeplan/pkg/artifact"
	cmdutil "github.com/pingcap/pipeplan/pkg/cmd/util"
	"github.com/pingcap/pipeplan/pkg/compression"
	"github.com/pingcap/pipeplan/pkg/config"
	"github.com/pingcap/pipeplan/pkg/db"
	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/pingcap/pipeplan/pkg/partition"
	"github.com/pingcap/pipeplan/pkg/planner"
	"github.com/pingcap/pipeplan/pkg/scheduler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type factoryImpl struct {
	flags    *GlobalFlags
	cfg      *config.PlannerConfig
	registry *prometheus.Registry

	store       db.DB
	partitioner *partition.Partitioner
}

var _ Factory = &factoryImpl{}

// NewFactory creates a factory bound to flags.
func NewFactory(flags *GlobalFlags) Factory {
	return &factoryImpl{flags: flags}
}

func (f *factoryImpl) Complete(cmd *cobra.Command, overrides ...func(*config.PlannerConfig)) error {
	conf := config.NewDefaultConfig()
	if len(f.flags.configFile) > 0 {
		if err := cmdutil.StrictDecodeFile(f.flags.configFile, "pipeplan", conf); err != nil {
			return errors.Trace(err)
		}
	}
	cmd.Flags().Visit(func(flag *pflag.Flag) {
		switch flag.Name {
		case "log-level":
			conf.Log.Level = f.flags.logLevel
		case "log-file":
			conf.Log.File = f.flags.logFile
		case "format":
			conf.Output.Format = f.flags.format
		case "compression":
			conf.Output.Compression = f.flags.compression
		case "metrics-file":
			conf.Output.MetricsFile = f.flags.metricsFile
		}
	})
	for _, override := range overrides {
		if override != nil {
			override(conf)
		}
	}
	if err := conf.ValidateAndAdjust(); err != nil {
		return errors.Trace(err)
	}
	if err := cmdutil.InitCmd(cmd, conf.Log); err != nil {
		return errors.Trace(err)
	}
	f.cfg = conf
	f.registry = prometheus.NewRegistry()
	db.InitMetrics(f.registry)
	partition.InitMetrics(f.registry)
	scheduler.InitMetrics(f.registry)
	return nil
}

func (f *factoryImpl) Config() *config.PlannerConfig {
	return f.cfg
}

func (f *factoryImpl) Partitioner() (*partition.Partitioner, error) {
	if f.partitioner != nil {
		return f.partitioner, nil
	}
	var opts []partition.Option
	pc := f.cfg.Partition
	if pc.ExternalCommand != "" {
		solver, err := partition.NewExecSolver(pc.ExternalCommand, pc.Timeout(),
			partition.WithExecTries(pc.ExternalTries))
		if err != nil {
			return nil, errors.Trace(err)
		}
		opts = append(opts, partition.WithExternalSolver(solver))
	}
	cache, err := f.newCache()
	if err != nil {
		return nil, errors.Trace(err)
	}
	if cache != nil {
		opts = append(opts, partition.WithCache(cache))
	}
	f.partitioner = partition.New(opts...)
	return f.partitioner, nil
}

func (f *factoryImpl) newCache() (partition.Cache, error) {
	cc := f.cfg.Cache
	switch cc.Backend {
	case config.CacheBackendNone:
		return nil, nil
	case config.CacheBackendMemory:
		cache, err := partition.NewMemoryCache(cc.Size)
		return cache, errors.Trace(err)
	}
	store, err := db.Open(db.Backend(cc.Backend), cc.Dir)
	if err != nil {
		return nil, errors.Trace(err)
	}
	f.store = store
	log.Info("partition cache opened", zap.String("backend", cc.Backend), zap.String("dir", cc.Dir))
	return partition.NewStoreCache(store, compression.Codec(cc.Compression)), nil
}

func (f *factoryImpl) Planner() (*planner.Planner, error) {
	p, err := f.Partitioner()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return planner.New(p), nil
}

func (f *factoryImpl) WriteArtifact(cmd *cobra.Command, path string, v interface{}) (int, error) {
	opts := f.cfg.Output.ArtifactOptions()
	if path == "" || path == "-" {
		n, err := artifact.Write(cmd.OutOrStdout(), v, opts)
		return n, errors.Trace(err)
	}
	if format, cc, ok := artifact.FromFileName(path); ok {
		opts.Format = format
		opts.Compression = cc
	} else if cc != compression.None {
		opts.Compression = cc
	}
	return artifact.Save(path, v, opts)
}

func (f *factoryImpl) Close() error {
	var err error
	if f.cfg != nil && f.cfg.Output.MetricsFile != "" {
		if werr := prometheus.WriteToTextfile(f.cfg.Output.MetricsFile, f.registry); werr != nil {
			err = multierr.Append(err, cerror.WrapError(cerror.ErrWriteMetrics, werr, f.cfg.Output.MetricsFile))
		}
	}
	if f.store != nil {
		err = multierr.Append(err, f.store.Close())
		f.store = nil
	}
	return err
}
