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
	"github.com/pingcap/pipeplan/pkg/config"
	"github.com/pingcap/pipeplan/pkg/partition"
	"github.com/pingcap/pipeplan/pkg/planner"
	"github.com/spf13/cobra"
)

// Factory defines the construction of the planning components shared by
// all commands.
type Factory interface {
	// Complete loads the configuration file, applies the global flags and
	// then overrides, validates the result and initializes logging. It must
	// be called before any other method.
	Complete(cmd *cobra.Command, overrides ...func(*config.PlannerConfig)) error
	// Config returns the effective configuration.
	Config() *config.PlannerConfig
	Partitioner() (*partition.Partitioner, error)
	Planner() (*planner.Planner, error)
	// WriteArtifact writes v to path, or to the command output when path
	// is empty or "-", and returns the encoded size.
	WriteArtifact(cmd *cobra.Command, path string, v interface{}) (int, error)
	// Close flushes the metrics file and releases the cache store.
	Close() error
}

// GlobalFlags are the flags accepted by every command.
type GlobalFlags struct {
	configFile  string
	logLevel    string
	logFile     string
	format      string
	compression string
	metricsFile string
}

// NewGlobalFlags creates new global flags.
func NewGlobalFlags() *GlobalFlags {
	return &GlobalFlags{}
}

// AddFlags receives a *cobra.Command reference and binds
// the global flags to it.
func (f *GlobalFlags) AddFlags(cmd *cobra.Command) {
	defaultConfig := config.NewDefaultConfig()
	cmd.PersistentFlags().StringVar(&f.configFile, "config", "", "Path of the configuration file")
	cmd.PersistentFlags().StringVar(&f.logLevel, "log-level", defaultConfig.Log.Level, "log level (etc: debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&f.logFile, "log-file", "", "log file path, logs go to stderr when empty")
	cmd.PersistentFlags().StringVar(&f.format, "format", defaultConfig.Output.Format, "artifact format (json|msgpack)")
	cmd.PersistentFlags().StringVar(&f.compression, "compression", defaultConfig.Output.Compression, "artifact compression (none|snappy|lz4|zstd)")
	cmd.PersistentFlags().StringVar(&f.metricsFile, "metrics-file", "", "write prometheus metrics in text format to this file on exit")
}
