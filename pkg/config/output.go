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
	"github.com/pingcap/errors"
	"github.com/pingcap/pipeplan/pkg/artifact"
	"github.com/pingcap/pipeplan/pkg/compression"
)

// OutputConfig selects how artifacts are written.
type OutputConfig struct {
	// Format is "json" or "msgpack". A format implied by the output file
	// name takes precedence.
	Format string `toml:"format" json:"format"`
	// Compression is "none", "snappy", "lz4" or "zstd".
	Compression string `toml:"compression" json:"compression"`
	// MetricsFile receives the prometheus metrics in text format when set.
	MetricsFile string `toml:"metrics-file" json:"metrics-file"`
}

// ValidateAndAdjust validates and adjusts the output configuration
func (c *OutputConfig) ValidateAndAdjust() error {
	f, err := artifact.ParseFormat(c.Format)
	if err != nil {
		return errors.Trace(err)
	}
	c.Format = string(f)
	cc, err := compression.ParseCodec(c.Compression)
	if err != nil {
		return errors.Trace(err)
	}
	c.Compression = string(cc)
	return nil
}

// ArtifactOptions converts the section into artifact options.
func (c *OutputConfig) ArtifactOptions() artifact.Options {
	return artifact.Options{
		Format:      artifact.Format(c.Format),
		Compression: compression.Codec(c.Compression),
	}
}

// CompareConfig configures the comparison of candidate plans.
type CompareConfig struct {
	// Concurrency bounds the candidates evaluated at the same time.
	//
	// The default value is 4.
	Concurrency int `toml:"concurrency" json:"concurrency"`
}

// ValidateAndAdjust validates and adjusts the compare configuration
func (c *CompareConfig) ValidateAndAdjust() error {
	if c.Concurrency <= 0 {
		c.Concurrency = defaultPlannerConfig.Compare.Concurrency
	}
	return nil
}
