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

package errors

import (
	"github.com/pingcap/errors"
)

// errors
var (
	// graph input errors
	ErrGraphEmpty = errors.Normalize(
		"graph has no nodes",
		errors.RFCCodeText("PIPEPLAN:ErrGraphEmpty"),
	)
	ErrGraphInvalidID = errors.Normalize(
		"invalid %s id %q",
		errors.RFCCodeText("PIPEPLAN:ErrGraphInvalidID"),
	)
	ErrGraphDuplicateID = errors.Normalize(
		"duplicate %s id %s",
		errors.RFCCodeText("PIPEPLAN:ErrGraphDuplicateID"),
	)
	ErrGraphDanglingEdge = errors.Normalize(
		"edge %s references unknown node %s",
		errors.RFCCodeText("PIPEPLAN:ErrGraphDanglingEdge"),
	)
	ErrGraphSelfLoop = errors.Normalize(
		"edge %s is a self loop on node %s",
		errors.RFCCodeText("PIPEPLAN:ErrGraphSelfLoop"),
	)
	ErrGraphInvalidWeight = errors.Normalize(
		"%s %s has invalid weight %v",
		errors.RFCCodeText("PIPEPLAN:ErrGraphInvalidWeight"),
	)
	ErrGraphCycle = errors.Normalize(
		"graph contains a cycle: %s",
		errors.RFCCodeText("PIPEPLAN:ErrGraphCycle"),
	)
	ErrInvalidAssignment = errors.Normalize(
		"invalid stage assignment: %s",
		errors.RFCCodeText("PIPEPLAN:ErrInvalidAssignment"),
	)
	ErrInvalidStageGraph = errors.Normalize(
		"invalid stage graph: %s",
		errors.RFCCodeText("PIPEPLAN:ErrInvalidStageGraph"),
	)
	ErrDecodeArtifact = errors.Normalize(
		"decode %s artifact failed",
		errors.RFCCodeText("PIPEPLAN:ErrDecodeArtifact"),
	)

	// partition errors
	ErrInfeasibleBalance = errors.Normalize(
		"no split into %d stages satisfies balance tolerance %v, "+
			"minimal achievable deviation is %v",
		errors.RFCCodeText("PIPEPLAN:ErrInfeasibleBalance"),
	)
	ErrCyclicStages = errors.Normalize(
		"stage graph contains a cycle: %s",
		errors.RFCCodeText("PIPEPLAN:ErrCyclicStages"),
	)
	ErrExternalSolver = errors.Normalize(
		"external partition solver failed: %s",
		errors.RFCCodeText("PIPEPLAN:ErrExternalSolver"),
	)
	ErrReachMaxTry = errors.Normalize(
		"reach maximum try: %d",
		errors.RFCCodeText("PIPEPLAN:ErrReachMaxTry"),
	)

	// scheduling errors
	ErrUnschedulable = errors.Normalize(
		"unschedulable stage graph: %s",
		errors.RFCCodeText("PIPEPLAN:ErrUnschedulable"),
	)
	ErrScheduleInvalid = errors.Normalize(
		"schedule has %d violation(s)",
		errors.RFCCodeText("PIPEPLAN:ErrScheduleInvalid"),
	)

	// config errors
	ErrInvalidConfig = errors.Normalize(
		"invalid config: %s",
		errors.RFCCodeText("PIPEPLAN:ErrInvalidConfig"),
	)
	ErrDecodeConfigFile = errors.Normalize(
		"decode config file %s failed",
		errors.RFCCodeText("PIPEPLAN:ErrDecodeConfigFile"),
	)
	ErrUnknownConfigOption = errors.Normalize(
		"component %s's config file %s contained unknown configuration options: %s",
		errors.RFCCodeText("PIPEPLAN:ErrUnknownConfigOption"),
	)
	ErrUnknownPolicy = errors.Normalize(
		"unknown schedule policy %s",
		errors.RFCCodeText("PIPEPLAN:ErrUnknownPolicy"),
	)
	ErrUnknownStrategy = errors.Normalize(
		"unknown partition strategy %s",
		errors.RFCCodeText("PIPEPLAN:ErrUnknownStrategy"),
	)
	ErrUnknownFormat = errors.Normalize(
		"unknown %s %s",
		errors.RFCCodeText("PIPEPLAN:ErrUnknownFormat"),
	)

	// io errors
	ErrReadArtifact = errors.Normalize(
		"read artifact %s failed",
		errors.RFCCodeText("PIPEPLAN:ErrReadArtifact"),
	)
	ErrWriteArtifact = errors.Normalize(
		"write artifact %s failed",
		errors.RFCCodeText("PIPEPLAN:ErrWriteArtifact"),
	)
	ErrEncodeArtifact = errors.Normalize(
		"encode %s artifact failed",
		errors.RFCCodeText("PIPEPLAN:ErrEncodeArtifact"),
	)
	ErrCompression = errors.Normalize(
		"%s codec failed",
		errors.RFCCodeText("PIPEPLAN:ErrCompression"),
	)
	ErrPartitionCache = errors.Normalize(
		"partition cache %s failed",
		errors.RFCCodeText("PIPEPLAN:ErrPartitionCache"),
	)
	ErrWriteMetrics = errors.Normalize(
		"write metrics to %s failed",
		errors.RFCCodeText("PIPEPLAN:ErrWriteMetrics"),
	)
)
