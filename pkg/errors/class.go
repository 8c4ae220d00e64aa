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

// Class groups errors by how the caller is expected to react to them.
type Class int

// Error classes
const (
	// ClassUnknown is used for errors that are not declared in this package.
	ClassUnknown Class = iota
	// ClassInput is malformed graph or artifact input.
	ClassInput
	// ClassInfeasible means the balance constraint cannot be met.
	ClassInfeasible
	// ClassStructural means the partition induces a cyclic stage graph.
	ClassStructural
	// ClassScheduling marks internal scheduling defects.
	ClassScheduling
	// ClassConfig is invalid parameters or configuration.
	ClassConfig
	// ClassIO is reading, writing or encoding failures.
	ClassIO
)

var classNames = map[Class]string{
	ClassUnknown:    "unknown",
	ClassInput:      "input",
	ClassInfeasible: "infeasible",
	ClassStructural: "structural",
	ClassScheduling: "scheduling",
	ClassConfig:     "config",
	ClassIO:         "io",
}

// String implements fmt.Stringer.
func (c Class) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return classNames[ClassUnknown]
}

// ExitCode returns the process exit code reported by the command line for
// errors of this class.
func (c Class) ExitCode() int {
	switch c {
	case ClassInput:
		return 2
	case ClassInfeasible:
		return 3
	case ClassStructural:
		return 4
	case ClassScheduling:
		return 5
	case ClassConfig:
		return 6
	case ClassIO:
		return 7
	default:
		return 1
	}
}

type classEntry struct {
	err   *errors.Error
	class Class
}

var classTable = []classEntry{
	{ErrGraphEmpty, ClassInput},
	{ErrGraphInvalidID, ClassInput},
	{ErrGraphDuplicateID, ClassInput},
	{ErrGraphDanglingEdge, ClassInput},
	{ErrGraphSelfLoop, ClassInput},
	{ErrGraphInvalidWeight, ClassInput},
	{ErrGraphCycle, ClassInput},
	{ErrInvalidAssignment, ClassInput},
	{ErrInvalidStageGraph, ClassInput},
	{ErrDecodeArtifact, ClassInput},

	{ErrInfeasibleBalance, ClassInfeasible},

	{ErrCyclicStages, ClassStructural},
	{ErrExternalSolver, ClassStructural},

	{ErrUnschedulable, ClassScheduling},
	{ErrScheduleInvalid, ClassScheduling},

	{ErrInvalidConfig, ClassConfig},
	{ErrDecodeConfigFile, ClassConfig},
	{ErrUnknownConfigOption, ClassConfig},
	{ErrUnknownPolicy, ClassConfig},
	{ErrUnknownStrategy, ClassConfig},
	{ErrUnknownFormat, ClassConfig},

	{ErrReadArtifact, ClassIO},
	{ErrWriteArtifact, ClassIO},
	{ErrEncodeArtifact, ClassIO},
	{ErrCompression, ClassIO},
	{ErrPartitionCache, ClassIO},
	{ErrWriteMetrics, ClassIO},
}

// ClassOf returns the class of err. The outermost normalized error in the
// wrap chain wins, so a WrapError result is classified by its wrapper.
func ClassOf(err error) Class {
	for err != nil {
		if rerr, ok := err.(*errors.Error); ok {
			for _, entry := range classTable {
				if entry.err.RFCCode() == rerr.RFCCode() {
					return entry.class
				}
			}
		}
		err = unwrapOnce(err)
	}
	return ClassUnknown
}

func unwrapOnce(err error) error {
	switch e := err.(type) {
	case interface{ Unwrap() error }:
		return e.Unwrap()
	case interface{ Cause() error }:
		return e.Cause()
	default:
		return nil
	}
}
