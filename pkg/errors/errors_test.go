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
	"io"
	"testing"

	"github.com/pingcap/errors"
	"github.com/stretchr/testify/require"
)

func TestClassOf(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err      error
		class    Class
		exitCode int
	}{
		{nil, ClassUnknown, 0},
		{io.EOF, ClassUnknown, 1},
		{ErrGraphCycle.GenWithStackByArgs("a -> b -> a"), ClassInput, 2},
		{ErrInfeasibleBalance.GenWithStackByArgs(2, 0.1, 0.5), ClassInfeasible, 3},
		{ErrCyclicStages.GenWithStackByArgs("0 -> 1 -> 0"), ClassStructural, 4},
		{ErrUnschedulable.GenWithStackByArgs("stuck"), ClassScheduling, 5},
		{ErrInvalidConfig.GenWithStackByArgs("stages must be positive"), ClassConfig, 6},
		{WrapError(ErrReadArtifact, io.ErrUnexpectedEOF, "g.json"), ClassIO, 7},
		{errors.Trace(ErrGraphDanglingEdge.GenWithStackByArgs("a->x", "x")), ClassInput, 2},
	}
	for _, c := range cases {
		if c.err != nil {
			require.Equal(t, c.class, ClassOf(c.err), c.err.Error())
		}
		require.Equal(t, c.exitCode, ExitCode(c.err))
	}
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	require.Nil(t, WrapError(ErrWriteArtifact, nil, "out.json"))

	err := WrapError(ErrWriteArtifact, io.ErrShortWrite, "out.json")
	require.True(t, Is(err, ErrWriteArtifact))
	require.False(t, Is(err, ErrReadArtifact))
	require.Contains(t, err.Error(), "out.json")

	code, ok := RFCCode(err)
	require.True(t, ok)
	require.Equal(t, ErrWriteArtifact.RFCCode(), code)

	_, ok = RFCCode(io.EOF)
	require.False(t, ok)
}

func TestClassString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "infeasible", ClassInfeasible.String())
	require.Equal(t, "unknown", Class(42).String())
}
