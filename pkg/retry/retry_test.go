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

package retry

import (
	"context"
	"testing"
	"time"

	"github.com/pingcap/errors"
	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/pingcap/pipeplan/pkg/leakutil"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	leakutil.SetUpLeakTest(m)
}

func TestDoSucceedsAfterRetry(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, WithBackoffBaseDelay(time.Millisecond), WithMaxTries(5))
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoReachMaxTry(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return cerror.ErrExternalSolver.GenWithStackByArgs("exit status 1")
	}, WithBackoffBaseDelay(time.Millisecond), WithMaxTries(2))
	require.Equal(t, 2, calls)
	require.True(t, cerror.Is(err, cerror.ErrReachMaxTry))
	require.True(t, cerror.Is(err, cerror.ErrExternalSolver))
}

func TestDoNotRetryable(t *testing.T) {
	t.Parallel()

	calls := 0
	sentinel := errors.New("permanent")
	err := Do(context.Background(), func() error {
		calls++
		return sentinel
	}, WithIsRetryableErr(func(err error) bool { return err != sentinel }))
	require.Equal(t, sentinel, err)
	require.Equal(t, 1, calls)
}

func TestDoCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Do(ctx, func() error {
		calls++
		return nil
	})
	require.Equal(t, context.Canceled, errors.Cause(err))
	require.Zero(t, calls)

	ctx, cancel = context.WithCancel(context.Background())
	err = Do(ctx, func() error {
		calls++
		cancel()
		return errors.New("transient")
	}, WithInfiniteTries(), WithBackoffBaseDelay(time.Hour), WithBackoffMaxDelay(time.Hour))
	require.Equal(t, context.Canceled, errors.Cause(err))
	require.Equal(t, 1, calls)
}

func TestGetBackoff(t *testing.T) {
	t.Parallel()

	for try := 1; try < 10; try++ {
		d := getBackoff(defaultBackoffBaseInMs, defaultBackoffCapInMs, try)
		require.GreaterOrEqual(t, d, 10*time.Millisecond)
		require.LessOrEqual(t, d, 100*time.Millisecond)
	}
	require.Equal(t, 10*time.Millisecond, getBackoff(10, 10, 3))
}
