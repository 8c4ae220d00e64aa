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
	"math"
	"math/rand"
	"time"

	"github.com/pingcap/errors"
	cerror "github.com/pingcap/pipeplan/pkg/errors"
)

// Operation is the action that needs to be retried.
type Operation func() error

// Do runs operation until it succeeds, returns an error that is not
// retryable, or runs out of tries. Running out of tries wraps the last
// error into ErrReachMaxTry. Cancelling ctx stops the retry between two
// runs.
func Do(ctx context.Context, operation Operation, opts ...Option) error {
	o := setOptions(opts...)
	if err := ctx.Err(); err != nil {
		return errors.Trace(err)
	}

	var t *time.Timer
	try := 0
	for {
		err := operation()
		if err == nil {
			return nil
		}
		if !o.isRetryable(err) {
			return err
		}
		try++
		if float64(try) >= o.maxTries {
			return cerror.WrapError(cerror.ErrReachMaxTry, err, try)
		}

		backoff := getBackoff(o.backoffBase, o.backoffCap, try)
		if t == nil {
			t = time.NewTimer(backoff)
			defer t.Stop()
		} else {
			t.Reset(backoff)
		}
		select {
		case <-ctx.Done():
			return errors.Trace(ctx.Err())
		case <-t.C:
		}
	}
}

// getBackoff returns a random delay in [base, min(cap, base*2^try)].
func getBackoff(baseInMs, capInMs float64, try int) time.Duration {
	upper := math.Min(capInMs, baseInMs*math.Exp2(float64(try)))
	jitter := int64(upper - baseInMs)
	backoff := baseInMs
	if jitter > 0 {
		backoff += float64(rand.Int63n(jitter + 1))
	}
	return time.Duration(backoff * float64(time.Millisecond))
}
