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

// WrapError wraps err with the normalized rfcError, keeping err as the cause.
// It returns nil if err is nil.
func WrapError(rfcError *errors.Error, err error, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return rfcError.Wrap(err).GenWithStackByCause(args...)
}

// Is reports whether err is, or is caused by, the normalized error target.
func Is(err error, target *errors.Error) bool {
	for err != nil {
		if rerr, ok := err.(*errors.Error); ok && rerr.RFCCode() == target.RFCCode() {
			return true
		}
		err = unwrapOnce(err)
	}
	return false
}

// RFCCode returns the RFC code of err if it is a normalized error.
func RFCCode(err error) (errors.RFCErrorCode, bool) {
	type rfcCoder interface {
		RFCCode() errors.RFCErrorCode
	}
	for err != nil {
		if terr, ok := err.(rfcCoder); ok {
			return terr.RFCCode(), true
		}
		err = unwrapOnce(err)
	}
	return "", false
}

// ExitCode maps err to a process exit code, 0 for a nil error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return ClassOf(err).ExitCode()
}
