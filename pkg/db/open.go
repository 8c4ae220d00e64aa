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

package db

import (
	"path/filepath"

	cerror "github.com/pingcap/pipeplan/pkg/errors"
)

// Open opens a DB of the given backend in dir.
func Open(backend Backend, dir string) (DB, error) {
	switch backend {
	case BackendLevelDB:
		return OpenLevelDB(filepath.Join(dir, "leveldb"))
	case BackendPebble:
		return OpenPebble(filepath.Join(dir, "pebble"))
	default:
		return nil, cerror.ErrUnknownFormat.GenWithStackByArgs("db backend", string(backend))
	}
}
