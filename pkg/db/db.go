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

// DB is a small key value store interface implemented by leveldb and
// pebble. It backs persistent caches of planning results, so it only offers
// point operations plus range deletion.
type DB interface {
	// Get returns the value of key, ok is false if the key does not exist.
	Get(key []byte) (value []byte, ok bool, err error)
	Put(key, value []byte) error
	Delete(key []byte) error
	// DeleteRange deletes all keys in [start, end).
	DeleteRange(start, end []byte) error
	Close() error
}

// Backend names a DB implementation.
type Backend string

// Backends
const (
	BackendLevelDB Backend = "leveldb"
	BackendPebble  Backend = "pebble"
)

// PrefixEnd returns the smallest key greater than every key with the given
// prefix, or nil if there is none.
func PrefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
