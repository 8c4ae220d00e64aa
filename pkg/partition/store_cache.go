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

package partition

import (
	"github.com/pingcap/errors"
	"github.com/pingcap/pipeplan/pkg/compression"
	"github.com/pingcap/pipeplan/pkg/db"
	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

var storeKeyPrefix = []byte("partition/")

// StoreCache persists results in a db.DB as compressed msgpack, so that
// results survive across invocations.
type StoreCache struct {
	db    db.DB
	codec compression.Codec
}

var _ Cache = (*StoreCache)(nil)

// NewStoreCache creates a StoreCache over an opened db. The cache does not
// own the db.
func NewStoreCache(store db.DB, codec compression.Codec) *StoreCache {
	return &StoreCache{db: store, codec: codec}
}

func storeKey(key string) []byte {
	return append(append([]byte(nil), storeKeyPrefix...), key...)
}

// Get implements Cache.
func (c *StoreCache) Get(key string) (*Result, bool, error) {
	value, ok, err := c.db.Get(storeKey(key))
	if err != nil {
		return nil, false, cerror.WrapError(cerror.ErrPartitionCache, err, "get")
	}
	if !ok {
		return nil, false, nil
	}
	raw, err := compression.Decode(c.codec, value)
	if err != nil {
		return nil, false, errors.Trace(err)
	}
	res := new(Result)
	if err := msgpack.Unmarshal(raw, res); err != nil {
		return nil, false, cerror.WrapError(cerror.ErrPartitionCache, err, "decode")
	}
	return res, true, nil
}

// Put implements Cache.
func (c *StoreCache) Put(key string, res *Result) error {
	raw, err := msgpack.Marshal(res)
	if err != nil {
		return cerror.WrapError(cerror.ErrPartitionCache, err, "encode")
	}
	value, err := compression.Encode(c.codec, raw)
	if err != nil {
		return errors.Trace(err)
	}
	return cerror.WrapError(cerror.ErrPartitionCache, c.db.Put(storeKey(key), value), "put")
}

// Invalidate implements Cache.
func (c *StoreCache) Invalidate(key string) error {
	return cerror.WrapError(cerror.ErrPartitionCache, c.db.Delete(storeKey(key)), "invalidate")
}

// Purge implements Cache.
func (c *StoreCache) Purge() error {
	err := c.db.DeleteRange(storeKeyPrefix, db.PrefixEnd(storeKeyPrefix))
	return cerror.WrapError(cerror.ErrPartitionCache, err, "purge")
}
