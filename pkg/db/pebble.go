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
	"github.com/cockroachdb/pebble"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

type pebbleDB struct {
	db *pebble.DB
}

var _ DB = (*pebbleDB)(nil)

// OpenPebble opens or creates a pebble db in dir.
func OpenPebble(dir string) (DB, error) {
	opts := new(pebble.Options)
	opts.DisableWAL = false // Delete range requires WAL.
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Debug("pebble opened", zap.String("dir", dir))
	return &pebbleDB{db: db}, nil
}

func (p *pebbleDB) Get(key []byte) ([]byte, bool, error) {
	dbOperationCounter.WithLabelValues(string(BackendPebble), "get").Inc()
	value, closer, err := p.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Trace(err)
	}
	// The returned slice is only valid until closer is closed.
	out := append([]byte(nil), value...)
	if err := closer.Close(); err != nil {
		return nil, false, errors.Trace(err)
	}
	dbReadBytes.WithLabelValues(string(BackendPebble)).Add(float64(len(out)))
	return out, true, nil
}

func (p *pebbleDB) Put(key, value []byte) error {
	dbOperationCounter.WithLabelValues(string(BackendPebble), "put").Inc()
	dbWriteBytes.WithLabelValues(string(BackendPebble)).Add(float64(len(key) + len(value)))
	return errors.Trace(p.db.Set(key, value, pebble.Sync))
}

func (p *pebbleDB) Delete(key []byte) error {
	dbOperationCounter.WithLabelValues(string(BackendPebble), "delete").Inc()
	return errors.Trace(p.db.Delete(key, pebble.Sync))
}

func (p *pebbleDB) DeleteRange(start, end []byte) error {
	dbOperationCounter.WithLabelValues(string(BackendPebble), "delete_range").Inc()
	return errors.Trace(p.db.DeleteRange(start, end, pebble.Sync))
}

func (p *pebbleDB) Close() error {
	return errors.Trace(p.db.Close())
}
