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
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"
)

type levelDB struct {
	db *leveldb.DB
}

var _ DB = (*levelDB)(nil)

// OpenLevelDB opens or creates a leveldb in dir.
func OpenLevelDB(dir string) (DB, error) {
	var option opt.Options
	option.Compression = opt.SnappyCompression
	db, err := leveldb.OpenFile(dir, &option)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Debug("leveldb opened", zap.String("dir", dir))
	return &levelDB{db: db}, nil
}

func (p *levelDB) Get(key []byte) ([]byte, bool, error) {
	dbOperationCounter.WithLabelValues(string(BackendLevelDB), "get").Inc()
	value, err := p.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Trace(err)
	}
	dbReadBytes.WithLabelValues(string(BackendLevelDB)).Add(float64(len(value)))
	return value, true, nil
}

func (p *levelDB) Put(key, value []byte) error {
	dbOperationCounter.WithLabelValues(string(BackendLevelDB), "put").Inc()
	dbWriteBytes.WithLabelValues(string(BackendLevelDB)).Add(float64(len(key) + len(value)))
	return errors.Trace(p.db.Put(key, value, nil))
}

func (p *levelDB) Delete(key []byte) error {
	dbOperationCounter.WithLabelValues(string(BackendLevelDB), "delete").Inc()
	return errors.Trace(p.db.Delete(key, nil))
}

func (p *levelDB) DeleteRange(start, end []byte) error {
	dbOperationCounter.WithLabelValues(string(BackendLevelDB), "delete_range").Inc()
	iter := p.db.NewIterator(&util.Range{Start: start, Limit: end}, nil)
	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(p.db.Write(batch, nil))
}

func (p *levelDB) Close() error {
	return errors.Trace(p.db.Close())
}
