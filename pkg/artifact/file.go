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

package artifact

import (
	"io"
	"os"

	"github.com/docker/go-units"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/pingcap/pipeplan/pkg/graph"
	"github.com/pingcap/pipeplan/pkg/model"
	"go.uber.org/zap"
)

// ReadFile decodes the artifact at path into v. Compression is taken from
// the file name suffix and the format from its extension, or sniffed when
// the extension is unknown.
func ReadFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return cerror.WrapError(cerror.ErrReadArtifact, err, path)
	}
	f, cc, _ := FromFileName(path)
	if err := Decode(data, f, cc, v); err != nil {
		return errors.Annotatef(err, "artifact %s", path)
	}
	return nil
}

// WriteFile encodes v into path. Unset options are inferred from the file
// name, falling back to uncompressed JSON.
func WriteFile(path string, v interface{}, opts Options) error {
	_, err := Save(path, v, opts)
	return err
}

// Save is WriteFile returning the number of bytes written.
func Save(path string, v interface{}, opts Options) (int, error) {
	f, cc, ok := FromFileName(path)
	if opts.Format == "" && ok {
		opts.Format = f
	}
	if opts.Compression == "" {
		opts.Compression = cc
	}
	data, err := Encode(v, opts)
	if err != nil {
		return 0, errors.Trace(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, cerror.WrapError(cerror.ErrWriteArtifact, err, path)
	}
	log.Debug("artifact written",
		zap.String("path", path),
		zap.String("format", string(orDefault(opts.Format))),
		zap.String("compression", string(opts.Compression)),
		zap.String("size", units.HumanSize(float64(len(data)))))
	return len(data), nil
}

// Write encodes v to w, used for standard output.
func Write(w io.Writer, v interface{}, opts Options) (int, error) {
	data, err := Encode(v, opts)
	if err != nil {
		return 0, errors.Trace(err)
	}
	n, err := w.Write(data)
	if err != nil {
		return n, cerror.WrapError(cerror.ErrWriteArtifact, err, "output")
	}
	return n, nil
}

func orDefault(f Format) Format {
	if f == "" {
		return JSON
	}
	return f
}

// ReadGraph loads and validates a graph record.
func ReadGraph(path string) (*graph.Graph, error) {
	var rec graph.Record
	if err := ReadFile(path, &rec); err != nil {
		return nil, errors.Trace(err)
	}
	return graph.FromRecord(&rec)
}

// ReadStageGraph loads a stage graph and checks its structure.
func ReadStageGraph(path string) (*model.StageGraph, error) {
	sg := &model.StageGraph{}
	if err := ReadFile(path, sg); err != nil {
		return nil, errors.Trace(err)
	}
	if err := sg.Check(); err != nil {
		return nil, errors.Annotatef(err, "stage graph %s", path)
	}
	return sg, nil
}

// ReadSchedule loads a schedule.
func ReadSchedule(path string) (*model.Schedule, error) {
	sched := &model.Schedule{}
	if err := ReadFile(path, sched); err != nil {
		return nil, errors.Trace(err)
	}
	return sched, nil
}
