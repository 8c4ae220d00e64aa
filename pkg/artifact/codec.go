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
	"bytes"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pingcap/errors"
	"github.com/pingcap/pipeplan/pkg/compression"
	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Format is the serialization of an artifact.
type Format string

// Formats
const (
	JSON    Format = "json"
	Msgpack Format = "msgpack"
)

var extensions = map[string]Format{
	".json":    JSON,
	".msgpack": Msgpack,
	".mpk":     Msgpack,
}

// ParseFormat parses a format name, the empty string means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(JSON):
		return JSON, nil
	case string(Msgpack), "mpk":
		return Msgpack, nil
	}
	return "", cerror.ErrUnknownFormat.GenWithStackByArgs("artifact format", s)
}

// Extension returns the file extension of a format.
func Extension(f Format) string {
	if f == Msgpack {
		return ".msgpack"
	}
	return ".json"
}

// FromFileName infers the format and compression of an artifact from its
// file name, for example "plan.msgpack.zst". ok is false when the name
// carries no known format extension.
func FromFileName(name string) (f Format, cc compression.Codec, ok bool) {
	cc, rest := compression.FromFileName(name)
	f, ok = extensions[strings.ToLower(filepath.Ext(rest))]
	return f, cc, ok
}

// sniff guesses the format of an uncompressed payload.
func sniff(data []byte) Format {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return JSON
	}
	return Msgpack
}

// Options controls how an artifact is encoded.
type Options struct {
	Format      Format
	Compression compression.Codec
}

// Marshal serializes v. Msgpack map keys are sorted so that equal values
// always encode to equal bytes.
func Marshal(f Format, v interface{}) ([]byte, error) {
	switch f {
	case JSON, "":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, cerror.WrapError(cerror.ErrEncodeArtifact, err, JSON)
		}
		return append(data, '\n'), nil
	case Msgpack:
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		enc.SetSortMapKeys(true)
		if err := enc.Encode(v); err != nil {
			return nil, cerror.WrapError(cerror.ErrEncodeArtifact, err, Msgpack)
		}
		return buf.Bytes(), nil
	}
	return nil, cerror.ErrUnknownFormat.GenWithStackByArgs("artifact format", string(f))
}

// Unmarshal deserializes data into v.
func Unmarshal(f Format, data []byte, v interface{}) error {
	switch f {
	case JSON:
		if err := json.Unmarshal(data, v); err != nil {
			return cerror.WrapError(cerror.ErrDecodeArtifact, err, JSON)
		}
		return nil
	case Msgpack:
		if err := msgpack.Unmarshal(data, v); err != nil {
			return cerror.WrapError(cerror.ErrDecodeArtifact, err, Msgpack)
		}
		return nil
	}
	return cerror.ErrUnknownFormat.GenWithStackByArgs("artifact format", string(f))
}

// Encode serializes and then compresses v.
func Encode(v interface{}, opts Options) ([]byte, error) {
	data, err := Marshal(opts.Format, v)
	if err != nil {
		return nil, errors.Trace(err)
	}
	cc := opts.Compression
	if cc == "" {
		cc = compression.None
	}
	return compression.Encode(cc, data)
}

// Decode decompresses data with cc and deserializes it into v. An empty
// format is sniffed from the payload.
func Decode(data []byte, f Format, cc compression.Codec, v interface{}) error {
	if cc != "" && cc != compression.None {
		var err error
		if data, err = compression.Decode(cc, data); err != nil {
			return errors.Trace(err)
		}
	}
	if f == "" {
		f = sniff(data)
	}
	return Unmarshal(f, data, v)
}
