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

package compression

import (
	"bytes"
	"strings"

	snappy "github.com/eapache/go-xerial-snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pingcap/errors"
	cerror "github.com/pingcap/pipeplan/pkg/errors"
)

// Codec is the compression applied to persisted artifacts.
type Codec string

const (
	// None no compression
	None Codec = "none"
	// Snappy compression
	Snappy Codec = "snappy"
	// LZ4 compression
	LZ4 Codec = "lz4"
	// Zstd compression
	Zstd Codec = "zstd"
)

var suffixes = map[Codec]string{
	Snappy: ".snappy",
	LZ4:    ".lz4",
	Zstd:   ".zst",
}

// Supported returns whether cc is a known codec.
func Supported(cc Codec) bool {
	switch cc {
	case None, Snappy, LZ4, Zstd:
		return true
	}
	return false
}

// ParseCodec parses a codec name, the empty string means None.
func ParseCodec(s string) (Codec, error) {
	cc := Codec(strings.ToLower(strings.TrimSpace(s)))
	if cc == "" {
		return None, nil
	}
	if !Supported(cc) {
		return "", cerror.ErrUnknownFormat.GenWithStackByArgs("compression codec", s)
	}
	return cc, nil
}

// Suffix returns the file name suffix of the codec, empty for None.
func Suffix(cc Codec) string {
	return suffixes[cc]
}

// FromFileName returns the codec implied by the suffix of name and the name
// without that suffix.
func FromFileName(name string) (Codec, string) {
	for cc, suffix := range suffixes {
		if strings.HasSuffix(name, suffix) {
			return cc, strings.TrimSuffix(name, suffix)
		}
	}
	return None, name
}

// Encode compresses data with cc.
func Encode(cc Codec, data []byte) ([]byte, error) {
	switch cc {
	case None:
		return data, nil
	case Snappy:
		return snappy.Encode(data), nil
	case LZ4:
		var buf bytes.Buffer
		writer := lz4.NewWriter(&buf)
		if _, err := writer.Write(data); err != nil {
			return nil, cerror.WrapError(cerror.ErrCompression, err, string(cc))
		}
		if err := writer.Close(); err != nil {
			return nil, cerror.WrapError(cerror.ErrCompression, err, string(cc))
		}
		return buf.Bytes(), nil
	case Zstd:
		encoder, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, cerror.WrapError(cerror.ErrCompression, err, string(cc))
		}
		defer encoder.Close()
		return encoder.EncodeAll(data, nil), nil
	default:
	}
	return nil, cerror.ErrUnknownFormat.GenWithStackByArgs("compression codec", string(cc))
}

// Decode decompresses data with cc.
func Decode(cc Codec, data []byte) ([]byte, error) {
	switch cc {
	case None:
		return data, nil
	case Snappy:
		out, err := snappy.Decode(data)
		if err != nil {
			return nil, cerror.WrapError(cerror.ErrCompression, err, string(cc))
		}
		return out, nil
	case LZ4:
		reader := lz4.NewReader(bytes.NewReader(data))
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(reader); err != nil {
			return nil, cerror.WrapError(cerror.ErrCompression, err, string(cc))
		}
		return buf.Bytes(), nil
	case Zstd:
		decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, cerror.WrapError(cerror.ErrCompression, err, string(cc))
		}
		defer decoder.Close()
		out, err := decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, cerror.WrapError(cerror.ErrCompression, err, string(cc))
		}
		return out, nil
	default:
	}
	return nil, errors.Trace(cerror.ErrUnknownFormat.GenWithStackByArgs("compression codec", string(cc)))
}
