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
	"testing"

	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/pingcap/pipeplan/pkg/leakutil"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	leakutil.SetUpLeakTest(m)
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte(`{"step":1,"stage":0,"micro_batch":3,"direction":"forward"}`), 64)
	for _, cc := range []Codec{None, Snappy, LZ4, Zstd} {
		encoded, err := Encode(cc, data)
		require.NoError(t, err, cc)
		if cc != None {
			require.Less(t, len(encoded), len(data), cc)
		}
		decoded, err := Decode(cc, encoded)
		require.NoError(t, err, cc)
		require.Equal(t, data, decoded, cc)
	}
}

func TestUnsupportedCodec(t *testing.T) {
	t.Parallel()

	require.False(t, Supported("gzip"))
	_, err := Encode("gzip", []byte("x"))
	require.True(t, cerror.Is(err, cerror.ErrUnknownFormat))
	_, err = Decode("gzip", []byte("x"))
	require.True(t, cerror.Is(err, cerror.ErrUnknownFormat))

	_, err = ParseCodec("gzip")
	require.True(t, cerror.Is(err, cerror.ErrUnknownFormat))
	cc, err := ParseCodec("")
	require.NoError(t, err)
	require.Equal(t, None, cc)
	cc, err = ParseCodec("ZSTD")
	require.NoError(t, err)
	require.Equal(t, Zstd, cc)
}

func TestCorruptedInput(t *testing.T) {
	t.Parallel()

	_, err := Decode(Zstd, []byte("definitely not zstd"))
	require.True(t, cerror.Is(err, cerror.ErrCompression))
}

func TestFromFileName(t *testing.T) {
	t.Parallel()

	cc, base := FromFileName("plan.json.zst")
	require.Equal(t, Zstd, cc)
	require.Equal(t, "plan.json", base)
	cc, base = FromFileName("graph.msgpack.lz4")
	require.Equal(t, LZ4, cc)
	require.Equal(t, "graph.msgpack", base)
	cc, base = FromFileName("graph.json")
	require.Equal(t, None, cc)
	require.Equal(t, "graph.json", base)
	require.Equal(t, ".snappy", Suffix(Snappy))
	require.Equal(t, "", Suffix(None))
}
