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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pingcap/pipeplan/pkg/compression"
	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/pingcap/pipeplan/pkg/graph"
	"github.com/pingcap/pipeplan/pkg/leakutil"
	"github.com/pingcap/pipeplan/pkg/model"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	leakutil.SetUpLeakTest(m)
}

func sampleRecord(t *testing.T) *graph.Record {
	b := graph.NewBuilder()
	b.AddNode("in", 1, graph.WithTags("input"), graph.WithScope("encoder"))
	b.AddNode("mid", 2.5, graph.WithScope("encoder.block0"))
	b.AddNode("out", 3)
	b.AddEdge("in", "mid", 4)
	b.AddEdgeWithID("skip", "in", "out", 0.5)
	b.AddEdge("mid", "out", 1)
	g, err := b.Build()
	require.NoError(t, err)
	return g.ToRecord()
}

func sampleStageGraph() *model.StageGraph {
	return &model.StageGraph{
		Stages: []model.Stage{
			{Index: 0, Rank: 0, Weight: 3.5, Nodes: []string{"in", "mid"}, BoundaryInputs: []string{"in"}, Device: "gpu0"},
			{Index: 1, Rank: 1, Weight: 3, Nodes: []string{"out"}, BoundaryInputs: []string{"out"}, Device: "gpu1"},
		},
		Edges: []model.StageEdge{{Src: 0, Dst: 1, Weight: 1.5}},
	}
}

func sampleSchedule() *model.Schedule {
	s := &model.Schedule{Stages: 2, MicroBatches: 1, Policy: model.PolicyOneFOneB}
	for i, u := range []model.Unit{
		{Stage: 0, Direction: model.Forward},
		{Stage: 1, Direction: model.Forward},
		{Stage: 1, Direction: model.Backward},
		{Stage: 0, Direction: model.Backward},
	} {
		s.Slots = append(s.Slots, model.Slot{Step: i, Unit: u})
	}
	s.Finalize()
	return s
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	values := []struct {
		name  string
		value interface{}
		empty func() interface{}
	}{
		{"graph", sampleRecord(t), func() interface{} { return &graph.Record{} }},
		{"stage-graph", sampleStageGraph(), func() interface{} { return &model.StageGraph{} }},
		{"schedule", sampleSchedule(), func() interface{} { return &model.Schedule{} }},
	}
	codecs := []compression.Codec{compression.None, compression.Snappy, compression.LZ4, compression.Zstd}
	for _, v := range values {
		for _, f := range []Format{JSON, Msgpack} {
			for _, cc := range codecs {
				data, err := Encode(v.value, Options{Format: f, Compression: cc})
				require.NoError(t, err)
				got := v.empty()
				require.NoError(t, Decode(data, f, cc, got))
				if diff := cmp.Diff(v.value, got, cmpopts.EquateEmpty()); diff != "" {
					t.Fatalf("%s %s %s round trip mismatch (-want +got):\n%s", v.name, f, cc, diff)
				}
			}
		}
	}
}

func TestGraphRoundTripRebuilds(t *testing.T) {
	t.Parallel()

	rec := sampleRecord(t)
	data, err := Encode(rec, Options{Format: Msgpack})
	require.NoError(t, err)
	var decoded graph.Record
	require.NoError(t, Decode(data, Msgpack, compression.None, &decoded))
	g, err := graph.FromRecord(&decoded)
	require.NoError(t, err)
	require.Equal(t, []string{"in", "mid", "out"}, g.NodeIDs())
	require.Equal(t, 3, g.NumEdges())
	_, ok := g.EdgeIndex("skip")
	require.True(t, ok)
}

func TestMsgpackDeterministic(t *testing.T) {
	t.Parallel()

	a := model.NewAssignment(2)
	for i, id := range []string{"d", "a", "c", "b", "e", "f"} {
		a.Set(id, i%2)
	}
	first, err := Marshal(Msgpack, a)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Marshal(Msgpack, a.Clone())
		require.NoError(t, err)
		require.True(t, bytes.Equal(first, again))
	}
}

func TestFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	want := sampleSchedule()
	for _, name := range []string{"s.json", "s.msgpack", "s.json.zst", "s.msgpack.lz4", "s.snappy", "s.out"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteFile(path, want, Options{}))
		got, err := ReadSchedule(path)
		require.NoError(t, err, name)
		require.Equal(t, want, got, name)
	}

	// Explicit options win over an unknown extension and are sniffed back.
	path := filepath.Join(dir, "sg.bin")
	require.NoError(t, WriteFile(path, sampleStageGraph(), Options{Format: Msgpack}))
	sg, err := ReadStageGraph(path)
	require.NoError(t, err)
	require.Equal(t, sampleStageGraph(), sg)

	path = filepath.Join(dir, "g.json")
	require.NoError(t, WriteFile(path, sampleRecord(t), Options{}))
	g, err := ReadGraph(path)
	require.NoError(t, err)
	require.Equal(t, 3, g.NumNodes())
}

func TestReadErrors(t *testing.T) {
	t.Parallel()

	_, err := ReadSchedule(filepath.Join(t.TempDir(), "missing.json"))
	require.True(t, cerror.Is(err, cerror.ErrReadArtifact), err)
	require.Equal(t, cerror.ClassIO, cerror.ClassOf(err))

	var sched model.Schedule
	err = Decode([]byte("{not json"), JSON, compression.None, &sched)
	require.True(t, cerror.Is(err, cerror.ErrDecodeArtifact), err)

	err = Decode([]byte("plain"), JSON, compression.Zstd, &sched)
	require.True(t, cerror.Is(err, cerror.ErrCompression), err)
}

func TestWrite(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n, err := Write(&buf, sampleStageGraph(), Options{})
	require.NoError(t, err)
	require.Equal(t, buf.Len(), n)
	require.Equal(t, JSON, sniff(buf.Bytes()))
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, err := ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, JSON, f)
	f, err = ParseFormat("MsgPack")
	require.NoError(t, err)
	require.Equal(t, Msgpack, f)
	_, err = ParseFormat("yaml")
	require.True(t, cerror.Is(err, cerror.ErrUnknownFormat), err)
	require.Equal(t, ".msgpack", Extension(Msgpack))

	f, cc, ok := FromFileName("plan.msgpack.zst")
	require.True(t, ok)
	require.Equal(t, Msgpack, f)
	require.Equal(t, compression.Zstd, cc)
	_, _, ok = FromFileName("plan.txt")
	require.False(t, ok)
}
