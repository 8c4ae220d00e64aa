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

package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRemoveVAndHash(t *testing.T) {
	t.Parallel()

	cases := []struct {
		version string
		expect  string
	}{
		{"", ""},
		{"v1.2.3", "1.2.3"},
		{"v1.2.3-dirty", "1.2.3"},
		{"v1.2.3-rc.1-14-g7f3b2a9c", "1.2.3-rc.1"},
		{"1.2.3-alpha-3-gabcdef0-dirty", "1.2.3-alpha"},
	}
	for _, c := range cases {
		require.Equal(t, c.expect, removeVAndHash(c.version), c.version)
	}
}

func TestGetRawInfo(t *testing.T) {
	t.Parallel()

	info := GetRawInfo()
	require.Contains(t, info, "Release Version: "+ReleaseVersion)
	require.Contains(t, info, "Git Commit Hash: "+GitHash)
	// The default release version is not a semantic version.
	require.Empty(t, ReleaseSemver())
}
