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
	"fmt"
	"regexp"
	"strings"

	"github.com/coreos/go-semver/semver"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

// Version information, set at link time.
var (
	ReleaseVersion = "None"
	BuildTS        = "None"
	GitHash        = "None"
	GitBranch      = "None"
	GoVersion      = "None"
)

var versionHash = regexp.MustCompile("-[0-9]+-g[0-9a-f]{7,}")

// ReleaseSemver returns a valid Semantic Versions or an empty if the
// ReleaseVersion is not set at compile time.
func ReleaseSemver() string {
	s := removeVAndHash(ReleaseVersion)
	v, err := semver.NewVersion(s)
	if err != nil {
		return ""
	}
	return v.String()
}

func removeVAndHash(v string) string {
	if v == "" {
		return v
	}
	v = versionHash.ReplaceAllLiteralString(v, "")
	v = strings.TrimSuffix(v, "-dirty")
	return strings.TrimPrefix(v, "v")
}

// fields lists the build information in display order.
func fields() [][2]string {
	return [][2]string{
		{"Release Version", ReleaseVersion},
		{"Git Commit Hash", GitHash},
		{"Git Branch", GitBranch},
		{"UTC Build Time", BuildTS},
		{"Go Version", GoVersion},
	}
}

// LogVersionInfo logs the build information once the logger is set up.
func LogVersionInfo() {
	zapFields := make([]zap.Field, 0, len(fields()))
	for _, f := range fields() {
		key := strings.ReplaceAll(strings.ToLower(f[0]), " ", "-")
		zapFields = append(zapFields, zap.String(key, f[1]))
	}
	log.Info("Welcome to pipeplan", zapFields...)
}

// GetRawInfo returns the build information, one "Name: value" per line.
func GetRawInfo() string {
	var sb strings.Builder
	for _, f := range fields() {
		fmt.Fprintf(&sb, "%s: %s\n", f[0], f[1])
	}
	return sb.String()
}
