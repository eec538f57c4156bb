// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the buildpatch
// binary.
//
// [GitCommit], [GitDirty], [BuildTime] and [Version] are injected at
// build time via -ldflags -X and default to "unknown" / "0.1.0-dev"
// for development builds and test runs. When they are not injected,
// [Info] falls back to the VCS stamp the Go toolchain records in the
// binary.
//
//   - [Info] -- "0.1.0-dev (abc1234, 2026-02-10T...)" for the version command
//   - [Full] -- Info plus Go version and GOOS/GOARCH
//   - [UserAgent] -- the default HTTP User-Agent, "buildpatch/<version>"
package version
