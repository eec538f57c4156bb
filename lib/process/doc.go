// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint helpers for the buildpatch
// binary: reporting the final error of a command run and choosing the
// exit status. It is the one place outside the CLI output path that
// writes to stderr directly, since the structured logger may not exist
// yet when configuration loading fails.
package process
