// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the
// buildpatch command.
//
// Configuration comes from a single file named by the --config flag
// (via [LoadFile]) or the BUILDPATCH_CONFIG environment variable (via
// [Load]). There is no ~/.config discovery and no automatic file
// search. [Resolve] picks between the two and falls back to
// [Default] when neither names a file.
//
// Variable expansion is performed on path and URL fields after
// loading: ${HOME}, ${XDG_CACHE_HOME} and ${VAR:-default} patterns
// are expanded. No environment variable overrides a config value
// directly.
//
// The library packages never read configuration: the command turns a
// [Config] into manifest and chunk store options.
//
// This package depends on no other buildpatch packages.
package config
