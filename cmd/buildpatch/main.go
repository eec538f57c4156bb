// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// buildpatch inspects, streams, extracts, verifies and mounts builds
// described by chunked build manifests.
package main

import (
	"context"
	"os"

	"github.com/bureau-foundation/buildpatch/cmd/buildpatch/commands"
	"github.com/bureau-foundation/buildpatch/lib/process"
)

func main() {
	process.Exit(run())
}

func run() error {
	return commands.Root(os.Stdout, os.Stderr).Execute(context.Background(), os.Args[1:])
}
