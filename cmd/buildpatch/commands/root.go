// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the buildpatch command tree.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/bureau-foundation/buildpatch/cmd/buildpatch/cli"
	"github.com/bureau-foundation/buildpatch/lib/version"
)

// environment carries the output streams every command writes to.
type environment struct {
	stdout io.Writer
	stderr io.Writer
}

// Root builds the complete command tree writing to stdout and stderr.
func Root(stdout, stderr io.Writer) *cli.Command {
	env := &environment{stdout: stdout, stderr: stderr}
	return &cli.Command{
		Name: "buildpatch",
		Description: `buildpatch: read chunked build manifests and the builds they describe.

Parses binary and JSON build manifests, streams file contents from a
chunk CDN through a local chunk cache, and extracts, verifies or
mounts whole builds.

Every build command locates its manifest with --manifest (a path or
URL) or --manifest-info (a launcher manifest-info document), and its
chunks with --base-url or chunk_base_url in the config file.`,
		Stderr: stderr,
		Subcommands: []*cli.Command{
			inspectCommand(env),
			lsCommand(env),
			catCommand(env),
			extractCommand(env),
			verifyCommand(env),
			mountCommand(env),
			pruneCacheCommand(env),
			infoCommand(env),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, _ []string) error {
					_, err := fmt.Fprintf(env.stdout, "buildpatch %s\n", version.Full())
					return err
				},
			},
		},
	}
}
