// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/bureau-foundation/buildpatch/cmd/buildpatch/cli"
	"github.com/bureau-foundation/buildpatch/lib/chunkstore"
)

type pruneParams struct {
	BuildSource
	cli.StructuredOutput
}

type pruneResult struct {
	Directory  string `json:"directory"`
	Kept       int    `json:"kept"`
	Removed    int    `json:"removed"`
	BytesFreed int64  `json:"bytes_freed"`
}

func pruneCacheCommand(env *environment) *cli.Command {
	var params pruneParams

	return &cli.Command{
		Name:    "prune-cache",
		Summary: "Delete cached chunks the build does not use",
		Usage:   "buildpatch prune-cache -m <manifest> [flags]",
		Description: `Remove chunk files from the chunk cache directory that no chunk of
the manifest references, in either cache layout, along with temporary
files left by interrupted downloads. Other files are left alone.`,
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("prune-cache takes no arguments")
			}
			b, err := params.open(ctx, env, "prune-cache")
			if err != nil {
				return err
			}
			directory := b.config.ChunkCacheDir
			if directory == "" {
				return errors.New("no chunk cache directory configured (set --cache-dir or chunk_cache_dir)")
			}

			pruned, err := chunkstore.Prune(directory, b.manifest)
			if err != nil {
				return err
			}
			b.logger.Info("cache pruned", "directory", directory, "removed", pruned.Removed, "bytes", pruned.BytesFreed)

			result := pruneResult{
				Directory:  directory,
				Kept:       pruned.Kept,
				Removed:    pruned.Removed,
				BytesFreed: pruned.BytesFreed,
			}
			if done, err := params.Emit(env.stdout, result); done {
				return err
			}
			_, err = fmt.Fprintf(env.stdout, "removed %d files (%s), kept %d\n",
				result.Removed, formatSize(result.BytesFreed), result.Kept)
			return err
		},
	}
}
