// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"crypto/sha1"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/buildpatch/cmd/buildpatch/cli"
	"github.com/bureau-foundation/buildpatch/lib/chunkstore"
	"github.com/bureau-foundation/buildpatch/lib/filestream"
	"github.com/bureau-foundation/buildpatch/lib/manifest"
)

type verifyParams struct {
	BuildSource
	cli.StructuredOutput
	Tags        []string `flag:"tag"         desc:"only files with this install tag (repeatable)"`
	Concurrency int      `flag:"concurrency" desc:"files verified in parallel (0 = max_concurrency from config)"`
}

// Verification statuses.
const (
	statusOK       = "ok"
	statusMismatch = "mismatch"
	statusSkipped  = "skipped"
	statusError    = "error"
)

type verifyEntry struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Error    string `json:"error,omitempty"`
}

func verifyCommand(env *environment) *cli.Command {
	var params verifyParams

	return &cli.Command{
		Name:    "verify",
		Summary: "Check reconstructed files against their manifest hashes",
		Usage:   "buildpatch verify -m <manifest> [file...] [flags]",
		Description: `Reconstruct each selected file from its chunks, hash it with SHA1,
and compare the digest with the file hash recorded in the manifest.
Nothing is written to disk except the chunk cache.

Files without a recorded hash, and symbolic links, are skipped. The
command exits with status 1 when any file mismatches or fails to
reconstruct.`,
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			b, err := params.open(ctx, env, "verify")
			if err != nil {
				return err
			}
			files, err := b.selectFiles(args, params.Tags)
			if err != nil {
				return err
			}
			store, err := b.store(nil)
			if err != nil {
				return err
			}

			entries := make([]verifyEntry, len(files))
			group, groupContext := errgroup.WithContext(ctx)
			group.SetLimit(b.concurrency(params.Concurrency))
			var mu sync.Mutex
			failures := 0
			for index, file := range files {
				group.Go(func() error {
					entry := verifyFile(groupContext, store, file)
					entries[index] = entry
					if entry.Status == statusMismatch || entry.Status == statusError {
						b.logger.Warn("verification failed", "file", file.Name, "status", entry.Status, "error", entry.Error)
						mu.Lock()
						failures++
						mu.Unlock()
					}
					// Cancellation of the whole run is the only error that
					// stops the group; per-file failures are reported.
					return ctx.Err()
				})
			}
			if err := group.Wait(); err != nil {
				return err
			}

			if done, err := params.Emit(env.stdout, entries); done {
				if err != nil {
					return err
				}
			} else {
				for _, entry := range entries {
					switch entry.Status {
					case statusMismatch:
						fmt.Fprintf(env.stdout, "MISMATCH %s expected %s actual %s\n", entry.Name, entry.Expected, entry.Actual)
					case statusError:
						fmt.Fprintf(env.stdout, "ERROR    %s: %s\n", entry.Name, entry.Error)
					}
				}
				fmt.Fprintf(env.stdout, "%d files checked, %d failed\n", len(entries), failures)
			}
			if failures > 0 {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

func verifyFile(ctx context.Context, store *chunkstore.Store, file *manifest.File) verifyEntry {
	entry := verifyEntry{Name: file.Name}
	if file.IsSymlink() || file.Hash.IsZero() {
		entry.Status = statusSkipped
		return entry
	}
	entry.Expected = file.Hash.String()

	stream, err := filestream.Open(store, file)
	if err != nil {
		entry.Status, entry.Error = statusError, err.Error()
		return entry
	}
	hasher := sha1.New()
	if err := stream.SaveTo(ctx, hasher, filestream.SaveOptions{}); err != nil {
		entry.Status, entry.Error = statusError, err.Error()
		return entry
	}

	var actual manifest.SHA1
	copy(actual[:], hasher.Sum(nil))
	entry.Actual = actual.String()
	if actual == file.Hash {
		entry.Status = statusOK
	} else {
		entry.Status = statusMismatch
	}
	return entry
}
