// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/buildpatch/cmd/buildpatch/cli"
	"github.com/bureau-foundation/buildpatch/lib/chunkstore"
	"github.com/bureau-foundation/buildpatch/lib/filestream"
	"github.com/bureau-foundation/buildpatch/lib/manifest"
)

type extractParams struct {
	BuildSource
	cli.StructuredOutput
	Tags        []string `flag:"tag"         desc:"only files with this install tag (repeatable)"`
	Concurrency int      `flag:"concurrency" desc:"parallel chunk fetches per file (0 = max_concurrency from config)"`
}

type extractResult struct {
	Destination string `json:"destination"`
	Files       int    `json:"files"`
	Symlinks    int    `json:"symlinks"`
	Bytes       int64  `json:"bytes"`
}

func extractCommand(env *environment) *cli.Command {
	var params extractParams

	return &cli.Command{
		Name:    "extract",
		Summary: "Write files of a build to a directory",
		Usage:   "buildpatch extract -m <manifest> <destination> [file...] [flags]",
		Description: `Reconstruct files of the build under the destination directory.
With file arguments only those files are extracted; --tag narrows the
selection to files carrying an install tag.

Chunks of each file are fetched in parallel. Executable files get mode
0755, read-only files 0444, others 0644. Symbolic links are recreated.
A file that fails part way is removed rather than left truncated.`,
		Examples: []cli.Example{
			{
				Description: "Extract a whole build",
				Command:     "buildpatch extract -m Game.manifest --base-url https://cdn.example.com/CloudDir/ ./Game",
			},
			{
				Description: "Extract one file with more parallelism",
				Command:     "buildpatch extract -m Game.manifest ./out Game/Binaries/Game.exe --concurrency 32",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: buildpatch extract <destination> [file...]")
			}
			destination := args[0]

			b, err := params.open(ctx, env, "extract")
			if err != nil {
				return err
			}
			files, err := b.selectFiles(args[1:], params.Tags)
			if err != nil {
				return err
			}
			store, err := b.store(nil)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(destination, 0o755); err != nil {
				return err
			}
			root, err := os.OpenRoot(destination)
			if err != nil {
				return err
			}
			defer root.Close()

			result := extractResult{Destination: destination}
			saveOptions := filestream.SaveOptions{MaxConcurrency: b.concurrency(params.Concurrency)}
			for _, file := range files {
				written, err := extractFile(ctx, store, file, root, saveOptions)
				if err != nil {
					return err
				}
				if file.IsSymlink() {
					result.Symlinks++
				} else {
					result.Files++
					result.Bytes += written
				}
				b.logger.Debug("extracted", "file", file.Name, "bytes", written)
			}
			b.logger.Info("extraction complete",
				"destination", destination,
				"files", result.Files,
				"bytes", result.Bytes,
			)

			if done, err := params.Emit(env.stdout, result); done {
				return err
			}
			_, err = fmt.Fprintf(env.stdout, "extracted %d files (%s) and %d symlinks to %s\n",
				result.Files, formatSize(result.Bytes), result.Symlinks, destination)
			return err
		},
	}
}

// extractFile writes one file (or symlink) below root and returns the
// number of content bytes written. Every path is resolved through
// root, so a symlink written by an earlier entry cannot redirect a
// later one outside the destination.
func extractFile(ctx context.Context, store *chunkstore.Store, file *manifest.File, root *os.Root, options filestream.SaveOptions) (written int64, err error) {
	name := filepath.FromSlash(file.Name)
	if !filepath.IsLocal(name) {
		return 0, fmt.Errorf("%q: refusing to write outside %s", file.Name, root.Name())
	}
	if dir := filepath.Dir(name); dir != "." {
		if err := root.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("%q: %w", file.Name, err)
		}
	}

	if file.IsSymlink() {
		if err := root.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%q: %w", file.Name, err)
		}
		if err := root.Symlink(file.SymlinkTarget, name); err != nil {
			return 0, fmt.Errorf("%q: %w", file.Name, err)
		}
		return 0, nil
	}

	stream, err := filestream.Open(store, file)
	if err != nil {
		return 0, err
	}
	// A read-only file left by an earlier run cannot be reopened for
	// writing.
	if file.IsReadOnly() {
		root.Chmod(name, 0o644)
	}
	output, err := root.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", file.Name, err)
	}
	defer func() {
		if closeErr := output.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("%q: %w", file.Name, closeErr)
		}
		if err != nil {
			root.Remove(name)
		}
	}()
	if err := stream.SaveOpened(ctx, output, options); err != nil {
		return 0, err
	}
	if err := output.Chmod(extractedMode(file)); err != nil {
		return 0, fmt.Errorf("%q: %w", file.Name, err)
	}
	return stream.Len(), nil
}

func extractedMode(file *manifest.File) os.FileMode {
	switch {
	case file.IsExecutable():
		return 0o755
	case file.IsReadOnly():
		return 0o444
	default:
		return 0o644
	}
}
