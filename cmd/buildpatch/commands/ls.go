// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/bureau-foundation/buildpatch/cmd/buildpatch/cli"
	"github.com/bureau-foundation/buildpatch/lib/manifest"
)

type lsParams struct {
	BuildSource
	cli.StructuredOutput
	Long bool     `flag:"long,l" desc:"show size, flags and install tags"`
	Tags []string `flag:"tag"    desc:"only files with this install tag (repeatable)"`
}

type fileEntry struct {
	Name          string        `json:"name"`
	Size          int64         `json:"size"`
	Hash          manifest.SHA1 `json:"hash"`
	Flags         string        `json:"flags"`
	InstallTags   []string      `json:"install_tags,omitempty"`
	SymlinkTarget string        `json:"symlink_target,omitempty"`
	MimeType      string        `json:"mime_type,omitempty"`
	ChunkParts    int           `json:"chunk_parts"`
}

func lsCommand(env *environment) *cli.Command {
	var params lsParams

	return &cli.Command{
		Name:    "ls",
		Summary: "List the files of a build",
		Usage:   "buildpatch ls -m <manifest> [file...] [flags]",
		Description: `List files in name order. With file arguments, only those files
are listed; a name that is not in the build is an error.`,
		Examples: []cli.Example{
			{
				Description: "Long listing of files tagged for a language pack",
				Command:     "buildpatch ls -m Game.manifest -l --tag lang.de",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			b, err := params.open(ctx, env, "ls")
			if err != nil {
				return err
			}
			files, err := b.selectFiles(args, params.Tags)
			if err != nil {
				return err
			}

			entries := make([]fileEntry, 0, len(files))
			for _, file := range files {
				entries = append(entries, fileEntry{
					Name:          file.Name,
					Size:          file.Size(),
					Hash:          file.Hash,
					Flags:         file.Flags.String(),
					InstallTags:   file.InstallTags,
					SymlinkTarget: file.SymlinkTarget,
					MimeType:      file.MimeType,
					ChunkParts:    len(file.ChunkParts),
				})
			}
			if done, err := params.Emit(env.stdout, entries); done {
				return err
			}

			if !params.Long {
				for _, entry := range entries {
					fmt.Fprintln(env.stdout, entry.Name)
				}
				return nil
			}
			tw := tabwriter.NewWriter(env.stdout, 2, 0, 2, ' ', 0)
			for _, entry := range entries {
				name := entry.Name
				if entry.SymlinkTarget != "" {
					name += " -> " + entry.SymlinkTarget
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", entry.Size, entry.Flags, strings.Join(entry.InstallTags, ","), name)
			}
			return tw.Flush()
		},
	}
}
