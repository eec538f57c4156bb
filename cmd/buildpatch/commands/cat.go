// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/bureau-foundation/buildpatch/cmd/buildpatch/cli"
	"github.com/bureau-foundation/buildpatch/lib/filestream"
)

type catParams struct {
	BuildSource
	Offset int64 `flag:"offset" desc:"start at this byte offset"`
	Length int64 `flag:"length" desc:"write at most this many bytes (0 = to end of file)"`
}

func catCommand(env *environment) *cli.Command {
	var params catParams

	return &cli.Command{
		Name:    "cat",
		Summary: "Stream one file of a build to stdout",
		Usage:   "buildpatch cat -m <manifest> <file> [flags]",
		Description: `Write the contents of one file to stdout, downloading only the
chunks that cover the requested range. Downloaded chunks land in the
chunk cache, so a second cat of the same range is served locally.`,
		Examples: []cli.Example{
			{
				Description: "Read the first kilobyte of a pak file",
				Command:     "buildpatch cat -m Game.manifest --length 1024 Game/Content/Paks/base.pak | xxd",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: buildpatch cat <file>")
			}
			if params.Offset < 0 || params.Length < 0 {
				return fmt.Errorf("--offset and --length must not be negative")
			}

			b, err := params.open(ctx, env, "cat")
			if err != nil {
				return err
			}
			files, err := b.selectFiles(args, nil)
			if err != nil {
				return err
			}
			store, err := b.store(nil)
			if err != nil {
				return err
			}
			stream, err := filestream.Open(store, files[0])
			if err != nil {
				return err
			}

			// Hide any WriterAt on stdout: pipes cannot seek.
			stdout := struct{ io.Writer }{env.stdout}
			if params.Offset == 0 && params.Length == 0 {
				return stream.SaveTo(ctx, stdout, filestream.SaveOptions{})
			}

			if err := stream.SetPosition(params.Offset); err != nil {
				return err
			}
			var reader io.Reader = &contextReader{ctx: ctx, stream: stream}
			if params.Length > 0 {
				reader = io.LimitReader(reader, params.Length)
			}
			_, err = io.Copy(stdout, reader)
			return err
		},
	}
}

// contextReader adapts Stream.ReadContext to io.Reader.
type contextReader struct {
	ctx    context.Context
	stream *filestream.Stream
}

func (r *contextReader) Read(p []byte) (int, error) {
	return r.stream.ReadContext(r.ctx, p)
}
