// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package filestream

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// SaveOptions tunes whole-file saves.
type SaveOptions struct {
	// MaxConcurrency bounds simultaneous chunk part fetches. Zero
	// means GOMAXPROCS.
	MaxConcurrency int

	// Progress, when set, is called with cumulative progress each
	// time the whole percentage changes.
	Progress func(Progress)
}

func (o SaveOptions) limit() int {
	if o.MaxConcurrency > 0 {
		return o.MaxConcurrency
	}
	return runtime.GOMAXPROCS(0)
}

// SaveBytes fills dst[:Len()] with the file contents. dst may be
// longer than the file; the bytes beyond Len() are left untouched.
func (s *Stream) SaveBytes(ctx context.Context, dst []byte, options SaveOptions) error {
	if int64(len(dst)) < s.size {
		return fmt.Errorf("saving %s: destination holds %d bytes, file is %d", s.file.Name, len(dst), s.size)
	}
	return s.saveParts(ctx, options, func(ctx context.Context, current part) error {
		window := dst[current.offset:current.end()]
		_, err := s.store.ReadPart(ctx, s.mode, current.chunk, window, current.chunkOffset)
		return err
	})
}

// Bytes returns the whole file contents.
func (s *Stream) Bytes(ctx context.Context, options SaveOptions) ([]byte, error) {
	dst := make([]byte, s.size)
	if err := s.SaveBytes(ctx, dst, options); err != nil {
		return nil, err
	}
	return dst, nil
}

// SaveFile writes the file to path with positioned writes, so no
// more than MaxConcurrency parts are buffered at once. The file is
// preallocated, flushed to stable storage, and removed again if the
// save fails.
func (s *Stream) SaveFile(ctx context.Context, path string, options SaveOptions) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("saving %s: %w", s.file.Name, err)
	}
	defer func() {
		if closeErr := file.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("saving %s: closing %s: %w", s.file.Name, path, closeErr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	return s.SaveOpened(ctx, file, options)
}

// SaveOpened fills file, which the caller opened for writing and still
// owns, the way SaveFile does. Callers that resolve paths themselves,
// such as through an os.Root, use it instead of SaveFile.
func (s *Stream) SaveOpened(ctx context.Context, file *os.File, options SaveOptions) error {
	if err := preallocate(file, s.size); err != nil {
		return fmt.Errorf("saving %s: preallocating %s: %w", s.file.Name, file.Name(), err)
	}
	if err := s.saveAt(ctx, file, options); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("saving %s: flushing %s: %w", s.file.Name, file.Name(), err)
	}
	return nil
}

// SaveTo writes the whole file to w. An io.WriterAt receives
// concurrent positioned writes; any other writer receives the parts
// in order, one at a time.
func (s *Stream) SaveTo(ctx context.Context, w io.Writer, options SaveOptions) error {
	if writerAt, ok := w.(io.WriterAt); ok {
		return s.saveAt(ctx, writerAt, options)
	}

	progress := newProgressTracker(s.size, options.Progress)
	for _, current := range s.parts {
		if current.size == 0 {
			continue
		}
		buffer := make([]byte, current.size)
		if _, err := s.store.ReadPart(ctx, s.mode, current.chunk, buffer, current.chunkOffset); err != nil {
			return fmt.Errorf("saving %s at offset %d: %w", s.file.Name, current.offset, err)
		}
		if _, err := w.Write(buffer); err != nil {
			return fmt.Errorf("saving %s: %w", s.file.Name, err)
		}
		progress.add(current.size)
	}
	return nil
}

func (s *Stream) saveAt(ctx context.Context, w io.WriterAt, options SaveOptions) error {
	return s.saveParts(ctx, options, func(ctx context.Context, current part) error {
		buffer := make([]byte, current.size)
		if _, err := s.store.ReadPart(ctx, s.mode, current.chunk, buffer, current.chunkOffset); err != nil {
			return err
		}
		_, err := w.WriteAt(buffer, current.offset)
		return err
	})
}

// saveParts runs save for every non-empty part with bounded
// concurrency, reporting progress as parts complete. The first error
// cancels the parts not yet started.
func (s *Stream) saveParts(ctx context.Context, options SaveOptions, save func(context.Context, part) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	progress := newProgressTracker(s.size, options.Progress)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(options.limit())
	for _, current := range s.parts {
		if current.size == 0 {
			continue
		}
		group.Go(func() error {
			if err := save(groupCtx, current); err != nil {
				return fmt.Errorf("saving %s at offset %d: %w", s.file.Name, current.offset, err)
			}
			progress.add(current.size)
			return nil
		})
	}
	return group.Wait()
}
