// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package filestream presents a manifest file as a read-only,
// seekable byte stream. Bytes are stitched on demand from the file's
// chunk parts through a [chunkstore.Store], so opening a stream costs
// nothing and reading a range only touches the chunks it spans.
//
// A [Stream] implements io.Reader, io.Seeker, io.ReaderAt and
// io.WriterTo. The context-taking variants (ReadContext,
// ReadAtContext) let callers bound or cancel the underlying chunk
// fetches; the plain io methods use context.Background.
//
// Whole-file saves (SaveBytes, SaveFile, SaveTo) fetch chunk parts
// concurrently, up to SaveOptions.MaxConcurrency at a time, and place
// each part at its absolute offset so completion order does not
// matter. Progress callbacks are serialized and only fire when the
// whole percentage changes.
package filestream
