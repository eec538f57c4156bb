// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest parses game build manifests into an indexed,
// read-only in-memory model.
//
// A manifest describes one build of an application: build metadata,
// a directory of content-addressed chunks, and a directory of files,
// each reconstructed by stitching byte ranges ("chunk parts") out of
// the decompressed windows of one or more chunks. Two encodings
// exist:
//
//   - Binary: a fixed header (magic 0x44BEC00C, sizes, SHA1 of the
//     uncompressed payload, storage flags, feature level) followed by
//     an optionally zlib-compressed payload of four length-prefixed,
//     independently versioned sub-sections: meta, chunk directory,
//     file directory, custom fields. The chunk and file directories
//     are column-oriented: every GUID, then every hash, and so on.
//   - JSON: an older text encoding where integers and hashes are
//     stored as "blob strings" (three decimal digits per byte of the
//     little-endian value) and the chunk directory is implied by the
//     chunk parts that files reference.
//
// [Deserialize] detects the encoding (an opening brace within the
// first four bytes means JSON) and returns a [*Manifest]. Parsing is
// all-or-nothing: any error aborts deserialization and no partial
// model is returned.
//
// The returned model is immutable except for the per-chunk cache path
// memo, which the chunk fetch engine (lib/chunkstore) writes at most
// once per chunk and cache mode. The manifest also owns the table of
// per-GUID locks that the fetch engine uses to guarantee a single
// in-flight download per chunk.
//
// Errors are classified with sentinel values usable with errors.Is:
// [ErrMalformed], [ErrUnsupported], [ErrConfiguration],
// [ErrIntegrity], and [ErrTransport]. [*IntegrityError] and
// [*TransportError] carry the diagnostic detail for their classes.
package manifest
