// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifesttest builds synthetic builds for tests: a set of
// files is packed into fixed-size chunk windows, and the result can
// be rendered as a binary manifest (raw or zlib-compressed), as a
// JSON manifest, and as downloadable chunk container blobs served by
// an httptest server that counts requests per chunk.
//
// Files are laid out back to back in one logical stream before
// chunking, so small files share chunks and large files have chunk
// parts that span window boundaries. Both properties are what the
// fetch engine and file streams need to be exercised against.
//
// This package is test support only; nothing in the production tree
// imports it.
package manifesttest
