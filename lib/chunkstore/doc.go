// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chunkstore resolves manifest chunks to their uncompressed
// windows. A [Store] consults three tiers in order: an in-memory ARC
// of recently used windows, an optional on-disk cache directory, and
// finally the chunk CDN.
//
// Every chunk is fetched at most once per process. Concurrent
// requests for the same chunk serialize on the manifest's per-GUID
// lock table (see [manifest.Manifest.ChunkLocks]); the first holder
// downloads and persists the chunk while the others wait and then
// find it warm. Requests for different chunks never contend.
//
// The disk cache has two layouts, selected per read by
// [manifest.CacheMode]:
//
//   - CacheAsIs keeps "{hash:X16}_{guid}.chunk", byte-identical to the
//     CDN object, and decompresses on every read.
//   - CacheDecompressed keeps "v2_{hash:X16}_{guid}.chunk", the flat
//     uncompressed window, and serves sub-ranges with positioned reads.
//
// The two layouts never share a file, so switching modes only costs a
// cold cache. [Prune] removes cache files that a manifest no longer
// references.
//
// Network failures are returned as *manifest.TransportError and are
// not retried here; retry policy belongs to the HTTP client the
// caller configures.
package chunkstore
