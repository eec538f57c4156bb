// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"
	"sync/atomic"

	"github.com/bureau-foundation/buildpatch/lib/binreader"
)

// ChunkInfo describes one content-addressed chunk. All fields are
// fixed after parsing except the cache path memo, which the fetch
// engine sets once per cache mode. A ChunkInfo must not be copied.
type ChunkInfo struct {
	GUID GUID

	// Hash is the 64-bit rolling hash of the chunk's data.
	Hash uint64

	// SHA is the SHA1 of the chunk's uncompressed window, or zero
	// for manifests that predate chunk SHA1 tracking.
	SHA SHA1

	// GroupNumber shards chunks into CDN subdirectories 00..99.
	GroupNumber uint8

	// WindowSize is the uncompressed size of the chunk's data.
	WindowSize uint32

	// FileSize is the size of the downloadable chunk file.
	FileSize int64

	cachePaths [cacheModeCount]atomic.Pointer[string]
}

// Filename returns "{hash:X16}_{guid}.chunk", the chunk's object name
// on the CDN.
func (c *ChunkInfo) Filename() string {
	return fmt.Sprintf("%016X_%s.chunk", c.Hash, c.GUID)
}

// CachePath returns the memoized local cache file for mode, or "" if
// the chunk has not been materialized in that mode by this process.
func (c *ChunkInfo) CachePath(mode CacheMode) string {
	if mode >= cacheModeCount {
		return ""
	}
	if path := c.cachePaths[mode].Load(); path != nil {
		return *path
	}
	return ""
}

// SetCachePath records the local cache file for mode. Only the first
// call for a mode takes effect; it reports whether this call did.
func (c *ChunkInfo) SetCachePath(mode CacheMode, path string) bool {
	if mode >= cacheModeCount || path == "" {
		return false
	}
	return c.cachePaths[mode].CompareAndSwap(nil, &path)
}

// Chunk directory sub-section versions.
const chunkListVersionOriginal = 0

// readChunkList reads the column-oriented chunk directory. Columns
// are written for every chunk before the next column starts, so the
// records are allocated up front and filled in passes.
func readChunkList(r *binreader.Reader) ([]*ChunkInfo, error) {
	start := r.Position()
	size, err := r.Int32()
	if err != nil {
		return nil, malformed("chunk directory size", err)
	}
	version, err := r.Uint8()
	if err != nil {
		return nil, malformed("chunk directory version", err)
	}
	count, err := r.Count(GUIDSize)
	if err != nil {
		return nil, malformed("chunk directory count", err)
	}

	chunks := make([]*ChunkInfo, count)
	for i := range chunks {
		chunks[i] = &ChunkInfo{}
	}

	if version >= chunkListVersionOriginal {
		if err := readChunkColumns(r, chunks); err != nil {
			return nil, malformed("chunk directory", err)
		}
	}

	if err := r.SetPosition(start + int64(size)); err != nil {
		return nil, malformed("chunk directory size", err)
	}
	return chunks, nil
}

func readChunkColumns(r *binreader.Reader, chunks []*ChunkInfo) error {
	var err error
	for _, chunk := range chunks {
		if chunk.GUID, err = readGUID(r); err != nil {
			return fmt.Errorf("GUID column: %w", err)
		}
	}
	for _, chunk := range chunks {
		if chunk.Hash, err = r.Uint64(); err != nil {
			return fmt.Errorf("hash column: %w", err)
		}
	}
	for _, chunk := range chunks {
		if chunk.SHA, err = readSHA1(r); err != nil {
			return fmt.Errorf("SHA1 column: %w", err)
		}
	}
	for _, chunk := range chunks {
		if chunk.GroupNumber, err = r.Uint8(); err != nil {
			return fmt.Errorf("group column: %w", err)
		}
	}
	for _, chunk := range chunks {
		if chunk.WindowSize, err = r.Uint32(); err != nil {
			return fmt.Errorf("window size column: %w", err)
		}
	}
	for _, chunk := range chunks {
		if chunk.FileSize, err = r.Int64(); err != nil {
			return fmt.Errorf("file size column: %w", err)
		}
	}
	return nil
}
