// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/buildpatch/lib/manifest"
)

// decompressedPrefix marks cache files that hold a flat window rather
// than the CDN container.
const decompressedPrefix = "v2_"

// temporaryPattern names in-progress cache writes. Prune removes
// leftovers from interrupted processes.
const temporaryPattern = ".chunk-*.tmp"

// CachePath returns the cache file for chunk under directory in the
// layout for mode.
func CachePath(directory string, mode manifest.CacheMode, chunk *manifest.ChunkInfo) string {
	name := chunk.Filename()
	if mode == manifest.CacheDecompressed {
		name = decompressedPrefix + name
	}
	return filepath.Join(directory, name)
}

// writeCacheFile atomically replaces path with data. The data is
// flushed to stable storage before the rename so a crash never leaves
// a truncated file under the final name.
func writeCacheFile(directory, path string, data []byte) error {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	temporary, err := os.CreateTemp(directory, temporaryPattern)
	if err != nil {
		return fmt.Errorf("creating temporary cache file: %w", err)
	}
	temporaryPath := temporary.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(temporaryPath)
		}
	}()

	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := temporary.Sync(); err != nil {
		temporary.Close()
		return fmt.Errorf("flushing cache file: %w", err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("closing cache file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		return fmt.Errorf("renaming cache file: %w", err)
	}

	success = true
	return nil
}

// readFileAt fills dst from path starting at offset. A file too short
// to fill dst is ErrMalformed.
func readFileAt(path string, dst []byte, offset int64) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	n, err := file.ReadAt(dst, offset)
	if errors.Is(err, io.EOF) && n < len(dst) {
		return n, fmt.Errorf("%w: cache file %s ends before byte %d", manifest.ErrMalformed, path, offset+int64(len(dst)))
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return n, err
	}
	return n, nil
}
