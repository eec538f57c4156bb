// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/buildpatch/lib/manifest"
)

// PruneResult summarizes a Prune pass.
type PruneResult struct {
	Kept       int
	Removed    int
	BytesFreed int64
}

// Prune deletes chunk cache files in directory that no chunk of m
// references, in either cache layout, along with abandoned temporary
// files. Other files and subdirectories are left alone. A missing
// directory is an empty cache.
func Prune(directory string, m *manifest.Manifest) (PruneResult, error) {
	var result PruneResult

	entries, err := os.ReadDir(directory)
	if errors.Is(err, os.ErrNotExist) {
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("listing chunk cache %s: %w", directory, err)
	}

	referenced := make(map[string]struct{}, len(m.Chunks))
	for _, chunk := range m.Chunks {
		referenced[chunk.Filename()] = struct{}{}
	}

	var errs []error
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		switch {
		case isTemporary(name):
		case strings.HasSuffix(name, ".chunk"):
			if _, ok := referenced[strings.TrimPrefix(name, decompressedPrefix)]; ok {
				result.Kept++
				continue
			}
		default:
			continue
		}

		info, err := entry.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(filepath.Join(directory, name)); err != nil {
			errs = append(errs, err)
			continue
		}
		result.Removed++
		result.BytesFreed += info.Size()
	}
	return result, errors.Join(errs...)
}

func isTemporary(name string) bool {
	matched, _ := filepath.Match(temporaryPattern, name)
	return matched
}
