// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/bureau-foundation/buildpatch/lib/keylock"
)

// Manifest is a parsed build manifest. It is safe for concurrent use:
// everything is read-only after parsing except the per-chunk cache
// path memo, which is atomic.
type Manifest struct {
	Meta *Meta

	// Chunks is the chunk directory in manifest order, one entry per
	// distinct GUID.
	Chunks []*ChunkInfo

	// Files is the file directory sorted by Name (byte order).
	Files []*File

	CustomFields []CustomField

	chunksByGUID map[GUID]*ChunkInfo
	options      Options

	locksOnce sync.Once
	locks     *keylock.Table[GUID]
}

// newManifest assembles the aggregate: it drops duplicate chunk
// declarations, indexes chunks by GUID, sorts files by name, derives
// each file's size from its chunk parts, and verifies that every
// chunk part refers to a known chunk.
func newManifest(meta *Meta, chunks []*ChunkInfo, files []*File, customFields []CustomField, options Options) (*Manifest, error) {
	m := &Manifest{
		Meta:         meta,
		CustomFields: customFields,
		chunksByGUID: make(map[GUID]*ChunkInfo, len(chunks)),
		options:      options.withDefaults(),
	}

	m.Chunks = make([]*ChunkInfo, 0, len(chunks))
	for _, chunk := range chunks {
		if _, exists := m.chunksByGUID[chunk.GUID]; exists {
			continue
		}
		m.chunksByGUID[chunk.GUID] = chunk
		m.Chunks = append(m.Chunks, chunk)
	}

	slices.SortStableFunc(files, func(a, b *File) int {
		return strings.Compare(a.Name, b.Name)
	})
	for _, file := range files {
		file.manifest = m
		file.size = 0
		for _, part := range file.ChunkParts {
			if _, ok := m.chunksByGUID[part.GUID]; !ok {
				return nil, fmt.Errorf("%w: file %q references unknown chunk %s", ErrMalformed, file.Name, part.GUID)
			}
			file.size += int64(part.Size)
		}
	}
	m.Files = files

	if m.CustomFields == nil {
		m.CustomFields = []CustomField{}
	}
	return m, nil
}

// Options returns the configuration the manifest was parsed with,
// with defaults applied.
func (m *Manifest) Options() Options { return m.options }

// ChunkByGUID looks up a chunk.
func (m *Manifest) ChunkByGUID(guid GUID) (*ChunkInfo, bool) {
	chunk, ok := m.chunksByGUID[guid]
	return chunk, ok
}

// FileByName looks up a file by its exact build-relative path.
func (m *Manifest) FileByName(name string) (*File, bool) {
	index := sort.Search(len(m.Files), func(i int) bool {
		return m.Files[i].Name >= name
	})
	if index < len(m.Files) && m.Files[index].Name == name {
		return m.Files[index], true
	}
	return nil, false
}

// CustomField returns the value of the first custom field named name.
func (m *Manifest) CustomField(name string) (string, bool) {
	for _, field := range m.CustomFields {
		if field.Name == name {
			return field.Value, true
		}
	}
	return "", false
}

// TotalBuildSize is the sum of all file sizes.
func (m *Manifest) TotalBuildSize() int64 {
	var total int64
	for _, file := range m.Files {
		total += file.Size()
	}
	return total
}

// TotalDownloadSize is the sum of all chunk file sizes.
func (m *Manifest) TotalDownloadSize() int64 {
	var total int64
	for _, chunk := range m.Chunks {
		total += chunk.FileSize
	}
	return total
}

// ChunkSubdir returns the CDN subdirectory for this manifest's
// feature level.
func (m *Manifest) ChunkSubdir() string {
	return m.Meta.FeatureLevel.ChunkSubdir()
}

// ChunkURL returns the download URL of chunk:
// {ChunkBaseURL}{subdir}/{group:02}/{hash:X16}_{guid}.chunk.
func (m *Manifest) ChunkURL(chunk *ChunkInfo) string {
	return fmt.Sprintf("%s%s/%02d/%s", m.options.ChunkBaseURL, m.ChunkSubdir(), chunk.GroupNumber, chunk.Filename())
}

// ChunkLocks returns the manifest's per-GUID lock table, creating it
// on first use.
func (m *Manifest) ChunkLocks() *keylock.Table[GUID] {
	m.locksOnce.Do(func() {
		m.locks = keylock.New[GUID](min(len(m.Chunks), 128))
	})
	return m.locks
}
