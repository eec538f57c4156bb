// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"
	"slices"

	"github.com/bureau-foundation/buildpatch/lib/binreader"
)

// ChunkPart is a byte range of one chunk's uncompressed window that
// contributes to a file.
type ChunkPart struct {
	GUID   GUID
	Offset uint32
	Size   uint32
}

// File describes one file of the build.
type File struct {
	// Name is the build-relative path using forward slashes. It is
	// the file's identity within the manifest.
	Name string

	// SymlinkTarget is non-empty for symbolic links.
	SymlinkTarget string

	// Hash is the SHA1 of the complete file contents.
	Hash SHA1

	Flags       FileMetaFlags
	InstallTags []string

	// ChunkParts are stitched in order to produce the file.
	ChunkParts []ChunkPart

	// MimeType is only present in some binary manifests.
	MimeType string

	size     int64
	manifest *Manifest
}

// Size returns the file size: the sum of its chunk part sizes.
func (f *File) Size() int64 { return f.size }

// Manifest returns the manifest that owns the file.
func (f *File) Manifest() *Manifest { return f.manifest }

// IsSymlink reports whether the file is a symbolic link.
func (f *File) IsSymlink() bool { return f.SymlinkTarget != "" }

// IsExecutable reports whether the unix-executable flag is set.
func (f *File) IsExecutable() bool { return f.Flags&FileUnixExecutable != 0 }

// IsReadOnly reports whether the read-only flag is set.
func (f *File) IsReadOnly() bool { return f.Flags&FileReadOnly != 0 }

// HasTag reports whether tag is one of the file's install tags.
func (f *File) HasTag(tag string) bool {
	return slices.Contains(f.InstallTags, tag)
}

// File directory sub-section versions. Versions from
// fileListVersionTail on carry an undocumented per-file tail.
const (
	fileListVersionOriginal = 0
	fileListVersionTail     = 2
)

// Encoded chunk part: size prefix, GUID, offset, size.
const chunkPartMinSize = 4 + GUIDSize + 4 + 4

// Undocumented per-file tail strides.
const (
	fileTailEntryStride = 16
	fileTailTrailerSize = 32
)

func readFileList(r *binreader.Reader) ([]*File, error) {
	start := r.Position()
	size, err := r.Int32()
	if err != nil {
		return nil, malformed("file directory size", err)
	}
	version, err := r.Uint8()
	if err != nil {
		return nil, malformed("file directory version", err)
	}
	// Each file has at least an empty name, an empty symlink, a hash,
	// a flag byte and two empty arrays.
	count, err := r.Count(4 + 4 + SHA1Size + 1 + 4 + 4)
	if err != nil {
		return nil, malformed("file directory count", err)
	}
	end := start + int64(size)

	files := make([]*File, count)
	for i := range files {
		files[i] = &File{}
	}

	if version >= fileListVersionOriginal {
		if err := readFileColumns(r, files); err != nil {
			return nil, malformed("file directory", err)
		}
	}

	if version >= fileListVersionTail && r.Position() < end {
		if err := readFileTail(r, files); err != nil {
			return nil, malformed("file directory tail", err)
		}
	}

	if err := r.SetPosition(end); err != nil {
		return nil, malformed("file directory size", err)
	}
	return files, nil
}

func readFileColumns(r *binreader.Reader, files []*File) error {
	var err error
	for _, file := range files {
		if file.Name, err = r.FString(); err != nil {
			return fmt.Errorf("name column: %w", err)
		}
	}
	for _, file := range files {
		if file.SymlinkTarget, err = r.FString(); err != nil {
			return fmt.Errorf("symlink column: %w", err)
		}
	}
	for _, file := range files {
		if file.Hash, err = readSHA1(r); err != nil {
			return fmt.Errorf("hash column: %w", err)
		}
	}
	for _, file := range files {
		flags, err := r.Uint8()
		if err != nil {
			return fmt.Errorf("flags column: %w", err)
		}
		file.Flags = FileMetaFlags(flags)
	}
	for _, file := range files {
		if file.InstallTags, err = r.FStringArray(); err != nil {
			return fmt.Errorf("install tags column: %w", err)
		}
	}
	for _, file := range files {
		if file.ChunkParts, err = binreader.ReadArray(r, chunkPartMinSize, readChunkPart); err != nil {
			return fmt.Errorf("chunk parts of %q: %w", file.Name, err)
		}
	}
	return nil
}

// readFileTail reads the per-file tail some producers append: a
// counted array of 16-byte records, a mime type, and a 32-byte
// trailer. Only the mime type is kept.
func readFileTail(r *binreader.Reader, files []*File) error {
	for range files {
		count, err := r.Count(fileTailEntryStride)
		if err != nil {
			return err
		}
		if err := r.Skip(count * fileTailEntryStride); err != nil {
			return err
		}
	}
	var err error
	for _, file := range files {
		if file.MimeType, err = r.FString(); err != nil {
			return err
		}
	}
	for range files {
		if err := r.Skip(fileTailTrailerSize); err != nil {
			return err
		}
	}
	return nil
}

func readChunkPart(r *binreader.Reader) (ChunkPart, error) {
	start := r.Position()
	size, err := r.Int32()
	if err != nil {
		return ChunkPart{}, err
	}
	var part ChunkPart
	if part.GUID, err = readGUID(r); err != nil {
		return ChunkPart{}, err
	}
	if part.Offset, err = r.Uint32(); err != nil {
		return ChunkPart{}, err
	}
	if part.Size, err = r.Uint32(); err != nil {
		return ChunkPart{}, err
	}
	if err := r.SetPosition(start + int64(size)); err != nil {
		return ChunkPart{}, err
	}
	return part, nil
}
