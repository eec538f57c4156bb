// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"
	"strings"
)

// StorageFlags describes how a manifest payload or a chunk payload is
// stored. Manifests and chunk containers share the same bit values.
type StorageFlags uint8

const (
	StorageNone       StorageFlags = 0
	StorageCompressed StorageFlags = 1 << 0
	StorageEncrypted  StorageFlags = 1 << 1
)

// Compressed reports whether the compressed bit is set.
func (f StorageFlags) Compressed() bool { return f&StorageCompressed != 0 }

// Encrypted reports whether the encrypted bit is set.
func (f StorageFlags) Encrypted() bool { return f&StorageEncrypted != 0 }

// Check rejects flag bytes carrying bits this package does not know
// and flags naming encryption. what names the payload for the error
// message.
func (f StorageFlags) Check(what string) error {
	if f&^(StorageCompressed|StorageEncrypted) != 0 {
		return fmt.Errorf("%w: %s has unknown storage flags %#02x", ErrMalformed, what, uint8(f))
	}
	if f.Encrypted() {
		return fmt.Errorf("encrypted %s: %w", what, ErrUnsupported)
	}
	return nil
}

func (f StorageFlags) String() string {
	switch f {
	case StorageNone:
		return "none"
	case StorageCompressed:
		return "compressed"
	case StorageEncrypted:
		return "encrypted"
	case StorageCompressed | StorageEncrypted:
		return "compressed|encrypted"
	default:
		return fmt.Sprintf("StorageFlags(%#02x)", uint8(f))
	}
}

// FileMetaFlags carries per-file attributes.
type FileMetaFlags uint8

const (
	FileReadOnly       FileMetaFlags = 1 << 0
	FileCompressed     FileMetaFlags = 1 << 1
	FileUnixExecutable FileMetaFlags = 1 << 2
)

func (f FileMetaFlags) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	if f&FileReadOnly != 0 {
		names = append(names, "readonly")
	}
	if f&FileCompressed != 0 {
		names = append(names, "compressed")
	}
	if f&FileUnixExecutable != 0 {
		names = append(names, "executable")
	}
	if rest := f &^ (FileReadOnly | FileCompressed | FileUnixExecutable); rest != 0 {
		names = append(names, fmt.Sprintf("%#02x", uint8(rest)))
	}
	return strings.Join(names, "|")
}

// CacheMode selects what the chunk fetch engine persists in the
// chunk cache directory.
type CacheMode uint8

const (
	// CacheDecompressed stores each chunk's flat uncompressed window.
	// Reads of a cached chunk are positioned reads of just the
	// requested range.
	CacheDecompressed CacheMode = iota

	// CacheAsIs stores the downloaded container bytes unchanged,
	// header and compression included. Every read decompresses.
	CacheAsIs

	cacheModeCount
)

func (m CacheMode) String() string {
	switch m {
	case CacheDecompressed:
		return "decompressed"
	case CacheAsIs:
		return "as-is"
	default:
		return fmt.Sprintf("CacheMode(%d)", uint8(m))
	}
}
