// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"

	"github.com/bureau-foundation/buildpatch/lib/binreader"
)

// HeaderMagic opens every binary manifest.
const HeaderMagic uint32 = 0x44BEC00C

// Header sizes by generation. Manifests before
// FeatureLevelStoredAsBinaryData have no version field; the header
// size is the only signal of which layout is present.
const (
	headerSizeOriginal  = 37
	headerSizeVersioned = 41
)

// Header is the fixed envelope at the start of a binary manifest.
type Header struct {
	// HeaderSize is the declared size of the header. The payload
	// starts at this offset regardless of how many fields were read.
	HeaderSize int32

	DataSizeUncompressed int32
	DataSizeCompressed   int32

	// SHA is the SHA1 of the uncompressed payload.
	SHA SHA1

	StoredAs StorageFlags

	// Version is the feature level of the producer. Headers without
	// a version field report FeatureLevelStoredAsCompressedUClass.
	Version FeatureLevel
}

// ParseHeader reads a manifest header at the reader's position and
// leaves the reader positioned at the first payload byte.
func ParseHeader(r *binreader.Reader) (*Header, error) {
	start := r.Position()

	magic, err := r.Uint32()
	if err != nil {
		return nil, malformed("manifest header", err)
	}
	if magic != HeaderMagic {
		return nil, fmt.Errorf("%w: manifest magic %#08x, expected %#08x", ErrMalformed, magic, HeaderMagic)
	}

	var header Header
	if header.HeaderSize, err = r.Int32(); err != nil {
		return nil, malformed("manifest header size", err)
	}
	if header.HeaderSize < headerSizeOriginal {
		return nil, fmt.Errorf("%w: manifest header size %d is below the minimum %d", ErrMalformed, header.HeaderSize, headerSizeOriginal)
	}
	if header.DataSizeUncompressed, err = r.Int32(); err != nil {
		return nil, malformed("manifest uncompressed size", err)
	}
	if header.DataSizeCompressed, err = r.Int32(); err != nil {
		return nil, malformed("manifest compressed size", err)
	}
	if header.SHA, err = readSHA1(r); err != nil {
		return nil, malformed("manifest payload hash", err)
	}
	flags, err := r.Uint8()
	if err != nil {
		return nil, malformed("manifest storage flags", err)
	}
	header.StoredAs = StorageFlags(flags)

	header.Version = FeatureLevelStoredAsCompressedUClass
	if header.HeaderSize > headerSizeOriginal {
		version, err := r.Int32()
		if err != nil {
			return nil, malformed("manifest version", err)
		}
		header.Version = FeatureLevel(version)
	}

	if err := r.SetPosition(start + int64(header.HeaderSize)); err != nil {
		return nil, malformed("manifest header size", err)
	}
	return &header, nil
}
