// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkstore

import (
	"fmt"

	"github.com/bureau-foundation/buildpatch/lib/binreader"
	"github.com/bureau-foundation/buildpatch/lib/manifest"
)

// Magic opens every chunk container.
const Magic uint32 = 0xB1FE3AA2

// Chunk container header versions and the number of header bytes
// each one defines.
const (
	HeaderVersionOriginal                   uint32 = 1
	HeaderVersionStoresSHAAndHashType       uint32 = 2
	HeaderVersionStoresDataSizeUncompressed uint32 = 3

	headerSizeOriginal             = 41
	headerSizeSHAAndHashType       = 62
	headerSizeDataSizeUncompressed = 66
)

// Header is the envelope at the start of a chunk container.
type Header struct {
	Version    uint32
	HeaderSize int32

	DataSizeCompressed   int32
	DataSizeUncompressed int32

	GUID        manifest.GUID
	RollingHash uint64
	StoredAs    manifest.StorageFlags

	// SHA and HashType are zero for version 1 headers.
	SHA      manifest.SHA1
	HashType uint8
}

// ParseHeader parses the header at the start of data.
//
// Parsing is deliberately permissive about length: fields that the
// declared version defines but data is too short to hold keep their
// defaults instead of failing, and data shorter than the original
// 41-byte header yields an all-default header. DataSizeUncompressed
// defaults to manifest.LegacyChunkSize, the fixed window of headers
// that predate the field. Only a wrong magic is an error.
func ParseHeader(data []byte) (*Header, error) {
	header := &Header{DataSizeUncompressed: manifest.LegacyChunkSize}
	available := len(data)
	if available < headerSizeOriginal {
		return header, nil
	}

	r := binreader.New(data)
	magic, _ := r.Uint32()
	if magic != Magic {
		return nil, fmt.Errorf("%w: chunk magic is %#08x, expected %#08x", manifest.ErrMalformed, magic, Magic)
	}

	// The original header fits in data, so none of these reads can
	// run past the end.
	header.Version, _ = r.Uint32()
	header.HeaderSize, _ = r.Int32()
	header.DataSizeCompressed, _ = r.Int32()
	guid, _ := r.Bytes(manifest.GUIDSize)
	header.GUID, _ = manifest.GUIDFromBytes(guid)
	header.RollingHash, _ = r.Uint64()
	storedAs, _ := r.Uint8()
	header.StoredAs = manifest.StorageFlags(storedAs)

	if header.Version >= HeaderVersionStoresSHAAndHashType && available >= headerSizeSHAAndHashType {
		sha, _ := r.Bytes(manifest.SHA1Size)
		copy(header.SHA[:], sha)
		header.HashType, _ = r.Uint8()
	}
	if header.Version >= HeaderVersionStoresDataSizeUncompressed && available >= headerSizeDataSizeUncompressed {
		header.DataSizeUncompressed, _ = r.Int32()
	}
	return header, nil
}

// Payload returns the slice of data holding the chunk payload that
// follows the header.
func (h *Header) Payload(data []byte) ([]byte, error) {
	start := int64(h.HeaderSize)
	end := start + int64(h.DataSizeCompressed)
	if h.HeaderSize < 0 || h.DataSizeCompressed < 0 || end > int64(len(data)) {
		return nil, fmt.Errorf("%w: chunk payload [%d, %d) exceeds container of %d bytes",
			manifest.ErrMalformed, start, end, len(data))
	}
	return data[start:end], nil
}

// Window decodes the container into the chunk's uncompressed window
// using options' decompressor. Encrypted or unknown storage is
// rejected before any payload is touched.
func (h *Header) Window(data []byte, options manifest.Options) ([]byte, error) {
	if err := h.StoredAs.Check("chunk"); err != nil {
		return nil, err
	}
	payload, err := h.Payload(data)
	if err != nil {
		return nil, err
	}
	if !h.StoredAs.Compressed() {
		return payload, nil
	}
	return options.Decompress("chunk "+h.GUID.String(), payload, int(h.DataSizeUncompressed))
}
